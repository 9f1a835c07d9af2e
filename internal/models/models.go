package models

import (
	"time"

	"gorm.io/gorm"
)

type Queue struct {
	gorm.Model
	Course string `gorm:"not null"`      // Название курса/воркшопа
	IsOpen bool   `gorm:"default:false"` // Принимает ли очередь новые вопросы
}

type Question struct {
	gorm.Model
	QueueID        uint    `gorm:"index;not null"` // Очередь, к которой относится вопрос
	Queue          Queue   `gorm:"foreignKey:QueueID"`
	Name           string  `gorm:"not null"` // Имя отправителя ("Anon", если не указано)
	Body           string  `gorm:"not null"` // Текст вопроса
	ResumeFilename *string // Серверное имя загруженного файла (nil — вложения нет)
	ResumeOrigName *string // Оригинальное имя файла для отображения
	// Статус вопроса: waiting, helping, done, cancelled
	Status     string     `gorm:"index;not null;default:'waiting'"`
	StartedAt  *time.Time // Момент перехода в helping
	FinishedAt *time.Time // Момент перехода в done или cancelled
}
