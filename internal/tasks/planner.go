package tasks

import (
	"log"
	"os"
	"strconv"
	"time"

	"help_queue/internal/models"
	"help_queue/internal/queue"
	"help_queue/internal/storage"
	"help_queue/internal/uploads"

	"github.com/robfig/cron/v3"
)

// retentionDays возвращает срок хранения завершённых вопросов в днях.
func retentionDays() int {
	days, err := strconv.Atoi(os.Getenv("RETENTION_DAYS"))
	if err != nil || days <= 0 {
		return 30
	}
	return days
}

// CleanOldQuestions удаляет завершённые и отменённые вопросы старше срока
// хранения вместе с их файлами резюме.
func CleanOldQuestions() {
	threshold := time.Now().AddDate(0, 0, -retentionDays())

	var questions []models.Question
	if err := storage.DB.
		Where("status IN ? AND finished_at < ?", []string{queue.StatusDone, queue.StatusCancelled}, threshold).
		Find(&questions).Error; err != nil {
		log.Println("Ошибка поиска устаревших вопросов:", err)
		return
	}

	if len(questions) == 0 {
		return
	}

	for _, q := range questions {
		if q.ResumeFilename != nil {
			if err := uploads.Remove(*q.ResumeFilename); err != nil {
				log.Println("Ошибка удаления файла резюме", *q.ResumeFilename, ":", err)
			}
		}
		if err := storage.DB.Delete(&models.Question{}, q.ID).Error; err != nil {
			log.Println("Ошибка удаления вопроса", q.ID, ":", err)
		}
	}
	log.Printf("Удалено устаревших вопросов: %d\n", len(questions))
}

// InitScheduler инициализирует планировщик cron-задач.
func InitScheduler() *cron.Cron {
	c := cron.New(cron.WithSeconds())

	// Задача очистки устаревших вопросов каждый день в 03:00.
	_, err := c.AddFunc("0 0 3 * * *", CleanOldQuestions)
	if err != nil {
		log.Println("Ошибка запуска cron-задачи CleanOldQuestions:", err)
	}

	c.Start()
	log.Println("Cron-планировщик запущен.")
	return c
}
