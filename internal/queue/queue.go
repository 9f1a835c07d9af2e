package queue

import (
	"errors"
	"strings"
	"time"

	"help_queue/internal/models"
	"help_queue/internal/storage"

	"gorm.io/gorm"
)

// Статусы вопроса.
const (
	StatusWaiting   = "waiting"
	StatusHelping   = "helping"
	StatusDone      = "done"
	StatusCancelled = "cancelled"
)

// Действия инструктора над вопросом.
const (
	ActionStart  = "start"
	ActionFinish = "finish"
	ActionCancel = "cancel"
)

// DefaultName подставляется, если отправитель не указал имя.
const DefaultName = "Anon"

// Attachment описывает уже сохранённое вложение: серверное имя файла и
// оригинальное имя для отображения. Либо оба поля заполнены, либо вложения нет.
type Attachment struct {
	Filename string
	OrigName string
}

// transitions задаёт машину состояний: для каждого действия — целевой статус,
// допустимые исходные статусы и колонка с отметкой времени перехода.
var transitions = map[string]struct {
	target  string
	sources []string
	stamp   string
}{
	ActionStart:  {StatusHelping, []string{StatusWaiting}, "started_at"},
	ActionFinish: {StatusDone, []string{StatusWaiting, StatusHelping}, "finished_at"},
	ActionCancel: {StatusCancelled, []string{StatusWaiting, StatusHelping}, "finished_at"},
}

// CurrentQueue возвращает текущую очередь — последнюю созданную.
func CurrentQueue() (*models.Queue, error) {
	var q models.Queue
	if err := storage.DB.Order("id DESC").First(&q).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQueueNotFound
		}
		return nil, err
	}
	return &q, nil
}

// Submit создаёт новый вопрос в статусе waiting.
// Вложение, если есть, должно быть сохранено заранее: здесь хранится только
// пара имён. Запись либо создаётся целиком, либо не создаётся вовсе.
func Submit(queueID uint, name, body string, att *Attachment) (*models.Question, error) {
	var q models.Queue
	if err := storage.DB.First(&q, queueID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQueueNotFound
		}
		return nil, err
	}
	if !q.IsOpen {
		return nil, ErrQueueClosed
	}

	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyBody
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultName
	}

	question := models.Question{
		QueueID: queueID,
		Name:    name,
		Body:    body,
		Status:  StatusWaiting,
	}
	if att != nil {
		if att.Filename == "" || att.OrigName == "" {
			return nil, ErrAttachmentPair
		}
		question.ResumeFilename = &att.Filename
		question.ResumeOrigName = &att.OrigName
	}

	if err := storage.DB.Create(&question).Error; err != nil {
		return nil, err
	}
	return &question, nil
}

// ToggleOpen переключает флаг открытости очереди и возвращает новое значение.
func ToggleOpen(queueID uint) (bool, error) {
	var q models.Queue
	if err := storage.DB.First(&q, queueID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrQueueNotFound
		}
		return false, err
	}

	newState := !q.IsOpen
	if err := storage.DB.Model(&models.Queue{}).Where("id = ?", q.ID).Update("is_open", newState).Error; err != nil {
		return false, err
	}
	return newState, nil
}

// Transition применяет действие инструктора к вопросу и возвращает итоговый статус.
// Смена статуса и отметка времени выполняются одним условным UPDATE: из двух
// одновременных действий над одним вопросом применится ровно одно.
// Если текущий статус не допускает действие (повторный клик, устаревшая
// страница), обновление затрагивает ноль строк и вызов возвращает текущий
// статус без ошибки.
func Transition(questionID uint, action string) (string, error) {
	t, ok := transitions[action]
	if !ok {
		return "", ErrUnknownAction
	}

	res := storage.DB.Model(&models.Question{}).
		Where("id = ? AND status IN ?", questionID, t.sources).
		Updates(map[string]interface{}{"status": t.target, t.stamp: time.Now()})
	if res.Error != nil {
		return "", res.Error
	}

	var q models.Question
	if err := storage.DB.First(&q, questionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrQuestionNotFound
		}
		return "", err
	}
	return q.Status, nil
}

// ListActive возвращает вопросы в статусах waiting и helping,
// отсортированные по времени создания (старые первыми).
func ListActive(queueID uint) ([]models.Question, error) {
	var questions []models.Question
	err := storage.DB.
		Where("queue_id = ? AND status IN ?", queueID, []string{StatusWaiting, StatusHelping}).
		Order("created_at ASC").
		Find(&questions).Error
	if err != nil {
		return nil, err
	}
	return questions, nil
}

// Counts возвращает количество вопросов очереди по каждому статусу.
func Counts(queueID uint) (map[string]int64, error) {
	counts := make(map[string]int64, 4)
	for _, status := range []string{StatusWaiting, StatusHelping, StatusDone, StatusCancelled} {
		var c int64
		if err := storage.DB.Model(&models.Question{}).
			Where("queue_id = ? AND status = ?", queueID, status).
			Count(&c).Error; err != nil {
			return nil, err
		}
		counts[status] = c
	}
	return counts, nil
}
