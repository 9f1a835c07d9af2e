package queue

import (
	"math"
	"time"

	"help_queue/internal/models"
	"help_queue/internal/storage"
)

// DefaultWindowHours — ширина скользящего окна оценки ожидания по умолчанию.
const DefaultWindowHours = 6

// EstimateWait оценивает ожидаемое время ожидания в минутах по вопросам
// в статусах helping и done, созданным за последние windowHours часов.
// Для каждого вопроса берётся время от создания до начала помощи; для ещё не
// начатых helping-вопросов вместо started_at подставляется текущий момент,
// чтобы оценка росла вживую, а не ждала завершения. Пустая выборка даёт 0.
// Результат округляется до целой минуты, половина — от нуля.
func EstimateWait(queueID uint, windowHours int) (int, error) {
	if windowHours <= 0 {
		windowHours = DefaultWindowHours
	}
	since := time.Now().Add(-time.Duration(windowHours) * time.Hour)

	var questions []models.Question
	err := storage.DB.
		Where("queue_id = ? AND status IN ? AND created_at >= ?",
			queueID, []string{StatusHelping, StatusDone}, since).
		Find(&questions).Error
	if err != nil {
		return 0, err
	}
	if len(questions) == 0 {
		return 0, nil
	}

	now := time.Now()
	var totalMinutes float64
	for _, q := range questions {
		started := now
		if q.StartedAt != nil {
			started = *q.StartedAt
		}
		totalMinutes += started.Sub(q.CreatedAt).Minutes()
	}
	return int(math.Round(totalMinutes / float64(len(questions)))), nil
}
