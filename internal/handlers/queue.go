package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"help_queue/internal/queue"
	"help_queue/internal/response"
	"help_queue/internal/storage"

	"github.com/gin-gonic/gin"
)

var ctx = context.Background()

// statsCacheTTL — время жизни кэша /api/stats. Клиенты опрашивают эндпоинт
// раз в несколько секунд, свежесть важнее экономии запросов.
const statsCacheTTL = 5 * time.Second

type QueueItem struct {
	ID             uint   `json:"id"`
	Name           string `json:"name"`
	Body           string `json:"question_body"`
	Status         string `json:"status"`
	HasResume      bool   `json:"has_resume"`
	ResumeOrigName string `json:"resume_orig_name,omitempty"`
	CreatedAt      string `json:"created_at"`
}

// GetQueueHandler возвращает активные вопросы текущей очереди
// @Summary		Активные вопросы
// @Description	Возвращает вопросы в статусах waiting и helping, старые первыми
// @Tags			queue
// @Produce		json
// @Success		200	{array}		QueueItem				"Список активных вопросов"
// @Failure		404	{object}	response.ErrorResponse	"Очередь не найдена (QUEUE_NOT_FOUND)"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (DB_ERROR)"
// @Router			/api/queue [get]
func GetQueueHandler(c *gin.Context) {
	q, err := queue.CurrentQueue()
	if err != nil {
		if errors.Is(err, queue.ErrQueueNotFound) {
			c.JSON(http.StatusNotFound, response.ErrorResponse{
				Code:    "QUEUE_NOT_FOUND",
				Message: "Очередь не найдена",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка загрузки очереди",
			Details: err.Error(),
		})
		return
	}

	questions, err := queue.ListActive(q.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка загрузки вопросов",
			Details: err.Error(),
		})
		return
	}

	items := make([]QueueItem, 0, len(questions))
	for _, question := range questions {
		item := QueueItem{
			ID:        question.ID,
			Name:      question.Name,
			Body:      question.Body,
			Status:    question.Status,
			HasResume: question.ResumeFilename != nil,
			CreatedAt: question.CreatedAt.Format(time.RFC3339),
		}
		if question.ResumeOrigName != nil {
			item.ResumeOrigName = *question.ResumeOrigName
		}
		items = append(items, item)
	}

	c.JSON(http.StatusOK, items)
}

type QueueInfo struct {
	ID     uint   `json:"id"`
	Course string `json:"course"`
	IsOpen bool   `json:"is_open"`
}

type StatsResponse struct {
	Queue          QueueInfo        `json:"queue"`
	Counts         map[string]int64 `json:"counts"`
	AvgWaitMinutes int              `json:"avg_wait_minutes"`
}

// GetStatsHandler возвращает сводку по текущей очереди
// @Summary		Статистика очереди
// @Description	Счётчики по статусам и оценка ожидания в минутах, кэшируется в Redis на несколько секунд
// @Tags			queue
// @Produce		json
// @Success		200	{object}	StatsResponse			"Сводка по очереди"
// @Failure		404	{object}	response.ErrorResponse	"Очередь не найдена (QUEUE_NOT_FOUND)"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (DB_ERROR)"
// @Router			/api/stats [get]
func GetStatsHandler(c *gin.Context) {
	// Проверка кэша
	cached, err := storage.RedisClient.Get(ctx, "queue_stats").Result()
	if err == nil && cached != "" {
		var stats StatsResponse
		if err := json.Unmarshal([]byte(cached), &stats); err == nil {
			c.JSON(http.StatusOK, stats)
			return
		}
	}

	q, err := queue.CurrentQueue()
	if err != nil {
		if errors.Is(err, queue.ErrQueueNotFound) {
			c.JSON(http.StatusNotFound, response.ErrorResponse{
				Code:    "QUEUE_NOT_FOUND",
				Message: "Очередь не найдена",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка загрузки очереди",
			Details: err.Error(),
		})
		return
	}

	counts, err := queue.Counts(q.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка подсчёта вопросов",
			Details: err.Error(),
		})
		return
	}

	avgWait, err := queue.EstimateWait(q.ID, queue.DefaultWindowHours)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка оценки времени ожидания",
			Details: err.Error(),
		})
		return
	}

	stats := StatsResponse{
		Queue:          QueueInfo{ID: q.ID, Course: q.Course, IsOpen: q.IsOpen},
		Counts:         counts,
		AvgWaitMinutes: avgWait,
	}

	// Кэширование результата; ошибки Redis не мешают ответу.
	if data, err := json.Marshal(stats); err == nil {
		storage.RedisClient.Set(ctx, "queue_stats", string(data), statsCacheTTL)
	}

	c.JSON(http.StatusOK, stats)
}

type ToggleResponse struct {
	ID     uint `json:"id"`
	IsOpen bool `json:"is_open"`
}

// ToggleQueueHandler открывает или закрывает текущую очередь
// @Summary		Переключение очереди
// @Description	Меняет флаг открытости текущей очереди на противоположный
// @Tags			queue
// @Produce		json
// @Security		BearerAuth
// @Success		200	{object}	ToggleResponse			"Новое состояние очереди"
// @Failure		403	{object}	response.ErrorResponse	"Доступ запрещён (FORBIDDEN)"
// @Failure		404	{object}	response.ErrorResponse	"Очередь не найдена (QUEUE_NOT_FOUND)"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (DB_ERROR)"
// @Router			/api/queue/toggle [post]
func ToggleQueueHandler(c *gin.Context) {
	q, err := queue.CurrentQueue()
	if err != nil {
		if errors.Is(err, queue.ErrQueueNotFound) {
			c.JSON(http.StatusNotFound, response.ErrorResponse{
				Code:    "QUEUE_NOT_FOUND",
				Message: "Очередь не найдена",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка загрузки очереди",
			Details: err.Error(),
		})
		return
	}

	isOpen, err := queue.ToggleOpen(q.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка переключения очереди",
			Details: err.Error(),
		})
		return
	}

	// Состояние очереди изменилось — сбрасываем кэш статистики.
	storage.RedisClient.Del(ctx, "queue_stats")

	c.JSON(http.StatusOK, ToggleResponse{ID: q.ID, IsOpen: isOpen})
}
