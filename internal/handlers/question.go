package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"help_queue/internal/models"
	"help_queue/internal/queue"
	"help_queue/internal/response"
	"help_queue/internal/storage"
	"help_queue/internal/uploads"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type AskResponse struct {
	ID     uint   `json:"id"`
	Status string `json:"status"`
}

// AskHandler обрабатывает отправку нового вопроса
// @Summary		Отправка вопроса
// @Description	Создаёт вопрос в текущей очереди. Опционально принимает файл резюме (pdf, doc, docx)
// @Tags			questions
// @Accept			multipart/form-data
// @Produce		json
// @Param			name			formData	string	false	"Имя отправителя"
// @Param			question_body	formData	string	true	"Текст вопроса"
// @Param			resume			formData	file	false	"Файл резюме"
// @Success		201	{object}	AskResponse				"Вопрос создан"
// @Failure		400	{object}	response.ErrorResponse	"Очередь закрыта (QUEUE_CLOSED), пустой вопрос (VALIDATION_ERROR), недопустимый файл (UNSUPPORTED_EXTENSION, FILE_TOO_LARGE)"
// @Failure		404	{object}	response.ErrorResponse	"Очередь не найдена (QUEUE_NOT_FOUND)"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (UPLOAD_ERROR, DB_ERROR)"
// @Router			/api/ask [post]
func AskHandler(c *gin.Context) {
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

	name := c.PostForm("name")
	body := c.PostForm("question_body")

	// Сначала сохраняем вложение: при недопустимом файле запись в базе не появится.
	var att *queue.Attachment
	if fileHeader, err := c.FormFile("resume"); err == nil && fileHeader.Filename != "" {
		if fileHeader.Size > uploads.MaxFileSize {
			c.JSON(http.StatusBadRequest, response.ErrorResponse{
				Code:    "FILE_TOO_LARGE",
				Message: "Файл слишком большой (максимум 8 МБ)",
			})
			return
		}

		src, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusInternalServerError, response.ErrorResponse{
				Code:    "UPLOAD_ERROR",
				Message: "Ошибка чтения загружаемого файла",
				Details: err.Error(),
			})
			return
		}
		defer src.Close()

		storedName, err := uploads.Store(src, fileHeader.Filename)
		if err != nil {
			if errors.Is(err, uploads.ErrUnsupportedExtension) {
				c.JSON(http.StatusBadRequest, response.ErrorResponse{
					Code:    "UNSUPPORTED_EXTENSION",
					Message: "Недопустимый тип файла. Загрузите pdf, doc или docx",
				})
				return
			}
			c.JSON(http.StatusInternalServerError, response.ErrorResponse{
				Code:    "UPLOAD_ERROR",
				Message: "Ошибка сохранения файла",
				Details: err.Error(),
			})
			return
		}
		att = &queue.Attachment{Filename: storedName, OrigName: fileHeader.Filename}
	}

	question, err := queue.Submit(q.ID, name, body, att)
	if err != nil {
		// Запись не создана — убираем уже сохранённый файл, чтобы не копить сирот.
		if att != nil {
			uploads.Remove(att.Filename)
		}
		switch {
		case errors.Is(err, queue.ErrQueueClosed):
			c.JSON(http.StatusBadRequest, response.ErrorResponse{
				Code:    "QUEUE_CLOSED",
				Message: "Очередь закрыта",
			})
		case errors.Is(err, queue.ErrEmptyBody):
			c.JSON(http.StatusBadRequest, response.ErrorResponse{
				Code:    "VALIDATION_ERROR",
				Message: "Введите текст вопроса",
			})
		default:
			c.JSON(http.StatusInternalServerError, response.ErrorResponse{
				Code:    "DB_ERROR",
				Message: "Ошибка создания вопроса",
				Details: err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusCreated, AskResponse{ID: question.ID, Status: question.Status})
}

type TransitionResponse struct {
	ID     uint   `json:"id"`
	Status string `json:"status"`
}

func transitionHandler(c *gin.Context, action string) {
	questionID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "INVALID_QUESTION_ID",
			Message: "Неверный идентификатор вопроса",
		})
		return
	}

	status, err := queue.Transition(uint(questionID), action)
	if err != nil {
		if errors.Is(err, queue.ErrQuestionNotFound) {
			c.JSON(http.StatusNotFound, response.ErrorResponse{
				Code:    "QUESTION_NOT_FOUND",
				Message: "Вопрос не найден",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка смены статуса вопроса",
			Details: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, TransitionResponse{ID: uint(questionID), Status: status})
}

// StartQuestionHandler берёт вопрос в работу
// @Summary		Начать помощь
// @Description	Переводит вопрос из waiting в helping. Повторный вызов ничего не меняет и возвращает текущий статус
// @Tags			questions
// @Produce		json
// @Param			id	path		string	true	"ID вопроса"
// @Security		BearerAuth
// @Success		200	{object}	TransitionResponse		"Итоговый статус вопроса"
// @Failure		403	{object}	response.ErrorResponse	"Доступ запрещён (FORBIDDEN)"
// @Failure		404	{object}	response.ErrorResponse	"Вопрос не найден (QUESTION_NOT_FOUND)"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (DB_ERROR)"
// @Router			/api/questions/{id}/start [post]
func StartQuestionHandler(c *gin.Context) {
	transitionHandler(c, queue.ActionStart)
}

// DoneQuestionHandler завершает вопрос
// @Summary		Завершить вопрос
// @Description	Переводит вопрос из waiting или helping в done. Повторный вызов ничего не меняет и возвращает текущий статус
// @Tags			questions
// @Produce		json
// @Param			id	path		string	true	"ID вопроса"
// @Security		BearerAuth
// @Success		200	{object}	TransitionResponse		"Итоговый статус вопроса"
// @Failure		403	{object}	response.ErrorResponse	"Доступ запрещён (FORBIDDEN)"
// @Failure		404	{object}	response.ErrorResponse	"Вопрос не найден (QUESTION_NOT_FOUND)"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (DB_ERROR)"
// @Router			/api/questions/{id}/done [post]
func DoneQuestionHandler(c *gin.Context) {
	transitionHandler(c, queue.ActionFinish)
}

// CancelQuestionHandler отменяет вопрос
// @Summary		Отменить вопрос
// @Description	Переводит вопрос из waiting или helping в cancelled. Повторный вызов ничего не меняет и возвращает текущий статус
// @Tags			questions
// @Produce		json
// @Param			id	path		string	true	"ID вопроса"
// @Security		BearerAuth
// @Success		200	{object}	TransitionResponse		"Итоговый статус вопроса"
// @Failure		403	{object}	response.ErrorResponse	"Доступ запрещён (FORBIDDEN)"
// @Failure		404	{object}	response.ErrorResponse	"Вопрос не найден (QUESTION_NOT_FOUND)"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (DB_ERROR)"
// @Router			/api/questions/{id}/cancel [post]
func CancelQuestionHandler(c *gin.Context) {
	transitionHandler(c, queue.ActionCancel)
}

// DownloadResumeHandler отдаёт вложение вопроса
// @Summary		Скачивание резюме
// @Description	Отдаёт файл резюме вопроса под оригинальным именем
// @Tags			questions
// @Produce		octet-stream
// @Param			id	path		string	true	"ID вопроса"
// @Security		BearerAuth
// @Success		200	{file}		file					"Файл резюме"
// @Failure		403	{object}	response.ErrorResponse	"Доступ запрещён (FORBIDDEN)"
// @Failure		404	{object}	response.ErrorResponse	"Вопрос или файл не найден (QUESTION_NOT_FOUND, NO_RESUME)"
// @Router			/download/{id} [get]
func DownloadResumeHandler(c *gin.Context) {
	questionID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "INVALID_QUESTION_ID",
			Message: "Неверный идентификатор вопроса",
		})
		return
	}

	var question models.Question
	if err := storage.DB.First(&question, questionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, response.ErrorResponse{
				Code:    "QUESTION_NOT_FOUND",
				Message: "Вопрос не найден",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка загрузки вопроса",
			Details: err.Error(),
		})
		return
	}

	if question.ResumeFilename == nil {
		c.JSON(http.StatusNotFound, response.ErrorResponse{
			Code:    "NO_RESUME",
			Message: "К вопросу не приложено резюме",
		})
		return
	}

	downloadName := "resume"
	if question.ResumeOrigName != nil {
		downloadName = *question.ResumeOrigName
	}
	c.FileAttachment(uploads.Path(*question.ResumeFilename), downloadName)
}
