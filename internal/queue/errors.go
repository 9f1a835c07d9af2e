package queue

import "errors"

var (
	ErrQueueNotFound    = errors.New("очередь не найдена")
	ErrQueueClosed      = errors.New("очередь закрыта")
	ErrEmptyBody        = errors.New("текст вопроса не может быть пустым")
	ErrAttachmentPair   = errors.New("у вложения должны быть и серверное, и оригинальное имя")
	ErrQuestionNotFound = errors.New("вопрос не найден")
	ErrUnknownAction    = errors.New("неизвестное действие")
)
