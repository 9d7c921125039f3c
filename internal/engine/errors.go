package engine

import "errors"

// Ошибки engine.
var (
	// ErrValidation — запрос не прошёл валидацию (например, ручной
	// seed без subjectId). Возвращается вызывающему, не ретраится.
	ErrValidation = errors.New("validation failed")

	// ErrProcessing — декодируемое сообщение не удалось обработать
	// (store недоступен и т.п.). Consumer делает bounded requeue.
	ErrProcessing = errors.New("processing failed")
)
