package domain

import "time"

// CompletionEvent — событие завершения обработки материала выше по
// пайплайну. Приходит из очереди completion-events.
//
// Формат на проводе — плоский JSON:
//
//	{"subjectId": "doc-42", "userId": "u-1", "occurredAt": "2025-01-15T10:00:00Z"}
type CompletionEvent struct {
	// SubjectID — материал, обработка которого завершена.
	SubjectID string `json:"subjectId"`

	// UserID — пользователь, для которого обрабатывался материал.
	UserID string `json:"userId"`

	// OccurredAt — когда завершилась обработка.
	// От этого времени отсчитывается интервал повторения.
	OccurredAt time.Time `json:"occurredAt"`
}

// Valid возвращает true, если событие содержит все обязательные поля.
func (e *CompletionEvent) Valid() bool {
	return e.SubjectID != "" && e.UserID != "" && !e.OccurredAt.IsZero()
}

// ReminderEvent — событие "пора повторить материал".
// Публикуется в очередь reminder-events, ровно один раз на переход
// item в processed. Потребители должны быть готовы к повторной
// доставке: при падении между publish и mark item будет переэмичен.
type ReminderEvent struct {
	// SubjectID — материал, который пора повторить.
	SubjectID string `json:"subjectId"`

	// DueAt — время, на которое было запланировано повторение.
	DueAt time.Time `json:"dueAt"`
}
