package domain

import (
	"time"

	"github.com/google/uuid"
)

// DueItem — запланированное повторение учебного материала.
//
// Жизненный цикл:
//
//	SEEDED → DUE (время подошло) → PROCESSED
//
// Состояние DUE не хранится отдельно: item считается due, когда
// now >= DueAt и Processed == false. Переход в PROCESSED выполняет
// только Scan после публикации reminder-события.
type DueItem struct {
	// ID — уникальный идентификатор item.
	ID uuid.UUID `json:"id"`

	// SubjectID — идентификатор учебного материала (документа).
	// Для одного subject может существовать несколько items:
	// каждое completion-событие создаёт новый item, а не перезаписывает
	// существующий.
	SubjectID string `json:"subject_id"`

	// DueAt — время, когда материал нужно повторить.
	// Инвариант: DueAt >= CreatedAt.
	DueAt time.Time `json:"due_at"`

	// CreatedAt — время создания item.
	CreatedAt time.Time `json:"created_at"`

	// Processed — true после того, как reminder-событие опубликовано.
	// Processed item никогда не эмитится повторно.
	Processed bool `json:"processed"`

	// Seq — порядковый номер вставки, назначается store.
	// Используется для устойчивой сортировки items с одинаковым DueAt:
	// оба бэкенда (Redis и in-memory) возвращают их в порядке вставки.
	Seq uint64 `json:"seq"`
}

// NewDueItem создаёт item для subject с заданным временем повторения.
func NewDueItem(subjectID string, dueAt, createdAt time.Time) *DueItem {
	return &DueItem{
		ID:        uuid.New(),
		SubjectID: subjectID,
		DueAt:     dueAt.UTC(),
		CreatedAt: createdAt.UTC(),
	}
}

// IsDue возвращает true, если item готов к напоминанию.
func (i *DueItem) IsDue(now time.Time) bool {
	return !i.Processed && !i.DueAt.After(now)
}

// MarkProcessed переводит item в финальное состояние.
func (i *DueItem) MarkProcessed() {
	i.Processed = true
}
