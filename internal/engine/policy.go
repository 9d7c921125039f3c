package engine

import (
	"time"

	"github.com/shaiso/studyflow-scheduler/internal/domain"
)

// DefaultReviewInterval — интервал повторения по умолчанию.
const DefaultReviewInterval = 24 * time.Hour

// Policy вычисляет интервал повторения для completion-события.
//
// Сам алгоритм spaced-repetition — внешняя забота: planner может
// подставить политику, учитывающую историю пользователя. Планировщику
// важно только, что интервал неотрицателен.
type Policy interface {
	Interval(ev domain.CompletionEvent) time.Duration
}

// FixedInterval — простейшая политика: одинаковый интервал для всех.
type FixedInterval struct {
	D time.Duration
}

// Interval возвращает фиксированный интервал.
func (p FixedInterval) Interval(domain.CompletionEvent) time.Duration {
	return p.D
}
