package store

import (
	"context"
	"errors"
	"time"

	"github.com/shaiso/studyflow-scheduler/internal/domain"
)

// Ошибки хранилища.
var (
	// ErrUnavailable — primary бэкенд недоступен.
	// Поглощается failover-обёрткой, наружу из пакета не выходит.
	ErrUnavailable = errors.New("store unavailable")

	// ErrNotFound — item с указанным seq не существует.
	ErrNotFound = errors.New("item not found")
)

// Store — хранилище due items.
//
// Все операции атомарны по отдельности и безопасны для конкурентного
// вызова. Последовательность read-then-mark внутри scan защищается
// выше, в engine (сериализация scan-проходов).
type Store interface {
	// Insert добавляет item и назначает ему Seq.
	// Дубликаты SubjectID допустимы: каждый вызов создаёт новый item.
	Insert(ctx context.Context, item *domain.DueItem) error

	// Range возвращает items с DueAt в [from, to] включительно,
	// по возрастанию DueAt; равные DueAt — в порядке вставки.
	// Нулевой from означает "с начала времён".
	Range(ctx context.Context, from, to time.Time) ([]domain.DueItem, error)

	// MarkProcessed переводит item в processed.
	// Безопасен конкурентно с Range.
	MarkProcessed(ctx context.Context, seq uint64) error

	// PruneProcessed удаляет processed items с DueAt < before
	// и возвращает их (для переноса в архив).
	PruneProcessed(ctx context.Context, before time.Time) ([]domain.DueItem, error)

	// Backend возвращает имя активного бэкенда: "redis" или "memory".
	Backend() string

	// Ping проверяет доступность бэкенда.
	Ping(ctx context.Context) error

	// Close освобождает соединения.
	Close() error
}
