package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shaiso/studyflow-scheduler/internal/domain"
)

// MemoryStore — fallback бэкенд: in-process список с линейным сканом.
//
// Поведенческое зеркало RedisStore: сравнение времени ведётся с той же
// миллисекундной точностью, что и score в sorted set, чтобы оба бэкенда
// возвращали идентичные результаты Range для одинаковых Insert.
// Содержимое теряется при рестарте процесса.
type MemoryStore struct {
	mu    sync.RWMutex
	items []*domain.DueItem
	seq   uint64
}

// NewMemoryStore создаёт пустой MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Insert добавляет item и назначает ему Seq.
func (s *MemoryStore) Insert(ctx context.Context, item *domain.DueItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	item.Seq = s.seq

	stored := *item
	s.items = append(s.items, &stored)
	return nil
}

// Range возвращает items с DueAt в [from, to], по возрастанию DueAt,
// равные DueAt — в порядке вставки.
func (s *MemoryStore) Range(ctx context.Context, from, to time.Time) ([]domain.DueItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	toMs := to.UnixMilli()
	var fromMs int64
	hasFrom := !from.IsZero()
	if hasFrom {
		fromMs = from.UnixMilli()
	}

	result := []domain.DueItem{}
	for _, item := range s.items {
		dueMs := item.DueAt.UnixMilli()
		if hasFrom && dueMs < fromMs {
			continue
		}
		if dueMs > toMs {
			continue
		}
		result = append(result, *item)
	}

	// Слайс уже в порядке вставки: stable sort по DueAt сохраняет
	// порядок вставки для равных значений
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].DueAt.UnixMilli() < result[j].DueAt.UnixMilli()
	})

	return result, nil
}

// MarkProcessed помечает item как processed.
func (s *MemoryStore) MarkProcessed(ctx context.Context, seq uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range s.items {
		if item.Seq == seq {
			item.Processed = true
			return nil
		}
	}
	return ErrNotFound
}

// PruneProcessed удаляет processed items с DueAt < before и возвращает их.
func (s *MemoryStore) PruneProcessed(ctx context.Context, before time.Time) ([]domain.DueItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	beforeMs := before.UnixMilli()

	var pruned []domain.DueItem
	kept := s.items[:0]
	for _, item := range s.items {
		if item.Processed && item.DueAt.UnixMilli() < beforeMs {
			pruned = append(pruned, *item)
			continue
		}
		kept = append(kept, item)
	}
	s.items = kept

	return pruned, nil
}

// Backend возвращает имя бэкенда.
func (s *MemoryStore) Backend() string {
	return "memory"
}

// Ping всегда успешен: бэкенд живёт в том же процессе.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close — no-op.
func (s *MemoryStore) Close() error {
	return nil
}
