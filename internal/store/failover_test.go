package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shaiso/studyflow-scheduler/internal/domain"
)

// brokenStore — primary, отказывающий после заданного числа операций.
type brokenStore struct {
	inner     Store
	failAfter int
	calls     int
}

func (b *brokenStore) fail() error {
	b.calls++
	if b.calls > b.failAfter {
		return fmt.Errorf("%w: connection refused", ErrUnavailable)
	}
	return nil
}

func (b *brokenStore) Insert(ctx context.Context, item *domain.DueItem) error {
	if err := b.fail(); err != nil {
		return err
	}
	return b.inner.Insert(ctx, item)
}

func (b *brokenStore) Range(ctx context.Context, from, to time.Time) ([]domain.DueItem, error) {
	if err := b.fail(); err != nil {
		return nil, err
	}
	return b.inner.Range(ctx, from, to)
}

func (b *brokenStore) MarkProcessed(ctx context.Context, seq uint64) error {
	if err := b.fail(); err != nil {
		return err
	}
	return b.inner.MarkProcessed(ctx, seq)
}

func (b *brokenStore) PruneProcessed(ctx context.Context, before time.Time) ([]domain.DueItem, error) {
	if err := b.fail(); err != nil {
		return nil, err
	}
	return b.inner.PruneProcessed(ctx, before)
}

func (b *brokenStore) Backend() string { return "redis" }

func (b *brokenStore) Ping(ctx context.Context) error { return b.fail() }

func (b *brokenStore) Close() error { return nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFailover_UsesPrimaryWhileHealthy(t *testing.T) {
	primary := &brokenStore{inner: NewMemoryStore(), failAfter: 1 << 30}
	fallback := NewMemoryStore()
	f := NewFailover(primary, fallback, discardLogger())

	if f.Backend() != "redis" {
		t.Fatalf("expected primary backend, got %s", f.Backend())
	}

	insertItem(t, f, "doc-1", base)

	items, err := primary.inner.Range(context.Background(), base, base)
	if err != nil {
		t.Fatalf("range primary: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("item should land in primary, found %d", len(items))
	}

	items, _ = fallback.Range(context.Background(), base, base)
	if len(items) != 0 {
		t.Errorf("fallback should stay empty, found %d", len(items))
	}
}

func TestFailover_NilPrimaryStartsDegraded(t *testing.T) {
	fallback := NewMemoryStore()
	f := NewFailover(nil, fallback, discardLogger())

	if f.Backend() != "memory" {
		t.Errorf("expected memory backend, got %s", f.Backend())
	}

	insertItem(t, f, "doc-1", base)

	items, err := f.Range(context.Background(), base, base)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("expected 1 item from fallback, got %d", len(items))
	}
}

// Отказ primary посреди работы: операция не возвращает ошибку,
// а прозрачно выполняется на fallback.
func TestFailover_DegradesOnPrimaryError(t *testing.T) {
	primary := &brokenStore{inner: NewMemoryStore(), failAfter: 1}
	fallback := NewMemoryStore()
	f := NewFailover(primary, fallback, discardLogger())

	// Первая операция проходит в primary
	insertItem(t, f, "doc-1", base)

	// Вторая упирается в отказ и уходит в fallback без ошибки наружу
	insertItem(t, f, "doc-2", base.Add(time.Hour))

	if f.Backend() != "memory" {
		t.Errorf("backend should report memory after degradation, got %s", f.Backend())
	}

	items, err := f.Range(context.Background(), time.Time{}, base.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	// doc-1 остался в недоступном primary: после деградации виден
	// только fallback
	if len(items) != 1 || items[0].SubjectID != "doc-2" {
		t.Fatalf("expected only doc-2 from fallback, got %v", items)
	}
}

func TestFailover_DegradationIsOneWay(t *testing.T) {
	// failAfter: 1 — первая операция проходит, вторая отказывает,
	// дальше primary "восстанавливается", но возврата быть не должно
	primary := &brokenStore{inner: NewMemoryStore(), failAfter: 1}
	fallback := NewMemoryStore()
	f := NewFailover(primary, fallback, discardLogger())

	insertItem(t, f, "doc-1", base)
	insertItem(t, f, "doc-2", base) // деградация

	primary.failAfter = 1 << 30 // primary снова здоров

	insertItem(t, f, "doc-3", base)

	if f.Backend() != "memory" {
		t.Error("degradation should be one-way for the process lifetime")
	}
	items, _ := fallback.Range(context.Background(), base, base)
	if len(items) != 2 {
		t.Errorf("expected doc-2 and doc-3 in fallback, got %d items", len(items))
	}
}

// Оборванный клиентский запрос отменяет контекст операции. Это ошибка
// со стороны вызывающего, не отказ Redis: здоровый primary не должен
// деградировать, а persisted items — пропадать из выдачи.
func TestFailover_CallerCancellationDoesNotDegrade(t *testing.T) {
	primary := newTestRedis(t)
	f := NewFailover(primary, NewMemoryStore(), discardLogger())

	insertItem(t, f, "doc-1", base)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := f.Range(cancelled, base, base); err == nil {
		t.Fatal("range with cancelled context should return an error")
	}

	if f.Backend() != "redis" {
		t.Fatalf("caller cancellation must not degrade, backend %s", f.Backend())
	}

	// Следующий запрос с живым контекстом видит persisted item
	items, err := f.Range(context.Background(), base, base)
	if err != nil {
		t.Fatalf("range after cancelled request: %v", err)
	}
	if len(items) != 1 || items[0].SubjectID != "doc-1" {
		t.Fatalf("persisted item must stay visible, got %v", items)
	}

	// Запись с отменённым контекстом тоже не деградирует
	item := domain.NewDueItem("doc-2", base, base)
	if err := f.Insert(cancelled, item); err == nil {
		t.Fatal("insert with cancelled context should return an error")
	}
	if f.Backend() != "redis" {
		t.Error("insert cancellation must not degrade either")
	}
}

func TestFailover_MarkProcessedNotFoundPassesThrough(t *testing.T) {
	primary := &brokenStore{inner: NewMemoryStore(), failAfter: 1 << 30}
	f := NewFailover(primary, NewMemoryStore(), discardLogger())

	// ErrNotFound — ответ primary, не его отказ: деградации нет
	err := f.MarkProcessed(context.Background(), 999)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if f.Backend() != "redis" {
		t.Error("ErrNotFound must not trigger degradation")
	}
}

func TestFailover_PingAbsorbsPrimaryFailure(t *testing.T) {
	primary := &brokenStore{inner: NewMemoryStore(), failAfter: 0}
	f := NewFailover(primary, NewMemoryStore(), discardLogger())

	if err := f.Ping(context.Background()); err != nil {
		t.Fatalf("ping should succeed via fallback, got %v", err)
	}
	if f.Backend() != "memory" {
		t.Error("failed ping should degrade to fallback")
	}
}
