package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shaiso/studyflow-scheduler/internal/domain"
	"github.com/shaiso/studyflow-scheduler/internal/mq"
	"github.com/shaiso/studyflow-scheduler/internal/store"
)

var base = time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

// fakePublisher собирает опубликованные reminder-события.
type fakePublisher struct {
	mu     sync.Mutex
	events []domain.ReminderEvent
	err    error
	failN  int // количество первых вызовов, возвращающих err
}

func (p *fakePublisher) PublishReminder(ctx context.Context, ev domain.ReminderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failN > 0 {
		p.failN--
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *fakePublisher) published() []domain.ReminderEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.ReminderEvent(nil), p.events...)
}

// fakeArchiver собирает архивированные items.
type fakeArchiver struct {
	batches [][]domain.DueItem
	err     error
}

func (a *fakeArchiver) InsertBatch(ctx context.Context, items []domain.DueItem) error {
	if a.err != nil {
		return a.err
	}
	a.batches = append(a.batches, items)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	if cfg.Store == nil {
		cfg.Store = store.NewMemoryStore()
	}
	if cfg.Logger == nil {
		cfg.Logger = testLogger()
	}
	return New(cfg)
}

func TestOnCompletion_SchedulesAfterInterval(t *testing.T) {
	st := store.NewMemoryStore()
	e := newTestEngine(t, Config{
		Store:  st,
		Policy: FixedInterval{D: 24 * time.Hour},
	})

	ev := domain.CompletionEvent{
		SubjectID:  "doc-42",
		UserID:     "u-1",
		OccurredAt: base,
	}
	if err := e.OnCompletion(context.Background(), ev); err != nil {
		t.Fatalf("on completion: %v", err)
	}

	items, err := st.Range(context.Background(), time.Time{}, base.Add(48*time.Hour))
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}

	item := items[0]
	if item.SubjectID != "doc-42" {
		t.Errorf("subject: expected doc-42, got %s", item.SubjectID)
	}
	wantDue := base.Add(24 * time.Hour)
	if !item.DueAt.Equal(wantDue) {
		t.Errorf("dueAt: expected %v, got %v", wantDue, item.DueAt)
	}
	if !item.CreatedAt.Equal(base) {
		t.Errorf("createdAt: expected %v, got %v", base, item.CreatedAt)
	}
	if item.DueAt.Before(item.CreatedAt) {
		t.Error("dueAt must not precede createdAt")
	}
}

func TestOnCompletion_RepeatEventsAccumulate(t *testing.T) {
	st := store.NewMemoryStore()
	e := newTestEngine(t, Config{Store: st})

	ev := domain.CompletionEvent{SubjectID: "doc-42", UserID: "u-1", OccurredAt: base}
	for i := 0; i < 3; i++ {
		if err := e.OnCompletion(context.Background(), ev); err != nil {
			t.Fatalf("on completion %d: %v", i, err)
		}
	}

	items, _ := st.Range(context.Background(), time.Time{}, base.Add(48*time.Hour))
	if len(items) != 3 {
		t.Errorf("repeat events should accumulate items, got %d", len(items))
	}
}

func TestSeed_Validation(t *testing.T) {
	e := newTestEngine(t, Config{})

	_, err := e.Seed(context.Background(), "", nil)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for empty subject, got %v", err)
	}
}

func TestSeed_NilDueAtMeansNow(t *testing.T) {
	st := store.NewMemoryStore()
	e := newTestEngine(t, Config{Store: st})

	before := time.Now()
	item, err := e.Seed(context.Background(), "doc-1", nil)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	after := time.Now()

	if item.DueAt.Before(before.UTC().Truncate(time.Second)) || item.DueAt.After(after.UTC().Add(time.Second)) {
		t.Errorf("nil dueAt should mean now, got %v", item.DueAt)
	}
}

func TestSeed_PastDueAtKeepsInvariant(t *testing.T) {
	st := store.NewMemoryStore()
	e := newTestEngine(t, Config{Store: st})

	past := time.Now().Add(-48 * time.Hour)
	item, err := e.Seed(context.Background(), "doc-1", &past)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	if item.DueAt.Before(item.CreatedAt) {
		t.Errorf("dueAt %v precedes createdAt %v", item.DueAt, item.CreatedAt)
	}
}

func TestScan_EmitsAndMarksOnce(t *testing.T) {
	st := store.NewMemoryStore()
	pub := &fakePublisher{}
	e := newTestEngine(t, Config{Store: st, Publisher: pub})

	e.Seed(context.Background(), "doc-due", ptr(base.Add(-time.Hour)))
	e.Seed(context.Background(), "doc-future", ptr(base.Add(time.Hour)))

	now := base
	emitted, err := e.Scan(context.Background(), now)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if emitted != 1 {
		t.Fatalf("expected 1 reminder, got %d", emitted)
	}

	events := pub.published()
	if len(events) != 1 || events[0].SubjectID != "doc-due" {
		t.Fatalf("expected reminder for doc-due, got %v", events)
	}

	// Повторный scan не переэмитит processed item
	emitted, err = e.Scan(context.Background(), now)
	if err != nil {
		t.Fatalf("second scan: %v", err)
	}
	if emitted != 0 {
		t.Errorf("processed item re-emitted, got %d reminders", emitted)
	}
	if len(pub.published()) != 1 {
		t.Errorf("expected exactly 1 published event total, got %d", len(pub.published()))
	}
}

// gatePublisher держит publish открытым, пока тест не отпустит —
// позволяет запустить второй scan, пока первый ещё в полёте.
type gatePublisher struct {
	entered chan struct{}
	release chan struct{}

	mu     sync.Mutex
	events []domain.ReminderEvent
}

func (p *gatePublisher) PublishReminder(ctx context.Context, ev domain.ReminderEvent) error {
	close(p.entered)
	<-p.release

	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *gatePublisher) published() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func TestScan_ConcurrentPassSkipped(t *testing.T) {
	st := store.NewMemoryStore()
	pub := &gatePublisher{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	e := newTestEngine(t, Config{Store: st, Publisher: pub})

	e.Seed(context.Background(), "doc-1", ptr(base.Add(-time.Hour)))

	firstDone := make(chan int, 1)
	go func() {
		n, _ := e.Scan(context.Background(), base)
		firstDone <- n
	}()

	// Первый проход вошёл в publish и держит блокировку scan
	<-pub.entered

	// Перекрывающийся проход пропускается, а не ждёт в очереди
	emitted, err := e.Scan(context.Background(), base)
	if err != nil {
		t.Fatalf("overlapping scan: %v", err)
	}
	if emitted != 0 {
		t.Fatalf("overlapping scan must be skipped, emitted %d", emitted)
	}

	close(pub.release)

	if n := <-firstDone; n != 1 {
		t.Fatalf("first scan should emit exactly 1 reminder, got %d", n)
	}
	if pub.published() != 1 {
		t.Fatalf("concurrent scans must emit at most once, got %d", pub.published())
	}
}

func TestScan_BoundaryItemIsDue(t *testing.T) {
	st := store.NewMemoryStore()
	pub := &fakePublisher{}
	e := newTestEngine(t, Config{Store: st, Publisher: pub})

	// DueAt == now: item уже due
	e.Seed(context.Background(), "doc-1", ptr(base))

	emitted, err := e.Scan(context.Background(), base)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if emitted != 1 {
		t.Errorf("item due exactly at now should be emitted, got %d", emitted)
	}
}

func TestScan_PublishFailureKeepsItemPending(t *testing.T) {
	st := store.NewMemoryStore()
	pub := &fakePublisher{err: errors.New("broker gone"), failN: 1}
	e := newTestEngine(t, Config{Store: st, Publisher: pub})

	e.Seed(context.Background(), "doc-fail", ptr(base.Add(-2*time.Hour)))
	e.Seed(context.Background(), "doc-ok", ptr(base.Add(-time.Hour)))

	emitted, err := e.Scan(context.Background(), base)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	// Первый publish упал, второй прошёл: ошибка одного item
	// не прерывает проход
	if emitted != 1 {
		t.Fatalf("expected 1 reminder despite publish failure, got %d", emitted)
	}

	// Упавший item остаётся unprocessed и эмитится следующим проходом
	emitted, err = e.Scan(context.Background(), base)
	if err != nil {
		t.Fatalf("second scan: %v", err)
	}
	if emitted != 1 {
		t.Fatalf("failed item should be retried on next scan, got %d", emitted)
	}

	events := pub.published()
	if len(events) != 2 {
		t.Fatalf("expected 2 events total, got %d", len(events))
	}
}

func TestScan_NilPublisherLeavesItemsPending(t *testing.T) {
	st := store.NewMemoryStore()
	e := newTestEngine(t, Config{Store: st})

	e.Seed(context.Background(), "doc-1", ptr(base.Add(-time.Hour)))

	emitted, err := e.Scan(context.Background(), base)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if emitted != 0 {
		t.Errorf("no publisher, nothing should be emitted, got %d", emitted)
	}

	items, _ := st.Range(context.Background(), time.Time{}, base)
	if len(items) != 1 || items[0].Processed {
		t.Error("item should stay unprocessed until messaging returns")
	}
}

func TestScan_Retention(t *testing.T) {
	st := store.NewMemoryStore()
	pub := &fakePublisher{}
	arch := &fakeArchiver{}
	e := newTestEngine(t, Config{
		Store:        st,
		Publisher:    pub,
		Archiver:     arch,
		RetentionAge: 24 * time.Hour,
	})

	// Item, processed давно: кандидат на архивацию
	e.Seed(context.Background(), "doc-old", ptr(base.Add(-48*time.Hour)))
	e.Scan(context.Background(), base.Add(-47*time.Hour))

	// Scan сейчас: retention должна унести старый processed item
	if _, err := e.Scan(context.Background(), base); err != nil {
		t.Fatalf("scan: %v", err)
	}

	if len(arch.batches) != 1 || len(arch.batches[0]) != 1 {
		t.Fatalf("expected 1 archived item, got %v", arch.batches)
	}
	if arch.batches[0][0].SubjectID != "doc-old" {
		t.Errorf("expected doc-old archived, got %s", arch.batches[0][0].SubjectID)
	}

	items, _ := st.Range(context.Background(), time.Time{}, base)
	if len(items) != 0 {
		t.Errorf("archived item should be pruned from store, got %d items", len(items))
	}
}

// Item с dueAt ровно на границе retention архивируется и вычищается
// одним и тем же проходом, без лишнего прохода в store.
func TestScan_RetentionCutoffInclusive(t *testing.T) {
	st := store.NewMemoryStore()
	pub := &fakePublisher{}
	arch := &fakeArchiver{}
	e := newTestEngine(t, Config{
		Store:        st,
		Publisher:    pub,
		Archiver:     arch,
		RetentionAge: 24 * time.Hour,
	})

	// dueAt == cutoff при scan'е на base
	atCutoff := base.Add(-24 * time.Hour)
	e.Seed(context.Background(), "doc-edge", ptr(atCutoff))
	e.Scan(context.Background(), atCutoff)

	if _, err := e.Scan(context.Background(), base); err != nil {
		t.Fatalf("scan: %v", err)
	}

	if len(arch.batches) != 1 || len(arch.batches[0]) != 1 {
		t.Fatalf("expected boundary item archived, got %v", arch.batches)
	}

	items, _ := st.Range(context.Background(), time.Time{}, base)
	if len(items) != 0 {
		t.Errorf("archived boundary item should be pruned in the same pass, got %d items", len(items))
	}
}

func TestScan_RetentionArchiveFailureKeepsItems(t *testing.T) {
	st := store.NewMemoryStore()
	pub := &fakePublisher{}
	arch := &fakeArchiver{err: errors.New("postgres down")}
	e := newTestEngine(t, Config{
		Store:        st,
		Publisher:    pub,
		Archiver:     arch,
		RetentionAge: 24 * time.Hour,
	})

	e.Seed(context.Background(), "doc-old", ptr(base.Add(-48*time.Hour)))
	e.Scan(context.Background(), base.Add(-47*time.Hour))

	if _, err := e.Scan(context.Background(), base); err != nil {
		t.Fatalf("scan: %v", err)
	}

	// Архив упал — item остаётся в store до следующей попытки
	items, _ := st.Range(context.Background(), time.Time{}, base)
	if len(items) != 1 {
		t.Errorf("item must not be pruned when archive fails, got %d items", len(items))
	}
}

func TestHandleCompletion_Malformed(t *testing.T) {
	e := newTestEngine(t, Config{})

	cases := []struct {
		name string
		body string
	}{
		{"not json", "definitely not json"},
		{"missing subject", `{"userId":"u-1","occurredAt":"2025-01-15T10:00:00Z"}`},
		{"missing user", `{"subjectId":"doc-1","occurredAt":"2025-01-15T10:00:00Z"}`},
		{"missing timestamp", `{"subjectId":"doc-1","userId":"u-1"}`},
		{"empty object", `{}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := e.HandleCompletion(context.Background(), []byte(tc.body))
			if !errors.Is(err, mq.ErrMalformed) {
				t.Errorf("expected ErrMalformed, got %v", err)
			}
		})
	}
}

func TestHandleCompletion_ValidEvent(t *testing.T) {
	st := store.NewMemoryStore()
	e := newTestEngine(t, Config{Store: st})

	body := []byte(`{"subjectId":"doc-42","userId":"u-1","occurredAt":"2025-01-15T10:00:00Z"}`)
	if err := e.HandleCompletion(context.Background(), body); err != nil {
		t.Fatalf("handle completion: %v", err)
	}

	items, _ := st.Range(context.Background(), time.Time{}, base.Add(48*time.Hour))
	if len(items) != 1 || items[0].SubjectID != "doc-42" {
		t.Fatalf("expected seeded item for doc-42, got %v", items)
	}
}

func TestHandleCompletion_StoreErrorIsProcessing(t *testing.T) {
	e := newTestEngine(t, Config{Store: failingStore{}})

	body := []byte(`{"subjectId":"doc-42","userId":"u-1","occurredAt":"2025-01-15T10:00:00Z"}`)
	err := e.HandleCompletion(context.Background(), body)
	if !errors.Is(err, ErrProcessing) {
		t.Fatalf("expected ErrProcessing, got %v", err)
	}
	if errors.Is(err, mq.ErrMalformed) {
		t.Error("store error must not be classified as malformed")
	}
}

func TestValidateScanCron(t *testing.T) {
	if err := ValidateScanCron("* * * * *"); err != nil {
		t.Errorf("standard expression rejected: %v", err)
	}
	if err := ValidateScanCron("*/5 * * * *"); err != nil {
		t.Errorf("step expression rejected: %v", err)
	}
	if err := ValidateScanCron("not a cron"); err == nil {
		t.Error("garbage expression accepted")
	}
}

// failingStore — store, отказывающий на каждой операции.
type failingStore struct{}

func (failingStore) Insert(context.Context, *domain.DueItem) error { return errors.New("store down") }

func (failingStore) Range(context.Context, time.Time, time.Time) ([]domain.DueItem, error) {
	return nil, errors.New("store down")
}

func (failingStore) MarkProcessed(context.Context, uint64) error { return errors.New("store down") }

func (failingStore) PruneProcessed(context.Context, time.Time) ([]domain.DueItem, error) {
	return nil, errors.New("store down")
}

func (failingStore) Backend() string            { return "none" }
func (failingStore) Ping(context.Context) error { return errors.New("store down") }
func (failingStore) Close() error               { return nil }

func ptr(t time.Time) *time.Time { return &t }
