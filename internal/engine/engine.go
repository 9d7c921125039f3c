package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/shaiso/studyflow-scheduler/internal/domain"
	"github.com/shaiso/studyflow-scheduler/internal/store"
	"github.com/shaiso/studyflow-scheduler/internal/telemetry"
)

// ReminderPublisher публикует reminder-события.
// Интерфейс позволяет подставить фейк в тестах вместо RabbitMQ.
type ReminderPublisher interface {
	PublishReminder(ctx context.Context, ev domain.ReminderEvent) error
}

// Archiver принимает processed items, вычищенные из store.
type Archiver interface {
	InsertBatch(ctx context.Context, items []domain.DueItem) error
}

// Engine — движок планировщика: превращает completion-события в due
// items и периодическим scan'ом эмитит напоминания по истёкшим.
//
// Единственное разделяемое состояние — store; OnCompletion безопасен
// для конкурентных вызовов.
type Engine struct {
	store        store.Store
	publisher    ReminderPublisher
	policy       Policy
	archiver     Archiver
	retentionAge time.Duration
	scanCron     string
	logger       *slog.Logger

	// scanMu сериализует scan-проходы
	scanMu sync.Mutex
}

// Config — конфигурация Engine.
type Config struct {
	Store     store.Store
	Publisher ReminderPublisher // nil: scan копит items без emit
	Policy    Policy            // default: FixedInterval 24h
	Archiver  Archiver          // nil: retention отключена
	Logger    *slog.Logger

	// ScanCron — cron-выражение цикла сканирования (default: "* * * * *").
	ScanCron string

	// RetentionAge — возраст processed items для архивации (default: 168h).
	RetentionAge time.Duration
}

// New создаёт новый Engine.
func New(cfg Config) *Engine {
	policy := cfg.Policy
	if policy == nil {
		policy = FixedInterval{D: DefaultReviewInterval}
	}

	scanCron := cfg.ScanCron
	if scanCron == "" {
		scanCron = "* * * * *"
	}

	retentionAge := cfg.RetentionAge
	if retentionAge <= 0 {
		retentionAge = 7 * 24 * time.Hour
	}

	return &Engine{
		store:        cfg.Store,
		publisher:    cfg.Publisher,
		policy:       policy,
		archiver:     cfg.Archiver,
		retentionAge: retentionAge,
		scanCron:     scanCron,
		logger:       cfg.Logger,
	}
}

// OnCompletion обрабатывает completion-событие: вычисляет время
// повторения и вставляет новый item.
//
// Планировщик аддитивен: повторное событие для того же subject создаёт
// ещё один item, а не перезаписывает существующий.
func (e *Engine) OnCompletion(ctx context.Context, ev domain.CompletionEvent) error {
	dueAt := ev.OccurredAt.Add(e.policy.Interval(ev))

	// createdAt = occurredAt: интервал неотрицателен, значит
	// dueAt >= createdAt выполняется для любого возраста события
	item := domain.NewDueItem(ev.SubjectID, dueAt, ev.OccurredAt)

	if err := e.store.Insert(ctx, item); err != nil {
		return fmt.Errorf("insert due item: %w", err)
	}

	telemetry.ItemsSeeded.WithLabelValues("event").Inc()
	telemetry.WithSubjectID(e.logger, ev.SubjectID).Info("seeded due item",
		"user_id", ev.UserID,
		"due_at", item.DueAt,
	)

	return nil
}

// Seed — ручная точка входа (операторские инструменты, smoke-тесты).
// Nil dueAt означает "прямо сейчас".
func (e *Engine) Seed(ctx context.Context, subjectID string, dueAt *time.Time) (*domain.DueItem, error) {
	if subjectID == "" {
		return nil, fmt.Errorf("%w: subjectId is required", ErrValidation)
	}

	now := time.Now()
	due := now
	if dueAt != nil && !dueAt.IsZero() {
		due = *dueAt
	}

	// Ручной seed может указать прошедший dueAt — createdAt
	// подтягивается к нему, чтобы сохранить dueAt >= createdAt
	created := now
	if due.Before(created) {
		created = due
	}

	item := domain.NewDueItem(subjectID, due, created)
	if err := e.store.Insert(ctx, item); err != nil {
		return nil, fmt.Errorf("insert due item: %w", err)
	}

	telemetry.ItemsSeeded.WithLabelValues("manual").Inc()
	telemetry.WithSubjectID(e.logger, subjectID).Info("manually seeded due item",
		"due_at", item.DueAt,
	)

	return item, nil
}

// Scan выполняет один проход: находит items с истёкшим DueAt,
// публикует напоминание и помечает item processed — в этом порядке.
// При падении между publish и mark item будет переэмичен следующим
// проходом: доставка напоминаний at-least-once.
//
// Проходы сериализованы: если предыдущий ещё идёт, новый пропускается.
// Ошибка одного item не прерывает обработку остальных.
//
// Возвращает количество эмитнутых напоминаний.
func (e *Engine) Scan(ctx context.Context, now time.Time) (int, error) {
	if !e.scanMu.TryLock() {
		e.logger.Debug("scan already in progress, skipping tick")
		return 0, nil
	}
	defer e.scanMu.Unlock()

	timer := prometheus.NewTimer(telemetry.ScanDuration)
	defer timer.ObserveDuration()

	items, err := e.store.Range(ctx, time.Time{}, now)
	if err != nil {
		return 0, fmt.Errorf("range due items: %w", err)
	}

	var emitted int
	for i := range items {
		item := &items[i]
		if item.Processed {
			continue
		}

		if e.publisher == nil {
			// Messaging недоступен: items остаются unprocessed
			// и будут эмитнуты, когда соединение вернётся
			e.logger.Debug("no publisher, leaving due items unprocessed",
				"pending", len(items)-i,
			)
			break
		}

		ev := domain.ReminderEvent{
			SubjectID: item.SubjectID,
			DueAt:     item.DueAt,
		}
		if err := e.publisher.PublishReminder(ctx, ev); err != nil {
			e.logger.Error("failed to publish reminder",
				"subject_id", item.SubjectID,
				"error", err,
			)
			// Item остаётся unprocessed — переэмитится следующим scan
			continue
		}

		if err := e.store.MarkProcessed(ctx, item.Seq); err != nil {
			e.logger.Error("failed to mark item processed",
				"subject_id", item.SubjectID,
				"seq", item.Seq,
				"error", err,
			)
			continue
		}

		emitted++
		telemetry.RemindersEmitted.Inc()
	}

	telemetry.ScansTotal.Inc()
	if emitted > 0 {
		e.logger.Info("scan completed",
			"due", len(items),
			"emitted", emitted,
		)
	}

	e.runRetention(ctx, now)

	return emitted, nil
}

// runRetention переносит старые processed items в архив.
// Порядок: сначала копия в архив, затем prune из store — при падении
// между шагами повторная архивация идемпотентна (ON CONFLICT DO NOTHING),
// а items не теряются. Отказ архива не фейлит scan.
func (e *Engine) runRetention(ctx context.Context, now time.Time) {
	if e.archiver == nil {
		return
	}

	cutoff := now.Add(-e.retentionAge)

	candidates, err := e.store.Range(ctx, time.Time{}, cutoff)
	if err != nil {
		e.logger.Warn("retention: range failed", "error", err)
		return
	}

	var processed []domain.DueItem
	for _, item := range candidates {
		if item.Processed {
			processed = append(processed, item)
		}
	}
	if len(processed) == 0 {
		return
	}

	if err := e.archiver.InsertBatch(ctx, processed); err != nil {
		e.logger.Warn("retention: archive failed, keeping items in store",
			"count", len(processed),
			"error", err,
		)
		return
	}

	// Range выше включает cutoff, а PruneProcessed отрезает строго до
	// границы: +1ms делает её включительной и для prune, чтобы item с
	// dueAt ровно на cutoff не оставался в store лишний проход
	if _, err := e.store.PruneProcessed(ctx, cutoff.Add(time.Millisecond)); err != nil {
		e.logger.Warn("retention: prune failed", "error", err)
		return
	}

	telemetry.ItemsArchived.Add(float64(len(processed)))
	e.logger.Info("archived processed items", "count", len(processed))
}
