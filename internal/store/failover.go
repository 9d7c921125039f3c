package store

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/shaiso/studyflow-scheduler/internal/domain"
	"github.com/shaiso/studyflow-scheduler/internal/telemetry"
)

// Failover — Store, прозрачно переключающийся с primary на fallback.
//
// Отказ primary деградирует store: логируется warning, гаснет
// метрика, все последующие операции идут в fallback. Наружу ошибка не
// поднимается — вызывающий код не видит разницы между бэкендами.
// Деградация односторонняя на время жизни процесса: после переключения
// primary и fallback содержат разные данные, и возврат стёр бы items,
// вставленные в fallback.
//
// Отмена контекста вызывающего отказом primary не считается: HTTP-клиент,
// оборвавший запрос, не повод переключать здоровый Redis на пустой
// fallback. Такая ошибка возвращается как есть, флаг деградации не
// трогается.
type Failover struct {
	primary  Store
	fallback Store
	logger   *slog.Logger
	degraded atomic.Bool
}

// NewFailover создаёт failover-обёртку. Nil primary (недоступен при
// старте) сразу включает fallback — как и исходный сервис, который при
// неудачном подключении к Redis работает на in-memory с самого начала.
func NewFailover(primary, fallback Store, logger *slog.Logger) *Failover {
	f := &Failover{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}

	if primary == nil {
		f.degraded.Store(true)
		telemetry.StoreFallback.Set(1)
		logger.Warn("primary store unavailable at startup, using in-memory fallback")
	} else {
		telemetry.StoreFallback.Set(0)
	}

	return f
}

// degrade фиксирует отказ primary и переключает на fallback.
func (f *Failover) degrade(op string, err error) {
	if f.degraded.CompareAndSwap(false, true) {
		telemetry.StoreFallback.Set(1)
		f.logger.Warn("primary store failed, degrading to in-memory fallback",
			"op", op,
			"error", err,
		)
	}
}

// primaryFailure классифицирует ошибку primary. Если контекст
// вызывающего уже отменён, ошибка пришла со стороны вызывающего,
// а не из бэкенда — деградации нет, операция не повторяется.
// Возвращает true, когда store деградировал и операцию нужно
// выполнить на fallback.
func (f *Failover) primaryFailure(ctx context.Context, op string, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	f.degrade(op, err)
	return true
}

// active возвращает текущий бэкенд.
func (f *Failover) active() Store {
	if f.degraded.Load() {
		return f.fallback
	}
	return f.primary
}

// Insert добавляет item в активный бэкенд.
func (f *Failover) Insert(ctx context.Context, item *domain.DueItem) error {
	if !f.degraded.Load() {
		err := f.primary.Insert(ctx, item)
		if err == nil {
			return nil
		}
		if !f.primaryFailure(ctx, "insert", err) {
			return err
		}
	}
	return f.fallback.Insert(ctx, item)
}

// Range запрашивает активный бэкенд.
func (f *Failover) Range(ctx context.Context, from, to time.Time) ([]domain.DueItem, error) {
	if !f.degraded.Load() {
		items, err := f.primary.Range(ctx, from, to)
		if err == nil {
			return items, nil
		}
		if !f.primaryFailure(ctx, "range", err) {
			return nil, err
		}
	}
	return f.fallback.Range(ctx, from, to)
}

// MarkProcessed помечает item в активном бэкенде.
func (f *Failover) MarkProcessed(ctx context.Context, seq uint64) error {
	if !f.degraded.Load() {
		err := f.primary.MarkProcessed(ctx, seq)
		if err == nil || errors.Is(err, ErrNotFound) {
			return err
		}
		if !f.primaryFailure(ctx, "mark_processed", err) {
			return err
		}
	}
	return f.fallback.MarkProcessed(ctx, seq)
}

// PruneProcessed вычищает активный бэкенд.
func (f *Failover) PruneProcessed(ctx context.Context, before time.Time) ([]domain.DueItem, error) {
	if !f.degraded.Load() {
		items, err := f.primary.PruneProcessed(ctx, before)
		if err == nil {
			return items, nil
		}
		if !f.primaryFailure(ctx, "prune", err) {
			return nil, err
		}
	}
	return f.fallback.PruneProcessed(ctx, before)
}

// Backend возвращает имя активного бэкенда — сигнал degraded-режима
// для health-check.
func (f *Failover) Backend() string {
	return f.active().Backend()
}

// Ping проверяет активный бэкенд. Отказ primary поглощается:
// store остаётся доступным на fallback.
func (f *Failover) Ping(ctx context.Context) error {
	if !f.degraded.Load() {
		err := f.primary.Ping(ctx)
		if err == nil {
			return nil
		}
		if !f.primaryFailure(ctx, "ping", err) {
			return err
		}
		return nil
	}
	return f.fallback.Ping(ctx)
}

// Close закрывает оба бэкенда.
func (f *Failover) Close() error {
	var err error
	if f.primary != nil {
		err = f.primary.Close()
	}
	if cerr := f.fallback.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
