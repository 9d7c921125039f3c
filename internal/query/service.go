package query

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/studyflow-scheduler/internal/domain"
	"github.com/shaiso/studyflow-scheduler/internal/store"
)

// DefaultHorizon — горизонт window-запроса по умолчанию.
const DefaultHorizon = 24 * time.Hour

// Service отвечает на window-запросы по due items.
type Service struct {
	store   store.Store
	horizon time.Duration
	logger  *slog.Logger
}

// Config — конфигурация Service.
type Config struct {
	Store store.Store

	// Horizon — горизонт по умолчанию (default: 24h).
	Horizon time.Duration

	Logger *slog.Logger
}

// New создаёт новый Service.
func New(cfg Config) *Service {
	horizon := cfg.Horizon
	if horizon <= 0 {
		horizon = DefaultHorizon
	}

	return &Service{
		store:   cfg.Store,
		horizon: horizon,
		logger:  cfg.Logger,
	}
}

// Window возвращает items с DueAt в [now, now+horizon], по возрастанию
// DueAt. Пустое окно — пустой слайс, не ошибка. Неположительный horizon
// заменяется дефолтным.
func (s *Service) Window(ctx context.Context, now time.Time, horizon time.Duration) ([]domain.DueItem, error) {
	if horizon <= 0 {
		horizon = s.horizon
	}

	items, err := s.store.Range(ctx, now, now.Add(horizon))
	if err != nil {
		return nil, fmt.Errorf("window query: %w", err)
	}

	s.logger.Debug("window query",
		"now", now,
		"horizon", horizon,
		"count", len(items),
	)

	return items, nil
}
