package api

import (
	"log/slog"
	"time"

	"github.com/shaiso/studyflow-scheduler/internal/engine"
	"github.com/shaiso/studyflow-scheduler/internal/mq"
	"github.com/shaiso/studyflow-scheduler/internal/query"
	"github.com/shaiso/studyflow-scheduler/internal/repo"
	"github.com/shaiso/studyflow-scheduler/internal/store"
)

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	engine  *engine.Engine
	query   *query.Service
	store   store.Store
	archive *repo.ArchiveRepo // nil: ретенция отключена
	conn    *mq.Connection    // nil: сервис работает без messaging
	logger  *slog.Logger
	started time.Time
}

// Config — конфигурация для создания Handler.
type Config struct {
	Engine  *engine.Engine
	Query   *query.Service
	Store   store.Store
	Archive *repo.ArchiveRepo
	Conn    *mq.Connection
	Logger  *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		engine:  cfg.Engine,
		query:   cfg.Query,
		store:   cfg.Store,
		archive: cfg.Archive,
		conn:    cfg.Conn,
		logger:  cfg.Logger,
		started: time.Now(),
	}
}
