// StudyFlow Scheduler — планировщик повторений.
//
// Сервис:
//   - Потребляет completion-события из очереди completion-events
//   - Хранит due items в Redis sorted set (fallback: in-memory)
//   - Периодическим scan'ом публикует напоминания в reminder-events
//   - Отвечает на window-запросы через HTTP API
//
// Redis, RabbitMQ и Postgres опциональны: без Redis store работает
// на volatile in-memory fallback, без RabbitMQ сервис не потребляет
// и не эмитит события, без Postgres отключена ретенция.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/studyflow-scheduler/internal/api"
	"github.com/shaiso/studyflow-scheduler/internal/config"
	"github.com/shaiso/studyflow-scheduler/internal/engine"
	"github.com/shaiso/studyflow-scheduler/internal/mq"
	"github.com/shaiso/studyflow-scheduler/internal/query"
	"github.com/shaiso/studyflow-scheduler/internal/repo"
	"github.com/shaiso/studyflow-scheduler/internal/store"
	"github.com/shaiso/studyflow-scheduler/internal/telemetry"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting studyflow-scheduler")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := engine.ValidateScanCron(cfg.Scheduler.ScanCron); err != nil {
		logger.Error("invalid scan cron", "error", err)
		os.Exit(1)
	}

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Store: Redis primary + in-memory fallback.
	// Недоступный Redis не фатален — стартуем на fallback.
	var primary store.Store
	if rs, err := store.NewRedisStore(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); err != nil {
		logger.Warn("Redis not available, using in-memory storage", "error", err)
	} else {
		primary = rs
		logger.Info("Redis connected", "addr", cfg.Redis.Addr)
	}

	st := store.NewFailover(primary, store.NewMemoryStore(), logger)
	defer st.Close()

	// Архив processed items (опционально)
	var archive *repo.ArchiveRepo
	var archiver engine.Archiver
	if cfg.Postgres.Archive {
		pool, err := repo.NewPool(ctx, cfg.Postgres.DSN)
		if err != nil {
			logger.Warn("Postgres not available, retention disabled", "error", err)
		} else {
			defer pool.Close()

			archiveRepo := repo.NewArchiveRepo(pool)
			if err := archiveRepo.EnsureSchema(ctx); err != nil {
				logger.Warn("failed to ensure archive schema, retention disabled", "error", err)
			} else {
				archive = archiveRepo
				archiver = archiveRepo
				logger.Info("Postgres connected, retention enabled")
			}
		}
	}

	// RabbitMQ (опционально)
	var conn *mq.Connection
	var publisher engine.ReminderPublisher
	conn, err = mq.NewConnection(mq.ConnectionConfig{
		URL:        cfg.AMQP.URL,
		Tries:      cfg.AMQP.ConnectTries,
		RetryDelay: cfg.AMQP.RetryDelay(),
	}, logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, continuing without messaging", "error", err)
		conn = nil
	} else {
		defer conn.Close()

		if err := mq.SetupTopology(ctx, conn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}

		publisher = mq.NewPublisher(conn, logger)
	}

	// Engine
	eng := engine.New(engine.Config{
		Store:        st,
		Publisher:    publisher,
		Policy:       engine.FixedInterval{D: cfg.Scheduler.ReviewInterval()},
		Archiver:     archiver,
		Logger:       logger,
		ScanCron:     cfg.Scheduler.ScanCron,
		RetentionAge: cfg.Scheduler.RetentionAge(),
	})

	// Query service
	qs := query.New(query.Config{
		Store:   st,
		Horizon: cfg.Scheduler.Horizon(),
		Logger:  logger,
	})

	// Consumer completion-событий
	var consumer *mq.Consumer
	if conn != nil {
		consumer = mq.NewConsumer(conn, logger, mq.ConsumerConfig{
			Queue:   mq.QueueCompletionEvents,
			Handler: eng.HandleCompletion,
		})
		go func() {
			if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
				logger.Error("consumer stopped", "error", err)
			}
		}()
	}

	// Цикл сканирования
	scanCtx, scanCancel := context.WithCancel(ctx)
	scanDone := make(chan struct{})
	go func() {
		defer close(scanDone)
		if err := eng.Run(scanCtx); err != nil && scanCtx.Err() == nil {
			logger.Error("scan loop failed", "error", err)
			cancel()
		}
	}()

	// HTTP API
	handler := api.NewHandler(api.Config{
		Engine:  eng,
		Query:   qs,
		Store:   st,
		Archive: archive,
		Conn:    conn,
		Logger:  logger,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	handler.RegisterRoutes(mux)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.API.Port),
		Handler: mux,
	}

	go func() {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()
	logger.Info("shutting down")

	// Порядок важен: сначала останавливаем scan (in-flight проход
	// дорабатывает), затем дренируем consumer, затем HTTP; соединения
	// закрываются defer'ами после этого
	scanCancel()
	<-scanDone

	if consumer != nil {
		consumer.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown failed", "error", err)
	}

	logger.Info("studyflow-scheduler stopped")
}
