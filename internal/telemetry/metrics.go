package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики планировщика. Регистрируются в default registry,
// экспортируются через promhttp.Handler() на /metrics.
var (
	// ItemsSeeded — количество созданных due items,
	// по источнику: "event" (completion-события) или "manual" (ручной seed).
	ItemsSeeded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studyflow_items_seeded_total",
		Help: "Due items created, by source (event or manual)",
	}, []string{"source"})

	// RemindersEmitted — количество опубликованных reminder-событий.
	RemindersEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studyflow_reminders_emitted_total",
		Help: "Reminder events published to reminder-events",
	})

	// ScansTotal — количество выполненных проходов scan.
	ScansTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studyflow_scans_total",
		Help: "Completed due-item scan passes",
	})

	// ScanDuration — длительность прохода scan.
	ScanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "studyflow_scan_duration_seconds",
		Help:    "Duration of a due-item scan pass",
		Buckets: prometheus.DefBuckets,
	})

	// MessagesDiscarded — сообщения, отброшенные consumer'ом,
	// по причине: "malformed" или "redelivery_exhausted".
	MessagesDiscarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studyflow_messages_discarded_total",
		Help: "Messages discarded by the consumer, by reason",
	}, []string{"reason"})

	// ItemsArchived — processed items, перенесённые в Postgres.
	ItemsArchived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studyflow_items_archived_total",
		Help: "Processed due items moved to the archive",
	})

	// StoreFallback — 1, если store работает на in-memory fallback.
	StoreFallback = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "studyflow_store_fallback",
		Help: "1 when the due-item store runs on the in-memory fallback",
	})
)
