// Package telemetry обеспечивает наблюдаемость планировщика.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — Prometheus метрики
//
// Единый формат логирования для всех компонентов; метрики
// экспортируются на /metrics endpoint сервиса.
package telemetry
