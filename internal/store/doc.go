// Package store реализует хранилище due items.
//
// Структура:
//   - store.go    — интерфейс Store и общие ошибки
//   - redis.go    — primary бэкенд: Redis sorted set (score = due_at)
//   - memory.go   — fallback бэкенд: in-process список, volatile
//   - failover.go — прозрачное переключение primary → fallback
//
// Оба бэкенда дают побитово одинаковые результаты Range для одной и
// той же последовательности Insert: fallback — не урезанный режим,
// а поведенческое зеркало primary. Содержимое fallback теряется при
// рестарте процесса; текущий бэкенд виден через Backend() и метрику
// studyflow_store_fallback.
package store
