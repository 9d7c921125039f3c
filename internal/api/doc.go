// Package api реализует HTTP API планировщика.
//
// Endpoints:
//   - GET  /api/v1/schedule/today  — что due в ближайшие 24 часа
//   - GET  /api/v1/schedule/window — произвольное окно (now, horizon)
//   - POST /api/v1/seed            — ручной seed (операторский)
//   - GET  /api/v1/history/{id}    — архив повторений subject (при
//     включённой ретенции)
//   - GET  /api/v1/status          — бэкенд store, messaging, uptime
//
// Формат ответов: {"data": ...} при успехе,
// {"error": {"code", "message"}} при ошибке.
package api
