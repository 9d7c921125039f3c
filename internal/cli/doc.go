// Package cli реализует команды операторского CLI.
//
// Команды:
//   - seed   — ручная вставка due item
//   - window — запрос "что due в окне"
//   - status — состояние сервиса (бэкенд store, messaging)
//
// CLI — тонкий клиент HTTP API; бизнес-логики здесь нет.
package cli
