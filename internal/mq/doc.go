// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением (bounded backoff, reconnect,
//     graceful shutdown)
//   - topology.go   — объявление exchange, queues, bindings
//   - publisher.go  — публикация сообщений
//   - consumer.go   — потребление сообщений (prefetch=1, poison-policy)
//
// Очереди:
//   - completion-events — входящие события завершения обработки материала
//   - reminder-events   — исходящие напоминания о повторении
//   - dlq.completion-events — отброшенные сообщения completion-events
//
// Гарантии: at-least-once доставка, порядок сохраняется внутри одной
// очереди (prefetch=1), между очередями порядок не гарантируется.
package mq
