package mq

import "errors"

// Ошибки messaging-слоя.
var (
	// ErrConnection — брокер недоступен (после исчерпания retry).
	// Поглощается на границе: сервис продолжает работу без messaging.
	ErrConnection = errors.New("broker unavailable")

	// ErrMalformed — сообщение не декодируется.
	// Такое сообщение отбрасывается без requeue (poison message):
	// повторная доставка зациклила бы его навсегда.
	ErrMalformed = errors.New("malformed message")

	// ErrNoChannel — канал недоступен (соединение в процессе reconnect).
	ErrNoChannel = errors.New("no channel available")
)
