package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/studyflow-scheduler/internal/domain"
)

// Publisher публикует сообщения в RabbitMQ.
//
// Тела сообщений — плоский JSON без envelope: внешние consumers
// (notification-service и пайплайн обработки) ожидают именно такой формат.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Publish публикует JSON-тело в указанный exchange с routing key.
// Сообщение помечается persistent и переживает рестарт брокера.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    uuid.New().String(),
				Timestamp:    time.Now(),
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
		)

		return nil
	})
}

// PublishReminder публикует напоминание о повторении материала.
// Потребитель: notification-service (очередь reminder-events).
func (p *Publisher) PublishReminder(ctx context.Context, ev domain.ReminderEvent) error {
	return p.Publish(ctx, ExchangeReviews, RoutingKeyReminder, ev)
}

// PublishCompletion публикует completion-событие.
// Используется операторскими инструментами для прогона пайплайна.
func (p *Publisher) PublishCompletion(ctx context.Context, ev domain.CompletionEvent) error {
	return p.Publish(ctx, ExchangeReviews, RoutingKeyCompletion, ev)
}
