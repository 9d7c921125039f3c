package mq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/studyflow-scheduler/internal/telemetry"
)

// Handler — функция обработки тела сообщения.
//
// Классификация возвращаемой ошибки:
//   - nil — сообщение подтверждается (ack)
//   - ErrMalformed (через errors.Is) — отброс без requeue: poison message
//   - любая другая ошибка — один bounded requeue; повторная неудача
//     отправляет сообщение в DLQ
type Handler func(ctx context.Context, body []byte) error

// Consumer потребляет сообщения из одной очереди RabbitMQ.
//
// Prefetch = 1: одно in-flight сообщение на очередь, порядок доставки
// совпадает с порядком публикации. Cancellation кооперативная —
// проверяется между сообщениями, in-flight handler дорабатывает.
type Consumer struct {
	conn    *Connection
	logger  *slog.Logger
	queue   Queue
	handler Handler

	// mu защищает cancelFunc: Start обычно живёт в своей goroutine,
	// Stop приходит из goroutine shutdown'а
	mu         sync.Mutex
	cancelFunc context.CancelFunc
	done       chan struct{}
}

// ConsumerConfig — конфигурация consumer.
type ConsumerConfig struct {
	// Queue — имя очереди.
	Queue Queue

	// Handler — обработчик сообщений.
	Handler Handler
}

// NewConsumer создаёт новый Consumer.
func NewConsumer(conn *Connection, logger *slog.Logger, cfg ConsumerConfig) *Consumer {
	return &Consumer{
		conn:    conn,
		logger:  telemetry.WithQueue(logger, string(cfg.Queue)),
		queue:   cfg.Queue,
		handler: cfg.Handler,
		done:    make(chan struct{}),
	}
}

// Start запускает потребление сообщений. Блокирует до отмены ctx.
func (c *Consumer) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancelFunc = cancel
	c.mu.Unlock()

	defer close(c.done)
	return c.consume(ctx)
}

// consume — основной цикл потребления.
func (c *Consumer) consume(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		deliveries, err := c.setupConsume()
		if err != nil {
			c.logger.Error("failed to setup consume", "error", err)
			// Ждём переподключения
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-c.conn.ReconnectNotify():
				c.logger.Info("reconnected, restarting consumer")
				continue
			}
		}

		c.logger.Info("consumer started")

		if err := c.processDeliveries(ctx, deliveries); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("deliveries channel closed, reconnecting")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-c.conn.ReconnectNotify():
				continue
			}
		}
	}
}

// setupConsume настраивает канал и начинает потребление.
func (c *Consumer) setupConsume() (<-chan amqp.Delivery, error) {
	ch := c.conn.Channel()
	if ch == nil {
		return nil, ErrNoChannel
	}

	// Одно in-flight сообщение: сохраняет порядок внутри очереди
	if err := ch.Qos(1, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.Consume(
		string(c.queue), // queue
		"",              // consumer tag (auto-generated)
		false,           // auto-ack (мы ack вручную)
		false,           // exclusive
		false,           // no-local
		false,           // no-wait
		nil,             // args
	)
	if err != nil {
		return nil, fmt.Errorf("consume: %w", err)
	}

	return deliveries, nil
}

// processDeliveries обрабатывает сообщения из канала.
func (c *Consumer) processDeliveries(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case raw, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("deliveries channel closed")
			}

			c.handleDelivery(ctx, raw)
		}
	}
}

// handleDelivery обрабатывает одно сообщение и классифицирует исход.
func (c *Consumer) handleDelivery(ctx context.Context, raw amqp.Delivery) {
	err := c.handler(ctx, raw.Body)
	if err == nil {
		raw.Ack(false)
		return
	}

	if errors.Is(err, ErrMalformed) {
		// Poison message: requeue зациклил бы его навсегда
		c.logger.Error("malformed message discarded",
			"error", err,
			"body", string(raw.Body),
		)
		telemetry.MessagesDiscarded.WithLabelValues("malformed").Inc()
		raw.Nack(false, false)
		return
	}

	if !raw.Redelivered {
		// Декодируемое сообщение, временная ошибка обработки —
		// один requeue
		c.logger.Warn("handler failed, requeueing",
			"error", err,
		)
		raw.Nack(false, true)
		return
	}

	// Redelivery исчерпан — в DLQ
	c.logger.Error("handler failed after redelivery, discarding",
		"error", err,
	)
	telemetry.MessagesDiscarded.WithLabelValues("redelivery_exhausted").Inc()
	raw.Nack(false, false)
}

// Stop останавливает consumer и дожидается завершения in-flight handler.
func (c *Consumer) Stop() {
	c.mu.Lock()
	cancel := c.cancelFunc
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-c.done
}
