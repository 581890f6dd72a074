package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Handler processes one payout event. A returned error rejects the message
// without requeue; the periodic sweep picks the payout up later.
type Handler func(ctx context.Context, event PayoutScheduledEvent) error

// Consumer listens on the payout.scheduled queue and hands each event to the
// handler. It reconnects with backoff until the context is cancelled.
type Consumer struct {
	url     string
	handler Handler
	log     *zap.Logger
}

func NewConsumer(url string, handler Handler, log *zap.Logger) *Consumer {
	return &Consumer{
		url:     url,
		handler: handler,
		log:     log.With(zap.String("queue", "consumer")),
	}
}

func (c *Consumer) Run(ctx context.Context) {
	backoff := time.Second
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn("Failed to dial broker, retrying",
				zap.Error(err),
				zap.Duration("backoff", backoff),
			)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if err := c.consumeLoop(ctx, conn); err != nil {
			c.log.Warn("Consume loop ended, reconnecting", zap.Error(err))
		}
		conn.Close()

		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.Qos(10, 0, false); err != nil {
		c.log.Warn("Failed to set QoS", zap.Error(err))
	}

	if _, err := ch.QueueDeclare(PayoutScheduledQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", PayoutScheduledQueue, err)
	}

	deliveries, err := ch.Consume(PayoutScheduledQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume queue %s: %w", PayoutScheduledQueue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("deliveries channel closed")
			}

			var event PayoutScheduledEvent
			if err := json.Unmarshal(d.Body, &event); err != nil {
				c.log.Error("Failed to decode payout event", zap.Error(err))
				d.Nack(false, false)
				continue
			}

			if err := c.handler(ctx, event); err != nil {
				c.log.Error("Failed to handle payout event",
					zap.Error(err),
					zap.String("payout_id", event.PayoutID.String()),
				)
				d.Nack(false, false)
				continue
			}

			d.Ack(false)
		}
	}
}
