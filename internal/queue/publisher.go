package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher pushes events to RabbitMQ. Publish failures are logged and
// returned so callers can ignore them; losing a nudge only delays a payout
// until the next sweep, it never loses money.
type Publisher struct {
	url string
	log *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewPublisher(url string, log *zap.Logger) *Publisher {
	return &Publisher{
		url: url,
		log: log.With(zap.String("queue", "publisher")),
	}
}

func (p *Publisher) channel() (*amqp.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil && !p.conn.IsClosed() {
		return p.ch, nil
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	// Durable so events survive broker restarts.
	if _, err := ch.QueueDeclare(PayoutScheduledQueue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", PayoutScheduledQueue, err)
	}

	p.conn = conn
	p.ch = ch
	return ch, nil
}

func (p *Publisher) PublishPayoutScheduled(ctx context.Context, event PayoutScheduledEvent) error {
	ch, err := p.channel()
	if err != nil {
		p.log.Warn("Failed to reach broker", zap.Error(err))
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal payout event: %w", err)
	}

	err = ch.PublishWithContext(ctx, "", PayoutScheduledQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		p.log.Warn("Failed to publish payout event",
			zap.Error(err),
			zap.String("payout_id", event.PayoutID.String()),
		)
		return fmt.Errorf("publish payout event: %w", err)
	}

	p.log.Info("Payout event published",
		zap.String("payout_id", event.PayoutID.String()),
		zap.String("reservation_id", event.ReservationID.String()),
	)

	return nil
}

func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil {
		p.ch.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}
