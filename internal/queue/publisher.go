package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher delivers domain events to a topic exchange. It is best-effort
// infrastructure: a nil *Publisher is valid and drops events, and callers are
// expected to log rather than fail their request when Publish errors. The
// ledger and check-in invariants never depend on the broker.
type Publisher struct {
	url      string
	exchange string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher creates a publisher for the given broker URL and exchange.
// The connection is established lazily on first publish, so a broker that is
// down at startup does not block the service.
func NewPublisher(url, exchange string) *Publisher {
	if url == "" {
		return nil
	}
	return &Publisher{url: url, exchange: exchange}
}

// Publish marshals the event and sends it with the given routing key.
// Messages are persistent and carry a unique message ID.
func (p *Publisher) Publish(ctx context.Context, routingKey string, event interface{}) error {
	if p == nil {
		return nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", routingKey, err)
	}

	ch, err := p.channel()
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	err = ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, pub)
	if err != nil {
		// Drop the cached channel so the next publish redials
		p.reset()
		return fmt.Errorf("failed to publish %s: %w", routingKey, err)
	}

	return nil
}

// channel returns the cached channel, dialing and declaring the exchange if needed
func (p *Publisher) channel() (*amqp.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", p.exchange, err)
	}

	p.conn = conn
	p.ch = ch
	return ch, nil
}

func (p *Publisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Close releases the broker connection
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	p.reset()
}

// LogPublishError is the standard treatment for publish failures in request
// paths: record and move on.
func LogPublishError(routingKey string, err error) {
	if err != nil {
		log.Printf("queue: publish %s failed: %v", routingKey, err)
	}
}
