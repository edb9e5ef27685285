package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"wallet-ledger-go/internal/models"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const dialTimeout = 10 * time.Second

// Sink receives every relayed outbox event. Delivery is at least once, so
// a sink must tolerate seeing the same event again.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, event models.TransactionEvent) error
}

// Publisher sends transaction events to a durable topic exchange. The
// settlement worker binds its queues on transaction.<type>.<status>.
type Publisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

// FallbackPublisher drops events with a warning. It stands in when no
// broker is configured so local runs still drain the outbox.
type FallbackPublisher struct{}

func (FallbackPublisher) Name() string { return "amqp" }

func (FallbackPublisher) Deliver(_ context.Context, event models.TransactionEvent) error {
	zap.L().Warn("Broker not configured, event publish skipped",
		zap.String("transaction_id", event.TransactionId),
		zap.String("routing_key", event.RoutingKey()))
	return nil
}

func (FallbackPublisher) Close() {}

// NewPublisher dials the broker and declares the exchange.
func NewPublisher(rawURL, exchange string) (*Publisher, error) {
	cleanURL, err := sanitizeAMQPURL(rawURL)
	if err != nil {
		return nil, err
	}
	if exchange == "" {
		return nil, errors.New("exchange name is required")
	}

	conn, err := amqp.DialConfig(cleanURL, amqp.Config{Dial: amqp.DefaultDial(dialTimeout)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}
	p := &Publisher{conn: conn, exchange: exchange}
	if err := p.reopen(); err != nil {
		conn.Close()
		return nil, err
	}

	zap.L().Info("Connected to broker", zap.String("exchange", exchange))
	return p, nil
}

func (p *Publisher) Name() string { return "amqp" }

// Deliver publishes event as persistent JSON. A failed publish reopens the
// channel once and retries before giving up.
func (p *Publisher) Deliver(ctx context.Context, event models.TransactionEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.TransactionId + "-" + string(event.Status),
		Timestamp:    event.OccurredAt,
		Type:         event.EventType,
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(ctx, p.exchange, event.RoutingKey(), false, false, msg)
	if err == nil {
		return nil
	}
	zap.L().Warn("Publish failed, reopening channel",
		zap.String("routing_key", event.RoutingKey()),
		zap.Error(err))
	if reopenErr := p.reopen(); reopenErr != nil {
		return fmt.Errorf("publish failed: %w", err)
	}
	if err := p.channel.PublishWithContext(ctx, p.exchange, event.RoutingKey(), false, false, msg); err != nil {
		return fmt.Errorf("publish failed after channel reopen: %w", err)
	}
	return nil
}

// reopen replaces the channel and re-declares the exchange.
func (p *Publisher) reopen() error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		return fmt.Errorf("failed to declare exchange %s: %w", p.exchange, err)
	}
	if p.channel != nil {
		p.channel.Close()
	}
	p.channel = ch
	return nil
}

func (p *Publisher) Close() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}

// sanitizeAMQPURL strips quoting left behind by env files and checks the scheme.
func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	u, err := url.Parse(clean)
	if err != nil {
		return "", fmt.Errorf("invalid broker url: %w", err)
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("broker url scheme must be amqp:// or amqps://")
	}
	return clean, nil
}
