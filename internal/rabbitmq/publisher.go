package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"

	"vidchat-service/internal/observability"
)

const (
	ModeAMQP = "amqp"
	ModeNoop = "noop"
)

var ErrNotConfirmed = errors.New("rabbitmq: publish not confirmed")

// Publisher ships audit envelopes, websocket lifecycle events and
// password reset notifications to the events exchange.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	PublishWithHeaders(ctx context.Context, routingKey string, event any, headers map[string]string) error
	Close() error
}

type options struct {
	dialRetries    uint64
	confirmTimeout time.Duration
}

type Option func(*options)

// WithDialRetries sets how many times the initial dial is retried before
// falling back to the noop publisher.
func WithDialRetries(n uint64) Option {
	return func(o *options) { o.dialRetries = n }
}

func WithConfirmTimeout(d time.Duration) Option {
	return func(o *options) { o.confirmTimeout = d }
}

// NewPublisher connects to the broker and declares the topic exchange. When
// the URL is empty or the broker stays unreachable, events are logged and
// dropped instead.
func NewPublisher(amqpURL, exchange string, opts ...Option) Publisher {
	o := options{dialRetries: 3, confirmTimeout: 5 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}

	if amqpURL == "" {
		log.Printf("rabbitmq mode=%s: empty amqp url", ModeNoop)
		return noopPublisher{}
	}

	var conn *amqp.Connection
	dial := func() error {
		var err error
		conn, err = amqp.Dial(amqpURL)
		return err
	}
	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), o.dialRetries)
	if err := backoff.Retry(dial, policy); err != nil {
		log.Printf("rabbitmq mode=%s: %v", ModeNoop, err)
		return noopPublisher{}
	}

	p := &amqpPublisher{conn: conn, exchange: exchange, confirmTimeout: o.confirmTimeout}
	ch, err := p.openChannel()
	if err != nil {
		log.Printf("rabbitmq mode=%s: %v", ModeNoop, err)
		_ = conn.Close()
		return noopPublisher{}
	}
	p.ch = ch

	log.Printf("rabbitmq mode=%s exchange=%s", ModeAMQP, exchange)
	return p
}

type amqpPublisher struct {
	conn           *amqp.Connection
	exchange       string
	confirmTimeout time.Duration

	mu sync.Mutex
	ch *amqp.Channel
}

func (p *amqpPublisher) openChannel() (*amqp.Channel, error) {
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", p.exchange, err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("enable confirms: %w", err)
	}
	return ch, nil
}

// channel returns the live channel, reopening it after the broker closed
// it (for example after a publish to a missing exchange).
func (p *amqpPublisher) channel() (*amqp.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	ch, err := p.openChannel()
	if err != nil {
		return nil, err
	}
	p.ch = ch
	return ch, nil
}

func (p *amqpPublisher) Publish(ctx context.Context, routingKey string, event any) error {
	return p.PublishWithHeaders(ctx, routingKey, event, nil)
}

func (p *amqpPublisher) PublishWithHeaders(ctx context.Context, routingKey string, event any, headers map[string]string) error {
	err := p.publish(ctx, routingKey, event, headers)
	if err != nil {
		observability.IncAMQPPublishError()
		log.Printf("rabbitmq publish failed routing_key=%s: %v", routingKey, err)
	}
	return err
}

func (p *amqpPublisher) publish(ctx context.Context, routingKey string, event any, headers map[string]string) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ch, err := p.channel()
	if err != nil {
		return err
	}

	confirm, err := ch.PublishWithDeferredConfirmWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Headers:      toTable(headers),
		Body:         body,
	})
	if err != nil {
		return err
	}

	waitCtx, cancel := context.WithTimeout(ctx, p.confirmTimeout)
	defer cancel()
	acked, err := confirm.WaitContext(waitCtx)
	if err != nil {
		return fmt.Errorf("wait confirm: %w", err)
	}
	if !acked {
		return ErrNotConfirmed
	}
	return nil
}

func (p *amqpPublisher) Close() error {
	p.mu.Lock()
	if p.ch != nil {
		_ = p.ch.Close()
	}
	p.mu.Unlock()
	return p.conn.Close()
}

func toTable(headers map[string]string) amqp.Table {
	if len(headers) == 0 {
		return nil
	}
	table := make(amqp.Table, len(headers))
	for key, value := range headers {
		table[key] = value
	}
	return table
}

type noopPublisher struct{}

func (n noopPublisher) Publish(ctx context.Context, routingKey string, event any) error {
	return n.PublishWithHeaders(ctx, routingKey, event, nil)
}

func (noopPublisher) PublishWithHeaders(ctx context.Context, routingKey string, event any, headers map[string]string) error {
	log.Printf("rabbitmq noop publish routing_key=%s request_id=%s", routingKey, headers["x-request-id"])
	return nil
}

func (noopPublisher) Close() error {
	return nil
}

// Mode reports whether p talks to a broker.
func Mode(p Publisher) string {
	if _, ok := p.(*amqpPublisher); ok {
		return ModeAMQP
	}
	return ModeNoop
}
