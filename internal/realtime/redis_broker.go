package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"vidchat-service/internal/observability"
)

// RedisBroker relays events through Redis pub/sub so every instance sees
// them.
type RedisBroker struct {
	client *redis.Client
	buffer int
}

// NewRedisBroker wraps an existing client. The caller owns the client.
func NewRedisBroker(client *redis.Client, buffer int) *RedisBroker {
	if buffer <= 0 {
		buffer = defaultSubscriptionBuffer
	}
	return &RedisBroker{client: client, buffer: buffer}
}

func (b *RedisBroker) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, event.Topic, body).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", event.Topic, err)
	}
	return nil
}

// Subscribe waits for Redis to confirm the subscription so a failing
// channel open is reported to the caller.
func (b *RedisBroker) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	pubsub := b.client.Subscribe(ctx, topic)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", topic, err)
	}

	sub := &redisSubscription{pubsub: pubsub, ch: make(chan Event, b.buffer)}
	go sub.pump(topic)
	return sub, nil
}

// Close is a no-op; the Redis client is closed by its owner.
func (b *RedisBroker) Close() error {
	return nil
}

type redisSubscription struct {
	pubsub *redis.PubSub
	ch     chan Event
}

func (s *redisSubscription) pump(topic string) {
	defer close(s.ch)
	for msg := range s.pubsub.Channel() {
		var event Event
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			log.Printf("realtime: invalid event on %s: %v", topic, err)
			continue
		}
		select {
		case s.ch <- event:
		default:
			log.Printf("realtime: dropping event topic=%s type=%s: subscriber buffer full", topic, event.Type)
			observability.IncRealtimeDropped("redis")
		}
	}
}

func (s *redisSubscription) Events() <-chan Event {
	return s.ch
}

func (s *redisSubscription) Close() error {
	return s.pubsub.Close()
}
