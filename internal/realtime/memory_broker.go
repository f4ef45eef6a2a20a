package realtime

import (
	"context"
	"log"
	"sync"

	"vidchat-service/internal/observability"
)

const defaultSubscriptionBuffer = 256

// MemoryBroker fans events out to in-process subscribers. It backs single
// instance deployments and tests.
type MemoryBroker struct {
	mu     sync.RWMutex
	subs   map[string]map[*memorySubscription]struct{}
	buffer int
	closed bool
}

// NewMemoryBroker creates a broker whose subscriptions buffer up to buffer
// events. A non-positive buffer uses the default.
func NewMemoryBroker(buffer int) *MemoryBroker {
	if buffer <= 0 {
		buffer = defaultSubscriptionBuffer
	}
	return &MemoryBroker{
		subs:   make(map[string]map[*memorySubscription]struct{}),
		buffer: buffer,
	}
}

// Publish delivers the event to every current subscriber of its topic.
// A subscriber with a full buffer misses the event.
func (b *MemoryBroker) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBrokerClosed
	}

	for sub := range b.subs[event.Topic] {
		select {
		case sub.ch <- event:
		default:
			log.Printf("realtime: dropping event topic=%s type=%s: subscriber buffer full", event.Topic, event.Type)
			observability.IncRealtimeDropped("memory")
		}
	}
	return nil
}

// Subscribe registers a new subscriber on topic.
func (b *MemoryBroker) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBrokerClosed
	}

	sub := &memorySubscription{broker: b, topic: topic, ch: make(chan Event, b.buffer)}
	if _, ok := b.subs[topic]; !ok {
		b.subs[topic] = make(map[*memorySubscription]struct{})
	}
	b.subs[topic][sub] = struct{}{}
	return sub, nil
}

// Close ends every subscription.
func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for topic, subs := range b.subs {
		for sub := range subs {
			sub.closeLocked()
		}
		delete(b.subs, topic)
	}
	return nil
}

func (b *MemoryBroker) remove(sub *memorySubscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if subs, ok := b.subs[sub.topic]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(b.subs, sub.topic)
		}
	}
	sub.closeLocked()
}

type memorySubscription struct {
	broker *MemoryBroker
	topic  string
	ch     chan Event
	closed bool
}

func (s *memorySubscription) Events() <-chan Event {
	return s.ch
}

func (s *memorySubscription) Close() error {
	s.broker.remove(s)
	return nil
}

// closeLocked must be called with the broker write lock held.
func (s *memorySubscription) closeLocked() {
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}
