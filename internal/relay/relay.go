// Package relay turns row-change events and presence notifications into the
// live state of a chat room or live stream chat: an ordered message list
// with sender profiles attached, an online count and, for streams, the
// viewer count.
package relay

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"vidchat-service/internal/models"
	"vidchat-service/internal/observability"
	"vidchat-service/internal/realtime"
)

const (
	DefaultHistoryLimit  = 100
	defaultUpdateBuffer  = 64
	defaultLookupTimeout = 5 * time.Second
)

// ProfileLookup resolves the display identity of a message sender.
type ProfileLookup interface {
	GetSender(ctx context.Context, userID string) (models.Sender, error)
}

// HistoryLoader returns the most recent messages of a room, oldest first.
type HistoryLoader interface {
	RecentMessages(ctx context.Context, room models.RoomRef, limit int) ([]models.EnrichedMessage, error)
}

// Relay opens sessions against a broker.
type Relay struct {
	broker        realtime.Broker
	presence      *realtime.Presence
	profiles      ProfileLookup
	history       HistoryLoader
	historyLimit  int
	updateBuffer  int
	lookupTimeout time.Duration
}

// Option configures a Relay.
type Option func(*Relay)

// WithHistoryLimit sets how many messages a session backfills.
func WithHistoryLimit(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.historyLimit = n
		}
	}
}

// WithUpdateBuffer sets the capacity of each session's update channel.
func WithUpdateBuffer(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.updateBuffer = n
		}
	}
}

func New(broker realtime.Broker, presence *realtime.Presence, profiles ProfileLookup, history HistoryLoader, opts ...Option) *Relay {
	r := &Relay{
		broker:        broker,
		presence:      presence,
		profiles:      profiles,
		history:       history,
		historyLimit:  DefaultHistoryLimit,
		updateBuffer:  defaultUpdateBuffer,
		lookupTimeout: defaultLookupTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// MessageTopic is the topic carrying message inserts for room.
func MessageTopic(room models.RoomRef) string {
	if room.Kind == models.RoomKindStream {
		return realtime.StreamChatTopic(room.ID)
	}
	return realtime.RoomTopic(room.ID)
}

// Subscribe opens the channels for room, backfills recent history and,
// when presenceKey is set, tracks the caller as present. The returned
// session must be closed.
func (r *Relay) Subscribe(ctx context.Context, room models.RoomRef, presenceKey string) (*Session, error) {
	ctx, span := otel.Tracer("vidchat-service/relay").Start(ctx, "relay.subscribe")
	defer span.End()
	span.SetAttributes(attribute.String("room.kind", string(room.Kind)), attribute.String("room.id", room.ID))

	topics := []string{MessageTopic(room), realtime.PresenceTopic(room.ID), realtime.ControlTopic}
	if room.Kind == models.RoomKindStream {
		topics = append(topics, realtime.ViewersTopic(room.ID))
	}

	subs := make(map[string]realtime.Subscription, len(topics))
	for _, topic := range topics {
		sub, err := r.broker.Subscribe(ctx, topic)
		if err != nil {
			closeSubscriptions(subs)
			span.RecordError(err)
			return nil, fmt.Errorf("open channel %s: %w", topic, err)
		}
		subs[topic] = sub
	}

	history, err := r.history.RecentMessages(ctx, room, r.historyLimit)
	if err != nil {
		log.Printf("relay: load history kind=%s room=%s: %v", room.Kind, room.ID, err)
		history = nil
	}

	var untrack func()
	if presenceKey != "" {
		untrack, err = r.presence.Track(ctx, room.ID, presenceKey)
		if err != nil {
			closeSubscriptions(subs)
			span.RecordError(err)
			return nil, fmt.Errorf("track presence: %w", err)
		}
	}

	online, err := r.presence.Count(ctx, room.ID)
	if err != nil {
		log.Printf("relay: presence count room=%s: %v", room.ID, err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	s := &Session{
		room:       room,
		relay:      r,
		ctx:        loopCtx,
		cancel:     cancel,
		subs:       subs,
		untrack:    untrack,
		updates:    make(chan Update, r.updateBuffer),
		done:       make(chan struct{}),
		resyncs:    make(chan resyncRequest),
		online:     online,
		backfilled: make(map[string]struct{}),
	}
	s.setHistoryLocked(history)
	s.emitSnapshot()

	observability.IncRelaySessions(string(room.Kind))
	go s.run(
		eventsOf(subs, MessageTopic(room)),
		eventsOf(subs, realtime.PresenceTopic(room.ID)),
		eventsOf(subs, realtime.ControlTopic),
		eventsOf(subs, realtime.ViewersTopic(room.ID)),
	)
	return s, nil
}

func eventsOf(subs map[string]realtime.Subscription, topic string) <-chan realtime.Event {
	if sub, ok := subs[topic]; ok {
		return sub.Events()
	}
	return nil
}

func closeSubscriptions(subs map[string]realtime.Subscription) {
	for topic, sub := range subs {
		if err := sub.Close(); err != nil {
			log.Printf("relay: close channel %s: %v", topic, err)
		}
	}
}
