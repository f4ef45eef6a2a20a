package changefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"

	"vidchat-service/internal/observability"
	"vidchat-service/internal/realtime"
)

// Listener forwards Postgres row-change notifications to the broker.
type Listener struct {
	dsn     string
	channel string
	broker  realtime.Broker
	claimer Claimer

	everConnected bool
}

// NewListener builds a listener on channel. claimer may be nil when only
// one instance runs.
func NewListener(dsn, channel string, broker realtime.Broker, claimer Claimer) *Listener {
	return &Listener{dsn: dsn, channel: channel, broker: broker, claimer: claimer}
}

// Run listens until ctx is done, reconnecting with exponential backoff.
// Every successful reconnect publishes a resync so sessions recover the
// messages inserted while the listener was down.
func (l *Listener) Run(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 0

	for {
		connected, err := l.listen(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if connected {
			bo.Reset()
		}

		wait := bo.NextBackOff()
		log.Printf("changefeed: listener stopped: %v; reconnecting in %s", err, wait)
		observability.IncChangefeedReconnect()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (l *Listener) listen(ctx context.Context) (bool, error) {
	conn, err := pgx.Connect(ctx, l.dsn)
	if err != nil {
		return false, fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return false, fmt.Errorf("listen %s: %w", l.channel, err)
	}
	log.Printf("changefeed: listening on %s", l.channel)

	if l.everConnected {
		l.publishResync(ctx)
	}
	l.everConnected = true

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return true, err
		}
		l.Dispatch(ctx, n.Payload)
	}
}

// Dispatch routes one raw notification payload.
func (l *Listener) Dispatch(ctx context.Context, payload string) {
	var n Notification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		log.Printf("changefeed: invalid notification: %v", err)
		return
	}

	events, err := Route(n)
	if err != nil {
		log.Printf("changefeed: route %s %s: %v", n.Op, n.Table, err)
		return
	}
	if len(events) == 0 {
		return
	}

	if l.claimer != nil {
		won, err := l.claimer.Claim(ctx, claimKey(n, payload))
		switch {
		case err != nil:
			// a duplicate beats a lost message
			log.Printf("changefeed: claim failed, forwarding anyway: %v", err)
		case !won:
			return
		}
	}

	for _, ev := range events {
		if err := l.broker.Publish(ctx, ev); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("changefeed: publish %s: %v", ev.Topic, err)
		}
	}
}

func (l *Listener) publishResync(ctx context.Context) {
	if err := l.broker.Publish(ctx, realtime.Event{Topic: realtime.ControlTopic, Type: realtime.EventResync}); err != nil {
		log.Printf("changefeed: publish resync: %v", err)
	}
}
