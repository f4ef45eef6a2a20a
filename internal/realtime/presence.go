package realtime

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Meta is one presence entry for a key. A key may hold several entries when
// the same user is connected from more than one place.
type Meta struct {
	Ref      string    `json:"ref"`
	OnlineAt time.Time `json:"online_at"`
}

// PresenceStore holds the membership map of each room.
type PresenceStore interface {
	Join(ctx context.Context, room, key string, meta Meta) error
	Leave(ctx context.Context, room, key, ref string) error
	Refresh(ctx context.Context, room, key string, meta Meta) error
	State(ctx context.Context, room string) (map[string][]Meta, error)
}

// Presence tracks clients in rooms and announces membership changes on the
// room's presence topic.
type Presence struct {
	store     PresenceStore
	broker    Broker
	heartbeat time.Duration
}

// NewPresence builds a tracker. Heartbeat controls how often tracked entries
// are refreshed; zero disables refreshing.
func NewPresence(store PresenceStore, broker Broker, heartbeat time.Duration) *Presence {
	return &Presence{store: store, broker: broker, heartbeat: heartbeat}
}

// Track announces key in room and returns the function that untracks it.
// The untrack function may be called any number of times.
func (p *Presence) Track(ctx context.Context, room, key string) (func(), error) {
	meta := Meta{Ref: uuid.NewString(), OnlineAt: time.Now().UTC()}
	if err := p.store.Join(ctx, room, key, meta); err != nil {
		return nil, err
	}
	p.announce(ctx, room)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	if p.heartbeat > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.refreshLoop(room, key, meta, stop)
		}()
	}

	var once sync.Once
	untrack := func() {
		once.Do(func() {
			close(stop)
			wg.Wait()
			leaveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := p.store.Leave(leaveCtx, room, key, meta.Ref); err != nil {
				log.Printf("presence: leave room=%s key=%s: %v", room, key, err)
			}
			p.announce(leaveCtx, room)
		})
	}
	return untrack, nil
}

// Count is the number of distinct keys present in room.
func (p *Presence) Count(ctx context.Context, room string) (int, error) {
	state, err := p.store.State(ctx, room)
	if err != nil {
		return 0, err
	}
	return len(state), nil
}

// State returns the full membership map of room.
func (p *Presence) State(ctx context.Context, room string) (map[string][]Meta, error) {
	return p.store.State(ctx, room)
}

// refreshLoop keeps meta alive and recounts the room on every tick. Entries
// of clients that stopped heartbeating are pruned by the store without a
// leave, so a changed count is announced here.
func (p *Presence) refreshLoop(room, key string, meta Meta, stop <-chan struct{}) {
	ticker := time.NewTicker(p.heartbeat)
	defer ticker.Stop()
	last := p.countFor(room)
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), p.heartbeat)
			if err := p.store.Refresh(ctx, room, key, meta); err != nil {
				log.Printf("presence: refresh room=%s key=%s: %v", room, key, err)
			}
			if count := p.countFor(room); count >= 0 && count != last {
				last = count
				p.announce(ctx, room)
			}
			cancel()
		}
	}
}

// countFor returns -1 when the store can not be read.
func (p *Presence) countFor(room string) int {
	ctx, cancel := context.WithTimeout(context.Background(), p.heartbeat)
	defer cancel()
	count, err := p.Count(ctx, room)
	if err != nil {
		log.Printf("presence: count room=%s: %v", room, err)
		return -1
	}
	return count
}

func (p *Presence) announce(ctx context.Context, room string) {
	payload, _ := json.Marshal(map[string]string{"room": room})
	event := Event{Topic: PresenceTopic(room), Type: EventPresenceSync, Payload: payload}
	if err := p.broker.Publish(ctx, event); err != nil {
		log.Printf("presence: announce room=%s: %v", room, err)
	}
}
