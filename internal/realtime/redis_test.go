package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestRedisBrokerRoundTrip(t *testing.T) {
	client, _ := newRedisClient(t)
	broker := NewRedisBroker(client, 0)
	ctx := context.Background()

	sub, err := broker.Subscribe(ctx, RoomTopic("r1"))
	require.NoError(t, err)
	defer sub.Close()

	payload := json.RawMessage(`{"id":"m1","content":"hi"}`)
	require.NoError(t, broker.Publish(ctx, Event{Topic: RoomTopic("r1"), Type: EventInsert, Payload: payload}))
	require.NoError(t, broker.Publish(ctx, Event{Topic: RoomTopic("r2"), Type: EventInsert}))

	ev := receive(t, sub)
	assert.Equal(t, RoomTopic("r1"), ev.Topic)
	assert.Equal(t, EventInsert, ev.Type)
	assert.JSONEq(t, string(payload), string(ev.Payload))

	select {
	case other := <-sub.Events():
		t.Fatalf("unexpected event %v", other)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRedisBrokerSubscriptionCloses(t *testing.T) {
	client, _ := newRedisClient(t)
	broker := NewRedisBroker(client, 0)

	sub, err := broker.Subscribe(context.Background(), PresenceTopic("r1"))
	require.NoError(t, err)
	require.NoError(t, sub.Close())

	select {
	case _, ok := <-sub.Events():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("subscription not closed")
	}
}

func TestRedisPresenceJoinLeave(t *testing.T) {
	client, _ := newRedisClient(t)
	store := NewRedisPresenceStore(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Join(ctx, "r1", "user|a", Meta{Ref: "ref-1"}))
	require.NoError(t, store.Join(ctx, "r1", "user|a", Meta{Ref: "ref-2"}))
	require.NoError(t, store.Join(ctx, "r1", "b", Meta{Ref: "ref-3"}))

	state, err := store.State(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, state, 2)
	assert.Len(t, state["user|a"], 2)
	assert.Equal(t, "ref-3", state["b"][0].Ref)

	require.NoError(t, store.Leave(ctx, "r1", "user|a", "ref-1"))
	require.NoError(t, store.Leave(ctx, "r1", "b", "ref-3"))
	state, err = store.State(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, state, 1)
	assert.Equal(t, "ref-2", state["user|a"][0].Ref)
}

func TestRedisPresencePrunesStaleEntries(t *testing.T) {
	client, _ := newRedisClient(t)
	store := NewRedisPresenceStore(client, time.Second)
	ctx := context.Background()

	stale := float64(time.Now().Add(-time.Minute).UnixMilli())
	require.NoError(t, client.ZAdd(ctx, presenceKey("r1"), redis.Z{Score: stale, Member: member("ghost", "ref-0")}).Err())
	require.NoError(t, store.Join(ctx, "r1", "a", Meta{Ref: "ref-1"}))

	state, err := store.State(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, state, 1)
	assert.Contains(t, state, "a")

	members, err := client.ZCard(ctx, presenceKey("r1")).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), members)
}

func TestPresenceAnnouncesExpiredEntries(t *testing.T) {
	client, _ := newRedisClient(t)
	ttl := 200 * time.Millisecond
	broker := NewMemoryBroker(0)
	presence := NewPresence(NewRedisPresenceStore(client, ttl), broker, 50*time.Millisecond)
	ctx := context.Background()

	// another instance's client that never refreshes
	fresh := float64(time.Now().UnixMilli())
	require.NoError(t, client.ZAdd(ctx, presenceKey("r1"), redis.Z{Score: fresh, Member: member("ghost", "ref-0")}).Err())

	sub, err := broker.Subscribe(ctx, PresenceTopic("r1"))
	require.NoError(t, err)
	defer sub.Close()

	untrack, err := presence.Track(ctx, "r1", "a")
	require.NoError(t, err)
	defer untrack()
	assert.Equal(t, EventPresenceSync, receive(t, sub).Type)

	count, err := presence.Count(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	assert.Equal(t, EventPresenceSync, receive(t, sub).Type)
	count, err = presence.Count(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
