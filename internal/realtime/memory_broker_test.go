package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, sub Subscription) Event {
	t.Helper()
	select {
	case ev, ok := <-sub.Events():
		require.True(t, ok, "subscription closed")
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestMemoryBrokerDeliversInOrder(t *testing.T) {
	broker := NewMemoryBroker(0)
	ctx := context.Background()

	sub, err := broker.Subscribe(ctx, RoomTopic("r1"))
	require.NoError(t, err)

	for _, typ := range []string{"a", "b", "c"} {
		require.NoError(t, broker.Publish(ctx, Event{Topic: RoomTopic("r1"), Type: typ}))
	}

	assert.Equal(t, "a", receive(t, sub).Type)
	assert.Equal(t, "b", receive(t, sub).Type)
	assert.Equal(t, "c", receive(t, sub).Type)
}

func TestMemoryBrokerTopicIsolation(t *testing.T) {
	broker := NewMemoryBroker(0)
	ctx := context.Background()

	sub, err := broker.Subscribe(ctx, RoomTopic("r1"))
	require.NoError(t, err)

	require.NoError(t, broker.Publish(ctx, Event{Topic: RoomTopic("r2"), Type: EventInsert}))
	require.NoError(t, broker.Publish(ctx, Event{Topic: RoomTopic("r1"), Type: EventUpdate}))

	assert.Equal(t, EventUpdate, receive(t, sub).Type)
}

func TestMemoryBrokerCloseSubscription(t *testing.T) {
	broker := NewMemoryBroker(0)
	ctx := context.Background()

	sub, err := broker.Subscribe(ctx, RoomTopic("r1"))
	require.NoError(t, err)
	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())

	_, ok := <-sub.Events()
	assert.False(t, ok)
	require.NoError(t, broker.Publish(ctx, Event{Topic: RoomTopic("r1"), Type: EventInsert}))
	assert.Empty(t, broker.subs)
}

func TestMemoryBrokerDropsWhenFull(t *testing.T) {
	broker := NewMemoryBroker(1)
	ctx := context.Background()

	sub, err := broker.Subscribe(ctx, RoomTopic("r1"))
	require.NoError(t, err)

	require.NoError(t, broker.Publish(ctx, Event{Topic: RoomTopic("r1"), Type: "first"}))
	require.NoError(t, broker.Publish(ctx, Event{Topic: RoomTopic("r1"), Type: "second"}))

	assert.Equal(t, "first", receive(t, sub).Type)
	select {
	case ev := <-sub.Events():
		t.Fatalf("unexpected event %v", ev)
	default:
	}
}

func TestMemoryBrokerClosed(t *testing.T) {
	broker := NewMemoryBroker(0)
	ctx := context.Background()

	sub, err := broker.Subscribe(ctx, "t")
	require.NoError(t, err)
	require.NoError(t, broker.Close())

	_, ok := <-sub.Events()
	assert.False(t, ok)
	assert.ErrorIs(t, broker.Publish(ctx, Event{Topic: "t"}), ErrBrokerClosed)
	_, err = broker.Subscribe(ctx, "t")
	assert.ErrorIs(t, err, ErrBrokerClosed)
}
