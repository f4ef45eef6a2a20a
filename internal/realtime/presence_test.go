package realtime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresenceCountsDistinctKeys(t *testing.T) {
	ctx := context.Background()
	broker := NewMemoryBroker(0)
	presence := NewPresence(NewMemoryPresenceStore(), broker, 0)

	untrackA, err := presence.Track(ctx, "r1", "a")
	require.NoError(t, err)
	untrackB, err := presence.Track(ctx, "r1", "b")
	require.NoError(t, err)

	count, err := presence.Count(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	untrackA()
	count, err = presence.Count(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	untrackB()
	count, err = presence.Count(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestPresenceSameKeyTwice(t *testing.T) {
	ctx := context.Background()
	presence := NewPresence(NewMemoryPresenceStore(), NewMemoryBroker(0), 0)

	first, err := presence.Track(ctx, "r1", "a")
	require.NoError(t, err)
	second, err := presence.Track(ctx, "r1", "a")
	require.NoError(t, err)

	state, err := presence.State(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, state, 1)
	assert.Len(t, state["a"], 2)

	first()
	first()
	count, err := presence.Count(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	second()
	count, err = presence.Count(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestPresenceAnnouncesSync(t *testing.T) {
	ctx := context.Background()
	broker := NewMemoryBroker(0)
	presence := NewPresence(NewMemoryPresenceStore(), broker, 0)

	sub, err := broker.Subscribe(ctx, PresenceTopic("r1"))
	require.NoError(t, err)

	untrack, err := presence.Track(ctx, "r1", "a")
	require.NoError(t, err)
	assert.Equal(t, EventPresenceSync, receive(t, sub).Type)

	untrack()
	assert.Equal(t, EventPresenceSync, receive(t, sub).Type)
}

func TestSplitMember(t *testing.T) {
	key, ref := splitMember(member("user|with|bars", "ref-1"))
	assert.Equal(t, "user|with|bars", key)
	assert.Equal(t, "ref-1", ref)

	key, ref = splitMember("plain")
	assert.Equal(t, "plain", key)
	assert.Empty(t, ref)
}
