package ws

import (
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
)

func TestHubAddAndRemove(t *testing.T) {
	hub := NewHub()
	a, b := &websocket.Conn{}, &websocket.Conn{}

	hub.Add("room:1", a, ConnInfo{UserID: "u1"})
	hub.Add("room:1", b, ConnInfo{UserID: "u2"})
	assert.Equal(t, 2, hub.Count("room:1"))

	hub.Remove("room:1", a)
	assert.Equal(t, 1, hub.Count("room:1"))

	hub.Remove("room:1", b)
	assert.Equal(t, 0, hub.Count("room:1"))
	assert.Empty(t, hub.rooms)
}

func TestHubSnapshot(t *testing.T) {
	hub := NewHub()
	hub.Add("room:2", &websocket.Conn{}, ConnInfo{UserID: "u2"})
	hub.Add("room:2", &websocket.Conn{}, ConnInfo{UserID: "u2"})
	hub.Add("chat:1", &websocket.Conn{}, ConnInfo{UserID: "u1"})

	assert.Equal(t, []TopicStats{
		{Topic: "chat:1", Connections: 1, Users: []string{"u1"}},
		{Topic: "room:2", Connections: 2, Users: []string{"u2"}},
	}, hub.Snapshot())
}

func TestWSRoutingKey(t *testing.T) {
	assert.Equal(t, "ws_events.chat_room", wsRoutingKey("chat_room"))
	assert.Equal(t, "ws_events.live_stream", wsRoutingKey("live_stream"))
}
