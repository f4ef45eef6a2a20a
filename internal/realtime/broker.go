package realtime

import (
	"context"
	"encoding/json"
	"errors"
)

// Event types carried on topics.
const (
	EventInsert       = "INSERT"
	EventUpdate       = "UPDATE"
	EventPresenceSync = "presence_sync"
	EventResync       = "resync"
)

// ControlTopic carries relay-wide control events such as resync.
const ControlTopic = "relay:control"

var ErrBrokerClosed = errors.New("broker closed")

// Event is a single message on a topic.
type Event struct {
	Topic   string          `json:"topic"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Subscription delivers events for one topic until closed.
type Subscription interface {
	Events() <-chan Event
	Close() error
}

// Broker is a topic keyed publish/subscribe channel.
type Broker interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(ctx context.Context, topic string) (Subscription, error)
	Close() error
}

// RoomTopic carries chat room message inserts.
func RoomTopic(roomID string) string { return "room:" + roomID }

// StreamChatTopic carries live stream message inserts.
func StreamChatTopic(streamID string) string { return "chat:" + streamID }

// PresenceTopic carries membership sync notifications.
func PresenceTopic(id string) string { return "presence:" + id }

// ViewersTopic carries live stream row updates.
func ViewersTopic(streamID string) string { return "viewers:" + streamID }
