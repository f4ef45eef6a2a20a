package changefeed

import (
	"encoding/json"
	"fmt"

	"vidchat-service/internal/realtime"
)

// Notification is the payload the row-change trigger sends. Seq is unique
// per notification, so two updates that leave a row identical still differ.
type Notification struct {
	Seq   int64           `json:"seq"`
	Table string          `json:"table"`
	Op    string          `json:"op"`
	Row   json.RawMessage `json:"row"`
}

type messageKeys struct {
	ChatRoomID   *string `json:"chat_room_id"`
	LiveStreamID *string `json:"live_stream_id"`
}

type streamKeys struct {
	ID string `json:"id"`
}

// Route maps a row change onto the topics that subscribe to it. Changes
// nobody listens to route nowhere.
func Route(n Notification) ([]realtime.Event, error) {
	switch {
	case n.Table == "chat_messages" && n.Op == realtime.EventInsert:
		var keys messageKeys
		if err := json.Unmarshal(n.Row, &keys); err != nil {
			return nil, fmt.Errorf("decode chat_messages row: %w", err)
		}
		var events []realtime.Event
		if keys.ChatRoomID != nil {
			events = append(events, realtime.Event{Topic: realtime.RoomTopic(*keys.ChatRoomID), Type: realtime.EventInsert, Payload: n.Row})
		}
		if keys.LiveStreamID != nil {
			events = append(events, realtime.Event{Topic: realtime.StreamChatTopic(*keys.LiveStreamID), Type: realtime.EventInsert, Payload: n.Row})
		}
		return events, nil

	case n.Table == "live_streams" && n.Op == realtime.EventUpdate:
		var keys streamKeys
		if err := json.Unmarshal(n.Row, &keys); err != nil {
			return nil, fmt.Errorf("decode live_streams row: %w", err)
		}
		if keys.ID == "" {
			return nil, nil
		}
		return []realtime.Event{{Topic: realtime.ViewersTopic(keys.ID), Type: realtime.EventUpdate, Payload: n.Row}}, nil
	}
	return nil, nil
}
