package models

import "time"

// AnonymousUsername is shown when a sender profile can not be resolved.
const AnonymousUsername = "Anonymous"

// ChatMessage is a row of chat_messages. Exactly one of ChatRoomID and
// LiveStreamID is set.
type ChatMessage struct {
	ID           string    `db:"id" json:"id"`
	ChatRoomID   *string   `db:"chat_room_id" json:"chat_room_id"`
	LiveStreamID *string   `db:"live_stream_id" json:"live_stream_id"`
	UserID       string    `db:"user_id" json:"user_id"`
	Content      string    `db:"content" json:"content"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Sender is the display identity attached to a rendered message.
type Sender struct {
	Username  string  `db:"username" json:"username"`
	AvatarURL *string `db:"avatar_url" json:"avatar_url"`
}

// AnonymousSender is the fallback identity.
func AnonymousSender() Sender {
	return Sender{Username: AnonymousUsername}
}

// EnrichedMessage pairs a message with its sender profile.
type EnrichedMessage struct {
	ChatMessage
	Profile Sender `json:"profiles"`
}
