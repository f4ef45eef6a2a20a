package models

import "time"

// RoomKind distinguishes the two places chat messages can live.
type RoomKind string

const (
	RoomKindChat   RoomKind = "chat_room"
	RoomKindStream RoomKind = "live_stream"
)

// RoomRef addresses a chat room or a live stream chat.
type RoomRef struct {
	Kind RoomKind `json:"kind"`
	ID   string   `json:"id"`
}

// ChatRoom represents a public topic room.
type ChatRoom struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description"`
	CreatedBy   string    `db:"created_by" json:"created_by"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	MemberCount int       `db:"member_count" json:"member_count"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// LiveStream is a channel broadcast with its own chat.
type LiveStream struct {
	ID           string     `db:"id" json:"id"`
	ChannelID    string     `db:"channel_id" json:"channel_id"`
	Title        string     `db:"title" json:"title"`
	Description  *string    `db:"description" json:"description"`
	StreamURL    string     `db:"stream_url" json:"stream_url"`
	ThumbnailURL *string    `db:"thumbnail_url" json:"thumbnail_url"`
	ViewerCount  int        `db:"viewer_count" json:"viewer_count"`
	IsLive       bool       `db:"is_live" json:"is_live"`
	StartedAt    time.Time  `db:"started_at" json:"started_at"`
	EndedAt      *time.Time `db:"ended_at" json:"ended_at"`
	ChannelName  string     `db:"channel_name" json:"channel_name"`
}
