package models

import "time"

const (
	VisibilityPublic   = "public"
	VisibilityUnlisted = "unlisted"
	VisibilityPrivate  = "private"
)

// Channel is a user's publishing identity.
type Channel struct {
	ID              string    `db:"id" json:"id"`
	UserID          string    `db:"user_id" json:"user_id"`
	Name            string    `db:"name" json:"name"`
	Description     *string   `db:"description" json:"description"`
	AvatarURL       *string   `db:"avatar_url" json:"avatar_url"`
	BannerURL       *string   `db:"banner_url" json:"banner_url"`
	SubscriberCount int       `db:"subscriber_count" json:"subscriber_count"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// Video is a row of videos.
type Video struct {
	ID           string    `db:"id" json:"id"`
	ChannelID    string    `db:"channel_id" json:"channel_id"`
	Title        string    `db:"title" json:"title"`
	Description  *string   `db:"description" json:"description"`
	VideoURL     string    `db:"video_url" json:"video_url"`
	ThumbnailURL string    `db:"thumbnail_url" json:"thumbnail_url"`
	Duration     int       `db:"duration" json:"duration"`
	ViewCount    int64     `db:"view_count" json:"view_count"`
	LikeCount    int       `db:"like_count" json:"like_count"`
	DislikeCount int       `db:"dislike_count" json:"dislike_count"`
	Category     *string   `db:"category" json:"category"`
	IsShort      bool      `db:"is_short" json:"is_short"`
	Visibility   string    `db:"visibility" json:"visibility"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// VideoSummary is a video with the channel fields feeds render.
type VideoSummary struct {
	Video
	ChannelName      string  `db:"channel_name" json:"channel_name"`
	ChannelAvatarURL *string `db:"channel_avatar_url" json:"channel_avatar_url"`
	ChannelUserID    string  `db:"channel_user_id" json:"channel_user_id"`
}

// ReactionState is a user's reaction to a video and the resulting totals.
// Reaction is nil when the user has no reaction.
type ReactionState struct {
	Reaction     *bool `json:"is_like"`
	LikeCount    int   `json:"like_count"`
	DislikeCount int   `json:"dislike_count"`
}

// Comment is a comment with its author identity.
type Comment struct {
	ID        string    `db:"id" json:"id"`
	VideoID   string    `db:"video_id" json:"video_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	ParentID  *string   `db:"parent_id" json:"parent_id"`
	Content   string    `db:"content" json:"content"`
	LikeCount int       `db:"like_count" json:"like_count"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	Username  string    `db:"username" json:"username"`
	AvatarURL *string   `db:"avatar_url" json:"avatar_url"`
}

// WatchEntry is one watch_history row joined with the video.
type WatchEntry struct {
	VideoSummary
	WatchedAt     time.Time `db:"watched_at" json:"watched_at"`
	WatchProgress int       `db:"watch_progress" json:"watch_progress"`
}
