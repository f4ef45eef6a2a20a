package repositories

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"vidchat-service/internal/models"
)

// ChatMessageRepository defines interactions for room and stream messages.
type ChatMessageRepository interface {
	CreateMessage(ctx context.Context, room models.RoomRef, userID string, content string) (models.ChatMessage, error)
	RecentMessages(ctx context.Context, room models.RoomRef, limit int) ([]models.EnrichedMessage, error)
}

// ChatMessageRepo is a sqlx-backed repository.
type ChatMessageRepo struct {
	db *sqlx.DB
}

// NewChatMessageRepo constructs ChatMessageRepo.
func NewChatMessageRepo(db *sqlx.DB) *ChatMessageRepo {
	return &ChatMessageRepo{db: db}
}

func roomColumn(kind models.RoomKind) (string, error) {
	switch kind {
	case models.RoomKindChat:
		return "chat_room_id", nil
	case models.RoomKindStream:
		return "live_stream_id", nil
	}
	return "", fmt.Errorf("unknown room kind %q", kind)
}

// CreateMessage stores a message. The insert trigger fans it out to
// realtime subscribers.
func (r *ChatMessageRepo) CreateMessage(ctx context.Context, room models.RoomRef, userID string, content string) (models.ChatMessage, error) {
	column, err := roomColumn(room.Kind)
	if err != nil {
		return models.ChatMessage{}, err
	}

	var msg models.ChatMessage
	err = r.db.QueryRowxContext(ctx, `INSERT INTO chat_messages (`+column+`, user_id, content) VALUES ($1, $2, $3)
        RETURNING id, chat_room_id, live_stream_id, user_id, content, created_at`, room.ID, userID, content).StructScan(&msg)
	return msg, err
}

type enrichedRow struct {
	models.ChatMessage
	Username  *string `db:"username"`
	AvatarURL *string `db:"avatar_url"`
}

// RecentMessages returns the newest limit messages in ascending order with
// sender profiles attached. Messages whose sender has no profile carry the
// anonymous identity.
func (r *ChatMessageRepo) RecentMessages(ctx context.Context, room models.RoomRef, limit int) ([]models.EnrichedMessage, error) {
	column, err := roomColumn(room.Kind)
	if err != nil {
		return nil, err
	}

	query := `SELECT * FROM (
            SELECT m.id, m.chat_room_id, m.live_stream_id, m.user_id, m.content, m.created_at,
                p.username, p.avatar_url
            FROM chat_messages m
            LEFT JOIN profiles p ON p.id = m.user_id
            WHERE m.` + column + ` = $1
            ORDER BY m.created_at DESC
            LIMIT $2
        ) recent ORDER BY created_at ASC`
	var rows []enrichedRow
	if err := r.db.SelectContext(ctx, &rows, query, room.ID, limit); err != nil {
		return nil, err
	}

	msgs := make([]models.EnrichedMessage, 0, len(rows))
	for _, row := range rows {
		sender := models.AnonymousSender()
		if row.Username != nil {
			sender = models.Sender{Username: *row.Username, AvatarURL: row.AvatarURL}
		}
		msgs = append(msgs, models.EnrichedMessage{ChatMessage: row.ChatMessage, Profile: sender})
	}
	return msgs, nil
}
