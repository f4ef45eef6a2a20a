package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"vidchat-service/internal/models"
)

var ErrChatRoomNotFound = errors.New("chat room not found")

// ChatRoomRepository abstracts chat room persistence.
type ChatRoomRepository interface {
	ListRooms(ctx context.Context) ([]models.ChatRoom, error)
	GetRoom(ctx context.Context, roomID string) (models.ChatRoom, error)
	CreateRoom(ctx context.Context, name string, description *string, createdBy string) (models.ChatRoom, error)
}

// ChatRoomRepo is a sqlx implementation of ChatRoomRepository.
type ChatRoomRepo struct {
	db *sqlx.DB
}

// NewChatRoomRepo constructs a ChatRoomRepo.
func NewChatRoomRepo(db *sqlx.DB) *ChatRoomRepo {
	return &ChatRoomRepo{db: db}
}

const chatRoomColumns = `id, name, description, created_by, is_active, member_count, created_at`

// ListRooms returns active rooms, busiest first.
func (r *ChatRoomRepo) ListRooms(ctx context.Context) ([]models.ChatRoom, error) {
	rooms := []models.ChatRoom{}
	err := r.db.SelectContext(ctx, &rooms, `SELECT `+chatRoomColumns+` FROM chat_rooms
        WHERE is_active = TRUE
        ORDER BY member_count DESC, created_at DESC`)
	return rooms, err
}

// GetRoom fetches an active room by id.
func (r *ChatRoomRepo) GetRoom(ctx context.Context, roomID string) (models.ChatRoom, error) {
	var room models.ChatRoom
	err := r.db.GetContext(ctx, &room, `SELECT `+chatRoomColumns+` FROM chat_rooms WHERE id=$1 AND is_active = TRUE`, roomID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ChatRoom{}, ErrChatRoomNotFound
	}
	return room, err
}

// CreateRoom inserts a new active room.
func (r *ChatRoomRepo) CreateRoom(ctx context.Context, name string, description *string, createdBy string) (models.ChatRoom, error) {
	var room models.ChatRoom
	err := r.db.QueryRowxContext(ctx, `INSERT INTO chat_rooms (name, description, created_by) VALUES ($1, $2, $3)
        RETURNING `+chatRoomColumns, name, description, createdBy).StructScan(&room)
	return room, err
}
