package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"vidchat-service/internal/models"
)

var (
	ErrChannelNotFound  = errors.New("channel not found")
	ErrSelfSubscription = errors.New("cannot subscribe to own channel")
)

// ChannelRepository abstracts channels and subscriptions.
type ChannelRepository interface {
	CreateChannel(ctx context.Context, userID, name string) (models.Channel, error)
	GetChannel(ctx context.Context, channelID string) (models.Channel, error)
	GetChannelByOwner(ctx context.Context, userID string) (models.Channel, error)
	IsSubscribed(ctx context.Context, subscriberID, channelID string) (bool, error)
	Subscribe(ctx context.Context, subscriberID, channelID string) error
	Unsubscribe(ctx context.Context, subscriberID, channelID string) error
}

// ChannelRepo is a sqlx implementation of ChannelRepository.
type ChannelRepo struct {
	db *sqlx.DB
}

// NewChannelRepo constructs a ChannelRepo.
func NewChannelRepo(db *sqlx.DB) *ChannelRepo {
	return &ChannelRepo{db: db}
}

const channelColumns = `id, user_id, name, description, avatar_url, banner_url, subscriber_count, created_at`

func (r *ChannelRepo) CreateChannel(ctx context.Context, userID, name string) (models.Channel, error) {
	var channel models.Channel
	err := r.db.QueryRowxContext(ctx, `INSERT INTO channels (user_id, name) VALUES ($1, $2)
        RETURNING `+channelColumns, userID, name).StructScan(&channel)
	return channel, err
}

func (r *ChannelRepo) GetChannel(ctx context.Context, channelID string) (models.Channel, error) {
	var channel models.Channel
	err := r.db.GetContext(ctx, &channel, `SELECT `+channelColumns+` FROM channels WHERE id=$1`, channelID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Channel{}, ErrChannelNotFound
	}
	return channel, err
}

// GetChannelByOwner returns the oldest channel owned by the user.
func (r *ChannelRepo) GetChannelByOwner(ctx context.Context, userID string) (models.Channel, error) {
	var channel models.Channel
	err := r.db.GetContext(ctx, &channel, `SELECT `+channelColumns+` FROM channels WHERE user_id=$1 ORDER BY created_at LIMIT 1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Channel{}, ErrChannelNotFound
	}
	return channel, err
}

func (r *ChannelRepo) IsSubscribed(ctx context.Context, subscriberID, channelID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM subscriptions WHERE subscriber_id=$1 AND channel_id=$2)`, subscriberID, channelID)
	return exists, err
}

// Subscribe is idempotent; subscriber_count only moves when a row is added.
func (r *ChannelRepo) Subscribe(ctx context.Context, subscriberID, channelID string) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var owner string
		if err := tx.GetContext(ctx, &owner, `SELECT user_id FROM channels WHERE id=$1`, channelID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrChannelNotFound
			}
			return err
		}
		if owner == subscriberID {
			return ErrSelfSubscription
		}

		res, err := tx.ExecContext(ctx, `INSERT INTO subscriptions (subscriber_id, channel_id) VALUES ($1, $2)
            ON CONFLICT DO NOTHING`, subscriberID, channelID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil
		}
		_, err = tx.ExecContext(ctx, `UPDATE channels SET subscriber_count = subscriber_count + 1 WHERE id=$1`, channelID)
		return err
	})
}

func (r *ChannelRepo) Unsubscribe(ctx context.Context, subscriberID, channelID string) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM subscriptions WHERE subscriber_id=$1 AND channel_id=$2`, subscriberID, channelID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil
		}
		_, err = tx.ExecContext(ctx, `UPDATE channels SET subscriber_count = GREATEST(subscriber_count - 1, 0) WHERE id=$1`, channelID)
		return err
	})
}
