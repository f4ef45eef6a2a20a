package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"vidchat-service/internal/models"
)

var ErrLiveStreamNotFound = errors.New("live stream not found")

// LiveStreamRepository abstracts live stream persistence.
type LiveStreamRepository interface {
	GetLiveStream(ctx context.Context, streamID string) (models.LiveStream, error)
	ListLiveStreams(ctx context.Context, limit int) ([]models.LiveStream, error)
	AdjustViewerCount(ctx context.Context, streamID string, delta int) error
}

// LiveStreamRepo is a sqlx implementation of LiveStreamRepository.
type LiveStreamRepo struct {
	db *sqlx.DB
}

// NewLiveStreamRepo constructs a LiveStreamRepo.
func NewLiveStreamRepo(db *sqlx.DB) *LiveStreamRepo {
	return &LiveStreamRepo{db: db}
}

const liveStreamSelect = `SELECT s.id, s.channel_id, s.title, s.description, s.stream_url, s.thumbnail_url,
        s.viewer_count, s.is_live, s.started_at, s.ended_at, c.name AS channel_name
    FROM live_streams s
    JOIN channels c ON c.id = s.channel_id`

// GetLiveStream returns the stream only while it is live.
func (r *LiveStreamRepo) GetLiveStream(ctx context.Context, streamID string) (models.LiveStream, error) {
	var stream models.LiveStream
	err := r.db.GetContext(ctx, &stream, liveStreamSelect+` WHERE s.id=$1 AND s.is_live = TRUE`, streamID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.LiveStream{}, ErrLiveStreamNotFound
	}
	return stream, err
}

// ListLiveStreams returns live streams ordered by audience.
func (r *LiveStreamRepo) ListLiveStreams(ctx context.Context, limit int) ([]models.LiveStream, error) {
	streams := []models.LiveStream{}
	err := r.db.SelectContext(ctx, &streams, liveStreamSelect+` WHERE s.is_live = TRUE
        ORDER BY s.viewer_count DESC, s.started_at DESC LIMIT $1`, limit)
	return streams, err
}

// AdjustViewerCount moves viewer_count by delta, never below zero. The
// update trigger publishes the new count to viewers.
func (r *LiveStreamRepo) AdjustViewerCount(ctx context.Context, streamID string, delta int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE live_streams SET viewer_count = GREATEST(viewer_count + $2, 0) WHERE id=$1`, streamID, delta)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrLiveStreamNotFound
	}
	return nil
}
