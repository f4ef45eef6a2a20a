package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"vidchat-service/internal/models"
)

// EngagementRepository covers per-user video state: reactions, watch
// history and the liked list.
type EngagementRepository interface {
	GetVideoReaction(ctx context.Context, userID, videoID string) (*bool, error)
	SetVideoReaction(ctx context.Context, userID, videoID string, isLike *bool) (models.ReactionState, error)
	RecordWatch(ctx context.Context, userID, videoID string, progress int) error
	ListWatchHistory(ctx context.Context, userID string, limit int) ([]models.WatchEntry, error)
	ListLikedVideos(ctx context.Context, userID string, limit int) ([]models.VideoSummary, error)
}

// EngagementRepo is a sqlx implementation of EngagementRepository.
type EngagementRepo struct {
	db *sqlx.DB
}

// NewEngagementRepo constructs an EngagementRepo.
func NewEngagementRepo(db *sqlx.DB) *EngagementRepo {
	return &EngagementRepo{db: db}
}

func (r *EngagementRepo) GetVideoReaction(ctx context.Context, userID, videoID string) (*bool, error) {
	var isLike bool
	err := r.db.GetContext(ctx, &isLike, `SELECT is_like FROM likes WHERE user_id=$1 AND video_id=$2`, userID, videoID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &isLike, nil
}

// SetVideoReaction upserts the user's reaction, or removes it when isLike is
// nil, and recounts the video totals in the same transaction.
func (r *EngagementRepo) SetVideoReaction(ctx context.Context, userID, videoID string, isLike *bool) (models.ReactionState, error) {
	state := models.ReactionState{Reaction: isLike}
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var err error
		if isLike == nil {
			_, err = tx.ExecContext(ctx, `DELETE FROM likes WHERE user_id=$1 AND video_id=$2`, userID, videoID)
		} else {
			_, err = tx.ExecContext(ctx, `INSERT INTO likes (user_id, video_id, is_like) VALUES ($1, $2, $3)
                ON CONFLICT (user_id, video_id) DO UPDATE SET is_like = EXCLUDED.is_like`, userID, videoID, *isLike)
		}
		if err != nil {
			return err
		}

		err = tx.QueryRowxContext(ctx, `UPDATE videos SET
                like_count = (SELECT COUNT(*) FROM likes WHERE video_id=$1 AND is_like = TRUE),
                dislike_count = (SELECT COUNT(*) FROM likes WHERE video_id=$1 AND is_like = FALSE)
            WHERE id=$1
            RETURNING like_count, dislike_count`, videoID).Scan(&state.LikeCount, &state.DislikeCount)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrVideoNotFound
		}
		return err
	})
	return state, err
}

// RecordWatch upserts the history entry and bumps watched_at.
func (r *EngagementRepo) RecordWatch(ctx context.Context, userID, videoID string, progress int) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO watch_history (user_id, video_id, watch_progress) VALUES ($1, $2, $3)
        ON CONFLICT (user_id, video_id) DO UPDATE SET watch_progress = EXCLUDED.watch_progress, watched_at = NOW()`,
		userID, videoID, progress)
	return err
}

func (r *EngagementRepo) ListWatchHistory(ctx context.Context, userID string, limit int) ([]models.WatchEntry, error) {
	entries := []models.WatchEntry{}
	err := r.db.SelectContext(ctx, &entries, `SELECT v.id, v.channel_id, v.title, v.description, v.video_url,
            v.thumbnail_url, v.duration, v.view_count, v.like_count, v.dislike_count, v.category,
            v.is_short, v.visibility, v.created_at,
            c.name AS channel_name, c.avatar_url AS channel_avatar_url, c.user_id AS channel_user_id,
            h.watched_at, h.watch_progress
        FROM watch_history h
        JOIN videos v ON v.id = h.video_id
        JOIN channels c ON c.id = v.channel_id
        WHERE h.user_id=$1
        ORDER BY h.watched_at DESC LIMIT $2`, userID, limit)
	return entries, err
}

func (r *EngagementRepo) ListLikedVideos(ctx context.Context, userID string, limit int) ([]models.VideoSummary, error) {
	videos := []models.VideoSummary{}
	err := r.db.SelectContext(ctx, &videos, videoSummarySelect+`
        JOIN likes l ON l.video_id = v.id AND l.user_id=$1 AND l.is_like = TRUE
        ORDER BY l.created_at DESC LIMIT $2`, userID, limit)
	return videos, err
}
