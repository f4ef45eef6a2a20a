package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"vidchat-service/internal/models"
)

var ErrVideoNotFound = errors.New("video not found")

// VideoRepository abstracts video catalogue queries.
type VideoRepository interface {
	CreateVideo(ctx context.Context, video models.Video) (models.Video, error)
	GetVideo(ctx context.Context, videoID string) (models.VideoSummary, error)
	DeleteVideo(ctx context.Context, videoID string) error
	IncrementViews(ctx context.Context, videoID string) error
	ListChannelVideos(ctx context.Context, channelID string, shorts bool, limit int) ([]models.VideoSummary, error)
	SearchVideos(ctx context.Context, query string, limit int) ([]models.VideoSummary, error)
	ListShorts(ctx context.Context, limit int) ([]models.VideoSummary, error)
	ListSubscriptionFeed(ctx context.Context, userID string, limit int) ([]models.VideoSummary, error)
}

// VideoRepo is a sqlx implementation of VideoRepository.
type VideoRepo struct {
	db *sqlx.DB
}

// NewVideoRepo constructs a VideoRepo.
func NewVideoRepo(db *sqlx.DB) *VideoRepo {
	return &VideoRepo{db: db}
}

const videoColumns = `id, channel_id, title, description, video_url, thumbnail_url, duration,
    view_count, like_count, dislike_count, category, is_short, visibility, created_at`

const videoSummarySelect = `SELECT v.id, v.channel_id, v.title, v.description, v.video_url, v.thumbnail_url,
        v.duration, v.view_count, v.like_count, v.dislike_count, v.category, v.is_short,
        v.visibility, v.created_at,
        c.name AS channel_name, c.avatar_url AS channel_avatar_url, c.user_id AS channel_user_id
    FROM videos v
    JOIN channels c ON c.id = v.channel_id`

func (r *VideoRepo) CreateVideo(ctx context.Context, video models.Video) (models.Video, error) {
	var created models.Video
	err := r.db.QueryRowxContext(ctx, `INSERT INTO videos
        (channel_id, title, description, video_url, thumbnail_url, duration, category, is_short, visibility)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING `+videoColumns,
		video.ChannelID, video.Title, video.Description, video.VideoURL, video.ThumbnailURL,
		video.Duration, video.Category, video.IsShort, video.Visibility).StructScan(&created)
	return created, err
}

func (r *VideoRepo) GetVideo(ctx context.Context, videoID string) (models.VideoSummary, error) {
	var video models.VideoSummary
	err := r.db.GetContext(ctx, &video, videoSummarySelect+` WHERE v.id=$1`, videoID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.VideoSummary{}, ErrVideoNotFound
	}
	return video, err
}

func (r *VideoRepo) DeleteVideo(ctx context.Context, videoID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM videos WHERE id=$1`, videoID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrVideoNotFound
	}
	return nil
}

func (r *VideoRepo) IncrementViews(ctx context.Context, videoID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE videos SET view_count = view_count + 1 WHERE id=$1`, videoID)
	return err
}

// ListChannelVideos returns a channel's public videos or shorts, newest first.
func (r *VideoRepo) ListChannelVideos(ctx context.Context, channelID string, shorts bool, limit int) ([]models.VideoSummary, error) {
	videos := []models.VideoSummary{}
	err := r.db.SelectContext(ctx, &videos, videoSummarySelect+`
        WHERE v.channel_id=$1 AND v.visibility='public' AND v.is_short=$2
        ORDER BY v.created_at DESC LIMIT $3`, channelID, shorts, limit)
	return videos, err
}

// SearchVideos matches public titles case-insensitively, most viewed first.
func (r *VideoRepo) SearchVideos(ctx context.Context, query string, limit int) ([]models.VideoSummary, error) {
	videos := []models.VideoSummary{}
	err := r.db.SelectContext(ctx, &videos, videoSummarySelect+`
        WHERE v.visibility='public' AND v.title ILIKE '%' || $1 || '%'
        ORDER BY v.view_count DESC LIMIT $2`, query, limit)
	return videos, err
}

func (r *VideoRepo) ListShorts(ctx context.Context, limit int) ([]models.VideoSummary, error) {
	videos := []models.VideoSummary{}
	err := r.db.SelectContext(ctx, &videos, videoSummarySelect+`
        WHERE v.visibility='public' AND v.is_short = TRUE
        ORDER BY v.created_at DESC LIMIT $1`, limit)
	return videos, err
}

// ListSubscriptionFeed returns public videos from channels the user follows.
func (r *VideoRepo) ListSubscriptionFeed(ctx context.Context, userID string, limit int) ([]models.VideoSummary, error) {
	videos := []models.VideoSummary{}
	err := r.db.SelectContext(ctx, &videos, videoSummarySelect+`
        JOIN subscriptions s ON s.channel_id = v.channel_id AND s.subscriber_id=$1
        WHERE v.visibility='public'
        ORDER BY v.created_at DESC LIMIT $2`, userID, limit)
	return videos, err
}
