package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"vidchat-service/internal/models"
)

var ErrCommentNotFound = errors.New("comment not found")

const (
	CommentSortTop    = "top"
	CommentSortNewest = "newest"
)

// CommentRepository abstracts video comments.
type CommentRepository interface {
	ListComments(ctx context.Context, videoID, sort string, limit int) ([]models.Comment, error)
	CreateComment(ctx context.Context, videoID, userID string, parentID *string, content string) (models.Comment, error)
	ToggleCommentLike(ctx context.Context, userID, commentID string) (bool, error)
}

// CommentRepo is a sqlx implementation of CommentRepository.
type CommentRepo struct {
	db *sqlx.DB
}

// NewCommentRepo constructs a CommentRepo.
func NewCommentRepo(db *sqlx.DB) *CommentRepo {
	return &CommentRepo{db: db}
}

const commentSelect = `SELECT cm.id, cm.video_id, cm.user_id, cm.parent_id, cm.content, cm.like_count, cm.created_at,
        COALESCE(p.username, 'Anonymous') AS username, p.avatar_url
    FROM comments cm
    LEFT JOIN profiles p ON p.id = cm.user_id`

func (r *CommentRepo) ListComments(ctx context.Context, videoID, sort string, limit int) ([]models.Comment, error) {
	order := `cm.created_at DESC`
	if sort == CommentSortTop {
		order = `cm.like_count DESC, cm.created_at DESC`
	}
	comments := []models.Comment{}
	err := r.db.SelectContext(ctx, &comments, commentSelect+` WHERE cm.video_id=$1 ORDER BY `+order+` LIMIT $2`, videoID, limit)
	return comments, err
}

func (r *CommentRepo) CreateComment(ctx context.Context, videoID, userID string, parentID *string, content string) (models.Comment, error) {
	var id string
	err := r.db.GetContext(ctx, &id, `INSERT INTO comments (video_id, user_id, parent_id, content) VALUES ($1, $2, $3, $4)
        RETURNING id`, videoID, userID, parentID, content)
	if err != nil {
		return models.Comment{}, err
	}

	var comment models.Comment
	err = r.db.GetContext(ctx, &comment, commentSelect+` WHERE cm.id=$1`, id)
	return comment, err
}

// ToggleCommentLike likes the comment, or removes an existing like. It
// reports whether the comment is liked afterwards.
func (r *CommentRepo) ToggleCommentLike(ctx context.Context, userID, commentID string) (bool, error) {
	var liked bool
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM likes WHERE user_id=$1 AND comment_id=$2`, userID, commentID)
		if err != nil {
			return err
		}
		removed, err := res.RowsAffected()
		if err != nil {
			return err
		}

		delta := -1
		if removed == 0 {
			if _, err := tx.ExecContext(ctx, `INSERT INTO likes (user_id, comment_id, is_like) VALUES ($1, $2, TRUE)`, userID, commentID); err != nil {
				return err
			}
			delta = 1
			liked = true
		}

		var count int
		err = tx.GetContext(ctx, &count, `UPDATE comments SET like_count = GREATEST(like_count + $2, 0) WHERE id=$1 RETURNING like_count`, commentID, delta)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrCommentNotFound
		}
		return err
	})
	return liked, err
}
