package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"vidchat-service/internal/models"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrUsernameTaken   = errors.New("username already taken")
)

// ProfileRepository abstracts profile persistence.
type ProfileRepository interface {
	CreateProfile(ctx context.Context, userID, username string) (models.Profile, error)
	GetProfile(ctx context.Context, userID string) (models.Profile, error)
	UpdateProfile(ctx context.Context, userID string, update models.ProfileUpdate) (models.Profile, error)
	GetSender(ctx context.Context, userID string) (models.Sender, error)
}

// ProfileRepo is a sqlx implementation of ProfileRepository.
type ProfileRepo struct {
	db *sqlx.DB
}

// NewProfileRepo constructs a ProfileRepo.
func NewProfileRepo(db *sqlx.DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

const profileColumns = `id, username, full_name, avatar_url, bio, created_at, updated_at`

func (r *ProfileRepo) CreateProfile(ctx context.Context, userID, username string) (models.Profile, error) {
	var profile models.Profile
	err := r.db.QueryRowxContext(ctx, `INSERT INTO profiles (id, username) VALUES ($1, $2)
        RETURNING `+profileColumns, userID, username).StructScan(&profile)
	if isUniqueViolation(err) {
		return models.Profile{}, ErrUsernameTaken
	}
	return profile, err
}

func (r *ProfileRepo) GetProfile(ctx context.Context, userID string) (models.Profile, error) {
	var profile models.Profile
	err := r.db.GetContext(ctx, &profile, `SELECT `+profileColumns+` FROM profiles WHERE id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Profile{}, ErrProfileNotFound
	}
	return profile, err
}

// UpdateProfile applies the non-nil fields of update.
func (r *ProfileRepo) UpdateProfile(ctx context.Context, userID string, update models.ProfileUpdate) (models.Profile, error) {
	var profile models.Profile
	err := r.db.QueryRowxContext(ctx, `UPDATE profiles SET
            username = COALESCE($2, username),
            full_name = COALESCE($3, full_name),
            avatar_url = COALESCE($4, avatar_url),
            bio = COALESCE($5, bio),
            updated_at = NOW()
        WHERE id=$1
        RETURNING `+profileColumns, userID, update.Username, update.FullName, update.AvatarURL, update.Bio).StructScan(&profile)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return models.Profile{}, ErrProfileNotFound
	case isUniqueViolation(err):
		return models.Profile{}, ErrUsernameTaken
	}
	return profile, err
}

// GetSender is the point lookup used to enrich live chat messages.
func (r *ProfileRepo) GetSender(ctx context.Context, userID string) (models.Sender, error) {
	var sender models.Sender
	err := r.db.GetContext(ctx, &sender, `SELECT username, avatar_url FROM profiles WHERE id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Sender{}, ErrProfileNotFound
	}
	return sender, err
}
