package models

import "time"

// User holds login credentials.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Profile is the public identity of a user.
type Profile struct {
	ID        string    `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	FullName  *string   `db:"full_name" json:"full_name"`
	AvatarURL *string   `db:"avatar_url" json:"avatar_url"`
	Bio       *string   `db:"bio" json:"bio"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ProfileUpdate carries optional profile changes. Nil fields are untouched.
type ProfileUpdate struct {
	Username  *string `json:"username"`
	FullName  *string `json:"full_name"`
	AvatarURL *string `json:"avatar_url"`
	Bio       *string `json:"bio"`
}

// Session is returned after a successful sign-in.
type Session struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	UserID      string    `json:"user_id"`
	ExpiresAt   time.Time `json:"expires_at"`
}
