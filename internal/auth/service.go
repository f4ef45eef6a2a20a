package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"vidchat-service/internal/models"
	"vidchat-service/internal/repositories"
)

const (
	tokenIssuer          = "vidchat-service"
	PasswordResetRouting = "auth.password_reset"
	minPasswordLength    = 6
	bearerTokenType      = "bearer"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
)

// TokenStore remembers revoked token ids and pending password resets.
type TokenStore interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	SaveResetToken(ctx context.Context, token, userID string, ttl time.Duration) error
	ConsumeResetToken(ctx context.Context, token string) (string, error)
}

// Notifier delivers password reset tokens to a mailer.
type Notifier interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

type Claims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

type PasswordResetEvent struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Service struct {
	users    repositories.UserRepository
	profiles repositories.ProfileRepository
	channels repositories.ChannelRepository
	tokens   TokenStore
	notifier Notifier
	secret   []byte
	ttl      time.Duration
	resetTTL time.Duration
	now      func() time.Time
}

func NewService(users repositories.UserRepository, profiles repositories.ProfileRepository, channels repositories.ChannelRepository, tokens TokenStore, notifier Notifier, secret string, ttl, resetTTL time.Duration) *Service {
	return &Service{
		users:    users,
		profiles: profiles,
		channels: channels,
		tokens:   tokens,
		notifier: notifier,
		secret:   []byte(secret),
		ttl:      ttl,
		resetTTL: resetTTL,
		now:      time.Now,
	}
}

// SignUp creates the account and then the profile and channel that go with
// it. Only the account insert can fail the call.
func (s *Service) SignUp(ctx context.Context, email, password, username string) (models.Session, error) {
	email = normalizeEmail(email)
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return models.Session{}, ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return models.Session{}, ErrWeakPassword
	}
	username = strings.TrimSpace(username)
	if username == "" {
		username = email[:strings.Index(email, "@")]
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.Session{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.CreateUser(ctx, email, string(hash))
	if err != nil {
		return models.Session{}, err
	}

	if _, err := s.profiles.CreateProfile(ctx, user.ID, username); err != nil {
		log.Printf("create profile for user=%s: %v", user.ID, err)
	}
	if _, err := s.channels.CreateChannel(ctx, user.ID, username); err != nil {
		log.Printf("create channel for user=%s: %v", user.ID, err)
	}

	return s.issue(user.ID)
}

func (s *Service) SignIn(ctx context.Context, email, password string) (models.Session, error) {
	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repositories.ErrUserNotFound) {
		return models.Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.Session{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.Session{}, ErrInvalidCredentials
	}
	return s.issue(user.ID)
}

// SignOut revokes the token until it would have expired anyway.
func (s *Service) SignOut(ctx context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil {
		return err
	}
	remaining := claims.ExpiresAt.Time.Sub(s.now())
	if remaining <= 0 {
		return nil
	}
	return s.tokens.Revoke(ctx, claims.ID, remaining)
}

// ValidateToken returns the user id of a valid, unrevoked token.
func (s *Service) ValidateToken(ctx context.Context, token string) (string, error) {
	claims, err := s.parse(token)
	if err != nil {
		return "", err
	}
	revoked, err := s.tokens.IsRevoked(ctx, claims.ID)
	if err != nil {
		return "", fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return "", ErrInvalidToken
	}
	return claims.UserID, nil
}

// RequestPasswordReset hands a single-use token to the mailer. Unknown
// emails succeed silently.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, repositories.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	token := uuid.NewString()
	if err := s.tokens.SaveResetToken(ctx, token, user.ID, s.resetTTL); err != nil {
		return fmt.Errorf("save reset token: %w", err)
	}

	event := PasswordResetEvent{
		UserID:    user.ID,
		Email:     user.Email,
		Token:     token,
		ExpiresAt: s.now().Add(s.resetTTL).UTC(),
	}
	if err := s.notifier.Publish(ctx, PasswordResetRouting, event); err != nil {
		return fmt.Errorf("publish reset: %w", err)
	}
	return nil
}

func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return ErrWeakPassword
	}
	userID, err := s.tokens.ConsumeResetToken(ctx, token)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.users.UpdatePassword(ctx, userID, string(hash))
}

func (s *Service) issue(userID string) (models.Session, error) {
	now := s.now()
	expires := now.Add(s.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    tokenIssuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return models.Session{}, fmt.Errorf("sign token: %w", err)
	}
	return models.Session{
		AccessToken: signed,
		TokenType:   bearerTokenType,
		UserID:      userID,
		ExpiresAt:   expires.UTC(),
	}, nil
}

func (s *Service) parse(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid || claims.UserID == "" || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
