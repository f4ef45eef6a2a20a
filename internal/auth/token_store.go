package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTokenStore keeps revoked token ids and reset tokens as expiring keys.
type RedisTokenStore struct {
	client *redis.Client
}

func NewRedisTokenStore(client *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{client: client}
}

func revokedKey(tokenID string) string { return "auth:revoked:" + tokenID }
func resetKey(token string) string      { return "auth:reset:" + token }

func (s *RedisTokenStore) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	return s.client.Set(ctx, revokedKey(tokenID), 1, ttl).Err()
}

func (s *RedisTokenStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, revokedKey(tokenID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisTokenStore) SaveResetToken(ctx context.Context, token, userID string, ttl time.Duration) error {
	return s.client.Set(ctx, resetKey(token), userID, ttl).Err()
}

// ConsumeResetToken returns the owner of the token and deletes it, so a
// token works once.
func (s *RedisTokenStore) ConsumeResetToken(ctx context.Context, token string) (string, error) {
	userID, err := s.client.GetDel(ctx, resetKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrInvalidResetToken
	}
	if err != nil {
		return "", fmt.Errorf("consume reset token: %w", err)
	}
	return userID, nil
}
