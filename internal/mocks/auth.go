package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

type TokenStoreMock struct {
	mock.Mock
}

func (m *TokenStoreMock) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	args := m.Called(ctx, tokenID, ttl)
	return args.Error(0)
}

func (m *TokenStoreMock) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	args := m.Called(ctx, tokenID)
	return args.Bool(0), args.Error(1)
}

func (m *TokenStoreMock) SaveResetToken(ctx context.Context, token, userID string, ttl time.Duration) error {
	args := m.Called(ctx, token, userID, ttl)
	return args.Error(0)
}

func (m *TokenStoreMock) ConsumeResetToken(ctx context.Context, token string) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}

// TokenValidatorMock stands in for the auth service in middleware and
// websocket tests.
type TokenValidatorMock struct {
	mock.Mock
}

func (m *TokenValidatorMock) ValidateToken(ctx context.Context, token string) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}

var _ interface {
	Revoke(context.Context, string, time.Duration) error
	IsRevoked(context.Context, string) (bool, error)
	SaveResetToken(context.Context, string, string, time.Duration) error
	ConsumeResetToken(context.Context, string) (string, error)
} = (*TokenStoreMock)(nil)
