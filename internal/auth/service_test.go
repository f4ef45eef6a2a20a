package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"vidchat-service/internal/mocks"
	"vidchat-service/internal/models"
	"vidchat-service/internal/repositories"
)

var _ TokenStore = (*mocks.TokenStoreMock)(nil)

type fixture struct {
	users    *mocks.UserRepositoryMock
	profiles *mocks.ProfileRepositoryMock
	channels *mocks.ChannelRepositoryMock
	tokens   *mocks.TokenStoreMock
	notifier *mocks.PublisherMock
	svc      *Service
}

func newFixture() *fixture {
	f := &fixture{
		users:    new(mocks.UserRepositoryMock),
		profiles: new(mocks.ProfileRepositoryMock),
		channels: new(mocks.ChannelRepositoryMock),
		tokens:   new(mocks.TokenStoreMock),
		notifier: new(mocks.PublisherMock),
	}
	f.svc = NewService(f.users, f.profiles, f.channels, f.tokens, f.notifier, "test-secret", time.Hour, time.Hour)
	return f
}

func hashOf(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestSignUpCreatesProfileAndChannel(t *testing.T) {
	f := newFixture()
	f.users.On("CreateUser", mock.Anything, "ann@example.com", mock.AnythingOfType("string")).Return(models.User{ID: "u1", Email: "ann@example.com"}, nil).Once()
	f.profiles.On("CreateProfile", mock.Anything, "u1", "ann").Return(models.Profile{ID: "u1"}, nil).Once()
	f.channels.On("CreateChannel", mock.Anything, "u1", "ann").Return(models.Channel{ID: "c1"}, nil).Once()
	f.tokens.On("IsRevoked", mock.Anything, mock.Anything).Return(false, nil).Once()

	session, err := f.svc.SignUp(context.Background(), " Ann@Example.com ", "secret1", "ann")
	require.NoError(t, err)
	assert.Equal(t, "u1", session.UserID)
	assert.Equal(t, "bearer", session.TokenType)

	userID, err := f.svc.ValidateToken(context.Background(), session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", userID)

	f.users.AssertExpectations(t)
	f.profiles.AssertExpectations(t)
	f.channels.AssertExpectations(t)
}

func TestSignUpDefaultsUsernameToEmailLocalPart(t *testing.T) {
	f := newFixture()
	f.users.On("CreateUser", mock.Anything, "bob@example.com", mock.Anything).Return(models.User{ID: "u2"}, nil).Once()
	f.profiles.On("CreateProfile", mock.Anything, "u2", "bob").Return(nil, assert.AnError).Once()
	f.channels.On("CreateChannel", mock.Anything, "u2", "bob").Return(nil, assert.AnError).Once()

	session, err := f.svc.SignUp(context.Background(), "bob@example.com", "secret1", "")
	require.NoError(t, err)
	assert.Equal(t, "u2", session.UserID)
}

func TestSignUpValidation(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		want     error
	}{
		{name: "bad email", email: "not-an-email", password: "secret1", want: ErrInvalidEmail},
		{name: "display name", email: "Ann <ann@example.com>", password: "secret1", want: ErrInvalidEmail},
		{name: "short password", email: "ann@example.com", password: "123", want: ErrWeakPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			_, err := f.svc.SignUp(context.Background(), tt.email, tt.password, "ann")
			assert.ErrorIs(t, err, tt.want)
			f.users.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestSignUpEmailTaken(t *testing.T) {
	f := newFixture()
	f.users.On("CreateUser", mock.Anything, "ann@example.com", mock.Anything).Return(nil, repositories.ErrEmailTaken).Once()

	_, err := f.svc.SignUp(context.Background(), "ann@example.com", "secret1", "ann")
	assert.ErrorIs(t, err, repositories.ErrEmailTaken)
	f.profiles.AssertNotCalled(t, "CreateProfile", mock.Anything, mock.Anything, mock.Anything)
}

func TestSignIn(t *testing.T) {
	f := newFixture()
	f.users.On("GetUserByEmail", mock.Anything, "ann@example.com").Return(models.User{ID: "u1", PasswordHash: hashOf(t, "secret1")}, nil)
	f.users.On("GetUserByEmail", mock.Anything, "ghost@example.com").Return(nil, repositories.ErrUserNotFound)

	session, err := f.svc.SignIn(context.Background(), "ann@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "u1", session.UserID)
	assert.NotEmpty(t, session.AccessToken)

	_, err = f.svc.SignIn(context.Background(), "ann@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.SignIn(context.Background(), "ghost@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignOutRevokesToken(t *testing.T) {
	f := newFixture()
	session, err := f.svc.issue("u1")
	require.NoError(t, err)

	f.tokens.On("Revoke", mock.Anything, mock.AnythingOfType("string"), mock.MatchedBy(func(ttl time.Duration) bool {
		return ttl > 0 && ttl <= time.Hour
	})).Return(nil).Once()
	require.NoError(t, f.svc.SignOut(context.Background(), session.AccessToken))

	f.tokens.On("IsRevoked", mock.Anything, mock.AnythingOfType("string")).Return(true, nil).Once()
	_, err = f.svc.ValidateToken(context.Background(), session.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
	f.tokens.AssertExpectations(t)
}

func TestValidateTokenRejectsBadTokens(t *testing.T) {
	f := newFixture()
	session, err := f.svc.issue("u1")
	require.NoError(t, err)

	other := NewService(nil, nil, nil, f.tokens, nil, "other-secret", time.Hour, time.Hour)
	_, err = other.ValidateToken(context.Background(), session.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = f.svc.ValidateToken(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)

	f.svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = f.svc.ValidateToken(context.Background(), session.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	f.tokens.AssertNotCalled(t, "IsRevoked", mock.Anything, mock.Anything)
}

func TestRequestPasswordResetPublishesToken(t *testing.T) {
	f := newFixture()
	f.users.On("GetUserByEmail", mock.Anything, "ann@example.com").Return(models.User{ID: "u1", Email: "ann@example.com"}, nil).Once()
	f.tokens.On("SaveResetToken", mock.Anything, mock.AnythingOfType("string"), "u1", time.Hour).Return(nil).Once()
	f.notifier.On("Publish", mock.Anything, PasswordResetRouting, mock.MatchedBy(func(ev PasswordResetEvent) bool {
		return ev.UserID == "u1" && ev.Email == "ann@example.com" && ev.Token != ""
	})).Return(nil).Once()

	require.NoError(t, f.svc.RequestPasswordReset(context.Background(), "ann@example.com"))
	f.tokens.AssertExpectations(t)
	f.notifier.AssertExpectations(t)
}

func TestRequestPasswordResetUnknownEmail(t *testing.T) {
	f := newFixture()
	f.users.On("GetUserByEmail", mock.Anything, "ghost@example.com").Return(nil, repositories.ErrUserNotFound).Once()

	require.NoError(t, f.svc.RequestPasswordReset(context.Background(), "ghost@example.com"))
	f.notifier.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestResetPassword(t *testing.T) {
	f := newFixture()
	f.tokens.On("ConsumeResetToken", mock.Anything, "tok").Return("u1", nil).Once()
	f.users.On("UpdatePassword", mock.Anything, "u1", mock.MatchedBy(func(hash string) bool {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte("newsecret")) == nil
	})).Return(nil).Once()

	require.NoError(t, f.svc.ResetPassword(context.Background(), "tok", "newsecret"))

	f.tokens.On("ConsumeResetToken", mock.Anything, "used").Return("", ErrInvalidResetToken).Once()
	assert.ErrorIs(t, f.svc.ResetPassword(context.Background(), "used", "newsecret"), ErrInvalidResetToken)

	assert.ErrorIs(t, f.svc.ResetPassword(context.Background(), "tok", "123"), ErrWeakPassword)
	f.users.AssertExpectations(t)
}
