package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"kocmoc/internal/domain"
	"kocmoc/internal/security"
	"kocmoc/internal/service"
)

func TestSessionValidate(t *testing.T) {
	tokenSvc := security.NewTokenService("secret", time.Hour)
	user := &domain.User{ID: "user-1", Email: "s@kocmoc.app"}

	t.Run("Valid", func(t *testing.T) {
		sessions := new(MockSessionRepo)
		users := new(MockUserRepo)
		svc := service.NewSessionService(tokenSvc, sessions, users)

		token, err := tokenSvc.CreateForUser("user-1")
		assert.NoError(t, err)

		sessions.On("GetByToken", mock.Anything, token).Return(&domain.Session{UserID: "user-1", Token: token}, nil)
		users.On("GetByID", mock.Anything, "user-1").Return(user, nil)

		got, err := svc.Validate(context.Background(), token)
		assert.NoError(t, err)
		assert.Equal(t, "user-1", got.ID)
	})

	t.Run("Expired", func(t *testing.T) {
		svc := service.NewSessionService(tokenSvc, new(MockSessionRepo), new(MockUserRepo))

		token, err := tokenSvc.CreateWithTTL("user-1", -time.Minute)
		assert.NoError(t, err)

		_, err = svc.Validate(context.Background(), token)
		assert.ErrorIs(t, err, domain.ErrTokenExpired)
	})

	t.Run("Malformed", func(t *testing.T) {
		svc := service.NewSessionService(tokenSvc, new(MockSessionRepo), new(MockUserRepo))

		_, err := svc.Validate(context.Background(), "not.a.jwt")
		assert.ErrorIs(t, err, domain.ErrTokenMalformed)
	})

	t.Run("WrongKeySignature", func(t *testing.T) {
		other := security.NewTokenService("other-secret", time.Hour)
		svc := service.NewSessionService(tokenSvc, new(MockSessionRepo), new(MockUserRepo))

		token, err := other.CreateForUser("user-1")
		assert.NoError(t, err)

		_, err = svc.Validate(context.Background(), token)
		assert.ErrorIs(t, err, domain.ErrTokenMalformed)
	})

	t.Run("Revoked", func(t *testing.T) {
		sessions := new(MockSessionRepo)
		svc := service.NewSessionService(tokenSvc, sessions, new(MockUserRepo))

		token, err := tokenSvc.CreateForUser("user-1")
		assert.NoError(t, err)

		sessions.On("GetByToken", mock.Anything, token).Return(nil, domain.ErrNotFound)

		_, err = svc.Validate(context.Background(), token)
		assert.ErrorIs(t, err, domain.ErrSessionRevoked)
	})

	t.Run("SessionOwnedByOtherUser", func(t *testing.T) {
		sessions := new(MockSessionRepo)
		svc := service.NewSessionService(tokenSvc, sessions, new(MockUserRepo))

		token, err := tokenSvc.CreateForUser("user-1")
		assert.NoError(t, err)

		sessions.On("GetByToken", mock.Anything, token).Return(&domain.Session{UserID: "someone-else", Token: token}, nil)

		_, err = svc.Validate(context.Background(), token)
		assert.ErrorIs(t, err, domain.ErrSessionRevoked)
	})

	t.Run("UnknownUser", func(t *testing.T) {
		sessions := new(MockSessionRepo)
		users := new(MockUserRepo)
		svc := service.NewSessionService(tokenSvc, sessions, users)

		token, err := tokenSvc.CreateForUser("ghost")
		assert.NoError(t, err)

		sessions.On("GetByToken", mock.Anything, token).Return(&domain.Session{UserID: "ghost", Token: token}, nil)
		users.On("GetByID", mock.Anything, "ghost").Return(nil, domain.ErrNotFound)

		_, err = svc.Validate(context.Background(), token)
		assert.ErrorIs(t, err, domain.ErrUnknownUser)
	})
}

func TestSessionIssue(t *testing.T) {
	tokenSvc := security.NewTokenService("secret", time.Hour)
	sessions := new(MockSessionRepo)
	svc := service.NewSessionService(tokenSvc, sessions, new(MockUserRepo))

	created := 0
	sessions.On("Create", mock.Anything, mock.MatchedBy(func(s *domain.Session) bool {
		created++
		return s.UserID == "user-1" && s.Token != ""
	})).Return(nil)

	// Two issues mean two independent sessions (multi-device).
	_, err := svc.Issue(context.Background(), "user-1")
	assert.NoError(t, err)
	_, err = svc.Issue(context.Background(), "user-1")
	assert.NoError(t, err)
	assert.Equal(t, 2, created)
}

func TestSessionRevokeIdempotent(t *testing.T) {
	sessions := new(MockSessionRepo)
	svc := service.NewSessionService(security.NewTokenService("secret", time.Hour), sessions, new(MockUserRepo))

	sessions.On("DeleteByToken", mock.Anything, "gone").Return(nil)

	assert.NoError(t, svc.Revoke(context.Background(), "gone"))
	assert.NoError(t, svc.Revoke(context.Background(), "gone"))
}
