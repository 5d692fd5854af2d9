package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"kocmoc/internal/domain"
	"kocmoc/internal/metrics"
	"kocmoc/internal/security"
)

// SessionService issues, validates, and revokes bearer tokens. A token is
// honoured only while its session row exists, so revocation is immediate
// even for tokens whose signing claims are still fresh.
type SessionService struct {
	tokens   *security.TokenService
	sessions domain.SessionRepository
	users    domain.UserRepository
}

func NewSessionService(tokens *security.TokenService, sessions domain.SessionRepository, users domain.UserRepository) *SessionService {
	return &SessionService{
		tokens:   tokens,
		sessions: sessions,
		users:    users,
	}
}

// Issue creates a new session for the user and returns its bearer token.
// Each call creates exactly one new row; existing sessions are never reused,
// so one user can hold several concurrent sessions (multi-device).
func (s *SessionService) Issue(ctx context.Context, userID string) (string, error) {
	token, err := s.tokens.CreateForUser(userID)
	if err != nil {
		return "", fmt.Errorf("create token: %w", err)
	}
	if err := s.sessions.Create(ctx, &domain.Session{UserID: userID, Token: token}); err != nil {
		return "", fmt.Errorf("persist session: %w", err)
	}
	metrics.SessionsIssued.Inc()
	return token, nil
}

// Validate resolves a bearer token to its user. Failures are distinguishable:
// ErrTokenExpired, ErrTokenMalformed, ErrSessionRevoked (no live row for the
// (token, user) pair), or ErrUnknownUser.
func (s *SessionService) Validate(ctx context.Context, token string) (*domain.User, error) {
	sub, err := s.tokens.ParseSubject(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrTokenMalformed
	}

	sess, err := s.sessions.GetByToken(ctx, token)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrSessionRevoked
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if sess.UserID != sub {
		return nil, domain.ErrSessionRevoked
	}

	user, err := s.users.GetByID(ctx, sub)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrUnknownUser
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// Revoke deletes the session backing the token. Revoking an absent token
// succeeds silently.
func (s *SessionService) Revoke(ctx context.Context, token string) error {
	return s.sessions.DeleteByToken(ctx, token)
}
