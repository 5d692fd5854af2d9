package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"kocmoc/internal/domain"
	"kocmoc/internal/mailer"
	"kocmoc/internal/metrics"
	"kocmoc/internal/security"
)

// AuthService handles registration, password login, and the verification
// code workflow.
type AuthService struct {
	users    domain.UserRepository
	codes    domain.VerificationCodeRepository
	sessions *SessionService
	hash     *security.PasswordHasher
	mail     mailer.Mailer
	codeTTL  time.Duration
}

func NewAuthService(
	users domain.UserRepository,
	codes domain.VerificationCodeRepository,
	sessions *SessionService,
	hash *security.PasswordHasher,
	mail mailer.Mailer,
	codeTTL time.Duration,
) *AuthService {
	return &AuthService{
		users:    users,
		codes:    codes,
		sessions: sessions,
		hash:     hash,
		mail:     mail,
		codeTTL:  codeTTL,
	}
}

type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
	AvatarURL   *string
}

type TokenResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

// Register creates a user and issues a verification code for the new email.
// A failed code delivery returns ErrDelivery, but the user and the code both
// remain in place.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	if in.Email == "" || in.Password == "" || in.DisplayName == "" {
		return nil, domain.ErrInvalidInput
	}

	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return nil, domain.ErrConflict
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	hashed, err := s.hash.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        in.Email,
		PasswordHash: hashed,
		DisplayName:  in.DisplayName,
		AvatarURL:    in.AvatarURL,
		Role:         domain.RoleMember,
		Online:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	if _, err := s.RequestCode(ctx, user.Email, &user.ID); err != nil {
		return user, err
	}
	return user, nil
}

// RequestCode generates a 6-digit code, persists it with an expiry, and
// attempts delivery. The returned code stays redeemable even when delivery
// fails; in that case the error wraps ErrDelivery.
func (s *AuthService) RequestCode(ctx context.Context, email string, userID *string) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}

	vc := &domain.VerificationCode{
		Email:     email,
		Code:      code,
		UserID:    userID,
		ExpiresAt: time.Now().Add(s.codeTTL),
	}
	if err := s.codes.Create(ctx, vc); err != nil {
		return "", err
	}
	metrics.CodesIssued.Inc()

	subject := "KOCMOC verification code"
	body := fmt.Sprintf("Your verification code is %s. It is valid for %d minutes.",
		code, int(s.codeTTL.Minutes()))
	if err := s.mail.Send(ctx, email, subject, body); err != nil {
		return code, fmt.Errorf("%w: %s", domain.ErrDelivery, err)
	}
	return code, nil
}

// SendCode re-issues a code for an already registered email.
func (s *AuthService) SendCode(ctx context.Context, email string) error {
	if email == "" {
		return domain.ErrInvalidInput
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	_, err = s.RequestCode(ctx, email, &user.ID)
	return err
}

// VerifyCode redeems the most recently created (email, code) row exactly
// once and issues a session for its user. Terminal failures: ErrNotFound,
// ErrCodeUsed, ErrCodeExpired.
func (s *AuthService) VerifyCode(ctx context.Context, email, code string) (*TokenResponse, error) {
	if email == "" || code == "" {
		return nil, domain.ErrInvalidInput
	}

	latest, err := s.codes.GetLatest(ctx, email, code)
	if err != nil {
		return nil, err
	}
	if latest.Used {
		return nil, domain.ErrCodeUsed
	}
	if time.Now().After(latest.ExpiresAt) {
		return nil, domain.ErrCodeExpired
	}
	if latest.UserID == nil {
		return nil, domain.ErrNotFound
	}

	user, err := s.users.GetByID(ctx, *latest.UserID)
	if err != nil {
		return nil, err
	}

	// Conditional flip: a concurrent redemption of the same row loses here.
	won, err := s.codes.MarkUsed(ctx, latest.ID)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, domain.ErrCodeUsed
	}

	token, err := s.sessions.Issue(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetOnline(ctx, user.ID, true); err != nil {
		return nil, fmt.Errorf("set online: %w", err)
	}
	return &TokenResponse{Token: token, User: user}, nil
}

// Login verifies email/password credentials and issues a session. Unknown
// email and wrong password fail identically.
func (s *AuthService) Login(ctx context.Context, email, password string) (*TokenResponse, error) {
	if email == "" || password == "" {
		return nil, domain.ErrInvalidInput
	}

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if err := s.hash.Verify(password, user.PasswordHash); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	token, err := s.sessions.Issue(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetOnline(ctx, user.ID, true); err != nil {
		return nil, fmt.Errorf("set online: %w", err)
	}
	return &TokenResponse{Token: token, User: user}, nil
}

// Logout revokes the session backing the token and marks the user offline.
// Revoking an already revoked token still succeeds.
func (s *AuthService) Logout(ctx context.Context, token, userID string) error {
	if err := s.sessions.Revoke(ctx, token); err != nil {
		return err
	}
	return s.users.SetOnline(ctx, userID, false)
}

// EnsureAdmin seeds the admin account when it does not exist yet.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("check admin: %w", err)
	}

	hashed, err := s.hash.Hash(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	return s.users.Create(ctx, &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hashed,
		DisplayName:  "Administrator",
		Role:         domain.RoleAdmin,
		Online:       false,
	})
}

// generateCode returns a uniformly random 6-digit numeric code.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
