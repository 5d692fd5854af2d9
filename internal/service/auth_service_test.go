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

func newAuthService(users *MockUserRepo, codes *MockCodeRepo, sessions *MockSessionRepo, mail *MockMailer) *service.AuthService {
	tokenSvc := security.NewTokenService("secret", time.Hour)
	hasher := security.NewPasswordHasher(4) // low cost for tests
	sessionSvc := service.NewSessionService(tokenSvc, sessions, users)
	return service.NewAuthService(users, codes, sessionSvc, hasher, mail, 15*time.Minute)
}

func TestRegister(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		users := new(MockUserRepo)
		codes := new(MockCodeRepo)
		mail := new(MockMailer)
		svc := newAuthService(users, codes, new(MockSessionRepo), mail)

		users.On("GetByEmail", mock.Anything, "new@kocmoc.app").Return(nil, domain.ErrNotFound)
		users.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
			return u.Email == "new@kocmoc.app" && u.Role == domain.RoleMember && u.PasswordHash != "Password1!"
		})).Return(nil)
		codes.On("Create", mock.Anything, mock.Anything).Return(nil)
		mail.On("Send", mock.Anything, "new@kocmoc.app", mock.Anything, mock.Anything).Return(nil)

		user, err := svc.Register(context.Background(), service.RegisterInput{
			Email:       "new@kocmoc.app",
			Password:    "Password1!",
			DisplayName: "New User",
		})
		assert.NoError(t, err)
		assert.NotNil(t, user)
		assert.NotEmpty(t, user.ID)
		codes.AssertCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("EmailTaken", func(t *testing.T) {
		users := new(MockUserRepo)
		svc := newAuthService(users, new(MockCodeRepo), new(MockSessionRepo), new(MockMailer))

		users.On("GetByEmail", mock.Anything, "taken@kocmoc.app").Return(&domain.User{Email: "taken@kocmoc.app"}, nil)

		user, err := svc.Register(context.Background(), service.RegisterInput{
			Email:       "taken@kocmoc.app",
			Password:    "Password1!",
			DisplayName: "Dup",
		})
		assert.Nil(t, user)
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("MissingFields", func(t *testing.T) {
		svc := newAuthService(new(MockUserRepo), new(MockCodeRepo), new(MockSessionRepo), new(MockMailer))

		_, err := svc.Register(context.Background(), service.RegisterInput{Email: "x@y.z"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("DeliveryFailureKeepsUser", func(t *testing.T) {
		users := new(MockUserRepo)
		codes := new(MockCodeRepo)
		mail := new(MockMailer)
		svc := newAuthService(users, codes, new(MockSessionRepo), mail)

		users.On("GetByEmail", mock.Anything, "bounce@kocmoc.app").Return(nil, domain.ErrNotFound)
		users.On("Create", mock.Anything, mock.Anything).Return(nil)
		codes.On("Create", mock.Anything, mock.Anything).Return(nil)
		mail.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError)

		user, err := svc.Register(context.Background(), service.RegisterInput{
			Email:       "bounce@kocmoc.app",
			Password:    "Password1!",
			DisplayName: "Bounce",
		})
		assert.ErrorIs(t, err, domain.ErrDelivery)
		assert.NotNil(t, user)
	})
}

func TestVerifyCode(t *testing.T) {
	userID := "user-1"
	user := &domain.User{ID: userID, Email: "v@kocmoc.app"}

	fresh := func() *domain.VerificationCode {
		return &domain.VerificationCode{
			ID:        7,
			Email:     "v@kocmoc.app",
			Code:      "123456",
			UserID:    &userID,
			ExpiresAt: time.Now().Add(10 * time.Minute),
		}
	}

	t.Run("Success", func(t *testing.T) {
		users := new(MockUserRepo)
		codes := new(MockCodeRepo)
		sessions := new(MockSessionRepo)
		svc := newAuthService(users, codes, sessions, new(MockMailer))

		codes.On("GetLatest", mock.Anything, "v@kocmoc.app", "123456").Return(fresh(), nil)
		users.On("GetByID", mock.Anything, userID).Return(user, nil)
		codes.On("MarkUsed", mock.Anything, int64(7)).Return(true, nil)
		sessions.On("Create", mock.Anything, mock.Anything).Return(nil)
		users.On("SetOnline", mock.Anything, userID, true).Return(nil)

		resp, err := svc.VerifyCode(context.Background(), "v@kocmoc.app", "123456")
		assert.NoError(t, err)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, userID, resp.User.ID)
	})

	t.Run("WrongCode", func(t *testing.T) {
		codes := new(MockCodeRepo)
		svc := newAuthService(new(MockUserRepo), codes, new(MockSessionRepo), new(MockMailer))

		codes.On("GetLatest", mock.Anything, "v@kocmoc.app", "000000").Return(nil, domain.ErrNotFound)

		_, err := svc.VerifyCode(context.Background(), "v@kocmoc.app", "000000")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Expired", func(t *testing.T) {
		codes := new(MockCodeRepo)
		svc := newAuthService(new(MockUserRepo), codes, new(MockSessionRepo), new(MockMailer))

		expired := fresh()
		expired.ExpiresAt = time.Now().Add(-time.Minute)
		codes.On("GetLatest", mock.Anything, "v@kocmoc.app", "123456").Return(expired, nil)

		_, err := svc.VerifyCode(context.Background(), "v@kocmoc.app", "123456")
		assert.ErrorIs(t, err, domain.ErrCodeExpired)
	})

	t.Run("AlreadyUsed", func(t *testing.T) {
		codes := new(MockCodeRepo)
		svc := newAuthService(new(MockUserRepo), codes, new(MockSessionRepo), new(MockMailer))

		used := fresh()
		used.Used = true
		codes.On("GetLatest", mock.Anything, "v@kocmoc.app", "123456").Return(used, nil)

		_, err := svc.VerifyCode(context.Background(), "v@kocmoc.app", "123456")
		assert.ErrorIs(t, err, domain.ErrCodeUsed)
	})

	t.Run("LostRedemptionRace", func(t *testing.T) {
		users := new(MockUserRepo)
		codes := new(MockCodeRepo)
		svc := newAuthService(users, codes, new(MockSessionRepo), new(MockMailer))

		codes.On("GetLatest", mock.Anything, "v@kocmoc.app", "123456").Return(fresh(), nil)
		users.On("GetByID", mock.Anything, userID).Return(user, nil)
		codes.On("MarkUsed", mock.Anything, int64(7)).Return(false, nil)

		_, err := svc.VerifyCode(context.Background(), "v@kocmoc.app", "123456")
		assert.ErrorIs(t, err, domain.ErrCodeUsed)
	})
}

func TestLogin(t *testing.T) {
	hasher := security.NewPasswordHasher(4)
	hash, _ := hasher.Hash("Password1!")
	user := &domain.User{ID: "user-1", Email: "l@kocmoc.app", PasswordHash: hash}

	t.Run("Success", func(t *testing.T) {
		users := new(MockUserRepo)
		sessions := new(MockSessionRepo)
		svc := newAuthService(users, new(MockCodeRepo), sessions, new(MockMailer))

		users.On("GetByEmail", mock.Anything, "l@kocmoc.app").Return(user, nil)
		sessions.On("Create", mock.Anything, mock.Anything).Return(nil)
		users.On("SetOnline", mock.Anything, "user-1", true).Return(nil)

		resp, err := svc.Login(context.Background(), "l@kocmoc.app", "Password1!")
		assert.NoError(t, err)
		assert.NotEmpty(t, resp.Token)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		users := new(MockUserRepo)
		svc := newAuthService(users, new(MockCodeRepo), new(MockSessionRepo), new(MockMailer))

		users.On("GetByEmail", mock.Anything, "l@kocmoc.app").Return(user, nil)

		_, err := svc.Login(context.Background(), "l@kocmoc.app", "wrong")
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})

	t.Run("UnknownEmailSameError", func(t *testing.T) {
		users := new(MockUserRepo)
		svc := newAuthService(users, new(MockCodeRepo), new(MockSessionRepo), new(MockMailer))

		users.On("GetByEmail", mock.Anything, "nobody@kocmoc.app").Return(nil, domain.ErrNotFound)

		_, err := svc.Login(context.Background(), "nobody@kocmoc.app", "Password1!")
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})
}

func TestLogout(t *testing.T) {
	users := new(MockUserRepo)
	sessions := new(MockSessionRepo)
	svc := newAuthService(users, new(MockCodeRepo), sessions, new(MockMailer))

	sessions.On("DeleteByToken", mock.Anything, "tok").Return(nil)
	users.On("SetOnline", mock.Anything, "user-1", false).Return(nil)

	assert.NoError(t, svc.Logout(context.Background(), "tok", "user-1"))
	// Revoking again is still fine.
	assert.NoError(t, svc.Logout(context.Background(), "tok", "user-1"))
}
