package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"kocmoc/internal/domain"
	"kocmoc/internal/service"
)

func TestUpdateProfile(t *testing.T) {
	t.Run("SelfOnly", func(t *testing.T) {
		svc := service.NewUserService(new(MockUserRepo))

		name := "New Name"
		_, err := svc.UpdateProfile(context.Background(), "alice", "bob", &name, nil)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("AtLeastOneField", func(t *testing.T) {
		svc := service.NewUserService(new(MockUserRepo))

		_, err := svc.UpdateProfile(context.Background(), "alice", "alice", nil, nil)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)

		empty := ""
		_, err = svc.UpdateProfile(context.Background(), "alice", "alice", &empty, nil)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("EmptyStringNeverWipesField", func(t *testing.T) {
		users := new(MockUserRepo)
		svc := service.NewUserService(users)

		empty := ""
		avatar := "https://cdn.kocmoc.app/a.png"
		// The blank display name is treated as unset, not as a new value.
		users.On("UpdateProfile", mock.Anything, "alice", (*string)(nil), &avatar).Return(nil)
		users.On("GetByID", mock.Anything, "alice").Return(&domain.User{ID: "alice", AvatarURL: &avatar}, nil)

		got, err := svc.UpdateProfile(context.Background(), "alice", "alice", &empty, &avatar)
		assert.NoError(t, err)
		assert.Equal(t, avatar, *got.AvatarURL)
		users.AssertExpectations(t)
	})

	t.Run("Success", func(t *testing.T) {
		users := new(MockUserRepo)
		svc := service.NewUserService(users)

		name := "New Name"
		users.On("UpdateProfile", mock.Anything, "alice", &name, (*string)(nil)).Return(nil)
		users.On("GetByID", mock.Anything, "alice").Return(&domain.User{ID: "alice", DisplayName: name}, nil)

		got, err := svc.UpdateProfile(context.Background(), "alice", "alice", &name, nil)
		assert.NoError(t, err)
		assert.Equal(t, name, got.DisplayName)
	})
}
