package service

import (
	"context"

	"kocmoc/internal/domain"
)

// UserService provides the user directory and profile updates.
type UserService struct {
	users domain.UserRepository
}

func NewUserService(users domain.UserRepository) *UserService {
	return &UserService{users: users}
}

func (s *UserService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

// List returns all users except the caller, ordered by display name.
func (s *UserService) List(ctx context.Context, callerID string) ([]*domain.User, error) {
	return s.users.List(ctx, callerID)
}

// UpdateProfile changes a user's display name and/or avatar. Users may only
// edit their own profile, and at least one field must be provided.
func (s *UserService) UpdateProfile(ctx context.Context, callerID, targetID string, displayName, avatarURL *string) (*domain.User, error) {
	if targetID != callerID {
		return nil, domain.ErrForbidden
	}
	// Empty strings count as "not provided" so they never wipe a field.
	norm := func(p *string) *string {
		if p == nil || *p == "" {
			return nil
		}
		return p
	}
	displayName, avatarURL = norm(displayName), norm(avatarURL)
	if displayName == nil && avatarURL == nil {
		return nil, domain.ErrInvalidInput
	}
	if err := s.users.UpdateProfile(ctx, targetID, displayName, avatarURL); err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, targetID)
}
