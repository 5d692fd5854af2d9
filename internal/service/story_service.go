package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"kocmoc/internal/domain"
	"kocmoc/internal/metrics"
)

var validStoryTypes = map[string]struct{}{
	domain.StoryTypePhoto: {},
	domain.StoryTypeVideo: {},
	domain.StoryTypeText:  {},
}

// StoryService publishes time-bounded broadcast items and tracks views.
// Expiry is enforced at read time only; nothing ever sweeps expired rows.
type StoryService struct {
	stories domain.StoryRepository
}

func NewStoryService(stories domain.StoryRepository) *StoryService {
	return &StoryService{stories: stories}
}

// Publish creates a story owned by the caller. A story whose expiry is
// already in the past is stored anyway; it just never shows up in
// ListActive.
func (s *StoryService) Publish(ctx context.Context, userID, storyType, mediaURL string, expiresAt time.Time) (*domain.Story, error) {
	if storyType == "" || mediaURL == "" || expiresAt.IsZero() {
		return nil, domain.ErrInvalidInput
	}
	if _, ok := validStoryTypes[storyType]; !ok {
		return nil, domain.ErrInvalidInput
	}

	story := &domain.Story{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      storyType,
		MediaURL:  mediaURL,
		ExpiresAt: expiresAt,
	}
	if err := s.stories.Create(ctx, story); err != nil {
		return nil, err
	}
	metrics.StoriesPublished.Inc()
	return story, nil
}

// ListActive returns stories whose expiry is strictly in the future, newest
// first.
func (s *StoryService) ListActive(ctx context.Context) ([]*domain.Story, error) {
	return s.stories.ListActive(ctx, time.Now())
}

// RecordView upserts the (story, viewer) pair: a first view inserts a row, a
// repeat view only refreshes its timestamp.
func (s *StoryService) RecordView(ctx context.Context, storyID, viewerID string) error {
	if _, err := s.stories.GetByID(ctx, storyID); err != nil {
		return err
	}
	return s.stories.UpsertView(ctx, storyID, viewerID, time.Now().UTC())
}
