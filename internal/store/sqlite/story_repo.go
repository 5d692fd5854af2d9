package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"kocmoc/internal/domain"
)

type StoryRepo struct {
	db *sql.DB
}

func NewStoryRepo(db *sql.DB) *StoryRepo {
	return &StoryRepo{db: db}
}

var _ domain.StoryRepository = (*StoryRepo)(nil)

func (r *StoryRepo) Create(ctx context.Context, s *domain.Story) error {
	// All timestamps are stored in UTC; an offset-bearing expiry from the
	// caller would otherwise round-trip as a string the driver cannot scan.
	s.CreatedAt = time.Now().UTC()
	s.ExpiresAt = s.ExpiresAt.UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO stories (id, user_id, type, media_url, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, s.ID, s.UserID, s.Type, s.MediaURL, s.CreatedAt, s.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert story: %w", err)
	}
	return nil
}

func (r *StoryRepo) GetByID(ctx context.Context, id string) (*domain.Story, error) {
	s := &domain.Story{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, type, media_url, created_at, expires_at
		FROM stories WHERE id = ?
	`, id).Scan(&s.ID, &s.UserID, &s.Type, &s.MediaURL, &s.CreatedAt, &s.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get story: %w", err)
	}
	return s, nil
}

func (r *StoryRepo) ListActive(ctx context.Context, now time.Time) ([]*domain.Story, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, type, media_url, created_at, expires_at
		FROM stories
		WHERE expires_at > ?
		ORDER BY created_at DESC
	`, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("list active stories: %w", err)
	}
	defer rows.Close()

	var res []*domain.Story
	for rows.Next() {
		s := &domain.Story{}
		if err := rows.Scan(&s.ID, &s.UserID, &s.Type, &s.MediaURL, &s.CreatedAt, &s.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scan story: %w", err)
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

func (r *StoryRepo) UpsertView(ctx context.Context, storyID, viewerID string, viewedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO story_views (story_id, viewer_id, viewed_at)
		VALUES (?, ?, ?)
		ON CONFLICT (story_id, viewer_id) DO UPDATE SET viewed_at = excluded.viewed_at
	`, storyID, viewerID, viewedAt.UTC())
	if err != nil {
		return fmt.Errorf("upsert story view: %w", err)
	}
	return nil
}

func (r *StoryRepo) GetView(ctx context.Context, storyID, viewerID string) (*domain.StoryView, error) {
	v := &domain.StoryView{}
	err := r.db.QueryRowContext(ctx, `
		SELECT story_id, viewer_id, viewed_at FROM story_views
		WHERE story_id = ? AND viewer_id = ?
	`, storyID, viewerID).Scan(&v.StoryID, &v.ViewerID, &v.ViewedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get story view: %w", err)
	}
	return v, nil
}
