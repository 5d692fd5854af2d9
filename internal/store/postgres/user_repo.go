package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"kocmoc/internal/domain"
)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

var _ domain.UserRepository = (*UserRepo)(nil)

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO users (id, email, password_hash, display_name, avatar_url, role, online, last_seen, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING last_seen, created_at
	`, u.ID, u.Email, u.PasswordHash, u.DisplayName, u.AvatarURL, u.Role, u.Online,
	).Scan(&u.LastSeen, &u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.scanUser(ctx,
		`SELECT id, email, password_hash, display_name, avatar_url, role, online, last_seen, created_at
		 FROM users WHERE id = $1`, id)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.scanUser(ctx,
		`SELECT id, email, password_hash, display_name, avatar_url, role, online, last_seen, created_at
		 FROM users WHERE email = $1`, email)
}

func (r *UserRepo) List(ctx context.Context, excludeID string) ([]*domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, email, password_hash, display_name, avatar_url, role, online, last_seen, created_at
		FROM users
		WHERE id != $1
		ORDER BY display_name ASC
	`, excludeID)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return r.scanUsers(rows)
}

func (r *UserRepo) UpdateProfile(ctx context.Context, id string, displayName, avatarURL *string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET display_name = COALESCE($1, display_name),
		    avatar_url   = COALESCE($2, avatar_url)
		WHERE id = $3
	`, displayName, avatarURL, id)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

func (r *UserRepo) SetOnline(ctx context.Context, id string, online bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET online = $1, last_seen = NOW() WHERE id = $2`,
		online, id,
	)
	return err
}

// ── helpers ──────────────────────────────────────────────────────────────────

func (r *UserRepo) scanUser(ctx context.Context, query string, args ...any) (*domain.User, error) {
	u := &domain.User{}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.AvatarURL,
		&u.Role, &u.Online, &u.LastSeen, &u.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

func (r *UserRepo) scanUsers(rows *sql.Rows) ([]*domain.User, error) {
	defer rows.Close()
	var users []*domain.User
	for rows.Next() {
		u := &domain.User{}
		if err := rows.Scan(
			&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.AvatarURL,
			&u.Role, &u.Online, &u.LastSeen, &u.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
