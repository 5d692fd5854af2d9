package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"kocmoc/internal/domain"
)

type CodeRepo struct {
	db *sql.DB
}

func NewCodeRepo(db *sql.DB) *CodeRepo {
	return &CodeRepo{db: db}
}

var _ domain.VerificationCodeRepository = (*CodeRepo)(nil)

func (r *CodeRepo) Create(ctx context.Context, c *domain.VerificationCode) error {
	// Expiry arrives in the host's local zone; store it in UTC like every
	// other timestamp so it scans back as time.Time.
	c.CreatedAt = time.Now().UTC()
	c.ExpiresAt = c.ExpiresAt.UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO verification_codes (email, code, user_id, expires_at, used, created_at)
		VALUES (?, ?, ?, ?, 0, ?)
	`, c.Email, c.Code, c.UserID, c.ExpiresAt, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert verification code: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	c.ID = id
	return nil
}

func (r *CodeRepo) GetLatest(ctx context.Context, email, code string) (*domain.VerificationCode, error) {
	c := &domain.VerificationCode{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, code, user_id, expires_at, used, created_at
		FROM verification_codes
		WHERE email = ? AND code = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, email, code).Scan(&c.ID, &c.Email, &c.Code, &c.UserID, &c.ExpiresAt, &c.Used, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get verification code: %w", err)
	}
	return c, nil
}

// MarkUsed is a conditional update so two concurrent redemptions of the same
// row cannot both win.
func (r *CodeRepo) MarkUsed(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE verification_codes SET used = 1 WHERE id = ? AND used = 0
	`, id)
	if err != nil {
		return false, fmt.Errorf("mark code used: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark code used: %w", err)
	}
	return n == 1, nil
}
