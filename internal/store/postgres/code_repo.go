package postgres

import (
	"context"
	"database/sql"
	"fmt"

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
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO verification_codes (email, code, user_id, expires_at, used, created_at)
		VALUES ($1, $2, $3, $4, FALSE, NOW())
		RETURNING id, created_at
	`, c.Email, c.Code, c.UserID, c.ExpiresAt).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert verification code: %w", err)
	}
	return nil
}

func (r *CodeRepo) GetLatest(ctx context.Context, email, code string) (*domain.VerificationCode, error) {
	c := &domain.VerificationCode{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, code, user_id, expires_at, used, created_at
		FROM verification_codes
		WHERE email = $1 AND code = $2
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
		UPDATE verification_codes SET used = TRUE WHERE id = $1 AND used = FALSE
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
