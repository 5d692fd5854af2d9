package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"kocmoc/internal/domain"
)

type MemberRepo struct {
	db *sql.DB
}

func NewMemberRepo(db *sql.DB) *MemberRepo {
	return &MemberRepo{db: db}
}

var _ domain.MemberRepository = (*MemberRepo)(nil)

func (r *MemberRepo) IsMember(ctx context.Context, chatID, userID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM chat_members WHERE chat_id = ? AND user_id = ?
		)
	`, chatID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return exists, nil
}

func (r *MemberRepo) Add(ctx context.Context, chatID, userID, role string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO chat_members (chat_id, user_id, role, joined_at)
		VALUES (?, ?, ?, ?)
	`, chatID, userID, role, time.Now().UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert membership: %w", err)
	}
	return nil
}

func (r *MemberRepo) List(ctx context.Context, chatID string) ([]*domain.MemberView, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT u.id, u.display_name, u.avatar_url, cm.role, u.online, u.last_seen, cm.joined_at
		FROM chat_members cm
		JOIN users u ON u.id = cm.user_id
		WHERE cm.chat_id = ?
		ORDER BY cm.joined_at ASC
	`, chatID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var res []*domain.MemberView
	for rows.Next() {
		m := &domain.MemberView{}
		if err := rows.Scan(&m.UserID, &m.DisplayName, &m.AvatarURL, &m.Role, &m.Online, &m.LastSeen, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		res = append(res, m)
	}
	return res, rows.Err()
}
