package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"kocmoc/internal/domain"
)

type ChatRepo struct {
	db *sql.DB
}

func NewChatRepo(db *sql.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

var _ domain.ChatRepository = (*ChatRepo)(nil)

// directKey normalizes an unordered user pair into the unique key stored on
// direct chats.
func directKey(userA, userB string) string {
	if userB < userA {
		userA, userB = userB, userA
	}
	return userA + ":" + userB
}

func (r *ChatRepo) CreateDirect(ctx context.Context, c *domain.Chat, userA, userB string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	c.CreatedAt = now
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO chats (id, is_group, name, direct_key, created_at)
		VALUES (?, 0, NULL, ?, ?)
	`, c.ID, directKey(userA, userB), now); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert direct chat: %w", err)
	}

	for _, uid := range []string{userA, userB} {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO chat_members (chat_id, user_id, role, joined_at)
			VALUES (?, ?, 'member', ?)
		`, c.ID, uid, now); err != nil {
			return fmt.Errorf("insert member %s: %w", uid, err)
		}
	}

	return tx.Commit()
}

func (r *ChatRepo) GetDirect(ctx context.Context, userA, userB string) (*domain.Chat, error) {
	return r.scanChat(ctx, `
		SELECT id, is_group, name, created_at FROM chats WHERE direct_key = ?
	`, directKey(userA, userB))
}

func (r *ChatRepo) CreateGroup(ctx context.Context, c *domain.Chat, ownerID string, memberIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	c.CreatedAt = now
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO chats (id, is_group, name, direct_key, created_at)
		VALUES (?, 1, ?, NULL, ?)
	`, c.ID, c.Name, now); err != nil {
		return fmt.Errorf("insert group chat: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO chat_members (chat_id, user_id, role, joined_at)
		VALUES (?, ?, 'owner', ?)
	`, c.ID, ownerID, now); err != nil {
		return fmt.Errorf("insert owner: %w", err)
	}
	for _, uid := range memberIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO chat_members (chat_id, user_id, role, joined_at)
			VALUES (?, ?, 'member', ?)
		`, c.ID, uid, now); err != nil {
			return fmt.Errorf("insert member %s: %w", uid, err)
		}
	}

	return tx.Commit()
}

func (r *ChatRepo) GetByID(ctx context.Context, id string) (*domain.Chat, error) {
	return r.scanChat(ctx, `
		SELECT id, is_group, name, created_at FROM chats WHERE id = ?
	`, id)
}

func (r *ChatRepo) ListForUser(ctx context.Context, userID string) ([]*domain.ChatSummary, error) {
	// Joining on the latest message id keeps m.text and m.created_at real
	// table columns, which the sqlite driver maps back to their Go types.
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.is_group, c.name, c.created_at,
		       m.text AS last_text,
		       m.created_at AS last_message_at
		FROM chats c
		JOIN chat_members cm ON cm.chat_id = c.id
		LEFT JOIN messages m ON m.id = (
			SELECT id FROM messages
			WHERE chat_id = c.id AND deleted = 0
			ORDER BY created_at DESC
			LIMIT 1
		)
		WHERE cm.user_id = ?
		ORDER BY m.created_at IS NULL, m.created_at DESC, c.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	defer rows.Close()

	var res []*domain.ChatSummary
	for rows.Next() {
		s := &domain.ChatSummary{}
		if err := rows.Scan(&s.ID, &s.IsGroup, &s.Name, &s.CreatedAt, &s.LastText, &s.LastMessageAt); err != nil {
			return nil, fmt.Errorf("scan chat summary: %w", err)
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

func (r *ChatRepo) Delete(ctx context.Context, id string) error {
	// Memberships and messages cascade via foreign keys.
	if _, err := r.db.ExecContext(ctx, `DELETE FROM chats WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete chat: %w", err)
	}
	return nil
}

func (r *ChatRepo) scanChat(ctx context.Context, query string, args ...any) (*domain.Chat, error) {
	c := &domain.Chat{}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&c.ID, &c.IsGroup, &c.Name, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get chat: %w", err)
	}
	return c, nil
}
