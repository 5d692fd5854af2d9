package postgres

import (
	"context"
	"database/sql"
	"fmt"

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

	err = tx.QueryRowContext(ctx, `
		INSERT INTO chats (id, is_group, name, direct_key, created_at)
		VALUES ($1, FALSE, NULL, $2, NOW())
		RETURNING created_at
	`, c.ID, directKey(userA, userB)).Scan(&c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert direct chat: %w", err)
	}

	for _, uid := range []string{userA, userB} {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO chat_members (chat_id, user_id, role, joined_at)
			VALUES ($1, $2, 'member', NOW())
		`, c.ID, uid); err != nil {
			return fmt.Errorf("insert member %s: %w", uid, err)
		}
	}

	return tx.Commit()
}

func (r *ChatRepo) GetDirect(ctx context.Context, userA, userB string) (*domain.Chat, error) {
	return r.scanChat(ctx, `
		SELECT id, is_group, name, created_at FROM chats WHERE direct_key = $1
	`, directKey(userA, userB))
}

func (r *ChatRepo) CreateGroup(ctx context.Context, c *domain.Chat, ownerID string, memberIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO chats (id, is_group, name, direct_key, created_at)
		VALUES ($1, TRUE, $2, NULL, NOW())
		RETURNING created_at
	`, c.ID, c.Name).Scan(&c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert group chat: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO chat_members (chat_id, user_id, role, joined_at)
		VALUES ($1, $2, 'owner', NOW())
	`, c.ID, ownerID); err != nil {
		return fmt.Errorf("insert owner: %w", err)
	}
	for _, uid := range memberIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO chat_members (chat_id, user_id, role, joined_at)
			VALUES ($1, $2, 'member', NOW())
			ON CONFLICT DO NOTHING
		`, c.ID, uid); err != nil {
			return fmt.Errorf("insert member %s: %w", uid, err)
		}
	}

	return tx.Commit()
}

func (r *ChatRepo) GetByID(ctx context.Context, id string) (*domain.Chat, error) {
	return r.scanChat(ctx, `
		SELECT id, is_group, name, created_at FROM chats WHERE id = $1
	`, id)
}

func (r *ChatRepo) ListForUser(ctx context.Context, userID string) ([]*domain.ChatSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.is_group, c.name, c.created_at,
		       m.text AS last_text,
		       m.created_at AS last_message_at
		FROM chats c
		JOIN chat_members cm ON cm.chat_id = c.id
		LEFT JOIN LATERAL (
			SELECT text, created_at
			FROM messages
			WHERE chat_id = c.id AND deleted = FALSE
			ORDER BY created_at DESC
			LIMIT 1
		) m ON TRUE
		WHERE cm.user_id = $1
		ORDER BY last_message_at DESC NULLS LAST, c.created_at DESC
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
	if _, err := r.db.ExecContext(ctx, `DELETE FROM chats WHERE id = $1`, id); err != nil {
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
