package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"kocmoc/internal/domain"
)

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

var _ domain.MessageRepository = (*MessageRepo)(nil)

func (r *MessageRepo) Create(ctx context.Context, m *domain.Message) error {
	m.CreatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO messages
			(id, chat_id, sender_id, type, text, file_url, audio_url, sticker_url, edited, deleted, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, 0, ?)
	`, m.ID, m.ChatID, m.SenderID, m.Type,
		m.Text, m.FileURL, m.AudioURL, m.StickerURL, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (r *MessageRepo) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	m := &domain.Message{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, chat_id, sender_id, type, text, file_url, audio_url, sticker_url, edited, deleted, created_at
		FROM messages WHERE id = ?
	`, id).Scan(
		&m.ID, &m.ChatID, &m.SenderID, &m.Type,
		&m.Text, &m.FileURL, &m.AudioURL, &m.StickerURL,
		&m.Edited, &m.Deleted, &m.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	return m, nil
}

func (r *MessageRepo) ListForChat(ctx context.Context, chatID string, limit, offset int) ([]*domain.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, chat_id, sender_id, type, text, file_url, audio_url, sticker_url, edited, deleted, created_at
		FROM messages
		WHERE chat_id = ?
		ORDER BY created_at ASC
		LIMIT ? OFFSET ?
	`, chatID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return r.scanMessages(rows)
}

func (r *MessageRepo) SetText(ctx context.Context, id, text string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE messages SET text = ?, edited = 1 WHERE id = ?
	`, text, id)
	if err != nil {
		return fmt.Errorf("edit message: %w", err)
	}
	return nil
}

func (r *MessageRepo) MarkDeleted(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE messages SET deleted = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

func (r *MessageRepo) scanMessages(rows *sql.Rows) ([]*domain.Message, error) {
	defer rows.Close()
	var res []*domain.Message
	for rows.Next() {
		m := &domain.Message{}
		if err := rows.Scan(
			&m.ID, &m.ChatID, &m.SenderID, &m.Type,
			&m.Text, &m.FileURL, &m.AudioURL, &m.StickerURL,
			&m.Edited, &m.Deleted, &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		res = append(res, m)
	}
	return res, rows.Err()
}
