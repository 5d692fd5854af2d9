package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Open opens a PostgreSQL database using the pgx stdlib driver.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Migrate runs idempotent DDL migrations for the kocmoc schema on PostgreSQL.
func Migrate(db *sql.DB) error {
	stmts := []string{
		// Users
		`CREATE TABLE IF NOT EXISTS users (
			id            UUID        PRIMARY KEY,
			email         TEXT        UNIQUE NOT NULL,
			password_hash TEXT        NOT NULL,
			display_name  TEXT        NOT NULL,
			avatar_url    TEXT,
			role          TEXT        NOT NULL DEFAULT 'member',
			online        BOOLEAN     NOT NULL DEFAULT FALSE,
			last_seen     TIMESTAMPTZ,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		// Sessions: one row per live bearer token
		`CREATE TABLE IF NOT EXISTS sessions (
			id         BIGSERIAL   PRIMARY KEY,
			user_id    UUID        NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			token      TEXT        NOT NULL UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		// Verification codes
		`CREATE TABLE IF NOT EXISTS verification_codes (
			id         BIGSERIAL   PRIMARY KEY,
			email      TEXT        NOT NULL,
			code       TEXT        NOT NULL,
			user_id    UUID        REFERENCES users(id) ON DELETE CASCADE,
			expires_at TIMESTAMPTZ NOT NULL,
			used       BOOLEAN     NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		// Chats. direct_key is the normalized "<minUserID>:<maxUserID>" pair
		// for direct chats and NULL for groups; its uniqueness is what makes
		// concurrent direct-chat creation settle on a single winner.
		`CREATE TABLE IF NOT EXISTS chats (
			id         UUID        PRIMARY KEY,
			is_group   BOOLEAN     NOT NULL DEFAULT FALSE,
			name       TEXT,
			direct_key TEXT        UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		// Chat members
		`CREATE TABLE IF NOT EXISTS chat_members (
			chat_id   UUID        NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
			user_id   UUID        NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			role      TEXT        NOT NULL DEFAULT 'member',
			joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (chat_id, user_id)
		)`,

		// Messages
		`CREATE TABLE IF NOT EXISTS messages (
			id          UUID        PRIMARY KEY,
			chat_id     UUID        NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
			sender_id   UUID        NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			type        TEXT        NOT NULL,
			text        TEXT,
			file_url    TEXT,
			audio_url   TEXT,
			sticker_url TEXT,
			edited      BOOLEAN     NOT NULL DEFAULT FALSE,
			deleted     BOOLEAN     NOT NULL DEFAULT FALSE,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		// Stories
		`CREATE TABLE IF NOT EXISTS stories (
			id         UUID        PRIMARY KEY,
			user_id    UUID        NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			type       TEXT        NOT NULL CHECK (type IN ('photo','video','text')),
			media_url  TEXT        NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			expires_at TIMESTAMPTZ NOT NULL
		)`,

		// Story views
		`CREATE TABLE IF NOT EXISTS story_views (
			story_id  UUID        NOT NULL REFERENCES stories(id) ON DELETE CASCADE,
			viewer_id UUID        NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			viewed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (story_id, viewer_id)
		)`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_token ON sessions(token)`,
		`CREATE INDEX IF NOT EXISTS idx_codes_email_code ON verification_codes(email, code, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_members_user ON chat_members(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_chat_created ON messages(chat_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_stories_expires ON stories(expires_at)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w\nSQL: %s", err, stmt)
		}
	}
	return nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique-constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
