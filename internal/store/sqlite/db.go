package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Open opens a SQLite database with the given DSN.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	return db, nil
}

// Migrate runs idempotent DDL migrations for the kocmoc schema on SQLite.
// Timestamps are written from Go so ordering keeps sub-second resolution.
func Migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			email         TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			display_name  TEXT NOT NULL,
			avatar_url    TEXT,
			role          TEXT NOT NULL DEFAULT 'member',
			online        BOOLEAN NOT NULL DEFAULT 0,
			last_seen     TIMESTAMP,
			created_at    TIMESTAMP NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id         INTEGER PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			token      TEXT NOT NULL UNIQUE,
			created_at TIMESTAMP NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS verification_codes (
			id         INTEGER PRIMARY KEY,
			email      TEXT NOT NULL,
			code       TEXT NOT NULL,
			user_id    TEXT REFERENCES users(id) ON DELETE CASCADE,
			expires_at TIMESTAMP NOT NULL,
			used       BOOLEAN NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		);`,
		// direct_key is "<minUserID>:<maxUserID>" for direct chats, NULL for
		// groups; its uniqueness makes concurrent direct-chat creation settle
		// on a single winner.
		`CREATE TABLE IF NOT EXISTS chats (
			id         TEXT PRIMARY KEY,
			is_group   BOOLEAN NOT NULL DEFAULT 0,
			name       TEXT,
			direct_key TEXT UNIQUE,
			created_at TIMESTAMP NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS chat_members (
			chat_id   TEXT NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
			user_id   TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			role      TEXT NOT NULL DEFAULT 'member',
			joined_at TIMESTAMP NOT NULL,
			PRIMARY KEY (chat_id, user_id)
		);`,
		`CREATE TABLE IF NOT EXISTS messages (
			id          TEXT PRIMARY KEY,
			chat_id     TEXT NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
			sender_id   TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			type        TEXT NOT NULL,
			text        TEXT,
			file_url    TEXT,
			audio_url   TEXT,
			sticker_url TEXT,
			edited      BOOLEAN NOT NULL DEFAULT 0,
			deleted     BOOLEAN NOT NULL DEFAULT 0,
			created_at  TIMESTAMP NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS stories (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			type       TEXT NOT NULL CHECK (type IN ('photo','video','text')),
			media_url  TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			expires_at TIMESTAMP NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS story_views (
			story_id  TEXT NOT NULL REFERENCES stories(id) ON DELETE CASCADE,
			viewer_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			viewed_at TIMESTAMP NOT NULL,
			PRIMARY KEY (story_id, viewer_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_token ON sessions(token);`,
		`CREATE INDEX IF NOT EXISTS idx_codes_email_code ON verification_codes(email, code, created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_chat_members_user ON chat_members(user_id);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_chat_created ON messages(chat_id, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_stories_expires ON stories(expires_at);`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// isUniqueViolation reports whether err is a SQLite unique or primary-key
// constraint violation.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
		se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
