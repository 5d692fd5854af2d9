package domain

import (
	"context"
	"time"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	// List returns all users except excludeID, ordered by display name.
	List(ctx context.Context, excludeID string) ([]*User, error)
	UpdateProfile(ctx context.Context, id string, displayName, avatarURL *string) error
	SetOnline(ctx context.Context, id string, online bool) error
}

// SessionRepository defines persistence operations for bearer sessions.
type SessionRepository interface {
	Create(ctx context.Context, s *Session) error
	// GetByToken returns ErrNotFound when no session backs the token.
	GetByToken(ctx context.Context, token string) (*Session, error)
	// DeleteByToken is idempotent: deleting an absent token is not an error.
	DeleteByToken(ctx context.Context, token string) error
}

// VerificationCodeRepository defines persistence operations for one-time codes.
type VerificationCodeRepository interface {
	Create(ctx context.Context, c *VerificationCode) error
	// GetLatest returns the most recently created row matching (email, code),
	// or ErrNotFound.
	GetLatest(ctx context.Context, email, code string) (*VerificationCode, error)
	// MarkUsed flips used to true iff it is still false. It reports whether
	// this call won the flip, so two concurrent redemptions cannot both
	// succeed.
	MarkUsed(ctx context.Context, id int64) (bool, error)
}

// ChatRepository defines persistence operations for chats.
type ChatRepository interface {
	// CreateDirect atomically inserts the chat and both membership rows.
	// A concurrent insert for the same unordered pair loses with ErrConflict.
	CreateDirect(ctx context.Context, c *Chat, userA, userB string) error
	// GetDirect finds the direct chat for an unordered user pair, or ErrNotFound.
	GetDirect(ctx context.Context, userA, userB string) (*Chat, error)
	// CreateGroup atomically inserts the chat, the owner membership, and one
	// member row per id in memberIDs.
	CreateGroup(ctx context.Context, c *Chat, ownerID string, memberIDs []string) error
	GetByID(ctx context.Context, id string) (*Chat, error)
	// ListForUser returns the user's chats with latest non-deleted message
	// previews, most recently active first.
	ListForUser(ctx context.Context, userID string) ([]*ChatSummary, error)
	// Delete removes the chat; memberships and messages cascade.
	Delete(ctx context.Context, id string) error
}

// MemberRepository defines operations on chat memberships.
type MemberRepository interface {
	IsMember(ctx context.Context, chatID, userID string) (bool, error)
	// Add inserts a membership row, ErrConflict if the pair already exists.
	Add(ctx context.Context, chatID, userID, role string) error
	// List returns members ordered by join time ascending.
	List(ctx context.Context, chatID string) ([]*MemberView, error)
}

// MessageRepository defines persistence operations for messages.
type MessageRepository interface {
	Create(ctx context.Context, m *Message) error
	GetByID(ctx context.Context, id string) (*Message, error)
	// ListForChat returns messages ascending by creation time.
	ListForChat(ctx context.Context, chatID string, limit, offset int) ([]*Message, error)
	// SetText replaces the text and sets edited. Edited never resets.
	SetText(ctx context.Context, id, text string) error
	// MarkDeleted sets deleted. Deleted never resets; the row is retained.
	MarkDeleted(ctx context.Context, id string) error
}

// StoryRepository defines persistence operations for stories and views.
type StoryRepository interface {
	Create(ctx context.Context, s *Story) error
	GetByID(ctx context.Context, id string) (*Story, error)
	// ListActive returns stories with expiry strictly after now, newest first.
	ListActive(ctx context.Context, now time.Time) ([]*Story, error)
	// UpsertView records a view; a repeat view refreshes the timestamp.
	UpsertView(ctx context.Context, storyID, viewerID string, viewedAt time.Time) error
	GetView(ctx context.Context, storyID, viewerID string) (*StoryView, error)
}
