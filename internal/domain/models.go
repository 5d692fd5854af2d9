package domain

import "time"

// User roles carried on the authenticated identity.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
	RoleOwner  = "owner"
)

// Message payload types.
const (
	MessageTypeText    = "text"
	MessageTypeFile    = "file"
	MessageTypeAudio   = "audio"
	MessageTypeSticker = "sticker"
)

// Story types.
const (
	StoryTypePhoto = "photo"
	StoryTypeVideo = "video"
	StoryTypeText  = "text"
)

// User represents an application user.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	DisplayName  string     `db:"display_name" json:"display_name"`
	AvatarURL    *string    `db:"avatar_url" json:"avatar_url,omitempty"`
	Role         string     `db:"role" json:"role"`
	Online       bool       `db:"online" json:"online"`
	LastSeen     *time.Time `db:"last_seen" json:"last_seen,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

// Session is the persisted record backing one bearer token. A token is
// valid exactly as long as its session row exists.
type Session struct {
	ID        int64     `db:"id"`
	UserID    string    `db:"user_id"`
	Token     string    `db:"token"`
	CreatedAt time.Time `db:"created_at"`
}

// VerificationCode is a single-use, time-boxed code proving control of an
// email address.
type VerificationCode struct {
	ID        int64     `db:"id"`
	Email     string    `db:"email"`
	Code      string    `db:"code"`
	UserID    *string   `db:"user_id"`
	ExpiresAt time.Time `db:"expires_at"`
	Used      bool      `db:"used"`
	CreatedAt time.Time `db:"created_at"`
}

// Chat represents a conversation, either direct (exactly two members) or
// group. At most one direct chat exists per unordered user pair.
type Chat struct {
	ID        string    `db:"id" json:"id"`
	IsGroup   bool      `db:"is_group" json:"is_group"`
	Name      *string   `db:"name" json:"name,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ChatSummary is a chat enriched with its latest non-deleted message, used
// for chat list previews.
type ChatSummary struct {
	Chat
	LastText      *string    `json:"last_text,omitempty"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
}

// MemberView is a chat member joined with user profile fields, ordered by
// join time when listed.
type MemberView struct {
	UserID      string     `json:"id"`
	DisplayName string     `json:"display_name"`
	AvatarURL   *string    `json:"avatar_url,omitempty"`
	Role        string     `json:"role"`
	Online      bool       `json:"online"`
	LastSeen    *time.Time `json:"last_seen,omitempty"`
	JoinedAt    time.Time  `json:"joined_at"`
}

// Message is one entry in a chat's append-mostly ledger. Sender and chat
// are immutable after creation; edited and deleted only ever flip to true.
type Message struct {
	ID         string    `db:"id" json:"id"`
	ChatID     string    `db:"chat_id" json:"chat_id"`
	SenderID   string    `db:"sender_id" json:"sender_id"`
	Type       string    `db:"type" json:"type"`
	Text       *string   `db:"text" json:"text,omitempty"`
	FileURL    *string   `db:"file_url" json:"file_url,omitempty"`
	AudioURL   *string   `db:"audio_url" json:"audio_url,omitempty"`
	StickerURL *string   `db:"sticker_url" json:"sticker_url,omitempty"`
	Edited     bool      `db:"edited" json:"edited"`
	Deleted    bool      `db:"deleted" json:"deleted"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// HasPayload reports whether at least one payload field is populated.
func (m *Message) HasPayload() bool {
	notEmpty := func(p *string) bool { return p != nil && *p != "" }
	return notEmpty(m.Text) || notEmpty(m.FileURL) || notEmpty(m.AudioURL) || notEmpty(m.StickerURL)
}

// Story is a broadcast item visible only while now < ExpiresAt. Expiry is
// enforced at read time; there is no sweep process.
type Story struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Type      string    `db:"type" json:"type"`
	MediaURL  string    `db:"media_url" json:"media_url"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
}

// StoryView records that a viewer has seen a story. One row per
// (story, viewer) pair; repeat views refresh ViewedAt.
type StoryView struct {
	StoryID  string    `db:"story_id" json:"story_id"`
	ViewerID string    `db:"viewer_id" json:"viewer_id"`
	ViewedAt time.Time `db:"viewed_at" json:"viewed_at"`
}
