package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"kocmoc/internal/domain"
	"kocmoc/internal/metrics"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

var validMessageTypes = map[string]struct{}{
	domain.MessageTypeText:    {},
	domain.MessageTypeFile:    {},
	domain.MessageTypeAudio:   {},
	domain.MessageTypeSticker: {},
}

// MessageService is the chat ledger: membership-gated append and read,
// sender-scoped mutation, and content-copy forwarding.
type MessageService struct {
	chats    domain.ChatRepository
	members  domain.MemberRepository
	messages domain.MessageRepository
}

func NewMessageService(chats domain.ChatRepository, members domain.MemberRepository, messages domain.MessageRepository) *MessageService {
	return &MessageService{
		chats:    chats,
		members:  members,
		messages: messages,
	}
}

type MessageInput struct {
	Type       string
	Text       *string
	FileURL    *string
	AudioURL   *string
	StickerURL *string
}

// Append adds a message to a chat's ledger. The sender must be a member and
// at least one payload field must be populated.
func (s *MessageService) Append(ctx context.Context, chatID, senderID string, in MessageInput) (*domain.Message, error) {
	if _, err := s.chats.GetByID(ctx, chatID); err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, chatID, senderID); err != nil {
		return nil, err
	}

	if in.Type == "" {
		in.Type = domain.MessageTypeText
	}
	if _, ok := validMessageTypes[in.Type]; !ok {
		return nil, domain.ErrInvalidInput
	}

	msg := &domain.Message{
		ID:         uuid.NewString(),
		ChatID:     chatID,
		SenderID:   senderID,
		Type:       in.Type,
		Text:       in.Text,
		FileURL:    in.FileURL,
		AudioURL:   in.AudioURL,
		StickerURL: in.StickerURL,
	}
	if !msg.HasPayload() {
		return nil, domain.ErrInvalidInput
	}

	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}
	metrics.MessagesAppended.Inc()
	return msg, nil
}

// List returns a chat's messages ascending by creation time, as a plain
// limit/offset window. Concurrent inserts can shift pages; that is the
// accepted trade-off of offset pagination.
func (s *MessageService) List(ctx context.Context, chatID, callerID string, limit, offset int) ([]*domain.Message, error) {
	if _, err := s.chats.GetByID(ctx, chatID); err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, chatID, callerID); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.messages.ListForChat(ctx, chatID, limit, offset)
}

// Edit replaces a message's text. Only the original sender may edit; the
// edited flag is set and never resets.
func (s *MessageService) Edit(ctx context.Context, messageID, callerID, newText string) (*domain.Message, error) {
	if newText == "" {
		return nil, domain.ErrInvalidInput
	}
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != callerID {
		return nil, domain.ErrForbidden
	}
	if err := s.messages.SetText(ctx, messageID, newText); err != nil {
		return nil, err
	}
	msg.Text = &newText
	msg.Edited = true
	return msg, nil
}

// SoftDelete marks a message deleted. Only the original sender may delete;
// the row stays queryable but drops out of latest-message previews.
func (s *MessageService) SoftDelete(ctx context.Context, messageID, callerID string) error {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != callerID {
		return domain.ErrForbidden
	}
	return s.messages.MarkDeleted(ctx, messageID)
}

// Forward copies a message's type and payload into the target chat as a new
// message sent by the caller. The caller must be a member of the target
// chat; membership of the source chat is not required. The original message
// is untouched.
func (s *MessageService) Forward(ctx context.Context, messageID, callerID, targetChatID string) (*domain.Message, error) {
	if targetChatID == "" {
		return nil, domain.ErrInvalidInput
	}
	src, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, targetChatID, callerID); err != nil {
		return nil, err
	}

	fwd := &domain.Message{
		ID:         uuid.NewString(),
		ChatID:     targetChatID,
		SenderID:   callerID,
		Type:       src.Type,
		Text:       src.Text,
		FileURL:    src.FileURL,
		AudioURL:   src.AudioURL,
		StickerURL: src.StickerURL,
	}
	if err := s.messages.Create(ctx, fwd); err != nil {
		return nil, err
	}
	metrics.MessagesAppended.Inc()
	return fwd, nil
}

func (s *MessageService) requireMember(ctx context.Context, chatID, userID string) error {
	ok, err := s.members.IsMember(ctx, chatID, userID)
	if err != nil {
		return fmt.Errorf("check membership: %w", err)
	}
	if !ok {
		return domain.ErrForbidden
	}
	return nil
}
