package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"kocmoc/internal/domain"
)

// ChatService creates and manages chats. Direct chats are deduplicated per
// unordered user pair; membership gates every read of a chat's detail.
type ChatService struct {
	chats   domain.ChatRepository
	members domain.MemberRepository
	users   domain.UserRepository
}

func NewChatService(chats domain.ChatRepository, members domain.MemberRepository, users domain.UserRepository) *ChatService {
	return &ChatService{
		chats:   chats,
		members: members,
		users:   users,
	}
}

// OpenDirect returns the direct chat between caller and other, creating it
// when absent. Under concurrent calls for the same pair exactly one chat
// survives: a losing insert is detected as a conflict and converted into a
// fetch of the winner.
func (s *ChatService) OpenDirect(ctx context.Context, callerID, otherID string) (*domain.Chat, error) {
	if otherID == "" || otherID == callerID {
		return nil, domain.ErrInvalidInput
	}
	if _, err := s.users.GetByID(ctx, otherID); err != nil {
		return nil, err
	}

	existing, err := s.chats.GetDirect(ctx, callerID, otherID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("find direct chat: %w", err)
	}

	chat := &domain.Chat{ID: uuid.NewString(), IsGroup: false}
	err = s.chats.CreateDirect(ctx, chat, callerID, otherID)
	if errors.Is(err, domain.ErrConflict) {
		// Lost the race; the other call's chat is the one.
		return s.chats.GetDirect(ctx, callerID, otherID)
	}
	if err != nil {
		return nil, err
	}
	return chat, nil
}

// CreateGroup creates a group chat with the caller as owner.
func (s *ChatService) CreateGroup(ctx context.Context, ownerID, name string, memberIDs []string) (*domain.Chat, error) {
	if name == "" || len(memberIDs) == 0 {
		return nil, domain.ErrInvalidInput
	}

	unique := make([]string, 0, len(memberIDs))
	seen := map[string]struct{}{ownerID: {}}
	for _, id := range memberIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return nil, domain.ErrInvalidInput
	}

	chat := &domain.Chat{ID: uuid.NewString(), IsGroup: true, Name: &name}
	if err := s.chats.CreateGroup(ctx, chat, ownerID, unique); err != nil {
		return nil, err
	}
	return chat, nil
}

// Get returns the chat and its members, join order ascending. Only members
// may look.
func (s *ChatService) Get(ctx context.Context, chatID, callerID string) (*domain.Chat, []*domain.MemberView, error) {
	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.requireMember(ctx, chatID, callerID); err != nil {
		return nil, nil, err
	}
	members, err := s.members.List(ctx, chatID)
	if err != nil {
		return nil, nil, err
	}
	return chat, members, nil
}

// ListForUser returns the caller's chats with latest-message previews.
func (s *ChatService) ListForUser(ctx context.Context, userID string) ([]*domain.ChatSummary, error) {
	return s.chats.ListForUser(ctx, userID)
}

// AddMember adds a user to a group chat. Direct chats are fixed at exactly
// two members and reject adds.
func (s *ChatService) AddMember(ctx context.Context, chatID, callerID, userID, role string) error {
	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return err
	}
	if !chat.IsGroup {
		return domain.ErrInvalidInput
	}
	if err := s.requireMember(ctx, chatID, callerID); err != nil {
		return err
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return err
	}
	if role == "" {
		role = domain.RoleMember
	}
	return s.members.Add(ctx, chatID, userID, role)
}

// Delete removes a chat along with its memberships and messages. Any current
// member may delete, regardless of role.
func (s *ChatService) Delete(ctx context.Context, chatID, callerID string) error {
	if _, err := s.chats.GetByID(ctx, chatID); err != nil {
		return err
	}
	if err := s.requireMember(ctx, chatID, callerID); err != nil {
		return err
	}
	return s.chats.Delete(ctx, chatID)
}

func (s *ChatService) requireMember(ctx context.Context, chatID, userID string) error {
	ok, err := s.members.IsMember(ctx, chatID, userID)
	if err != nil {
		return fmt.Errorf("check membership: %w", err)
	}
	if !ok {
		return domain.ErrForbidden
	}
	return nil
}
