package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kocmoc/internal/domain"
	"kocmoc/internal/security"
	"kocmoc/internal/service"
	"kocmoc/internal/store/sqlite"
)

func openTestDB(t *testing.T) *testStore {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "kocmoc_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, sqlite.Migrate(db))

	return &testStore{
		users:    sqlite.NewUserRepo(db),
		sessions: sqlite.NewSessionRepo(db),
		codes:    sqlite.NewCodeRepo(db),
		chats:    sqlite.NewChatRepo(db),
		members:  sqlite.NewMemberRepo(db),
		messages: sqlite.NewMessageRepo(db),
		stories:  sqlite.NewStoryRepo(db),
	}
}

type testStore struct {
	users    *sqlite.UserRepo
	sessions *sqlite.SessionRepo
	codes    *sqlite.CodeRepo
	chats    *sqlite.ChatRepo
	members  *sqlite.MemberRepo
	messages *sqlite.MessageRepo
	stories  *sqlite.StoryRepo
}

func (s *testStore) mustUser(t *testing.T, email string) *domain.User {
	t.Helper()
	u := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: "x",
		DisplayName:  email,
		Role:         domain.RoleMember,
	}
	require.NoError(t, s.users.Create(context.Background(), u))
	return u
}

func TestUserUniqueEmail(t *testing.T) {
	s := openTestDB(t)
	s.mustUser(t, "a@kocmoc.app")

	err := s.users.Create(context.Background(), &domain.User{
		ID: uuid.NewString(), Email: "a@kocmoc.app", PasswordHash: "x", DisplayName: "dup", Role: domain.RoleMember,
	})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestDirectChatDedup(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()
	a := s.mustUser(t, "a@kocmoc.app")
	b := s.mustUser(t, "b@kocmoc.app")

	first := &domain.Chat{ID: uuid.NewString()}
	require.NoError(t, s.chats.CreateDirect(ctx, first, a.ID, b.ID))

	// Same pair in the opposite order hits the same unique key.
	second := &domain.Chat{ID: uuid.NewString()}
	err := s.chats.CreateDirect(ctx, second, b.ID, a.ID)
	assert.ErrorIs(t, err, domain.ErrConflict)

	got, err := s.chats.GetDirect(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	// Both participants were added atomically with the chat.
	for _, uid := range []string{a.ID, b.ID} {
		ok, err := s.members.IsMember(ctx, first.ID, uid)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestCodeRedeemedExactlyOnce(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()
	u := s.mustUser(t, "c@kocmoc.app")

	stale := &domain.VerificationCode{Email: u.Email, Code: "111111", UserID: &u.ID, ExpiresAt: time.Now().Add(15 * time.Minute)}
	require.NoError(t, s.codes.Create(ctx, stale))
	fresh := &domain.VerificationCode{Email: u.Email, Code: "111111", UserID: &u.ID, ExpiresAt: time.Now().Add(15 * time.Minute)}
	require.NoError(t, s.codes.Create(ctx, fresh))

	// The most recently created row wins the lookup.
	got, err := s.codes.GetLatest(ctx, u.Email, "111111")
	require.NoError(t, err)
	assert.Equal(t, fresh.ID, got.ID)

	won, err := s.codes.MarkUsed(ctx, got.ID)
	require.NoError(t, err)
	assert.True(t, won)

	won, err = s.codes.MarkUsed(ctx, got.ID)
	require.NoError(t, err)
	assert.False(t, won)

	_, err = s.codes.GetLatest(ctx, u.Email, "999999")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemberOrderingAndConflict(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()
	owner := s.mustUser(t, "owner@kocmoc.app")
	m1 := s.mustUser(t, "m1@kocmoc.app")
	m2 := s.mustUser(t, "m2@kocmoc.app")

	name := "crew"
	chat := &domain.Chat{ID: uuid.NewString(), IsGroup: true, Name: &name}
	require.NoError(t, s.chats.CreateGroup(ctx, chat, owner.ID, []string{m1.ID}))

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, s.members.Add(ctx, chat.ID, m2.ID, domain.RoleMember))

	list, err := s.members.List(ctx, chat.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	// Join order: the founding members first, the late join last.
	assert.Equal(t, m2.ID, list[2].UserID)
	assert.Contains(t, []string{list[0].Role, list[1].Role}, domain.RoleOwner)

	err = s.members.Add(ctx, chat.ID, m2.ID, domain.RoleMember)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestMessageLedger(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()
	a := s.mustUser(t, "a@kocmoc.app")
	b := s.mustUser(t, "b@kocmoc.app")

	chat := &domain.Chat{ID: uuid.NewString()}
	require.NoError(t, s.chats.CreateDirect(ctx, chat, a.ID, b.ID))

	texts := []string{"one", "two", "three"}
	ids := make([]string, 0, len(texts))
	for _, txt := range texts {
		txt := txt
		m := &domain.Message{ID: uuid.NewString(), ChatID: chat.ID, SenderID: a.ID, Type: domain.MessageTypeText, Text: &txt}
		require.NoError(t, s.messages.Create(ctx, m))
		ids = append(ids, m.ID)
		time.Sleep(2 * time.Millisecond)
	}

	t.Run("AscendingOrder", func(t *testing.T) {
		list, err := s.messages.ListForChat(ctx, chat.ID, 50, 0)
		require.NoError(t, err)
		require.Len(t, list, 3)
		for i, m := range list {
			assert.Equal(t, texts[i], *m.Text)
		}
	})

	t.Run("Window", func(t *testing.T) {
		list, err := s.messages.ListForChat(ctx, chat.ID, 1, 1)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "two", *list[0].Text)

		list, err = s.messages.ListForChat(ctx, chat.ID, 50, 10)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("EditSetsFlag", func(t *testing.T) {
		require.NoError(t, s.messages.SetText(ctx, ids[0], "edited"))
		m, err := s.messages.GetByID(ctx, ids[0])
		require.NoError(t, err)
		assert.Equal(t, "edited", *m.Text)
		assert.True(t, m.Edited)
	})

	t.Run("SoftDeleteKeepsRow", func(t *testing.T) {
		require.NoError(t, s.messages.MarkDeleted(ctx, ids[2]))
		m, err := s.messages.GetByID(ctx, ids[2])
		require.NoError(t, err)
		assert.True(t, m.Deleted)

		// Deleted rows still occupy the ledger window.
		list, err := s.messages.ListForChat(ctx, chat.ID, 50, 0)
		require.NoError(t, err)
		assert.Len(t, list, 3)
	})

	t.Run("PreviewSkipsDeleted", func(t *testing.T) {
		chats, err := s.chats.ListForUser(ctx, a.ID)
		require.NoError(t, err)
		require.Len(t, chats, 1)
		require.NotNil(t, chats[0].LastText)
		assert.Equal(t, "two", *chats[0].LastText)
	})
}

func TestChatDeleteCascades(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()
	a := s.mustUser(t, "a@kocmoc.app")
	b := s.mustUser(t, "b@kocmoc.app")

	chat := &domain.Chat{ID: uuid.NewString()}
	require.NoError(t, s.chats.CreateDirect(ctx, chat, a.ID, b.ID))

	txt := "bye"
	msg := &domain.Message{ID: uuid.NewString(), ChatID: chat.ID, SenderID: a.ID, Type: domain.MessageTypeText, Text: &txt}
	require.NoError(t, s.messages.Create(ctx, msg))

	require.NoError(t, s.chats.Delete(ctx, chat.ID))

	_, err := s.chats.GetByID(ctx, chat.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.messages.GetByID(ctx, msg.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	ok, err := s.members.IsMember(ctx, chat.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoryFeed(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()
	a := s.mustUser(t, "a@kocmoc.app")
	b := s.mustUser(t, "b@kocmoc.app")

	expired := &domain.Story{ID: uuid.NewString(), UserID: a.ID, Type: domain.StoryTypePhoto,
		MediaURL: "u1", ExpiresAt: time.Now().Add(-time.Minute)}
	require.NoError(t, s.stories.Create(ctx, expired))

	older := &domain.Story{ID: uuid.NewString(), UserID: a.ID, Type: domain.StoryTypePhoto,
		MediaURL: "u2", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, s.stories.Create(ctx, older))
	time.Sleep(2 * time.Millisecond)
	newer := &domain.Story{ID: uuid.NewString(), UserID: b.ID, Type: domain.StoryTypeVideo,
		MediaURL: "u3", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, s.stories.Create(ctx, newer))

	t.Run("ActiveNewestFirst", func(t *testing.T) {
		list, err := s.stories.ListActive(ctx, time.Now())
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, newer.ID, list[0].ID)
		assert.Equal(t, older.ID, list[1].ID)
	})

	t.Run("ExpiredRowRetained", func(t *testing.T) {
		got, err := s.stories.GetByID(ctx, expired.ID)
		require.NoError(t, err)
		assert.Equal(t, "u1", got.MediaURL)
	})

	t.Run("ViewUpsert", func(t *testing.T) {
		first := time.Now().UTC().Truncate(time.Millisecond)
		require.NoError(t, s.stories.UpsertView(ctx, older.ID, b.ID, first))

		later := first.Add(time.Minute)
		require.NoError(t, s.stories.UpsertView(ctx, older.ID, b.ID, later))

		v, err := s.stories.GetView(ctx, older.ID, b.ID)
		require.NoError(t, err)
		assert.Equal(t, later, v.ViewedAt.UTC())
	})
}

func TestOffsetZoneTimestamps(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()
	u := s.mustUser(t, "z@kocmoc.app")

	// Clients and non-UTC hosts hand over offset-bearing times; rows must
	// still scan back and compare correctly.
	vladivostok := time.FixedZone("UTC+10", 10*60*60)

	t.Run("StoryExpiry", func(t *testing.T) {
		expiry := time.Now().In(vladivostok).Add(time.Hour)
		story := &domain.Story{ID: uuid.NewString(), UserID: u.ID, Type: domain.StoryTypePhoto,
			MediaURL: "u1", ExpiresAt: expiry}
		require.NoError(t, s.stories.Create(ctx, story))

		list, err := s.stories.ListActive(ctx, time.Now())
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, story.ID, list[0].ID)
		assert.True(t, list[0].ExpiresAt.Equal(expiry))

		got, err := s.stories.GetByID(ctx, story.ID)
		require.NoError(t, err)
		assert.True(t, got.ExpiresAt.Equal(expiry))
	})

	t.Run("CodeExpiry", func(t *testing.T) {
		expiry := time.Now().In(vladivostok).Add(15 * time.Minute)
		code := &domain.VerificationCode{Email: u.Email, Code: "222222", UserID: &u.ID, ExpiresAt: expiry}
		require.NoError(t, s.codes.Create(ctx, code))

		got, err := s.codes.GetLatest(ctx, u.Email, "222222")
		require.NoError(t, err)
		assert.True(t, got.ExpiresAt.Equal(expiry))
		assert.True(t, got.ExpiresAt.After(time.Now()))
	})
}

func TestIssueCreatesDistinctSessions(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()
	u := s.mustUser(t, "multi@kocmoc.app")

	tokenSvc := security.NewTokenService("secret", time.Hour)
	sessions := service.NewSessionService(tokenSvc, s.sessions, s.users)

	// Back-to-back issues land within the same second; each must still
	// produce its own token and session row.
	first, err := sessions.Issue(ctx, u.ID)
	require.NoError(t, err)
	second, err := sessions.Issue(ctx, u.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	for _, tok := range []string{first, second} {
		got, err := sessions.Validate(ctx, tok)
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
	}

	// Revoking one leaves the other live.
	require.NoError(t, sessions.Revoke(ctx, first))
	_, err = sessions.Validate(ctx, first)
	assert.ErrorIs(t, err, domain.ErrSessionRevoked)
	_, err = sessions.Validate(ctx, second)
	assert.NoError(t, err)
}

func TestSessionLifecycle(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()
	u := s.mustUser(t, "s@kocmoc.app")

	sess := &domain.Session{UserID: u.ID, Token: "tok-1"}
	require.NoError(t, s.sessions.Create(ctx, sess))
	assert.NotZero(t, sess.ID)

	got, err := s.sessions.GetByToken(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.UserID)

	require.NoError(t, s.sessions.DeleteByToken(ctx, "tok-1"))
	_, err = s.sessions.GetByToken(ctx, "tok-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Deleting again is not an error.
	assert.NoError(t, s.sessions.DeleteByToken(ctx, "tok-1"))
}
