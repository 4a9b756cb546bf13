package service_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/nmduc/chatterbox/internal/model"
	"github.com/nmduc/chatterbox/internal/repository"
	"github.com/nmduc/chatterbox/internal/service"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testEnv struct {
	svc     *service.ChatService
	db      *gorm.DB
	msgRepo *repository.MessageRepository
}

func newTestEnv(t *testing.T) *testEnv {
	// Nil cache: every read goes straight to the DB
	return newTestEnvWithCache(t, nil)
}

func newTestEnvWithCache(t *testing.T, cache *repository.ChatListCache) *testEnv {
	t.Helper()

	// Named shared in-memory DB so GORM's pooled connections see the
	// same data within one test
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	if err := db.AutoMigrate(
		&model.User{},
		&model.Conversation{},
		&model.ConversationMember{},
		&model.Message{},
		&model.UserDevice{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	convRepo := repository.NewConversationRepository(db)
	msgRepo := repository.NewMessageRepository(db)

	svc := service.NewChatService(userRepo, convRepo, msgRepo, cache)
	return &testEnv{svc: svc, db: db, msgRepo: msgRepo}
}

func (e *testEnv) login(t *testing.T, name string) *model.LoginResponse {
	t.Helper()
	resp, err := e.svc.Login(context.Background(), name)
	if err != nil {
		t.Fatalf("login %q: %v", name, err)
	}
	return resp
}

// directConvID finds the one-on-one conversation shared by two users
func (e *testEnv) directConvID(t *testing.T, a, b uuid.UUID) uuid.UUID {
	t.Helper()
	var ids []uuid.UUID
	err := e.db.Raw(`
		SELECT c.id FROM conversations c
		JOIN conversation_members m1 ON m1.conversation_id = c.id AND m1.user_id = ?
		JOIN conversation_members m2 ON m2.conversation_id = c.id AND m2.user_id = ?
		WHERE NOT c.is_group`, a, b).Scan(&ids).Error
	if err != nil {
		t.Fatalf("find direct conversation: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("expected exactly 1 direct conversation between %s and %s, got %d", a, b, len(ids))
	}
	return ids[0]
}

func TestLoginRejectsBlankName(t *testing.T) {
	env := newTestEnv(t)

	for _, name := range []string{"", "   ", "\t\n"} {
		_, err := env.svc.Login(context.Background(), name)
		if !errors.Is(err, service.ErrNameRequired) {
			t.Errorf("Login(%q) error = %v, want ErrNameRequired", name, err)
		}
	}
}

func TestLoginCreatesNewUser(t *testing.T) {
	env := newTestEnv(t)

	resp := env.login(t, "Alice")
	if resp.Message != "New user created!" {
		t.Errorf("message = %q, want %q", resp.Message, "New user created!")
	}
	if resp.User.Name != "Alice" {
		t.Errorf("name = %q, want Alice", resp.User.Name)
	}
	if resp.User.Status != model.StatusOnline {
		t.Errorf("status = %q, want Online", resp.User.Status)
	}
	if resp.User.ProfilePic != model.DefaultProfilePic {
		t.Errorf("profile_pic = %q, want default", resp.User.ProfilePic)
	}
	if resp.User.LastSeen == nil {
		t.Error("last_seen should be set on registration")
	}

	// The new user must be a member of the well-known group
	var group model.Conversation
	if err := env.db.Where("name = ? AND is_group = ?", model.GroupName, true).First(&group).Error; err != nil {
		t.Fatalf("group not created: %v", err)
	}
	var memberCount int64
	env.db.Model(&model.ConversationMember{}).
		Where("conversation_id = ? AND user_id = ?", group.ID, resp.User.ID).
		Count(&memberCount)
	if memberCount != 1 {
		t.Errorf("group membership count = %d, want 1", memberCount)
	}
}

func TestLoginExistingUserIsIdempotent(t *testing.T) {
	env := newTestEnv(t)

	first := env.login(t, "Alice")
	second := env.login(t, "Alice")

	if second.Message != "Logged in successfully!" {
		t.Errorf("message = %q, want %q", second.Message, "Logged in successfully!")
	}
	if second.User.ID != first.User.ID {
		t.Errorf("second login returned a different user: %s vs %s", second.User.ID, first.User.ID)
	}

	var userCount int64
	env.db.Model(&model.User{}).Count(&userCount)
	if userCount != 1 {
		t.Errorf("user count = %d, want 1", userCount)
	}
	var groupCount int64
	env.db.Model(&model.Conversation{}).Where("is_group = ?", true).Count(&groupCount)
	if groupCount != 1 {
		t.Errorf("group count = %d, want 1", groupCount)
	}
}

func TestLoginCreatesOneDirectConversationPerPair(t *testing.T) {
	env := newTestEnv(t)

	alice := env.login(t, "Alice").User
	bob := env.login(t, "Bob").User
	charlie := env.login(t, "Charlie").User

	// 3 users -> 3 pairs, each with exactly one direct conversation
	env.directConvID(t, alice.ID, bob.ID)
	env.directConvID(t, alice.ID, charlie.ID)
	env.directConvID(t, bob.ID, charlie.ID)

	var directCount int64
	env.db.Model(&model.Conversation{}).Where("is_group = ?", false).Count(&directCount)
	if directCount != 3 {
		t.Errorf("direct conversation count = %d, want 3", directCount)
	}

	// Logging everyone in again must not create duplicates
	env.login(t, "Alice")
	env.login(t, "Bob")
	env.login(t, "Charlie")

	env.db.Model(&model.Conversation{}).Where("is_group = ?", false).Count(&directCount)
	if directCount != 3 {
		t.Errorf("direct conversation count after re-login = %d, want 3", directCount)
	}
}

func TestLoginBackfillsMissingDirectConversations(t *testing.T) {
	env := newTestEnv(t)

	alice := env.login(t, "Alice").User
	bob := env.login(t, "Bob").User

	// A user inserted outside the login flow (e.g. seeded) has no direct
	// conversations yet
	seeded := model.User{ID: uuid.New(), Name: "Seeda", ProfilePic: model.DefaultProfilePic, Status: model.StatusOffline}
	if err := env.db.Create(&seeded).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}

	resp := env.login(t, "Seeda")
	if resp.Message != "Logged in successfully!" {
		t.Errorf("message = %q, want %q", resp.Message, "Logged in successfully!")
	}
	if resp.User.Status != model.StatusOnline {
		t.Errorf("status = %q, want Online", resp.User.Status)
	}

	env.directConvID(t, seeded.ID, alice.ID)
	env.directConvID(t, seeded.ID, bob.ID)
}

func TestChatListOrdering(t *testing.T) {
	env := newTestEnv(t)

	alice := env.login(t, "Alice").User
	bob := env.login(t, "Bob").User
	charlie := env.login(t, "Charlie").User

	abConv := env.directConvID(t, alice.ID, bob.ID)
	acConv := env.directConvID(t, alice.ID, charlie.ID)

	base := time.Now().Add(-1 * time.Hour)
	mustCreateMessage(t, env, abConv, &bob.ID, "older message", base)
	mustCreateMessage(t, env, acConv, &charlie.ID, "newer message", base.Add(10*time.Minute))

	list, err := env.svc.ChatList(context.Background(), alice.ID)
	if err != nil {
		t.Fatalf("chat list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("chat list length = %d, want 3", len(list))
	}

	// Group always first, then directs by last activity
	if !list[0].IsGroup {
		t.Errorf("first entry should be the group, got %+v", list[0])
	}
	if list[0].ConversationName == nil || *list[0].ConversationName != model.GroupName {
		t.Errorf("group entry name = %v, want %q", list[0].ConversationName, model.GroupName)
	}
	if list[1].ConversationID != acConv {
		t.Errorf("second entry = %s, want the conversation with the newer message", list[1].ConversationID)
	}
	if list[2].ConversationID != abConv {
		t.Errorf("third entry = %s, want the conversation with the older message", list[2].ConversationID)
	}

	// Direct rows describe the other member
	if list[1].ConversationName == nil || *list[1].ConversationName != "Charlie" {
		t.Errorf("direct entry name = %v, want Charlie", list[1].ConversationName)
	}
	if list[1].UserID == nil || *list[1].UserID != charlie.ID {
		t.Errorf("direct entry user_id = %v, want %s", list[1].UserID, charlie.ID)
	}
	if list[1].LastMessage == nil || *list[1].LastMessage != "newer message" {
		t.Errorf("direct entry last_message = %v, want %q", list[1].LastMessage, "newer message")
	}
}

func TestChatListCacheServesAndInvalidates(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	env := newTestEnvWithCache(t, repository.NewChatListCache(rdb, time.Minute))
	ctx := context.Background()

	alice := env.login(t, "Alice").User
	bob := env.login(t, "Bob").User
	conv := env.directConvID(t, alice.ID, bob.ID)

	// Cold query fills the cache; the hit must carry the identical payload
	cold, err := env.svc.ChatList(ctx, alice.ID)
	if err != nil {
		t.Fatalf("cold chat list: %v", err)
	}
	cached, err := env.svc.ChatList(ctx, alice.ID)
	if err != nil {
		t.Fatalf("cached chat list: %v", err)
	}
	if len(cached) != len(cold) {
		t.Fatalf("cached length = %d, cold length = %d", len(cached), len(cold))
	}
	for i := range cold {
		c, w := cached[i], cold[i]
		if c.ConversationID != w.ConversationID || c.IsGroup != w.IsGroup {
			t.Errorf("entry %d: (%s, %v) vs (%s, %v)", i, c.ConversationID, c.IsGroup, w.ConversationID, w.IsGroup)
		}
		if !c.CreatedAt.Equal(w.CreatedAt) {
			t.Errorf("entry %d: created_at %v vs %v", i, c.CreatedAt, w.CreatedAt)
		}
		if (c.ConversationName == nil) != (w.ConversationName == nil) ||
			(c.ConversationName != nil && *c.ConversationName != *w.ConversationName) {
			t.Errorf("entry %d: conversation_name %v vs %v", i, c.ConversationName, w.ConversationName)
		}
		if (c.LastMessage == nil) != (w.LastMessage == nil) ||
			(c.LastMessage != nil && *c.LastMessage != *w.LastMessage) {
			t.Errorf("entry %d: last_message %v vs %v", i, c.LastMessage, w.LastMessage)
		}
	}

	// Sending drops every member's cached list, so the next read sees the
	// new preview instead of the stale entry
	if _, err := env.svc.Send(ctx, model.SendMessageRequest{
		ConversationID: conv,
		SenderID:       &alice.ID,
		Content:        "fresh message",
	}); err != nil {
		t.Fatalf("send: %v", err)
	}

	after, err := env.svc.ChatList(ctx, alice.ID)
	if err != nil {
		t.Fatalf("chat list after send: %v", err)
	}
	var seen bool
	for _, entry := range after {
		if entry.ConversationID == conv {
			seen = true
			if entry.LastMessage == nil || *entry.LastMessage != "fresh message" {
				t.Errorf("last_message = %v, want %q", entry.LastMessage, "fresh message")
			}
		}
	}
	if !seen {
		t.Fatalf("conversation %s missing from chat list", conv)
	}

	// A new registration invalidates existing users' lists too
	env.login(t, "Charlie")
	withCharlie, err := env.svc.ChatList(ctx, alice.ID)
	if err != nil {
		t.Fatalf("chat list after registration: %v", err)
	}
	if len(withCharlie) != len(cold)+1 {
		t.Errorf("chat list length after registration = %d, want %d", len(withCharlie), len(cold)+1)
	}
}

func TestMessagesUnknownConversation(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Messages(uuid.New())
	if !errors.Is(err, service.ErrConversationNotFound) {
		t.Errorf("Messages error = %v, want ErrConversationNotFound", err)
	}
}

func TestMessagesAreChronological(t *testing.T) {
	env := newTestEnv(t)

	alice := env.login(t, "Alice").User
	bob := env.login(t, "Bob").User
	conv := env.directConvID(t, alice.ID, bob.ID)

	base := time.Now().Add(-30 * time.Minute)
	// Inserted out of order on purpose
	mustCreateMessage(t, env, conv, &alice.ID, "second", base.Add(1*time.Minute))
	mustCreateMessage(t, env, conv, &bob.ID, "third", base.Add(2*time.Minute))
	mustCreateMessage(t, env, conv, &alice.ID, "first", base)

	history, err := env.svc.Messages(conv)
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if history.IsGroup {
		t.Error("is_group = true for a one-on-one conversation")
	}

	got := make([]string, 0, len(history.Messages))
	for _, m := range history.Messages {
		got = append(got, m.Content)
	}
	want := []string{"first", "second", "third"}
	if len(got) != len(want) {
		t.Fatalf("message count = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("message[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSendDefaultsToTextType(t *testing.T) {
	env := newTestEnv(t)

	alice := env.login(t, "Alice").User
	bob := env.login(t, "Bob").User
	conv := env.directConvID(t, alice.ID, bob.ID)

	view, err := env.svc.Send(context.Background(), model.SendMessageRequest{
		ConversationID: conv,
		SenderID:       &alice.ID,
		Content:        "hello",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if view.Type != model.MessageTypeText {
		t.Errorf("type = %q, want text", view.Type)
	}
	if view.SenderName != "Alice" {
		t.Errorf("sender_name = %q, want Alice", view.SenderName)
	}
}

func TestSendUnknownConversation(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "Alice")

	_, err := env.svc.Send(context.Background(), model.SendMessageRequest{
		ConversationID: uuid.New(),
		Content:        "hello",
	})
	if !errors.Is(err, service.ErrConversationNotFound) {
		t.Errorf("Send error = %v, want ErrConversationNotFound", err)
	}
}

func TestSendAnonymousMessage(t *testing.T) {
	env := newTestEnv(t)

	alice := env.login(t, "Alice").User
	bob := env.login(t, "Bob").User
	conv := env.directConvID(t, alice.ID, bob.ID)

	// Both a nil pointer and a zero UUID mean anonymous
	for name, sender := range map[string]*uuid.UUID{
		"nil sender":  nil,
		"zero sender": {},
	} {
		view, err := env.svc.Send(context.Background(), model.SendMessageRequest{
			ConversationID: conv,
			SenderID:       sender,
			Content:        "who said that",
		})
		if err != nil {
			t.Fatalf("%s: send: %v", name, err)
		}
		if view.SenderID != nil {
			t.Errorf("%s: sender_id = %v, want nil", name, view.SenderID)
		}
		if view.SenderName != model.AnonymousName {
			t.Errorf("%s: sender_name = %q, want %q", name, view.SenderName, model.AnonymousName)
		}
		if view.ProfilePic != model.AnonymousProfilePic {
			t.Errorf("%s: profile_pic = %q, want %q", name, view.ProfilePic, model.AnonymousProfilePic)
		}
	}

	// Anonymous resolution must survive a history reload
	history, err := env.svc.Messages(conv)
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	for _, m := range history.Messages {
		if m.SenderName != model.AnonymousName || m.ProfilePic != model.AnonymousProfilePic {
			t.Errorf("reloaded message sender = (%q, %q), want anonymous", m.SenderName, m.ProfilePic)
		}
	}
}

func TestSendMatchesHistoryReload(t *testing.T) {
	env := newTestEnv(t)

	alice := env.login(t, "Alice").User
	bob := env.login(t, "Bob").User
	conv := env.directConvID(t, alice.ID, bob.ID)

	sent, err := env.svc.Send(context.Background(), model.SendMessageRequest{
		ConversationID: conv,
		SenderID:       &alice.ID,
		Content:        "render me the same twice",
		Type:           model.MessageTypeText,
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	history, err := env.svc.Messages(conv)
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if len(history.Messages) != 1 {
		t.Fatalf("message count = %d, want 1", len(history.Messages))
	}

	reloaded := history.Messages[0]
	if reloaded.ID != sent.ID {
		t.Errorf("id mismatch: %s vs %s", reloaded.ID, sent.ID)
	}
	if reloaded.Content != sent.Content ||
		reloaded.SenderName != sent.SenderName ||
		reloaded.ProfilePic != sent.ProfilePic ||
		reloaded.Type != sent.Type {
		t.Errorf("reloaded view %+v differs from sent view %+v", reloaded, sent)
	}
	if !reloaded.Timestamp.Equal(sent.Timestamp) {
		t.Errorf("timestamp mismatch: %v vs %v", reloaded.Timestamp, sent.Timestamp)
	}
}

func TestSetOffline(t *testing.T) {
	env := newTestEnv(t)

	alice := env.login(t, "Alice").User
	if err := env.svc.SetOffline(alice.ID); err != nil {
		t.Fatalf("set offline: %v", err)
	}

	var user model.User
	if err := env.db.First(&user, "id = ?", alice.ID).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if user.Status != model.StatusOffline {
		t.Errorf("status = %q, want Offline", user.Status)
	}
	if user.LastSeen == nil {
		t.Error("last_seen should be set when going offline")
	}
}

func TestMemberIDs(t *testing.T) {
	env := newTestEnv(t)

	alice := env.login(t, "Alice").User
	bob := env.login(t, "Bob").User
	conv := env.directConvID(t, alice.ID, bob.ID)

	ids, err := env.svc.MemberIDs(conv)
	if err != nil {
		t.Fatalf("member ids: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("member count = %d, want 2", len(ids))
	}
	found := map[uuid.UUID]bool{ids[0]: true, ids[1]: true}
	if !found[alice.ID] || !found[bob.ID] {
		t.Errorf("members = %v, want both %s and %s", ids, alice.ID, bob.ID)
	}
}

func mustCreateMessage(t *testing.T, env *testEnv, conv uuid.UUID, sender *uuid.UUID, content string, at time.Time) {
	t.Helper()
	err := env.msgRepo.Create(&model.Message{
		ConversationID: conv,
		SenderID:       sender,
		Content:        content,
		Type:           model.MessageTypeText,
		CreatedAt:      at,
	})
	if err != nil {
		t.Fatalf("create message %q: %v", content, err)
	}
}
