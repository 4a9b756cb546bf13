package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nmduc/chatterbox/internal/model"
	"github.com/nmduc/chatterbox/internal/repository"
	"gorm.io/gorm"
)

// Service-level failures, mapped to HTTP statuses at the handler boundary.
var (
	// ErrNameRequired is returned when a login request has no name.
	ErrNameRequired = errors.New("name is required")
	// ErrConversationNotFound is returned for unknown conversation IDs.
	ErrConversationNotFound = errors.New("conversation not found")
	// ErrMessageNotPersisted is returned when a just-inserted message cannot
	// be read back. That should never happen and is treated as a server fault.
	ErrMessageNotPersisted = errors.New("message could not be read back after insert")
)

// ChatService handles login, conversation listing, history and sending
type ChatService struct {
	userRepo *repository.UserRepository
	convRepo *repository.ConversationRepository
	msgRepo  *repository.MessageRepository
	cache    *repository.ChatListCache
}

func NewChatService(
	userRepo *repository.UserRepository,
	convRepo *repository.ConversationRepository,
	msgRepo *repository.MessageRepository,
	cache *repository.ChatListCache,
) *ChatService {
	return &ChatService{
		userRepo: userRepo,
		convRepo: convRepo,
		msgRepo:  msgRepo,
		cache:    cache,
	}
}

// Login registers or logs in a user by display name. An existing user is
// marked online and any one-on-one conversations missing against other
// users are backfilled. A brand-new user is created online, joins the
// well-known group, and gets a one-on-one conversation with every other
// existing user.
func (s *ChatService) Login(ctx context.Context, name string) (*model.LoginResponse, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}

	user, err := s.userRepo.FindByName(name)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("lookup user %q: %w", name, err)
	}

	if user != nil {
		return s.loginExisting(ctx, user)
	}
	return s.registerNew(ctx, name)
}

func (s *ChatService) loginExisting(ctx context.Context, user *model.User) (*model.LoginResponse, error) {
	if err := s.userRepo.SetPresence(user.ID, model.StatusOnline); err != nil {
		return nil, fmt.Errorf("set user online: %w", err)
	}

	// Users created outside a normal login (e.g. seeded) may still miss
	// one-on-one conversations with some peers. Backfill them here.
	missing, err := s.userRepo.ListWithoutDirectConversation(user.ID)
	if err != nil {
		return nil, fmt.Errorf("find users without conversation: %w", err)
	}
	for _, otherID := range missing {
		if _, err := s.convRepo.CreateDirect(user.ID, otherID); err != nil {
			return nil, fmt.Errorf("create conversation with %s: %w", otherID, err)
		}
		s.cache.Invalidate(ctx, user.ID, otherID)
	}

	user, err = s.userRepo.FindByID(user.ID)
	if err != nil {
		return nil, fmt.Errorf("reload user: %w", err)
	}
	return &model.LoginResponse{User: *user, Message: "Logged in successfully!"}, nil
}

func (s *ChatService) registerNew(ctx context.Context, name string) (*model.LoginResponse, error) {
	user := &model.User{
		Name:       name,
		ProfilePic: model.DefaultProfilePic,
		Status:     model.StatusOnline,
		LastSeen:   nowPtr(),
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, fmt.Errorf("create user %q: %w", name, err)
	}

	group, err := s.convRepo.FindOrCreateGroup(model.GroupName)
	if err != nil {
		return nil, fmt.Errorf("find or create group: %w", err)
	}
	if err := s.convRepo.AddMember(&model.ConversationMember{
		ConversationID: group.ID,
		UserID:         user.ID,
	}); err != nil {
		return nil, fmt.Errorf("join group: %w", err)
	}

	others, err := s.userRepo.ListOtherIDs(user.ID)
	if err != nil {
		return nil, fmt.Errorf("list other users: %w", err)
	}
	for _, otherID := range others {
		if _, err := s.convRepo.CreateDirect(user.ID, otherID); err != nil {
			return nil, fmt.Errorf("create conversation with %s: %w", otherID, err)
		}
		s.cache.Invalidate(ctx, otherID)
	}

	log.Printf("👤 New user registered: %s (%s)", user.Name, user.ID)
	return &model.LoginResponse{User: *user, Message: "New user created!"}, nil
}

// ChatList returns the user's ordered conversation list with previews,
// served from the cache when fresh.
func (s *ChatService) ChatList(ctx context.Context, userID uuid.UUID) ([]model.ChatSummary, error) {
	if cached, ok := s.cache.Get(ctx, userID); ok {
		return cached, nil
	}

	summaries, err := s.convRepo.ChatList(userID)
	if err != nil {
		return nil, fmt.Errorf("query chat list: %w", err)
	}
	s.cache.Set(ctx, userID, summaries)
	return summaries, nil
}

// Messages returns the full history of a conversation, oldest first
func (s *ChatService) Messages(convID uuid.UUID) (*model.ConversationMessages, error) {
	conv, err := s.convRepo.FindByID(convID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("lookup conversation: %w", err)
	}

	views, err := s.msgRepo.ListViews(convID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	return &model.ConversationMessages{Messages: views, IsGroup: conv.IsGroup}, nil
}

// Send persists a message and returns it re-fetched through the same view
// as Messages, so live recipients render it identically to a later reload.
// A nil or zero sender ID stores an anonymous message (NULL sender).
func (s *ChatService) Send(ctx context.Context, req model.SendMessageRequest) (*model.MessageView, error) {
	if _, err := s.convRepo.FindByID(req.ConversationID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("lookup conversation: %w", err)
	}

	msgType := req.Type
	if msgType == "" {
		msgType = model.MessageTypeText
	}

	var sender *uuid.UUID
	if req.SenderID != nil && *req.SenderID != uuid.Nil {
		sender = req.SenderID
	}

	msg := &model.Message{
		ConversationID: req.ConversationID,
		SenderID:       sender,
		Content:        req.Content,
		Type:           msgType,
	}
	if err := s.msgRepo.Create(msg); err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	view, err := s.msgRepo.FindViewByID(msg.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotPersisted
		}
		return nil, fmt.Errorf("reload message: %w", err)
	}

	if memberIDs, err := s.convRepo.GetMemberIDs(req.ConversationID); err == nil {
		s.cache.Invalidate(ctx, memberIDs...)
	}
	return view, nil
}

// MemberIDs returns all member user IDs for a conversation
func (s *ChatService) MemberIDs(convID uuid.UUID) ([]uuid.UUID, error) {
	return s.convRepo.GetMemberIDs(convID)
}

// SetOffline persists status Offline and last-seen=now. Called from the
// gateway's disconnect path after the presence broadcast has gone out.
func (s *ChatService) SetOffline(userID uuid.UUID) error {
	return s.userRepo.SetPresence(userID, model.StatusOffline)
}

func nowPtr() *time.Time {
	t := time.Now()
	return &t
}
