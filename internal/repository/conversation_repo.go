package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/nmduc/chatterbox/internal/model"
	"gorm.io/gorm"
)

// ConversationRepository handles database operations for Conversation
type ConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// Create creates a new conversation
func (r *ConversationRepository) Create(conv *model.Conversation) error {
	if conv.ID == uuid.Nil {
		conv.ID = uuid.New()
	}
	return r.db.Create(conv).Error
}

// FindByID finds a conversation by ID
func (r *ConversationRepository) FindByID(id uuid.UUID) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.db.Where("id = ?", id).First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// FindOrCreateGroup looks up a group conversation by name, creating it on
// first use. The well-known group every new user joins goes through here.
func (r *ConversationRepository) FindOrCreateGroup(name string) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.db.
		Where("name = ? AND is_group = ?", name, true).
		Attrs(model.Conversation{ID: uuid.New(), Name: name, IsGroup: true}).
		FirstOrCreate(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// AddMember adds a user to a conversation
func (r *ConversationRepository) AddMember(member *model.ConversationMember) error {
	if member.ID == uuid.Nil {
		member.ID = uuid.New()
	}
	if member.JoinedAt.IsZero() {
		member.JoinedAt = time.Now()
	}
	return r.db.Create(member).Error
}

// CreateDirect creates a one-on-one conversation between two users,
// inserting the conversation row and both memberships in one transaction so
// a crash cannot leave a half-created pair behind.
func (r *ConversationRepository) CreateDirect(userA, userB uuid.UUID) (*model.Conversation, error) {
	conv := &model.Conversation{ID: uuid.New(), IsGroup: false}
	now := time.Now()

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(conv).Error; err != nil {
			return err
		}
		members := []model.ConversationMember{
			{ID: uuid.New(), ConversationID: conv.ID, UserID: userA, JoinedAt: now},
			{ID: uuid.New(), ConversationID: conv.ID, UserID: userB, JoinedAt: now},
		}
		return tx.Create(&members).Error
	})
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// GetMemberIDs returns all member user IDs for a conversation
func (r *ConversationRepository) GetMemberIDs(conversationID uuid.UUID) ([]uuid.UUID, error) {
	var memberIDs []uuid.UUID
	err := r.db.Model(&model.ConversationMember{}).
		Where("conversation_id = ?", conversationID).
		Pluck("user_id", &memberIDs).Error
	return memberIDs, err
}

// ChatList returns the user's conversation list with last-message previews.
// One-on-one rows carry the other member's id/name/avatar, group rows the
// group name and no avatar. Groups sort first, then most recent activity
// (last message time, or creation time for empty conversations).
func (r *ConversationRepository) ChatList(userID uuid.UUID) ([]model.ChatSummary, error) {
	summaries := []model.ChatSummary{}
	err := r.db.Raw(`
		SELECT
			c.id AS conversation_id,
			c.created_at AS created_at,
			c.is_group AS is_group,
			CASE WHEN NOT c.is_group THEN (
				SELECT u.id FROM conversation_members cm2
				JOIN users u ON cm2.user_id = u.id
				WHERE cm2.conversation_id = c.id AND u.id <> ? LIMIT 1
			) END AS user_id,
			CASE WHEN NOT c.is_group THEN (
				SELECT u.name FROM conversation_members cm2
				JOIN users u ON cm2.user_id = u.id
				WHERE cm2.conversation_id = c.id AND u.id <> ? LIMIT 1
			) ELSE c.name END AS conversation_name,
			CASE WHEN NOT c.is_group THEN (
				SELECT u.profile_pic FROM conversation_members cm2
				JOIN users u ON cm2.user_id = u.id
				WHERE cm2.conversation_id = c.id AND u.id <> ? LIMIT 1
			) END AS profile_pic,
			(SELECT m.content FROM messages m
			 WHERE m.conversation_id = c.id
			 ORDER BY m.created_at DESC LIMIT 1) AS last_message,
			(SELECT m.created_at FROM messages m
			 WHERE m.conversation_id = c.id
			 ORDER BY m.created_at DESC LIMIT 1) AS last_message_time
		FROM conversations c
		JOIN conversation_members cm ON c.id = cm.conversation_id
		WHERE cm.user_id = ?
		ORDER BY
			c.is_group DESC,
			COALESCE((SELECT m.created_at FROM messages m
			          WHERE m.conversation_id = c.id
			          ORDER BY m.created_at DESC LIMIT 1), c.created_at) DESC`,
		userID, userID, userID, userID).Scan(&summaries).Error
	return summaries, err
}
