package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/nmduc/chatterbox/internal/model"
	"gorm.io/gorm"
)

// messageViewSelect resolves each message's sender at read time. A NULL
// sender_id is the anonymous sender: no user row backs it, so the name and
// avatar come from the fixed values instead of the join.
const messageViewSelect = `
	SELECT
		m.id,
		m.sender_id,
		CASE WHEN m.sender_id IS NULL THEN '` + model.AnonymousName + `' ELSE u.name END AS sender_name,
		CASE WHEN m.sender_id IS NULL THEN '` + model.AnonymousProfilePic + `' ELSE u.profile_pic END AS profile_pic,
		m.content,
		m.type,
		m.created_at
	FROM messages m
	LEFT JOIN users u ON m.sender_id = u.id`

// MessageRepository handles database operations for Message
type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create inserts a new message with a server-assigned timestamp
func (r *MessageRepository) Create(msg *model.Message) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	return r.db.Create(msg).Error
}

// ListViews returns all messages of a conversation, oldest first, with
// resolved sender name/avatar. No pagination: full history every call.
func (r *MessageRepository) ListViews(conversationID uuid.UUID) ([]model.MessageView, error) {
	views := []model.MessageView{}
	err := r.db.
		Raw(messageViewSelect+` WHERE m.conversation_id = ? ORDER BY m.created_at ASC`, conversationID).
		Scan(&views).Error
	return views, err
}

// FindViewByID re-fetches a single message through the same view as
// ListViews, so a just-sent message renders identically to a later reload.
func (r *MessageRepository) FindViewByID(id uuid.UUID) (*model.MessageView, error) {
	views := []model.MessageView{}
	err := r.db.Raw(messageViewSelect+` WHERE m.id = ?`, id).Scan(&views).Error
	if err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &views[0], nil
}
