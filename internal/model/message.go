package model

import (
	"time"

	"github.com/google/uuid"
)

// MessageType defines the type of message content
type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
)

// Message is an immutable chat message. A NULL sender means the message was
// sent anonymously; it is resolved to a fixed name and avatar at read time.
type Message struct {
	ID             uuid.UUID   `json:"id" gorm:"type:uuid;primaryKey"`
	ConversationID uuid.UUID   `json:"conversation_id" gorm:"type:uuid;index;not null"`
	SenderID       *uuid.UUID  `json:"sender_id" gorm:"type:uuid;index"`
	Content        string      `json:"content" gorm:"type:text;not null"`
	Type           MessageType `json:"type" gorm:"type:varchar(20);default:'text'"`
	CreatedAt      time.Time   `json:"timestamp"`

	// Relations
	Conversation Conversation `json:"-" gorm:"foreignKey:ConversationID"`
}
