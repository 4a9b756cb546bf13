package model

import (
	"time"

	"github.com/google/uuid"
)

// GroupName is the singleton group conversation every brand-new user joins
// on their first login. It is looked up by name+is_group and created once.
const GroupName = "Fun Friday Group"

// Conversation is a chat between two users (is_group=false, no name) or a
// named group with any number of members. Conversations are never deleted.
type Conversation struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Name      string    `json:"name" gorm:"size:100;default:''"` // group name, empty for one-on-one
	IsGroup   bool      `json:"is_group" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_at"`

	// Relations
	Members []ConversationMember `json:"members,omitempty" gorm:"foreignKey:ConversationID"`
}

// ConversationMember associates a user with a conversation. Membership is
// created together with the conversation and never removed.
type ConversationMember struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ConversationID uuid.UUID `json:"conversation_id" gorm:"type:uuid;uniqueIndex:idx_conv_user;not null"`
	UserID         uuid.UUID `json:"user_id" gorm:"type:uuid;uniqueIndex:idx_conv_user;not null"`
	JoinedAt       time.Time `json:"joined_at"`

	// Relations
	User         User         `json:"user" gorm:"foreignKey:UserID"`
	Conversation Conversation `json:"-" gorm:"foreignKey:ConversationID"`
}
