package model

import (
	"time"

	"github.com/google/uuid"
)

// ========== Login DTOs ==========

type AddUserRequest struct {
	Name string `json:"name" binding:"required"`
}

// LoginResponse is returned by POST /api/add-user for both the "existing
// user logged in" and "new user created" paths.
type LoginResponse struct {
	User    User   `json:"user"`
	Message string `json:"message"`
}

// ========== Chat list DTOs ==========

// ChatSummary is one row of a user's conversation list. For one-on-one
// conversations the user_id/conversation_name/profile_pic columns describe
// the other member; for groups they carry the group name and no avatar.
type ChatSummary struct {
	ConversationID   uuid.UUID  `json:"conversation_id" gorm:"column:conversation_id"`
	CreatedAt        time.Time  `json:"created_at" gorm:"column:created_at"`
	IsGroup          bool       `json:"is_group" gorm:"column:is_group"`
	UserID           *uuid.UUID `json:"user_id" gorm:"column:user_id"`
	ConversationName *string    `json:"conversation_name" gorm:"column:conversation_name"`
	ProfilePic       *string    `json:"profile_pic" gorm:"column:profile_pic"`
	LastMessage      *string    `json:"last_message" gorm:"column:last_message"`
	LastMessageTime  *time.Time `json:"last_message_time" gorm:"column:last_message_time"`
}

// ========== Message DTOs ==========

// MessageView is a message annotated with its resolved sender. Live
// recipients and history reloads see exactly this shape.
type MessageView struct {
	ID         uuid.UUID   `json:"id" gorm:"column:id"`
	SenderID   *uuid.UUID  `json:"sender_id" gorm:"column:sender_id"`
	SenderName string      `json:"sender_name" gorm:"column:sender_name"`
	ProfilePic string      `json:"profile_pic" gorm:"column:profile_pic"`
	Content    string      `json:"content" gorm:"column:content"`
	Type       MessageType `json:"type" gorm:"column:type"`
	Timestamp  time.Time   `json:"timestamp" gorm:"column:created_at"`
}

// ConversationMessages is the full history of one conversation. The group
// flag tells the client whether to render sender names inline.
type ConversationMessages struct {
	Messages []MessageView `json:"messages"`
	IsGroup  bool          `json:"is_group"`
}

// SendMessageRequest carries a new message. A nil/zero sender_id means the
// message is sent anonymously (no backing user row).
type SendMessageRequest struct {
	ConversationID uuid.UUID   `json:"conversation_id" binding:"required"`
	SenderID       *uuid.UUID  `json:"sender_id"`
	Content        string      `json:"content" binding:"required"`
	Type           MessageType `json:"type"`
}

// ========== Device DTOs ==========

type RegisterDeviceRequest struct {
	UserID     uuid.UUID `json:"user_id" binding:"required"`
	FCMToken   string    `json:"fcm_token" binding:"required"`
	DeviceType string    `json:"device_type" binding:"required"`
}

// ========== Upload DTOs ==========

type UploadResponse struct {
	URL      string `json:"url"`
	FileName string `json:"file_name"`
	FileSize int64  `json:"file_size"`
	MimeType string `json:"mime_type"`
}

// ========== WebSocket Event DTOs ==========

type WSEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// WebSocket event types. Client to server: user-online, join-room.
// Server to client: update-online-status, new-message.
const (
	WSEventUserOnline   = "user-online"
	WSEventJoinRoom     = "join-room"
	WSEventOnlineStatus = "update-online-status"
	WSEventNewMessage   = "new-message"
)

// ========== Common ==========

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
