package handler

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nmduc/chatterbox/internal/model"
	"github.com/nmduc/chatterbox/internal/service"
	"github.com/nmduc/chatterbox/internal/ws"
	"github.com/nmduc/chatterbox/pkg/notification"
)

// ChatHandler handles the chat HTTP endpoints
type ChatHandler struct {
	chatService *service.ChatService
	hub         *ws.Hub
	notifier    *notification.NotificationService
}

func NewChatHandler(chatService *service.ChatService, hub *ws.Hub, notifier *notification.NotificationService) *ChatHandler {
	return &ChatHandler{chatService: chatService, hub: hub, notifier: notifier}
}

// AddUser godoc
// @Summary Log in or register a user by name
// @Description Name-based login. Unknown names create a new user, known names come back online. Either way one-on-one conversations with all other users are ensured.
// @Tags Chat
// @Accept json
// @Produce json
// @Param body body model.AddUserRequest true "Display name"
// @Success 200 {object} model.LoginResponse
// @Failure 400 {object} model.ErrorResponse
// @Router /add-user [post]
func (h *ChatHandler) AddUser(c *gin.Context) {
	var req model.AddUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Name is required"})
		return
	}

	resp, err := h.chatService.Login(c.Request.Context(), req.Name)
	if err != nil {
		if errors.Is(err, service.ErrNameRequired) {
			c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Name is required"})
			return
		}
		log.Printf("❌ Login failed: %v", err)
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to add user"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetChatList godoc
// @Summary Get the ordered conversation list for a user
// @Tags Chat
// @Produce json
// @Param userId path string true "User ID"
// @Success 200 {array} model.ChatSummary
// @Failure 400 {object} model.ErrorResponse
// @Router /chat-list/{userId} [get]
func (h *ChatHandler) GetChatList(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid user ID"})
		return
	}

	summaries, err := h.chatService.ChatList(c.Request.Context(), userID)
	if err != nil {
		log.Printf("❌ Chat list failed: %v", err)
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to get chat list"})
		return
	}

	c.JSON(http.StatusOK, summaries)
}

// GetMessages godoc
// @Summary Get the full message history of a conversation
// @Tags Chat
// @Produce json
// @Param conversationId path string true "Conversation ID"
// @Success 200 {object} model.ConversationMessages
// @Failure 404 {object} model.ErrorResponse
// @Router /messages/{conversationId} [get]
func (h *ChatHandler) GetMessages(c *gin.Context) {
	convID, err := uuid.Parse(c.Param("conversationId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid conversation ID"})
		return
	}

	resp, err := h.chatService.Messages(convID)
	if err != nil {
		if errors.Is(err, service.ErrConversationNotFound) {
			c.JSON(http.StatusNotFound, model.ErrorResponse{Error: "Conversation not found"})
			return
		}
		log.Printf("❌ Messages failed: %v", err)
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to get messages"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// SendMessage godoc
// @Summary Send a message to a conversation
// @Description Persists the message and broadcasts it to the conversation's room. Members without a live connection get a push notification.
// @Tags Chat
// @Accept json
// @Produce json
// @Param body body model.SendMessageRequest true "Message"
// @Success 200 {object} model.MessageView
// @Failure 400 {object} model.ErrorResponse
// @Router /send-message [post]
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req model.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	msg, err := h.chatService.Send(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrConversationNotFound) {
			c.JSON(http.StatusNotFound, model.ErrorResponse{Error: "Conversation not found"})
			return
		}
		log.Printf("❌ Send message failed: %v", err)
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to send message"})
		return
	}

	// Everyone joined to the room gets the message live, sender included,
	// in exactly the shape a history reload would return.
	h.hub.BroadcastToRoom(req.ConversationID.String(), &model.WSEvent{
		Type:    model.WSEventNewMessage,
		Payload: msg,
	})

	go h.notifyOfflineMembers(req.ConversationID, msg)

	c.JSON(http.StatusOK, msg)
}

// notifyOfflineMembers pushes an FCM notification to conversation members
// who have no tracked connection right now. Best effort only.
func (h *ChatHandler) notifyOfflineMembers(convID uuid.UUID, msg *model.MessageView) {
	if h.notifier == nil {
		return
	}

	memberIDs, err := h.chatService.MemberIDs(convID)
	if err != nil {
		log.Printf("⚠️  Could not resolve members for push: %v", err)
		return
	}

	for _, memberID := range memberIDs {
		if h.hub.Presence().IsOnline(memberID) {
			continue
		}
		if msg.SenderID != nil && memberID == *msg.SenderID {
			continue
		}
		if err := h.notifier.SendMessageNotification(context.Background(), memberID, msg.SenderName, msg.Content, convID); err != nil {
			log.Printf("⚠️  Push to %s failed: %v", memberID, err)
		}
	}
}
