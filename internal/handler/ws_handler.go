package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/nmduc/chatterbox/internal/model"
	"github.com/nmduc/chatterbox/internal/ws"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // In production, validate origin
	},
}

// WSHandler handles WebSocket connections
type WSHandler struct {
	hub *ws.Hub
}

func NewWSHandler(hub *ws.Hub) *WSHandler {
	return &WSHandler{hub: hub}
}

// HandleWebSocket upgrades HTTP to WebSocket and manages the connection.
// There is no authentication: a connection is anonymous until it announces
// a user with a user-online event.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := ws.NewClient(h.hub, conn)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump(h.handleWSEvent)
}

// handleWSEvent processes incoming WebSocket events from clients
func (h *WSHandler) handleWSEvent(client *ws.Client, event model.WSEvent) {
	switch event.Type {
	case model.WSEventUserOnline:
		h.handleUserOnline(client, event)

	case model.WSEventJoinRoom:
		h.handleJoinRoom(client, event)

	default:
		log.Printf("Unknown WebSocket event type: %s", event.Type)
	}
}

// handleUserOnline tracks the announcing connection for the given user and
// broadcasts the full online set to everyone.
func (h *WSHandler) handleUserOnline(client *ws.Client, event model.WSEvent) {
	raw, ok := event.Payload.(string)
	if !ok {
		log.Printf("Invalid user-online payload: %v", event.Payload)
		return
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		log.Printf("Invalid user-online user id %q: %v", raw, err)
		return
	}

	h.hub.AnnounceOnline(client, userID)
	log.Printf("👤 User %s announced online", userID)
}

// handleJoinRoom subscribes the connection to a conversation's room. Room
// ids are not validated against membership.
func (h *WSHandler) handleJoinRoom(client *ws.Client, event model.WSEvent) {
	room, ok := event.Payload.(string)
	if !ok || room == "" {
		log.Printf("Invalid join-room payload: %v", event.Payload)
		return
	}
	h.hub.JoinRoom(client, room)
}
