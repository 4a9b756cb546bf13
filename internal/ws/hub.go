package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/nmduc/chatterbox/internal/model"
)

// Hub manages all WebSocket connections, presence announcements and
// conversation-scoped broadcast rooms. All state is in-process and lost on
// restart; clients rebuild it by reconnecting and re-announcing.
type Hub struct {
	presence *Presence

	mu    sync.RWMutex
	conns map[*Client]bool
	// rooms are keyed by stringified conversation id. Joining performs no
	// membership validation: room ids act as unauthenticated capability
	// tokens, which is deliberate for this app.
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client

	// Callback when a tracked user's connection closes. Runs on its own
	// goroutine; errors are the callback's problem, the presence broadcast
	// has already gone out.
	onOffline func(userID uuid.UUID)
}

// NewHub creates a new WebSocket Hub
func NewHub(onOffline func(userID uuid.UUID)) *Hub {
	return &Hub{
		presence:   NewPresence(),
		conns:      make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		onOffline:  onOffline,
	}
}

// Presence exposes the hub's presence tracker (read-side use only)
func (h *Hub) Presence() *Presence {
	return h.presence
}

// Run starts the Hub's connection bookkeeping loop
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.addConn(client)
		case client := <-h.unregister:
			h.removeConn(client)
		}
	}
}

// Register queues a client for registration with the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) addConn(client *Client) {
	h.mu.Lock()
	h.conns[client] = true
	h.mu.Unlock()
	log.Printf("✅ Client connected (total connections: %d)", h.connCount())
}

// removeConn drops a closed connection: it leaves every room, and if it was
// the tracked connection for a user, that user goes offline — broadcast
// first, then the status is persisted asynchronously via the callback.
func (h *Hub) removeConn(client *Client) {
	h.mu.Lock()
	delete(h.conns, client)
	for room, members := range h.rooms {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	close(client.send)
	h.mu.Unlock()

	userID, tracked := h.presence.RemoveByConnection(client)
	if !tracked {
		log.Println("❌ Client disconnected")
		return
	}

	log.Printf("❌ Client disconnected: user %s is now offline", userID)
	h.BroadcastOnlineSet()
	if h.onOffline != nil {
		go h.onOffline(userID)
	}
}

// AnnounceOnline tracks this connection as the user's current one and
// pushes the full online set to every connected client.
func (h *Hub) AnnounceOnline(client *Client, userID uuid.UUID) {
	h.presence.SetOnline(userID, client)
	h.BroadcastOnlineSet()
}

// JoinRoom subscribes a connection to a conversation's broadcast room
func (h *Hub) JoinRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[room]; !ok {
		h.rooms[room] = make(map[*Client]bool)
	}
	h.rooms[room][client] = true
}

// BroadcastToRoom sends an event to every connection joined to a room
func (h *Hub) BroadcastToRoom(room string, event *model.WSEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("Error marshaling room event: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.rooms[room] {
		select {
		case client.send <- data:
		default:
			// Client's send buffer is full, drop it from the room
			delete(h.rooms[room], client)
		}
	}
}

// BroadcastOnlineSet pushes the full current online set to all connections
func (h *Hub) BroadcastOnlineSet() {
	event := &model.WSEvent{
		Type:    model.WSEventOnlineStatus,
		Payload: h.presence.OnlineSet(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("Error marshaling online set: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.conns {
		select {
		case client.send <- data:
		default:
		}
	}
}

func (h *Hub) connCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}
