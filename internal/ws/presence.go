package ws

import (
	"sync"

	"github.com/google/uuid"
)

// Presence tracks which connection currently represents each logged-in
// user. It is the only place this mapping is mutated. The latest
// announcement wins: a user opening a second connection overwrites the
// first, and only closing the tracked connection marks the user offline —
// an accepted limitation, kept deliberately.
type Presence struct {
	mu     sync.RWMutex
	byUser map[uuid.UUID]*Client
}

func NewPresence() *Presence {
	return &Presence{byUser: make(map[uuid.UUID]*Client)}
}

// SetOnline records (or overwrites) the connection tracked for a user
func (p *Presence) SetOnline(userID uuid.UUID, client *Client) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byUser[userID] = client
}

// RemoveByConnection removes the mapping owned by this connection, if any.
// Closing a connection that is no longer tracked for its user is a no-op.
func (p *Presence) RemoveByConnection(client *Client) (uuid.UUID, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for userID, tracked := range p.byUser {
		if tracked == client {
			delete(p.byUser, userID)
			return userID, true
		}
	}
	return uuid.Nil, false
}

// OnlineSet returns the IDs of all currently tracked users
func (p *Presence) OnlineSet() []uuid.UUID {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(p.byUser))
	for userID := range p.byUser {
		ids = append(ids, userID)
	}
	return ids
}

// IsOnline reports whether a user has a tracked connection
func (p *Presence) IsOnline(userID uuid.UUID) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.byUser[userID]
	return ok
}
