package realtime

import (
	"encoding/json"
	"sync"
)

// Client represents a single websocket client connection. The network
// conn itself is managed by the ws handler.
type Client interface {
	Send(message []byte) bool
	Close()
}

// Hub maintains active user connections and pushes notification events
// to them.
type Hub struct {
	mu              sync.RWMutex
	userIDToClients map[uint]map[Client]struct{}
}

var hubInstance *Hub
var once sync.Once

// GetHub returns a singleton hub instance.
func GetHub() *Hub {
	once.Do(func() {
		hubInstance = &Hub{
			userIDToClients: make(map[uint]map[Client]struct{}),
		}
	})
	return hubInstance
}

// Register adds a client under a user ID.
func (h *Hub) Register(userID uint, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.userIDToClients[userID]; !ok {
		h.userIDToClients[userID] = make(map[Client]struct{})
	}
	h.userIDToClients[userID][client] = struct{}{}
}

// Unregister removes a client; if the user has no more clients, cleans
// up the map entry.
func (h *Hub) Unregister(userID uint, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.userIDToClients[userID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.userIDToClients, userID)
		}
	}
}

// Broadcast sends a message to all clients of a user.
func (h *Hub) Broadcast(userID uint, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.userIDToClients[userID] {
		if ok := c.Send(message); !ok {
			// client write failed; the handler cleans it up on its side
		}
	}
}

// BroadcastEvent marshals the event and broadcasts it to the user.
// Marshal failures are dropped; push is best-effort by design of the
// notification pipeline.
func (h *Hub) BroadcastEvent(userID uint, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	h.Broadcast(userID, payload)
}
