package realtime

import (
	"encoding/json"
	"sync"
	"time"
)

// Client represents a single websocket client connection.
// The network conn itself is managed in the ws handler.
type Client interface {
	Send(message []byte) bool
	Close()
}

// Event types pushed to project participants.
const (
	EventProjectCreated    = "project_created"
	EventProjectUpdated    = "project_updated"
	EventProjectDeleted    = "project_deleted"
	EventOwnershipTransfer = "ownership_transferred"
	EventTaskCreated       = "task_created"
	EventTaskUpdated       = "task_updated"
	EventTaskDeleted       = "task_deleted"
)

// Event is the JSON payload sent over the websocket.
type Event struct {
	Type      string    `json:"type"`
	ProjectID string    `json:"projectId"`
	TaskID    string    `json:"taskId,omitempty"`
	ActorID   string    `json:"actorId"`
	At        time.Time `json:"at"`
	Version   int       `json:"version"`
}

// Hub maintains active user connections and fans events out to them.
type Hub struct {
	mu              sync.RWMutex
	userIDToClients map[string]map[Client]struct{}
}

func NewHub() *Hub {
	return &Hub{userIDToClients: make(map[string]map[Client]struct{})}
}

// Register adds a client under a user ID.
func (h *Hub) Register(userID string, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.userIDToClients[userID]; !ok {
		h.userIDToClients[userID] = make(map[Client]struct{})
	}
	h.userIDToClients[userID][client] = struct{}{}
}

// Unregister removes a client; if user has no more clients, cleans up map.
func (h *Hub) Unregister(userID string, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.userIDToClients[userID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.userIDToClients, userID)
		}
	}
}

// Connected returns how many clients the user has open.
func (h *Hub) Connected(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userIDToClients[userID])
}

// Broadcast sends a raw message to all clients of a user.
// Failed sends are ignored; the handler owning the client cleans it up.
func (h *Hub) Broadcast(userID string, message []byte) {
	for _, c := range h.clients(userID) {
		c.Send(message)
	}
}

// clients copies the user's client set so sends happen outside the lock.
func (h *Hub) clients(userID string) []Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Client, 0, len(h.userIDToClients[userID]))
	for c := range h.userIDToClients[userID] {
		out = append(out, c)
	}
	return out
}

// Publish encodes evt once and delivers it to every listed user.
func (h *Hub) Publish(userIDs []string, evt Event) {
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}
	if evt.Version == 0 {
		evt.Version = 1
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	seen := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		h.Broadcast(id, data)
	}
}
