package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dukerupert/freeday/internal/model"
)

// Message is a change notification broadcast to every subscriber.
type Message struct {
	Type   string                 `json:"type"`
	Entity string                 `json:"entity"`
	Action string                 `json:"action"`
	ID     string                 `json:"id,omitempty"`
	Row    *model.AvailabilityRow `json:"row,omitempty"`
}

// NewMessage creates a Message with the Type field derived from entity and action.
func NewMessage(entity, action, id string) Message {
	return Message{
		Type:   fmt.Sprintf("%s_%s", entity, action),
		Entity: entity,
		Action: action,
		ID:     id,
	}
}

// AvailabilityMessage announces an inserted or updated availability row.
func AvailabilityMessage(row model.AvailabilityRow) Message {
	msg := NewMessage("availability", "upserted", row.PersonID+"/"+row.Day)
	msg.Row = &row
	return msg
}

// Hub maintains the set of active WebSocket clients and broadcasts messages.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
	dropped func()
}

// NewHub creates a new Hub. onDrop, if non-nil, is called for every message
// dropped because a client's buffer was full.
func NewHub(logger *slog.Logger, onDrop func()) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
		dropped: onDrop,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast sends a message to all connected clients.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// Client buffer full: drop rather than block. The
			// subscriber's next poll picks the change up.
			if h.dropped != nil {
				h.dropped()
			}
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
