package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	ws "github.com/coder/websocket"
)

// Message represents a change notification broadcast to all clients.
type Message struct {
	Type   string         `json:"type"`
	Entity string         `json:"entity"`
	Action string         `json:"action"`
	ID     int64          `json:"id,omitempty"`
	Extra  map[string]any `json:"extra,omitempty"`
}

// NewMessage creates a Message with the Type field derived from entity and action.
func NewMessage(entity, action string, id int64, extra map[string]any) Message {
	return Message{
		Type:   fmt.Sprintf("%s_%s", entity, action),
		Entity: entity,
		Action: action,
		ID:     id,
		Extra:  extra,
	}
}

// EventChanged announces a created/updated/deleted care event.
func EventChanged(action string, eventID, petID int64) Message {
	return NewMessage("event", action, eventID, map[string]any{"pet_id": petID})
}

// SeriesShifted announces a date shift applied to an event and the members
// after it. The id is the series anchor.
func SeriesShifted(anchorID int64, shifted int, petID int64) Message {
	return NewMessage("series", "shifted", anchorID, map[string]any{
		"shifted": shifted,
		"pet_id":  petID,
	})
}

// ReminderDue announces a reminder entering its notification window.
func ReminderDue(eventID, petID int64, title string) Message {
	return NewMessage("reminder", "due", eventID, map[string]any{
		"pet_id": petID,
		"title":  title,
	})
}

// BackupState announces a backup manager state change.
func BackupState(state string, inProgress bool, errMsg string) Message {
	extra := map[string]any{"in_progress": inProgress}
	if errMsg != "" {
		extra["error"] = errMsg
	}
	return NewMessage("backup", state, 0, extra)
}

// Hub maintains the set of active WebSocket clients and broadcasts messages.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
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
			// Client buffer full, drop the message to avoid blocking
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Handler upgrades connections to WebSocket and runs them as Hub clients.
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			InsecureSkipVerify: true, // feed readers connect from any origin
		})
		if err != nil {
			h.logger.Error("websocket accept", "error", err)
			return
		}

		client := NewClient(h, conn)
		client.Run(r.Context())
	}
}
