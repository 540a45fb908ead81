package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Event is the wire envelope on the realtime channel, both directions.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Hub multiplexes events to room subscriptions and per-user personal
// channels. It implements the Pusher interface the chat and notification
// services broadcast through.
//
// Sends are enqueue-and-return per connection: a slow client's buffer
// filling up drops that connection rather than stalling the room.
type Hub struct {
	registry *ConnectionRegistry
	log      *slog.Logger

	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
}

func NewHub(registry *ConnectionRegistry, log *slog.Logger) *Hub {
	return &Hub{
		registry: registry,
		log:      log,
		rooms:    make(map[string]map[*Client]struct{}),
	}
}

// Subscribe adds a client to a room channel. Membership must already have
// been verified by the caller.
func (h *Hub) Subscribe(roomID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Client]struct{})
	}
	h.rooms[roomID][c] = struct{}{}
	c.joinRoom(roomID)
}

// unsubscribeAll removes a client from every room it joined. Called on
// disconnect.
func (h *Hub) unsubscribeAll(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for roomID := range c.roomIDs() {
		if set := h.rooms[roomID]; set != nil {
			delete(set, c)
			if len(set) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}
}

// ToRoom broadcasts an event to every connection subscribed to the room.
// excludeUserID skips that user's connections; empty excludes no one.
func (h *Hub) ToRoom(roomID, event string, payload any, excludeUserID string) {
	raw, err := encodeEvent(event, payload)
	if err != nil {
		h.log.Error("failed to encode event", "event", event, "err", err)
		return
	}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.rooms[roomID]))
	for c := range h.rooms[roomID] {
		if excludeUserID != "" && c.userID == excludeUserID {
			continue
		}
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.enqueue(raw)
	}
}

// ToUser pushes an event to every live connection of a user (their
// personal channel).
func (h *Hub) ToUser(userID, event string, payload any) {
	raw, err := encodeEvent(event, payload)
	if err != nil {
		h.log.Error("failed to encode event", "event", event, "err", err)
		return
	}
	for _, c := range h.registry.clientsFor(userID) {
		c.enqueue(raw)
	}
}

// IsOnline reports whether the user has any live connection.
func (h *Hub) IsOnline(userID string) bool {
	return h.registry.IsOnline(userID)
}

func encodeEvent(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Event{Event: event, Data: data})
}
