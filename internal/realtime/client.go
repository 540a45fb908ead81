package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bandhanapp/bandhan-server/internal/apperr"
	"github.com/bandhanapp/bandhan-server/internal/service/chat"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 8 * 1024
	sendBufferSize = 256

	// Per-event budget for the persistence work an inbound event triggers.
	eventTimeout = 15 * time.Second
)

// Client is one live authenticated connection. Lifecycle is bound to the
// transport session: registered after the handshake, unregistered on
// disconnect, never persisted.
type Client struct {
	conn     *websocket.Conn
	hub      *Hub
	registry *ConnectionRegistry
	chats    *chat.Service
	log      *slog.Logger

	userID string
	connID string

	send chan []byte
	done chan struct{}

	mu     sync.Mutex
	rooms  map[string]struct{}
	closed bool

	closeOnce sync.Once
}

func newClient(
	hub *Hub,
	registry *ConnectionRegistry,
	chats *chat.Service,
	log *slog.Logger,
	conn *websocket.Conn,
	userID, connID string,
) *Client {
	return &Client{
		conn:     conn,
		hub:      hub,
		registry: registry,
		chats:    chats,
		log:      log,
		userID:   userID,
		connID:   connID,
		send:     make(chan []byte, sendBufferSize),
		done:     make(chan struct{}),
		rooms:    make(map[string]struct{}),
	}
}

func (c *Client) joinRoom(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rooms[roomID] = struct{}{}
}

func (c *Client) roomIDs() map[string]struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]struct{}, len(c.rooms))
	for id := range c.rooms {
		out[id] = struct{}{}
	}
	return out
}

// enqueue hands a frame to the write pump without blocking. A client
// whose buffer is full is dropped; it recovers missed traffic from the
// persisted history on reconnect.
//
// The send channel is never closed, so fanout goroutines that snapshot
// a client just before it disconnects can still enqueue safely; the
// closed flag under the mutex turns those late frames into no-ops.
func (c *Client) enqueue(raw []byte) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	select {
	case c.send <- raw:
		c.mu.Unlock()
	default:
		c.mu.Unlock()
		go c.Close()
	}
}

func (c *Client) readPump() {
	defer c.Close()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.handleEvent(raw)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close tears the connection down once: leaves all rooms, unregisters,
// stops the write pump, closes the socket. In-flight deliveries to this
// connection are not retried; frames enqueued after close are dropped.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		c.hub.unsubscribeAll(c)
		c.registry.Unregister(c.connID)
		close(c.done)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

// handleEvent dispatches one inbound frame. A bad event never crashes the
// connection; failures are reported back on this caller's channel only.
func (c *Client) handleEvent(raw []byte) {
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		c.sendError("invalid event")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	switch ev.Event {
	case "join-chat":
		c.onJoinChat(ctx, ev.Data)
	case "send-message":
		c.onSendMessage(ctx, ev.Data)
	case "typing":
		c.onTyping(ctx, ev.Data)
	case "mark-read":
		c.onMarkRead(ctx, ev.Data)
	default:
		c.sendError("unknown event")
	}
}

func (c *Client) onJoinChat(ctx context.Context, data json.RawMessage) {
	roomID := decodeRoomID(data)
	if roomID == "" {
		return
	}
	member, err := c.chats.IsMember(ctx, roomID, c.userID)
	if err != nil {
		c.log.Error("join-chat membership check failed", "room_id", roomID, "err", err)
		return
	}
	// Non-members are ignored silently: no subscription, no error event,
	// so room existence is not leaked.
	if !member {
		return
	}
	c.hub.Subscribe(roomID, c)
	c.log.Debug("client joined room", "user_id", c.userID, "room_id", roomID)
}

func (c *Client) onSendMessage(ctx context.Context, data json.RawMessage) {
	var payload struct {
		ChatID      string `json:"chatId"`
		Content     string `json:"content"`
		MessageType string `json:"messageType"`
	}
	if err := json.Unmarshal(data, &payload); err != nil || payload.ChatID == "" {
		c.sendError("invalid send-message payload")
		return
	}
	// PostMessage persists and broadcasts; the sender receives the
	// new-message event through their room subscription.
	if _, err := c.chats.PostMessage(ctx, c.userID, payload.ChatID, payload.Content, payload.MessageType); err != nil {
		c.sendAppError(err, "failed to send message")
	}
}

func (c *Client) onTyping(ctx context.Context, data json.RawMessage) {
	roomID := decodeRoomID(data)
	if roomID == "" {
		return
	}
	if err := c.chats.Typing(ctx, c.userID, roomID); err != nil {
		c.sendAppError(err, "failed to send typing indicator")
	}
}

func (c *Client) onMarkRead(ctx context.Context, data json.RawMessage) {
	var payload struct {
		ChatID     string   `json:"chatId"`
		MessageIDs []string `json:"messageIds"`
	}
	if err := json.Unmarshal(data, &payload); err != nil || payload.ChatID == "" || len(payload.MessageIDs) == 0 {
		return
	}
	if _, err := c.chats.MarkRead(ctx, c.userID, payload.ChatID, payload.MessageIDs); err != nil {
		c.sendAppError(err, "failed to mark messages read")
	}
}

// sendError emits a scoped error event to this connection only; never to
// the room.
func (c *Client) sendError(message string) {
	raw, err := encodeEvent("error", map[string]string{"message": message})
	if err != nil {
		return
	}
	c.enqueue(raw)
}

func (c *Client) sendAppError(err error, fallback string) {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		c.sendError(ae.Message)
		return
	}
	c.sendError(fallback)
}

// decodeRoomID accepts both payload shapes the clients use: a bare JSON
// string and an object with a chatId field.
func decodeRoomID(data json.RawMessage) string {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s
	}
	var obj struct {
		ChatID string `json:"chatId"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		return obj.ChatID
	}
	return ""
}
