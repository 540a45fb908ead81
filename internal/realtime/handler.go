package realtime

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/bandhanapp/bandhan-server/internal/apperr"
	"github.com/bandhanapp/bandhan-server/internal/auth"
	"github.com/bandhanapp/bandhan-server/internal/repository"
	"github.com/bandhanapp/bandhan-server/internal/service/chat"
)

// Handler authenticates and upgrades inbound realtime connections.
//
// The token arrives out-of-band from the event stream: as a query
// parameter or Authorization header at connection time. Verification
// happens before the upgrade, so a connection that cannot authenticate is
// refused at handshake and never admitted; the upgrader's
// HandshakeTimeout bounds how long the handshake itself may take.
type Handler struct {
	verifier *auth.Verifier
	hub      *Hub
	registry *ConnectionRegistry
	chats    *chat.Service
	users    *repository.UserRepository
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func NewHandler(
	verifier *auth.Verifier,
	hub *Hub,
	registry *ConnectionRegistry,
	chats *chat.Service,
	users *repository.UserRepository,
	log *slog.Logger,
	handshakeTimeout time.Duration,
) *Handler {
	return &Handler{
		verifier: verifier,
		hub:      hub,
		registry: registry,
		chats:    chats,
		users:    users,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
			HandshakeTimeout: handshakeTimeout,
			CheckOrigin: func(r *http.Request) bool {
				// Origin policy is enforced by the CORS layer in front.
				return true
			},
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}

	claims, err := h.verifier.Verify(token)
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return
	}

	c := newClient(h.hub, h.registry, h.chats, h.log, conn, claims.UserID, uuid.NewString())
	h.registry.Register(c)

	// Personal channel delivery goes through the registry, so the client
	// is reachable for direct notifications from this point on.
	h.log.Info("client connected", "user_id", c.userID, "conn_id", c.connID)
	if err := h.users.TouchLastActive(r.Context(), c.userID); err != nil {
		h.log.Debug("failed to touch last active", "user_id", c.userID, "err", err)
	}

	go c.writePump()
	go c.readPump()
}
