package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/bandhanapp/bandhan-server/internal/apperr"
	"github.com/bandhanapp/bandhan-server/internal/service/notify"
)

// NotificationHandlers is the REST retrieval side of the notification
// fanout: what offline users catch up on.
type NotificationHandlers struct {
	svc *notify.Service
}

func NewNotificationHandlers(svc *notify.Service) *NotificationHandlers {
	return &NotificationHandlers{svc: svc}
}

// Register attaches the notification routes to the router.
func (h *NotificationHandlers) Register(r *mux.Router) {
	r.HandleFunc("/notifications", h.list).Methods(http.MethodGet)
	r.HandleFunc("/notifications/unread-count", h.unreadCount).Methods(http.MethodGet)
	r.HandleFunc("/notifications/{id}/read", h.markRead).Methods(http.MethodPost)
}

func (h *NotificationHandlers) list(w http.ResponseWriter, r *http.Request) {
	unreadOnly := r.URL.Query().Get("unread") == "true"
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "skip", 0)

	notifications, err := h.svc.List(r.Context(), callerID(r), unreadOnly, limit, offset)
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	respondJSON(w, http.StatusOK, notifications)
}

func (h *NotificationHandlers) unreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.svc.UnreadCount(r.Context(), callerID(r))
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"count": count})
}

func (h *NotificationHandlers) markRead(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.svc.MarkRead(r.Context(), id, callerID(r)); err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
