package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/bandhanapp/bandhan-server/internal/apperr"
	"github.com/bandhanapp/bandhan-server/internal/service/chat"
)

// ChatHandlers exposes chat listing, history, and the request/response
// fallback for sending messages. Sending over REST runs the same service
// method as the realtime channel, so side effects are identical.
type ChatHandlers struct {
	svc *chat.Service
}

func NewChatHandlers(svc *chat.Service) *ChatHandlers {
	return &ChatHandlers{svc: svc}
}

// Register attaches the chat routes to the router.
func (h *ChatHandlers) Register(r *mux.Router) {
	r.HandleFunc("/chats", h.list).Methods(http.MethodGet)
	r.HandleFunc("/chats/{chatId}/messages", h.history).Methods(http.MethodGet)
	r.HandleFunc("/chats/{chatId}/messages", h.send).Methods(http.MethodPost)
	r.HandleFunc("/chats/{chatId}/read", h.markRead).Methods(http.MethodPost)
	r.HandleFunc("/chats/{chatId}", h.info).Methods(http.MethodGet)
}

func (h *ChatHandlers) list(w http.ResponseWriter, r *http.Request) {
	chats, err := h.svc.ChatList(r.Context(), callerID(r))
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	respondJSON(w, http.StatusOK, chats)
}

func (h *ChatHandlers) info(w http.ResponseWriter, r *http.Request) {
	chatID := mux.Vars(r)["chatId"]
	info, err := h.svc.GetRoomInfo(r.Context(), callerID(r), chatID)
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	respondJSON(w, http.StatusOK, info)
}

func (h *ChatHandlers) history(w http.ResponseWriter, r *http.Request) {
	chatID := mux.Vars(r)["chatId"]
	limit := queryInt(r, "limit", 50)

	var token *string
	if v := r.URL.Query().Get("before"); v != "" {
		token = &v
	}

	messages, next, err := h.svc.History(r.Context(), callerID(r), chatID, token, limit)
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}

	body := map[string]any{
		"chatId":   chatID,
		"messages": messages,
		"hasMore":  next != nil,
	}
	if next != nil {
		body["nextBefore"] = *next
	}
	respondJSON(w, http.StatusOK, body)
}

func (h *ChatHandlers) send(w http.ResponseWriter, r *http.Request) {
	chatID := mux.Vars(r)["chatId"]

	var body struct {
		Content     string `json:"content"`
		MessageType string `json:"messageType"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		apperr.WriteJSON(w, apperr.InvalidArgument("invalid request body"))
		return
	}

	msg, err := h.svc.PostMessage(r.Context(), callerID(r), chatID, body.Content, body.MessageType)
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	respondJSON(w, http.StatusOK, msg)
}

func (h *ChatHandlers) markRead(w http.ResponseWriter, r *http.Request) {
	chatID := mux.Vars(r)["chatId"]

	var body struct {
		MessageIDs []string `json:"messageIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		apperr.WriteJSON(w, apperr.InvalidArgument("invalid request body"))
		return
	}

	marked, err := h.svc.MarkRead(r.Context(), callerID(r), chatID, body.MessageIDs)
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"markedAsRead": marked,
	})
}
