package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/bandhanapp/bandhan-server/internal/apperr"
	"github.com/bandhanapp/bandhan-server/internal/service/match"
)

// MatchHandlers exposes candidate listing and the match lifecycle over
// REST.
type MatchHandlers struct {
	svc *match.Service
}

func NewMatchHandlers(svc *match.Service) *MatchHandlers {
	return &MatchHandlers{svc: svc}
}

// Register attaches the match routes to the router.
func (h *MatchHandlers) Register(r *mux.Router) {
	r.HandleFunc("/matches/potential", h.potential).Methods(http.MethodGet)
	r.HandleFunc("/matches/summary", h.summary).Methods(http.MethodGet)
	r.HandleFunc("/matches", h.confirmed).Methods(http.MethodGet)
	r.HandleFunc("/matches/interest/{userId}", h.expressInterest).Methods(http.MethodPost)
	r.HandleFunc("/matches/{matchId}/decision", h.decide).Methods(http.MethodPost)
	r.HandleFunc("/matches/{matchId}", h.detail).Methods(http.MethodGet)
	r.HandleFunc("/blocks/{userId}", h.block).Methods(http.MethodPost)
}

func (h *MatchHandlers) potential(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "skip", 0)

	candidates, err := h.svc.FindCandidates(r.Context(), callerID(r), limit, offset)
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	respondJSON(w, http.StatusOK, candidates)
}

func (h *MatchHandlers) confirmed(w http.ResponseWriter, r *http.Request) {
	matches, err := h.svc.ConfirmedMatches(r.Context(), callerID(r))
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	respondJSON(w, http.StatusOK, matches)
}

func (h *MatchHandlers) summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.Summary(r.Context(), callerID(r))
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

func (h *MatchHandlers) detail(w http.ResponseWriter, r *http.Request) {
	matchID := mux.Vars(r)["matchId"]
	detail, err := h.svc.MatchDetail(r.Context(), matchID, callerID(r))
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	respondJSON(w, http.StatusOK, detail)
}

func (h *MatchHandlers) expressInterest(w http.ResponseWriter, r *http.Request) {
	targetID := mux.Vars(r)["userId"]
	result, err := h.svc.ExpressInterest(r.Context(), callerID(r), targetID)
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *MatchHandlers) decide(w http.ResponseWriter, r *http.Request) {
	matchID := mux.Vars(r)["matchId"]

	var body struct {
		Decision string `json:"decision"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		apperr.WriteJSON(w, apperr.InvalidArgument("invalid request body"))
		return
	}

	result, err := h.svc.Decide(r.Context(), matchID, callerID(r), body.Decision)
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *MatchHandlers) block(w http.ResponseWriter, r *http.Request) {
	targetID := mux.Vars(r)["userId"]
	if err := h.svc.Block(r.Context(), callerID(r), targetID); err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"blocked": true})
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
