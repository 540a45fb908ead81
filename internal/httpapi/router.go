package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/bandhanapp/bandhan-server/internal/auth"
	"github.com/bandhanapp/bandhan-server/internal/config"
)

// Registrar attaches a handler group to the authenticated API subrouter.
type Registrar interface {
	Register(r *mux.Router)
}

// NewRouter builds the HTTP surface: health endpoint, the realtime
// upgrade endpoint, and the authenticated /api routes, wrapped in CORS.
func NewRouter(cfg *config.Config, verifier *auth.Verifier, ws http.Handler, registrars ...Registrar) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}).Methods(http.MethodGet)

	// The socket handler authenticates itself during the handshake.
	r.Handle("/ws", ws)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(AuthMiddleware(verifier))
	for _, reg := range registrars {
		reg.Register(api)
	}

	return cors.New(cors.Options{
		AllowedOrigins:   cfg.HTTP.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(r)
}
