package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/numerus/internal/api/handler"
	"github.com/mcoot/numerus/internal/api/middleware"
	"github.com/mcoot/numerus/internal/api/response"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger  *slog.Logger
	Backend handler.Backend
	// APIKey, when set, must be presented as a bearer token on every room route
	APIKey string
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	roomHandler := handler.NewRoomHandler(cfg.Backend)
	playerHandler := handler.NewPlayerHandler(cfg.Backend)
	messageHandler := handler.NewMessageHandler(cfg.Backend)
	feedHandler := handler.NewFeedHandler(cfg.Backend)

	// Logging wraps recovery
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Logging(cfg.Logger))
	api.Use(middleware.Recovery(cfg.Logger))

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	protected := api.NewRoute().Subrouter()
	protected.Use(middleware.APIKey(cfg.APIKey))

	// Room routes
	protected.HandleFunc("/rooms", roomHandler.Create).Methods(http.MethodPost)
	protected.HandleFunc("/rooms/by-code/{code}", roomHandler.GetByCode).Methods(http.MethodGet)
	protected.HandleFunc("/rooms/{id}", roomHandler.Get).Methods(http.MethodGet)
	protected.HandleFunc("/rooms/{id}", roomHandler.Update).Methods(http.MethodPatch)

	// Player routes
	protected.HandleFunc("/rooms/{id}/players", playerHandler.List).Methods(http.MethodGet)
	protected.HandleFunc("/rooms/{id}/players", playerHandler.Add).Methods(http.MethodPost)
	protected.HandleFunc("/players/{id}", playerHandler.UpdateScore).Methods(http.MethodPatch)
	protected.HandleFunc("/players/{id}", playerHandler.Remove).Methods(http.MethodDelete)

	// Message routes
	protected.HandleFunc("/rooms/{id}/messages", messageHandler.List).Methods(http.MethodGet)
	protected.HandleFunc("/rooms/{id}/messages", messageHandler.Add).Methods(http.MethodPost)
	protected.HandleFunc("/rooms/{id}/messages", messageHandler.Clear).Methods(http.MethodDelete)

	// Live feeds
	protected.HandleFunc("/rooms/{id}/changes", feedHandler.Changes).Methods(http.MethodGet)
	protected.HandleFunc("/rooms/{id}/presence", feedHandler.Presence).Methods(http.MethodGet)

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.Health{Status: "ok"})
}
