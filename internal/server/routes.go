package server

import (
	"log/slog"
	"net/http"
)

// Config contains server configuration options.
type Config struct {
	// AllowedOrigins is the list of allowed CORS origins.
	AllowedOrigins []string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		AllowedOrigins: []string{"*"},
	}
}

// NewRouter creates a new HTTP router with all routes configured.
func NewRouter(h *Handlers, logger *slog.Logger, cfg Config) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("POST /session/clip", h.LoadClip)
	mux.HandleFunc("DELETE /session/clip", h.UnloadClip)
	mux.HandleFunc("POST /session/toggle", h.Toggle)
	mux.HandleFunc("POST /session/seek", h.Seek)
	mux.HandleFunc("POST /session/minimap", h.Minimap)
	mux.HandleFunc("POST /session/skip", h.Skip)
	mux.HandleFunc("PUT /session/silences", h.Silences)
	mux.HandleFunc("GET /session/state", h.State)
	mux.HandleFunc("GET /session/peaks", h.Peaks)
	mux.HandleFunc("GET /session/regions", h.Regions)
	mux.HandleFunc("GET /session/events", h.Events)

	chain := ChainMiddleware(
		RecoveryMiddleware(logger),
		LoggingMiddleware(logger),
		CORSMiddleware(cfg.AllowedOrigins),
	)

	return chain(mux)
}
