package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/clipsync/internal/clip"
	"github.com/maauso/clipsync/internal/overlay"
	"github.com/maauso/clipsync/internal/playback"
)

// RegionView exposes the drawn silence regions.
type RegionView interface {
	// Flush draws any pending debounced update.
	Flush()
	Regions() []overlay.Region
}

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	session      *playback.Session
	minimap      *playback.Minimap
	regions      RegionView
	validator    *validator.Validate
	logger       *slog.Logger
	streamBuffer int
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithRegionView sets the source for GET /session/regions.
func WithRegionView(v RegionView) HandlerOption {
	return func(h *Handlers) {
		h.regions = v
	}
}

// WithStreamBuffer sets the per-client buffer of the event stream.
func WithStreamBuffer(n int) HandlerOption {
	return func(h *Handlers) {
		h.streamBuffer = n
	}
}

// NewHandlers creates a new Handlers instance serving session.
func NewHandlers(session *playback.Session, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		session:      session,
		minimap:      playback.NewMinimap(session),
		validator:    validator.New(),
		logger:       logger,
		streamBuffer: 16,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", SessionID: h.session.ID()})
}

// LoadClip handles POST /session/clip requests.
func (h *Handlers) LoadClip(w http.ResponseWriter, r *http.Request) {
	var req LoadClipRequest
	if !h.decode(w, r, &req) {
		return
	}

	c := playback.Clip{
		FileRef: req.FileRef,
		Markers: clip.Markers{
			SourceStartFrame: req.SourceStartFrame,
			SourceEndFrame:   req.SourceEndFrame,
			FrameRate:        req.FrameRate,
		},
	}
	if err := h.session.LoadClip(r.Context(), c); err != nil {
		h.writeSessionError(w, "load clip", err)
		return
	}

	st := h.session.State()
	h.logger.Info("clip load requested",
		slog.String("file_ref", req.FileRef),
		slog.Uint64("generation", st.Generation),
		slog.Bool("playable", st.Playable),
	)
	writeJSON(w, http.StatusAccepted, newStateResponse(st))
}

// UnloadClip handles DELETE /session/clip requests.
func (h *Handlers) UnloadClip(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, "unload clip", h.session.Unload)
}

// Toggle handles POST /session/toggle requests.
func (h *Handlers) Toggle(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, "toggle playback", h.session.TogglePlayPause)
}

// Seek handles POST /session/seek requests.
func (h *Handlers) Seek(w http.ResponseWriter, r *http.Request) {
	var req SeekRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.command(w, r, "seek", func(ctx context.Context) error {
		return h.session.SeekTo(ctx, *req.Time)
	})
}

// Minimap handles POST /session/minimap requests.
func (h *Handlers) Minimap(w http.ResponseWriter, r *http.Request) {
	var req MinimapRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.command(w, r, "minimap seek", func(ctx context.Context) error {
		return h.minimap.Seek(ctx, *req.Fraction)
	})
}

// Skip handles POST /session/skip requests.
func (h *Handlers) Skip(w http.ResponseWriter, r *http.Request) {
	var req SkipRequest
	if r.ContentLength != 0 && !h.decode(w, r, &req) {
		return
	}

	var (
		enabled bool
		err     error
	)
	if req.Enabled == nil {
		enabled, err = h.session.ToggleSkip(r.Context())
	} else {
		enabled = *req.Enabled
		err = h.session.SetSkipEnabled(r.Context(), enabled)
	}
	if err != nil {
		h.writeSessionError(w, "set skip", err)
		return
	}
	writeJSON(w, http.StatusOK, SkipResponse{SkipEnabled: enabled})
}

// Silences handles PUT /session/silences requests.
func (h *Handlers) Silences(w http.ResponseWriter, r *http.Request) {
	var req SilencesRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.command(w, r, "set silences", func(ctx context.Context) error {
		return h.session.SetSilences(ctx, req.toDomain())
	})
}

// State handles GET /session/state requests.
func (h *Handlers) State(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newStateResponse(h.session.State()))
}

// Peaks handles GET /session/peaks requests.
func (h *Handlers) Peaks(w http.ResponseWriter, r *http.Request) {
	peaks := h.session.DisplayPeaks()
	resp := PeaksResponse{Ready: peaks != nil, Peaks: peaks}
	if resp.Peaks == nil {
		resp.Peaks = []float64{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Regions handles GET /session/regions requests.
func (h *Handlers) Regions(w http.ResponseWriter, r *http.Request) {
	if h.regions == nil {
		writeJSON(w, http.StatusOK, RegionsResponse{Regions: []RegionResponse{}})
		return
	}
	h.regions.Flush()
	writeJSON(w, http.StatusOK, newRegionsResponse(h.regions.Regions()))
}

// command runs a session command and responds with the resulting state.
func (h *Handlers) command(w http.ResponseWriter, r *http.Request, name string, fn func(context.Context) error) {
	if err := fn(r.Context()); err != nil {
		h.writeSessionError(w, name, err)
		return
	}
	writeJSON(w, http.StatusOK, newStateResponse(h.session.State()))
}

// decode reads and validates a JSON body, writing a 400 on failure.
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return false
	}
	return true
}

func (h *Handlers) writeSessionError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, playback.ErrNotPlayable):
		writeError(w, http.StatusConflict, "no playable clip loaded", "NOT_PLAYABLE")
	case errors.Is(err, playback.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error(), "INVALID_TRANSITION")
	case errors.Is(err, playback.ErrClosed):
		writeError(w, http.StatusGone, "session closed", "SESSION_CLOSED")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "request cancelled", "CANCELLED")
	default:
		h.logger.Error("session command failed",
			slog.String("command", op),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("%s failed", op), "COMMAND_FAILED")
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
