package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// Events handles GET /session/events requests as a server-sent event stream.
// The stream starts with the current state; afterwards every published state
// is sent as a "state" event and every session event under its own kind.
func (h *Handlers) Events(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)

	states, cancelStates := h.session.SubscribeState(h.streamBuffer)
	defer cancelStates()
	events, cancelEvents := h.session.SubscribeEvents(h.streamBuffer)
	defer cancelEvents()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		h.logger.Warn("event stream not flushable", slog.String("error", err.Error()))
		return
	}

	h.logger.Debug("event stream opened", slog.String("remote_addr", r.RemoteAddr))
	defer h.logger.Debug("event stream closed", slog.String("remote_addr", r.RemoteAddr))

	for {
		var (
			name string
			data any
		)
		select {
		case <-r.Context().Done():
			return
		case st, ok := <-states:
			if !ok {
				return
			}
			name, data = "state", newStateResponse(st)
		case ev, ok := <-events:
			if !ok {
				return
			}
			name, data = string(ev.Kind), ev
		}

		if err := writeEvent(w, name, data); err != nil {
			h.logger.Debug("event stream write failed", slog.String("error", err.Error()))
			return
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, name string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", name, err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, payload)
	return err
}
