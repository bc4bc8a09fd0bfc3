package playback

import (
	"time"
)

// EventKind identifies a session lifecycle event.
type EventKind string

const (
	// EventClipLoaded is emitted when a clip's transport is ready.
	EventClipLoaded EventKind = "clip-loaded"
	// EventPlayStarted is emitted when playback starts or resumes.
	EventPlayStarted EventKind = "play-started"
	// EventPaused is emitted when the user pauses playback.
	EventPaused EventKind = "paused"
	// EventFinished is emitted when playback stops at the clip end.
	EventFinished EventKind = "finished"
	// EventSkipped is emitted when playback jumps over a silent interval.
	EventSkipped EventKind = "skipped"
	// EventSilencesUpdated is emitted when the silence intervals change.
	EventSilencesUpdated EventKind = "silences-updated"
	// EventPeaksReady is emitted when display peaks for the clip are available.
	EventPeaksReady EventKind = "peaks-ready"
	// EventError is emitted when loading or playback fails.
	EventError EventKind = "error"
)

// Event is a session lifecycle notification.
type Event struct {
	Kind             EventKind `json:"kind"`
	SessionID        string    `json:"session_id"`
	Generation       uint64    `json:"generation"`
	Time             time.Time `json:"time"`
	ClipRelativeTime float64   `json:"clip_relative_time"`
	// From and To are absolute source times of a skip.
	From  float64 `json:"from,omitempty"`
	To    float64 `json:"to,omitempty"`
	Error string  `json:"error,omitempty"`
}
