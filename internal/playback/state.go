// Package playback implements the clip-relative playback session: the clock
// controller, the silence skip engine and the sync loop that ties them to a
// transport.
package playback

import (
	"errors"
	"fmt"
	"slices"

	"github.com/maauso/clipsync/internal/clip"
)

// Status is the lifecycle state of a playback session.
type Status string

const (
	// StatusIdle means no playable clip is loaded.
	StatusIdle Status = "idle"
	// StatusLoading means a transport is being constructed for the clip.
	StatusLoading Status = "loading"
	// StatusReady means the clip is loaded and positioned at its start.
	StatusReady Status = "ready"
	// StatusPlaying means audio is running.
	StatusPlaying Status = "playing"
	// StatusPaused means playback is halted mid-clip.
	StatusPaused Status = "paused"
	// StatusError means the transport failed; only a new clip recovers.
	StatusError Status = "error"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines which state transitions are allowed. Any state may
// return to idle on a clip change.
var validTransitions = map[Status][]Status{
	StatusIdle:    {StatusLoading},
	StatusLoading: {StatusReady, StatusError, StatusIdle},
	StatusReady:   {StatusPlaying, StatusIdle, StatusError},
	StatusPlaying: {StatusPaused, StatusReady, StatusIdle, StatusError},
	StatusPaused:  {StatusPlaying, StatusReady, StatusIdle, StatusError},
	StatusError:   {StatusIdle},
}

// canTransition checks if a transition from one status to another is valid.
func canTransition(from, to Status) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	return slices.Contains(allowed, to)
}

// loaded reports whether a transport is attached in this state.
func (s Status) loaded() bool {
	return s == StatusReady || s == StatusPlaying || s == StatusPaused
}

// State is a snapshot of a session published to subscribers.
type State struct {
	// SessionID identifies the session.
	SessionID string `json:"session_id"`
	// Generation increments on every clip change.
	Generation uint64 `json:"generation"`
	// Status is the lifecycle state.
	Status Status `json:"status"`
	// FileRef is the loaded source reference.
	FileRef string `json:"file_ref,omitempty"`
	// Boundary is the active clip boundary.
	Boundary clip.Boundary `json:"boundary"`
	// Playable is false when the clip markers did not resolve to a range.
	Playable bool `json:"playable"`
	// Reason explains a non-playable or failed clip.
	Reason string `json:"reason,omitempty"`
	// ClipRelativeTime is the cursor position in [0, duration].
	ClipRelativeTime float64 `json:"clip_relative_time"`
	// IsPlaying mirrors StatusPlaying.
	IsPlaying bool `json:"is_playing"`
	// SkipEnabled reports whether silences are skipped.
	SkipEnabled bool `json:"skip_enabled"`
	// Seeking is true while a programmatic seek awaits acknowledgement.
	Seeking bool `json:"seeking"`
	// Silences is the number of normalized silence intervals inside the clip.
	Silences int `json:"silences"`
}

// AbsoluteTime returns the cursor position in source time.
func (s State) AbsoluteTime() float64 {
	return s.Boundary.Absolute(s.ClipRelativeTime)
}

// Fraction returns the cursor position as a fraction of the clip.
func (s State) Fraction() float64 {
	if s.Boundary.Duration <= 0 {
		return 0
	}
	return s.ClipRelativeTime / s.Boundary.Duration
}

func (s State) String() string {
	return fmt.Sprintf("%s %s t=%.3f/%.3f skip=%t", s.Status, s.Boundary, s.ClipRelativeTime, s.Boundary.Duration, s.SkipEnabled)
}
