// Package server provides the HTTP control surface for a clip playback session.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import (
	"github.com/maauso/clipsync/internal/overlay"
	"github.com/maauso/clipsync/internal/playback"
	"github.com/maauso/clipsync/internal/silence"
)

// LoadClipRequest is the HTTP request body for loading a clip.
// Markers are not validated here: markers that do not resolve to a playable
// range load as a non-playable clip and the reason is reported in the state.
type LoadClipRequest struct {
	// FileRef is a local path, file:// URL or s3://bucket/key reference.
	FileRef string `json:"file_ref" validate:"required"`
	// SourceStartFrame is the clip start in source frames.
	SourceStartFrame float64 `json:"source_start_frame"`
	// SourceEndFrame is the clip end in source frames.
	SourceEndFrame float64 `json:"source_end_frame"`
	// FrameRate is the timeline frame rate.
	FrameRate float64 `json:"frame_rate"`
}

// SeekRequest is the HTTP request body for a clip-relative seek.
type SeekRequest struct {
	// Time is the clip-relative target in seconds; it is clamped to the clip.
	Time *float64 `json:"time" validate:"required"`
}

// MinimapRequest is the HTTP request body for a minimap click.
type MinimapRequest struct {
	// Fraction is the position on the strip in [0, 1].
	Fraction *float64 `json:"fraction" validate:"required,gte=0,lte=1"`
}

// SkipRequest is the HTTP request body for the skip toggle.
// An absent Enabled flips the current value.
type SkipRequest struct {
	Enabled *bool `json:"enabled,omitempty"`
}

// IntervalDTO is a silent span in absolute source seconds.
type IntervalDTO struct {
	Start float64 `json:"start" validate:"gte=0"`
	End   float64 `json:"end" validate:"gtefield=Start"`
}

// SilencesRequest replaces the silence intervals of the current clip.
type SilencesRequest struct {
	Intervals []IntervalDTO `json:"intervals" validate:"dive"`
}

func (r SilencesRequest) toDomain() []silence.Interval {
	out := make([]silence.Interval, 0, len(r.Intervals))
	for _, iv := range r.Intervals {
		out = append(out, silence.Interval{Start: iv.Start, End: iv.End})
	}
	return out
}

// BoundaryResponse is the absolute-time window of the loaded clip.
type BoundaryResponse struct {
	SourceStart float64 `json:"source_start"`
	SourceEnd   float64 `json:"source_end"`
	Duration    float64 `json:"duration"`
}

// StateResponse is the HTTP response carrying a session snapshot.
type StateResponse struct {
	// SessionID identifies the session.
	SessionID string `json:"session_id"`
	// Generation increments on every clip change.
	Generation uint64 `json:"generation"`
	// Status is the lifecycle state.
	Status string `json:"status"`
	// FileRef is the loaded source reference.
	FileRef string `json:"file_ref,omitempty"`
	// Boundary is the clip window.
	Boundary BoundaryResponse `json:"boundary"`
	// Playable is false when the markers did not resolve to a range.
	Playable bool `json:"playable"`
	// Reason explains a non-playable or failed clip.
	Reason string `json:"reason,omitempty"`
	// ClipRelativeTime is the cursor in clip seconds.
	ClipRelativeTime float64 `json:"clip_relative_time"`
	// AbsoluteTime is the cursor in source seconds.
	AbsoluteTime float64 `json:"absolute_time"`
	// Fraction is the cursor as a fraction of the clip.
	Fraction float64 `json:"fraction"`
	// IsPlaying reports whether audio is playing.
	IsPlaying bool `json:"is_playing"`
	// SkipEnabled reports whether silences are skipped.
	SkipEnabled bool `json:"skip_enabled"`
	// Seeking is true while a programmatic seek awaits acknowledgement.
	Seeking bool `json:"seeking"`
	// Silences is the number of silence intervals inside the clip.
	Silences int `json:"silences"`
}

func newStateResponse(st playback.State) StateResponse {
	return StateResponse{
		SessionID:  st.SessionID,
		Generation: st.Generation,
		Status:     string(st.Status),
		FileRef:    st.FileRef,
		Boundary: BoundaryResponse{
			SourceStart: st.Boundary.SourceStart,
			SourceEnd:   st.Boundary.SourceEnd,
			Duration:    st.Boundary.Duration,
		},
		Playable:         st.Playable,
		Reason:           st.Reason,
		ClipRelativeTime: st.ClipRelativeTime,
		AbsoluteTime:     st.AbsoluteTime(),
		Fraction:         st.Fraction(),
		IsPlaying:        st.IsPlaying,
		SkipEnabled:      st.SkipEnabled,
		Seeking:          st.Seeking,
		Silences:         st.Silences,
	}
}

// SkipResponse is the HTTP response for the skip toggle.
type SkipResponse struct {
	SkipEnabled bool `json:"skip_enabled"`
}

// PeaksResponse carries the display peaks of the current clip.
type PeaksResponse struct {
	// Ready is false until the waveform for the clip was fetched.
	Ready bool      `json:"ready"`
	Peaks []float64 `json:"peaks"`
}

// RegionResponse is a drawn silence region in absolute source seconds.
type RegionResponse struct {
	ID    string  `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// RegionsResponse lists the drawn silence regions.
type RegionsResponse struct {
	Regions []RegionResponse `json:"regions"`
}

func newRegionsResponse(regions []overlay.Region) RegionsResponse {
	out := make([]RegionResponse, 0, len(regions))
	for _, r := range regions {
		out = append(out, RegionResponse{ID: r.ID, Start: r.Start, End: r.End})
	}
	return RegionsResponse{Regions: out}
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
	// SessionID identifies the served session.
	SessionID string `json:"session_id,omitempty"`
}
