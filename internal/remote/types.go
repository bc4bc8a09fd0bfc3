package remote

import (
	"github.com/maauso/clipsync/internal/silence"
)

// silencesRequest is the request body for POST {base}/silences.
type silencesRequest struct {
	FileRef     string  `json:"file_ref"`
	ThresholdDB float64 `json:"threshold_db"`
	MinDuration float64 `json:"min_duration"`
	PadLeft     float64 `json:"pad_left"`
	PadRight    float64 `json:"pad_right"`
	ClipStart   float64 `json:"clip_start"`
	ClipEnd     float64 `json:"clip_end"`
}

// silencesResponse is the response body for POST {base}/silences.
type silencesResponse struct {
	Silences []silence.Interval `json:"silences"`
	Error    string             `json:"error,omitempty"`
}

// waveformRequest is the request body for POST {base}/waveform.
type waveformRequest struct {
	FileRef         string  `json:"file_ref"`
	SamplesPerPixel int     `json:"samples_per_pixel"`
	Scale           string  `json:"scale"`
	FloorDB         float64 `json:"floor_db"`
	Start           float64 `json:"start"`
	End             float64 `json:"end"`
}

// waveformResponse is the response body for POST {base}/waveform.
type waveformResponse struct {
	Peaks    []float64 `json:"peaks"`
	Duration float64   `json:"duration"`
	Error    string    `json:"error,omitempty"`
}
