package silence

import (
	"context"
	"fmt"
)

// Request describes one silence detection over a clip window of a source file.
// All times are in seconds; ClipStart/ClipEnd are absolute source times.
type Request struct {
	FileRef     string  `json:"file_ref"`
	ThresholdDB float64 `json:"threshold_db"`
	MinDuration float64 `json:"min_duration"`
	// PadLeft keeps this much audio before the sound that follows a silence.
	PadLeft float64 `json:"pad_left"`
	// PadRight keeps this much audio after the sound that precedes a silence.
	PadRight  float64 `json:"pad_right"`
	ClipStart float64 `json:"clip_start"`
	ClipEnd   float64 `json:"clip_end"`
}

// Key returns a stable cache key covering every field of the request.
func (r Request) Key() string {
	return fmt.Sprintf("%s|%.3f|%.4f|%.4f|%.4f|%.4f|%.4f",
		r.FileRef, r.ThresholdDB, r.MinDuration, r.PadLeft, r.PadRight, r.ClipStart, r.ClipEnd)
}

// Detector returns the silence intervals of a source file.
// Results are absolute-time, sorted and possibly empty.
type Detector interface {
	GetOrDetectSilences(ctx context.Context, req Request) ([]Interval, error)
}

// Resolver maps a file reference to a local path readable by the detector.
type Resolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

// applyPadding shrinks each interval by the pads and drops what becomes empty.
func applyPadding(in []Interval, padLeft, padRight float64) []Interval {
	out := make([]Interval, 0, len(in))
	for _, iv := range in {
		padded := Interval{Start: iv.Start + padRight, End: iv.End - padLeft}
		if padded.Valid() {
			out = append(out, padded)
		}
	}
	return out
}
