// Package clip resolves frame-based clip markers into an absolute-time window
// over the source audio file.
package clip

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
)

// Static errors for boundary resolution.
var (
	// ErrInvalidFrameRate is returned when the frame rate is not a positive finite number.
	ErrInvalidFrameRate = errors.New("clip: frame rate must be positive")
	// ErrNonFiniteFrame is returned when a frame marker is NaN or infinite.
	ErrNonFiniteFrame = errors.New("clip: frame markers must be finite")
	// ErrNegativeFrame is returned when the start marker lies before the file start.
	ErrNegativeFrame = errors.New("clip: start frame must not be negative")
	// ErrInvertedRange is returned when the end marker lies before the start marker.
	ErrInvertedRange = errors.New("clip: end frame before start frame")
)

// Boundary is the absolute-time window of a clip inside its source file.
// It is immutable for the lifetime of a clip session.
type Boundary struct {
	// SourceStart is the clip start in absolute source seconds.
	SourceStart float64 `json:"source_start"`
	// SourceEnd is the clip end in absolute source seconds.
	SourceEnd float64 `json:"source_end"`
	// Duration is SourceEnd - SourceStart.
	Duration float64 `json:"duration"`
}

// Markers are the raw clip markers as delivered by the timeline ingestion layer.
type Markers struct {
	SourceStartFrame float64 `json:"source_start_frame" validate:"gte=0"`
	SourceEndFrame   float64 `json:"source_end_frame" validate:"gtefield=SourceStartFrame"`
	FrameRate        float64 `json:"frame_rate" validate:"gt=0"`
}

var validate = validator.New()

// Validate checks the structural constraints of the markers.
func (m Markers) Validate() error {
	if err := checkFinite(m.SourceStartFrame, m.SourceEndFrame, m.FrameRate); err != nil {
		return err
	}
	if err := validate.Struct(m); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			switch verrs[0].Field() {
			case "FrameRate":
				return ErrInvalidFrameRate
			case "SourceStartFrame":
				return ErrNegativeFrame
			case "SourceEndFrame":
				return ErrInvertedRange
			}
		}
		return fmt.Errorf("clip: %w", err)
	}
	return nil
}

// Resolve converts the markers into a Boundary.
func (m Markers) Resolve() (Boundary, error) {
	return Resolve(m.SourceStartFrame, m.SourceEndFrame, m.FrameRate)
}

// Resolve converts frame markers and a frame rate into an absolute-time Boundary.
// A returned error means the clip is unplayable; a zero-duration boundary is valid
// but degenerate (see Playable).
func Resolve(startFrame, endFrame, frameRate float64) (Boundary, error) {
	if err := checkFinite(startFrame, endFrame, frameRate); err != nil {
		return Boundary{}, err
	}
	if frameRate <= 0 {
		return Boundary{}, ErrInvalidFrameRate
	}
	if startFrame < 0 {
		return Boundary{}, ErrNegativeFrame
	}
	if endFrame < startFrame {
		return Boundary{}, ErrInvertedRange
	}

	start := startFrame / frameRate
	end := endFrame / frameRate
	return Boundary{
		SourceStart: start,
		SourceEnd:   end,
		Duration:    end - start,
	}, nil
}

func checkFinite(values ...float64) error {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrNonFiniteFrame
		}
	}
	return nil
}

// Playable reports whether the boundary spans a positive duration.
func (b Boundary) Playable() bool {
	return b.Duration > 0
}

// Absolute maps a clip-relative time to absolute source time.
// The input is clamped to [0, Duration] first.
func (b Boundary) Absolute(rel float64) float64 {
	return b.SourceStart + b.Clamp(rel)
}

// Relative maps an absolute source time to clip-relative time, clamped to [0, Duration].
func (b Boundary) Relative(abs float64) float64 {
	return b.Clamp(abs - b.SourceStart)
}

// Clamp limits a clip-relative time to [0, Duration]. NaN clamps to 0.
func (b Boundary) Clamp(rel float64) float64 {
	if math.IsNaN(rel) || rel < 0 {
		return 0
	}
	if rel > b.Duration {
		return b.Duration
	}
	return rel
}

// Overlaps reports whether the absolute span [start, end) intersects the clip window.
func (b Boundary) Overlaps(start, end float64) bool {
	return start < b.SourceEnd && end > b.SourceStart
}

// String implements fmt.Stringer.
func (b Boundary) String() string {
	return fmt.Sprintf("[%.3f, %.3f] (%.3fs)", b.SourceStart, b.SourceEnd, b.Duration)
}
