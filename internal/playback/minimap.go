package playback

import (
	"context"
)

// MinimapTarget is the session surface used by the minimap.
type MinimapTarget interface {
	State() State
	SeekFraction(ctx context.Context, fraction float64) error
}

// Minimap maps the overview strip onto the clip: strip fractions seek through
// the same entry point as every other seek, and the cursor is reported back
// as a fraction of the clip.
type Minimap struct {
	target MinimapTarget
}

// NewMinimap creates a minimap bound to a session.
func NewMinimap(target MinimapTarget) *Minimap {
	return &Minimap{target: target}
}

// Seek moves the cursor to fraction of the clip duration. Out-of-range
// fractions are clamped by the clock.
func (m *Minimap) Seek(ctx context.Context, fraction float64) error {
	return m.target.SeekFraction(ctx, fraction)
}

// Fraction returns the cursor position in [0, 1].
func (m *Minimap) Fraction() float64 {
	return m.target.State().Fraction()
}
