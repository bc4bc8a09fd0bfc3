package playback

import (
	"math"
	"time"

	"github.com/maauso/clipsync/internal/clip"
)

// Seeker is the transport capability the clock needs.
type Seeker interface {
	Seek(abs float64) error
}

// ClockOptions tune the clock controller.
type ClockOptions struct {
	// DriftTolerance is the minimum correction, in seconds, applied from a
	// transport observation that is not forward playback progress.
	DriftTolerance float64
	// AckTimeout clears a programmatic seek that was never acknowledged.
	AckTimeout time.Duration
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Clock owns the clip-relative cursor. It is the single authority that
// converts clip-relative time to absolute time when commanding the transport,
// and it suppresses transport echoes while a programmatic seek is in flight.
// A Clock is not safe for concurrent use; the session loop owns it.
type Clock struct {
	boundary  clip.Boundary
	transport Seeker
	opts      ClockOptions

	rel          float64
	programmatic bool
	target       float64
	deadline     time.Time
}

// NewClock creates a clock positioned at the clip start.
func NewClock(b clip.Boundary, transport Seeker, opts ClockOptions) *Clock {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Clock{boundary: b, transport: transport, opts: opts}
}

// Time returns the clip-relative cursor.
func (c *Clock) Time() float64 {
	return c.rel
}

// Absolute returns the cursor in source time.
func (c *Clock) Absolute() float64 {
	return c.boundary.Absolute(c.rel)
}

// Boundary returns the clip boundary the clock maps against.
func (c *Clock) Boundary() clip.Boundary {
	return c.boundary
}

// SeekInFlight reports whether a programmatic seek awaits acknowledgement.
func (c *Clock) SeekInFlight() bool {
	return c.programmatic
}

// SeekTo clamps rel to the clip, commands the transport to the matching
// absolute position and moves the cursor optimistically. Observations are
// ignored until the transport acknowledges the seek or the ack timeout passes.
func (c *Clock) SeekTo(rel float64) error {
	rel = c.boundary.Clamp(rel)
	abs := c.boundary.Absolute(rel)

	c.programmatic = true
	c.target = abs
	c.deadline = c.opts.Now().Add(c.opts.AckTimeout)

	if err := c.transport.Seek(abs); err != nil {
		c.programmatic = false
		return err
	}
	c.rel = rel
	return nil
}

// Acknowledge clears the programmatic seek flag after the transport applied it.
func (c *Clock) Acknowledge() {
	c.programmatic = false
}

// CancelSeek clears the programmatic seek flag without an acknowledgement.
func (c *Clock) CancelSeek() {
	c.programmatic = false
}

// SnapToEnd places the cursor at the clip end.
func (c *Clock) SnapToEnd() {
	c.rel = c.boundary.Duration
}

// Observe folds a transport position report into the cursor and reports
// whether the cursor moved. Reports are ignored while a programmatic seek is
// in flight. While playing, forward progress is always applied; any other
// correction is applied only when it exceeds the drift tolerance.
func (c *Clock) Observe(abs float64, playing bool) bool {
	if math.IsNaN(abs) {
		return false
	}
	if c.programmatic {
		if c.opts.Now().Before(c.deadline) {
			return false
		}
		c.programmatic = false
	}

	rel := c.boundary.Relative(abs)
	delta := rel - c.rel
	if delta == 0 {
		return false
	}
	if !(playing && delta > 0) && math.Abs(delta) < c.opts.DriftTolerance {
		return false
	}
	c.rel = rel
	return true
}
