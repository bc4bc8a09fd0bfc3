package playback

import (
	"math"

	"github.com/maauso/clipsync/internal/clip"
	"github.com/maauso/clipsync/internal/silence"
)

// Action is the outcome of a skip evaluation.
type Action int

const (
	// ActionNone lets playback continue.
	ActionNone Action = iota
	// ActionStop halts playback at the clip end.
	ActionStop
	// ActionJump seeks past a silent interval.
	ActionJump
)

func (a Action) String() string {
	switch a {
	case ActionStop:
		return "stop"
	case ActionJump:
		return "jump"
	default:
		return "none"
	}
}

// Decision is the result of Skipper.Decide. Target is absolute source time.
type Decision struct {
	Action   Action
	Target   float64
	Interval silence.Interval
}

// Skipper decides, per tick, whether playback must stop at the clip end or
// jump over a silent interval.
type Skipper struct {
	index   *silence.Index
	guard   float64
	enabled bool
}

// NewSkipper creates a skip engine over a prepared interval index. guard is the
// tolerance, in seconds, applied to interval ends and the clip end.
func NewSkipper(index *silence.Index, guard float64, enabled bool) *Skipper {
	return &Skipper{index: index, guard: guard, enabled: enabled}
}

// SetEnabled toggles silence skipping. The end-of-clip check stays active.
func (s *Skipper) SetEnabled(enabled bool) {
	s.enabled = enabled
}

// Enabled reports whether silence skipping is on.
func (s *Skipper) Enabled() bool {
	return s.enabled
}

// SetIndex replaces the interval index.
func (s *Skipper) SetIndex(index *silence.Index) {
	s.index = index
}

// Len returns the number of indexed intervals.
func (s *Skipper) Len() int {
	if s.index == nil {
		return 0
	}
	return s.index.Len()
}

// Decide evaluates the absolute position against the clip end and the silence
// index. Reaching the clip end takes priority over skipping.
func (s *Skipper) Decide(abs float64, b clip.Boundary) Decision {
	if abs >= b.SourceEnd-s.guard {
		return Decision{Action: ActionStop, Target: b.SourceEnd}
	}
	if !s.enabled || s.index == nil {
		return Decision{Action: ActionNone}
	}

	iv, ok := s.index.Find(abs, s.guard)
	if !ok {
		return Decision{Action: ActionNone}
	}
	return Decision{
		Action:   ActionJump,
		Target:   math.Min(iv.End, b.SourceEnd),
		Interval: iv,
	}
}
