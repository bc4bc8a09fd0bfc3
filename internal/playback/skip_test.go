package playback

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/maauso/clipsync/internal/silence"
)

func TestSkipper_Decide(t *testing.T) {
	idx := silence.NewIndex([]silence.Interval{
		{Start: 12, End: 14},
		{Start: 13.5, End: 15}, // merged with the previous one
		{Start: 18, End: 25},   // runs past the clip end
		{Start: 30, End: 31},   // outside the clip
	}, testBoundary, 0)

	tests := []struct {
		name    string
		abs     float64
		enabled bool
		action  Action
		target  float64
	}{
		{name: "before any silence", abs: 11, enabled: true, action: ActionNone},
		{name: "inside merged silence", abs: 12.5, enabled: true, action: ActionJump, target: 15},
		{name: "at silence start", abs: 12, enabled: true, action: ActionJump, target: 15},
		{name: "inside guard before silence end", abs: 14.98, enabled: true, action: ActionNone},
		{name: "silence clipped to clip end", abs: 18.2, enabled: true, action: ActionJump, target: 20},
		{name: "skip disabled", abs: 12.5, enabled: false, action: ActionNone},
		{name: "clip end", abs: 20, enabled: true, action: ActionStop, target: 20},
		{name: "within guard of clip end", abs: 19.975, enabled: true, action: ActionStop, target: 20},
		{name: "clip end wins even when disabled", abs: 21, enabled: false, action: ActionStop, target: 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSkipper(idx, 0.03, tt.enabled)
			d := s.Decide(tt.abs, testBoundary)
			assert.Equal(t, tt.action, d.Action, d.Action.String())
			if tt.action != ActionNone {
				assert.InDelta(t, tt.target, d.Target, 1e-9)
				assert.LessOrEqual(t, d.Target, testBoundary.SourceEnd)
			}
		})
	}
}

func TestSkipper_NoIndex(t *testing.T) {
	s := NewSkipper(nil, 0.03, true)
	assert.Equal(t, ActionNone, s.Decide(12, testBoundary).Action)
	assert.Zero(t, s.Len())

	s.SetIndex(silence.NewIndex([]silence.Interval{{Start: 11, End: 12}}, testBoundary, 0))
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, ActionJump, s.Decide(11.5, testBoundary).Action)

	s.SetEnabled(false)
	assert.False(t, s.Enabled())
	assert.Equal(t, ActionNone, s.Decide(11.5, testBoundary).Action)
}

func TestAction_String(t *testing.T) {
	assert.Equal(t, "none", ActionNone.String())
	assert.Equal(t, "stop", ActionStop.String())
	assert.Equal(t, "jump", ActionJump.String())
}
