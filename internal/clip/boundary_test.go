package clip

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		start    float64
		end      float64
		rate     float64
		want     Boundary
		wantErr  error
		playable bool
	}{
		{"simple", 25, 125, 25, Boundary{SourceStart: 1, SourceEnd: 5, Duration: 4}, nil, true},
		{"zero duration", 50, 50, 25, Boundary{SourceStart: 2, SourceEnd: 2, Duration: 0}, nil, false},
		{"zero frame rate", 0, 10, 0, Boundary{}, ErrInvalidFrameRate, false},
		{"negative frame rate", 0, 10, -24, Boundary{}, ErrInvalidFrameRate, false},
		{"nan start", math.NaN(), 10, 24, Boundary{}, ErrNonFiniteFrame, false},
		{"inf end", 0, math.Inf(1), 24, Boundary{}, ErrNonFiniteFrame, false},
		{"nan rate", 0, 10, math.NaN(), Boundary{}, ErrNonFiniteFrame, false},
		{"negative start", -1, 10, 24, Boundary{}, ErrNegativeFrame, false},
		{"inverted", 100, 50, 25, Boundary{}, ErrInvertedRange, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.start, tt.end, tt.rate)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want.SourceStart, got.SourceStart, 1e-9)
			assert.InDelta(t, tt.want.SourceEnd, got.SourceEnd, 1e-9)
			assert.InDelta(t, tt.want.Duration, got.Duration, 1e-9)
			assert.Equal(t, tt.playable, got.Playable())
		})
	}
}

func TestMarkers_Validate(t *testing.T) {
	assert.NoError(t, Markers{SourceStartFrame: 0, SourceEndFrame: 48, FrameRate: 24}.Validate())
	assert.ErrorIs(t, Markers{SourceStartFrame: 0, SourceEndFrame: 48, FrameRate: 0}.Validate(), ErrInvalidFrameRate)
	assert.ErrorIs(t, Markers{SourceStartFrame: 10, SourceEndFrame: 5, FrameRate: 24}.Validate(), ErrInvertedRange)
	assert.ErrorIs(t, Markers{SourceStartFrame: -2, SourceEndFrame: 5, FrameRate: 24}.Validate(), ErrNegativeFrame)
	assert.ErrorIs(t, Markers{SourceStartFrame: math.Inf(-1), SourceEndFrame: 5, FrameRate: 24}.Validate(), ErrNonFiniteFrame)
}

func TestBoundary_Mapping(t *testing.T) {
	b, err := Resolve(24, 120, 24)
	require.NoError(t, err)

	for _, rel := range []float64{0, 0.5, 1.25, 3.999, 4} {
		assert.InDelta(t, 1+rel, b.Absolute(rel), 1e-9)
		assert.InDelta(t, rel, b.Relative(b.Absolute(rel)), 1e-9)
	}

	assert.Equal(t, 0.0, b.Clamp(-3))
	assert.Equal(t, 4.0, b.Clamp(10))
	assert.Equal(t, 0.0, b.Clamp(math.NaN()))
	assert.InDelta(t, 5.0, b.Absolute(100), 1e-9)
	assert.Equal(t, 0.0, b.Relative(0.2))
}

func TestBoundary_Overlaps(t *testing.T) {
	b := Boundary{SourceStart: 1, SourceEnd: 5, Duration: 4}

	assert.True(t, b.Overlaps(0, 2))
	assert.True(t, b.Overlaps(4, 9))
	assert.True(t, b.Overlaps(2, 3))
	assert.False(t, b.Overlaps(0, 1))
	assert.False(t, b.Overlaps(5, 6))
}
