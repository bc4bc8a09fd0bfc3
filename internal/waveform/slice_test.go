package waveform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/clipsync/internal/clip"
)

func ramp(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i) / float64(n)
	}
	return out
}

func TestSlice(t *testing.T) {
	// 100 slots over 10s: 0.1s per slot.
	full := Peaks{Peaks: ramp(100), Duration: 10}

	tests := []struct {
		name      string
		boundary  clip.Boundary
		wantLen   int
		wantFirst float64
	}{
		{"middle", clip.Boundary{SourceStart: 1, SourceEnd: 5, Duration: 4}, 40, 0.10},
		{"whole", clip.Boundary{SourceStart: 0, SourceEnd: 10, Duration: 10}, 100, 0},
		{"past end clamped", clip.Boundary{SourceStart: 9, SourceEnd: 20, Duration: 11}, 10, 0.90},
		{"one slot padded", clip.Boundary{SourceStart: 2.02, SourceEnd: 2.06, Duration: 0.04}, 2, 0.20},
		{"shorter than a slot", clip.Boundary{SourceStart: 2.0, SourceEnd: 2.04, Duration: 0.04}, 2, 0},
		{"entirely past end", clip.Boundary{SourceStart: 11, SourceEnd: 12, Duration: 1}, 2, 0},
		{"zero duration", clip.Boundary{SourceStart: 3, SourceEnd: 3}, 2, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Slice(full, tt.boundary)
			require.Len(t, got, tt.wantLen)
			assert.InDelta(t, tt.wantFirst, got[0], 1e-9)
		})
	}
}

func TestSlice_PadsSingleSlot(t *testing.T) {
	full := Peaks{Peaks: ramp(100), Duration: 100}

	got := Slice(full, clip.Boundary{SourceStart: 10.2, SourceEnd: 10.6, Duration: 0.4})

	require.Len(t, got, minDisplayPeaks)
	assert.InDelta(t, 0.10, got[0], 1e-9)
	assert.InDelta(t, 0.10, got[1], 1e-9)
}

func TestSlice_EmptySource(t *testing.T) {
	b := clip.Boundary{SourceStart: 0, SourceEnd: 1, Duration: 1}

	assert.Equal(t, []float64{0, 0}, Slice(Peaks{}, b))
	assert.Equal(t, []float64{0, 0}, Slice(Peaks{Peaks: []float64{0.5}, Duration: 0}, b))
}

func TestSlice_DoesNotAlias(t *testing.T) {
	full := Peaks{Peaks: ramp(10), Duration: 1}
	got := Slice(full, clip.Boundary{SourceStart: 0, SourceEnd: 1, Duration: 1})
	got[0] = 42
	assert.Equal(t, 0.0, full.Peaks[0])
}

func TestSliceCache_Idempotent(t *testing.T) {
	c, err := NewSliceCache(4, nil)
	require.NoError(t, err)

	full := Peaks{Peaks: ramp(100), Duration: 10}
	b := clip.Boundary{SourceStart: 1, SourceEnd: 5, Duration: 4}

	first, hit := c.DisplayPeaks("file-a", full, b)
	assert.False(t, hit)

	second, hit := c.DisplayPeaks("file-a", full, b)
	assert.True(t, hit)
	assert.Equal(t, first, second)

	// A different boundary is a different key.
	_, hit = c.DisplayPeaks("file-a", full, clip.Boundary{SourceStart: 1, SourceEnd: 6, Duration: 5})
	assert.False(t, hit)

	// Same boundary on another file too.
	_, hit = c.DisplayPeaks("file-b", full, b)
	assert.False(t, hit)

	cached, ok := c.Lookup("file-a", b)
	assert.True(t, ok)
	assert.Equal(t, first, cached)
	assert.Equal(t, 3, c.Len())
}
