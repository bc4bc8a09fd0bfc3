package overlay

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/clipsync/internal/clip"
	"github.com/maauso/clipsync/internal/silence"
)

var (
	clipA = clip.Boundary{SourceStart: 10, SourceEnd: 20, Duration: 10}
	clipB = clip.Boundary{SourceStart: 40, SourceEnd: 45, Duration: 5}
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestProject(t *testing.T) {
	tests := []struct {
		name      string
		intervals []silence.Interval
		want      []Region
	}{
		{
			name: "inside clip",
			intervals: []silence.Interval{
				{Start: 12, End: 13},
				{Start: 15, End: 16.5},
			},
			want: []Region{
				{ID: "silence-0", Start: 12, End: 13},
				{ID: "silence-1", Start: 15, End: 16.5},
			},
		},
		{
			name: "straddling edges are clipped",
			intervals: []silence.Interval{
				{Start: 8, End: 11},
				{Start: 19, End: 25},
			},
			want: []Region{
				{ID: "silence-0", Start: 10, End: 11},
				{ID: "silence-1", Start: 19, End: 20},
			},
		},
		{
			name: "outside and degenerate are dropped",
			intervals: []silence.Interval{
				{Start: 1, End: 2},
				{Start: 14, End: 14},
				{Start: 20, End: 21},
			},
			want: []Region{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Project(clipA, tt.intervals))
		})
	}
}

func TestManager_BoundaryChangeDrawsImmediately(t *testing.T) {
	r := NewMemoryRenderer()
	m := NewManager(r, time.Hour, discardLogger())
	defer m.Close()

	m.SetRegions(clipA, []silence.Interval{{Start: 12, End: 13}})
	assert.Equal(t, []Region{{ID: "silence-0", Start: 12, End: 13}}, r.Regions())

	// Same intervals against a new clip: nothing overlaps, old regions are gone.
	m.SetRegions(clipB, []silence.Interval{{Start: 12, End: 13}})
	assert.Empty(t, r.Regions())
	assert.Equal(t, 2, r.Clears())
}

func TestManager_DebouncesUpdatesForSameClip(t *testing.T) {
	r := NewMemoryRenderer()
	m := NewManager(r, 20*time.Millisecond, discardLogger())
	defer m.Close()

	m.SetRegions(clipA, nil)
	require.Equal(t, 1, r.Clears())

	m.SetRegions(clipA, []silence.Interval{{Start: 11, End: 12}})
	m.SetRegions(clipA, []silence.Interval{{Start: 11, End: 12}, {Start: 14, End: 15}})
	m.SetRegions(clipA, []silence.Interval{{Start: 16, End: 17}})
	assert.Equal(t, 1, r.Clears(), "updates are coalesced")

	require.Eventually(t, func() bool { return r.Clears() == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, []Region{{ID: "silence-0", Start: 16, End: 17}}, r.Regions())
	assert.Equal(t, r.Regions(), m.Regions())
}

func TestManager_Flush(t *testing.T) {
	r := NewMemoryRenderer()
	m := NewManager(r, time.Hour, discardLogger())
	defer m.Close()

	m.SetRegions(clipA, nil)
	m.SetRegions(clipA, []silence.Interval{{Start: 11, End: 12}})
	assert.Empty(t, r.Regions())

	m.Flush()
	assert.Len(t, r.Regions(), 1)

	m.Flush()
	assert.Equal(t, 2, r.Clears(), "nothing pending")
}

func TestManager_CloseDropsPending(t *testing.T) {
	r := NewMemoryRenderer()
	m := NewManager(r, 5*time.Millisecond, discardLogger())

	m.SetRegions(clipA, nil)
	m.SetRegions(clipA, []silence.Interval{{Start: 11, End: 12}})
	m.Close()

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, r.Regions())

	m.SetRegions(clipB, []silence.Interval{{Start: 41, End: 42}})
	assert.Empty(t, r.Regions())
}

func TestManager_ZeroDebounceDrawsSynchronously(t *testing.T) {
	r := NewMemoryRenderer()
	m := NewManager(r, 0, discardLogger())

	m.SetRegions(clipA, []silence.Interval{{Start: 11, End: 12}})
	m.SetRegions(clipA, []silence.Interval{{Start: 13, End: 14}})
	assert.Equal(t, []Region{{ID: "silence-0", Start: 13, End: 14}}, r.Regions())
}
