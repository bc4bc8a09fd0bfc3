package playback

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/clipsync/internal/clip"
)

type fakeSeeker struct {
	seeks []float64
	err   error
}

func (f *fakeSeeker) Seek(abs float64) error {
	if f.err != nil {
		return f.err
	}
	f.seeks = append(f.seeks, abs)
	return nil
}

type fakeNow struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeNow) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeNow) Add(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

var testBoundary = clip.Boundary{SourceStart: 10, SourceEnd: 20, Duration: 10}

func newTestClock(seeker Seeker, now *fakeNow) *Clock {
	return NewClock(testBoundary, seeker, ClockOptions{
		DriftTolerance: 0.05,
		AckTimeout:     500 * time.Millisecond,
		Now:            now.Now,
	})
}

func TestClock_SeekToClampsAndMapsToAbsolute(t *testing.T) {
	tests := []struct {
		name    string
		rel     float64
		wantRel float64
		wantAbs float64
	}{
		{name: "inside", rel: 2.5, wantRel: 2.5, wantAbs: 12.5},
		{name: "negative", rel: -5, wantRel: 0, wantAbs: 10},
		{name: "past end", rel: 100, wantRel: 10, wantAbs: 20},
		{name: "exact end", rel: 10, wantRel: 10, wantAbs: 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seeker := &fakeSeeker{}
			c := newTestClock(seeker, &fakeNow{t: time.Unix(0, 0)})

			require.NoError(t, c.SeekTo(tt.rel))
			assert.InDelta(t, tt.wantRel, c.Time(), 1e-9)
			assert.InDelta(t, tt.wantAbs, c.Absolute(), 1e-9)
			require.Len(t, seeker.seeks, 1)
			assert.InDelta(t, tt.wantAbs, seeker.seeks[0], 1e-9)
			assert.True(t, c.SeekInFlight())
		})
	}
}

func TestClock_SeekErrorLeavesCursor(t *testing.T) {
	c := newTestClock(&fakeSeeker{err: errors.New("device busy")}, &fakeNow{t: time.Unix(0, 0)})

	require.EqualError(t, c.SeekTo(3), "device busy")
	assert.Zero(t, c.Time())
	assert.False(t, c.SeekInFlight())
}

func TestClock_ProgrammaticSeekSuppressesEcho(t *testing.T) {
	now := &fakeNow{t: time.Unix(0, 0)}
	c := newTestClock(&fakeSeeker{}, now)

	require.NoError(t, c.SeekTo(5))

	// A report from before the seek landed must not move the cursor back.
	assert.False(t, c.Observe(10.4, true))
	assert.InDelta(t, 5.0, c.Time(), 1e-9)

	c.Acknowledge()
	assert.False(t, c.SeekInFlight())
	assert.True(t, c.Observe(15.05, true))
	assert.InDelta(t, 5.05, c.Time(), 1e-9)
}

func TestClock_AckTimeoutClearsFlag(t *testing.T) {
	now := &fakeNow{t: time.Unix(0, 0)}
	c := newTestClock(&fakeSeeker{}, now)

	require.NoError(t, c.SeekTo(5))
	now.Add(499 * time.Millisecond)
	assert.False(t, c.Observe(11, true))
	assert.True(t, c.SeekInFlight())

	now.Add(2 * time.Millisecond)
	assert.True(t, c.Observe(11, true))
	assert.False(t, c.SeekInFlight())
	assert.InDelta(t, 1.0, c.Time(), 1e-9)
}

func TestClock_DriftTolerance(t *testing.T) {
	tests := []struct {
		name    string
		abs     float64
		playing bool
		moved   bool
		wantRel float64
	}{
		{name: "forward progress while playing", abs: 12.01, playing: true, moved: true, wantRel: 2.01},
		{name: "small backward jitter while playing", abs: 11.97, playing: true, moved: false, wantRel: 2},
		{name: "large backward correction", abs: 11.5, playing: true, moved: true, wantRel: 1.5},
		{name: "small drift while paused", abs: 12.02, playing: false, moved: false, wantRel: 2},
		{name: "large drift while paused", abs: 12.5, playing: false, moved: true, wantRel: 2.5},
		{name: "no change", abs: 12, playing: true, moved: false, wantRel: 2},
		{name: "report past clip end is clamped", abs: 25, playing: true, moved: true, wantRel: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClock(&fakeSeeker{}, &fakeNow{t: time.Unix(0, 0)})
			require.NoError(t, c.SeekTo(2))
			c.Acknowledge()

			assert.Equal(t, tt.moved, c.Observe(tt.abs, tt.playing))
			assert.InDelta(t, tt.wantRel, c.Time(), 1e-9)
		})
	}
}

func TestClock_CancelSeekAndSnap(t *testing.T) {
	c := newTestClock(&fakeSeeker{}, &fakeNow{t: time.Unix(0, 0)})
	require.NoError(t, c.SeekTo(1))
	c.CancelSeek()
	assert.False(t, c.SeekInFlight())

	c.SnapToEnd()
	assert.InDelta(t, 10.0, c.Time(), 1e-9)
	assert.Equal(t, testBoundary, c.Boundary())
}
