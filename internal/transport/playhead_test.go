package transport

import (
	"errors"
	"testing"

	"github.com/gopxl/beep/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rampSource yields its sample index as the left channel value.
type rampSource struct {
	pos, n int
	err    error
}

func (r *rampSource) Stream(samples [][2]float64) (int, bool) {
	if r.pos >= r.n {
		return 0, false
	}
	k := min(len(samples), r.n-r.pos)
	for i := range k {
		samples[i] = [2]float64{float64(r.pos + i), 0}
	}
	r.pos += k
	return k, true
}

func (r *rampSource) Err() error    { return r.err }
func (r *rampSource) Len() int      { return r.n }
func (r *rampSource) Position() int { return r.pos }

func (r *rampSource) Seek(p int) error {
	if p < 0 || p > r.n {
		return errors.New("out of range")
	}
	r.pos = p
	return nil
}

var _ beep.StreamSeeker = (*rampSource)(nil)

func TestPlayhead_StreamsSilencePastEnd(t *testing.T) {
	src := &rampSource{n: 10}
	p := newPlayhead(src, beep.SampleRate(10))

	buf := make([][2]float64, 8)
	n, ok := p.Stream(buf)
	assert.Equal(t, 8, n)
	assert.True(t, ok)
	assert.False(t, p.report().Ended)

	buf = make([][2]float64, 8)
	n, ok = p.Stream(buf)
	assert.Equal(t, 8, n)
	assert.True(t, ok, "the mixer entry must outlive the source")
	assert.InDelta(t, 9.0, buf[1][0], 1e-9)
	for _, s := range buf[2:] {
		assert.Zero(t, s[0])
	}

	r := p.report()
	assert.True(t, r.Ended)
	assert.InDelta(t, 1.0, r.Position, 1e-9)
	assert.False(t, p.report().Ended, "the end is reported once")

	n, ok = p.Stream(buf)
	assert.Equal(t, 8, n)
	assert.True(t, ok)
}

func TestPlayhead_SeekAfterEndResumes(t *testing.T) {
	src := &rampSource{n: 10}
	p := newPlayhead(src, beep.SampleRate(10))

	buf := make([][2]float64, 16)
	p.Stream(buf)
	require.True(t, p.report().Ended)

	require.NoError(t, p.seek(0.2))
	r := p.report()
	assert.True(t, r.Ack)
	assert.False(t, r.Ended)
	assert.InDelta(t, 0.2, r.Position, 1e-9)

	buf = make([][2]float64, 3)
	p.Stream(buf)
	assert.InDelta(t, 2.0, buf[0][0], 1e-9)
	assert.InDelta(t, 4.0, buf[2][0], 1e-9)
	assert.False(t, p.report().Ended)

	p.Stream(make([][2]float64, 16))
	assert.True(t, p.report().Ended, "reaching the end again is reported again")
}

func TestPlayhead_ReportPairsAckWithPosition(t *testing.T) {
	src := &rampSource{n: 100}
	p := newPlayhead(src, beep.SampleRate(10))

	p.Stream(make([][2]float64, 20))
	r := p.report()
	assert.False(t, r.Ack)
	assert.InDelta(t, 2.0, r.Position, 1e-9)

	// A seek between reports is acknowledged with the position it produced,
	// never with the one sampled before it.
	require.NoError(t, p.seek(3))
	r = p.report()
	assert.True(t, r.Ack)
	assert.InDelta(t, 3.0, r.Position, 1e-9)
	assert.False(t, p.report().Ack)
}

func TestPlayhead_SeekClamps(t *testing.T) {
	tests := []struct {
		name      string
		abs       float64
		want      float64
		wantEnded bool
	}{
		{"before start", -1, 0, false},
		{"inside", 0.5, 0.5, false},
		{"past end", 5, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPlayhead(&rampSource{n: 10}, beep.SampleRate(10))
			require.NoError(t, p.seek(tt.abs))
			r := p.report()
			assert.InDelta(t, tt.want, r.Position, 1e-9)
			assert.Equal(t, tt.wantEnded, r.Ended)
		})
	}
}

func TestPlayhead_Err(t *testing.T) {
	want := errors.New("corrupt frame")
	p := newPlayhead(&rampSource{n: 10, err: want}, beep.SampleRate(10))
	assert.ErrorIs(t, p.Err(), want)
	assert.ErrorIs(t, p.report().Err, want)
}
