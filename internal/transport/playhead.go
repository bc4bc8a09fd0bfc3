package transport

import (
	"fmt"
	"time"

	"github.com/gopxl/beep/v2"
)

// playhead wraps a seekable source for the mixer. It never drains: past the
// end of the source it streams silence and flags the end, so a later seek
// resumes audio on the same mixer entry.
//
// The mixer calls Stream with its lock held; every other method must be
// called under that same lock so a position sample and the seek
// acknowledgement it belongs to are read together.
type playhead struct {
	src  beep.StreamSeeker
	rate beep.SampleRate

	pendingAck bool
	ended      bool
	reported   bool
}

// playheadReport is one consistent observation of the playhead.
type playheadReport struct {
	Position float64
	Ack      bool
	Ended    bool
	Err      error
}

func newPlayhead(src beep.StreamSeeker, rate beep.SampleRate) *playhead {
	return &playhead{src: src, rate: rate}
}

// Stream implements beep.Streamer.
func (p *playhead) Stream(samples [][2]float64) (int, bool) {
	filled := 0
	for filled < len(samples) && !p.ended {
		n, ok := p.src.Stream(samples[filled:])
		filled += n
		if !ok || n == 0 {
			p.ended = true
		}
	}
	clear(samples[filled:])
	return len(samples), true
}

// Err implements beep.Streamer.
func (p *playhead) Err() error {
	return p.src.Err()
}

// seek moves the source to abs seconds, clamped to the source, and marks the
// move for acknowledgement on the next report.
func (p *playhead) seek(abs float64) error {
	n := p.rate.N(time.Duration(abs * float64(time.Second)))
	n = max(0, min(n, p.src.Len()))
	if err := p.src.Seek(n); err != nil {
		return fmt.Errorf("seek: %w", err)
	}
	p.pendingAck = true
	p.ended = n >= p.src.Len()
	p.reported = false
	return nil
}

func (p *playhead) position() float64 {
	return p.rate.D(p.src.Position()).Seconds()
}

// report samples the position and consumes the pending acknowledgement and
// the end flag. The end is reported once per reach.
func (p *playhead) report() playheadReport {
	r := playheadReport{
		Position: p.position(),
		Ack:      p.pendingAck,
		Ended:    p.ended && !p.reported,
		Err:      p.src.Err(),
	}
	p.pendingAck = false
	if r.Ended {
		p.reported = true
	}
	return r
}
