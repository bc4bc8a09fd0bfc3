// Package waveform extracts decimated peak magnitudes from source audio and
// derives the clip-sized display slices the visual layer renders.
package waveform

import (
	"context"
	"errors"
	"math"
)

// Static errors for waveform extraction.
var (
	// ErrInvalidSamplesPerPixel is returned when SamplesPerPixel is not positive.
	ErrInvalidSamplesPerPixel = errors.New("waveform: samples per pixel must be positive")
	// ErrInvalidScale is returned for an unknown scale name.
	ErrInvalidScale = errors.New("waveform: scale must be linear or log")
	// ErrUnsupportedFile is returned when the source is not a readable PCM WAV file.
	ErrUnsupportedFile = errors.New("waveform: unsupported or invalid WAV file")
)

// Scale selects how amplitudes are mapped to [0,1].
type Scale string

const (
	// ScaleLinear maps absolute amplitude directly.
	ScaleLinear Scale = "linear"
	// ScaleLog maps amplitude in dBFS, floored at FloorDB.
	ScaleLog Scale = "log"
)

// IsValid returns true if the scale is known.
func (s Scale) IsValid() bool {
	return s == ScaleLinear || s == ScaleLog
}

// Request describes a waveform extraction. Start/End are absolute source
// seconds; End <= Start means the whole file.
type Request struct {
	FileRef         string  `json:"file_ref"`
	SamplesPerPixel int     `json:"samples_per_pixel"`
	Scale           Scale   `json:"scale"`
	FloorDB         float64 `json:"floor_db"`
	Start           float64 `json:"start"`
	End             float64 `json:"end"`
}

// Validate checks the extraction parameters.
func (r Request) Validate() error {
	if r.SamplesPerPixel <= 0 {
		return ErrInvalidSamplesPerPixel
	}
	if !r.Scale.IsValid() {
		return ErrInvalidScale
	}
	return nil
}

// Peaks is a decimated magnitude array covering Duration seconds of audio.
type Peaks struct {
	Peaks    []float64 `json:"peaks"`
	Duration float64   `json:"duration"`
}

// Source extracts peaks from a source file.
type Source interface {
	GetWaveform(ctx context.Context, req Request) (Peaks, error)
}

// Resolver maps a file reference to a local path.
type Resolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

// accumulator folds a stream of normalized samples into per-pixel peaks.
type accumulator struct {
	samplesPerPixel int
	scale           Scale
	floorDB         float64

	peaks []float64
	cur   float64
	n     int
}

func newAccumulator(req Request) *accumulator {
	return &accumulator{
		samplesPerPixel: req.SamplesPerPixel,
		scale:           req.Scale,
		floorDB:         req.FloorDB,
	}
}

// add consumes one mono sample in [-1, 1].
func (a *accumulator) add(v float64) {
	if v < 0 {
		v = -v
	}
	if v > a.cur {
		a.cur = v
	}
	a.n++
	if a.n == a.samplesPerPixel {
		a.flush()
	}
}

func (a *accumulator) flush() {
	if a.n == 0 {
		return
	}
	a.peaks = append(a.peaks, scaleMagnitude(a.cur, a.scale, a.floorDB))
	a.cur = 0
	a.n = 0
}

// result flushes the partial block and returns the collected peaks.
func (a *accumulator) result() []float64 {
	a.flush()
	return a.peaks
}

// scaleMagnitude maps an absolute amplitude in [0,1] onto [0,1].
func scaleMagnitude(amp float64, scale Scale, floorDB float64) float64 {
	amp = math.Min(amp, 1)
	if scale != ScaleLog {
		return amp
	}
	if floorDB >= 0 {
		floorDB = -60
	}
	if amp <= 0 {
		return 0
	}
	db := 20 * math.Log10(amp)
	if db <= floorDB {
		return 0
	}
	return (db - floorDB) / -floorDB
}
