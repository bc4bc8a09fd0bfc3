package waveform

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVSource implements Source for PCM WAV files using go-audio/wav.
type WAVSource struct {
	resolver Resolver
	logger   *slog.Logger
}

// NewWAVSource creates a new WAVSource. resolver may be nil.
func NewWAVSource(resolver Resolver, logger *slog.Logger) *WAVSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &WAVSource{resolver: resolver, logger: logger}
}

// GetWaveform decodes the requested range and returns its peaks.
// Channels are folded by taking the loudest channel per frame.
func (s *WAVSource) GetWaveform(ctx context.Context, req Request) (Peaks, error) {
	if err := req.Validate(); err != nil {
		return Peaks{}, err
	}

	path := req.FileRef
	if s.resolver != nil {
		resolved, err := s.resolver.Resolve(ctx, req.FileRef)
		if err != nil {
			return Peaks{}, fmt.Errorf("resolve source: %w", err)
		}
		path = resolved
	}

	f, err := os.Open(path) // #nosec G304 - path is provided by trusted caller
	if err != nil {
		return Peaks{}, fmt.Errorf("open source: %w", err)
	}
	defer func() { _ = f.Close() }()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return Peaks{}, ErrUnsupportedFile
	}

	channels := int(dec.NumChans)
	sampleRate := int(dec.SampleRate)
	bitDepth := int(dec.BitDepth)
	if channels == 0 || sampleRate == 0 || bitDepth == 0 {
		return Peaks{}, ErrUnsupportedFile
	}

	fullScale := float64(int(1) << (bitDepth - 1))
	offset := 0
	if bitDepth == 8 {
		// 8-bit PCM is unsigned.
		offset = 128
	}

	firstFrame := 0
	lastFrame := -1
	if req.Start > 0 {
		firstFrame = int(req.Start * float64(sampleRate))
	}
	if req.End > req.Start {
		lastFrame = int(req.End * float64(sampleRate))
	}

	acc := newAccumulator(req)
	buf := &audio.IntBuffer{
		Data:   make([]int, sampleRate*channels),
		Format: &audio.Format{NumChannels: channels, SampleRate: sampleRate},
	}

	frame := 0
	for {
		if err := ctx.Err(); err != nil {
			return Peaks{}, fmt.Errorf("waveform cancelled: %w", err)
		}

		n, err := dec.PCMBuffer(buf)
		if err != nil && err != io.EOF {
			return Peaks{}, fmt.Errorf("decode pcm: %w", err)
		}
		if n == 0 {
			break
		}

		for i := 0; i+channels <= n; i += channels {
			if lastFrame >= 0 && frame >= lastFrame {
				break
			}
			if frame >= firstFrame {
				loudest := 0.0
				for c := 0; c < channels; c++ {
					v := float64(buf.Data[i+c]-offset) / fullScale
					if v < 0 {
						v = -v
					}
					loudest = max(loudest, v)
				}
				acc.add(loudest)
			}
			frame++
		}

		if err == io.EOF || (lastFrame >= 0 && frame >= lastFrame) {
			break
		}
	}

	covered := max(frame-firstFrame, 0)
	peaks := Peaks{
		Peaks:    acc.result(),
		Duration: float64(covered) / float64(sampleRate),
	}

	s.logger.Debug("waveform extracted",
		slog.String("file_ref", req.FileRef),
		slog.Int("peaks", len(peaks.Peaks)),
		slog.Float64("duration", peaks.Duration),
	)
	return peaks, nil
}

var _ Source = (*WAVSource)(nil)
