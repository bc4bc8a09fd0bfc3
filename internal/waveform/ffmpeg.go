package waveform

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/maauso/clipsync/internal/ffmpeg"
)

// decodeRate is the sample rate ffmpeg resamples to before peak extraction.
const decodeRate = 44100

// FFmpegSource implements Source for any format ffmpeg can decode. Audio is
// downmixed to mono float32 and streamed through the peak accumulator.
type FFmpegSource struct {
	runner   *ffmpeg.Runner
	resolver Resolver
	logger   *slog.Logger
}

// NewFFmpegSource creates a new FFmpegSource. resolver may be nil.
func NewFFmpegSource(runner *ffmpeg.Runner, resolver Resolver, logger *slog.Logger) *FFmpegSource {
	if runner == nil {
		runner = ffmpeg.NewRunner("")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FFmpegSource{runner: runner, resolver: resolver, logger: logger}
}

// GetWaveform implements Source.
func (s *FFmpegSource) GetWaveform(ctx context.Context, req Request) (Peaks, error) {
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

	args := []string{"-hide_banner", "-nostats", "-v", "error"}
	if req.Start > 0 {
		args = append(args, "-ss", ffmpeg.FormatSeconds(req.Start))
	}
	if req.End > req.Start {
		args = append(args, "-to", ffmpeg.FormatSeconds(req.End))
	}
	args = append(args,
		"-i", path,
		"-ac", "1",
		"-ar", fmt.Sprint(decodeRate),
		"-f", "f32le",
		"-",
	)

	pr, pw := io.Pipe()
	acc := newAccumulator(req)
	samples := 0

	readErr := make(chan error, 1)
	go func() {
		readErr <- readFloat32(pr, func(v float64) {
			acc.add(v)
			samples++
		})
	}()

	_, runErr := s.runner.Run(ctx, args, pw)
	_ = pw.CloseWithError(runErr)
	if err := <-readErr; err != nil && !errors.Is(err, io.EOF) && runErr == nil {
		return Peaks{}, fmt.Errorf("read pcm: %w", err)
	}
	if runErr != nil {
		return Peaks{}, fmt.Errorf("decode source: %w", runErr)
	}

	peaks := Peaks{
		Peaks:    acc.result(),
		Duration: float64(samples) / decodeRate,
	}
	s.logger.Debug("waveform extracted",
		slog.String("file_ref", req.FileRef),
		slog.Int("peaks", len(peaks.Peaks)),
		slog.Float64("duration", peaks.Duration),
	)
	return peaks, nil
}

// readFloat32 decodes little-endian float32 samples until r is exhausted.
func readFloat32(r io.Reader, fn func(float64)) error {
	br := bufio.NewReaderSize(r, 64*1024)
	var b [4]byte
	for {
		if _, err := io.ReadFull(br, b[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return err
		}
		fn(float64(math.Float32frombits(binary.LittleEndian.Uint32(b[:]))))
	}
}

var _ Source = (*FFmpegSource)(nil)
