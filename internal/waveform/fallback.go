package waveform

import (
	"context"
	"errors"
	"log/slog"
)

// FallbackSource serves requests from a primary source and retries with a
// fallback when the primary cannot read the file format.
type FallbackSource struct {
	primary  Source
	fallback Source
	logger   *slog.Logger
}

// NewFallbackSource creates a FallbackSource. A nil fallback disables retrying.
func NewFallbackSource(primary, fallback Source, logger *slog.Logger) *FallbackSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackSource{primary: primary, fallback: fallback, logger: logger}
}

// GetWaveform implements Source.
func (s *FallbackSource) GetWaveform(ctx context.Context, req Request) (Peaks, error) {
	peaks, err := s.primary.GetWaveform(ctx, req)
	if err == nil || s.fallback == nil || !errors.Is(err, ErrUnsupportedFile) {
		return peaks, err
	}

	s.logger.Debug("primary waveform source cannot read file, falling back",
		slog.String("file", req.FileRef),
	)
	return s.fallback.GetWaveform(ctx, req)
}

var _ Source = (*FallbackSource)(nil)
