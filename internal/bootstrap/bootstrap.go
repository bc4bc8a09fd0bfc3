// Package bootstrap provides dependency initialization for clipsync.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maauso/clipsync/internal/config"
	"github.com/maauso/clipsync/internal/ffmpeg"
	"github.com/maauso/clipsync/internal/overlay"
	"github.com/maauso/clipsync/internal/playback"
	"github.com/maauso/clipsync/internal/remote"
	"github.com/maauso/clipsync/internal/silence"
	"github.com/maauso/clipsync/internal/storage"
	"github.com/maauso/clipsync/internal/transport"
	"github.com/maauso/clipsync/internal/waveform"
)

// Dependencies holds all initialized dependencies for a playback session.
type Dependencies struct {
	Storage    storage.Storage
	Detector   silence.Detector
	Waveform   waveform.Source
	SliceCache *waveform.SliceCache
	Transports transport.Factory
	Overlay    *overlay.Manager
	Renderer   *overlay.MemoryRenderer
	Session    *playback.Session

	// SilenceTemplate and WaveformTemplate carry the configured analysis
	// parameters; callers fill in the file and range.
	SilenceTemplate  silence.Request
	WaveformTemplate waveform.Request
}

// Option adjusts how dependencies are built.
type Option func(*options)

type options struct {
	factory  transport.Factory
	noDetect bool
}

// WithTransportFactory overrides the transport chosen by AUDIO_BACKEND.
func WithTransportFactory(f transport.Factory) Option {
	return func(o *options) {
		o.factory = f
	}
}

// WithoutSilenceDetection keeps the session from detecting silences on load;
// intervals then only arrive through SetSilences.
func WithoutSilenceDetection() Option {
	return func(o *options) {
		o.noDetect = true
	}
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Dependencies, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	store, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	detector, source, err := initAnalysis(cfg, store, logger)
	if err != nil {
		return nil, err
	}

	cache, err := waveform.NewSliceCache(cfg.PeakCacheSize, logger)
	if err != nil {
		return nil, fmt.Errorf("create slice cache: %w", err)
	}

	factory := o.factory
	if factory == nil {
		factory, err = initTransport(cfg, store, logger)
		if err != nil {
			return nil, err
		}
	}

	renderer := overlay.NewMemoryRenderer()
	regions := overlay.NewManager(renderer, cfg.OverlayDebounce(), logger)

	silenceTemplate := silence.Request{
		ThresholdDB: cfg.SilenceThresholdDB,
		MinDuration: cfg.MinSilence(),
		PadLeft:     cfg.SilencePadLeft(),
		PadRight:    cfg.SilencePadRight(),
	}
	waveformTemplate := waveform.Request{
		SamplesPerPixel: cfg.SamplesPerPixel,
		Scale:           waveform.Scale(cfg.WaveformScale),
		FloorDB:         cfg.WaveformFloorDB,
	}

	sessionOpts := []playback.Option{
		playback.WithConfig(playback.Config{
			ProgressInterval: cfg.ProgressInterval(),
			DriftTolerance:   cfg.DriftTolerance(),
			SkipGuard:        cfg.SkipGuard(),
			SeekAckTimeout:   cfg.SeekAckTimeout(),
			SkipEnabled:      true,
		}),
		playback.WithRegionSink(regions),
		playback.WithWaveform(source, cache, waveformTemplate),
	}
	if !o.noDetect {
		sessionOpts = append(sessionOpts, playback.WithSilenceDetector(detector, silenceTemplate))
	}
	session := playback.NewSession(factory, logger, sessionOpts...)

	return &Dependencies{
		Storage:          store,
		Detector:         detector,
		Waveform:         source,
		SliceCache:       cache,
		Transports:       factory,
		Overlay:          regions,
		Renderer:         renderer,
		Session:          session,
		SilenceTemplate:  silenceTemplate,
		WaveformTemplate: waveformTemplate,
	}, nil
}

// Close stops the session and releases downloaded sources.
func (d *Dependencies) Close(ctx context.Context) error {
	var errs []error
	if err := d.Session.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close session: %w", err))
	}
	d.Overlay.Close()
	if s3Store, ok := d.Storage.(*storage.S3Storage); ok {
		if err := s3Store.Cleanup(ctx); err != nil {
			errs = append(errs, fmt.Errorf("cleanup downloads: %w", err))
		}
	}
	return errors.Join(errs...)
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(cfg.TempDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.TempDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("temp_dir", cfg.TempDir),
	)
	return localStore, nil
}

// initAnalysis picks the silence detector and waveform source: the remote
// analysis service when configured, local ffmpeg and WAV decoding otherwise.
// Detection results are memoised either way.
func initAnalysis(cfg *config.Config, store storage.Storage, logger *slog.Logger) (silence.Detector, waveform.Source, error) {
	if cfg.RemoteAnalysisEnabled() {
		client, err := remote.NewClient(cfg.AnalysisURL,
			remote.WithAPIKey(cfg.AnalysisAPIKey),
			remote.WithLogger(logger),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("create analysis client: %w", err)
		}
		logger.Info("remote analysis configured",
			slog.String("url", cfg.AnalysisURL),
		)
		return silence.NewCachedDetector(client, silence.NewMemoryStore(), logger), client, nil
	}

	runner := ffmpeg.NewRunner(cfg.FFmpegPath)
	detector := silence.NewCachedDetector(
		silence.NewFFmpegDetector(runner, store, logger),
		silence.NewMemoryStore(),
		logger,
	)
	source := waveform.NewFallbackSource(
		waveform.NewWAVSource(store, logger),
		waveform.NewFFmpegSource(runner, store, logger),
		logger,
	)
	logger.Info("local analysis configured",
		slog.String("ffmpeg_path", cfg.FFmpegPath),
	)
	return detector, source, nil
}

// initTransport creates the transport factory selected by AUDIO_BACKEND.
func initTransport(cfg *config.Config, store storage.Storage, logger *slog.Logger) (transport.Factory, error) {
	switch cfg.AudioBackend {
	case config.BackendSpeaker:
		if !transport.AudioAvailable {
			return nil, fmt.Errorf("audio backend %q: %w", cfg.AudioBackend, transport.ErrAudioUnavailable)
		}
		logger.Info("speaker transport configured")
		return transport.NewSpeakerFactory(store, logger), nil
	case config.BackendSim:
		logger.Info("simulated transport configured")
		return transport.NewSimFactory(transport.SimConfig{}), nil
	default:
		return nil, fmt.Errorf("%w: %s", config.ErrUnknownBackend, cfg.AudioBackend)
	}
}
