// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrUnknownBackend is returned when AUDIO_BACKEND is neither sim nor speaker.
	ErrUnknownBackend = errors.New("config: AUDIO_BACKEND must be sim or speaker")
	// ErrUnknownScale is returned when WAVEFORM_SCALE is neither linear nor log.
	ErrUnknownScale = errors.New("config: WAVEFORM_SCALE must be linear or log")
	// ErrNonPositiveTiming is returned when a loop timing setting is not positive.
	ErrNonPositiveTiming = errors.New("config: timing settings must be positive")
	// ErrInvalidAnalysis is returned when silence or waveform parameters are out of range.
	ErrInvalidAnalysis = errors.New("config: invalid analysis settings")
	// ErrInvalidPort is returned when PORT is out of range.
	ErrInvalidPort = errors.New("config: PORT must be between 1 and 65535")
)

// Audio backends.
const (
	BackendSim     = "sim"
	BackendSpeaker = "speaker"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port int `env:"PORT, default=8080" json:"port" validate:"min=1,max=65535"`

	// Storage settings
	TempDir    string `env:"TEMP_DIR, default=/tmp/clipsync" json:"temp_dir"`
	FFmpegPath string `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path"`

	// Playback settings
	AudioBackend       string `env:"AUDIO_BACKEND, default=sim" json:"audio_backend" validate:"oneof=sim speaker"`
	ProgressIntervalMs int    `env:"PROGRESS_INTERVAL_MS, default=50" json:"progress_interval_ms" validate:"gt=0"`
	DriftToleranceMs   int    `env:"DRIFT_TOLERANCE_MS, default=50" json:"drift_tolerance_ms" validate:"gt=0"`
	SkipGuardMs        int    `env:"SKIP_GUARD_MS, default=30" json:"skip_guard_ms" validate:"gt=0"`
	SeekAckTimeoutMs   int    `env:"SEEK_ACK_TIMEOUT_MS, default=500" json:"seek_ack_timeout_ms" validate:"gt=0"`
	OverlayDebounceMs  int    `env:"OVERLAY_DEBOUNCE_MS, default=100" json:"overlay_debounce_ms" validate:"gte=0"`
	PeakCacheSize      int    `env:"PEAK_CACHE_SIZE, default=256" json:"peak_cache_size" validate:"gt=0"`

	// Silence detection settings
	SilenceThresholdDB float64 `env:"SILENCE_THRESHOLD_DB, default=-40" json:"silence_threshold_db" validate:"lt=0"`
	MinSilenceMs       int     `env:"MIN_SILENCE_MS, default=500" json:"min_silence_ms" validate:"gt=0"`
	SilencePadLeftMs   int     `env:"SILENCE_PAD_LEFT_MS, default=0" json:"silence_pad_left_ms" validate:"gte=0"`
	SilencePadRightMs  int     `env:"SILENCE_PAD_RIGHT_MS, default=0" json:"silence_pad_right_ms" validate:"gte=0"`

	// Waveform settings
	SamplesPerPixel int     `env:"SAMPLES_PER_PIXEL, default=256" json:"samples_per_pixel" validate:"gt=0"`
	WaveformScale   string  `env:"WAVEFORM_SCALE, default=linear" json:"waveform_scale" validate:"oneof=linear log"`
	WaveformFloorDB float64 `env:"WAVEFORM_FLOOR_DB, default=-60" json:"waveform_floor_db" validate:"lt=0"`

	// Optional remote analysis service
	AnalysisURL    string `env:"ANALYSIS_URL" json:"analysis_url,omitempty" validate:"omitempty,url"`
	AnalysisAPIKey string `env:"ANALYSIS_API_KEY" json:"-"` // Masked in JSON

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// RemoteAnalysisEnabled returns true if an analysis service URL is configured.
func (c *Config) RemoteAnalysisEnabled() bool {
	return c.AnalysisURL != ""
}

// Load reads configuration from environment variables using go-envconfig
// and validates it.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

var validate = validator.New()

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("config: %w", err)
	}

	fe := verrs[0]
	switch fe.Field() {
	case "Port":
		return ErrInvalidPort
	case "AudioBackend":
		return ErrUnknownBackend
	case "WaveformScale":
		return ErrUnknownScale
	case "ProgressIntervalMs", "DriftToleranceMs", "SkipGuardMs", "SeekAckTimeoutMs", "OverlayDebounceMs":
		return fmt.Errorf("%w: %s", ErrNonPositiveTiming, fe.Field())
	default:
		return fmt.Errorf("%w: %s", ErrInvalidAnalysis, fe.Field())
	}
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// ProgressInterval returns the transport progress cadence.
func (c *Config) ProgressInterval() time.Duration { return millis(c.ProgressIntervalMs) }

// DriftTolerance returns the clock resync tolerance.
func (c *Config) DriftTolerance() time.Duration { return millis(c.DriftToleranceMs) }

// SkipGuard returns the skip engine guard.
func (c *Config) SkipGuard() time.Duration { return millis(c.SkipGuardMs) }

// SeekAckTimeout returns the programmatic seek safety timeout.
func (c *Config) SeekAckTimeout() time.Duration { return millis(c.SeekAckTimeoutMs) }

// OverlayDebounce returns the region redraw debounce.
func (c *Config) OverlayDebounce() time.Duration { return millis(c.OverlayDebounceMs) }

// MinSilence returns the detector minimum silence duration in seconds.
func (c *Config) MinSilence() float64 { return millis(c.MinSilenceMs).Seconds() }

// SilencePadLeft returns the left padding in seconds.
func (c *Config) SilencePadLeft() float64 { return millis(c.SilencePadLeftMs).Seconds() }

// SilencePadRight returns the right padding in seconds.
func (c *Config) SilencePadRight() float64 { return millis(c.SilencePadRightMs).Seconds() }

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	return c.NewLoggerTo(os.Stdout)
}

// NewLoggerTo creates a structured logger writing to w.
func (c *Config) NewLoggerTo(w io.Writer) *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, TempDir: %s, AudioBackend: %s, ProgressIntervalMs: %d, SkipGuardMs: %d, AnalysisURL: %s, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.TempDir,
		c.AudioBackend,
		c.ProgressIntervalMs,
		c.SkipGuardMs,
		c.AnalysisURL,
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
