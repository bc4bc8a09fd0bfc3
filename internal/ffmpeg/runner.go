// Package ffmpeg wraps the ffmpeg and ffprobe command line tools used for
// source analysis (silence detection and waveform decoding).
package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrFFprobeExecution is returned when the ffprobe command fails.
var ErrFFprobeExecution = errors.New("ffprobe execution failed")

// Runner executes ffmpeg and ffprobe.
type Runner struct {
	// ffmpegPath is the path to the ffmpeg binary. Defaults to "ffmpeg".
	ffmpegPath string
	// ffprobePath is derived from ffmpegPath: a sibling binary when ffmpegPath
	// has a directory component, "ffprobe" from PATH otherwise.
	ffprobePath string
}

// NewRunner creates a new Runner.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found via PATH).
func NewRunner(ffmpegPath string) *Runner {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	ffprobePath := "ffprobe"
	if dir := filepath.Dir(ffmpegPath); dir != "." {
		ffprobePath = filepath.Join(dir, "ffprobe")
	}
	return &Runner{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath}
}

// Path returns the ffmpeg binary path.
func (r *Runner) Path() string {
	return r.ffmpegPath
}

// Run executes ffmpeg with the given arguments. Stdout is streamed to stdout
// when non-nil; stderr is captured and returned because ffmpeg reports filter
// output (silencedetect, durations) there.
func (r *Runner) Run(ctx context.Context, args []string, stdout io.Writer) (string, error) {
	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, r.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if stdout != nil {
		cmd.Stdout = stdout
	}

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return stderr.String(), fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return stderr.String(), &Error{
			Args:   args,
			Stderr: stderr.String(),
			Err:    err,
		}
	}

	return stderr.String(), nil
}

// Duration returns the duration in seconds of a media file using ffprobe.
func (r *Runner) Duration(ctx context.Context, path string) (float64, error) {
	// #nosec G204 - ffprobePath is set by the application, not user input
	cmd := exec.CommandContext(ctx, r.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return 0, fmt.Errorf("ffprobe cancelled: %w", ctx.Err())
		}
		return 0, fmt.Errorf("%w: %w, stderr: %s", ErrFFprobeExecution, err, stderr.String())
	}

	var duration float64
	if _, err := fmt.Sscanf(strings.TrimSpace(stdout.String()), "%f", &duration); err != nil {
		return 0, fmt.Errorf("parse duration: %w", err)
	}

	return duration, nil
}

// Error represents a failed ffmpeg run, including the stderr output.
type Error struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("ffmpeg error: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// FormatSeconds renders seconds with millisecond precision for ffmpeg arguments.
func FormatSeconds(sec float64) string {
	return fmt.Sprintf("%.3f", sec)
}
