package silence

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/maauso/clipsync/internal/ffmpeg"
)

var (
	silenceStartRe = regexp.MustCompile(`silence_start:\s*(-?[\d.]+)`)
	silenceEndRe   = regexp.MustCompile(`silence_end:\s*(-?[\d.]+)`)
)

// FFmpegDetector implements Detector using the ffmpeg silencedetect filter.
type FFmpegDetector struct {
	runner   *ffmpeg.Runner
	resolver Resolver
	logger   *slog.Logger
}

// NewFFmpegDetector creates a new FFmpegDetector.
// resolver may be nil, in which case file references are used as local paths.
func NewFFmpegDetector(runner *ffmpeg.Runner, resolver Resolver, logger *slog.Logger) *FFmpegDetector {
	if runner == nil {
		runner = ffmpeg.NewRunner("")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FFmpegDetector{runner: runner, resolver: resolver, logger: logger}
}

// GetOrDetectSilences runs silencedetect over the requested clip window.
// When ClipEnd <= ClipStart the whole file is analysed.
func (d *FFmpegDetector) GetOrDetectSilences(ctx context.Context, req Request) ([]Interval, error) {
	path := req.FileRef
	if d.resolver != nil {
		resolved, err := d.resolver.Resolve(ctx, req.FileRef)
		if err != nil {
			return nil, fmt.Errorf("resolve source: %w", err)
		}
		path = resolved
	}

	windowed := req.ClipEnd > req.ClipStart
	offset := 0.0
	args := []string{"-hide_banner", "-nostats"}
	if windowed {
		offset = req.ClipStart
		args = append(args,
			"-ss", ffmpeg.FormatSeconds(req.ClipStart),
			"-to", ffmpeg.FormatSeconds(req.ClipEnd),
		)
	}
	args = append(args,
		"-i", path,
		"-af", fmt.Sprintf("silencedetect=noise=%sdB:d=%s",
			strconv.FormatFloat(req.ThresholdDB, 'f', -1, 64),
			strconv.FormatFloat(req.MinDuration, 'f', -1, 64),
		),
		"-f", "null", "-",
	)

	stderr, err := d.runner.Run(ctx, args, nil)
	if err != nil {
		return nil, fmt.Errorf("detect silences: %w", err)
	}

	// A silence that runs to the end of the window has no silence_end line.
	openEnd := -1.0
	if windowed {
		openEnd = req.ClipEnd - offset
	}
	raw := parseSilenceOutput(stderr, openEnd)

	intervals := make([]Interval, 0, len(raw))
	for _, iv := range raw {
		intervals = append(intervals, Interval{Start: iv.Start + offset, End: iv.End + offset})
	}
	intervals = Normalize(applyPadding(intervals, req.PadLeft, req.PadRight), 0)

	d.logger.Debug("silence detection finished",
		slog.String("file_ref", req.FileRef),
		slog.Int("intervals", len(intervals)),
	)
	return intervals, nil
}

// parseSilenceOutput parses ffmpeg silencedetect output. A trailing
// silence_start without a matching silence_end is closed at openEnd when
// openEnd is positive and dropped otherwise.
func parseSilenceOutput(output string, openEnd float64) []Interval {
	var intervals []Interval

	var currentStart float64
	hasStart := false

	for _, line := range strings.Split(output, "\n") {
		if m := silenceStartRe.FindStringSubmatch(line); len(m) > 1 {
			val, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				continue
			}
			// silencedetect may report a slightly negative start at the stream head.
			currentStart = max(val, 0)
			hasStart = true
		}

		if m := silenceEndRe.FindStringSubmatch(line); len(m) > 1 && hasStart {
			val, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				continue
			}
			intervals = append(intervals, Interval{Start: currentStart, End: val})
			hasStart = false
		}
	}

	if hasStart && openEnd > currentStart {
		intervals = append(intervals, Interval{Start: currentStart, End: openEnd})
	}

	return intervals
}

// Verify interface implementation at compile time.
var _ Detector = (*FFmpegDetector)(nil)
