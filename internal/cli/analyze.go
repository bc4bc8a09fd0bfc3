package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/maauso/clipsync/internal/bootstrap"
	"github.com/maauso/clipsync/internal/config"
	"github.com/maauso/clipsync/internal/silence"
	"github.com/maauso/clipsync/internal/waveform"
)

// PeaksParams configures a waveform extraction.
type PeaksParams struct {
	File string
	// Start and End are absolute seconds; End <= Start means the whole file.
	Start           float64
	End             float64
	SamplesPerPixel int
	Scale           string
}

// SilencesParams configures a silence detection run.
type SilencesParams struct {
	File        string
	Start       float64
	End         float64
	ThresholdDB float64
	MinDuration float64
	// Upload stores the JSON result in the object store under this key.
	Upload string
}

func peaksCmd(stdout, stderr io.Writer) *cobra.Command {
	var p PeaksParams
	cmd := &cobra.Command{
		Use:   "peaks",
		Short: "Print waveform peaks of a source file as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return Peaks(cmd.Context(), p, stdout, stderr)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&p.File, "file", "f", "", "source audio file or s3:// reference")
	f.Float64Var(&p.Start, "start", 0, "range start in seconds")
	f.Float64Var(&p.End, "end", 0, "range end in seconds, 0 for end of file")
	f.IntVar(&p.SamplesPerPixel, "samples-per-pixel", 0, "decimation, defaults to SAMPLES_PER_PIXEL")
	f.StringVar(&p.Scale, "scale", "", "linear or log, defaults to WAVEFORM_SCALE")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func silencesCmd(stdout, stderr io.Writer) *cobra.Command {
	var p SilencesParams
	cmd := &cobra.Command{
		Use:   "silences",
		Short: "Detect silent intervals of a source file and print them as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return Silences(cmd.Context(), p, stdout, stderr)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&p.File, "file", "f", "", "source audio file or s3:// reference")
	f.Float64Var(&p.Start, "start", 0, "range start in seconds")
	f.Float64Var(&p.End, "end", 0, "range end in seconds, 0 for end of file")
	f.Float64Var(&p.ThresholdDB, "threshold", 0, "noise threshold in dB, defaults to SILENCE_THRESHOLD_DB")
	f.Float64Var(&p.MinDuration, "min-duration", 0, "minimum silence in seconds, defaults to MIN_SILENCE_MS")
	f.StringVar(&p.Upload, "upload", "", "object key to upload the result to (requires S3)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// Peaks extracts and prints the waveform of a file range.
func Peaks(ctx context.Context, p PeaksParams, stdout, stderr io.Writer) error {
	deps, ctx, err := analysisDeps(ctx, stderr)
	if err != nil {
		return err
	}
	defer func() { _ = deps.Close(context.WithoutCancel(ctx)) }()

	req := deps.WaveformTemplate
	req.FileRef = p.File
	req.Start = p.Start
	req.End = p.End
	if p.SamplesPerPixel != 0 {
		req.SamplesPerPixel = p.SamplesPerPixel
	}
	if p.Scale != "" {
		req.Scale = waveform.Scale(p.Scale)
	}

	peaks, err := deps.Waveform.GetWaveform(ctx, req)
	if err != nil {
		return fmt.Errorf("extract waveform: %w", err)
	}
	return writeIndented(stdout, peaks)
}

// Silences detects and prints the silent intervals of a file range.
func Silences(ctx context.Context, p SilencesParams, stdout, stderr io.Writer) error {
	deps, ctx, err := analysisDeps(ctx, stderr)
	if err != nil {
		return err
	}
	defer func() { _ = deps.Close(context.WithoutCancel(ctx)) }()

	req := deps.SilenceTemplate
	req.FileRef = p.File
	req.ClipStart = p.Start
	req.ClipEnd = p.End
	if p.ThresholdDB != 0 {
		req.ThresholdDB = p.ThresholdDB
	}
	if p.MinDuration != 0 {
		req.MinDuration = p.MinDuration
	}

	intervals, err := deps.Detector.GetOrDetectSilences(ctx, req)
	if err != nil {
		return fmt.Errorf("detect silences: %w", err)
	}
	if intervals == nil {
		intervals = []silence.Interval{}
	}

	var buf bytes.Buffer
	if err := writeIndented(&buf, intervals); err != nil {
		return err
	}
	if p.Upload != "" {
		url, err := deps.Storage.Upload(ctx, p.Upload, bytes.NewReader(buf.Bytes()))
		if err != nil {
			return fmt.Errorf("upload silences: %w", err)
		}
		fmt.Fprintf(stderr, "uploaded %d intervals to %s\n", len(intervals), url)
	}
	_, err = stdout.Write(buf.Bytes())
	return err
}

func analysisDeps(ctx context.Context, stderr io.Writer) (*bootstrap.Dependencies, context.Context, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, ctx, fmt.Errorf("load config: %w", err)
	}
	logger := cfg.NewLoggerTo(stderr)
	logger.Debug("analysis configured", slog.Bool("remote", cfg.RemoteAnalysisEnabled()))

	deps, err := bootstrap.NewDependencies(cfg, logger, bootstrap.WithoutSilenceDetection())
	if err != nil {
		return nil, ctx, fmt.Errorf("initialize dependencies: %w", err)
	}
	return deps, ctx, nil
}

func writeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return nil
}
