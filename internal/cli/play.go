package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/maauso/clipsync/internal/bootstrap"
	"github.com/maauso/clipsync/internal/clip"
	"github.com/maauso/clipsync/internal/config"
	"github.com/maauso/clipsync/internal/playback"
	"github.com/maauso/clipsync/internal/silence"
)

// ErrNotPlayable is returned when the clip markers do not form a playable range.
var ErrNotPlayable = errors.New("clip not playable")

// PlayParams configures a headless playback run.
type PlayParams struct {
	File       string
	StartFrame float64
	EndFrame   float64
	FrameRate  float64
	// Seek is the clip-relative start position in seconds.
	Seek float64
	// NoSkip plays silences instead of jumping over them.
	NoSkip bool
	// Silences is a JSON sidecar of intervals used instead of detection.
	Silences string
	// Watch reloads Silences whenever the file changes.
	Watch bool
	// States prints every published state, not only events.
	States bool
}

func playCmd(stdout, stderr io.Writer) *cobra.Command {
	var p PlayParams
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a clip headlessly and print session events",
		Long: "play loads a clip window of a source file, plays it to the clip end and prints " +
			"every session event. Silent intervals are skipped unless --no-skip is given.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return Play(cmd.Context(), p, stdout, stderr)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&p.File, "file", "f", "", "source audio file or s3:// reference")
	f.Float64Var(&p.StartFrame, "start-frame", 0, "clip start in source frames")
	f.Float64Var(&p.EndFrame, "end-frame", 0, "clip end in source frames")
	f.Float64Var(&p.FrameRate, "fps", 25, "timeline frame rate")
	f.Float64Var(&p.Seek, "seek", 0, "clip-relative start position in seconds")
	f.BoolVar(&p.NoSkip, "no-skip", false, "play silent intervals")
	f.StringVar(&p.Silences, "silences", "", "JSON file of silence intervals, disables detection")
	f.BoolVar(&p.Watch, "watch", false, "reload the --silences file when it changes")
	f.BoolVar(&p.States, "states", false, "print every published state")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("end-frame")
	return cmd
}

// Play runs one clip to its end on the configured transport.
func Play(ctx context.Context, p PlayParams, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := cfg.NewLoggerTo(stderr)

	var opts []bootstrap.Option
	if p.Silences != "" {
		opts = append(opts, bootstrap.WithoutSilenceDetection())
	}
	deps, err := bootstrap.NewDependencies(cfg, logger, opts...)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}
	defer func() { _ = deps.Close(context.WithoutCancel(ctx)) }()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	session := deps.Session
	events, stopEvents := session.SubscribeEvents(64)
	defer stopEvents()
	var states <-chan playback.State
	if p.States {
		ch, stopStates := session.SubscribeState(16)
		defer stopStates()
		states = ch
	}

	if err := session.SetSkipEnabled(ctx, !p.NoSkip); err != nil {
		return err
	}
	err = session.LoadClip(ctx, playback.Clip{
		FileRef: p.File,
		Markers: clip.Markers{SourceStartFrame: p.StartFrame, SourceEndFrame: p.EndFrame, FrameRate: p.FrameRate},
	})
	if err != nil {
		return fmt.Errorf("load clip: %w", err)
	}
	if st := session.State(); !st.Playable {
		return fmt.Errorf("%w: %s", ErrNotPlayable, st.Reason)
	}

	if p.Silences != "" {
		if err := applySidecar(ctx, session, p, logger); err != nil {
			return err
		}
	}

	started := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case st, ok := <-states:
			if !ok {
				states = nil
				continue
			}
			fmt.Fprintf(stdout, "state %s\n", st)
		case ev, ok := <-events:
			if !ok {
				return playback.ErrClosed
			}
			printEvent(stdout, ev)

			switch ev.Kind {
			case playback.EventClipLoaded:
				if started {
					continue
				}
				started = true
				if p.Seek > 0 {
					if err := session.SeekTo(ctx, p.Seek); err != nil {
						return fmt.Errorf("seek: %w", err)
					}
				}
				if err := session.Play(ctx); err != nil {
					return fmt.Errorf("play: %w", err)
				}
			case playback.EventFinished:
				return nil
			case playback.EventError:
				return fmt.Errorf("playback failed: %s", ev.Error)
			}
		}
	}
}

// applySidecar loads the interval file once, or keeps it in sync when watching.
func applySidecar(ctx context.Context, session *playback.Session, p PlayParams, logger *slog.Logger) error {
	if !p.Watch {
		intervals, err := silence.LoadFile(p.Silences)
		if err != nil {
			return err
		}
		return session.SetSilences(ctx, intervals)
	}

	w := silence.NewWatcher(p.Silences, func(intervals []silence.Interval) {
		if err := session.SetSilences(ctx, intervals); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("failed to apply silence file", slog.String("error", err.Error()))
		}
	}, logger)
	go func() {
		if err := w.Run(ctx); err != nil {
			logger.Error("silence watcher stopped", slog.String("error", err.Error()))
		}
	}()
	return nil
}

func printEvent(w io.Writer, ev playback.Event) {
	switch ev.Kind {
	case playback.EventSkipped:
		fmt.Fprintf(w, "%-16s t=%.3f from=%.3f to=%.3f\n", ev.Kind, ev.ClipRelativeTime, ev.From, ev.To)
	case playback.EventError:
		fmt.Fprintf(w, "%-16s t=%.3f error=%q\n", ev.Kind, ev.ClipRelativeTime, ev.Error)
	default:
		fmt.Fprintf(w, "%-16s t=%.3f\n", ev.Kind, ev.ClipRelativeTime)
	}
}
