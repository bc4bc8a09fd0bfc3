package silence

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// LoadFile reads a JSON array of intervals ([{"start":..,"end":..}]).
func LoadFile(path string) ([]Interval, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path is provided by trusted caller
	if err != nil {
		return nil, fmt.Errorf("read silence file: %w", err)
	}
	var intervals []Interval
	if err := json.Unmarshal(data, &intervals); err != nil {
		return nil, fmt.Errorf("parse silence file: %w", err)
	}
	return intervals, nil
}

// Watcher pushes a sidecar interval file into a consumer every time it changes.
type Watcher struct {
	path     string
	onUpdate func([]Interval)
	logger   *slog.Logger
}

// NewWatcher creates a Watcher for path.
func NewWatcher(path string, onUpdate func([]Interval), logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{path: path, onUpdate: onUpdate, logger: logger}
}

// Run delivers the current file contents, then every successfully parsed
// rewrite, until ctx is done. The parent directory is watched so that
// editors replacing the file atomically are picked up.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()

	abs, err := filepath.Abs(w.path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	w.reload(abs)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				w.reload(abs)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("silence watcher error",
				slog.String("path", abs),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (w *Watcher) reload(path string) {
	intervals, err := LoadFile(path)
	if err != nil {
		// Half-written files are expected while an editor saves.
		w.logger.Debug("skipping unreadable silence file",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return
	}
	w.logger.Info("silence file loaded",
		slog.String("path", path),
		slog.Int("intervals", len(intervals)),
	)
	w.onUpdate(intervals)
}
