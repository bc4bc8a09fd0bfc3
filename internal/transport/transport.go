// Package transport provides the audio playback engines driven by a playback
// session. A transport only knows absolute source time; clip mapping happens
// in the session.
package transport

import (
	"context"
	"errors"
	"time"
)

// Static errors for transports.
var (
	// ErrClosed is returned by operations on a closed transport.
	ErrClosed = errors.New("transport: closed")
	// ErrAudioUnavailable is returned when the build has no audio output support.
	ErrAudioUnavailable = errors.New("transport: audio output not available in this build")
)

// EventKind identifies a transport notification.
type EventKind int

const (
	// EventProgress reports the current position while playing.
	EventProgress EventKind = iota
	// EventSeeked acknowledges that the last Seek has been applied.
	EventSeeked
	// EventEnded reports that the source reached its end.
	EventEnded
	// EventError reports an unrecoverable playback failure.
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventProgress:
		return "progress"
	case EventSeeked:
		return "seeked"
	case EventEnded:
		return "ended"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is a notification from a transport. Position is absolute source seconds.
type Event struct {
	Kind     EventKind
	Position float64
	Err      error
}

// Notify receives transport events. Transports call it from their own
// goroutine, never from inside Play, Pause, Seek or Close.
type Notify func(Event)

// Transport is an audio playback engine over one source file.
type Transport interface {
	// Play starts or resumes playback from the current position.
	Play() error
	// Pause halts playback, keeping the position.
	Pause() error
	// Seek moves to an absolute position. The move is acknowledged
	// asynchronously with EventSeeked.
	Seek(abs float64) error
	// Position returns the current absolute position.
	Position() float64
	// Close stops playback and releases resources. No event is delivered
	// after Close returns.
	Close() error
}

// Options configure a transport instance.
type Options struct {
	// FileRef identifies the source file.
	FileRef string
	// StartAt is the initial absolute position.
	StartAt float64
	// ProgressInterval is the cadence of EventProgress while playing.
	ProgressInterval time.Duration
}

// Factory opens transports.
type Factory interface {
	Open(ctx context.Context, opts Options, notify Notify) (Transport, error)
}

// Resolver maps a file reference to a local path.
type Resolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(ctx context.Context, opts Options, notify Notify) (Transport, error)

// Open implements Factory.
func (f FactoryFunc) Open(ctx context.Context, opts Options, notify Notify) (Transport, error) {
	return f(ctx, opts, notify)
}

const defaultProgressInterval = 50 * time.Millisecond

func progressInterval(d time.Duration) time.Duration {
	if d <= 0 {
		return defaultProgressInterval
	}
	return d
}
