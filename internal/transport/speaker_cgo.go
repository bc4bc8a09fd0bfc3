//go:build (linux && cgo) || windows || darwin

package transport

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"
)

// AudioAvailable indicates whether audio output is supported in this build.
const AudioAvailable = true

const speakerSampleRate = beep.SampleRate(44100)

var (
	speakerOnce sync.Once
	speakerErr  error
)

// initSpeaker initializes the shared output device once per process.
func initSpeaker() error {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(speakerSampleRate, speakerSampleRate.N(time.Second/10))
	})
	return speakerErr
}

// SpeakerFactory opens transports that play WAV sources on the default
// output device.
type SpeakerFactory struct {
	resolver Resolver
	logger   *slog.Logger
}

// NewSpeakerFactory creates a factory for device-backed transports.
func NewSpeakerFactory(resolver Resolver, logger *slog.Logger) *SpeakerFactory {
	return &SpeakerFactory{resolver: resolver, logger: logger}
}

// Open implements Factory.
func (f *SpeakerFactory) Open(ctx context.Context, opts Options, notify Notify) (Transport, error) {
	path, err := f.resolver.Resolve(ctx, opts.FileRef)
	if err != nil {
		return nil, fmt.Errorf("resolve source: %w", err)
	}

	file, err := os.Open(path) //nolint:gosec // path comes from the resolver
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}

	streamer, format, err := wav.Decode(file)
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("decode source: %w", err)
	}

	if err := initSpeaker(); err != nil {
		_ = streamer.Close()
		return nil, fmt.Errorf("init speaker: %w", err)
	}

	s := &Speaker{
		streamer: streamer,
		head:     newPlayhead(streamer, format.SampleRate),
		notify:   notify,
		interval: progressInterval(opts.ProgressInterval),
		logger:   f.logger,
		quit:     make(chan struct{}),
	}

	if opts.StartAt > 0 {
		if err := s.head.seek(opts.StartAt); err != nil {
			_ = streamer.Close()
			return nil, err
		}
		// The start position is not a requested seek.
		s.head.pendingAck = false
	}
	s.ctrl = &beep.Ctrl{Streamer: beep.Resample(4, format.SampleRate, speakerSampleRate, s.head), Paused: true}
	speaker.Play(s.ctrl)

	s.wg.Add(1)
	go s.loop()

	f.logger.Debug("Speaker transport opened",
		slog.String("file", opts.FileRef),
		slog.Int("sample_rate", int(format.SampleRate)),
	)

	return s, nil
}

// Speaker plays a decoded WAV stream through the shared beep mixer. The
// playhead and ctrl are only touched under the speaker lock.
type Speaker struct {
	streamer beep.StreamSeekCloser
	head     *playhead
	ctrl     *beep.Ctrl
	notify   Notify
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	closed bool

	quit chan struct{}
	wg   sync.WaitGroup
}

func (s *Speaker) loop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.quit:
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Speaker) tick() {
	speaker.Lock()
	playing := !s.ctrl.Paused
	r := s.head.report()
	speaker.Unlock()

	if r.Ack {
		s.notify(Event{Kind: EventSeeked, Position: r.Position})
	}
	if r.Err != nil {
		s.notify(Event{Kind: EventError, Position: r.Position, Err: r.Err})
		return
	}
	if playing || r.Ended {
		s.notify(Event{Kind: EventProgress, Position: r.Position})
	}
	if r.Ended {
		s.notify(Event{Kind: EventEnded, Position: r.Position})
	}
}

// Play implements Transport.
func (s *Speaker) Play() error {
	if s.isClosed() {
		return ErrClosed
	}
	speaker.Lock()
	s.ctrl.Paused = false
	speaker.Unlock()
	return nil
}

// Pause implements Transport.
func (s *Speaker) Pause() error {
	if s.isClosed() {
		return ErrClosed
	}
	speaker.Lock()
	s.ctrl.Paused = true
	speaker.Unlock()
	return nil
}

// Seek implements Transport.
func (s *Speaker) Seek(abs float64) error {
	if s.isClosed() {
		return ErrClosed
	}
	speaker.Lock()
	defer speaker.Unlock()
	return s.head.seek(abs)
}

// Position implements Transport.
func (s *Speaker) Position() float64 {
	speaker.Lock()
	defer speaker.Unlock()
	return s.head.position()
}

func (s *Speaker) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close implements Transport.
func (s *Speaker) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.quit)
	s.wg.Wait()

	speaker.Lock()
	s.ctrl.Paused = true
	s.ctrl.Streamer = nil
	speaker.Unlock()

	return s.streamer.Close()
}

var (
	_ Transport = (*Speaker)(nil)
	_ Factory   = (*SpeakerFactory)(nil)
)
