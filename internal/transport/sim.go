package transport

import (
	"context"
	"sync"
	"time"
)

// SimConfig configures simulated transports.
type SimConfig struct {
	// Manual disables the internal ticker; time only moves through Advance.
	Manual bool
	// SourceDuration is the length of the simulated source. Zero means unbounded.
	SourceDuration float64
	// DropSeekAcks suppresses EventSeeked, simulating an engine that never
	// acknowledges seeks.
	DropSeekAcks bool
	// FailOpen makes Open fail with this error.
	FailOpen error
}

// SimFactory opens simulated transports and remembers the latest one.
type SimFactory struct {
	cfg SimConfig

	mu      sync.Mutex
	current *Sim
	opened  int
}

// NewSimFactory creates a factory for simulated transports.
func NewSimFactory(cfg SimConfig) *SimFactory {
	return &SimFactory{cfg: cfg}
}

// Open implements Factory.
func (f *SimFactory) Open(ctx context.Context, opts Options, notify Notify) (Transport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.cfg.FailOpen != nil {
		return nil, f.cfg.FailOpen
	}

	s := newSim(f.cfg, opts, notify)

	f.mu.Lock()
	f.current = s
	f.opened++
	f.mu.Unlock()

	return s, nil
}

// Current returns the most recently opened transport.
func (f *SimFactory) Current() *Sim {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Opened returns the number of transports opened so far.
func (f *SimFactory) Opened() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opened
}

// Sim is a transport driven by a virtual clock instead of an audio device.
// In manual mode the test goroutine moves time with Advance; otherwise an
// internal ticker advances it in real time.
type Sim struct {
	cfg      SimConfig
	notify   Notify
	interval time.Duration

	mu         sync.Mutex
	position   float64
	playing    bool
	closed     bool
	pendingAck bool
	ended      bool
	last       time.Time

	// emitMu serializes event delivery so events keep their order.
	emitMu sync.Mutex

	quit chan struct{}
	wg   sync.WaitGroup
}

func newSim(cfg SimConfig, opts Options, notify Notify) *Sim {
	s := &Sim{
		cfg:      cfg,
		notify:   notify,
		interval: progressInterval(opts.ProgressInterval),
		position: opts.StartAt,
		quit:     make(chan struct{}),
	}
	if !cfg.Manual {
		s.wg.Add(1)
		go s.loop()
	}
	return s
}

func (s *Sim) loop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.quit:
			return
		case now := <-ticker.C:
			s.mu.Lock()
			var elapsed time.Duration
			if s.playing && !s.last.IsZero() {
				elapsed = now.Sub(s.last)
			}
			s.last = now
			s.mu.Unlock()
			s.step(elapsed)
		}
	}
}

// Advance moves virtual time forward by d and delivers the resulting events
// before returning. It is the only source of events in manual mode.
func (s *Sim) Advance(d time.Duration) {
	s.step(d)
}

// step advances the position if playing and emits pending notifications.
func (s *Sim) step(d time.Duration) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	var events []Event

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.pendingAck {
		s.pendingAck = false
		if !s.cfg.DropSeekAcks {
			events = append(events, Event{Kind: EventSeeked, Position: s.position})
		}
	}
	if s.playing {
		s.position += d.Seconds()
		if s.cfg.SourceDuration > 0 && s.position >= s.cfg.SourceDuration {
			s.position = s.cfg.SourceDuration
			s.playing = false
			s.ended = true
			events = append(events, Event{Kind: EventProgress, Position: s.position}, Event{Kind: EventEnded, Position: s.position})
		} else {
			events = append(events, Event{Kind: EventProgress, Position: s.position})
		}
	}
	s.mu.Unlock()

	for _, ev := range events {
		s.notify(ev)
	}
}

// Fail delivers an EventError, simulating an engine failure.
func (s *Sim) Fail(err error) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if !closed {
		s.notify(Event{Kind: EventError, Err: err})
	}
}

// Play implements Transport.
func (s *Sim) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.ended && s.cfg.SourceDuration > 0 && s.position >= s.cfg.SourceDuration {
		return nil
	}
	s.playing = true
	s.last = time.Time{}
	return nil
}

// Pause implements Transport.
func (s *Sim) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.playing = false
	return nil
}

// Seek implements Transport.
func (s *Sim) Seek(abs float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if abs < 0 {
		abs = 0
	}
	if s.cfg.SourceDuration > 0 && abs > s.cfg.SourceDuration {
		abs = s.cfg.SourceDuration
	}
	s.position = abs
	s.ended = false
	s.pendingAck = true
	return nil
}

// Position implements Transport.
func (s *Sim) Position() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

// Playing reports whether the simulated engine is running.
func (s *Sim) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// Closed reports whether Close has been called.
func (s *Sim) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close implements Transport. It waits for the ticker goroutine to exit.
func (s *Sim) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.playing = false
	s.mu.Unlock()

	close(s.quit)
	s.wg.Wait()
	return nil
}

var (
	_ Transport = (*Sim)(nil)
	_ Factory   = (*SimFactory)(nil)
)
