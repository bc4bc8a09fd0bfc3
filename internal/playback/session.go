package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/maauso/clipsync/internal/clip"
	"github.com/maauso/clipsync/internal/playback/id"
	"github.com/maauso/clipsync/internal/silence"
	"github.com/maauso/clipsync/internal/transport"
	"github.com/maauso/clipsync/internal/waveform"
)

// Static errors for sessions.
var (
	// ErrNotPlayable is returned by playback commands when no clip is loaded.
	ErrNotPlayable = errors.New("playback: no playable clip loaded")
	// ErrClosed is returned by commands on a closed session.
	ErrClosed = errors.New("playback: session closed")
)

const inboxSize = 256

// Config tunes the sync loop.
type Config struct {
	// ProgressInterval is the transport progress cadence.
	ProgressInterval time.Duration
	// DriftTolerance is the minimum non-progress correction applied from the transport.
	DriftTolerance time.Duration
	// SkipGuard is the tolerance applied to interval ends and the clip end.
	SkipGuard time.Duration
	// SeekAckTimeout clears an unacknowledged programmatic seek.
	SeekAckTimeout time.Duration
	// JoinGap merges silence intervals separated by at most this gap.
	JoinGap time.Duration
	// SkipEnabled is the initial skip toggle.
	SkipEnabled bool
}

// DefaultConfig returns the default sync loop tuning.
func DefaultConfig() Config {
	return Config{
		ProgressInterval: 50 * time.Millisecond,
		DriftTolerance:   50 * time.Millisecond,
		SkipGuard:        30 * time.Millisecond,
		SeekAckTimeout:   500 * time.Millisecond,
		SkipEnabled:      true,
	}
}

// RegionSink receives the silence intervals to draw for a clip. It is called
// from the sync loop and must not block.
type RegionSink interface {
	SetRegions(b clip.Boundary, intervals []silence.Interval)
}

// Clip identifies a source file and the markers selecting a window of it.
type Clip struct {
	FileRef string       `json:"file_ref"`
	Markers clip.Markers `json:"markers"`
}

// Option configures a Session.
type Option func(*Session)

// WithConfig sets the sync loop tuning.
func WithConfig(cfg Config) Option {
	return func(s *Session) {
		s.cfg = cfg
	}
}

// WithID overrides the generated session ID.
func WithID(sessionID string) Option {
	return func(s *Session) {
		s.id = sessionID
	}
}

// WithNow sets the time source used for seek acknowledgement timeouts.
func WithNow(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// WithRegionSink sets the consumer of silence regions.
func WithRegionSink(sink RegionSink) Option {
	return func(s *Session) {
		s.sink = sink
	}
}

// WithSilenceDetector enables silence detection on every clip load. The
// template supplies the detection parameters; file and clip range are filled in.
func WithSilenceDetector(d silence.Detector, template silence.Request) Option {
	return func(s *Session) {
		s.detector = d
		s.detectTemplate = template
	}
}

// WithWaveform enables display peak extraction on every clip load.
func WithWaveform(src waveform.Source, cache *waveform.SliceCache, template waveform.Request) Option {
	return func(s *Session) {
		s.waveform = src
		s.sliceCache = cache
		s.waveTemplate = template
	}
}

// handle is the identity of one loaded clip. Closing done invalidates every
// event and async result tagged with its generation.
type handle struct {
	gen    uint64
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (h *handle) stop() {
	h.once.Do(func() {
		close(h.done)
		h.cancel()
	})
}

type command struct {
	fn    func() error
	reply chan error
}

type transportMsg struct {
	gen uint64
	ev  transport.Event
}

type loadedMsg struct {
	gen       uint64
	transport transport.Transport
	err       error
}

type silencesMsg struct {
	gen       uint64
	intervals []silence.Interval
	err       error
}

type peaksMsg struct {
	gen   uint64
	peaks []float64
	err   error
}

// Session is a clip-relative playback session. All mutations of the playback
// state run on a single goroutine that serializes user commands and transport
// events, so a skip seek and a user seek never interleave.
type Session struct {
	id       string
	cfg      Config
	factory  transport.Factory
	logger   *slog.Logger
	now      func() time.Time
	sink     RegionSink
	detector silence.Detector
	waveform waveform.Source

	detectTemplate silence.Request
	waveTemplate   waveform.Request
	sliceCache     *waveform.SliceCache

	inbox     chan any
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once

	// Owned by the loop goroutine.
	gen       uint64
	cur       *handle
	status    Status
	fileRef   string
	boundary  clip.Boundary
	playable  bool
	reason    string
	transport transport.Transport
	clock     *Clock
	skipper   *Skipper
	raw       []silence.Interval

	// Published snapshot, written by the loop.
	mu       sync.RWMutex
	snapshot State
	peaks    []float64
	regions  []silence.Interval

	subMu     sync.Mutex
	subClosed bool
	nextSub   uint64
	stateSubs map[uint64]chan State
	eventSubs map[uint64]chan Event
}

// NewSession creates a session and starts its sync loop.
func NewSession(factory transport.Factory, logger *slog.Logger, opts ...Option) *Session {
	s := &Session{
		id:        id.Generate(),
		cfg:       DefaultConfig(),
		factory:   factory,
		logger:    logger,
		now:       time.Now,
		inbox:     make(chan any, inboxSize),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
		status:    StatusIdle,
		stateSubs: make(map[uint64]chan State),
		eventSubs: make(map[uint64]chan Event),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.skipper = NewSkipper(nil, s.cfg.SkipGuard.Seconds(), s.cfg.SkipEnabled)
	s.publish()

	go s.run()
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Close stops the sync loop and releases the transport.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	<-s.stopped

	s.subMu.Lock()
	defer s.subMu.Unlock()
	if !s.subClosed {
		s.subClosed = true
		for key, ch := range s.stateSubs {
			close(ch)
			delete(s.stateSubs, key)
		}
		for key, ch := range s.eventSubs {
			close(ch)
			delete(s.eventSubs, key)
		}
	}
	return nil
}

func (s *Session) run() {
	defer close(s.stopped)
	for {
		select {
		case <-s.done:
			s.detach()
			return
		case msg := <-s.inbox:
			s.dispatch(msg)
		}
	}
}

// do runs fn on the loop goroutine and waits for its result.
func (s *Session) do(ctx context.Context, fn func() error) error {
	reply := make(chan error, 1)
	select {
	case s.inbox <- command{fn: fn, reply: reply}:
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-s.stopped:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post delivers an async result unless its generation was invalidated.
func (s *Session) post(h *handle, msg any) bool {
	select {
	case s.inbox <- msg:
		return true
	case <-h.done:
		return false
	case <-s.done:
		return false
	}
}

func (s *Session) notifier(h *handle) transport.Notify {
	return func(ev transport.Event) {
		s.post(h, transportMsg{gen: h.gen, ev: ev})
	}
}

func (s *Session) current(gen uint64) bool {
	return s.cur != nil && s.cur.gen == gen
}

func (s *Session) dispatch(msg any) {
	switch m := msg.(type) {
	case command:
		m.reply <- m.fn()
	case transportMsg:
		if !s.current(m.gen) {
			s.logger.Debug("Dropping stale transport event",
				slog.String("kind", m.ev.Kind.String()),
				slog.Uint64("generation", m.gen),
			)
			return
		}
		s.onTransportEvent(m.ev)
	case loadedMsg:
		s.onLoaded(m)
	case silencesMsg:
		s.onSilences(m)
	case peaksMsg:
		s.onPeaks(m)
	}
}

// LoadClip tears down the current clip and loads a new one. Markers that do not
// resolve to a positive range leave the session idle and non-playable; the
// reason is reported in the state, not as an error.
func (s *Session) LoadClip(ctx context.Context, c Clip) error {
	return s.do(ctx, func() error {
		s.load(c)
		return nil
	})
}

// Unload tears down the current clip.
func (s *Session) Unload(ctx context.Context) error {
	return s.do(ctx, func() error {
		s.teardown()
		s.gen++
		s.fileRef = ""
		s.boundary = clip.Boundary{}
		s.publish()
		return nil
	})
}

// TogglePlayPause starts playback when ready or paused, and pauses it when playing.
func (s *Session) TogglePlayPause(ctx context.Context) error {
	return s.do(ctx, func() error {
		if s.status == StatusPlaying {
			return s.pause()
		}
		return s.play()
	})
}

// Play starts or resumes playback. It is a no-op while playing.
func (s *Session) Play(ctx context.Context) error {
	return s.do(ctx, func() error {
		if s.status == StatusPlaying {
			return nil
		}
		return s.play()
	})
}

// Pause halts playback. It is a no-op unless playing.
func (s *Session) Pause(ctx context.Context) error {
	return s.do(ctx, func() error {
		if s.status != StatusPlaying {
			return nil
		}
		return s.pause()
	})
}

// SeekTo moves the cursor to a clip-relative time, clamped to the clip.
func (s *Session) SeekTo(ctx context.Context, rel float64) error {
	return s.do(ctx, func() error {
		return s.seek(rel)
	})
}

// SeekFraction moves the cursor to a fraction of the clip duration.
func (s *Session) SeekFraction(ctx context.Context, fraction float64) error {
	return s.do(ctx, func() error {
		return s.seek(fraction * s.boundary.Duration)
	})
}

// ToggleSkip flips silence skipping and returns the new value.
func (s *Session) ToggleSkip(ctx context.Context) (bool, error) {
	var enabled bool
	err := s.do(ctx, func() error {
		enabled = !s.skipper.Enabled()
		s.setSkip(enabled)
		return nil
	})
	return enabled, err
}

// SetSkipEnabled sets silence skipping.
func (s *Session) SetSkipEnabled(ctx context.Context, enabled bool) error {
	return s.do(ctx, func() error {
		s.setSkip(enabled)
		return nil
	})
}

// SetSilences replaces the silence intervals, in absolute source time, used
// by the skip engine and the overlay for the current clip.
func (s *Session) SetSilences(ctx context.Context, intervals []silence.Interval) error {
	raw := slices.Clone(intervals)
	return s.do(ctx, func() error {
		s.applySilences(raw)
		return nil
	})
}

// Flush returns once every command and event queued before it was processed.
func (s *Session) Flush(ctx context.Context) error {
	return s.do(ctx, func() error { return nil })
}

// State returns the latest published snapshot.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// DisplayPeaks returns the peaks sliced to the current clip, if available.
func (s *Session) DisplayPeaks() []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.peaks)
}

// Silences returns the normalized silence intervals inside the current clip.
func (s *Session) Silences() []silence.Interval {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.regions)
}

func (s *Session) load(c Clip) {
	s.teardown()
	s.gen++

	s.fileRef = c.FileRef
	b, err := c.Markers.Resolve()
	switch {
	case err != nil:
		s.boundary = clip.Boundary{}
		s.reason = err.Error()
	case c.FileRef == "":
		s.boundary = b
		s.reason = "missing file reference"
	case !b.Playable():
		s.boundary = b
		s.reason = "clip has no duration"
	default:
		s.boundary = b
		s.playable = true
	}

	if !s.playable {
		s.logger.Info("Clip not playable",
			slog.String("session_id", s.id),
			slog.String("file", c.FileRef),
			slog.String("reason", s.reason),
		)
		s.publish()
		return
	}

	if err := s.transition(StatusLoading); err != nil {
		s.logger.Error("Unexpected transition", slog.Any("error", err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &handle{gen: s.gen, ctx: ctx, cancel: cancel, done: make(chan struct{})}
	s.cur = h

	if s.sink != nil {
		s.sink.SetRegions(b, nil)
	}

	opts := transport.Options{
		FileRef:          c.FileRef,
		StartAt:          b.SourceStart,
		ProgressInterval: s.cfg.ProgressInterval,
	}
	go func() {
		t, err := s.factory.Open(h.ctx, opts, s.notifier(h))
		if !s.post(h, loadedMsg{gen: h.gen, transport: t, err: err}) && t != nil {
			_ = t.Close()
		}
	}()

	if s.detector != nil {
		req := s.detectTemplate
		req.FileRef = c.FileRef
		req.ClipStart = b.SourceStart
		req.ClipEnd = b.SourceEnd
		go func() {
			intervals, err := s.detector.GetOrDetectSilences(h.ctx, req)
			s.post(h, silencesMsg{gen: h.gen, intervals: intervals, err: err})
		}()
	}

	if s.waveform != nil {
		go s.fetchPeaks(h, c.FileRef, b)
	}

	s.logger.Info("Loading clip",
		slog.String("session_id", s.id),
		slog.String("file", c.FileRef),
		slog.Uint64("generation", h.gen),
		slog.Float64("source_start", b.SourceStart),
		slog.Float64("source_end", b.SourceEnd),
	)
	s.publish()
}

// fetchPeaks runs off the loop. The slice cache is consulted first so a
// revisited clip does not decode the file again.
func (s *Session) fetchPeaks(h *handle, fileRef string, b clip.Boundary) {
	if s.sliceCache != nil {
		if peaks, ok := s.sliceCache.Lookup(fileRef, b); ok {
			s.post(h, peaksMsg{gen: h.gen, peaks: peaks})
			return
		}
	}

	req := s.waveTemplate
	req.FileRef = fileRef
	req.Start = 0
	req.End = 0
	full, err := s.waveform.GetWaveform(h.ctx, req)
	if err != nil {
		s.post(h, peaksMsg{gen: h.gen, err: err})
		return
	}

	var peaks []float64
	if s.sliceCache != nil {
		peaks, _ = s.sliceCache.DisplayPeaks(fileRef, full, b)
	} else {
		peaks = waveform.Slice(full, b)
	}
	s.post(h, peaksMsg{gen: h.gen, peaks: peaks})
}

// detach invalidates the current generation and releases the transport.
func (s *Session) detach() {
	if s.cur != nil {
		s.cur.stop()
		s.cur = nil
	}
	if s.transport != nil {
		if err := s.transport.Close(); err != nil {
			s.logger.Warn("Failed to close transport",
				slog.String("session_id", s.id),
				slog.Any("error", err),
			)
		}
		s.transport = nil
	}
}

// teardown resets the session to idle ahead of a clip change.
func (s *Session) teardown() {
	s.detach()
	s.clock = nil
	s.raw = nil
	s.skipper.SetIndex(nil)
	s.playable = false
	s.reason = ""

	s.mu.Lock()
	s.peaks = nil
	s.regions = nil
	s.mu.Unlock()

	// Regions drawn for the previous boundary must not survive it.
	if s.sink != nil {
		s.sink.SetRegions(clip.Boundary{}, nil)
	}

	if s.status != StatusIdle {
		if err := s.transition(StatusIdle); err != nil {
			s.logger.Error("Unexpected transition", slog.Any("error", err))
		}
	}
}

func (s *Session) transition(to Status) error {
	if s.status == to {
		return nil
	}
	if !canTransition(s.status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.status, to)
	}
	s.status = to
	return nil
}

func (s *Session) onLoaded(m loadedMsg) {
	if !s.current(m.gen) {
		if m.transport != nil {
			_ = m.transport.Close()
		}
		return
	}
	if m.err != nil {
		s.fail(fmt.Errorf("open transport: %w", m.err))
		return
	}

	s.transport = m.transport
	s.clock = NewClock(s.boundary, m.transport, ClockOptions{
		DriftTolerance: s.cfg.DriftTolerance.Seconds(),
		AckTimeout:     s.cfg.SeekAckTimeout,
		Now:            s.now,
	})
	if err := s.clock.SeekTo(0); err != nil {
		s.fail(fmt.Errorf("seek to clip start: %w", err))
		return
	}
	if err := s.transition(StatusReady); err != nil {
		s.logger.Error("Unexpected transition", slog.Any("error", err))
		return
	}

	s.logger.Info("Clip loaded",
		slog.String("session_id", s.id),
		slog.String("file", s.fileRef),
		slog.Uint64("generation", m.gen),
	)
	s.emit(Event{Kind: EventClipLoaded})
	s.publish()
}

func (s *Session) onSilences(m silencesMsg) {
	if !s.current(m.gen) {
		return
	}
	if m.err != nil {
		s.logger.Warn("Silence detection failed",
			slog.String("session_id", s.id),
			slog.String("file", s.fileRef),
			slog.Any("error", m.err),
		)
		return
	}
	s.applySilences(m.intervals)
}

func (s *Session) onPeaks(m peaksMsg) {
	if !s.current(m.gen) {
		return
	}
	if m.err != nil {
		s.logger.Warn("Waveform extraction failed",
			slog.String("session_id", s.id),
			slog.String("file", s.fileRef),
			slog.Any("error", m.err),
		)
		return
	}

	s.mu.Lock()
	s.peaks = m.peaks
	s.mu.Unlock()

	s.emit(Event{Kind: EventPeaksReady})
}

func (s *Session) applySilences(raw []silence.Interval) {
	s.raw = raw
	idx := silence.NewIndex(raw, s.boundary, s.cfg.JoinGap.Seconds())
	s.skipper.SetIndex(idx)
	regions := idx.Intervals()

	s.mu.Lock()
	s.regions = regions
	s.mu.Unlock()

	if s.sink != nil && s.playable {
		s.sink.SetRegions(s.boundary, regions)
	}

	s.logger.Debug("Silence intervals updated",
		slog.String("session_id", s.id),
		slog.Int("raw", len(raw)),
		slog.Int("in_clip", len(regions)),
	)
	s.emit(Event{Kind: EventSilencesUpdated})
	s.publish()
}

func (s *Session) setSkip(enabled bool) {
	if s.skipper.Enabled() == enabled {
		return
	}
	s.skipper.SetEnabled(enabled)
	s.publish()
}

func (s *Session) play() error {
	if !s.status.loaded() {
		return ErrNotPlayable
	}
	if s.clock.Time() >= s.boundary.Duration-s.cfg.SkipGuard.Seconds() {
		if err := s.clock.SeekTo(0); err != nil {
			s.fail(err)
			return err
		}
	}
	if err := s.transport.Play(); err != nil {
		s.fail(err)
		return err
	}
	if err := s.transition(StatusPlaying); err != nil {
		return err
	}
	s.emit(Event{Kind: EventPlayStarted})
	s.publish()
	return nil
}

// pause leaves the playing state; any in-flight programmatic seek is cancelled.
func (s *Session) pause() error {
	if err := s.transport.Pause(); err != nil {
		s.fail(err)
		return err
	}
	s.clock.CancelSeek()
	if err := s.transition(StatusPaused); err != nil {
		return err
	}
	s.emit(Event{Kind: EventPaused})
	s.publish()
	return nil
}

func (s *Session) seek(rel float64) error {
	if !s.status.loaded() {
		return ErrNotPlayable
	}
	if err := s.clock.SeekTo(rel); err != nil {
		s.fail(err)
		return err
	}
	s.publish()
	return nil
}

// finish stops playback at the clip end.
func (s *Session) finish() {
	if err := s.transport.Pause(); err != nil {
		s.logger.Warn("Failed to pause transport at clip end",
			slog.String("session_id", s.id),
			slog.Any("error", err),
		)
	}
	s.clock.CancelSeek()
	s.clock.SnapToEnd()
	if err := s.transition(StatusPaused); err != nil {
		s.logger.Error("Unexpected transition", slog.Any("error", err))
	}
	s.emit(Event{Kind: EventFinished})
	s.publish()
}

func (s *Session) fail(err error) {
	s.detach()
	s.reason = err.Error()
	if terr := s.transition(StatusError); terr != nil {
		s.logger.Error("Unexpected transition", slog.Any("error", terr))
	}
	s.logger.Error("Playback failed",
		slog.String("session_id", s.id),
		slog.String("file", s.fileRef),
		slog.Any("error", err),
	)
	s.emit(Event{Kind: EventError, Error: err.Error()})
	s.publish()
}

func (s *Session) onTransportEvent(ev transport.Event) {
	if s.clock == nil {
		return
	}
	switch ev.Kind {
	case transport.EventSeeked:
		if s.clock.SeekInFlight() {
			s.clock.Acknowledge()
			s.publish()
		}
	case transport.EventProgress:
		s.tick(ev.Position)
	case transport.EventEnded:
		if s.status == StatusPlaying {
			s.finish()
		}
	case transport.EventError:
		if !s.status.loaded() {
			return
		}
		err := ev.Err
		if err == nil {
			err = errors.New("transport error")
		}
		s.fail(err)
	}
}

// tick is one sync loop iteration: fold the observation into the clock, then
// evaluate the skip engine, then publish.
func (s *Session) tick(abs float64) {
	playing := s.status == StatusPlaying
	changed := s.clock.Observe(abs, playing)
	if !playing {
		if changed {
			s.publish()
		}
		return
	}

	pos := abs
	if s.clock.SeekInFlight() {
		pos = s.clock.Absolute()
	}

	d := s.skipper.Decide(pos, s.boundary)
	switch d.Action {
	case ActionStop:
		s.finish()
		return
	case ActionJump:
		if err := s.clock.SeekTo(d.Target - s.boundary.SourceStart); err != nil {
			s.fail(err)
			return
		}
		s.logger.Debug("Skipping silence",
			slog.String("session_id", s.id),
			slog.Float64("from", pos),
			slog.Float64("to", d.Target),
		)
		s.emit(Event{Kind: EventSkipped, From: pos, To: d.Target})
		s.publish()
		return
	case ActionNone:
	}

	if changed {
		s.publish()
	}
}

func (s *Session) state() State {
	st := State{
		SessionID:   s.id,
		Generation:  s.gen,
		Status:      s.status,
		FileRef:     s.fileRef,
		Boundary:    s.boundary,
		Playable:    s.playable,
		Reason:      s.reason,
		IsPlaying:   s.status == StatusPlaying,
		SkipEnabled: s.skipper.Enabled(),
		Silences:    s.skipper.Len(),
	}
	if s.clock != nil {
		st.ClipRelativeTime = s.clock.Time()
		st.Seeking = s.clock.SeekInFlight()
	}
	return st
}

// publish stores the snapshot and fans it out to state subscribers.
func (s *Session) publish() {
	st := s.state()

	s.mu.Lock()
	s.snapshot = st
	s.mu.Unlock()

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.stateSubs {
		sendLatest(ch, st)
	}
}

func (s *Session) emit(ev Event) {
	ev.SessionID = s.id
	ev.Generation = s.gen
	ev.Time = s.now()
	if s.clock != nil {
		ev.ClipRelativeTime = s.clock.Time()
	}

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.eventSubs {
		select {
		case ch <- ev:
		default:
			s.logger.Warn("Dropping session event for slow subscriber",
				slog.String("session_id", s.id),
				slog.String("kind", string(ev.Kind)),
			)
		}
	}
}

// sendLatest delivers v, discarding the oldest buffered value when full. The
// caller must be the only sender on ch.
func sendLatest[T any](ch chan T, v T) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}

// SubscribeState returns a channel of state snapshots, starting with the
// current one. When the subscriber falls behind, the oldest snapshots are
// dropped. The returned function cancels the subscription.
func (s *Session) SubscribeState(buffer int) (<-chan State, func()) {
	ch := make(chan State, max(buffer, 1))

	s.subMu.Lock()
	defer s.subMu.Unlock()
	if s.subClosed {
		close(ch)
		return ch, func() {}
	}
	key := s.nextSub
	s.nextSub++
	s.stateSubs[key] = ch
	ch <- s.State()

	return ch, func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if c, ok := s.stateSubs[key]; ok {
			delete(s.stateSubs, key)
			close(c)
		}
	}
}

// SubscribeEvents returns a channel of session events. Events are dropped
// when the buffer is full. The returned function cancels the subscription.
func (s *Session) SubscribeEvents(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, max(buffer, 1))

	s.subMu.Lock()
	defer s.subMu.Unlock()
	if s.subClosed {
		close(ch)
		return ch, func() {}
	}
	key := s.nextSub
	s.nextSub++
	s.eventSubs[key] = ch

	return ch, func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if c, ok := s.eventSubs[key]; ok {
			delete(s.eventSubs, key)
			close(c)
		}
	}
}
