package silence

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
)

// ErrResultNotFound is returned when no detection result is stored for a key.
var ErrResultNotFound = errors.New("silence: result not found")

// Store persists detection results keyed by Request.Key.
type Store interface {
	// Save stores the intervals for key, replacing any previous result.
	Save(ctx context.Context, key string, intervals []Interval) error

	// Find returns the stored intervals for key.
	// Returns ErrResultNotFound if nothing is stored.
	Find(ctx context.Context, key string) ([]Interval, error)

	// Delete removes a stored result.
	// Returns ErrResultNotFound if nothing is stored.
	Delete(ctx context.Context, key string) error
}

// Compile-time check that MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-memory implementation of Store.
// Stored slices are cloned on the way in and out to avoid shared mutation.
type MemoryStore struct {
	mu      sync.RWMutex
	results map[string][]Interval
}

// NewMemoryStore creates a new in-memory result store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		results: make(map[string][]Interval),
	}
}

// Save stores the intervals for key.
func (s *MemoryStore) Save(_ context.Context, key string, intervals []Interval) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[key] = slices.Clone(intervals)
	return nil
}

// Find returns the stored intervals for key.
func (s *MemoryStore) Find(_ context.Context, key string) ([]Interval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.results[key]
	if !ok {
		return nil, ErrResultNotFound
	}
	return slices.Clone(res), nil
}

// Delete removes a stored result.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.results[key]; !ok {
		return ErrResultNotFound
	}
	delete(s.results, key)
	return nil
}

// CachedDetector answers from the store and only falls through to the wrapped
// detector on a miss.
type CachedDetector struct {
	next   Detector
	store  Store
	logger *slog.Logger
}

// NewCachedDetector wraps next with a result store.
func NewCachedDetector(next Detector, store Store, logger *slog.Logger) *CachedDetector {
	if store == nil {
		store = NewMemoryStore()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedDetector{next: next, store: store, logger: logger}
}

// GetOrDetectSilences implements Detector.
func (c *CachedDetector) GetOrDetectSilences(ctx context.Context, req Request) ([]Interval, error) {
	key := req.Key()

	cached, err := c.store.Find(ctx, key)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, ErrResultNotFound) {
		return nil, err
	}

	intervals, err := c.next.GetOrDetectSilences(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := c.store.Save(ctx, key, intervals); err != nil {
		c.logger.Warn("failed to store silence result",
			slog.String("file_ref", req.FileRef),
			slog.String("error", err.Error()),
		)
	}
	return intervals, nil
}

var _ Detector = (*CachedDetector)(nil)
