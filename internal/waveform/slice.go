package waveform

import (
	"fmt"
	"log/slog"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/maauso/clipsync/internal/clip"
)

// minDisplayPeaks is the smallest slice handed to the visual layer.
const minDisplayPeaks = 2

// Slice derives the display peaks for a clip from the full-file peaks.
// It never returns fewer than two samples: an empty range yields zeros and a
// single-slot range is repeated.
func Slice(full Peaks, b clip.Boundary) []float64 {
	n := len(full.Peaks)
	if n == 0 || full.Duration <= 0 || math.IsNaN(full.Duration) {
		return make([]float64, minDisplayPeaks)
	}

	secondsPerSlot := full.Duration / float64(n)
	start := clampIndex(int(math.Round(b.SourceStart/secondsPerSlot)), n)
	end := clampIndex(int(math.Round(b.SourceEnd/secondsPerSlot)), n)
	if end <= start {
		return make([]float64, minDisplayPeaks)
	}

	out := make([]float64, max(end-start, minDisplayPeaks))
	n = copy(out, full.Peaks[start:end])
	// Narrow clips repeat their last slot.
	for i := n; i < len(out); i++ {
		out[i] = out[n-1]
	}
	return out
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}

// SliceKey identifies a display slice by source and exact boundary.
type SliceKey struct {
	FileID string
	Start  float64
	End    float64
}

func (k SliceKey) String() string {
	return fmt.Sprintf("%s[%.6f,%.6f]", k.FileID, k.Start, k.End)
}

// SliceCache memoizes display slices. Entries are never invalidated: the key
// carries the exact boundary, so a new clip always gets a new key.
// Capacity only bounds memory.
type SliceCache struct {
	cache  *lru.Cache[SliceKey, []float64]
	logger *slog.Logger
}

// NewSliceCache creates a cache holding up to size slices.
func NewSliceCache(size int, logger *slog.Logger) (*SliceCache, error) {
	if size <= 0 {
		size = 256
	}
	if logger == nil {
		logger = slog.Default()
	}
	c, err := lru.New[SliceKey, []float64](size)
	if err != nil {
		return nil, fmt.Errorf("create slice cache: %w", err)
	}
	return &SliceCache{cache: c, logger: logger}, nil
}

// DisplayPeaks returns the cached slice for (fileID, boundary), deriving it
// from full on a miss. The bool reports whether the result was a cache hit.
// Callers must treat the returned slice as read-only.
func (c *SliceCache) DisplayPeaks(fileID string, full Peaks, b clip.Boundary) ([]float64, bool) {
	key := SliceKey{FileID: fileID, Start: b.SourceStart, End: b.SourceEnd}
	if peaks, ok := c.cache.Get(key); ok {
		return peaks, true
	}

	peaks := Slice(full, b)
	c.cache.Add(key, peaks)
	c.logger.Debug("display peaks derived",
		slog.String("key", key.String()),
		slog.Int("len", len(peaks)),
	)
	return peaks, false
}

// Lookup returns a cached slice without deriving it.
func (c *SliceCache) Lookup(fileID string, b clip.Boundary) ([]float64, bool) {
	return c.cache.Get(SliceKey{FileID: fileID, Start: b.SourceStart, End: b.SourceEnd})
}

// Len returns the number of cached slices.
func (c *SliceCache) Len() int {
	return c.cache.Len()
}
