// Package overlay projects silence intervals onto the clip timeline as
// drawable regions, debouncing redraws.
package overlay

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/maauso/clipsync/internal/clip"
	"github.com/maauso/clipsync/internal/silence"
)

// Region is a drawable silent span in absolute source seconds.
type Region struct {
	ID    string  `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Renderer draws regions on a timeline.
type Renderer interface {
	ClearRegions()
	AddRegion(r Region)
}

// Project returns the regions for the intervals overlapping the clip, clipped
// to the clip window. Coordinates stay in absolute time.
func Project(b clip.Boundary, intervals []silence.Interval) []Region {
	visible := lo.Filter(intervals, func(iv silence.Interval, _ int) bool {
		return iv.Valid() && b.Overlaps(iv.Start, iv.End)
	})
	return lo.Map(visible, func(iv silence.Interval, i int) Region {
		return Region{
			ID:    fmt.Sprintf("silence-%d", i),
			Start: max(iv.Start, b.SourceStart),
			End:   min(iv.End, b.SourceEnd),
		}
	})
}

// Manager keeps a renderer in sync with the silence intervals of the current
// clip. Updates for the same clip are debounced; a boundary change redraws
// immediately so stale regions are never shown against a new clip.
type Manager struct {
	renderer Renderer
	debounce time.Duration
	logger   *slog.Logger

	mu        sync.Mutex
	boundary  clip.Boundary
	pending   []silence.Interval
	hasUpdate bool
	timer     *time.Timer
	drawn     []Region
	closed    bool
}

// NewManager creates a manager drawing onto renderer.
func NewManager(renderer Renderer, debounce time.Duration, logger *slog.Logger) *Manager {
	return &Manager{renderer: renderer, debounce: debounce, logger: logger}
}

// SetRegions schedules a redraw for the intervals of the clip b.
func (m *Manager) SetRegions(b clip.Boundary, intervals []silence.Interval) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}

	intervals = slices.Clone(intervals)
	if b != m.boundary || m.debounce <= 0 {
		m.stopTimerLocked()
		m.boundary = b
		m.pending = nil
		m.hasUpdate = false
		m.drawLocked(intervals)
		return
	}

	m.pending = intervals
	m.hasUpdate = true
	if m.timer == nil {
		m.timer = time.AfterFunc(m.debounce, m.fire)
	} else {
		m.timer.Reset(m.debounce)
	}
}

func (m *Manager) fire() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushLocked()
}

// Flush draws any pending update now.
func (m *Manager) Flush() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopTimerLocked()
	m.flushLocked()
}

func (m *Manager) flushLocked() {
	if !m.hasUpdate || m.closed {
		return
	}
	m.hasUpdate = false
	m.drawLocked(m.pending)
	m.pending = nil
}

func (m *Manager) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *Manager) drawLocked(intervals []silence.Interval) {
	regions := Project(m.boundary, intervals)

	m.renderer.ClearRegions()
	for _, r := range regions {
		m.renderer.AddRegion(r)
	}
	m.drawn = regions

	m.logger.Debug("Silence regions redrawn",
		slog.String("boundary", m.boundary.String()),
		slog.Int("regions", len(regions)),
	)
}

// Regions returns the regions drawn last.
func (m *Manager) Regions() []Region {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.drawn)
}

// Close cancels any pending redraw.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopTimerLocked()
	m.closed = true
}

// MemoryRenderer keeps drawn regions in memory. It is safe for concurrent use.
type MemoryRenderer struct {
	mu      sync.Mutex
	regions []Region
	clears  int
}

// NewMemoryRenderer creates an empty renderer.
func NewMemoryRenderer() *MemoryRenderer {
	return &MemoryRenderer{}
}

// ClearRegions implements Renderer.
func (r *MemoryRenderer) ClearRegions() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.regions = nil
	r.clears++
}

// AddRegion implements Renderer.
func (r *MemoryRenderer) AddRegion(region Region) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.regions = append(r.regions, region)
}

// Regions returns the drawn regions.
func (r *MemoryRenderer) Regions() []Region {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.regions)
}

// Clears returns how many times the renderer was cleared.
func (r *MemoryRenderer) Clears() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clears
}

var _ Renderer = (*MemoryRenderer)(nil)
