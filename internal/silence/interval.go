// Package silence holds absolute-time silence intervals, the collaborator
// contract for detecting them, and the lookup used by the skip engine.
package silence

import (
	"cmp"
	"math"
	"slices"
	"sort"

	"github.com/samber/lo"

	"github.com/maauso/clipsync/internal/clip"
)

// Interval is a contiguous silent span in absolute source seconds.
type Interval struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Valid reports whether the interval is finite and has End > Start.
func (iv Interval) Valid() bool {
	if math.IsNaN(iv.Start) || math.IsNaN(iv.End) || math.IsInf(iv.Start, 0) || math.IsInf(iv.End, 0) {
		return false
	}
	return iv.End > iv.Start
}

// Duration returns End - Start.
func (iv Interval) Duration() float64 {
	return iv.End - iv.Start
}

// Normalize drops degenerate entries, sorts by start and merges intervals that
// overlap or are separated by at most joinGap seconds. The input is not modified.
func Normalize(in []Interval, joinGap float64) []Interval {
	valid := lo.Filter(in, func(iv Interval, _ int) bool { return iv.Valid() })
	if len(valid) == 0 {
		return nil
	}
	slices.SortFunc(valid, func(a, b Interval) int {
		if c := cmp.Compare(a.Start, b.Start); c != 0 {
			return c
		}
		return cmp.Compare(a.End, b.End)
	})

	out := make([]Interval, 0, len(valid))
	cur := valid[0]
	for _, iv := range valid[1:] {
		if iv.Start <= cur.End+joinGap {
			cur.End = max(cur.End, iv.End)
			continue
		}
		out = append(out, cur)
		cur = iv
	}
	return append(out, cur)
}

// Intersect clips normalized intervals to the boundary window, dropping those
// that fall entirely outside it.
func Intersect(in []Interval, b clip.Boundary) []Interval {
	out := make([]Interval, 0, len(in))
	for _, iv := range in {
		if !b.Overlaps(iv.Start, iv.End) {
			continue
		}
		clipped := Interval{
			Start: max(iv.Start, b.SourceStart),
			End:   min(iv.End, b.SourceEnd),
		}
		if clipped.Valid() {
			out = append(out, clipped)
		}
	}
	return out
}

// Index is an immutable lookup over the silence intervals relevant to one clip.
type Index struct {
	intervals []Interval
}

// NewIndex normalizes the raw detector output and intersects it with the boundary.
func NewIndex(raw []Interval, b clip.Boundary, joinGap float64) *Index {
	return &Index{intervals: Intersect(Normalize(raw, joinGap), b)}
}

// Len returns the number of intervals in the index.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.intervals)
}

// Intervals returns a copy of the indexed intervals.
func (x *Index) Intervals() []Interval {
	if x == nil {
		return nil
	}
	return slices.Clone(x.intervals)
}

// Find returns the interval satisfying Start <= abs < End-guard.
func (x *Index) Find(abs, guard float64) (Interval, bool) {
	if x.Len() == 0 || math.IsNaN(abs) {
		return Interval{}, false
	}
	// Ends are strictly increasing after normalization, so the predicate is monotone.
	i := sort.Search(len(x.intervals), func(i int) bool {
		return x.intervals[i].End-guard > abs
	})
	if i == len(x.intervals) {
		return Interval{}, false
	}
	iv := x.intervals[i]
	if iv.Start <= abs {
		return iv, true
	}
	return Interval{}, false
}
