package silence

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/maauso/clipsync/internal/clip"
)

func TestInterval_Valid(t *testing.T) {
	assert.True(t, Interval{Start: 1, End: 2}.Valid())
	assert.False(t, Interval{Start: 2, End: 2}.Valid())
	assert.False(t, Interval{Start: 3, End: 2}.Valid())
	assert.False(t, Interval{Start: math.NaN(), End: 2}.Valid())
	assert.False(t, Interval{Start: 0, End: math.Inf(1)}.Valid())
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		in      []Interval
		joinGap float64
		want    []Interval
	}{
		{"nil", nil, 0, nil},
		{"only degenerate", []Interval{{Start: 2, End: 1}, {Start: 3, End: 3}}, 0, nil},
		{
			"unsorted",
			[]Interval{{Start: 5, End: 6}, {Start: 1, End: 2}},
			0,
			[]Interval{{Start: 1, End: 2}, {Start: 5, End: 6}},
		},
		{
			"overlapping merged",
			[]Interval{{Start: 1, End: 3}, {Start: 2, End: 4}, {Start: 2.5, End: 2.8}},
			0,
			[]Interval{{Start: 1, End: 4}},
		},
		{
			"adjacent merged",
			[]Interval{{Start: 1, End: 2}, {Start: 2, End: 3}},
			0,
			[]Interval{{Start: 1, End: 3}},
		},
		{
			"gap within join tolerance",
			[]Interval{{Start: 1, End: 2}, {Start: 2.01, End: 3}},
			0.02,
			[]Interval{{Start: 1, End: 3}},
		},
		{
			"degenerate dropped between",
			[]Interval{{Start: 1, End: 2}, {Start: 4, End: 3}, {Start: 5, End: 6}},
			0,
			[]Interval{{Start: 1, End: 2}, {Start: 5, End: 6}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in, tt.joinGap))
		})
	}
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	in := []Interval{{Start: 5, End: 6}, {Start: 1, End: 2}}
	_ = Normalize(in, 0)
	assert.Equal(t, []Interval{{Start: 5, End: 6}, {Start: 1, End: 2}}, in)
}

func TestIntersect(t *testing.T) {
	b := clip.Boundary{SourceStart: 1, SourceEnd: 5, Duration: 4}
	in := []Interval{
		{Start: 0, End: 0.5},
		{Start: 0.5, End: 1.5},
		{Start: 2, End: 3},
		{Start: 4.5, End: 7},
		{Start: 8, End: 9},
	}

	got := Intersect(in, b)
	assert.Equal(t, []Interval{
		{Start: 1, End: 1.5},
		{Start: 2, End: 3},
		{Start: 4.5, End: 5},
	}, got)
}

func TestIndex_Find(t *testing.T) {
	b := clip.Boundary{SourceStart: 1, SourceEnd: 5, Duration: 4}
	idx := NewIndex([]Interval{{Start: 2, End: 3}, {Start: 0, End: 1.2}, {Start: 4, End: 6}}, b, 0)
	const guard = 0.03

	tests := []struct {
		abs   float64
		found bool
		want  Interval
	}{
		{1.0, true, Interval{Start: 1, End: 1.2}},
		{1.19, false, Interval{}},
		{1.5, false, Interval{}},
		{1.99, false, Interval{}},
		{2.0, true, Interval{Start: 2, End: 3}},
		{2.5, true, Interval{Start: 2, End: 3}},
		{2.98, false, Interval{}},
		{3.0, false, Interval{}},
		{4.2, true, Interval{Start: 4, End: 5}},
		{math.NaN(), false, Interval{}},
	}

	for _, tt := range tests {
		got, ok := idx.Find(tt.abs, guard)
		assert.Equal(t, tt.found, ok, "abs=%v", tt.abs)
		assert.Equal(t, tt.want, got, "abs=%v", tt.abs)
	}
}

func TestIndex_Empty(t *testing.T) {
	var nilIdx *Index
	_, ok := nilIdx.Find(1, 0)
	assert.False(t, ok)
	assert.Equal(t, 0, nilIdx.Len())
	assert.Nil(t, nilIdx.Intervals())

	idx := NewIndex(nil, clip.Boundary{SourceStart: 0, SourceEnd: 1, Duration: 1}, 0)
	_, ok = idx.Find(0.5, 0)
	assert.False(t, ok)
}

func TestRequest_Key(t *testing.T) {
	a := Request{FileRef: "a.wav", ThresholdDB: -40, MinDuration: 0.5, ClipStart: 1, ClipEnd: 5}
	b := a
	assert.Equal(t, a.Key(), b.Key())

	b.PadLeft = 0.1
	assert.NotEqual(t, a.Key(), b.Key())
}
