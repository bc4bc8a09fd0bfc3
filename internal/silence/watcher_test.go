package silence

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.json")
	require.NoError(t, os.WriteFile(good, []byte(`[{"start":1,"end":2},{"start":3.5,"end":4}]`), 0600))

	got, err := LoadFile(good)
	require.NoError(t, err)
	assert.Equal(t, []Interval{{Start: 1, End: 2}, {Start: 3.5, End: 4}}, got)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{nope`), 0600))
	_, err = LoadFile(bad)
	assert.Error(t, err)

	_, err = LoadFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestWatcher_DeliversInitialAndUpdates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "silences.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"start":1,"end":2}]`), 0600))

	updates := make(chan []Interval, 8)
	w := NewWatcher(path, func(iv []Interval) { updates <- iv }, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case got := <-updates:
		assert.Equal(t, []Interval{{Start: 1, End: 2}}, got)
	case <-time.After(5 * time.Second):
		t.Fatal("initial load not delivered")
	}

	require.NoError(t, os.WriteFile(path, []byte(`[{"start":5,"end":6}]`), 0600))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case got := <-updates:
			if len(got) == 1 && got[0].Start == 5 {
				cancel()
				require.NoError(t, <-done)
				return
			}
		case <-deadline:
			t.Fatal("update not delivered")
		}
	}
}
