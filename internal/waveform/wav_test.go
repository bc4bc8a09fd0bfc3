package waveform

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestWAV writes a 16-bit mono file: one second at half scale,
// one second of silence.
func writeTestWAV(t *testing.T, path string, sampleRate int) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	data := make([]int, 2*sampleRate)
	for i := 0; i < sampleRate; i++ {
		if i%2 == 0 {
			data[i] = 16384
		} else {
			data[i] = -16384
		}
	}
	buf := &audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		SourceBitDepth: 16,
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
}

func TestWAVSource_GetWaveform(t *testing.T) {
	path := filepath.Join(t.TempDir(), "half.wav")
	writeTestWAV(t, path, 8000)

	src := NewWAVSource(nil, nil)
	ctx := context.Background()

	t.Run("whole file", func(t *testing.T) {
		p, err := src.GetWaveform(ctx, Request{FileRef: path, SamplesPerPixel: 800, Scale: ScaleLinear})
		require.NoError(t, err)
		assert.InDelta(t, 2.0, p.Duration, 1e-6)
		require.Len(t, p.Peaks, 20)
		assert.InDelta(t, 0.5, p.Peaks[0], 1e-3)
		assert.InDelta(t, 0.0, p.Peaks[19], 1e-9)
	})

	t.Run("window", func(t *testing.T) {
		p, err := src.GetWaveform(ctx, Request{FileRef: path, SamplesPerPixel: 800, Scale: ScaleLinear, Start: 0.5, End: 1.5})
		require.NoError(t, err)
		assert.InDelta(t, 1.0, p.Duration, 1e-6)
		require.Len(t, p.Peaks, 10)
		assert.InDelta(t, 0.5, p.Peaks[0], 1e-3)
		assert.InDelta(t, 0.0, p.Peaks[9], 1e-9)
	})

	t.Run("invalid request", func(t *testing.T) {
		_, err := src.GetWaveform(ctx, Request{FileRef: path, SamplesPerPixel: 0, Scale: ScaleLinear})
		assert.ErrorIs(t, err, ErrInvalidSamplesPerPixel)
	})

	t.Run("not a wav", func(t *testing.T) {
		junk := filepath.Join(t.TempDir(), "junk.wav")
		require.NoError(t, os.WriteFile(junk, []byte("definitely not riff data"), 0600))
		_, err := src.GetWaveform(ctx, Request{FileRef: junk, SamplesPerPixel: 10, Scale: ScaleLinear})
		assert.ErrorIs(t, err, ErrUnsupportedFile)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := src.GetWaveform(ctx, Request{FileRef: "/nonexistent.wav", SamplesPerPixel: 10, Scale: ScaleLinear})
		assert.Error(t, err)
	})
}
