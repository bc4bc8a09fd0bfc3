package silence

import (
	"context"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/clipsync/internal/ffmpeg"
)

// checkFFmpeg skips test if ffmpeg is not available.
func checkFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found in PATH, skipping test")
	}
}

func TestParseSilenceOutput(t *testing.T) {
	output := `[silencedetect @ 0x1] silence_start: 1.5
[silencedetect @ 0x1] silence_end: 2.75 | silence_duration: 1.25
size=N/A time=00:00:05.00 bitrate=N/A speed= 500x
[silencedetect @ 0x1] silence_start: -0.002
[silencedetect @ 0x1] silence_end: 0.4 | silence_duration: 0.402
[silencedetect @ 0x1] silence_start: 4.2
`

	t.Run("open interval closed at window end", func(t *testing.T) {
		got := parseSilenceOutput(output, 5)
		assert.Equal(t, []Interval{
			{Start: 1.5, End: 2.75},
			{Start: 0, End: 0.4},
			{Start: 4.2, End: 5},
		}, got)
	})

	t.Run("open interval dropped without window", func(t *testing.T) {
		got := parseSilenceOutput(output, -1)
		assert.Len(t, got, 2)
	})

	t.Run("empty output", func(t *testing.T) {
		assert.Empty(t, parseSilenceOutput("", 5))
	})

	t.Run("end without start ignored", func(t *testing.T) {
		assert.Empty(t, parseSilenceOutput("silence_end: 3.0 | silence_duration: 1", 5))
	})
}

func TestApplyPadding(t *testing.T) {
	in := []Interval{{Start: 1, End: 3}, {Start: 4, End: 4.2}}

	got := applyPadding(in, 0.25, 0.5)
	assert.Equal(t, []Interval{{Start: 1.5, End: 2.75}}, got)
}

// createToneWithGap renders tone, silence, tone into a mono WAV file.
func createToneWithGap(t *testing.T, path string) {
	t.Helper()
	cmd := exec.Command("ffmpeg", "-y",
		"-f", "lavfi", "-i", "sine=frequency=440:duration=2",
		"-f", "lavfi", "-i", "anullsrc=channel_layout=mono:sample_rate=16000:duration=2",
		"-f", "lavfi", "-i", "sine=frequency=440:duration=2",
		"-filter_complex", "[0:a][1:a][2:a]concat=n=3:v=0:a=1[out]",
		"-map", "[out]",
		"-ar", "16000", "-ac", "1",
		path,
	)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
}

func TestFFmpegDetector_Detect(t *testing.T) {
	checkFFmpeg(t)

	path := filepath.Join(t.TempDir(), "gap.wav")
	createToneWithGap(t, path)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	d := NewFFmpegDetector(ffmpeg.NewRunner(""), nil, nil)

	t.Run("whole file", func(t *testing.T) {
		got, err := d.GetOrDetectSilences(ctx, Request{FileRef: path, ThresholdDB: -40, MinDuration: 0.5})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.InDelta(t, 2.0, got[0].Start, 0.1)
		assert.InDelta(t, 4.0, got[0].End, 0.1)
	})

	t.Run("clip window reports absolute times", func(t *testing.T) {
		got, err := d.GetOrDetectSilences(ctx, Request{
			FileRef: path, ThresholdDB: -40, MinDuration: 0.5,
			ClipStart: 1, ClipEnd: 5,
		})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.InDelta(t, 2.0, got[0].Start, 0.1)
		assert.InDelta(t, 4.0, got[0].End, 0.1)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := d.GetOrDetectSilences(ctx, Request{FileRef: "/nonexistent.wav", ThresholdDB: -40, MinDuration: 0.5})
		require.Error(t, err)
		var ffErr *ffmpeg.Error
		assert.ErrorAs(t, err, &ffErr)
	})
}
