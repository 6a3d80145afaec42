package media

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMuxArgs(t *testing.T) {
	args, err := muxArgs(MuxRequest{
		FrameDir:        "/tmp/frames",
		FPS:             30,
		AudioFiles:      []string{"/tmp/a0.wav", "/tmp/a1.wav"},
		BackgroundVideo: "/videos/bg.mp4",
		OutputPath:      "/tmp/out.mp4",
	})
	require.NoError(t, err)

	joined := ""
	for _, a := range args {
		joined += a + " "
	}
	assert.Contains(t, joined, "/videos/bg.mp4")
	assert.Contains(t, joined, filepath.Join("/tmp/frames", "frame_%06d.png"))
	assert.Contains(t, joined, "concat=n=2:v=0:a=1[a]")
	assert.Contains(t, joined, "[2:a][3:a]")
	assert.Equal(t, "/tmp/out.mp4", args[len(args)-1])
}

func TestMuxArgs_NoAudio(t *testing.T) {
	_, err := muxArgs(MuxRequest{FrameDir: "/tmp/frames"})
	require.Error(t, err)
}

func TestPickBackground(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"minecraft.mp4", "subway.webm", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	clips, err := ListBackgrounds(dir)
	require.NoError(t, err)
	assert.Len(t, clips, 2, "non-video files are skipped")

	picked, err := PickBackground(dir)
	require.NoError(t, err)
	assert.Contains(t, clips, picked)
}

func TestPickBackground_EmptyDir(t *testing.T) {
	_, err := PickBackground(t.TempDir())
	require.Error(t, err)
}
