package media

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// MuxRequest describes one final render: the overlay frame sequence, the
// ordered narration files, and the background clip.
type MuxRequest struct {
	FrameDir        string
	FramePattern    string // defaults to frame_%06d.png
	FPS             int
	AudioFiles      []string
	BackgroundVideo string
	OutputPath      string
}

// Muxer assembles the final video. The real implementation shells out to
// ffmpeg; tests substitute their own.
type Muxer interface {
	Mux(ctx context.Context, req MuxRequest) error
}

// FFmpegMuxer drives the ffmpeg binary.
type FFmpegMuxer struct {
	Binary string
}

func NewFFmpegMuxer() *FFmpegMuxer {
	return &FFmpegMuxer{Binary: "ffmpeg"}
}

func (m *FFmpegMuxer) Mux(ctx context.Context, req MuxRequest) error {
	args, err := muxArgs(req)
	if err != nil {
		return err
	}

	slog.Info("muxing video", "frames", req.FrameDir, "audio_files", len(req.AudioFiles), "output", req.OutputPath)
	cmd := exec.CommandContext(ctx, m.Binary, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, tail(string(out), 500))
	}
	return nil
}

// muxArgs builds the ffmpeg invocation: background looped under the
// transparent overlay frames, narration files concatenated as the audio
// track, output trimmed to the shortest stream.
func muxArgs(req MuxRequest) ([]string, error) {
	if len(req.AudioFiles) == 0 {
		return nil, fmt.Errorf("mux request has no audio files")
	}
	pattern := req.FramePattern
	if pattern == "" {
		pattern = "frame_%06d.png"
	}
	fps := req.FPS
	if fps <= 0 {
		fps = 30
	}

	args := []string{
		"-y",
		"-stream_loop", "-1", "-i", req.BackgroundVideo,
		"-framerate", strconv.Itoa(fps), "-i", filepath.Join(req.FrameDir, pattern),
	}
	for _, audio := range req.AudioFiles {
		args = append(args, "-i", audio)
	}

	var filter strings.Builder
	filter.WriteString("[0:v][1:v]overlay=(W-w)/2:(H-h)/2:shortest=1[v];")
	for i := range req.AudioFiles {
		fmt.Fprintf(&filter, "[%d:a]", i+2)
	}
	fmt.Fprintf(&filter, "concat=n=%d:v=0:a=1[a]", len(req.AudioFiles))

	args = append(args,
		"-filter_complex", filter.String(),
		"-map", "[v]", "-map", "[a]",
		"-c:v", "libx264", "-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-shortest",
		req.OutputPath,
	)
	return args, nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
