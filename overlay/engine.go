package overlay

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"

	xdraw "golang.org/x/image/draw"

	"github.com/zapreel/zapreel/domain"
)

// cornerRadius is the rounded-corner radius of each reveal tile.
const cornerRadius = 15

// Engine renders the frame sequence for one video.
type Engine struct {
	art    *Artifact
	params Params

	// Reveal frames repeat for many consecutive indices; encode each
	// distinct frame once.
	encoded map[frameKey][]byte
}

type frameKey struct {
	group int
	shown int
}

var emptyKey = frameKey{group: -1}

func NewEngine(art *Artifact, params Params) *Engine {
	return &Engine{art: art, params: params, encoded: map[frameKey][]byte{}}
}

// Generate writes the full frame sequence as frame_NNNNNN.png files under
// outputDir and returns the frame count. The duration list must pair 1:1
// with the artifact's coordinates; a mismatch is a ProtocolError and nothing
// is written.
func (e *Engine) Generate(ctx context.Context, durations []float64, outputDir string) (int, error) {
	if len(durations) != len(e.art.Coords) {
		return 0, domain.Protocolf("%d audio durations for %d message coordinates", len(durations), len(e.art.Coords))
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return 0, fmt.Errorf("create frame dir: %w", err)
	}

	plan := BuildPlan(durations, e.params)
	for i, spec := range plan {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		data, err := e.frameBytes(spec, durations)
		if err != nil {
			return i, fmt.Errorf("frame %d: %w", i, err)
		}
		path := filepath.Join(outputDir, fmt.Sprintf("frame_%06d.png", i))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return i, fmt.Errorf("write frame %d: %w", i, err)
		}
	}

	slog.Info("overlay frames generated", "frames", len(plan), "messages", len(durations), "dir", outputDir)
	return len(plan), nil
}

func (e *Engine) frameBytes(spec FrameSpec, durations []float64) ([]byte, error) {
	key := emptyKey
	if spec.Kind == FrameReveal {
		key = frameKey{group: spec.Group, shown: spec.Shown}
	}
	if data, ok := e.encoded[key]; ok {
		return data, nil
	}

	var frame *image.RGBA
	if spec.Kind == FrameEmpty {
		frame = e.emptyFrame()
	} else {
		frame = e.revealFrame(spec.Group, spec.Shown, len(durations))
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, frame); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	e.encoded[key] = buf.Bytes()
	return buf.Bytes(), nil
}

func (e *Engine) emptyFrame() *image.RGBA {
	b := e.art.Image.Bounds()
	return image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
}

// revealFrame crops the group's visible band, rounds its corners, and
// composites it onto a transparent canvas of the full cropped-image size.
func (e *Engine) revealFrame(group, shown, total int) *image.RGBA {
	top, bottom := e.revealWindow(group, shown, total)

	b := e.art.Image.Bounds()
	tile := cropRGBA(e.art.Image, image.Rect(0, top, b.Dx(), bottom))
	mask := roundedMask(tile.Bounds().Dx(), tile.Bounds().Dy(), cornerRadius)

	frame := e.emptyFrame()
	xdraw.DrawMask(frame, tile.Bounds(), tile, image.Point{}, mask, image.Point{}, xdraw.Over)
	return frame
}

// revealWindow computes the crop band for "shown messages of group". The top
// sits above the group's first bubble. The bottom hugs the last visible
// bubble when the group is complete; otherwise it cuts halfway through the
// gap to the next bubble so no half-rendered message leaks into the frame.
func (e *Engine) revealWindow(group, shown, total int) (top, bottom int) {
	coords := e.art.Coords
	height := e.art.Image.Bounds().Dy()

	first := group * e.params.MessagesPerGroup
	last := first + shown - 1
	groupLast := min(first+e.params.MessagesPerGroup, total) - 1

	top = max(0, coords[first].Y-cropPadding)

	if last == groupLast {
		bottom = coords[last].Y + coords[last].Height + cropPadding
	} else {
		lastBottom := coords[last].Y + coords[last].Height
		bottom = lastBottom + (coords[last+1].Y-lastBottom)/2
	}
	bottom = min(height, bottom)
	if bottom <= top {
		bottom = min(height, top+1)
	}
	return top, bottom
}

// roundedMask is an opaque alpha mask with quarter-circle corners. Radius is
// clamped so tiny tiles stay fully visible.
func roundedMask(width, height, radius int) *image.Alpha {
	if r := min(width, height) / 2; radius > r {
		radius = r
	}
	mask := image.NewAlpha(image.Rect(0, 0, width, height))

	inCorner := func(x, y int) bool {
		var cx, cy int
		switch {
		case x < radius && y < radius:
			cx, cy = radius-1, radius-1
		case x >= width-radius && y < radius:
			cx, cy = width-radius, radius-1
		case x < radius && y >= height-radius:
			cx, cy = radius-1, height-radius
		case x >= width-radius && y >= height-radius:
			cx, cy = width-radius, height-radius
		default:
			return false
		}
		dx, dy := x-cx, y-cy
		return dx*dx+dy*dy > radius*radius
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if !inCorner(x, y) {
				mask.SetAlpha(x, y, color.Alpha{A: 0xff})
			}
		}
	}
	return mask
}
