package overlay

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapreel/zapreel/domain"
)

// testArtifact builds a cropped chat image with bubbles at known positions.
func testArtifact(t *testing.T, coords []domain.MessageCoordinate) *Artifact {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 400, 600))
	for y := 0; y < 600; y++ {
		for x := 0; x < 400; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 0xec, G: 0xe5, B: 0xdd, A: 0xff})
		}
	}
	return &Artifact{Image: img, Coords: coords}
}

func fourCoords() []domain.MessageCoordinate {
	return []domain.MessageCoordinate{
		{Index: 0, Y: 20, Height: 50, Width: 300, From: "Ana"},
		{Index: 1, Y: 90, Height: 50, Width: 280, From: "Bruno"},
		{Index: 2, Y: 160, Height: 60, Width: 310, From: "Ana"},
		{Index: 3, Y: 240, Height: 70, Width: 290, From: "Bruno"},
	}
}

func TestGenerate_FrameCountAndNaming(t *testing.T) {
	dir := t.TempDir()
	engine := NewEngine(testArtifact(t, fourCoords()), DefaultParams())

	count, err := engine.Generate(context.Background(), []float64{1.0, 1.0, 1.2, 1.3}, dir)
	require.NoError(t, err)
	assert.Equal(t, 300, count)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 300)
	assert.Equal(t, "frame_000000.png", entries[0].Name())
	assert.Equal(t, "frame_000299.png", entries[299].Name())

	first, err := LoadScreenshot(filepath.Join(dir, "frame_000000.png"))
	require.NoError(t, err)
	assert.Equal(t, 400, first.Bounds().Dx())
	assert.Equal(t, 600, first.Bounds().Dy())
	_, _, _, a := first.At(200, 300).RGBA()
	assert.Zero(t, a, "buffer frames are fully transparent")
}

func TestGenerate_DurationMismatchWritesNothing(t *testing.T) {
	dir := t.TempDir()
	engine := NewEngine(testArtifact(t, fourCoords()), DefaultParams())

	_, err := engine.Generate(context.Background(), []float64{1.0, 1.0, 1.2}, dir)
	require.Error(t, err)
	assert.True(t, domain.IsProtocolError(err))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "a refused plan leaves no frames behind")
}

func TestRevealWindow_PartialCutsHalfway(t *testing.T) {
	engine := NewEngine(testArtifact(t, fourCoords()), DefaultParams())

	// Message 0 ends at 70, message 1 starts at 90; the cut lands at 80.
	top, bottom := engine.revealWindow(0, 1, 4)
	assert.Equal(t, 5, top, "group top sits cropPadding above the first bubble")
	assert.Equal(t, 80, bottom)

	// Full group hugs the last bubble plus padding.
	top, bottom = engine.revealWindow(0, 4, 4)
	assert.Equal(t, 5, top)
	assert.Equal(t, 240+70+cropPadding, bottom)
}

func TestRevealWindow_ContainsRevealedBubbles(t *testing.T) {
	coords := fourCoords()
	engine := NewEngine(testArtifact(t, coords), DefaultParams())

	for shown := 1; shown <= len(coords); shown++ {
		top, bottom := engine.revealWindow(0, shown, len(coords))
		require.LessOrEqual(t, 0, top)
		require.LessOrEqual(t, bottom, 600)
		for i := 0; i < shown; i++ {
			assert.GreaterOrEqual(t, coords[i].Y, top, "bubble %d top inside window of shown=%d", i, shown)
			assert.LessOrEqual(t, coords[i].Y+coords[i].Height, bottom, "bubble %d bottom inside window of shown=%d", i, shown)
		}
	}
}

func TestRevealWindow_SecondGroup(t *testing.T) {
	coords := append(fourCoords(), domain.MessageCoordinate{Index: 4, Y: 330, Height: 60, Width: 250})
	engine := NewEngine(testArtifact(t, coords), DefaultParams())

	top, bottom := engine.revealWindow(1, 1, 5)
	assert.Equal(t, 330-cropPadding, top)
	assert.Equal(t, 330+60+cropPadding, bottom)
}

func TestRevealFrame_Texture(t *testing.T) {
	engine := NewEngine(testArtifact(t, fourCoords()), DefaultParams())
	frame := engine.revealFrame(0, 1, 4)

	// Inside the revealed band the chat background shows through.
	_, _, _, a := frame.At(200, 40).RGBA()
	assert.NotZero(t, a)
	// Below the band the frame stays transparent.
	_, _, _, a = frame.At(200, 400).RGBA()
	assert.Zero(t, a)
	// The rounded corner is masked out.
	_, _, _, a = frame.At(0, 0).RGBA()
	assert.Zero(t, a)
}

func TestGenerate_FrameFilesAreSequential(t *testing.T) {
	dir := t.TempDir()
	p := DefaultParams()
	p.StartBuffer = 0
	p.EndBuffer = 0
	engine := NewEngine(testArtifact(t, fourCoords()[:1]), p)

	count, err := engine.Generate(context.Background(), []float64{0.2}, dir)
	require.NoError(t, err)
	require.Equal(t, 6, count)
	for i := 0; i < count; i++ {
		assert.FileExists(t, filepath.Join(dir, fmt.Sprintf("frame_%06d.png", i)))
	}
}
