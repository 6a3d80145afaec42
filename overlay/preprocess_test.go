package overlay

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapreel/zapreel/domain"
)

// chatScreenshot paints a 400x1000 screenshot with 30px chrome-colored side
// borders and a chat-bubble background in between.
func chatScreenshot() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 400, 1000))
	chrome := color.RGBA{R: 215, G: 210, B: 210, A: 0xff}
	chat := color.RGBA{R: 0xec, G: 0xe5, B: 0xdd, A: 0xff}
	for y := 0; y < 1000; y++ {
		for x := 0; x < 400; x++ {
			if x < 30 || x >= 370 {
				img.SetRGBA(x, y, chrome)
			} else {
				img.SetRGBA(x, y, chat)
			}
		}
	}
	return img
}

func TestPreprocess_CropAndShift(t *testing.T) {
	coords := []domain.MessageCoordinate{
		{Index: 0, Y: 200, Height: 50},
		{Index: 1, Y: 270, Height: 60},
	}

	art := Preprocess(chatScreenshot(), coords)

	// Vertical crop: [200-15, 330+15], side borders trimmed.
	assert.Equal(t, 160, art.Image.Bounds().Dy())
	assert.Equal(t, 340, art.Image.Bounds().Dx())

	require.Len(t, art.Coords, 2)
	assert.Equal(t, 15, art.Coords[0].Y)
	assert.Equal(t, 85, art.Coords[1].Y)
	assert.Equal(t, 50, art.Coords[0].Height, "heights are untouched")
}

func TestPreprocess_ClampsToImage(t *testing.T) {
	coords := []domain.MessageCoordinate{
		{Index: 0, Y: 5, Height: 50},
		{Index: 1, Y: 960, Height: 50},
	}

	art := Preprocess(chatScreenshot(), coords)

	// top clamps to 0, bottom clamps to the image height.
	assert.Equal(t, 1000, art.Image.Bounds().Dy())
	assert.Equal(t, 5, art.Coords[0].Y)
}

func TestPreprocess_NoCoordinatesFallback(t *testing.T) {
	art := Preprocess(chatScreenshot(), nil)

	// Middle slice of the image: rows [250, 800).
	assert.Equal(t, 550, art.Image.Bounds().Dy())
	assert.Empty(t, art.Coords)
}

func TestPreprocess_BorderToleranceMatchesNearChrome(t *testing.T) {
	img := chatScreenshot()
	// Slightly off-shade chrome still counts as border.
	for y := 0; y < 1000; y++ {
		for x := 0; x < 30; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 220, G: 205, B: 215, A: 0xff})
		}
	}

	art := Preprocess(img, []domain.MessageCoordinate{{Y: 200, Height: 50}})
	assert.Equal(t, 340, art.Image.Bounds().Dx())
}

func TestPreprocess_NoBordersKeepsFullWidth(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 400, 1000))
	for y := 0; y < 1000; y++ {
		for x := 0; x < 400; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 0xec, G: 0xe5, B: 0xdd, A: 0xff})
		}
	}

	art := Preprocess(img, []domain.MessageCoordinate{{Y: 200, Height: 50}})
	assert.Equal(t, 400, art.Image.Bounds().Dx())
}
