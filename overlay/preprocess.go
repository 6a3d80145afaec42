package overlay

import (
	"fmt"
	"image"
	"log/slog"
	"os"

	_ "image/png"

	xdraw "golang.org/x/image/draw"

	"github.com/zapreel/zapreel/domain"
)

const (
	// cropPadding is the breathing room above the first bubble and below the
	// last one, in screenshot pixels.
	cropPadding = 15

	// Side borders of the chat viewport rendered by the screenshot service.
	chromeR, chromeG, chromeB = 215, 210, 210
	chromeTolerance           = 10
)

// Artifact is the preprocessed overlay input: the chat region of the
// screenshot with its UI chrome trimmed, and the bubble coordinates shifted
// into cropped-image space.
type Artifact struct {
	Image  *image.RGBA
	Coords []domain.MessageCoordinate
}

// LoadScreenshot decodes the screenshot from disk into RGBA.
func LoadScreenshot(path string) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open screenshot: %w", err)
	}
	defer f.Close()

	decoded, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode screenshot %s: %w", path, err)
	}
	return toRGBA(decoded), nil
}

func toRGBA(src image.Image) *image.RGBA {
	if rgba, ok := src.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	dst := image.NewRGBA(image.Rect(0, 0, src.Bounds().Dx(), src.Bounds().Dy()))
	xdraw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, xdraw.Src)
	return dst
}

// Preprocess crops the screenshot to the message region and rebases the
// coordinates. With no coordinates it falls back to the middle vertical
// slice of the image, which is where the chat area sits in practice.
func Preprocess(src *image.RGBA, coords []domain.MessageCoordinate) *Artifact {
	height := src.Bounds().Dy()

	var top, bottom int
	if len(coords) > 0 {
		minY, maxBottom := coords[0].Y, coords[0].Y+coords[0].Height
		for _, c := range coords[1:] {
			if c.Y < minY {
				minY = c.Y
			}
			if b := c.Y + c.Height; b > maxBottom {
				maxBottom = b
			}
		}
		top = max(0, minY-cropPadding)
		bottom = min(height, maxBottom+cropPadding)
	} else {
		top = height * 25 / 100
		bottom = height * 80 / 100
	}

	left, right := trimChromeBorders(src, top, bottom)
	cropped := cropRGBA(src, image.Rect(left, top, right, bottom))

	shifted := make([]domain.MessageCoordinate, len(coords))
	for i, c := range coords {
		c.Y -= top
		shifted[i] = c
	}

	slog.Debug("screenshot preprocessed",
		"top", top, "bottom", bottom, "left", left, "right", right,
		"width", cropped.Bounds().Dx(), "height", cropped.Bounds().Dy())
	return &Artifact{Image: cropped, Coords: shifted}
}

// trimChromeBorders scans the mid-row of the [top, bottom) band from both
// edges inward, skipping pixels that match the viewport chrome color.
func trimChromeBorders(src *image.RGBA, top, bottom int) (left, right int) {
	width := src.Bounds().Dx()
	mid := top + (bottom-top)/2

	left, right = 0, width
	for left < width && isChromePixel(src, left, mid) {
		left++
	}
	for right > left && isChromePixel(src, right-1, mid) {
		right--
	}
	if left >= right {
		// The whole row matched; keep the full width rather than
		// producing an empty image.
		return 0, width
	}
	return left, right
}

func isChromePixel(src *image.RGBA, x, y int) bool {
	r, g, b, _ := src.At(x, y).RGBA()
	return within(int(r>>8), chromeR) && within(int(g>>8), chromeG) && within(int(b>>8), chromeB)
}

func within(v, target int) bool {
	d := v - target
	return d >= -chromeTolerance && d <= chromeTolerance
}

// cropRGBA copies the rectangle into a fresh zero-origin image.
func cropRGBA(src *image.RGBA, rect image.Rectangle) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	xdraw.Draw(dst, dst.Bounds(), src, rect.Min, xdraw.Src)
	return dst
}
