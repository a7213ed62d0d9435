package screenshot

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/kbinani/screenshot"
)

// Displays returns the bounds of every active display; the primary is first.
func Displays() []image.Rectangle {
	n := screenshot.NumActiveDisplays()
	out := make([]image.Rectangle, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, screenshot.GetDisplayBounds(i))
	}
	return out
}

// GetDisplayBounds returns the bounds of the primary display
func GetDisplayBounds() (image.Rectangle, error) {
	if screenshot.NumActiveDisplays() == 0 {
		return image.Rectangle{}, fmt.Errorf("no active displays found")
	}
	return screenshot.GetDisplayBounds(0), nil
}

// DisplayFor returns the display with the largest overlap with r, or the
// primary display when r lies off-screen.
func DisplayFor(r image.Rectangle) (image.Rectangle, error) {
	return pickDisplay(Displays(), r)
}

func pickDisplay(displays []image.Rectangle, r image.Rectangle) (image.Rectangle, error) {
	if len(displays) == 0 {
		return image.Rectangle{}, fmt.Errorf("no active displays found")
	}
	best, bestArea := displays[0], -1
	for _, d := range displays {
		in := d.Intersect(r)
		if area := in.Dx() * in.Dy(); area > bestArea && !in.Empty() {
			best, bestArea = d, area
		}
	}
	if bestArea < 0 {
		c := image.Pt(r.Min.X+r.Dx()/2, r.Min.Y+r.Dy()/2)
		for _, d := range displays {
			if c.In(d) {
				return d, nil
			}
		}
	}
	return best, nil
}

// CaptureRect captures a specific region of the screen as PNG bytes.
func CaptureRect(r image.Rectangle) ([]byte, error) {
	if r.Dx() <= 0 || r.Dy() <= 0 {
		return nil, fmt.Errorf("invalid region dimensions: width=%d, height=%d", r.Dx(), r.Dy())
	}

	img, err := screenshot.CaptureRect(r)
	if err != nil {
		return nil, fmt.Errorf("failed to capture region: %w", err)
	}
	return encodePNG(img)
}

// LoadPNG reads a PNG file and returns its bytes and pixel size.
func LoadPNG(path string) ([]byte, image.Point, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, image.Point{}, fmt.Errorf("read image: %w", err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, image.Point{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return data, image.Pt(cfg.Width, cfg.Height), nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image as PNG: %w", err)
	}
	return buf.Bytes(), nil
}
