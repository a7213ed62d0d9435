package render

import (
	"fmt"
	"image"
	"image/color"
	"strings"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	MinFontSize = 8
	MaxFontSize = 100

	textPaddingX = 6
	textPaddingY = 4
	lineSpacing  = 1.15
)

// Typesetter measures and draws word-wrapped text.
type Typesetter interface {
	// Measure returns the bounding size of text wrapped at maxWidth.
	Measure(text string, size int, maxWidth float64) (w, h float64)
	// Draw renders text wrapped at maxWidth with its top-left corner at (x, y).
	Draw(dst *image.RGBA, text string, size int, x, y, maxWidth float64, c color.Color)
}

var (
	fontOnce sync.Once
	fontData *truetype.Font
	fontErr  error
)

func loadFont() (*truetype.Font, error) {
	fontOnce.Do(func() {
		fontData, fontErr = truetype.Parse(goregular.TTF)
	})
	return fontData, fontErr
}

// GGTypesetter is the Typesetter backed by fogleman/gg and the Go Regular
// font. It is not safe for concurrent use; each window owns one.
type GGTypesetter struct {
	font    *truetype.Font
	faces   map[int]font.Face
	measure *gg.Context
}

// NewGGTypesetter parses the embedded font (once per process).
func NewGGTypesetter() (*GGTypesetter, error) {
	f, err := loadFont()
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	return &GGTypesetter{
		font:    f,
		faces:   make(map[int]font.Face),
		measure: gg.NewContext(1, 1),
	}, nil
}

func (t *GGTypesetter) face(size int) font.Face {
	if f, ok := t.faces[size]; ok {
		return f
	}
	f := truetype.NewFace(t.font, &truetype.Options{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	t.faces[size] = f
	return f
}

func (t *GGTypesetter) Measure(text string, size int, maxWidth float64) (float64, float64) {
	if strings.TrimSpace(text) == "" {
		return 0, 0
	}
	t.measure.SetFontFace(t.face(size))
	lines := t.measure.WordWrap(text, maxWidth)
	return t.measure.MeasureMultilineString(strings.Join(lines, "\n"), lineSpacing)
}

func (t *GGTypesetter) Draw(dst *image.RGBA, text string, size int, x, y, maxWidth float64, c color.Color) {
	if text == "" {
		return
	}
	dc := gg.NewContextForRGBA(dst)
	dc.SetFontFace(t.face(size))
	dc.SetColor(c)
	dc.DrawStringWrapped(text, x, y, 0, 0, maxWidth, lineSpacing, gg.AlignLeft)
}

// Close releases cached faces.
func (t *GGTypesetter) Close() {
	for size, f := range t.faces {
		_ = f.Close()
		delete(t.faces, size)
	}
}

// FitFontSize binary-searches the largest size in [MinFontSize, min(availH,
// MaxFontSize)] whose wrapped text fits the available box. MinFontSize is
// returned when nothing fits.
func FitFontSize(ts Typesetter, text string, availW, availH float64) int {
	low := MinFontSize
	high := min(int(availH), MaxFontSize)
	best := MinFontSize

	for low <= high {
		mid := (low + high) / 2
		w, h := ts.Measure(text, mid, availW)
		if w <= availW && h <= availH {
			best = mid
			low = mid + 1
		} else {
			high = mid - 1
		}
	}
	return best
}

// TextBox is the area the text layer lays out into for a window size.
func TextBox(w, h int) (availW, availH float64) {
	return float64(max(w-2*textPaddingX, 1)), float64(max(h-2*textPaddingY, 1))
}

// renderTextLayer draws text into a transparent layer: left aligned,
// vertically centered on its measured wrapped height.
func renderTextLayer(layer *image.RGBA, ts Typesetter, text string) int {
	clear(layer.Pix)
	w, h := layer.Rect.Dx(), layer.Rect.Dy()
	availW, availH := TextBox(w, h)

	size := FitFontSize(ts, text, availW, availH)
	_, textH := ts.Measure(text, size, availW)
	offsetY := max((float64(h)-textH)/2, 0)

	ts.Draw(layer, text, size, textPaddingX, offsetY, availW, color.White)
	return size
}
