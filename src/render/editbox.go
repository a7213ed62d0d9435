package render

import (
	"image"
	"image/color"
	"math"
)

const (
	editMargin    = 8
	editMinHeight = 28
	editMaxHeight = 64
	editFontSize  = 14
	editPadding   = 6
)

var (
	editFill        = color.RGBA{R: 20, G: 20, B: 20, A: 0xFF}
	editBorder      = color.RGBA{R: 120, G: 120, B: 120, A: 0xFF}
	editText        = color.RGBA{R: 240, G: 240, B: 240, A: 0xFF}
	editPlaceholder = color.RGBA{R: 140, G: 140, B: 140, A: 0xFF}
)

// EditState is the inline refinement box content for one frame.
type EditState struct {
	Text        string
	Caret       int // rune index
	Placeholder string
}

// EditBoxRect is the box position near the top of a window of the given size.
// It is derived from the size every frame so it follows moves and resizes.
func EditBoxRect(w, h int) image.Rectangle {
	bh := min(editMaxHeight, max(editMinHeight, h/2))
	bh = min(bh, max(h-2*editMargin, 1))
	return image.Rect(editMargin, editMargin, max(w-editMargin, editMargin+1), editMargin+bh)
}

func drawEditBox(dst *image.RGBA, ts Typesetter, st EditState) {
	box := EditBoxRect(dst.Rect.Dx(), dst.Rect.Dy())
	hw, hh := float64(box.Dx())/2, float64(box.Dy())/2
	cx, cy := float64(box.Min.X)+hw, float64(box.Min.Y)+hh

	for y := box.Min.Y - 1; y <= box.Max.Y; y++ {
		for x := box.Min.X - 1; x <= box.Max.X; x++ {
			d := sdRoundedBox(float64(x)+0.5-cx, float64(y)+0.5-cy, hw, hh, 5)
			if cov := fillCoverage(d); cov > 0 {
				blend(dst, x, y, editFill, cov*0.92)
			}
			if cov := strokeCoverage(d+0.5, 0.5); cov > 0 {
				blend(dst, x, y, editBorder, cov)
			}
		}
	}

	maxW := float64(box.Dx() - 2*editPadding)
	x := float64(box.Min.X + editPadding)
	y := float64(box.Min.Y + editPadding)

	text := withCaret(st.Text, st.Caret)
	c := editText
	if st.Text == "" {
		text = "|" + st.Placeholder
		c = editPlaceholder
	}
	ts.Draw(dst, text, editFontSize, x, y, math.Max(maxW, 1), c)
}

func withCaret(text string, caret int) string {
	r := []rune(text)
	caret = max(0, min(caret, len(r)))
	return string(r[:caret]) + "|" + string(r[caret:])
}
