package render

import (
	"image"
	"image/color"
	"math"
)

const (
	ButtonSize   = 28
	buttonMargin = 12
	buttonGap    = 8
	buttonRadius = 13.0
	ringWidth    = 1.5
	buttonAlpha  = 0.9

	// Windows shorter than this get their buttons vertically centered.
	compactHeight = buttonMargin*2 + ButtonSize
)

var (
	buttonFill    = color.RGBA{R: 80, G: 80, B: 80, A: 0xFF}
	buttonHover   = color.RGBA{R: 128, G: 128, B: 128, A: 0xFF}
	buttonSuccess = color.RGBA{R: 30, G: 180, B: 30, A: 0xFF}
	ringColor     = color.RGBA{R: 255, G: 255, B: 255, A: 0xFF}
	glyphColor    = color.RGBA{R: 255, G: 255, B: 255, A: 0xFF}
)

// Button identifies one of the interactive controls.
type Button int

const (
	NoButton Button = iota
	CopyButton
	EditButton
	UndoButton
)

func (b Button) String() string {
	switch b {
	case NoButton:
		return "none"
	case CopyButton:
		return "copy"
	case EditButton:
		return "edit"
	case UndoButton:
		return "undo"
	default:
		return "unknown"
	}
}

// ButtonLayout holds button centers in window-local coordinates.
type ButtonLayout struct {
	Copy, Edit, Undo image.Point
	HasUndo          bool
}

// LayoutButtons places copy, edit and undo right-to-left along the bottom edge.
func LayoutButtons(w, h int, hasUndo bool) ButtonLayout {
	cy := h - buttonMargin - ButtonSize/2
	if h < compactHeight {
		cy = h / 2
	}
	copyX := w - buttonMargin - ButtonSize/2
	editX := copyX - ButtonSize - buttonGap
	undoX := editX - ButtonSize - buttonGap

	return ButtonLayout{
		Copy:    image.Pt(copyX, cy),
		Edit:    image.Pt(editX, cy),
		Undo:    image.Pt(undoX, cy),
		HasUndo: hasUndo,
	}
}

// Hit returns the button under a window-local point.
func (l ButtonLayout) Hit(x, y int) Button {
	within := func(c image.Point) bool {
		dx, dy := float64(x-c.X), float64(y-c.Y)
		return dx*dx+dy*dy <= float64(ButtonSize*ButtonSize)/4
	}
	switch {
	case within(l.Copy):
		return CopyButton
	case within(l.Edit):
		return EditButton
	case l.HasUndo && within(l.Undo):
		return UndoButton
	default:
		return NoButton
	}
}

// ButtonState carries the hover and feedback flags for one frame.
type ButtonState struct {
	Visible     bool
	ShowUndo    bool
	OnCopy      bool
	OnEdit      bool
	OnUndo      bool
	CopySuccess bool
}

type glyphFunc func(x, y float64) float64

func drawButtons(dst *image.RGBA, st ButtonState) {
	w, h := dst.Rect.Dx(), dst.Rect.Dy()
	l := LayoutButtons(w, h, st.ShowUndo)

	copyFill := buttonFill
	copyGlyph := glyphFunc(clipboardGlyph)
	if st.CopySuccess {
		copyFill = buttonSuccess
		copyGlyph = checkGlyph
	} else if st.OnCopy {
		copyFill = buttonHover
	}
	drawButton(dst, l.Copy, copyFill, copyGlyph)

	editFill := buttonFill
	if st.OnEdit {
		editFill = buttonHover
	}
	drawButton(dst, l.Edit, editFill, sparkleGlyph)

	if st.ShowUndo {
		undoFill := buttonFill
		if st.OnUndo {
			undoFill = buttonHover
		}
		drawButton(dst, l.Undo, undoFill, backArrowGlyph)
	}
}

// drawButton renders a disc, its soft ring and a glyph given as a coverage
// function of button-local coordinates.
func drawButton(dst *image.RGBA, c image.Point, fill color.RGBA, glyph glyphFunc) {
	r := int(buttonRadius) + 2
	for y := c.Y - r; y <= c.Y+r; y++ {
		for x := c.X - r; x <= c.X+r; x++ {
			lx := float64(x) + 0.5 - float64(c.X)
			ly := float64(y) + 0.5 - float64(c.Y)
			d := math.Hypot(lx, ly) - buttonRadius

			if cov := fillCoverage(d); cov > 0 {
				blend(dst, x, y, fill, cov*buttonAlpha)
			}
			if cov := strokeCoverage(d+ringWidth/2, ringWidth/2); cov > 0 {
				blend(dst, x, y, ringColor, cov*0.6*buttonAlpha)
			}
			if cov := glyph(lx, ly); cov > 0 {
				blend(dst, x, y, glyphColor, cov)
			}
		}
	}
}

// clipboardGlyph is two overlapping outlined sheets.
func clipboardGlyph(x, y float64) float64 {
	front := sdRoundedBox(x-2, y+1.5, 4, 5, 1.2)
	back := sdRoundedBox(x+2, y-1.5, 4, 5, 1.2)
	cov := strokeCoverage(front, 0.7)
	if front > 0 {
		cov = math.Max(cov, strokeCoverage(back, 0.7))
	}
	return cov
}

func checkGlyph(x, y float64) float64 {
	d := math.Min(
		sdSegment(x, y, -5, 0, -1.5, 4),
		sdSegment(x, y, -1.5, 4, 5.5, -4.5),
	)
	return strokeCoverage(d, 1.2)
}

// sparkleGlyph is a four-pointed star (a superellipse with exponent below 1)
// plus a smaller companion star.
func sparkleGlyph(x, y float64) float64 {
	star := func(px, py, r float64) float64 {
		const p = 0.6
		v := math.Pow(math.Abs(px)/r, p) + math.Pow(math.Abs(py)/r, p)
		return (math.Pow(v, 1/p) - 1) * r * 0.5
	}
	big := fillCoverage(star(x+1, y+1, 7))
	small := fillCoverage(star(x-4.5, y+3.5, 3))
	return math.Max(big, small)
}

func backArrowGlyph(x, y float64) float64 {
	d := math.Min(
		sdSegment(x, y, -5, 0, 5, 0),
		math.Min(
			sdSegment(x, y, -5, 0, -1, -4),
			sdSegment(x, y, -5, 0, -1, 4),
		),
	)
	return strokeCoverage(d, 1.1)
}
