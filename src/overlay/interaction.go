package overlay

import (
	"image"

	"screen-translate-overlay/src/render"
)

const (
	resizeMargin = 8
	dragSlop     = 3
	minWidth     = 60
	minHeight    = 40
)

// hitEdge returns the edge or corner within resizeMargin of a window-local point.
func hitEdge(x, y, w, h int) ResizeEdge {
	left := x < resizeMargin
	right := x >= w-resizeMargin
	top := y < resizeMargin
	bottom := y >= h-resizeMargin

	switch {
	case top && left:
		return EdgeTopLeft
	case top && right:
		return EdgeTopRight
	case bottom && left:
		return EdgeBottomLeft
	case bottom && right:
		return EdgeBottomRight
	case left:
		return EdgeLeft
	case right:
		return EdgeRight
	case top:
		return EdgeTop
	case bottom:
		return EdgeBottom
	default:
		return EdgeNone
	}
}

// applyResize moves one or two edges of start by (dx, dy), keeping the
// opposite edges fixed and the size at or above the minimum.
func applyResize(start image.Rectangle, edge ResizeEdge, dx, dy int) image.Rectangle {
	r := start
	moveLeft := edge == EdgeLeft || edge == EdgeTopLeft || edge == EdgeBottomLeft
	moveRight := edge == EdgeRight || edge == EdgeTopRight || edge == EdgeBottomRight
	moveTop := edge == EdgeTop || edge == EdgeTopLeft || edge == EdgeTopRight
	moveBottom := edge == EdgeBottom || edge == EdgeBottomLeft || edge == EdgeBottomRight

	if moveLeft {
		r.Min.X = min(start.Min.X+dx, start.Max.X-minWidth)
	}
	if moveRight {
		r.Max.X = max(start.Max.X+dx, start.Min.X+minWidth)
	}
	if moveTop {
		r.Min.Y = min(start.Min.Y+dy, start.Max.Y-minHeight)
	}
	if moveBottom {
		r.Max.Y = max(start.Max.Y+dy, start.Min.Y+minHeight)
	}
	return clampSize(r)
}

// clampSize grows a degenerate rectangle to the minimum size from its origin.
func clampSize(r image.Rectangle) image.Rectangle {
	r = r.Canon()
	if r.Dx() < minWidth {
		r.Max.X = r.Min.X + minWidth
	}
	if r.Dy() < minHeight {
		r.Max.Y = r.Min.Y + minHeight
	}
	return r
}

// Cursor is the pointer shape a surface should show.
type Cursor int

const (
	CursorArrow Cursor = iota
	CursorHidden
	CursorHand
	CursorSizeWE
	CursorSizeNS
	CursorSizeNWSE
	CursorSizeNESW
	CursorMove
)

func cursorForEdge(e ResizeEdge) Cursor {
	switch e {
	case EdgeLeft, EdgeRight:
		return CursorSizeWE
	case EdgeTop, EdgeBottom:
		return CursorSizeNS
	case EdgeTopLeft, EdgeBottomRight:
		return CursorSizeNWSE
	case EdgeTopRight, EdgeBottomLeft:
		return CursorSizeNESW
	default:
		return CursorArrow
	}
}

// hoverTarget is the result of a hover hit test.
type hoverTarget struct {
	edge   ResizeEdge
	button render.Button
	inEdit bool
}

// pickCursor decides the affordance: resize arrows on edges, a hand over
// buttons, the text arrow inside the edit box and the drawn broom elsewhere.
func pickCursor(st *WindowState, h hoverTarget) Cursor {
	switch {
	case st.Interaction == ModeDragging:
		return CursorHidden
	case st.Interaction == ModeResizing:
		return cursorForEdge(st.ActiveEdge)
	case h.edge != EdgeNone && !st.IsEditing:
		return cursorForEdge(h.edge)
	case h.button != render.NoButton:
		return CursorHand
	case h.inEdit:
		return CursorArrow
	default:
		return CursorHidden
	}
}
