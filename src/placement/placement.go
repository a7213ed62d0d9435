package placement

import "image"

// Padding is the gap between an anchor and an auto-placed companion window.
const Padding = 10

// Role selects how a window is positioned relative to its anchor.
type Role int

const (
	// RolePrimary sits exactly on the anchor rectangle.
	RolePrimary Role = iota
	// RoleSecondary is auto-placed beside the anchor.
	RoleSecondary
	// RoleSecondaryExplicit uses the caller's rectangle as-is.
	RoleSecondaryExplicit
)

func (r Role) String() string {
	switch r {
	case RolePrimary:
		return "primary"
	case RoleSecondary:
		return "secondary"
	case RoleSecondaryExplicit:
		return "secondary-explicit"
	default:
		return "unknown"
	}
}

// Direction is a candidate side for secondary placement.
type Direction int

const (
	Right Direction = iota
	Below
	Left
	Above
)

func (d Direction) String() string {
	switch d {
	case Right:
		return "right"
	case Below:
		return "below"
	case Left:
		return "left"
	case Above:
		return "above"
	default:
		return "unknown"
	}
}

// Request describes one placement.
type Request struct {
	Anchor   image.Rectangle
	Role     Role
	Size     image.Point
	WorkArea image.Rectangle
}

// Place returns the screen rectangle for the window.
func Place(req Request) image.Rectangle {
	size := req.Size
	if size.X <= 0 || size.Y <= 0 {
		size = req.Anchor.Size()
	}

	switch req.Role {
	case RoleSecondary:
		r, _ := placeSecondary(req.Anchor, size, req.WorkArea)
		return r
	default:
		return image.Rectangle{Min: req.Anchor.Min, Max: req.Anchor.Min.Add(size)}
	}
}

// PlaceSecondary is Place for RoleSecondary that also reports the side chosen.
func PlaceSecondary(anchor image.Rectangle, size image.Point, work image.Rectangle) (image.Rectangle, Direction) {
	return placeSecondary(anchor, size, work)
}

func placeSecondary(anchor image.Rectangle, size image.Point, work image.Rectangle) (image.Rectangle, Direction) {
	w, h := size.X, size.Y

	space := [4]int{
		Right: work.Max.X - (anchor.Max.X + Padding),
		Below: work.Max.Y - (anchor.Max.Y + Padding),
		Left:  (anchor.Min.X - Padding) - work.Min.X,
		Above: (anchor.Min.Y - Padding) - work.Min.Y,
	}
	origin := [4]image.Point{
		Right: {anchor.Max.X + Padding, anchor.Min.Y},
		Below: {anchor.Min.X, anchor.Max.Y + Padding},
		Left:  {anchor.Min.X - w - Padding, anchor.Min.Y},
		Above: {anchor.Min.X, anchor.Min.Y - h - Padding},
	}
	need := [4]int{Right: w, Below: h, Left: w, Above: h}

	chosen := Direction(-1)
	for _, d := range []Direction{Right, Below, Left, Above} {
		if space[d] >= need[d] {
			chosen = d
			break
		}
	}
	if chosen < 0 {
		chosen = Right
		for _, d := range []Direction{Below, Left, Above} {
			if space[d] > space[chosen] {
				chosen = d
			}
		}
	}

	return clamp(origin[chosen], size, work), chosen
}

// clamp keeps the rectangle inside work, shrinking it when it is larger than
// the work area itself.
func clamp(origin, size image.Point, work image.Rectangle) image.Rectangle {
	safeW := min(size.X, work.Dx())
	safeH := min(size.Y, work.Dy())

	x := max(work.Min.X, min(origin.X, work.Max.X-safeW))
	y := max(work.Min.Y, min(origin.Y, work.Max.Y-safeH))

	return image.Rect(x, y, x+safeW, y+safeH)
}
