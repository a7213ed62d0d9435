package render

import (
	"image"
	"math"
)

const (
	BroomSize   = 48
	broomPivotX = 24.0
	broomPivotY = 0.65 * BroomSize

	handleLength = 20.0
	handleHalfW  = 1.5
	bandRows     = 3.0
	bandHalfW    = 4.5
	bristleLen   = 16.0
	bristleTopW  = 8.0
	bristleBotW  = 16.0
)

var (
	handleDark  = hexColor(0x5D4037)
	handleLight = hexColor(0x8D6E63)
	bandColor   = hexColor(0xB71C1C)
	strawMid    = hexColor(0xFBC02D)
	strawLight  = hexColor(0xFFF176)
	strawDark   = hexColor(0xF57F17)
)

// BroomPose is the physics state the cursor icon is drawn from.
type BroomPose struct {
	Tilt   float64 // degrees
	Squish float64
	Bend   float64
}

// Broom generates the procedural cursor icon into one reused buffer.
type Broom struct {
	buf *image.RGBA
}

func NewBroom() *Broom {
	return &Broom{buf: image.NewRGBA(image.Rect(0, 0, BroomSize, BroomSize))}
}

// Origin is where the icon's top-left goes so that the pivot sits on (x, y).
func (b *Broom) Origin(x, y float64) image.Point {
	return image.Pt(int(x-broomPivotX), int(y-broomPivotY))
}

// Render draws the pose and returns the internal buffer. The buffer is
// overwritten by the next call.
func (b *Broom) Render(pose BroomPose) *image.RGBA {
	clear(b.buf.Pix)

	squish := pose.Squish
	if squish <= 0 {
		squish = 1
	}
	length := bristleLen * squish
	bottomW := bristleBotW + (1-squish)*10

	rad := -pose.Tilt * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)

	for py := 0; py < BroomSize; py++ {
		for px := 0; px < BroomSize; px++ {
			dx := float64(px) + 0.5 - broomPivotX
			dy := float64(py) + 0.5 - broomPivotY
			// Rotate the sample back into the upright broom frame.
			lx := dx*cos - dy*sin
			ly := dx*sin + dy*cos

			switch {
			case ly >= -handleLength && ly < -bandRows/2:
				if cov := clamp01(handleHalfW + 0.5 - math.Abs(lx)); cov > 0 {
					c := handleDark
					if lx < 0 {
						c = handleLight
					}
					blend(b.buf, px, py, c, cov)
				}

			case ly >= -bandRows/2 && ly < bandRows/2:
				if cov := clamp01(bandHalfW + 0.5 - math.Abs(lx)); cov > 0 {
					blend(b.buf, px, py, bandColor, cov)
				}

			case ly >= bandRows/2 && ly <= bandRows/2+length:
				prog := (ly - bandRows/2) / length
				half := (bristleTopW + (bottomW-bristleTopW)*prog) / 2
				off := pose.Bend * prog * prog * 10
				rel := lx - off
				cov := clamp01(half + 0.5 - math.Abs(rel))
				if cov <= 0 {
					continue
				}
				c := strawMid
				switch {
				case prog > 0.85:
					c = strawDark
				case int(math.Floor(rel+half))%3 == 0:
					c = strawLight
				}
				blend(b.buf, px, py, c, cov)
			}
		}
	}
	return b.buf
}
