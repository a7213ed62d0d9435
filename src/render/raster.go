package render

import (
	"image"
	"image/color"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Small software rasterizer. Shapes are described by signed distance
// functions (negative inside) and converted to anti-aliased coverage.

func sdCircle(px, py, cx, cy, r float64) float64 {
	return math.Hypot(px-cx, py-cy) - r
}

// sdRoundedBox is the distance to a box of half extents (hw, hh) with corner
// radius r, centered at the origin.
func sdRoundedBox(px, py, hw, hh, r float64) float64 {
	qx := math.Abs(px) - hw + r
	qy := math.Abs(py) - hh + r
	outside := math.Hypot(math.Max(qx, 0), math.Max(qy, 0))
	inside := math.Min(math.Max(qx, qy), 0)
	return outside + inside - r
}

// sdSegment is the unsigned distance from p to the segment a-b.
func sdSegment(px, py, ax, ay, bx, by float64) float64 {
	pax, pay := px-ax, py-ay
	bax, bay := bx-ax, by-ay
	h := (pax*bax + pay*bay) / math.Max(bax*bax+bay*bay, 0.001)
	h = clamp01(h)
	return math.Hypot(pax-bax*h, pay-bay*h)
}

// fillCoverage turns a signed distance into pixel coverage.
func fillCoverage(d float64) float64 {
	return clamp01(0.5 - d)
}

// strokeCoverage is the coverage of a line of the given half width.
func strokeCoverage(d, halfWidth float64) float64 {
	return clamp01(halfWidth + 0.5 - math.Abs(d))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// blend composites a straight-alpha color at the given opacity onto a
// premultiplied RGBA pixel.
func blend(img *image.RGBA, x, y int, c color.RGBA, opacity float64) {
	if opacity <= 0 || !(image.Point{x, y}.In(img.Rect)) {
		return
	}
	a := opacity * float64(c.A) / 255
	if a <= 0 {
		return
	}
	i := img.PixOffset(x, y)
	px := img.Pix[i : i+4 : i+4]
	inv := 1 - a
	px[0] = uint8(float64(c.R)*a + float64(px[0])*inv + 0.5)
	px[1] = uint8(float64(c.G)*a + float64(px[1])*inv + 0.5)
	px[2] = uint8(float64(c.B)*a + float64(px[2])*inv + 0.5)
	px[3] = uint8(255*a + float64(px[3])*inv + 0.5)
}

// ensure returns buf when it already has the requested size, or a new buffer.
func ensure(buf *image.RGBA, w, h int) *image.RGBA {
	if buf != nil && buf.Rect.Dx() == w && buf.Rect.Dy() == h {
		return buf
	}
	return image.NewRGBA(image.Rect(0, 0, w, h))
}

func hexColor(v uint32) color.RGBA {
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xFF}
}

// scale darkens a color toward black by factor f in [0,1].
func scale(c color.RGBA, f float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(c.R) * f),
		G: uint8(float64(c.G) * f),
		B: uint8(float64(c.B) * f),
		A: c.A,
	}
}

func lerpColor(a, b color.RGBA, t float64) color.RGBA {
	t = clamp01(t)
	mix := func(x, y uint8) uint8 { return uint8(float64(x) + (float64(y)-float64(x))*t + 0.5) }
	return color.RGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: mix(a.A, b.A)}
}

// hsv converts hue (degrees), saturation and value into an opaque color.
func hsv(h, s, v float64) color.RGBA {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	r, g, b := colorful.Hsv(h, s, v).Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xFF}
}
