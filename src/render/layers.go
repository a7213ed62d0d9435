package render

import (
	"image"
	"image/color"
	"math"

	"screen-translate-overlay/src/physics"
)

const (
	cornerRadius   = 8.0
	gradientFloor  = 0.6
	glowBand       = 20.0
	glowWidth      = 14.0
	glowSaturation = 0.85
)

// renderBackground fills a rounded rectangle with a vertical gradient from
// base at the top to 60% of its luminance at the bottom.
func renderBackground(layer *image.RGBA, base color.RGBA) {
	clear(layer.Pix)
	w, h := layer.Rect.Dx(), layer.Rect.Dy()
	hw, hh := float64(w)/2, float64(h)/2
	radius := math.Min(cornerRadius, math.Min(hw, hh))

	for y := 0; y < h; y++ {
		t := 0.0
		if h > 1 {
			t = float64(y) / float64(h-1)
		}
		row := scale(base, 1-(1-gradientFloor)*t)
		row.A = 0xFF
		py := float64(y) + 0.5 - hh
		for x := 0; x < w; x++ {
			d := sdRoundedBox(float64(x)+0.5-hw, py, hw, hh, radius)
			if cov := fillCoverage(d); cov > 0 {
				blend(layer, x, y, row, cov)
			}
		}
	}
}

// drawGlow traces a rotating, hue-cycling glow along the inside of the
// window border. anim advances by one per 60 Hz frame.
func drawGlow(dst *image.RGBA, anim float64) {
	w, h := dst.Rect.Dx(), dst.Rect.Dy()
	hw, hh := float64(w)/2, float64(h)/2
	radius := math.Min(cornerRadius, math.Min(hw, hh))

	for y := 0; y < h; y++ {
		py := float64(y) + 0.5 - hh
		for x := 0; x < w; x++ {
			// Skip the interior quickly.
			if x > int(glowBand) && x < w-int(glowBand) && y > int(glowBand) && y < h-int(glowBand) {
				continue
			}
			px := float64(x) + 0.5 - hw
			d := sdRoundedBox(px, py, hw, hh, radius)
			if d > 0 || -d > glowBand {
				continue
			}
			t := clamp01(-d / glowWidth)
			angle := math.Atan2(py, px)
			noise := math.Sin(angle*12-anim*0.2) * 0.5
			intensity := math.Pow(1-t, 3) * (0.8 + 0.4*noise)
			hue := angle*180/math.Pi + anim*2
			blend(dst, x, y, hsv(hue, glowSaturation, 1), clamp01(intensity))
		}
	}
}

// drawParticles renders each particle as a disc whose radius and opacity
// shrink with its remaining life.
func drawParticles(dst *image.RGBA, particles []physics.Particle) {
	for _, p := range particles {
		r := p.Size * p.Life
		if r <= 0 {
			continue
		}
		minX, maxX := int(math.Floor(p.X-r-1)), int(math.Ceil(p.X+r+1))
		minY, maxY := int(math.Floor(p.Y-r-1)), int(math.Ceil(p.Y+r+1))
		for y := minY; y <= maxY; y++ {
			for x := minX; x <= maxX; x++ {
				d := sdCircle(float64(x)+0.5, float64(y)+0.5, p.X, p.Y, r)
				if cov := fillCoverage(d); cov > 0 {
					blend(dst, x, y, p.Color, cov*clamp01(p.Life))
				}
			}
		}
	}
}
