// Package monitor reports the usable desktop area around a screen rectangle.
package monitor

import (
	"image"
	"log"

	"screen-translate-overlay/src/screenshot"
)

// fallbackDisplay is used when no display can be enumerated (headless runs).
var fallbackDisplay = image.Rect(0, 0, 1920, 1080)

// WorkArea returns the work area of the display that contains most of anchor,
// excluding panels and docks where the platform reports them.
func WorkArea(anchor image.Rectangle) image.Rectangle {
	display, err := screenshot.DisplayFor(anchor)
	if err != nil {
		log.Printf("Monitor: %v, using %v", err, fallbackDisplay)
		display = fallbackDisplay
	}
	work, ok := platformWorkArea(anchor)
	if !ok {
		return display
	}
	return clip(display, work)
}

// clip narrows display to work when they overlap.
func clip(display, work image.Rectangle) image.Rectangle {
	in := display.Intersect(work)
	if in.Empty() {
		return display
	}
	return in
}
