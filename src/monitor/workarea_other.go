//go:build !linux && !windows

package monitor

import "image"

func platformWorkArea(image.Rectangle) (image.Rectangle, bool) {
	return image.Rectangle{}, false
}
