//go:build windows

package monitor

import (
	"image"
	"unsafe"

	"github.com/lxn/win"
)

// platformWorkArea asks for the work area of the monitor nearest to anchor.
func platformWorkArea(anchor image.Rectangle) (image.Rectangle, bool) {
	rc := win.RECT{
		Left:   int32(anchor.Min.X),
		Top:    int32(anchor.Min.Y),
		Right:  int32(anchor.Max.X),
		Bottom: int32(anchor.Max.Y),
	}
	hMon := win.MonitorFromRect(&rc, win.MONITOR_DEFAULTTONEAREST)
	if hMon == 0 {
		return image.Rectangle{}, false
	}
	var mi win.MONITORINFO
	mi.CbSize = uint32(unsafe.Sizeof(mi))
	if !win.GetMonitorInfo(hMon, &mi) {
		return image.Rectangle{}, false
	}
	w := mi.RcWork
	return image.Rect(int(w.Left), int(w.Top), int(w.Right), int(w.Bottom)), true
}
