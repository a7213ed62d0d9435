//go:build linux

package monitor

import (
	"image"
	"log"
	"sync"

	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
)

var (
	xOnce sync.Once
	xConn *xgbutil.XUtil
)

func connection() *xgbutil.XUtil {
	xOnce.Do(func() {
		xu, err := xgbutil.NewConn()
		if err != nil {
			log.Printf("Monitor: X connection unavailable: %v", err)
			return
		}
		xConn = xu
	})
	return xConn
}

// platformWorkArea reads _NET_WORKAREA for the current desktop.
func platformWorkArea(image.Rectangle) (image.Rectangle, bool) {
	xu := connection()
	if xu == nil {
		return image.Rectangle{}, false
	}
	areas, err := ewmh.WorkareaGet(xu)
	if err != nil || len(areas) == 0 {
		return image.Rectangle{}, false
	}
	idx := 0
	if desktop, err := ewmh.CurrentDesktopGet(xu); err == nil && int(desktop) < len(areas) {
		idx = int(desktop)
	}
	wa := areas[idx]
	return image.Rect(wa.X, wa.Y, wa.X+int(wa.Width), wa.Y+int(wa.Height)), true
}
