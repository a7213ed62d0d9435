//go:build !windows

package overlay

import (
	"errors"
)

// ErrNoNativeSurface is returned on platforms without a layered window backend.
var ErrNoNativeSurface = errors.New("native overlay windows are only available on Windows")

// NativeFactory reports that no native backend exists on this platform.
func NativeFactory() (SurfaceFactory, error) {
	return nil, ErrNoNativeSurface
}
