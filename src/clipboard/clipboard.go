package clipboard

import (
	"errors"
	"sync"

	"golang.design/x/clipboard"
)

var (
	writeMu  sync.Mutex
	initOnce sync.Once
	initErr  error
)

// ErrUnavailable is returned when the platform clipboard could not be initialised.
var ErrUnavailable = errors.New("clipboard unavailable")

func Init() error {
	initOnce.Do(func() {
		initErr = clipboard.Init()
	})
	return initErr
}

// Write performs a mutex-guarded clipboard write to prevent corruption under parallel writes.
func Write(text string) error {
	if err := Init(); err != nil {
		return errors.Join(ErrUnavailable, err)
	}
	writeMu.Lock()
	defer writeMu.Unlock()
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}

// Writer adapts the package functions to the window manager's clipboard dependency.
type Writer struct{}

func (Writer) Write(text string) error { return Write(text) }
