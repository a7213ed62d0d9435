package overlay

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"sync"

	"screen-translate-overlay/src/messages"
)

// EventKind identifies a native input event.
type EventKind int

const (
	EventPointerMove EventKind = iota
	EventPointerDown
	EventPointerUp
	EventPointerLeave
	EventRightClick
	EventKey
	EventChar
	EventClose
)

// Key is a non-character key.
type Key int

const (
	KeyNone Key = iota
	KeyEscape
	KeyEnter
	KeyBackspace
	KeyLeft
	KeyRight
)

// Event is one input event delivered by a Surface. X and Y are window-local;
// ScreenX and ScreenY are the same point in screen coordinates, which stay
// stable while the window itself moves under the pointer.
type Event struct {
	Kind     EventKind
	X, Y     int
	ScreenX  int
	ScreenY  int
	Key      Key
	Rune     rune
	Modifier bool // shift or ctrl held
}

// Surface is the platform window behind an overlay. It is the only place
// that touches native graphics: one Present per frame.
type Surface interface {
	Events() <-chan Event
	// Present shows frame at bounds (screen coordinates) with the given
	// window opacity. The frame buffer is reused by the caller after return.
	Present(frame *image.RGBA, bounds image.Rectangle, alpha uint8) error
	SetCursor(c Cursor)
	Close() error
}

// SurfaceFactory opens the native surface for a new window.
type SurfaceFactory func(id messages.WindowID, bounds image.Rectangle) (Surface, error)

// ErrSurfaceClosed is returned by Present after Close.
var ErrSurfaceClosed = errors.New("surface closed")

// HeadlessSurface records presented frames instead of showing them. Events are
// injected with Send. It backs one-shot runs without a display and the tests.
type HeadlessSurface struct {
	mu       sync.Mutex
	events   chan Event
	closed   bool
	presents int
	last     *image.RGBA
	bounds   image.Rectangle
	alpha    uint8
	alphas   []uint8
	cursor   Cursor
	dumpDir  string
	id       messages.WindowID
}

func NewHeadlessSurface(id messages.WindowID, dumpDir string) *HeadlessSurface {
	return &HeadlessSurface{
		id:      id,
		events:  make(chan Event, 64),
		dumpDir: dumpDir,
	}
}

// HeadlessFactory returns a SurfaceFactory producing headless surfaces. A
// non-empty dumpDir receives the last frame of every window as PNG on close.
func HeadlessFactory(dumpDir string) SurfaceFactory {
	return func(id messages.WindowID, bounds image.Rectangle) (Surface, error) {
		return NewHeadlessSurface(id, dumpDir), nil
	}
}

func (s *HeadlessSurface) Events() <-chan Event { return s.events }

// Send injects an input event. It drops the event when the surface is closed.
func (s *HeadlessSurface) Send(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- ev:
	default:
		log.Printf("Headless: event queue full for %s, dropping %d", s.id, ev.Kind)
	}
}

func (s *HeadlessSurface) Present(frame *image.RGBA, bounds image.Rectangle, alpha uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSurfaceClosed
	}
	if s.last == nil || s.last.Rect != frame.Rect {
		s.last = image.NewRGBA(frame.Rect)
	}
	copy(s.last.Pix, frame.Pix)
	s.bounds = bounds
	s.alpha = alpha
	s.alphas = append(s.alphas, alpha)
	s.presents++
	return nil
}

func (s *HeadlessSurface) SetCursor(c Cursor) {
	s.mu.Lock()
	s.cursor = c
	s.mu.Unlock()
}

func (s *HeadlessSurface) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.events)
	if s.dumpDir != "" && s.last != nil {
		if err := s.dump(); err != nil {
			log.Printf("Headless: failed to dump last frame of %s: %v", s.id, err)
		}
	}
	return nil
}

func (s *HeadlessSurface) dump() error {
	if err := os.MkdirAll(s.dumpDir, 0o755); err != nil {
		return fmt.Errorf("create dump dir: %w", err)
	}
	path := filepath.Join(s.dumpDir, s.id.String()+".png")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, s.last); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	log.Printf("Headless: wrote %s", path)
	return nil
}

// Presents returns the number of frames shown so far.
func (s *HeadlessSurface) Presents() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presents
}

// LastFrame returns a copy of the most recent frame and where it was shown.
func (s *HeadlessSurface) LastFrame() (*image.RGBA, image.Rectangle, uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil, s.bounds, s.alpha
	}
	cp := image.NewRGBA(s.last.Rect)
	copy(cp.Pix, s.last.Pix)
	return cp, s.bounds, s.alpha
}

// Alphas returns the window opacity of every presented frame.
func (s *HeadlessSurface) Alphas() []uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uint8(nil), s.alphas...)
}

// Cursor returns the cursor most recently requested.
func (s *HeadlessSurface) Cursor() Cursor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Closed reports whether Close was called.
func (s *HeadlessSurface) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
