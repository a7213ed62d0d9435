package eventloop

import (
	"context"
	"errors"
	"image"
	"log"
	"sync/atomic"

	"screen-translate-overlay/src/hotkey"
	"screen-translate-overlay/src/llm"
	"screen-translate-overlay/src/session"
	"screen-translate-overlay/src/worker"
)

// Windows is the overlay manager as seen by the resident loop.
type Windows interface {
	session.Windows
	DismissAll() int
}

type Dispatcher interface {
	Submit(ctx context.Context, job worker.Job) bool
}

type Deps struct {
	Backend   session.Backend
	Windows   Windows
	Clipboard session.Clipboard
	Pool      Dispatcher
	// Capture returns PNG bytes for a screen rectangle.
	Capture func(r image.Rectangle) ([]byte, error)
	// DefaultRect is used when no capture rectangle is configured.
	DefaultRect func() (image.Rectangle, error)
	// Status receives tooltip text while sessions run.
	Status func(string)
}

type Options struct {
	Hotkey      string
	CaptureRect image.Rectangle
	Session     session.Options
	Tooltip     string
}

// Loop is the single-threaded coordinator for hotkey and tray triggered captures.
type Loop struct {
	opts      Options
	deps      Deps
	triggerCh chan struct{}
	running   atomic.Int32
}

func New(opts Options, deps Deps) *Loop {
	if opts.Tooltip == "" {
		opts.Tooltip = "Screen Translate Overlay"
	}
	return &Loop{
		opts:      opts,
		deps:      deps,
		triggerCh: make(chan struct{}, 4),
	}
}

// Trigger requests a capture. Extra requests beyond the buffer are dropped.
func (l *Loop) Trigger() {
	select {
	case l.triggerCh <- struct{}{}:
	default:
		log.Printf("Eventloop: trigger dropped, loop is saturated")
	}
}

// DismissAll fades out every result window.
func (l *Loop) DismissAll() int {
	if l.deps.Windows == nil {
		return 0
	}
	return l.deps.Windows.DismissAll()
}

// StartHotkey registers the global hotkey and routes presses into the loop.
func (l *Loop) StartHotkey(ctx context.Context) error {
	if l.opts.Hotkey == "" {
		return nil
	}
	return hotkey.Listen(ctx, l.opts.Hotkey, l.Trigger)
}

// Run processes triggers until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.triggerCh:
			if err := l.handleTrigger(ctx); err != nil {
				log.Printf("Eventloop: %v", err)
			}
		}
	}
}

var ErrBusy = errors.New("backend busy, capture dropped")

func (l *Loop) handleTrigger(ctx context.Context) error {
	rect := l.opts.CaptureRect
	if rect.Empty() {
		if l.deps.DefaultRect == nil {
			return errors.New("no capture rectangle configured")
		}
		r, err := l.deps.DefaultRect()
		if err != nil {
			return err
		}
		rect = r
	}

	png, err := l.deps.Capture(rect)
	if err != nil {
		return err
	}
	log.Printf("Eventloop: captured %v (%d bytes)", rect, len(png))

	capture := session.Capture{Rect: rect, Context: llm.Image(png)}
	sdeps := session.Deps{Backend: l.deps.Backend, Windows: l.deps.Windows, Clipboard: l.deps.Clipboard}

	l.setBusy(1)
	ok := l.deps.Pool.Submit(ctx, func(jobCtx context.Context) {
		defer l.setBusy(-1)
		if _, err := session.Execute(jobCtx, capture, l.opts.Session, sdeps); err != nil {
			log.Printf("Eventloop: session failed: %v", err)
		}
	})
	if !ok {
		l.setBusy(-1)
		return ErrBusy
	}
	return nil
}

func (l *Loop) setBusy(delta int32) {
	n := l.running.Add(delta)
	if l.deps.Status == nil {
		return
	}
	if n > 0 {
		l.deps.Status(l.opts.Tooltip + ": processing...")
	} else {
		l.deps.Status(l.opts.Tooltip)
	}
}
