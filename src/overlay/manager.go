package overlay

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"math/rand/v2"
	"sync"
	"time"

	"screen-translate-overlay/src/llm"
	"screen-translate-overlay/src/messages"
	"screen-translate-overlay/src/monitor"
	"screen-translate-overlay/src/physics"
	"screen-translate-overlay/src/placement"
	"screen-translate-overlay/src/render"
	"screen-translate-overlay/src/router"
	"screen-translate-overlay/src/worker"
)

// ErrWindowGone is returned when an operation needs a window that has closed.
var ErrWindowGone = errors.New("window is gone")

// Backend is the refinement collaborator.
type Backend interface {
	Refine(ctx context.Context, rc llm.Context, previous, instruction, modelID, provider string,
		streaming bool, onChunk llm.ChunkFunc) (string, error)
}

// Dispatcher runs backend jobs off the window goroutines.
type Dispatcher interface {
	Submit(ctx context.Context, job worker.Job) bool
}

// Clipboard receives copied text.
type Clipboard interface {
	Write(text string) error
}

// Config tunes the window loop.
type Config struct {
	FrameRate    int
	TextUpdateHz int
	Language     string
	CopyFeedback time.Duration
	InboxSize    int
	Tuning       physics.Tuning
	LogMessages  bool
}

func DefaultConfig() Config {
	return Config{
		FrameRate:    60,
		TextUpdateHz: 15,
		Language:     "en",
		CopyFeedback: 1500 * time.Millisecond,
		InboxSize:    64,
		Tuning:       physics.DefaultTuning(),
	}
}

// Deps are the collaborators a Manager needs. Surfaces, Backend, Pool and
// Clipboard are required.
type Deps struct {
	Surfaces      SurfaceFactory
	Backend       Backend
	Pool          Dispatcher
	Clipboard     Clipboard
	WorkArea      func(anchor image.Rectangle) image.Rectangle
	NewTypesetter func() (render.Typesetter, error)
	NewRand       func(id messages.WindowID) physics.Rand
}

// WindowRequest asks for a new result window.
type WindowRequest struct {
	// Rect is the window rectangle for RolePrimary and RoleSecondaryExplicit
	// and the anchor for RoleSecondary.
	Rect image.Rectangle
	// Size overrides the window size for RoleSecondary; zero means Rect's size.
	Size      image.Point
	Role      placement.Role
	Text      string
	Context   llm.Context
	ModelID   string
	Provider  string
	Streaming bool
}

// Manager creates windows and is the collaborator-facing API of the overlay.
type Manager struct {
	ctx  context.Context
	cfg  Config
	deps Deps

	reg    *Registry
	router *router.Router

	frameInterval time.Duration
	textInterval  time.Duration

	mu      sync.Mutex
	windows map[messages.WindowID]*Window
	wg      sync.WaitGroup
}

// NewManager builds a manager. Windows live until dismissed or until ctx is
// cancelled; backend requests run under ctx too, so closing a single window
// never cancels its request.
func NewManager(ctx context.Context, cfg Config, deps Deps) (*Manager, error) {
	switch {
	case deps.Surfaces == nil:
		return nil, errors.New("overlay: surface factory is required")
	case deps.Backend == nil:
		return nil, errors.New("overlay: backend is required")
	case deps.Pool == nil:
		return nil, errors.New("overlay: worker pool is required")
	case deps.Clipboard == nil:
		return nil, errors.New("overlay: clipboard is required")
	}

	def := DefaultConfig()
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = def.FrameRate
	}
	if cfg.TextUpdateHz <= 0 {
		cfg.TextUpdateHz = def.TextUpdateHz
	}
	if cfg.CopyFeedback <= 0 {
		cfg.CopyFeedback = def.CopyFeedback
	}
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = def.InboxSize
	}
	if cfg.Language == "" {
		cfg.Language = def.Language
	}
	if cfg.Tuning == (physics.Tuning{}) {
		cfg.Tuning = def.Tuning
	}

	if deps.WorkArea == nil {
		deps.WorkArea = monitor.WorkArea
	}
	if deps.NewTypesetter == nil {
		deps.NewTypesetter = func() (render.Typesetter, error) {
			ts, err := render.NewGGTypesetter()
			if err != nil {
				return nil, err
			}
			return ts, nil
		}
	}
	if deps.NewRand == nil {
		deps.NewRand = func(id messages.WindowID) physics.Rand {
			return rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), uint64(id)))
		}
	}

	rt := router.NewRouter()
	rt.SetMessageLogging(cfg.LogMessages)

	return &Manager{
		ctx:           ctx,
		cfg:           cfg,
		deps:          deps,
		reg:           NewRegistry(),
		router:        rt,
		frameInterval: time.Second / time.Duration(cfg.FrameRate),
		textInterval:  time.Second / time.Duration(cfg.TextUpdateHz),
		windows:       make(map[messages.WindowID]*Window),
	}, nil
}

// CreateResultWindow places, registers and starts a new window.
func (m *Manager) CreateResultWindow(req WindowRequest) (messages.WindowID, error) {
	w, err := m.open(req)
	if err != nil {
		return messages.NoWindow, err
	}
	go w.Run(m.ctx)
	return w.id, nil
}

// open creates the window without starting its loop.
func (m *Manager) open(req WindowRequest) (*Window, error) {
	if req.Rect.Empty() {
		return nil, fmt.Errorf("create window: empty rectangle %v", req.Rect)
	}
	if err := m.ctx.Err(); err != nil {
		return nil, fmt.Errorf("create window: %w", err)
	}

	bounds := placement.Place(placement.Request{
		Anchor:   req.Rect,
		Role:     req.Role,
		Size:     req.Size,
		WorkArea: m.deps.WorkArea(req.Rect),
	})

	id := m.reg.NextID()
	inbox, err := m.router.Register(id, m.cfg.InboxSize)
	if err != nil {
		return nil, fmt.Errorf("create window %s: %w", id, err)
	}
	surface, err := m.deps.Surfaces(id, bounds)
	if err != nil {
		m.router.Unregister(id)
		return nil, fmt.Errorf("create window %s: open surface: %w", id, err)
	}
	ts, err := m.deps.NewTypesetter()
	if err != nil {
		m.router.Unregister(id)
		surface.Close()
		return nil, fmt.Errorf("create window %s: typesetter: %w", id, err)
	}

	st := NewWindowState(req.Role, bounds, req)
	if req.Text != "" {
		st.setText(req.Text)
	}
	m.reg.Insert(id, st)

	w := &Window{
		id:       id,
		m:        m,
		inbox:    inbox,
		surface:  surface,
		pipeline: render.NewPipeline(ts),
		rng:      m.deps.NewRand(id),
	}
	m.mu.Lock()
	m.windows[id] = w
	m.wg.Add(1)
	m.mu.Unlock()

	log.Printf("Overlay: created %s window %s at %v", req.Role, id, bounds)
	return w, nil
}

func (m *Manager) windowClosed(id messages.WindowID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.windows[id]; ok {
		delete(m.windows, id)
		m.wg.Done()
	}
}

// UpdateWindowText replaces the window's text. A closed window is a no-op.
func (m *Manager) UpdateWindowText(id messages.WindowID, text string) error {
	err := m.router.Send(id, messages.TextChunk{Window: id, Text: text})
	if errors.Is(err, router.ErrUnknownWindow) {
		return nil
	}
	return err
}

// LinkWindows pairs two windows so that dismissing either fades both.
func (m *Manager) LinkWindows(a, b messages.WindowID) error {
	if !m.reg.Link(a, b) {
		return fmt.Errorf("link %s and %s: %w", a, b, ErrWindowGone)
	}
	log.Printf("Overlay: linked %s and %s", a, b)
	return nil
}

// Dismiss starts the fade-out of one window. A closed window is a no-op.
func (m *Manager) Dismiss(id messages.WindowID) error {
	err := m.router.Send(id, messages.Dismiss{Window: id})
	if errors.Is(err, router.ErrUnknownWindow) {
		return nil
	}
	return err
}

// DismissAll fades out every live window and returns how many were asked.
func (m *Manager) DismissAll() int {
	n := m.router.Broadcast(func(id messages.WindowID) messages.Message {
		return messages.Dismiss{Window: id}
	})
	log.Printf("Overlay: dismissing %d windows", n)
	return n
}

// State returns a snapshot of a window's state.
func (m *Manager) State(id messages.WindowID) (WindowState, bool) {
	return m.reg.Get(id)
}

// Count returns the number of live windows.
func (m *Manager) Count() int {
	return m.reg.Len()
}

// Wait blocks until every window created so far has been destroyed.
func (m *Manager) Wait() {
	m.wg.Wait()
}
