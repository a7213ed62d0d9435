package overlay

import (
	"image"
	"image/color"
	"time"

	"screen-translate-overlay/src/llm"
	"screen-translate-overlay/src/messages"
	"screen-translate-overlay/src/physics"
	"screen-translate-overlay/src/placement"
)

const initialAlpha = 220

var (
	primaryColor   = color.RGBA{R: 0x22, G: 0x22, B: 0x22, A: 0xFF}
	secondaryColor = color.RGBA{R: 0x2d, G: 0x4a, B: 0x22, A: 0xFF}
)

// InteractionMode is the pointer gesture in progress.
type InteractionMode int

const (
	ModeNone InteractionMode = iota
	ModeDragging
	ModeResizing
)

func (m InteractionMode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeDragging:
		return "dragging"
	case ModeResizing:
		return "resizing"
	default:
		return "unknown"
	}
}

// ResizeEdge is one of the four edges or four corners of a window.
type ResizeEdge int

const (
	EdgeNone ResizeEdge = iota
	EdgeLeft
	EdgeRight
	EdgeTop
	EdgeBottom
	EdgeTopLeft
	EdgeTopRight
	EdgeBottomLeft
	EdgeBottomRight
)

func (e ResizeEdge) String() string {
	switch e {
	case EdgeNone:
		return "none"
	case EdgeLeft:
		return "left"
	case EdgeRight:
		return "right"
	case EdgeTop:
		return "top"
	case EdgeBottom:
		return "bottom"
	case EdgeTopLeft:
		return "top-left"
	case EdgeTopRight:
		return "top-right"
	case EdgeBottomLeft:
		return "bottom-left"
	case EdgeBottomRight:
		return "bottom-right"
	default:
		return "unknown"
	}
}

// WindowState is the registry-owned state of one live overlay window.
type WindowState struct {
	Role   placement.Role
	Bounds image.Rectangle // screen coordinates
	Alpha  uint8

	IsHovered bool
	OnCopyBtn bool
	OnEditBtn bool
	OnUndoBtn bool

	CopySuccess      bool
	CopySuccessUntil time.Time

	IsEditing bool

	// FullText is the authoritative text. DisplayText is what the text layer
	// renders; it trails FullText by at most one throttle interval.
	FullText       string
	DisplayText    string
	PendingText    string
	HasPending     bool
	LastTextUpdate time.Time
	TextDirty      bool

	TextHistory []string
	IsRefining  bool
	// RefineGen numbers refinement submissions. Submitting and undoing both
	// advance it, so output of an earlier submission is discarded.
	RefineGen uint64

	BgColor color.RGBA
	Linked  messages.WindowID

	Physics physics.CursorPhysics

	Interaction       InteractionMode
	ActiveEdge        ResizeEdge // edge being dragged while ModeResizing
	CurrentResizeEdge ResizeEdge // edge under the pointer while hovering

	// CloseRequested is set by a linked partner that has already gone.
	CloseRequested bool
	// FadeFollower marks a window whose fade is driven by its linked partner.
	FadeFollower bool

	// Backend identity used for refinement.
	Context   llm.Context
	ModelID   string
	Provider  string
	Streaming bool
}

// NewWindowState builds the initial state for a freshly placed window.
func NewWindowState(role placement.Role, bounds image.Rectangle, req WindowRequest) WindowState {
	bg := primaryColor
	if role != placement.RolePrimary {
		bg = secondaryColor
	}
	return WindowState{
		Role:      role,
		Bounds:    bounds,
		Alpha:     initialAlpha,
		BgColor:   bg,
		Physics:   physics.New(),
		TextDirty: true,
		Context:   req.Context,
		ModelID:   req.ModelID,
		Provider:  req.Provider,
		Streaming: req.Streaming,
	}
}

// Clone returns a copy that shares no mutable slices with s.
func (s WindowState) Clone() WindowState {
	if s.TextHistory != nil {
		s.TextHistory = append([]string(nil), s.TextHistory...)
	}
	s.Physics = s.Physics.Clone()
	return s
}

// setText records a new authoritative text and queues it for display.
func (s *WindowState) setText(text string) {
	s.FullText = text
	s.PendingText = text
	s.HasPending = true
}

// flushPending moves pending text to the display when the throttle interval
// has elapsed. It reports whether the display changed.
func (s *WindowState) flushPending(now time.Time, interval time.Duration) bool {
	if !s.HasPending {
		return false
	}
	if !s.LastTextUpdate.IsZero() && now.Sub(s.LastTextUpdate) < interval {
		return false
	}
	s.HasPending = false
	s.LastTextUpdate = now
	if s.DisplayText == s.PendingText {
		return false
	}
	s.DisplayText = s.PendingText
	s.TextDirty = true
	return true
}

// pushHistory snapshots the current text before a refinement and clears the display.
func (s *WindowState) pushHistory() string {
	prev := s.FullText
	s.TextHistory = append(s.TextHistory, prev)
	s.FullText = ""
	s.DisplayText = ""
	s.PendingText = ""
	s.HasPending = false
	s.IsRefining = true
	s.TextDirty = true
	s.RefineGen++
	return prev
}

// undo restores the last snapshot. It is a no-op on an empty history.
func (s *WindowState) undo() bool {
	n := len(s.TextHistory)
	if n == 0 {
		return false
	}
	prev := s.TextHistory[n-1]
	s.TextHistory = s.TextHistory[:n-1]
	s.FullText = prev
	s.DisplayText = prev
	s.PendingText = ""
	s.HasPending = false
	s.IsRefining = false
	s.TextDirty = true
	s.RefineGen++
	return true
}
