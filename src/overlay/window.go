package overlay

import (
	"context"
	"errors"
	"image"
	"log"
	"strings"
	"time"

	"screen-translate-overlay/src/llm"
	"screen-translate-overlay/src/messages"
	"screen-translate-overlay/src/physics"
	"screen-translate-overlay/src/render"
	"screen-translate-overlay/src/router"
	"screen-translate-overlay/src/worker"
)

// ErrBackendBusy is shown in the window when the refinement queue is full.
var ErrBackendBusy = errors.New("refinement queue is full, try again")

// press is the pointer gesture bookkeeping for one button-down.
type press struct {
	active bool
	moved  bool
	start  image.Point // screen
	last   image.Point // screen
	bounds image.Rectangle
}

// Window drives one overlay. All of its methods run on the window's own
// goroutine; other goroutines reach it only through the router inbox or the
// registry.
type Window struct {
	id       messages.WindowID
	m        *Manager
	inbox    <-chan messages.Message
	surface  Surface
	pipeline *render.Pipeline
	rng      physics.Rand

	edit      editBuffer
	press     press
	cursor    Cursor
	anim      float64
	dirty     bool
	lastAlpha uint8
	closed    bool
}

// ID returns the window identity.
func (w *Window) ID() messages.WindowID { return w.id }

// Run is the window event loop: input events and the fixed-rate frame tick.
// It returns once the window has been destroyed.
func (w *Window) Run(ctx context.Context) {
	ticker := time.NewTicker(w.m.frameInterval)
	defer ticker.Stop()
	events := w.surface.Events()

	for {
		select {
		case <-ctx.Done():
			log.Printf("Overlay: %s shutting down: %v", w.id, ctx.Err())
			w.destroy()
			return
		case ev, ok := <-events:
			if !ok {
				w.destroy()
				return
			}
			w.HandleEvent(ev, time.Now())
		case now := <-ticker.C:
			if !w.Tick(now) {
				return
			}
		}
	}
}

// Tick advances one frame: drains the inbox, applies throttled text, steps
// the physics and the fade, propagates the fade to a linked window, and
// repaints when anything visible changed. It returns false once the window
// is gone.
func (w *Window) Tick(now time.Time) bool {
	if w.closed {
		return false
	}
	w.anim++
	msgs := router.Drain(w.inbox)
	t := w.m.cfg.Tuning

	var (
		scene   render.Scene
		bounds  image.Rectangle
		alpha   uint8
		partner messages.WindowID
		fading  bool
		destroy bool
		redraw  bool
	)
	ok := w.m.reg.Mutate(w.id, func(st *WindowState) {
		for _, msg := range msgs {
			w.apply(st, msg)
		}
		if st.CopySuccess && !now.Before(st.CopySuccessUntil) {
			st.CopySuccess = false
			st.Physics.SpawnCopyBurst(t, w.rng)
			w.dirty = true
		}
		st.flushPending(now, w.m.textInterval)

		animating := st.Physics.Animating()
		if st.Physics.Step(t, w.rng) {
			log.Printf("Overlay: %s smash impact, %d particles", w.id, len(st.Physics.Particles))
		}

		switch {
		case st.CloseRequested:
			st.Alpha = 0
			destroy = true
		case st.Physics.Mode == physics.DragOut && st.FadeFollower && st.Linked != messages.NoWindow:
			// The partner sets Alpha and requests the close.
		case st.Physics.Mode == physics.DragOut:
			st.Alpha, destroy = physics.Fade(st.Alpha, t)
			partner, fading = st.Linked, true
		}

		redraw = w.dirty || animating || destroy || st.TextDirty || st.IsRefining ||
			st.Alpha != w.lastAlpha || len(msgs) > 0
		if redraw {
			scene = w.scene(st)
			st.TextDirty = false
		}
		bounds, alpha = st.Bounds, st.Alpha
	})
	if !ok {
		w.destroy()
		return false
	}

	// Second, separate critical section: the partner follows our fade unless
	// it was dismissed on its own and is already fading.
	if fading && partner != messages.NoWindow {
		w.m.reg.Mutate(partner, func(p *WindowState) {
			if p.Physics.Mode == physics.DragOut && !p.FadeFollower {
				return
			}
			p.Physics.BeginDragOut()
			p.FadeFollower = true
			p.Alpha = min(p.Alpha, alpha)
		})
	}

	if redraw {
		w.present(scene, bounds, alpha)
	}
	if destroy {
		w.destroy()
		return false
	}
	return true
}

func (w *Window) apply(st *WindowState, msg messages.Message) {
	switch m := msg.(type) {
	case messages.TextChunk:
		if m.Refinement != 0 && m.Refinement != st.RefineGen {
			return
		}
		st.IsRefining = false
		st.setText(m.Text)
	case messages.RefineDone:
		if m.Refinement != st.RefineGen {
			log.Printf("Overlay: %s dropping result of superseded refinement %d", w.id, m.Refinement)
			return
		}
		st.IsRefining = false
		if m.Err != nil {
			log.Printf("Overlay: refinement failed for %s: %v", w.id, m.Err)
			st.setText(llm.ErrorMessage(m.Err, w.m.cfg.Language))
			return
		}
		if m.Text != "" {
			st.setText(m.Text)
		}
	case messages.Dismiss:
		if st.Physics.BeginDragOut() {
			log.Printf("Overlay: %s dismissed", w.id)
		}
	default:
		log.Printf("Overlay: %s ignoring message %s", w.id, msg.Type())
	}
}

// scene snapshots everything the renderer needs so that drawing happens
// outside the registry lock.
func (w *Window) scene(st *WindowState) render.Scene {
	width, height := st.Bounds.Dx(), st.Bounds.Dy()
	idle := st.Physics.Mode == physics.Idle
	overButton := st.OnCopyBtn || st.OnEditBtn || st.OnUndoBtn
	pointer := image.Pt(int(st.Physics.X), int(st.Physics.Y))
	inEdit := st.IsEditing && pointer.In(render.EditBoxRect(width, height))
	hoverBroom := st.IsHovered && !overButton && !inEdit &&
		st.CurrentResizeEdge == EdgeNone && st.Interaction != ModeResizing

	s := render.Scene{
		Width:      width,
		Height:     height,
		Background: st.BgColor,
		Text:       st.DisplayText,
		TextDirty:  st.TextDirty,
		Refining:   st.IsRefining,
		Anim:       w.anim,
		Buttons: render.ButtonState{
			Visible:     st.IsHovered && idle,
			ShowUndo:    len(st.TextHistory) > 0,
			OnCopy:      st.OnCopyBtn,
			OnEdit:      st.OnEditBtn,
			OnUndo:      st.OnUndoBtn,
			CopySuccess: st.CopySuccess,
		},
		Particles: append([]physics.Particle(nil), st.Physics.Particles...),
		Cursor: render.CursorState{
			Visible: hoverBroom || st.Physics.Mode == physics.Smashing,
			X:       st.Physics.X,
			Y:       st.Physics.Y,
			Pose: render.BroomPose{
				Tilt:   st.Physics.Tilt,
				Squish: st.Physics.Squish,
				Bend:   st.Physics.BristleBend,
			},
		},
	}
	if st.IsEditing {
		s.Edit = &render.EditState{
			Text:        w.edit.String(),
			Caret:       w.edit.caret,
			Placeholder: editPlaceholder,
		}
	}
	return s
}

func (w *Window) present(s render.Scene, bounds image.Rectangle, alpha uint8) {
	frame := w.pipeline.Render(s)
	if err := w.surface.Present(frame, bounds, alpha); err != nil && !errors.Is(err, ErrSurfaceClosed) {
		log.Printf("Overlay: present failed for %s: %v", w.id, err)
	}
	w.lastAlpha = alpha
	w.dirty = false
}

// destroy removes the window from the registry and releases its resources.
// A linked partner is asked to close on its next tick.
func (w *Window) destroy() {
	if w.closed {
		return
	}
	w.closed = true

	st, ok := w.m.reg.Remove(w.id)
	if ok && st.Linked != messages.NoWindow {
		w.m.reg.Mutate(st.Linked, func(p *WindowState) {
			p.CloseRequested = true
		})
	}
	w.m.router.Unregister(w.id)
	w.pipeline.Release()
	if err := w.surface.Close(); err != nil {
		log.Printf("Overlay: closing surface of %s: %v", w.id, err)
	}
	log.Printf("Overlay: %s destroyed", w.id)
	w.m.windowClosed(w.id)
}

// HandleEvent runs the interaction state machine for one input event.
func (w *Window) HandleEvent(ev Event, now time.Time) {
	if w.closed {
		return
	}
	switch ev.Kind {
	case EventPointerDown:
		w.pointerDown(ev)
	case EventPointerMove:
		w.pointerMove(ev)
	case EventPointerUp:
		w.pointerUp(ev, now)
	case EventPointerLeave:
		w.m.reg.Mutate(w.id, func(st *WindowState) {
			st.IsHovered = false
			st.OnCopyBtn, st.OnEditBtn, st.OnUndoBtn = false, false, false
			st.CurrentResizeEdge = EdgeNone
		})
		w.dirty = true
	case EventRightClick:
		w.rightClick(now)
	case EventKey, EventChar:
		w.key(ev, now)
	case EventClose:
		w.m.reg.Mutate(w.id, func(st *WindowState) {
			st.CloseRequested = true
		})
	}
}

// hover hit-tests a window-local point. Edges are not offered while the
// edit box is open.
func (w *Window) hover(st *WindowState, x, y int) hoverTarget {
	width, height := st.Bounds.Dx(), st.Bounds.Dy()
	var h hoverTarget
	if !st.IsEditing {
		h.edge = hitEdge(x, y, width, height)
	}
	if h.edge == EdgeNone && st.Physics.Mode == physics.Idle {
		h.button = render.LayoutButtons(width, height, len(st.TextHistory) > 0).Hit(x, y)
	}
	h.inEdit = st.IsEditing && image.Pt(x, y).In(render.EditBoxRect(width, height))
	return h
}

func (w *Window) pointerDown(ev Event) {
	var cursor Cursor
	ok := w.m.reg.Mutate(w.id, func(st *WindowState) {
		if st.Physics.Mode != physics.Idle {
			return
		}
		edge := EdgeNone
		if !st.IsEditing {
			edge = hitEdge(ev.X, ev.Y, st.Bounds.Dx(), st.Bounds.Dy())
		}
		if edge != EdgeNone {
			st.Interaction = ModeResizing
			st.ActiveEdge = edge
		} else {
			st.Interaction = ModeDragging
			st.ActiveEdge = EdgeNone
		}
		st.Physics.X, st.Physics.Y = float64(ev.X), float64(ev.Y)

		screen := image.Pt(ev.ScreenX, ev.ScreenY)
		w.press = press{active: true, start: screen, last: screen, bounds: st.Bounds}
		cursor = pickCursor(st, hoverTarget{})
	})
	if ok && w.press.active {
		w.setCursor(cursor)
	}
}

func (w *Window) pointerMove(ev Event) {
	var cursor Cursor
	ok := w.m.reg.Mutate(w.id, func(st *WindowState) {
		screen := image.Pt(ev.ScreenX, ev.ScreenY)
		if w.press.active {
			d := screen.Sub(w.press.start)
			if abs(d.X) > dragSlop || abs(d.Y) > dragSlop {
				w.press.moved = true
			}
			if w.press.moved {
				switch st.Interaction {
				case ModeDragging:
					st.Bounds = w.press.bounds.Add(d)
				case ModeResizing:
					st.Bounds = applyResize(w.press.bounds, st.ActiveEdge, d.X, d.Y)
				}
			}
			st.Physics.Impulse(float64(screen.X-w.press.last.X), w.m.cfg.Tuning)
			w.press.last = screen
			cursor = pickCursor(st, hoverTarget{})
			return
		}

		h := w.hover(st, ev.X, ev.Y)
		st.IsHovered = true
		st.OnCopyBtn = h.button == render.CopyButton
		st.OnEditBtn = h.button == render.EditButton
		st.OnUndoBtn = h.button == render.UndoButton
		st.CurrentResizeEdge = h.edge
		st.Physics.MoveTo(float64(ev.X), float64(ev.Y), w.m.cfg.Tuning)
		cursor = pickCursor(st, h)
	})
	if ok {
		w.dirty = true
		w.setCursor(cursor)
	}
}

func (w *Window) pointerUp(ev Event, now time.Time) {
	var (
		copyText string
		doCopy   bool
	)
	gesture := w.press
	w.press = press{}
	w.m.reg.Mutate(w.id, func(st *WindowState) {
		st.Interaction = ModeNone
		st.ActiveEdge = EdgeNone
		if !gesture.active || gesture.moved {
			return
		}

		h := w.hover(st, ev.X, ev.Y)
		if h.inEdit {
			return
		}
		switch h.button {
		case render.CopyButton:
			doCopy, copyText = true, st.FullText
		case render.EditButton:
			w.toggleEdit(st)
		case render.UndoButton:
			if st.undo() {
				log.Printf("Overlay: %s undo, %d snapshots left", w.id, len(st.TextHistory))
			}
		default:
			if st.IsEditing {
				w.closeEdit(st)
				return
			}
			if st.Physics.BeginSmash() {
				log.Printf("Overlay: %s smash started", w.id)
			}
		}
	})
	w.dirty = true
	if doCopy {
		w.copy(copyText, now)
	}
}

func (w *Window) rightClick(now time.Time) {
	var text string
	ok := w.m.reg.Mutate(w.id, func(st *WindowState) {
		text = st.FullText
		st.Physics.BeginDragOut()
	})
	if ok {
		w.copy(text, now)
	}
}

func (w *Window) key(ev Event, now time.Time) {
	var (
		submit   bool
		doCopy   bool
		copyText string
	)
	w.m.reg.Mutate(w.id, func(st *WindowState) {
		if !st.IsEditing {
			switch {
			case ev.Kind == EventKey && ev.Key == KeyEscape:
				st.Physics.BeginDragOut()
			case ev.Kind == EventChar && (ev.Rune == 'c' || ev.Rune == 'C'):
				doCopy, copyText = true, st.FullText
			}
			return
		}

		if ev.Kind == EventChar {
			w.edit.insert(ev.Rune)
			return
		}
		switch ev.Key {
		case KeyEscape:
			w.closeEdit(st)
		case KeyEnter:
			if ev.Modifier {
				w.edit.insert('\n')
			} else {
				submit = true
			}
		case KeyBackspace:
			w.edit.backspace()
		case KeyLeft:
			w.edit.left()
		case KeyRight:
			w.edit.right()
		}
	})
	w.dirty = true
	if doCopy {
		w.copy(copyText, now)
	}
	if submit {
		w.submitRefine()
	}
}

func (w *Window) toggleEdit(st *WindowState) {
	if st.IsEditing {
		w.closeEdit(st)
		return
	}
	if st.IsRefining {
		return
	}
	st.IsEditing = true
	w.edit.reset()
}

func (w *Window) closeEdit(st *WindowState) {
	st.IsEditing = false
	w.edit.reset()
}

// copy writes text to the clipboard. Failures are logged and otherwise
// ignored: the success indicator simply does not appear.
func (w *Window) copy(text string, now time.Time) {
	if text == "" {
		return
	}
	if err := w.m.deps.Clipboard.Write(text); err != nil {
		log.Printf("Overlay: copy failed for %s: %v", w.id, err)
		return
	}
	w.m.reg.Mutate(w.id, func(st *WindowState) {
		st.CopySuccess = true
		st.CopySuccessUntil = now.Add(w.m.cfg.CopyFeedback)
	})
	w.dirty = true
}

type refineRequest struct {
	context     llm.Context
	previous    string
	instruction string
	modelID     string
	provider    string
	streaming   bool
	gen         uint64
}

// submitRefine snapshots the text into history and hands the request to the
// worker pool. The window never waits for the backend.
func (w *Window) submitRefine() {
	instruction := strings.TrimSpace(w.edit.String())
	if instruction == "" {
		return
	}

	var (
		req       refineRequest
		submitted bool
	)
	w.m.reg.Mutate(w.id, func(st *WindowState) {
		if st.IsRefining {
			return
		}
		req = refineRequest{
			context:     st.Context,
			previous:    st.pushHistory(),
			instruction: instruction,
			modelID:     st.ModelID,
			provider:    st.Provider,
			streaming:   st.Streaming,
			gen:         st.RefineGen,
		}
		w.closeEdit(st)
		submitted = true
	})
	if !submitted {
		return
	}

	log.Printf("Overlay: %s refining with model=%s streaming=%v", w.id, req.modelID, req.streaming)
	if !w.m.deps.Pool.Submit(w.m.ctx, refineJob(w.m.router, w.m.deps.Backend, w.id, req)) {
		log.Printf("Overlay: refinement queue full for %s", w.id)
		w.m.reg.Mutate(w.id, func(st *WindowState) {
			st.IsRefining = false
			st.setText(llm.ErrorMessage(ErrBackendBusy, w.m.cfg.Language))
		})
	}
}

// refineJob runs on a worker goroutine. It only talks to the window through
// the router, so a window closed mid-request turns every send into a no-op.
func refineJob(rt *router.Router, backend Backend, id messages.WindowID, req refineRequest) worker.Job {
	return func(ctx context.Context) {
		var acc strings.Builder
		text, err := backend.Refine(ctx, req.context, req.previous, req.instruction,
			req.modelID, req.provider, req.streaming, func(delta string) {
				acc.WriteString(delta)
				deliver(rt, id, messages.TextChunk{Window: id, Text: acc.String(), Refinement: req.gen})
			})
		if err == nil && text == "" {
			text = acc.String()
		}
		deliver(rt, id, messages.RefineDone{Window: id, Text: text, Err: err, Refinement: req.gen})
	}
}

func deliver(rt *router.Router, id messages.WindowID, msg messages.Message) {
	if err := rt.Send(id, msg); err != nil && !errors.Is(err, router.ErrUnknownWindow) {
		log.Printf("Overlay: failed to deliver %s to %s: %v", msg.Type(), id, err)
	}
}

func (w *Window) setCursor(c Cursor) {
	if c == w.cursor {
		return
	}
	w.cursor = c
	w.surface.SetCursor(c)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
