package render

import (
	"image"
	"image/color"

	xdraw "golang.org/x/image/draw"

	"screen-translate-overlay/src/physics"
)

// CursorState places the procedural cursor icon.
type CursorState struct {
	Visible bool
	X, Y    float64
	Pose    BroomPose
}

// Scene is everything one frame needs, snapshotted from window state.
type Scene struct {
	Width, Height int
	Background    color.RGBA
	Text          string
	TextDirty     bool
	Refining      bool
	Anim          float64 // frames since the window opened
	Buttons       ButtonState
	Particles     []physics.Particle
	Cursor        CursorState
	Edit          *EditState
}

// Stats counts cache regenerations.
type Stats struct {
	Frames            int
	BackgroundRenders int
	TextRenders       int
	LastFontSize      int
}

// Pipeline composes a window frame from cached and per-frame layers.
// It is owned by a single window goroutine.
type Pipeline struct {
	ts    Typesetter
	broom *Broom

	bg      *image.RGBA
	bgColor color.RGBA

	text      *image.RGBA
	textValid bool
	textKey   string

	frame *image.RGBA
	stats Stats
}

func NewPipeline(ts Typesetter) *Pipeline {
	return &Pipeline{ts: ts, broom: NewBroom()}
}

// Stats returns the cache counters.
func (p *Pipeline) Stats() Stats { return p.stats }

// Render composes the scene into the pipeline's frame buffer and returns it.
// The buffer is reused by the next call; callers must not retain it.
func (p *Pipeline) Render(s Scene) *image.RGBA {
	w, h := max(s.Width, 1), max(s.Height, 1)
	resized := p.frame == nil || p.frame.Rect.Dx() != w || p.frame.Rect.Dy() != h
	p.frame = ensure(p.frame, w, h)

	// 1. Background, regenerated on size or color change.
	if resized || p.bg == nil || p.bgColor != s.Background {
		p.bg = ensure(p.bg, w, h)
		renderBackground(p.bg, s.Background)
		p.bgColor = s.Background
		p.stats.BackgroundRenders++
	}
	xdraw.Draw(p.frame, p.frame.Rect, p.bg, image.Point{}, xdraw.Src)

	// 2/3. Text layer or refinement glow; never both.
	if s.Refining {
		p.textValid = false
		drawGlow(p.frame, s.Anim)
	} else {
		if resized || s.TextDirty || !p.textValid || p.textKey != s.Text {
			p.text = ensure(p.text, w, h)
			p.stats.LastFontSize = renderTextLayer(p.text, p.ts, s.Text)
			p.textKey = s.Text
			p.textValid = true
			p.stats.TextRenders++
		}
		xdraw.Draw(p.frame, p.frame.Rect, p.text, image.Point{}, xdraw.Over)
	}

	if s.Edit != nil {
		drawEditBox(p.frame, p.ts, *s.Edit)
	}

	// 4. Buttons.
	if s.Buttons.Visible {
		drawButtons(p.frame, s.Buttons)
	}

	// 5. Particles.
	drawParticles(p.frame, s.Particles)

	// 6. Cursor icon on top.
	if s.Cursor.Visible {
		icon := p.broom.Render(s.Cursor.Pose)
		at := p.broom.Origin(s.Cursor.X, s.Cursor.Y)
		xdraw.Draw(p.frame, icon.Rect.Add(at), icon, image.Point{}, xdraw.Over)
	}

	p.stats.Frames++
	return p.frame
}

// TextValid reports whether the cached text layer is current.
func (p *Pipeline) TextValid() bool { return p.textValid }

// Release drops every cached bitmap.
func (p *Pipeline) Release() {
	p.bg, p.text, p.frame = nil, nil, nil
	p.textValid = false
	if c, ok := p.ts.(interface{ Close() }); ok {
		c.Close()
	}
}
