package render

import (
	"image"
	"image/color"
	"strings"
	"testing"

	"screen-translate-overlay/src/physics"
)

// fakeTypesetter lays text out on a fixed-pitch grid: each character is
// 0.6*size wide and each line 1.2*size tall.
type fakeTypesetter struct {
	draws    int
	lastSize int
}

func (f *fakeTypesetter) Measure(text string, size int, maxWidth float64) (float64, float64) {
	if text == "" {
		return 0, 0
	}
	charW := 0.6 * float64(size)
	perLine := int(maxWidth / charW)
	if perLine < 1 {
		return charW, float64(len(text)) * float64(size) * 1.2
	}
	n := len(text)
	lines := (n + perLine - 1) / perLine
	return float64(min(n, perLine)) * charW, float64(lines) * float64(size) * 1.2
}

func (f *fakeTypesetter) Draw(dst *image.RGBA, text string, size int, x, y, maxWidth float64, c color.Color) {
	f.draws++
	f.lastSize = size
}

func fits(ts Typesetter, text string, size int, w, h float64) bool {
	mw, mh := ts.Measure(text, size, w)
	return mw <= w && mh <= h
}

func TestFitFontSizeIsLargestFitting(t *testing.T) {
	ts := &fakeTypesetter{}
	for _, n := range []int{1, 5, 40, 200, 1000} {
		text := strings.Repeat("x", n)
		for w := 20; w <= 420; w += 50 {
			for h := 10; h <= 260; h += 25 {
				aw, ah := TextBox(w, h)
				got := FitFontSize(ts, text, aw, ah)

				want := MinFontSize
				for s := MinFontSize; s <= min(int(ah), MaxFontSize); s++ {
					if fits(ts, text, s, aw, ah) {
						want = s
					}
				}
				if got != want {
					t.Fatalf("n=%d w=%d h=%d: expected size %d, got %d", n, w, h, want, got)
				}
			}
		}
	}
}

func TestFitFontSizeFallsBackToMinimum(t *testing.T) {
	ts := &fakeTypesetter{}
	got := FitFontSize(ts, strings.Repeat("word ", 500), 30, 12)
	if got != MinFontSize {
		t.Fatalf("Expected minimum size %d, got %d", MinFontSize, got)
	}
}

func TestFitFontSizeCapsAtMaximum(t *testing.T) {
	ts := &fakeTypesetter{}
	got := FitFontSize(ts, "x", 5000, 5000)
	if got != MaxFontSize {
		t.Fatalf("Expected maximum size %d, got %d", MaxFontSize, got)
	}
}

func TestLayoutButtons(t *testing.T) {
	tests := []struct {
		name   string
		w, h   int
		wantCY int
	}{
		{"standard height", 300, 120, 120 - 12 - 14},
		{"compact height", 300, 40, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := LayoutButtons(tt.w, tt.h, true)
			if l.Copy.Y != tt.wantCY {
				t.Fatalf("Expected center y %d, got %d", tt.wantCY, l.Copy.Y)
			}
			if l.Copy.X != tt.w-12-14 {
				t.Fatalf("Expected copy x %d, got %d", tt.w-12-14, l.Copy.X)
			}
			if l.Copy.X-l.Edit.X != ButtonSize+8 || l.Edit.X-l.Undo.X != ButtonSize+8 {
				t.Fatalf("Expected right-to-left spacing of %d, got %v", ButtonSize+8, l)
			}
		})
	}
}

func TestButtonHit(t *testing.T) {
	l := LayoutButtons(300, 120, false)
	if got := l.Hit(l.Copy.X, l.Copy.Y); got != CopyButton {
		t.Fatalf("Expected copy, got %v", got)
	}
	if got := l.Hit(l.Edit.X+5, l.Edit.Y-5); got != EditButton {
		t.Fatalf("Expected edit, got %v", got)
	}
	if got := l.Hit(l.Undo.X, l.Undo.Y); got != NoButton {
		t.Fatalf("Expected hidden undo to miss, got %v", got)
	}
	l.HasUndo = true
	if got := l.Hit(l.Undo.X, l.Undo.Y); got != UndoButton {
		t.Fatalf("Expected undo, got %v", got)
	}
	if got := l.Hit(10, 10); got != NoButton {
		t.Fatalf("Expected background, got %v", got)
	}
}

func TestPipelineCaches(t *testing.T) {
	ts := &fakeTypesetter{}
	p := NewPipeline(ts)
	base := color.RGBA{R: 0x22, G: 0x22, B: 0x22, A: 0xFF}
	scene := Scene{Width: 200, Height: 100, Background: base, Text: "hello"}

	p.Render(scene)
	p.Render(scene)
	p.Render(scene)

	st := p.Stats()
	if st.Frames != 3 {
		t.Fatalf("Expected 3 frames, got %d", st.Frames)
	}
	if st.BackgroundRenders != 1 || st.TextRenders != 1 {
		t.Fatalf("Expected one background and one text render, got %+v", st)
	}

	scene.Text = "hello world"
	p.Render(scene)
	if p.Stats().TextRenders != 2 {
		t.Fatalf("Expected text change to regenerate text layer, got %+v", p.Stats())
	}
	if p.Stats().BackgroundRenders != 1 {
		t.Fatalf("Expected background to stay cached, got %+v", p.Stats())
	}

	scene.Width = 240
	p.Render(scene)
	if p.Stats().BackgroundRenders != 2 || p.Stats().TextRenders != 3 {
		t.Fatalf("Expected resize to regenerate both layers, got %+v", p.Stats())
	}
}

func TestPipelineRefiningSkipsText(t *testing.T) {
	ts := &fakeTypesetter{}
	p := NewPipeline(ts)
	scene := Scene{Width: 120, Height: 80, Background: color.RGBA{A: 0xFF}, Text: "abc"}

	p.Render(scene)
	if !p.TextValid() {
		t.Fatal("Expected valid text cache")
	}

	scene.Refining = true
	scene.Anim = 30
	frame := p.Render(scene)
	if p.TextValid() {
		t.Fatal("Expected text cache invalidated while refining")
	}
	if p.Stats().TextRenders != 1 {
		t.Fatalf("Expected no text render while refining, got %d", p.Stats().TextRenders)
	}

	// The glow must light up the border region.
	edge := frame.RGBAAt(60, 2)
	if edge.R == 0 && edge.G == 0 && edge.B == 0 {
		t.Fatalf("Expected glow at the border, got %v", edge)
	}

	scene.Refining = false
	p.Render(scene)
	if p.Stats().TextRenders != 2 {
		t.Fatalf("Expected text regenerated after refining ends, got %d", p.Stats().TextRenders)
	}
}

func TestBackgroundGradient(t *testing.T) {
	ts := &fakeTypesetter{}
	p := NewPipeline(ts)
	base := color.RGBA{R: 200, G: 100, B: 50, A: 0xFF}
	frame := p.Render(Scene{Width: 50, Height: 101, Background: base})

	top := frame.RGBAAt(25, 0)
	bottom := frame.RGBAAt(25, 100)
	mid := frame.RGBAAt(25, 50)
	if top.R != 200 {
		t.Fatalf("Expected top row at base color, got %v", top)
	}
	if bottom.R != 120 {
		t.Fatalf("Expected bottom row at 60%% luminance, got %v", bottom)
	}
	if mid.R >= top.R || mid.R <= bottom.R {
		t.Fatalf("Expected a monotonic gradient, got top=%v mid=%v bottom=%v", top, mid, bottom)
	}
}

func TestBroomReusesBuffer(t *testing.T) {
	b := NewBroom()
	first := b.Render(BroomPose{Squish: 1})
	second := b.Render(BroomPose{Tilt: 15, Squish: 0.4, Bend: 1})
	if first != second {
		t.Fatal("Expected the broom buffer to be reused")
	}

	opaque := 0
	for i := 3; i < len(second.Pix); i += 4 {
		if second.Pix[i] > 0 {
			opaque++
		}
	}
	if opaque == 0 {
		t.Fatal("Expected the broom to draw pixels")
	}

	at := b.Origin(100, 100)
	if at != image.Pt(76, 68) {
		t.Fatalf("Expected origin (76,68), got %v", at)
	}
}

func TestDrawParticlesFadesWithLife(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 20, 20))
	c := color.RGBA{R: 255, A: 255}
	drawParticles(dst, []physics.Particle{{X: 10, Y: 10, Size: 4, Life: 1, Color: c}})
	full := dst.RGBAAt(10, 10).A

	dst = image.NewRGBA(image.Rect(0, 0, 20, 20))
	drawParticles(dst, []physics.Particle{{X: 10, Y: 10, Size: 4, Life: 0.5, Color: c}})
	half := dst.RGBAAt(10, 10).A

	if full != 255 {
		t.Fatalf("Expected opaque center at full life, got %d", full)
	}
	if half >= full || half == 0 {
		t.Fatalf("Expected partially transparent center at half life, got %d", half)
	}
}

func TestEditBoxRect(t *testing.T) {
	r := EditBoxRect(300, 200)
	if r.Min != image.Pt(8, 8) {
		t.Fatalf("Expected box at (8,8), got %v", r.Min)
	}
	if r.Dy() != 64 {
		t.Fatalf("Expected capped height 64, got %d", r.Dy())
	}
	small := EditBoxRect(100, 30)
	if !small.In(image.Rect(0, 0, 100, 30)) {
		t.Fatalf("Expected box inside window, got %v", small)
	}
}

func TestWithCaret(t *testing.T) {
	if got := withCaret("héllo", 2); got != "hé|llo" {
		t.Fatalf("Expected caret after rune 2, got %q", got)
	}
	if got := withCaret("ab", 10); got != "ab|" {
		t.Fatalf("Expected caret clamped to end, got %q", got)
	}
}

func TestButtonString(t *testing.T) {
	if got := UndoButton.String(); got != "undo" {
		t.Fatalf("Expected undo, got %q", got)
	}
	if got := Button(9).String(); got != "unknown" {
		t.Fatalf("Expected unknown, got %q", got)
	}
}
