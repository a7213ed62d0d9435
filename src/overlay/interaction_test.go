package overlay

import (
	"image"
	"testing"
)

func TestHitEdge(t *testing.T) {
	tests := []struct {
		name string
		x, y int
		want ResizeEdge
	}{
		{"center", 150, 100, EdgeNone},
		{"left", 2, 100, EdgeLeft},
		{"right", 296, 100, EdgeRight},
		{"top", 150, 3, EdgeTop},
		{"bottom", 150, 195, EdgeBottom},
		{"top-left", 1, 1, EdgeTopLeft},
		{"top-right", 299, 0, EdgeTopRight},
		{"bottom-left", 4, 199, EdgeBottomLeft},
		{"bottom-right", 295, 195, EdgeBottomRight},
		{"just inside margin", 8, 8, EdgeNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := hitEdge(tt.x, tt.y, 300, 200); got != tt.want {
				t.Fatalf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestApplyResize(t *testing.T) {
	start := image.Rect(100, 100, 400, 300)
	tests := []struct {
		name   string
		edge   ResizeEdge
		dx, dy int
		want   image.Rectangle
	}{
		{"right grows", EdgeRight, 40, 0, image.Rect(100, 100, 440, 300)},
		{"right floors at minimum", EdgeRight, -500, 0, image.Rect(100, 100, 100+minWidth, 300)},
		{"left keeps right edge", EdgeLeft, 50, 0, image.Rect(150, 100, 400, 300)},
		{"left floors at minimum", EdgeLeft, 500, 0, image.Rect(400-minWidth, 100, 400, 300)},
		{"top", EdgeTop, 0, -30, image.Rect(100, 70, 400, 300)},
		{"bottom floors", EdgeBottom, 0, -400, image.Rect(100, 100, 400, 100+minHeight)},
		{"corner moves two edges", EdgeBottomRight, 10, 20, image.Rect(100, 100, 410, 320)},
		{"top-left corner", EdgeTopLeft, -10, -10, image.Rect(90, 90, 400, 300)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := applyResize(start, tt.edge, tt.dx, tt.dy)
			if got != tt.want {
				t.Fatalf("Expected %v, got %v", tt.want, got)
			}
			if got.Dx() < minWidth || got.Dy() < minHeight {
				t.Fatalf("Expected at least %dx%d, got %v", minWidth, minHeight, got.Size())
			}
		})
	}
}

func TestPickCursor(t *testing.T) {
	st := newTestState()
	if got := pickCursor(&st, hoverTarget{edge: EdgeLeft}); got != CursorSizeWE {
		t.Fatalf("Expected horizontal resize cursor, got %d", got)
	}
	st.IsEditing = true
	if got := pickCursor(&st, hoverTarget{edge: EdgeLeft}); got == CursorSizeWE {
		t.Fatal("Expected no resize cursor while editing")
	}
	st.IsEditing = false
	st.Interaction = ModeDragging
	if got := pickCursor(&st, hoverTarget{}); got != CursorHidden {
		t.Fatalf("Expected the drawn cursor while dragging, got %d", got)
	}
}

func TestEditBuffer(t *testing.T) {
	var b editBuffer
	for _, r := range "helo" {
		b.insert(r)
	}
	b.left()
	b.insert('l')
	if b.String() != "hello" {
		t.Fatalf("Expected %q, got %q", "hello", b.String())
	}
	b.right()
	b.insert('\n')
	b.insert('\r')
	if b.String() != "hello\n" {
		t.Fatalf("Expected newline kept and carriage return dropped, got %q", b.String())
	}
	b.backspace()
	b.backspace()
	if b.String() != "hell" {
		t.Fatalf("Expected %q, got %q", "hell", b.String())
	}
	b.reset()
	b.backspace()
	if b.String() != "" || b.caret != 0 {
		t.Fatalf("Expected empty buffer, got %q caret %d", b.String(), b.caret)
	}
}
