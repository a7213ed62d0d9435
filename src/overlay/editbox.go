package overlay

import "unicode"

const editPlaceholder = "Refine: type an instruction, Enter to send"

// editBuffer is the refinement box content. It lives on the window goroutine
// and never enters the registry.
type editBuffer struct {
	runes []rune
	caret int
}

func (b *editBuffer) String() string { return string(b.runes) }

func (b *editBuffer) reset() {
	b.runes = b.runes[:0]
	b.caret = 0
}

func (b *editBuffer) insert(r rune) {
	if r != '\n' && unicode.IsControl(r) {
		return
	}
	b.runes = append(b.runes, 0)
	copy(b.runes[b.caret+1:], b.runes[b.caret:])
	b.runes[b.caret] = r
	b.caret++
}

func (b *editBuffer) backspace() {
	if b.caret == 0 {
		return
	}
	b.runes = append(b.runes[:b.caret-1], b.runes[b.caret:]...)
	b.caret--
}

func (b *editBuffer) left() {
	if b.caret > 0 {
		b.caret--
	}
}

func (b *editBuffer) right() {
	if b.caret < len(b.runes) {
		b.caret++
	}
}
