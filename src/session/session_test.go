package session

import (
	"context"
	"errors"
	"image"
	"testing"

	"screen-translate-overlay/src/llm"
	"screen-translate-overlay/src/messages"
	"screen-translate-overlay/src/overlay"
	"screen-translate-overlay/src/placement"
)

type fakeBackend struct {
	chunks       []string
	err          error
	translate    []string
	translateErr error
	requests     []llm.Request
	translated   []string
}

func (b *fakeBackend) StreamCompletion(_ context.Context, req llm.Request, onChunk llm.ChunkFunc) (string, error) {
	b.requests = append(b.requests, req)
	return emit(b.chunks, b.err, onChunk)
}

func (b *fakeBackend) Translate(_ context.Context, text, lang, _, _ string, _ bool, onChunk llm.ChunkFunc) (string, error) {
	b.translated = append(b.translated, lang+":"+text)
	return emit(b.translate, b.translateErr, onChunk)
}

func emit(chunks []string, err error, onChunk llm.ChunkFunc) (string, error) {
	if err != nil {
		return "", err
	}
	var full string
	for _, c := range chunks {
		full += c
		onChunk(c)
	}
	return full, nil
}

type fakeWindows struct {
	next    messages.WindowID
	reqs    []overlay.WindowRequest
	texts   map[messages.WindowID][]string
	links   [][2]messages.WindowID
	openErr error
}

func newFakeWindows() *fakeWindows {
	return &fakeWindows{texts: make(map[messages.WindowID][]string)}
}

func (w *fakeWindows) CreateResultWindow(req overlay.WindowRequest) (messages.WindowID, error) {
	if w.openErr != nil {
		return messages.NoWindow, w.openErr
	}
	w.next++
	w.reqs = append(w.reqs, req)
	return w.next, nil
}

func (w *fakeWindows) UpdateWindowText(id messages.WindowID, text string) error {
	w.texts[id] = append(w.texts[id], text)
	return nil
}

func (w *fakeWindows) LinkWindows(a, b messages.WindowID) error {
	w.links = append(w.links, [2]messages.WindowID{a, b})
	return nil
}

func (w *fakeWindows) last(id messages.WindowID) string {
	t := w.texts[id]
	if len(t) == 0 {
		return ""
	}
	return t[len(t)-1]
}

type fakeClipboard struct{ writes []string }

func (c *fakeClipboard) Write(text string) error {
	c.writes = append(c.writes, text)
	return nil
}

var captureRect = image.Rect(100, 100, 400, 300)

func TestExecuteStreamsIntoPrimary(t *testing.T) {
	b := &fakeBackend{chunks: []string{"Hel", "lo"}}
	w := newFakeWindows()
	clip := &fakeClipboard{}

	res, err := Execute(context.Background(),
		Capture{Rect: captureRect, Context: llm.Image([]byte{1})},
		Options{Prompt: "read", ModelID: "scout", Streaming: true, AutoCopy: true},
		Deps{Backend: b, Windows: w, Clipboard: clip})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if res.Text != "Hello" {
		t.Fatalf("Expected %q, got %q", "Hello", res.Text)
	}
	got := w.texts[res.Primary]
	if len(got) != 2 || got[0] != "Hel" || got[1] != "Hello" {
		t.Fatalf("Expected accumulated snapshots, got %v", got)
	}
	if w.reqs[0].Role != placement.RolePrimary || w.reqs[0].Rect != captureRect {
		t.Fatalf("Expected primary window at capture rect, got %+v", w.reqs[0])
	}
	if w.reqs[0].Context.Kind != llm.ImageContext || w.reqs[0].ModelID != "scout" {
		t.Fatalf("Expected refinement context recorded on the window, got %+v", w.reqs[0])
	}
	if len(clip.writes) != 1 || clip.writes[0] != "Hello" {
		t.Fatalf("Expected auto-copy of final text, got %v", clip.writes)
	}
	if res.Secondary != messages.NoWindow {
		t.Fatalf("Expected no secondary window, got %s", res.Secondary)
	}
}

func TestExecuteWritesErrorIntoWindow(t *testing.T) {
	b := &fakeBackend{err: llm.ErrInvalidAPIKey}
	w := newFakeWindows()

	res, err := Execute(context.Background(), Capture{Rect: captureRect},
		Options{Language: "en", Retranslate: true, RetranslateTo: "French"},
		Deps{Backend: b, Windows: w})
	if !errors.Is(err, llm.ErrInvalidAPIKey) {
		t.Fatalf("Expected ErrInvalidAPIKey, got %v", err)
	}
	if w.last(res.Primary) != "Invalid API key!" {
		t.Fatalf("Expected formatted error text, got %q", w.last(res.Primary))
	}
	if len(w.reqs) != 1 {
		t.Fatalf("Expected no secondary window after failure, got %d windows", len(w.reqs))
	}
}

func TestExecuteRetranslatesIntoLinkedSecondary(t *testing.T) {
	b := &fakeBackend{chunks: []string{"Xin chào"}, translate: []string{"Hello", " there"}}
	w := newFakeWindows()
	clip := &fakeClipboard{}

	res, err := Execute(context.Background(), Capture{Rect: captureRect},
		Options{Retranslate: true, RetranslateTo: "English", RetranslateAutoCopy: true},
		Deps{Backend: b, Windows: w, Clipboard: clip})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if res.Translation != "Hello there" {
		t.Fatalf("Expected translation, got %q", res.Translation)
	}
	if w.reqs[1].Role != placement.RoleSecondary || w.reqs[1].Rect != captureRect {
		t.Fatalf("Expected auto-placed secondary anchored on capture, got %+v", w.reqs[1])
	}
	if len(w.links) != 1 || w.links[0] != [2]messages.WindowID{res.Primary, res.Secondary} {
		t.Fatalf("Expected windows linked, got %v", w.links)
	}
	if b.translated[0] != "English:Xin chào" {
		t.Fatalf("Expected primary text translated, got %v", b.translated)
	}
	if w.last(res.Secondary) != "Hello there" {
		t.Fatalf("Expected translation in secondary, got %q", w.last(res.Secondary))
	}
	if len(clip.writes) != 1 || clip.writes[0] != "Hello there" {
		t.Fatalf("Expected translation auto-copied, got %v", clip.writes)
	}
}

func TestExecuteExplicitSecondary(t *testing.T) {
	b := &fakeBackend{translate: []string{"Bonjour"}}
	w := newFakeWindows()
	explicit := image.Rect(900, 100, 1200, 300)

	res, err := Execute(context.Background(), Capture{Rect: captureRect, Text: "Hello"},
		Options{Retranslate: true, RetranslateTo: "French", RetranslateRect: explicit},
		Deps{Backend: b, Windows: w})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(b.requests) != 0 {
		t.Fatalf("Expected preset text to skip the model, got %d requests", len(b.requests))
	}
	if w.last(res.Primary) != "Hello" {
		t.Fatalf("Expected preset text shown, got %q", w.last(res.Primary))
	}
	if w.reqs[1].Role != placement.RoleSecondaryExplicit || w.reqs[1].Rect != explicit {
		t.Fatalf("Expected explicit secondary, got %+v", w.reqs[1])
	}
}

func TestExecuteTranslationFailure(t *testing.T) {
	b := &fakeBackend{chunks: []string{"text"}, translateErr: llm.ErrNoAPIKey}
	w := newFakeWindows()

	res, err := Execute(context.Background(), Capture{Rect: captureRect},
		Options{Language: "vi", Retranslate: true, RetranslateTo: "English"},
		Deps{Backend: b, Windows: w})
	if !errors.Is(err, llm.ErrNoAPIKey) {
		t.Fatalf("Expected ErrNoAPIKey, got %v", err)
	}
	if w.last(res.Secondary) != "Bạn chưa nhập API key!" {
		t.Fatalf("Expected localized error in secondary, got %q", w.last(res.Secondary))
	}
	if w.last(res.Primary) != "text" {
		t.Fatalf("Expected primary text kept, got %q", w.last(res.Primary))
	}
}

func TestExecuteValidation(t *testing.T) {
	w := newFakeWindows()
	if _, err := Execute(context.Background(), Capture{}, Options{}, Deps{Backend: &fakeBackend{}, Windows: w}); !errors.Is(err, ErrEmptyCapture) {
		t.Fatalf("Expected ErrEmptyCapture, got %v", err)
	}
	if _, err := Execute(context.Background(), Capture{Rect: captureRect}, Options{}, Deps{Windows: w}); err == nil {
		t.Fatal("Expected error without backend")
	}
	w.openErr = errors.New("no display")
	if _, err := Execute(context.Background(), Capture{Rect: captureRect}, Options{}, Deps{Backend: &fakeBackend{}, Windows: w}); err == nil {
		t.Fatal("Expected window creation error")
	}
}
