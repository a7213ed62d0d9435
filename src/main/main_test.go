package main

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"screen-translate-overlay/src/config"
	"screen-translate-overlay/src/llm"
	"screen-translate-overlay/src/overlay"
	"screen-translate-overlay/src/worker"
)

func TestNormalizeLegacyArgs(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		out  []string
	}{
		{
			name: "Normalizes long single dash flags",
			in:   []string{"app", "-image", "a.png", "-api-key-path", "/tmp/key"},
			out:  []string{"app", "--image", "a.png", "--api-key-path", "/tmp/key"},
		},
		{
			name: "Normalizes equals form",
			in:   []string{"app", "-headless=true", "-rect=1,2,3,4"},
			out:  []string{"app", "--headless=true", "--rect=1,2,3,4"},
		},
		{
			name: "Leaves other flags unchanged",
			in:   []string{"app", "--image", "x", "-v", "-other"},
			out:  []string{"app", "--image", "x", "-v", "-other"},
		},
		{
			name: "Empty args",
			in:   nil,
			out:  []string{"screen-translate-overlay"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeLegacyArgs(tt.in)
			if len(got) != len(tt.out) {
				t.Fatalf("Expected len=%d, got %d", len(tt.out), len(got))
			}
			for i := range got {
				if got[i] != tt.out[i] {
					t.Fatalf("Expected arg[%d]=%q, got %q", i, tt.out[i], got[i])
				}
			}
		})
	}
}

func TestNewRootCmdParsesFlags(t *testing.T) {
	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	if err := cmd.ParseFlags([]string{"--image", "a.png", "--rect", "1,2,3,4", "--headless", "--api-key-path", "/tmp/key"}); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	if opts.imagePath != "a.png" || opts.rect != "1,2,3,4" || !opts.headless {
		t.Fatalf("Expected flags parsed, got %+v", *opts)
	}
	if opts.apiKeyPath != "/tmp/key" {
		t.Fatalf("Expected apiKeyPath=/tmp/key, got %q", opts.apiKeyPath)
	}
	if !opts.oneShot() {
		t.Fatal("Expected image flag to select one-shot mode")
	}
}

func TestCentered(t *testing.T) {
	display := image.Rect(0, 0, 1000, 800)
	if got := centered(display, image.Pt(200, 100)); got != image.Rect(400, 350, 600, 450) {
		t.Fatalf("Expected centred rect, got %v", got)
	}
	if got := centered(display, image.Pt(5000, 5000)); got.Dx() != 750 || got.Dy() != 600 {
		t.Fatalf("Expected oversize input shrunk to 3/4 of display, got %v", got)
	}
}

func TestLoadCapture(t *testing.T) {
	display := image.Rect(0, 0, 1920, 1080)
	cfg := &config.Config{}

	c, err := loadCapture(cfg, mainOptions{text: "hello"}, display)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if c.Text != "hello" || c.Context.Kind != llm.NoContext || c.Rect.Empty() {
		t.Fatalf("Expected text capture with a default rect, got %+v", c)
	}

	cfg.CaptureRect = image.Rect(10, 10, 110, 60)
	c, _ = loadCapture(cfg, mainOptions{text: "hello"}, display)
	if c.Rect != cfg.CaptureRect {
		t.Fatalf("Expected configured rect, got %v", c.Rect)
	}

	bad := filepath.Join(t.TempDir(), "bad.wav")
	os.WriteFile(bad, []byte("nope"), 0o600)
	if _, err := loadCapture(cfg, mainOptions{audioPath: bad}, display); err == nil {
		t.Fatal("Expected invalid wav to fail")
	}
	if _, err := loadCapture(cfg, mainOptions{imagePath: bad}, display); err == nil {
		t.Fatal("Expected invalid png to fail")
	}
}

type fakeBackend struct{}

func (fakeBackend) StreamCompletion(_ context.Context, _ llm.Request, onChunk llm.ChunkFunc) (string, error) {
	onChunk("ok")
	return "ok", nil
}

func (fakeBackend) Translate(_ context.Context, text, lang, _, _ string, _ bool, onChunk llm.ChunkFunc) (string, error) {
	onChunk(lang)
	return lang, nil
}

func (fakeBackend) Refine(context.Context, llm.Context, string, string, string, string, bool, llm.ChunkFunc) (string, error) {
	return "", nil
}

type nopClipboard struct{}

func (nopClipboard) Write(string) error { return nil }

func TestRunOneShotHeadless(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool := worker.New(1, 1)
	defer pool.Close()
	dump := t.TempDir()
	mgr, err := overlay.NewManager(ctx, overlay.DefaultConfig(), overlay.Deps{
		Surfaces:  overlay.HeadlessFactory(dump),
		Backend:   fakeBackend{},
		Pool:      pool,
		Clipboard: nopClipboard{},
		WorkArea:  func(image.Rectangle) image.Rectangle { return image.Rect(0, 0, 1920, 1080) },
	})
	if err != nil {
		t.Fatalf("Expected manager, got %v", err)
	}

	cfg := &config.Config{
		CaptureRect:   image.Rect(100, 100, 400, 300),
		Retranslate:   true,
		RetranslateTo: "French",
		UILanguage:    "en",
	}
	res, err := runOneShot(ctx, cfg, mainOptions{text: "hello", headless: true}, fakeBackend{}, mgr)
	if err != nil {
		t.Fatalf("Expected one-shot to succeed, got %v", err)
	}
	if res.Text != "hello" || res.Translation != "French" {
		t.Fatalf("Expected text and translation, got %+v", res)
	}
	if mgr.Count() != 0 {
		t.Fatalf("Expected all windows closed, got %d", mgr.Count())
	}
	pngs, _ := filepath.Glob(filepath.Join(dump, "*.png"))
	if len(pngs) != 2 {
		t.Fatalf("Expected a frame dump per window, got %v", pngs)
	}
}
