package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"screen-translate-overlay/src/config"
	"screen-translate-overlay/src/llm"
)

type fakeBackend struct {
	chunks []string
	err    error

	lastLang        string
	lastInstruction string
	lastContext     llm.Context
	lastPrevious    string
	lastRequest     llm.Request
}

func (f *fakeBackend) emit(onChunk llm.ChunkFunc) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	for _, c := range f.chunks {
		onChunk(c)
	}
	return strings.Join(f.chunks, ""), nil
}

func (f *fakeBackend) StreamCompletion(_ context.Context, req llm.Request, onChunk llm.ChunkFunc) (string, error) {
	f.lastRequest = req
	return f.emit(onChunk)
}

func (f *fakeBackend) Translate(_ context.Context, text, lang, _, _ string, _ bool, onChunk llm.ChunkFunc) (string, error) {
	f.lastLang = lang
	f.lastPrevious = text
	return f.emit(onChunk)
}

func (f *fakeBackend) Refine(_ context.Context, rc llm.Context, previous, instruction, _, _ string, _ bool, onChunk llm.ChunkFunc) (string, error) {
	f.lastContext = rc
	f.lastPrevious = previous
	f.lastInstruction = instruction
	return f.emit(onChunk)
}

func withBackend(t *testing.T, b *fakeBackend) {
	t.Helper()
	orig := newBackend
	newBackend = func(cliOptions) (backend, *config.Config, error) { return b, &config.Config{}, nil }
	t.Cleanup(func() { newBackend = orig })
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := runWithArgs(append([]string{"overlay-cli"}, args...), strings.NewReader(stdin), &out, &errOut)
	return out.String(), err
}

func TestTranslateStreamsChunks(t *testing.T) {
	b := &fakeBackend{chunks: []string{"Bon", "jour"}}
	withBackend(t, b)

	out, err := runCLI(t, "", "translate", "--to", "French", "Hello")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if out != "Bonjour\n" {
		t.Fatalf("Expected streamed output, got %q", out)
	}
	if b.lastLang != "French" || b.lastPrevious != "Hello" {
		t.Fatalf("Expected French translation of Hello, got %q %q", b.lastLang, b.lastPrevious)
	}
}

func TestTranslateReadsStdin(t *testing.T) {
	b := &fakeBackend{chunks: []string{"x"}}
	withBackend(t, b)

	if _, err := runCLI(t, "  from stdin \n", "translate"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if b.lastPrevious != "from stdin" {
		t.Fatalf("Expected trimmed stdin text, got %q", b.lastPrevious)
	}
	if _, err := runCLI(t, "", "translate"); err == nil {
		t.Fatal("Expected error for empty input")
	}
}

func TestRefineJSONOutput(t *testing.T) {
	b := &fakeBackend{chunks: []string{"short"}}
	withBackend(t, b)

	out, err := runCLI(t, "", "refine", "--text", "a long text", "--instruction", "shorter", "--json")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	var res Result
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("Failed to parse JSON: %v (%q)", err, out)
	}
	if res.Text != "short" || res.CharCount != 5 || res.Source != "text" {
		t.Fatalf("Expected JSON result, got %+v", res)
	}
	if b.lastInstruction != "shorter" || b.lastPrevious != "a long text" || b.lastContext.Kind != llm.NoContext {
		t.Fatalf("Expected refine call with text only, got %+v", b)
	}
}

func TestRefineRequiresInstruction(t *testing.T) {
	withBackend(t, &fakeBackend{})
	if _, err := runCLI(t, "", "refine", "--text", "x"); err == nil {
		t.Fatal("Expected error without --instruction")
	}
}

func TestReadImage(t *testing.T) {
	b := &fakeBackend{chunks: []string{"text"}}
	withBackend(t, b)

	path := filepath.Join(t.TempDir(), "img.png")
	os.WriteFile(path, append(append([]byte{}, pngMagic...), 0, 0, 0, 0), 0o600)

	if _, err := runCLI(t, "", "read", "--image", path, "--prompt", "read it"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if b.lastRequest.Context.Kind != llm.ImageContext || b.lastRequest.Prompt != "read it" {
		t.Fatalf("Expected image request with prompt, got %+v", b.lastRequest)
	}
	if !b.lastRequest.Streaming {
		t.Fatal("Expected streaming by default")
	}
}

func TestReadRejectsBadInput(t *testing.T) {
	withBackend(t, &fakeBackend{})
	bad := filepath.Join(t.TempDir(), "bad.png")
	os.WriteFile(bad, []byte("not a png"), 0o600)

	tests := []struct {
		name string
		args []string
	}{
		{"no file", []string{"read"}},
		{"bad magic", []string{"read", "--image", bad}},
		{"bad wav", []string{"read", "--audio", bad}},
		{"missing file", []string{"read", "--image", filepath.Join(t.TempDir(), "missing.png")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := runCLI(t, "", tt.args...); err == nil {
				t.Fatal("Expected error")
			}
		})
	}
}

func TestBackendErrorIsFormatted(t *testing.T) {
	withBackend(t, &fakeBackend{err: llm.ErrInvalidAPIKey})
	_, err := runCLI(t, "", "translate", "hi")
	if err == nil || err.Error() != "Invalid API key!" {
		t.Fatalf("Expected formatted error, got %v", err)
	}
	withBackend(t, &fakeBackend{err: errors.New("boom")})
	if _, err := runCLI(t, "", "translate", "hi"); err == nil || err.Error() != "Error: boom" {
		t.Fatalf("Expected generic formatted error, got %v", err)
	}
}
