package logutil

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	"github.com/adrg/xdg"
)

const (
	logFileName  = "overlay_debug.log"
	appDir       = "screen-translate-overlay"
	maxSizeBytes = 10 * 1024 * 1024 // 10 MB
	maxArchives  = 3
	maxLogText   = 200
)

// Setup enables file logging with basic size-based rotation (10MB, max 3 files).
// When disabled, logs are discarded (keeps stdout clean).
func Setup(enableFileLogging bool) {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if !enableFileLogging {
		log.SetOutput(io.Discard)
		return
	}
	w, err := OpenRotating(LogPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		return
	}
	log.SetOutput(w)
}

// LogPath returns the log file location in the XDG state directory, or the
// working directory when the state directory cannot be created.
func LogPath() string {
	p, err := xdg.StateFile(filepath.Join(appDir, logFileName))
	if err != nil {
		return logFileName
	}
	return p
}

// RotatingWriter appends to a file and rotates it once it exceeds maxSizeBytes.
type RotatingWriter struct {
	mu    sync.Mutex
	path  string
	limit int64
	f     *os.File
}

func OpenRotating(path string) (*RotatingWriter, error) {
	return openRotating(path, maxSizeBytes)
}

func openRotating(path string, limit int64) (*RotatingWriter, error) {
	rotateIfNeeded(path, limit)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &RotatingWriter{path: path, limit: limit, f: f}, nil
}

func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if st, err := w.f.Stat(); err == nil && st.Size()+int64(len(p)) > w.limit {
		_ = w.f.Close()
		rotate(w.path)
		nf, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return 0, err
		}
		w.f = nf
	}
	return w.f.Write(p)
}

func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.Close()
}

func rotateIfNeeded(path string, limit int64) {
	if st, err := os.Stat(path); err == nil && st.Size() > limit {
		rotate(path)
	}
}

// rotate shifts path -> .1 -> .2 -> .3, discarding the oldest.
func rotate(path string) {
	_ = os.Remove(archiveName(path, maxArchives))
	for i := maxArchives - 1; i >= 1; i-- {
		_ = os.Rename(archiveName(path, i), archiveName(path, i+1))
	}
	_ = os.Rename(path, archiveName(path, 1))
}

func archiveName(path string, n int) string { return fmt.Sprintf("%s.%d", path, n) }

// RedactKey masks an API key, leaving first/last 4 chars: xxxx...yyyy
func RedactKey(k string) string {
	if len(k) <= 8 {
		return "********"
	}
	return fmt.Sprintf("%s...%s", k[:4], k[len(k)-4:])
}

// SanitizeForLog flattens control characters and truncates model output.
func SanitizeForLog(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
	if r := []rune(s); len(r) > maxLogText {
		return string(r[:maxLogText]) + fmt.Sprintf("...(%d chars)", len(r))
	}
	return s
}
