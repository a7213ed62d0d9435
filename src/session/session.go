package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"strings"

	"screen-translate-overlay/src/llm"
	"screen-translate-overlay/src/logutil"
	"screen-translate-overlay/src/messages"
	"screen-translate-overlay/src/overlay"
	"screen-translate-overlay/src/placement"
)

// Backend produces the text shown in result windows.
type Backend interface {
	StreamCompletion(ctx context.Context, req llm.Request, onChunk llm.ChunkFunc) (string, error)
	Translate(ctx context.Context, text, lang, modelID, provider string, streaming bool, onChunk llm.ChunkFunc) (string, error)
}

// Windows is the subset of the overlay manager a session drives.
type Windows interface {
	CreateResultWindow(req overlay.WindowRequest) (messages.WindowID, error)
	UpdateWindowText(id messages.WindowID, text string) error
	LinkWindows(a, b messages.WindowID) error
}

type Clipboard interface {
	Write(text string) error
}

// Capture is the source a session processes: the captured screen rectangle
// and the material sent to the model.
type Capture struct {
	Rect    image.Rectangle
	Context llm.Context
	// Text, when set, is shown as-is instead of querying the model.
	Text string
}

type Options struct {
	Prompt    string
	ModelID   string
	Provider  string
	Streaming bool
	AutoCopy  bool
	Language  string

	Retranslate          bool
	RetranslateTo        string
	RetranslateModel     string
	RetranslateStreaming bool
	RetranslateAutoCopy  bool
	// RetranslateRect places the secondary window explicitly; empty means auto-placed.
	RetranslateRect image.Rectangle
}

type Deps struct {
	Backend   Backend
	Windows   Windows
	Clipboard Clipboard
}

type Result struct {
	Primary     messages.WindowID
	Secondary   messages.WindowID
	Text        string
	Translation string
}

var ErrEmptyCapture = errors.New("capture rectangle is empty")

// Execute opens the primary window for capture, streams the backend into it
// and, when enabled, re-translates the result into a linked secondary window.
func Execute(ctx context.Context, capture Capture, opts Options, deps Deps) (Result, error) {
	if deps.Backend == nil {
		return Result{}, errors.New("Backend is required")
	}
	if deps.Windows == nil {
		return Result{}, errors.New("Windows is required")
	}
	if capture.Rect.Empty() {
		return Result{}, ErrEmptyCapture
	}

	primary, err := deps.Windows.CreateResultWindow(overlay.WindowRequest{
		Rect:      capture.Rect,
		Role:      placement.RolePrimary,
		Context:   capture.Context,
		ModelID:   opts.ModelID,
		Provider:  opts.Provider,
		Streaming: opts.Streaming,
	})
	if err != nil {
		return Result{}, fmt.Errorf("open primary window: %w", err)
	}
	res := Result{Primary: primary}

	text := capture.Text
	if text != "" {
		deps.Windows.UpdateWindowText(primary, text)
	} else {
		text, err = stream(deps.Windows, primary, opts.Language, func(onChunk llm.ChunkFunc) (string, error) {
			return deps.Backend.StreamCompletion(ctx, llm.Request{
				Prompt:    opts.Prompt,
				Context:   capture.Context,
				ModelID:   opts.ModelID,
				Provider:  opts.Provider,
				Streaming: opts.Streaming,
			}, onChunk)
		})
		if err != nil {
			return res, err
		}
	}
	res.Text = text
	log.Printf("Session: primary %s received %q", primary, logutil.SanitizeForLog(text))

	if opts.AutoCopy {
		copyText(deps.Clipboard, text)
	}

	if !opts.Retranslate || strings.TrimSpace(opts.RetranslateTo) == "" {
		return res, nil
	}

	req := overlay.WindowRequest{
		Rect:      capture.Rect,
		Role:      placement.RoleSecondary,
		Context:   llm.Context{},
		ModelID:   opts.RetranslateModel,
		Streaming: opts.RetranslateStreaming,
	}
	if !opts.RetranslateRect.Empty() {
		req.Rect = opts.RetranslateRect
		req.Role = placement.RoleSecondaryExplicit
	}
	secondary, err := deps.Windows.CreateResultWindow(req)
	if err != nil {
		return res, fmt.Errorf("open secondary window: %w", err)
	}
	res.Secondary = secondary
	if err := deps.Windows.LinkWindows(primary, secondary); err != nil {
		log.Printf("Session: %v", err)
	}

	translation, err := stream(deps.Windows, secondary, opts.Language, func(onChunk llm.ChunkFunc) (string, error) {
		return deps.Backend.Translate(ctx, text, opts.RetranslateTo, opts.RetranslateModel, "", opts.RetranslateStreaming, onChunk)
	})
	if err != nil {
		return res, err
	}
	res.Translation = translation

	if opts.RetranslateAutoCopy {
		copyText(deps.Clipboard, translation)
	}
	return res, nil
}

// stream runs call, sending the accumulated text to id after every chunk.
// Failures are written into the window as a readable message.
func stream(w Windows, id messages.WindowID, lang string, call func(llm.ChunkFunc) (string, error)) (string, error) {
	var acc strings.Builder
	text, err := call(func(delta string) {
		acc.WriteString(delta)
		if err := w.UpdateWindowText(id, acc.String()); err != nil {
			log.Printf("Session: update %s: %v", id, err)
		}
	})
	if err != nil {
		log.Printf("Session: %s failed: %v", id, err)
		w.UpdateWindowText(id, llm.ErrorMessage(err, lang))
		return "", err
	}
	if text != acc.String() {
		w.UpdateWindowText(id, text)
	}
	return text, nil
}

func copyText(c Clipboard, text string) {
	if c == nil || text == "" {
		return
	}
	if err := c.Write(text); err != nil {
		log.Printf("Session: auto-copy failed: %v", err)
	}
}
