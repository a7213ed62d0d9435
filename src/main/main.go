package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"screen-translate-overlay/src/clipboard"
	"screen-translate-overlay/src/config"
	"screen-translate-overlay/src/eventloop"
	"screen-translate-overlay/src/llm"
	"screen-translate-overlay/src/logutil"
	"screen-translate-overlay/src/messages"
	"screen-translate-overlay/src/overlay"
	"screen-translate-overlay/src/runtimeinit"
	"screen-translate-overlay/src/screenshot"
	"screen-translate-overlay/src/session"
	"screen-translate-overlay/src/singleinstance"
	"screen-translate-overlay/src/tray"
)

const appTitle = "Screen Translate Overlay"

type mainOptions struct {
	imagePath   string
	audioPath   string
	text        string
	rect        string
	retranslate string
	headless    bool
	dumpDir     string
	apiKeyPath  string
	envPath     string
	ping        bool
	dismissAll  bool
}

func (o mainOptions) oneShot() bool {
	return o.imagePath != "" || o.audioPath != "" || o.text != ""
}

func main() {
	// Native overlay windows must be created with DPI awareness already set.
	enableDPIAwareness()

	cmd := newRootCmd(&mainOptions{})
	cmd.SetArgs(normalizeLegacyArgs(os.Args)[1:])
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(opts *mainOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "screen-translate-overlay",
		Short:         "Capture, translate and refine screen text in floating overlay windows",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), *opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.imagePath, "image", "", "Process a PNG file once instead of running resident")
	f.StringVar(&opts.audioPath, "audio", "", "Process a WAV file once instead of running resident")
	f.StringVar(&opts.text, "text", "", "Show text in a result window without querying the model")
	f.StringVar(&opts.rect, "rect", "", "Window rectangle as x,y,w,h (overrides CAPTURE_RECT)")
	f.StringVar(&opts.retranslate, "retranslate", "", "Also translate the result into this language")
	f.BoolVar(&opts.headless, "headless", false, "Render off-screen and dismiss windows once the result is in")
	f.StringVar(&opts.dumpDir, "dump-dir", "", "With --headless, write each window's last frame as PNG here")
	f.StringVar(&opts.apiKeyPath, "api-key-path", "", "Path to API key file (highest precedence)")
	f.StringVar(&opts.envPath, "env", "", "Path to a .env file")
	f.BoolVar(&opts.ping, "ping", false, "Check the API key before opening windows")
	f.BoolVar(&opts.dismissAll, "dismiss-all", false, "Ask the running instance to close all windows")
	cmd.MarkFlagsMutuallyExclusive("image", "audio", "text")

	return cmd
}

func run(ctx context.Context, opts mainOptions) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !opts.oneShot() && !opts.headless {
		if delegated, err := forwardToResident(ctx, opts); delegated {
			return err
		}
	}
	if opts.dismissAll {
		return errors.New("no running instance")
	}

	rt, err := runtimeinit.Bootstrap(ctx, runtimeinit.Options{
		LoadOptions: config.LoadOptions{
			APIKeyPathOverride:  opts.apiKeyPath,
			CaptureRectOverride: opts.rect,
			RetranslateTo:       opts.retranslate,
			EnvPath:             opts.envPath,
		},
		SetupLogging: logutil.Setup,
		PingBackend:  opts.ping,
	})
	if err != nil {
		return err
	}
	logMonitorConfiguration()

	surfaces, err := surfaceFactory(opts)
	if err != nil {
		return err
	}
	mgr, pool, err := rt.StartOverlay(ctx, surfaces)
	if err != nil {
		return err
	}
	defer pool.Close()

	if opts.oneShot() {
		_, err := runOneShot(ctx, rt.Config, opts, rt.Client, mgr)
		return err
	}
	if opts.headless {
		return errors.New("resident mode needs the native overlay; use --headless with --image, --audio or --text")
	}
	return runResident(ctx, rt, mgr, pool)
}

// forwardToResident hands the launch to an already running instance.
func forwardToResident(ctx context.Context, opts mainOptions) (bool, error) {
	cmd := singleinstance.CommandCapture
	if opts.dismissAll {
		cmd = singleinstance.CommandDismissAll
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	delegated, err := singleinstance.Forward(ctx, cmd)
	if delegated {
		log.Printf("Main: forwarded %s to running instance", cmd)
	}
	return delegated, err
}

func surfaceFactory(opts mainOptions) (overlay.SurfaceFactory, error) {
	if opts.headless {
		return overlay.HeadlessFactory(opts.dumpDir), nil
	}
	f, err := overlay.NativeFactory()
	if err != nil {
		return nil, fmt.Errorf("%w (run with --headless)", err)
	}
	return f, nil
}

func sessionOptions(cfg *config.Config) session.Options {
	return session.Options{
		Prompt:               cfg.Prompt,
		ModelID:              cfg.Model,
		Streaming:            cfg.Streaming,
		AutoCopy:             cfg.AutoCopy,
		Language:             cfg.UILanguage,
		Retranslate:          cfg.Retranslate,
		RetranslateTo:        cfg.RetranslateTo,
		RetranslateModel:     cfg.RetranslateModel,
		RetranslateStreaming: cfg.RetranslateStreaming,
		RetranslateAutoCopy:  cfg.RetranslateAutoCopy,
	}
}

// loadCapture reads the one-shot input and picks the primary window rectangle.
func loadCapture(cfg *config.Config, opts mainOptions, display image.Rectangle) (session.Capture, error) {
	var c session.Capture
	size := image.Pt(420, 220)

	switch {
	case opts.imagePath != "":
		data, px, err := screenshot.LoadPNG(opts.imagePath)
		if err != nil {
			return c, err
		}
		c.Context = llm.Image(data)
		size = px
	case opts.audioPath != "":
		data, err := os.ReadFile(opts.audioPath)
		if err != nil {
			return c, fmt.Errorf("read audio: %w", err)
		}
		info, err := llm.ValidateWAV(data)
		if err != nil {
			return c, fmt.Errorf("%s: %w", opts.audioPath, err)
		}
		log.Printf("Main: audio %s, %d Hz, %d ch, %v", opts.audioPath, info.SampleRate, info.Channels, info.Duration)
		c.Context = llm.Audio(data)
	default:
		c.Text = opts.text
	}

	c.Rect = cfg.CaptureRect
	if c.Rect.Empty() {
		c.Rect = centered(display, size)
	}
	return c, nil
}

// centered returns a rectangle of size centred in display, shrunk to fit.
func centered(display image.Rectangle, size image.Point) image.Rectangle {
	if size.X > display.Dx()*3/4 {
		size.X = display.Dx() * 3 / 4
	}
	if size.Y > display.Dy()*3/4 {
		size.Y = display.Dy() * 3 / 4
	}
	origin := display.Min.Add(image.Pt((display.Dx()-size.X)/2, (display.Dy()-size.Y)/2))
	return image.Rectangle{Min: origin, Max: origin.Add(size)}
}

func runOneShot(ctx context.Context, cfg *config.Config, opts mainOptions, backend session.Backend, mgr *overlay.Manager) (session.Result, error) {
	display, err := screenshot.GetDisplayBounds()
	if err != nil {
		display = image.Rect(0, 0, 1920, 1080)
	}
	capture, err := loadCapture(cfg, opts, display)
	if err != nil {
		return session.Result{}, err
	}

	res, err := session.Execute(ctx, capture, sessionOptions(cfg), session.Deps{
		Backend:   backend,
		Windows:   mgr,
		Clipboard: clipboard.Writer{},
	})
	if err != nil {
		// The error text is already in the window; keep it up until dismissed.
		log.Printf("Main: session failed: %v", err)
	}
	if res.Primary == messages.NoWindow {
		return res, err
	}

	if opts.headless {
		mgr.DismissAll()
	}
	mgr.Wait()
	if opts.headless && err == nil {
		fmt.Print(res.Text)
		if res.Translation != "" {
			fmt.Print("\n" + res.Translation)
		}
	}
	return res, err
}

func runResident(ctx context.Context, rt *runtimeinit.Runtime, mgr *overlay.Manager, pool eventloop.Dispatcher) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg := rt.Config
	tooltip := fmt.Sprintf("%s - Press %s to capture", appTitle, cfg.Hotkey)
	loop := eventloop.New(eventloop.Options{
		Hotkey:      cfg.Hotkey,
		CaptureRect: cfg.CaptureRect,
		Session:     sessionOptions(cfg),
		Tooltip:     tooltip,
	}, eventloop.Deps{
		Backend:     rt.Client,
		Windows:     mgr,
		Clipboard:   clipboard.Writer{},
		Pool:        pool,
		Capture:     screenshot.CaptureRect,
		DefaultRect: screenshot.GetDisplayBounds,
		Status:      tray.SetTooltip,
	})
	if err := loop.StartHotkey(ctx); err != nil {
		return err
	}
	if srv, err := singleinstance.Listen(ctx); err != nil {
		log.Printf("Main: later launches cannot reach this instance: %v", err)
	} else {
		defer srv.Close()
		go singleinstance.Serve(ctx, srv, func(_ context.Context, cmd singleinstance.Command) error {
			if cmd == singleinstance.CommandDismissAll {
				loop.DismissAll()
				return nil
			}
			loop.Trigger()
			return nil
		})
	}
	log.Printf("Main: resident, model %s, hotkey %s", cfg.Model, cfg.Hotkey)

	go func() {
		if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Main: event loop stopped: %v", err)
		}
		tray.Quit()
	}()

	// The tray owns the main thread until Quit.
	runtime.LockOSThread()
	tray.Run(appTitle, tray.Actions{
		OnCapture:    loop.Trigger,
		OnDismissAll: func() { loop.DismissAll() },
		OnQuit:       cancel,
	})
	cancel()
	mgr.DismissAll()
	return nil
}

// normalizeLegacyArgs maps single-dash long flags (-image) to their GNU form.
func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return []string{"screen-translate-overlay"}
	}
	long := map[string]bool{
		"image": true, "audio": true, "text": true, "rect": true, "retranslate": true,
		"headless": true, "dump-dir": true, "api-key-path": true, "env": true, "ping": true,
		"dismiss-all": true,
	}
	normalized := make([]string, len(args))
	copy(normalized, args)
	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		if !strings.HasPrefix(arg, "-") || strings.HasPrefix(arg, "--") {
			continue
		}
		name := strings.SplitN(arg[1:], "=", 2)[0]
		if long[name] {
			normalized[i] = "-" + arg
		}
	}
	return normalized
}
