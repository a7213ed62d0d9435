package runtimeinit

import (
	"context"
	"fmt"
	"log"
	"time"

	"screen-translate-overlay/src/clipboard"
	"screen-translate-overlay/src/config"
	"screen-translate-overlay/src/llm"
	"screen-translate-overlay/src/logutil"
	"screen-translate-overlay/src/overlay"
	"screen-translate-overlay/src/worker"
)

type Options struct {
	LoadOptions  config.LoadOptions
	SetupLogging func(bool)
	// PingBackend checks the key with a tiny request before windows open.
	PingBackend bool
}

// Runtime holds the long-lived collaborators shared by every mode.
type Runtime struct {
	Config *config.Config
	Client *llm.Client
}

// Bootstrap loads configuration, sets up logging and builds the backend client.
// A missing API key is not fatal: the first request reports it inside the
// result window.
func Bootstrap(ctx context.Context, opts Options) (*Runtime, error) {
	cfg, err := config.LoadWithOptions(opts.LoadOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if opts.SetupLogging != nil {
		opts.SetupLogging(cfg.EnableFileLogging)
	}

	if cfg.APIKey == "" {
		log.Printf("Runtime: no API key (checked %s and OPENROUTER_API_KEY)", cfg.APIKeyPath)
	} else {
		log.Printf("Runtime: using API key %s", logutil.RedactKey(cfg.APIKey))
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("MODEL is required. Please set it in your .env file")
	}

	client := llm.New(llm.Config{
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		Providers:   cfg.Providers,
		RefineModel: cfg.RefineModel,
		Endpoint:    cfg.Endpoint,
		Timeout:     cfg.RequestTimeout,
	}, cfg.Catalog)

	if opts.PingBackend && cfg.APIKey != "" {
		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx); err != nil {
			return nil, fmt.Errorf("startup check failed: %w", err)
		}
		log.Printf("Runtime: backend ping succeeded")
	}

	if err := clipboard.Init(); err != nil {
		log.Printf("Runtime: clipboard unavailable, copy will fail silently: %v", err)
	}

	return &Runtime{Config: cfg, Client: client}, nil
}

// OverlayConfig maps configuration onto the window manager's settings.
func (rt *Runtime) OverlayConfig() overlay.Config {
	oc := overlay.DefaultConfig()
	oc.FrameRate = rt.Config.FrameRate
	oc.TextUpdateHz = rt.Config.TextUpdateHz
	oc.Language = rt.Config.UILanguage
	oc.LogMessages = rt.Config.EnableFileLogging
	return oc
}

// StartOverlay builds the worker pool and window manager. Closing the pool is
// the caller's job once every window is gone.
func (rt *Runtime) StartOverlay(ctx context.Context, surfaces overlay.SurfaceFactory) (*overlay.Manager, *worker.Pool, error) {
	pool := worker.New(4, 8)
	mgr, err := overlay.NewManager(ctx, rt.OverlayConfig(), overlay.Deps{
		Surfaces:  surfaces,
		Backend:   rt.Client,
		Pool:      pool,
		Clipboard: clipboard.Writer{},
	})
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return mgr, pool, nil
}
