package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/1broseidon/winhost/internal/config"
	"github.com/1broseidon/winhost/internal/content"
	"github.com/1broseidon/winhost/internal/dialog"
	"github.com/1broseidon/winhost/internal/fullscreen"
	"github.com/1broseidon/winhost/internal/metrics"
	"github.com/1broseidon/winhost/internal/platform"
	"github.com/1broseidon/winhost/internal/recovery"
	"github.com/1broseidon/winhost/internal/surface"
	"github.com/1broseidon/winhost/internal/window"
	"github.com/1broseidon/winhost/internal/windows"
	"github.com/1broseidon/winhost/internal/windowstate"
)

// LevelTrace sits below debug and logs every surface envelope.
const LevelTrace = slog.LevelDebug - 4

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newLogger(w io.Writer, level *slog.LevelVar) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}))
}

// hostBackend is the windowing backend together with its event pump.
type hostBackend struct {
	platform.Backend
	run  func()
	stop func()
	kind config.Backend
}

func openBackend(cfg *config.Config, logger *slog.Logger) (*hostBackend, error) {
	if cfg.Display != "" {
		os.Setenv("DISPLAY", cfg.Display)
	}
	switch cfg.Backend {
	case config.BackendHeadless:
		return headlessBackend(), nil
	case config.BackendX11:
		return x11Backend()
	default:
		b, err := x11Backend()
		if err != nil {
			logger.Warn("no X11 display, falling back to headless windows", "error", err)
			return headlessBackend(), nil
		}
		return b, nil
	}
}

func x11Backend() (*hostBackend, error) {
	b, err := platform.NewLinuxBackendFromDisplay()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to display: %w", err)
	}
	var once sync.Once
	return &hostBackend{
		Backend: b,
		run:     b.EventLoop,
		stop: func() {
			once.Do(func() {
				b.StopEventLoop()
				b.Disconnect()
			})
		},
		kind: config.BackendX11,
	}, nil
}

func headlessBackend() *hostBackend {
	b := platform.NewMemoryBackend(platform.Display{
		ID:      1,
		Name:    "headless",
		Bounds:  platform.Rect{Width: 1920, Height: 1080},
		Usable:  platform.Rect{Width: 1920, Height: 1080},
		Primary: true,
	})
	done := make(chan struct{})
	var once sync.Once
	return &hostBackend{
		Backend: b,
		run:     func() { <-done },
		stop:    func() { once.Do(func() { close(done) }) },
		kind:    config.BackendHeadless,
	}
}

// lifecycle lets recovery end the process.
type lifecycle struct {
	logger *slog.Logger
	quit   context.CancelFunc
	exit   func(int)
}

func (l lifecycle) Kill(code int) {
	l.logger.Error("exiting after unrecoverable window failure", "code", code)
	l.exit(code)
}

func (l lifecycle) Quit() {
	l.logger.Info("quit requested")
	l.quit()
}

// host opens windows from the current configuration.
type host struct {
	ctx      context.Context
	cfg      *config.Holder
	backend  platform.Backend
	dialog   dialog.Service
	life     recovery.Lifecycle
	store    *windowstate.Store
	registry *windows.Registry
	attn     *windows.AttentionRegistry
	metrics  *metrics.Metrics
	logger   *slog.Logger

	// newSurface is replaced in tests.
	newSurface func(cfg *config.Config) (windowSurface, error)
}

type windowSurface interface {
	window.Surface
	Close() error
}

// processSurface starts its process once the window listens to it.
type processSurface struct {
	*surface.Process
}

func (h *host) defaultSurface(cfg *config.Config) (windowSurface, error) {
	if cfg.Surface.Command == "" {
		return surface.NewLoopback(true), nil
	}
	p, err := surface.NewProcess(surface.ProcessOptions{
		Command:           cfg.Surface.Command,
		Args:              cfg.Surface.Args,
		Env:               surfaceEnv(cfg.Surface.Env),
		HeartbeatInterval: cfg.Surface.HeartbeatInterval,
		UnresponsiveAfter: cfg.Surface.UnresponsiveAfter,
		TraceTimeout:      cfg.Surface.TraceTimeout,
		Logger:            h.logger,
	})
	if err != nil {
		return nil, err
	}
	return processSurface{p}, nil
}

// surfaceEnv renders env as KEY=VALUE pairs sorted by key.
func surfaceEnv(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}

func windowOptions(cfg *config.Config, req window.OpenRequest) window.Options {
	opts := window.Options{
		Title:             cfg.Window.Title,
		URL:               cfg.Window.URL,
		ZoomLevel:         cfg.Window.ZoomLevel,
		FullscreenStyle:   fullscreen.Style(cfg.Fullscreen.Style),
		FullscreenTimeout: cfg.Fullscreen.TransitionTimeout,
		RestoreFullscreen: cfg.Window.RestoreFullscreen,
		SampleInterval:    cfg.Health.SampleInterval,
		SamplePeriod:      cfg.Health.SamplePeriod,
		ThresholdPercent:  cfg.Health.ThresholdPercent,
		Modes: recovery.Modes{
			TestRunner: cfg.Modes.TestRunner,
			SmokeTest:  cfg.Modes.SmokeTest,
			DevHost:    cfg.Modes.DevHost,
			TestHost:   cfg.Modes.TestHost,
			Debugging:  cfg.Modes.Debugging,
			DevTools:   cfg.Modes.OpenDevTools,
		},
		PromptTimeout: cfg.Dialog.PromptTimeout,
	}
	if cfg.Modes.DevHost {
		opts.ShowTimeout = cfg.Modes.ShowTimeout
	}
	if req.Workspace != nil {
		opts.StateKey = req.Workspace.ID
	}
	return opts
}

// openWindow is the registry factory.
func (h *host) openWindow(ctx context.Context, req window.OpenRequest) (*window.Controller, error) {
	return h.create(ctx, req, false, nil)
}

func (h *host) create(ctx context.Context, req window.OpenRequest, initial bool, disableExtensions *bool) (*window.Controller, error) {
	cfg := h.cfg.Get()
	surf, err := h.newSurface(cfg)
	if err != nil {
		return nil, fmt.Errorf("create surface: %w", err)
	}

	c, err := window.New(ctx, windowOptions(cfg, req), window.Deps{
		Backend:   h.backend,
		Surface:   surf,
		Dialog:    h.dialog,
		Lifecycle: h.life,
		Opener:    h.registry,
		Attention: h.attn,
		Store:     h.store,
		Reporter:  h.metrics,
		Recorder:  h.metrics,
		Logger:    h.logger,
	})
	if err != nil {
		_ = surf.Close()
		return nil, err
	}
	c.OnDidDestroy(func() {
		if err := surf.Close(); err != nil {
			h.logger.Debug("surface close", "window_id", c.ID(), "error", err)
		}
	})

	if p, ok := surf.(processSurface); ok {
		if err := p.Start(h.ctx); err != nil {
			c.Destroy(ctx, false, false)
			return nil, fmt.Errorf("start surface: %w", err)
		}
	}

	err = c.Load(content.Configuration{
		Workspace:         req.Workspace,
		ForceEmpty:        req.ForceEmpty,
		RemoteAuthority:   req.RemoteAuthority,
		UserEnv:           req.UserEnv,
		IsInitialStartup:  initial,
		DisableExtensions: disableExtensions,
	}, window.LoadOptions{})
	if err != nil {
		c.Destroy(ctx, false, false)
		return nil, fmt.Errorf("load window: %w", err)
	}
	return c, nil
}

// workspaceFromPath identifies a folder or a .code-workspace style file.
func workspaceFromPath(path string) (*content.Workspace, error) {
	if path == "" {
		return nil, nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("workspace: %w", err)
	}
	kind := content.WorkspaceFolder
	if !info.IsDir() {
		kind = content.WorkspaceFile
	}
	uri := "file://" + filepath.ToSlash(abs)
	return &content.Workspace{
		// IDs double as state keys, so they must be file-name safe.
		ID:   uuid.NewSHA1(uuid.NameSpaceURL, []byte(uri)).String(),
		Kind: kind,
		URI:  uri,
	}, nil
}
