package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/1broseidon/winhost/internal/config"
	"github.com/1broseidon/winhost/internal/content"
	"github.com/1broseidon/winhost/internal/daemon"
	"github.com/1broseidon/winhost/internal/dialog"
	"github.com/1broseidon/winhost/internal/ipc"
	"github.com/1broseidon/winhost/internal/metrics"
	"github.com/1broseidon/winhost/internal/runtimepath"
	"github.com/1broseidon/winhost/internal/window"
	"github.com/1broseidon/winhost/internal/windows"
	"github.com/1broseidon/winhost/internal/windowstate"
)

// closeGrace bounds how long shutdown waits for windows to close before
// destroying them.
const closeGrace = 5 * time.Second

func runHost(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	configPath := fs.String("config", "", "Config file path (default: ~/.config/winhost/config.yaml)")
	workspacePath := fs.String("workspace", "", "Folder or workspace file to open")
	logLevel := fs.String("log-level", "", "Override log_level (trace, debug, info, warn, error)")
	headless := fs.Bool("headless", false, "Use in-memory windows instead of X11")
	disableExt := fs.Bool("disable-extensions", false, "Start with extensions disabled")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: winhost run [--config PATH] [--workspace PATH] [--headless] [--log-level LEVEL] [--disable-extensions]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Start the window host in the foreground.")
		fmt.Fprintln(os.Stderr, "")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(os.Stderr, "run takes no arguments")
		return 2
	}

	path := *configPath
	if path == "" {
		p, err := config.DefaultConfigPath()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		path = p
	}
	res, err := config.LoadFromPath(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}
	cfg := res.Config
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *headless {
		cfg.Backend = config.BackendHeadless
	}

	level := new(slog.LevelVar)
	level.Set(parseLevel(cfg.LogLevel))
	logger := newLogger(os.Stderr, level)
	slog.SetDefault(logger)

	ws, err := workspaceFromPath(*workspacePath)
	if err != nil {
		logger.Error("invalid workspace", "path", *workspacePath, "error", err)
		return 2
	}
	var disableExtensions *bool
	if *disableExt {
		disableExtensions = disableExt
	}

	if err := serve(cfg, path, ws, disableExtensions, level, logger); err != nil {
		logger.Error("host stopped with error", "error", err)
		return 1
	}
	return 0
}

func serve(cfg *config.Config, path string, ws *content.Workspace, disableExtensions *bool, level *slog.LevelVar, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	backend, err := openBackend(cfg, logger)
	if err != nil {
		return err
	}
	logger.Info("backend ready", "backend", string(backend.kind))

	stateDir, err := runtimepath.StateDir(cfg.State.Dir)
	if err != nil {
		backend.stop()
		return fmt.Errorf("resolve state dir: %w", err)
	}
	dlg, err := dialog.New(cfg.Dialog.Mode, cfg.Dialog.AutoResponse, logger)
	if err != nil {
		backend.stop()
		return err
	}

	// Surface processes outlive ctx so windows can close cleanly.
	surfaceCtx, stopSurfaces := context.WithCancel(context.Background())
	defer stopSurfaces()

	m := metrics.New()
	holder := config.NewHolder(path, cfg, logger)
	h := &host{
		ctx:     surfaceCtx,
		cfg:     holder,
		backend: backend,
		dialog:  dlg,
		life: lifecycle{
			logger: logger,
			quit:   cancel,
			exit:   os.Exit,
		},
		store:   windowstate.NewStore(stateDir),
		attn:    windows.NewAttentionRegistry(m.SetAttention),
		metrics: m,
		logger:  logger,
	}
	h.newSurface = h.defaultSurface
	h.registry = windows.NewRegistry(h.openWindow, logger)

	holder.OnChange(func(old, next *config.Config) {
		level.Set(parseLevel(next.LogLevel))
		if old.Window.ZoomLevel != next.Window.ZoomLevel {
			for _, c := range h.registry.List() {
				c.SetDefaultZoomLevel(next.Window.ZoomLevel)
			}
		}
		if old.Surface.Command != next.Surface.Command || old.Backend != next.Backend {
			logger.Warn("surface and backend changes apply to new windows or after restart")
		}
	})

	first, err := h.create(ctx, window.OpenRequest{Workspace: ws, ForceEmpty: ws == nil}, true, disableExtensions)
	if err != nil {
		backend.stop()
		return fmt.Errorf("open first window: %w", err)
	}
	h.registry.Add(first)
	m.SetWindowsOpen(h.registry.Len())

	ipcServer, err := ipc.NewServer(ipc.ServerOptions{
		Windows:      h.registry,
		ReloadConfig: holder.Reload,
		Attention:    h.attn.Active,
		Logger:       logger,
	})
	if err != nil {
		h.registry.CloseAll()
		backend.stop()
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ipcServer.Serve(gctx) })
	g.Go(func() error {
		if err := holder.Watch(gctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("config watch stopped", "error", err)
		}
		return nil
	})
	if addr := cfg.Metrics.Listen; addr != "" {
		g.Go(func() error { return m.Serve(gctx, addr, logger) })
	}
	checkpointer := daemon.NewCheckpointer(daemon.CheckpointerConfig{
		Interval: cfg.State.CheckpointInterval,
		Logger:   logger,
	}, h.store, h.registry.List, m)
	if cfg.State.CheckpointInterval > 0 {
		g.Go(func() error {
			checkpointer.Run(gctx)
			return nil
		})
	}
	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-h.registry.Emptied():
			logger.Info("last window closed")
		}
		cancel()
		shutdownWindows(h.registry, logger)
		stopSurfaces()
		backend.stop()
		return nil
	})

	logger.Info("winhost started", "windows", h.registry.Len(), "state_dir", stateDir)
	backend.run()
	cancel()

	err = g.Wait()
	logger.Info("winhost stopped")
	return err
}

// shutdownWindows closes every window, persisting its state, and destroys
// those that did not close in time.
func shutdownWindows(registry *windows.Registry, logger *slog.Logger) {
	registry.CloseAll()
	select {
	case <-registry.Emptied():
	case <-time.After(closeGrace):
		for _, c := range registry.List() {
			logger.Warn("window did not close, destroying", "window_id", c.ID())
			c.Destroy(context.Background(), false, false)
		}
	}
	registry.Wait()
}
