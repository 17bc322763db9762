package content

import (
	"log/slog"
	"maps"
	"os"
	"sync"
	"time"

	"github.com/1broseidon/winhost/internal/platform"
)

// ConfigChannel is the surface channel the prepared configuration is sent on.
const ConfigChannel = "window:config"

// Publisher hands a prepared configuration to the content surface.
type Publisher interface {
	Send(channel string, args ...any) error
}

// SplashProvider returns the splash hint for a workspace. It may return nil.
type SplashProvider interface {
	SplashFor(ws *Workspace) *Splash
}

// Metrics is a snapshot of the window a configuration is stamped with.
type Metrics struct {
	Handle     platform.WindowID
	Bounds     platform.Rect
	Fullscreen bool
	Maximized  bool
	ZoomLevel  float64
	CustomZoom bool
}

// Options configures a LoadController.
type Options struct {
	Publisher Publisher
	Splash    SplashProvider
	// DevHost marks an extension development host, whose user environment
	// is always carried over.
	DevHost bool
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
	// Exists reports whether a local workspace path exists. Defaults to
	// os.Stat.
	Exists func(path string) bool
	Logger *slog.Logger
	Now    func() time.Time
}

// LoadController holds the committed and pending configurations.
//
// A configuration is committed right away for the first load. Later loads
// stage it as pending until the surface reports the load finished, since the
// navigation may still be vetoed and the committed configuration describes
// what is on screen.
type LoadController struct {
	opts   Options
	logger *slog.Logger

	mu        sync.Mutex
	committed *Configuration
	pending   *Configuration
	marks     []PerfMark
}

// NewLoadController creates a LoadController.
func NewLoadController(opts Options) *LoadController {
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}
	if opts.Exists == nil {
		opts.Exists = func(path string) bool {
			_, err := os.Stat(path)
			return err == nil
		}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &LoadController{opts: opts, logger: logger}
}

// Mark records a performance mark stamped into later configurations.
func (lc *LoadController) Mark(name string) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	lc.marks = append(lc.marks, PerfMark{Name: name, StartTime: lc.opts.Now().UnixMilli()})
}

// Prepare merges incoming with the environment of the current configuration,
// stamps it with metrics and publishes it. disableExtensions applies to this
// load only and is not kept by Commit or Stage.
func (lc *LoadController) Prepare(incoming Configuration, metrics Metrics, disableExtensions *bool) Configuration {
	cfg := incoming.Clone()

	lc.mu.Lock()
	var current map[string]string
	switch {
	case lc.committed != nil:
		current = lc.committed.UserEnv
	case lc.pending != nil:
		current = lc.pending.UserEnv
	}
	lc.mu.Unlock()

	if len(current) > 0 {
		keepCLI := LaunchedFromCLI(current) && !LaunchedFromCLI(cfg.UserEnv)
		if keepCLI || lc.opts.DevHost {
			merged := maps.Clone(current)
			maps.Copy(merged, cfg.UserEnv)
			cfg.UserEnv = merged
		}
	}

	if pipe := lc.opts.Getenv(CrashPipeVar); pipe != "" {
		if cfg.UserEnv == nil {
			cfg.UserEnv = make(map[string]string)
		}
		cfg.UserEnv[CrashPipeVar] = pipe
	}

	cfg.DisableExtensions = nil
	if disableExtensions != nil {
		v := *disableExtensions
		cfg.DisableExtensions = &v
	}

	cfg.Handle = metrics.Handle
	cfg.Bounds = metrics.Bounds
	cfg.Fullscreen = metrics.Fullscreen
	cfg.Maximized = metrics.Maximized
	cfg.ZoomLevel = metrics.ZoomLevel
	cfg.IsCustomZoomLevel = metrics.CustomZoom
	cfg.Splash = nil
	if lc.opts.Splash != nil {
		cfg.Splash = lc.opts.Splash.SplashFor(cfg.Workspace)
	}
	if cfg.IsCustomZoomLevel && cfg.Splash != nil {
		z := cfg.ZoomLevel
		cfg.Splash.ZoomLevel = &z
	}

	lc.Mark("winhost/willOpenNewWindow")
	lc.mu.Lock()
	cfg.PerfMarks = append([]PerfMark(nil), lc.marks...)
	lc.mu.Unlock()

	if lc.opts.Publisher != nil {
		if err := lc.opts.Publisher.Send(ConfigChannel, cfg); err != nil {
			lc.logger.Warn("failed to publish window configuration", "error", err)
		}
	}
	return cfg
}

func stored(cfg Configuration) *Configuration {
	c := cfg.Clone()
	c.DisableExtensions = nil
	return &c
}

// Commit makes cfg the on-screen configuration.
func (lc *LoadController) Commit(cfg Configuration) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	lc.committed = stored(cfg)
}

// Stage keeps cfg until DidFinishLoad.
func (lc *LoadController) Stage(cfg Configuration) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	lc.pending = stored(cfg)
}

// DidFinishLoad promotes the pending configuration. It reports whether
// there was one.
func (lc *LoadController) DidFinishLoad() bool {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	if lc.pending == nil {
		return false
	}
	lc.committed = lc.pending
	lc.pending = nil
	return true
}

// Committed returns the on-screen configuration.
func (lc *LoadController) Committed() (Configuration, bool) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	if lc.committed == nil {
		return Configuration{}, false
	}
	return lc.committed.Clone(), true
}

// Pending returns the configuration waiting for load completion.
func (lc *LoadController) Pending() (Configuration, bool) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	if lc.pending == nil {
		return Configuration{}, false
	}
	return lc.pending.Clone(), true
}

// Workspace returns the workspace of the committed configuration, falling
// back to the pending one.
func (lc *LoadController) Workspace() *Workspace {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	var ws *Workspace
	switch {
	case lc.committed != nil:
		ws = lc.committed.Workspace
	case lc.pending != nil:
		ws = lc.pending.Workspace
	}
	if ws == nil {
		return nil
	}
	out := *ws
	return &out
}

// ReloadArgs are command line options of a reload request.
type ReloadArgs struct {
	Dev               DevArgs
	DisableExtensions *bool
}

// ForReload derives the configuration for reloading the committed one.
// One-shot requests are dropped, a local workspace that no longer exists is
// removed, and development hosts inherit the development arguments of cli.
func (lc *LoadController) ForReload(cli *ReloadArgs) (Configuration, bool) {
	cfg, ok := lc.Committed()
	if !ok {
		return Configuration{}, false
	}

	if cfg.Workspace != nil {
		if path, local := cfg.Workspace.LocalPath(); local && !lc.opts.Exists(path) {
			lc.logger.Warn("workspace no longer exists, reloading as empty window",
				"workspace", cfg.Workspace.URI)
			cfg.Workspace = nil
		}
	}

	cfg.FilesToOpen = nil
	cfg.FilesToDiff = nil
	cfg.FilesToMerge = nil
	cfg.FilesToWait = nil

	if lc.opts.DevHost && cli != nil {
		cfg.Dev = cli.Dev
		cfg.Dev.ExtensionEnvironment = maps.Clone(cli.Dev.ExtensionEnvironment)
	}
	cfg.IsInitialStartup = false
	return cfg, true
}
