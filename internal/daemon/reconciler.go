// Package daemon runs the background upkeep of a host process.
package daemon

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/1broseidon/winhost/internal/window"
	"github.com/1broseidon/winhost/internal/windowstate"
)

// WindowLister returns the currently registered windows.
type WindowLister func() []*window.Controller

// StateSaver persists one window state. *windowstate.Store implements it.
type StateSaver interface {
	Save(key string, state windowstate.WindowState) error
}

// Recorder counts checkpoints. It may be nil.
type Recorder interface {
	StateSaved(err error)
	SetWindowsOpen(n int)
}

// CheckpointerConfig holds configuration for the checkpointer.
type CheckpointerConfig struct {
	Interval time.Duration
	Logger   *slog.Logger
}

// Checkpointer periodically persists the state of live windows so a crash
// of the host loses at most one interval of geometry changes.
type Checkpointer struct {
	interval    time.Duration
	listWindows WindowLister
	store       StateSaver
	recorder    Recorder
	logger      *slog.Logger

	mu   sync.Mutex
	last map[string]windowstate.WindowState // state key -> last saved state
}

// NewCheckpointer creates a new checkpointer with the given configuration.
func NewCheckpointer(cfg CheckpointerConfig, store StateSaver, listWindows WindowLister, recorder Recorder) *Checkpointer {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Checkpointer{
		interval:    interval,
		listWindows: listWindows,
		store:       store,
		recorder:    recorder,
		logger:      logger,
		last:        make(map[string]windowstate.WindowState),
	}
}

// Run starts the checkpoint loop. Blocks until context is cancelled.
func (c *Checkpointer) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.logger.Info("checkpointer started", "interval", c.interval)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("checkpointer stopped")
			return
		case <-ticker.C:
			c.checkpoint()
		}
	}
}

// checkpoint performs a single pass and returns how many states were
// written.
func (c *Checkpointer) checkpoint() (saved int) {
	// Recover from panics to prevent crashing the host
	defer func() {
		if err := recover(); err != nil {
			c.logger.Error("checkpointer panic recovered", "error", err)
		}
	}()

	windows := c.listWindows()
	live := 0
	seen := make(map[string]struct{}, len(windows))
	for _, w := range windows {
		if !w.Valid() {
			continue
		}
		live++
		key := w.StateKey()
		if _, dup := seen[key]; dup {
			// Windows sharing a key overwrite each other; the oldest wins.
			continue
		}
		seen[key] = struct{}{}

		state := w.SerializeState()
		c.mu.Lock()
		prev, ok := c.last[key]
		c.mu.Unlock()
		if ok && cmp.Equal(prev, state) {
			continue
		}

		err := c.store.Save(key, state)
		if c.recorder != nil {
			c.recorder.StateSaved(err)
		}
		if err != nil {
			c.logger.Warn("checkpoint: failed to save window state",
				"window_id", w.ID(),
				"key", key,
				"error", err)
			continue
		}
		c.mu.Lock()
		c.last[key] = state.Clone()
		c.mu.Unlock()
		saved++
		c.logger.Debug("checkpoint: saved window state", "window_id", w.ID(), "key", key, "mode", state.Mode)
	}

	if c.recorder != nil {
		c.recorder.SetWindowsOpen(live)
	}
	return saved
}

// CheckpointNow triggers an immediate pass and returns how many states
// were written.
func (c *Checkpointer) CheckpointNow() int {
	return c.checkpoint()
}
