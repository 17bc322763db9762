package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 250 * time.Millisecond

// Holder carries the current configuration and reloads it when the file at
// its path changes.
type Holder struct {
	path   string
	logger *slog.Logger

	mu        sync.RWMutex
	current   *Config
	listeners []func(old, next *Config)
}

// NewHolder returns a holder for path seeded with initial.
func NewHolder(path string, initial *Config, logger *slog.Logger) *Holder {
	if logger == nil {
		logger = slog.Default()
	}
	if initial == nil {
		initial = DefaultConfig()
	}
	return &Holder{path: path, current: initial, logger: logger}
}

// Get returns the current configuration. Callers must not modify it.
func (h *Holder) Get() *Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// OnChange registers fn to run after every reload that changed the
// configuration.
func (h *Holder) OnChange(fn func(old, next *Config)) {
	h.mu.Lock()
	h.listeners = append(h.listeners, fn)
	h.mu.Unlock()
}

// Reload loads the file again. An invalid file keeps the current
// configuration.
func (h *Holder) Reload() error {
	res, err := LoadFromPath(h.path)
	if err != nil {
		return fmt.Errorf("reload %s: %w", h.path, err)
	}

	h.mu.Lock()
	old := h.current
	if old.Equal(res.Config) {
		h.mu.Unlock()
		return nil
	}
	h.current = res.Config
	listeners := append([]func(old, next *Config){}, h.listeners...)
	h.mu.Unlock()

	h.logger.Info("configuration reloaded", "path", h.path)
	for _, fn := range listeners {
		fn(old, res.Config)
	}
	return nil
}

// Watch reloads the configuration whenever its file is written until ctx is
// done. The parent directory is watched so editors that replace the file
// atomically are seen.
func (h *Holder) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(h.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	h.logger.Debug("watching configuration", "path", h.path)

	target := filepath.Clean(h.path)
	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, func() {
				if ctx.Err() != nil {
					return
				}
				if err := h.Reload(); err != nil {
					h.logger.Warn("configuration reload failed", "error", err)
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			h.logger.Warn("configuration watcher error", "error", err)
		}
	}
}
