// Package windows tracks the live host windows of the process and opens new
// ones on request.
package windows

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/1broseidon/winhost/internal/window"
)

// ErrNotFound is returned when no window matches a lookup.
var ErrNotFound = errors.New("window not found")

// Factory creates and loads a window for req.
type Factory func(ctx context.Context, req window.OpenRequest) (*window.Controller, error)

// Registry owns the set of live windows.
type Registry struct {
	factory Factory
	logger  *slog.Logger

	mu       sync.Mutex
	windows  map[string]*window.Controller
	order    []string
	emptied  chan struct{}
	signaled bool
}

var _ window.Opener = (*Registry)(nil)

// NewRegistry creates a Registry that opens windows with factory.
func NewRegistry(factory Factory, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		factory: factory,
		logger:  logger,
		windows: make(map[string]*window.Controller),
		emptied: make(chan struct{}),
	}
}

// Open opens a window for req. Unless ForceNewWindow is set, a window that
// already shows the requested workspace is focused and returned instead.
func (r *Registry) Open(ctx context.Context, req window.OpenRequest) (window.Opened, error) {
	c, err := r.OpenWindow(ctx, req)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// OpenWindow is Open returning the controller.
func (r *Registry) OpenWindow(ctx context.Context, req window.OpenRequest) (*window.Controller, error) {
	if !req.ForceNewWindow && req.Workspace != nil {
		if existing, ok := r.findWorkspace(req.Workspace.ID); ok {
			r.logger.Debug("window already open for workspace", "workspace", req.Workspace.ID, "window_id", existing.ID())
			if err := existing.Focus(window.FocusTransfer); err != nil {
				r.logger.Warn("failed to focus window", "window_id", existing.ID(), "error", err)
			}
			return existing, nil
		}
	}
	if r.factory == nil {
		return nil, fmt.Errorf("open window: no factory configured")
	}
	c, err := r.factory(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("open window: %w", err)
	}
	r.Add(c)
	return c, nil
}

func (r *Registry) findWorkspace(id string) (*window.Controller, bool) {
	for _, c := range r.List() {
		if ws := c.Workspace(); ws != nil && ws.ID == id {
			return c, true
		}
	}
	return nil, false
}

// Add registers c. It is removed again once it is destroyed.
func (r *Registry) Add(c *window.Controller) {
	r.mu.Lock()
	if _, ok := r.windows[c.ID()]; ok {
		r.mu.Unlock()
		return
	}
	r.windows[c.ID()] = c
	r.order = append(r.order, c.ID())
	n := len(r.windows)
	r.mu.Unlock()

	id := c.ID()
	c.OnDidDestroy(func() { r.remove(id) })
	r.logger.Info("window opened", "window_id", id, "windows", n)
}

func (r *Registry) remove(id string) {
	r.mu.Lock()
	if _, ok := r.windows[id]; !ok {
		r.mu.Unlock()
		return
	}
	delete(r.windows, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}
	n := len(r.windows)
	if n == 0 && !r.signaled {
		r.signaled = true
		close(r.emptied)
	}
	r.mu.Unlock()

	r.logger.Info("window removed", "window_id", id, "windows", n)
}

// Get returns the window with id.
func (r *Registry) Get(id string) (*window.Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.windows[id]
	return c, ok
}

// Resolve returns the window with id, or the oldest window when id is
// empty.
func (r *Registry) Resolve(id string) (*window.Controller, error) {
	if id != "" {
		if c, ok := r.Get(id); ok {
			return c, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.order) == 0 {
		return nil, ErrNotFound
	}
	return r.windows[r.order[0]], nil
}

// List returns the live windows in the order they were opened.
func (r *Registry) List() []*window.Controller {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*window.Controller, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.windows[id])
	}
	return out
}

// Len returns the number of live windows.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.windows)
}

// Emptied is closed when the last window goes away.
func (r *Registry) Emptied() <-chan struct{} {
	return r.emptied
}

// CloseAll closes every window gracefully, persisting its state.
func (r *Registry) CloseAll() {
	for _, c := range r.List() {
		if err := c.Close(); err != nil && !errors.Is(err, window.ErrDestroyed) {
			r.logger.Warn("failed to close window", "window_id", c.ID(), "error", err)
		}
	}
}

// Wait waits for the background work of every window still registered.
func (r *Registry) Wait() {
	for _, c := range r.List() {
		c.Wait()
	}
}
