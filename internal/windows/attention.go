package windows

import (
	"slices"
	"sync"
)

// AttentionRegistry aggregates attention requests of all windows into one
// application-wide flag. The flag is raised by the first Acquire and
// lowered when the last holder releases.
type AttentionRegistry struct {
	mu       sync.Mutex
	holders  map[string]int
	onChange func(active bool)
}

// NewAttentionRegistry creates a registry. onChange, if set, is called with
// the registry lock held and must not call back into it.
func NewAttentionRegistry(onChange func(active bool)) *AttentionRegistry {
	return &AttentionRegistry{holders: make(map[string]int), onChange: onChange}
}

// Acquire records a request for windowID. The returned func releases it;
// calling it more than once has no further effect.
func (a *AttentionRegistry) Acquire(windowID string) (release func()) {
	a.mu.Lock()
	wasActive := len(a.holders) > 0
	a.holders[windowID]++
	if !wasActive && a.onChange != nil {
		a.onChange(true)
	}
	a.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { a.release(windowID) })
	}
}

func (a *AttentionRegistry) release(windowID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	n, ok := a.holders[windowID]
	if !ok {
		return
	}
	if n <= 1 {
		delete(a.holders, windowID)
	} else {
		a.holders[windowID] = n - 1
	}
	if len(a.holders) == 0 && a.onChange != nil {
		a.onChange(false)
	}
}

// Active reports whether any window requests attention.
func (a *AttentionRegistry) Active() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.holders) > 0
}

// Holders returns the ids of windows requesting attention, sorted.
func (a *AttentionRegistry) Holders() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	ids := make([]string, 0, len(a.holders))
	for id := range a.holders {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
