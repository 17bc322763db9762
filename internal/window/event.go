package window

import "sync"

// event is a typed observer list. Handlers run synchronously on the
// emitting goroutine in subscription order.
type event[T any] struct {
	mu       sync.Mutex
	next     int
	handlers []handler[T]
}

type handler[T any] struct {
	id int
	fn func(T)
}

func (e *event[T]) subscribe(fn func(T)) (unsubscribe func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.next
	e.next++
	e.handlers = append(e.handlers, handler[T]{id: id, fn: fn})
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		for i, h := range e.handlers {
			if h.id == id {
				e.handlers = append(e.handlers[:i:i], e.handlers[i+1:]...)
				return
			}
		}
	}
}

func (e *event[T]) emit(v T) {
	e.mu.Lock()
	fns := make([]func(T), len(e.handlers))
	for i, h := range e.handlers {
		fns[i] = h.fn
	}
	e.mu.Unlock()
	for _, fn := range fns {
		fn(v)
	}
}

func (e *event[T]) clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = nil
}
