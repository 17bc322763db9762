package surface

import (
	"context"
	"sync"
)

// Loopback is an in-process surface that completes every navigation
// immediately. It backs headless runs without a surface command and lets
// operators inject health signals.
type Loopback struct {
	// AutoReady makes every completed load also signal readiness.
	AutoReady bool

	mu       sync.Mutex
	listener Listener
	closed   bool
	urls     []string
	sent     []Message
	trace    string
	wg       sync.WaitGroup
}

// NewLoopback returns a loopback surface.
func NewLoopback(autoReady bool) *Loopback {
	return &Loopback{AutoReady: autoReady}
}

// Listen installs the listener.
func (l *Loopback) Listen(listener Listener) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listener = listener
}

// Navigate records url and reports load completion asynchronously.
func (l *Loopback) Navigate(url string) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	l.urls = append(l.urls, url)
	listener := l.listener
	autoReady := l.AutoReady
	l.wg.Add(1)
	l.mu.Unlock()

	go func() {
		defer l.wg.Done()
		listener.didFinishLoad()
		if autoReady {
			listener.ready()
		}
	}()
	return nil
}

// Send records a message.
func (l *Loopback) Send(channel string, args ...any) error {
	encoded, err := EncodeArgs(args...)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	l.sent = append(l.sent, Message{Channel: channel, Args: encoded})
	return nil
}

// SetTrace sets the trace returned by CaptureTrace.
func (l *Loopback) SetTrace(trace string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.trace = trace
}

// CaptureTrace returns the trace set with SetTrace.
func (l *Loopback) CaptureTrace(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.trace == "" {
		return "", ErrNoTrace
	}
	return l.trace, nil
}

// Inject delivers ev to the listener as if the surface had reported it.
func (l *Loopback) Inject(ev FailureEvent) {
	l.mu.Lock()
	listener := l.listener
	closed := l.closed
	l.mu.Unlock()
	if !closed {
		listener.failure(ev)
	}
}

// URLs returns every navigated URL.
func (l *Loopback) URLs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.urls...)
}

// Sent returns every message sent.
func (l *Loopback) Sent() []Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Message(nil), l.sent...)
}

// Close stops accepting calls and waits for pending notifications.
func (l *Loopback) Close() error {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	l.wg.Wait()
	return nil
}
