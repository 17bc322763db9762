// Package surface talks to the content surface rendered inside a host
// window. The surface runs as a separate process and exchanges JSON lines
// with the host over its standard streams.
package surface

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// FailureKind classifies a health signal from the content surface.
type FailureKind string

const (
	KindUnresponsive FailureKind = "unresponsive"
	KindProcessGone  FailureKind = "process_gone"
	KindLoadFailed   FailureKind = "load_failed"
	KindResponsive   FailureKind = "responsive"
)

// Valid reports whether k is a known kind.
func (k FailureKind) Valid() bool {
	switch k {
	case KindUnresponsive, KindProcessGone, KindLoadFailed, KindResponsive:
		return true
	}
	return false
}

// FailureEvent is a health signal. Reason and ExitCode are only set for
// KindProcessGone and KindLoadFailed.
type FailureEvent struct {
	Kind     FailureKind `json:"kind"`
	Reason   string      `json:"reason,omitempty"`
	ExitCode int         `json:"exit_code,omitempty"`
}

func (e FailureEvent) String() string {
	switch e.Kind {
	case KindProcessGone, KindLoadFailed:
		return fmt.Sprintf("%s (reason: %s, code: %d)", e.Kind, e.Reason, e.ExitCode)
	default:
		return string(e.Kind)
	}
}

// Process-gone reasons.
const (
	ReasonCleanExit    = "clean-exit"
	ReasonAbnormalExit = "abnormal-exit"
	ReasonKilled       = "killed"
	ReasonCrashed      = "crashed"
	ReasonLaunchFailed = "launch-failed"
)

// Message is an application message exchanged with the surface.
type Message struct {
	Channel string            `json:"channel"`
	Args    []json.RawMessage `json:"args,omitempty"`
}

// Listener receives notifications from a surface. Callbacks run on the
// surface's reader goroutine and must not block.
type Listener struct {
	OnFailure       func(FailureEvent)
	OnDidFinishLoad func()
	OnReady         func()
	OnMessage       func(Message)
}

func (l Listener) failure(ev FailureEvent) {
	if l.OnFailure != nil {
		l.OnFailure(ev)
	}
}

func (l Listener) didFinishLoad() {
	if l.OnDidFinishLoad != nil {
		l.OnDidFinishLoad()
	}
}

func (l Listener) ready() {
	if l.OnReady != nil {
		l.OnReady()
	}
}

func (l Listener) message(m Message) {
	if l.OnMessage != nil {
		l.OnMessage(m)
	}
}

var (
	// ErrClosed is returned by surface operations after Close.
	ErrClosed = errors.New("surface is closed")
	// ErrNoTrace is returned when a diagnostic trace could not be captured.
	ErrNoTrace = errors.New("no diagnostic trace available")
)
