// Package recovery decides what happens when the content surface of a
// window stops responding, crashes or fails to load.
package recovery

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/1broseidon/winhost/internal/dialog"
	"github.com/1broseidon/winhost/internal/surface"
)

// Target is the window being recovered.
type Target interface {
	// Valid reports whether the window still exists. Responses to prompts
	// are dropped once it returns false.
	Valid() bool
	HasWorkspace() bool
	Destroy(ctx context.Context, reopen, discardEditorState bool)
}

// Sampler collects diagnostic traces while the surface is unresponsive.
type Sampler interface {
	Trigger()
	Stop()
}

// Lifecycle ends the application.
type Lifecycle interface {
	// Kill exits the process immediately with code.
	Kill(code int)
	// Quit starts an orderly shutdown.
	Quit()
}

// Recorder counts failures and decisions. It may be nil.
type Recorder interface {
	WindowError(kind string)
	RecoveryAction(action string)
}

// Modes are the automation and debugging switches that bypass prompts.
type Modes struct {
	// TestRunner: extension tests run from the command line. Failures exit
	// the process with a non-zero code.
	TestRunner bool
	// SmokeTest: failures destroy the window and quit without prompting.
	SmokeTest bool
	// DevHost, TestHost, Debugging and DevTools indicate the surface may be
	// paused in a debugger, so unresponsiveness is expected.
	DevHost   bool
	TestHost  bool
	Debugging bool
	DevTools  bool
}

func (m Modes) mayBeDebugging() bool {
	return m.DevHost || m.TestHost || m.Debugging || m.DevTools
}

// Prompt buttons.
const (
	unresponsiveReopen = 0
	unresponsiveWait   = 2
	goneReopen         = 0
	goneClose          = 1
)

const discardEditorsLabel = "Don't restore editors"

// Options configures a Coordinator.
type Options struct {
	WindowID  string
	Target    Target
	Sampler   Sampler
	Dialog    dialog.Service
	Lifecycle Lifecycle
	Recorder  Recorder
	Modes     Modes
	// PromptTimeout bounds how long a prompt may stay unanswered. Zero
	// waits indefinitely. An unanswered prompt resolves to its cancel
	// button.
	PromptTimeout time.Duration
	Logger        *slog.Logger
}

// Coordinator applies the recovery policy of one window.
type Coordinator struct {
	opts   Options
	logger *slog.Logger

	mu        sync.Mutex
	prompting map[surface.FailureKind]bool
}

// New creates a Coordinator.
func New(opts Options) (*Coordinator, error) {
	if opts.Target == nil {
		return nil, fmt.Errorf("recovery: target is required")
	}
	if opts.Sampler == nil {
		return nil, fmt.Errorf("recovery: sampler is required")
	}
	if opts.Dialog == nil {
		return nil, fmt.Errorf("recovery: dialog service is required")
	}
	if opts.Lifecycle == nil {
		return nil, fmt.Errorf("recovery: lifecycle is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		opts:      opts,
		logger:    logger,
		prompting: make(map[surface.FailureKind]bool),
	}, nil
}

// Handle runs the policy for ev. It blocks while a prompt is outstanding.
func (c *Coordinator) Handle(ctx context.Context, ev surface.FailureEvent) {
	if prompt := c.Assess(ctx, ev); prompt != nil {
		prompt()
	}
}

// Assess applies the immediate part of the policy for ev: sampling is
// started or stopped and the automation fast paths run. When the user has
// to be asked, the returned func shows the prompt and acts on the answer;
// it blocks and may run on another goroutine. Events must be assessed in
// the order they arrive.
func (c *Coordinator) Assess(ctx context.Context, ev surface.FailureEvent) (prompt func()) {
	c.logFailure(ev)
	if c.opts.Recorder != nil {
		c.opts.Recorder.WindowError(string(ev.Kind))
	}

	switch ev.Kind {
	case surface.KindResponsive:
		c.opts.Sampler.Stop()
		return nil
	case surface.KindUnresponsive, surface.KindProcessGone:
		if !c.opts.Target.Valid() {
			return nil
		}
		if c.opts.Modes.TestRunner {
			c.record("exit")
			c.opts.Lifecycle.Kill(1)
			return nil
		}
		if c.opts.Modes.SmokeTest {
			c.record("quit")
			c.opts.Target.Destroy(ctx, false, false)
			c.opts.Lifecycle.Quit()
			return nil
		}
		if ev.Kind == surface.KindProcessGone {
			return func() { c.handleGone(ctx, ev, false) }
		}
		if c.opts.Modes.mayBeDebugging() {
			c.logger.Debug("not prompting for unresponsive window that may be paused in a debugger")
			return nil
		}
		c.opts.Sampler.Trigger()
		return func() { c.handleUnresponsive(ctx) }
	case surface.KindLoadFailed:
		if !c.opts.Target.Valid() {
			return nil
		}
		return func() { c.handleGone(ctx, ev, true) }
	default:
		c.logger.Warn("ignoring unknown failure kind", "kind", ev.Kind)
		return nil
	}
}

func (c *Coordinator) logFailure(ev surface.FailureEvent) {
	switch ev.Kind {
	case surface.KindProcessGone:
		c.logger.Error("content surface process gone", "reason", orUnknown(ev.Reason), "code", ev.ExitCode)
	case surface.KindUnresponsive:
		c.logger.Error("content surface detected unresponsive")
	case surface.KindResponsive:
		c.logger.Error("content surface recovered from unresponsive")
	case surface.KindLoadFailed:
		c.logger.Error("content surface failed to load", "reason", orUnknown(ev.Reason), "code", ev.ExitCode)
	}
}

func (c *Coordinator) handleUnresponsive(ctx context.Context) {
	res, ok := c.prompt(ctx, surface.KindUnresponsive, dialog.Options{
		Title:         "Window Not Responding",
		Message:       "The window is not responding",
		Detail:        "You can reopen or close the window or keep waiting.",
		Buttons:       []string{"Reopen", "Close", "Keep Waiting"},
		CancelID:      unresponsiveWait,
		CheckboxLabel: c.checkboxLabel(),
	})
	if !ok {
		return
	}
	if res.Response == unresponsiveWait {
		c.record("wait")
		return
	}

	reopen := res.Response == unresponsiveReopen
	c.recordDestroy(reopen)
	c.opts.Sampler.Stop()
	c.opts.Target.Destroy(ctx, reopen, res.CheckboxChecked)
}

func (c *Coordinator) handleGone(ctx context.Context, ev surface.FailureEvent, load bool) {
	hasWorkspace := c.opts.Target.HasWorkspace()

	first := "New Window"
	detail := "We are sorry for the inconvenience. You can open a new empty window to start again."
	if hasWorkspace {
		first = "Reopen"
		detail = "We are sorry for the inconvenience. You can reopen the window to continue where you left off."
	}

	var message string
	switch {
	case load:
		message = fmt.Sprintf("The window failed to load (reason: '%s', code: '%d')", orUnknown(ev.Reason), ev.ExitCode)
	case ev.Reason == "":
		message = "The window terminated unexpectedly"
	default:
		message = fmt.Sprintf("The window terminated unexpectedly (reason: '%s', code: '%d')", ev.Reason, ev.ExitCode)
	}

	res, ok := c.prompt(ctx, ev.Kind, dialog.Options{
		Title:         "Window Failure",
		Message:       message,
		Detail:        detail,
		Buttons:       []string{first, "Close"},
		CancelID:      goneClose,
		CheckboxLabel: c.checkboxLabel(),
	})
	if !ok {
		return
	}

	reopen := res.Response == goneReopen
	c.recordDestroy(reopen)
	c.opts.Target.Destroy(ctx, reopen, res.CheckboxChecked)
}

// prompt shows opts unless a prompt for the same kind is already showing.
// ok is false when no action should follow, including when the window went
// away while the prompt was open.
func (c *Coordinator) prompt(ctx context.Context, kind surface.FailureKind, opts dialog.Options) (dialog.Result, bool) {
	c.mu.Lock()
	if c.prompting[kind] {
		c.mu.Unlock()
		c.logger.Debug("prompt already showing", "kind", kind)
		return dialog.Result{}, false
	}
	c.prompting[kind] = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.prompting, kind)
		c.mu.Unlock()
	}()

	opts.WindowID = c.opts.WindowID
	promptCtx := ctx
	if c.opts.PromptTimeout > 0 {
		var cancel context.CancelFunc
		promptCtx, cancel = context.WithTimeout(ctx, c.opts.PromptTimeout)
		defer cancel()
	}

	res, err := c.opts.Dialog.PromptChoice(promptCtx, opts)
	if err != nil {
		if ctx.Err() != nil {
			return dialog.Result{}, false
		}
		c.logger.Warn("recovery prompt failed, using cancel response", "error", err)
		res = dialog.Result{Response: opts.CancelID}
	}

	if !c.opts.Target.Valid() {
		c.logger.Debug("window gone while prompt was open, ignoring response", "response", res.Response)
		return dialog.Result{}, false
	}
	return res, true
}

func (c *Coordinator) checkboxLabel() string {
	if c.opts.Target.HasWorkspace() {
		return discardEditorsLabel
	}
	return ""
}

func (c *Coordinator) recordDestroy(reopen bool) {
	if reopen {
		c.record("reopen")
	} else {
		c.record("close")
	}
}

func (c *Coordinator) record(action string) {
	c.logger.Info("recovery decision", "action", action)
	if c.opts.Recorder != nil {
		c.opts.Recorder.RecoveryAction(action)
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "<unknown>"
	}
	return s
}
