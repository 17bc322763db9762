// Package dialog shows modal choices to the user on behalf of a window.
package dialog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/term"
)

// Options describes a choice prompt.
type Options struct {
	// WindowID associates the prompt with the window it is modal to.
	WindowID string
	Title    string
	Message  string
	Detail   string
	Buttons  []string
	// CancelID is the response used when the prompt is dismissed.
	CancelID int
	// CheckboxLabel adds a checkbox when set.
	CheckboxLabel string
}

// Result is the user's answer.
type Result struct {
	Response        int
	CheckboxChecked bool
}

// Service shows prompts.
type Service interface {
	PromptChoice(ctx context.Context, opts Options) (Result, error)
}

// Func adapts a function to Service.
type Func func(ctx context.Context, opts Options) (Result, error)

func (f Func) PromptChoice(ctx context.Context, opts Options) (Result, error) {
	return f(ctx, opts)
}

// Modes accepted by New.
const (
	ModeDetect   = "detect"
	ModeTerminal = "terminal"
	ModeAuto     = "auto"
)

// New returns the service for mode. ModeDetect uses the terminal when stdin
// and stdout are TTYs and the auto responder otherwise.
func New(mode string, autoResponse int, logger *slog.Logger) (Service, error) {
	switch mode {
	case "", ModeDetect:
		if IsInteractive() {
			return NewTerminal(), nil
		}
		return NewAuto(autoResponse, false, logger), nil
	case ModeTerminal:
		return NewTerminal(), nil
	case ModeAuto:
		return NewAuto(autoResponse, false, logger), nil
	default:
		return nil, fmt.Errorf("unknown dialog mode %q", mode)
	}
}

// IsInteractive reports whether both stdin and stdout are terminals.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// Auto answers every prompt with a fixed response.
type Auto struct {
	response int
	checkbox bool
	logger   *slog.Logger

	mu      sync.Mutex
	prompts []Options
}

// NewAuto creates an Auto responder.
func NewAuto(response int, checkbox bool, logger *slog.Logger) *Auto {
	if logger == nil {
		logger = slog.Default()
	}
	return &Auto{response: response, checkbox: checkbox, logger: logger}
}

func (a *Auto) PromptChoice(ctx context.Context, opts Options) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	a.mu.Lock()
	a.prompts = append(a.prompts, opts)
	a.mu.Unlock()

	resp := a.response
	if resp < 0 || resp >= len(opts.Buttons) {
		resp = opts.CancelID
	}
	label := ""
	if resp >= 0 && resp < len(opts.Buttons) {
		label = opts.Buttons[resp]
	}
	a.logger.Info("answering prompt automatically",
		"window_id", opts.WindowID,
		"message", opts.Message,
		"response", label)
	return Result{Response: resp, CheckboxChecked: a.checkbox && opts.CheckboxLabel != ""}, nil
}

// Prompts returns every prompt answered so far.
func (a *Auto) Prompts() []Options {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Options(nil), a.prompts...)
}
