package mcp

import (
	"github.com/1broseidon/winhost/internal/window"
	"github.com/1broseidon/winhost/internal/windowstate"
)

// WindowInput addresses one window.
type WindowInput struct {
	WindowID string `json:"window_id,omitempty" jsonschema:"Window id (default: the oldest open window)"`
}

// ListWindowsInput is the input for the list_windows tool.
type ListWindowsInput struct{}

// ListWindowsOutput is the output for the list_windows tool.
type ListWindowsOutput struct {
	Windows       []window.Info `json:"windows"`
	Attention     bool          `json:"attention"`
	UptimeSeconds int64         `json:"uptime_seconds"`
}

// ReloadWindowInput is the input for the reload_window tool.
type ReloadWindowInput struct {
	WindowID          string `json:"window_id,omitempty" jsonschema:"Window id (default: the oldest open window)"`
	DisableExtensions *bool  `json:"disable_extensions,omitempty" jsonschema:"Override whether extensions are disabled after the reload"`
}

// SetFullscreenInput is the input for the set_fullscreen tool.
type SetFullscreenInput struct {
	WindowID string `json:"window_id,omitempty" jsonschema:"Window id (default: the oldest open window)"`
	Action   string `json:"action" jsonschema:"One of on, off or toggle"`
}

// FocusWindowInput is the input for the focus_window tool.
type FocusWindowInput struct {
	WindowID string `json:"window_id,omitempty" jsonschema:"Window id (default: the oldest open window)"`
	Mode     string `json:"mode,omitempty" jsonschema:"transfer (default), notify to request attention, or force"`
}

// SimulateFailureInput is the input for the simulate_failure tool.
type SimulateFailureInput struct {
	WindowID string `json:"window_id,omitempty" jsonschema:"Window id (default: the oldest open window)"`
	Kind     string `json:"kind" jsonschema:"One of unresponsive, responsive, process_gone or load_failed"`
	Reason   string `json:"reason,omitempty" jsonschema:"Process-gone reason such as crashed, killed or clean-exit"`
	ExitCode int    `json:"exit_code,omitempty" jsonschema:"Exit code reported with process_gone or load_failed"`
}

// WindowStateOutput is the output for the get_window_state tool.
type WindowStateOutput struct {
	WindowID string                  `json:"window_id"`
	Key      string                  `json:"key"`
	State    windowstate.WindowState `json:"state"`
}

// ActionOutput acknowledges a command.
type ActionOutput struct {
	WindowID string `json:"window_id,omitempty"`
	OK       bool   `json:"ok"`
}
