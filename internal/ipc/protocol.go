package ipc

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/1broseidon/winhost/internal/surface"
	"github.com/1broseidon/winhost/internal/window"
	"github.com/1broseidon/winhost/internal/windowstate"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandGetStatus       CommandType = "GET_STATUS"
	CommandReload          CommandType = "RELOAD"
	CommandReloadConfig    CommandType = "RELOAD_CONFIG"
	CommandFullscreen      CommandType = "FULLSCREEN"
	CommandFocus           CommandType = "FOCUS"
	CommandClose           CommandType = "CLOSE"
	CommandSimulateFailure CommandType = "SIMULATE_FAILURE"
	CommandGetState        CommandType = "GET_STATE"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// StatusData represents the data returned by GET_STATUS
type StatusData struct {
	Windows       []window.Info `json:"windows"`
	Attention     bool          `json:"attention"`
	UptimeSeconds int64         `json:"uptime_seconds"`
}

// WindowPayload addresses one window. An empty WindowID selects the oldest
// open window.
type WindowPayload struct {
	WindowID string `json:"window_id,omitempty"`
}

type ReloadPayload struct {
	WindowID          string `json:"window_id,omitempty"`
	DisableExtensions *bool  `json:"disable_extensions,omitempty"`
}

// FullscreenAction is on, off or toggle.
type FullscreenAction string

const (
	FullscreenOn     FullscreenAction = "on"
	FullscreenOff    FullscreenAction = "off"
	FullscreenToggle FullscreenAction = "toggle"
)

type FullscreenPayload struct {
	WindowID string           `json:"window_id,omitempty"`
	Action   FullscreenAction `json:"action"`
}

type FocusPayload struct {
	WindowID string `json:"window_id,omitempty"`
	// Mode is transfer, notify or force.
	Mode string `json:"mode,omitempty"`
}

type FailurePayload struct {
	WindowID string              `json:"window_id,omitempty"`
	Event    surface.FailureEvent `json:"event"`
}

// StateData represents the data returned by GET_STATE
type StateData struct {
	WindowID string                  `json:"window_id"`
	Key      string                  `json:"key"`
	State    windowstate.WindowState `json:"state"`
}

// ParseFocusMode maps a wire focus mode to a window focus mode. Empty means
// transfer.
func ParseFocusMode(s string) (window.FocusMode, error) {
	switch s {
	case "", "transfer":
		return window.FocusTransfer, nil
	case "notify":
		return window.FocusNotify, nil
	case "force":
		return window.FocusForce, nil
	default:
		return 0, fmt.Errorf("unknown focus mode %q", s)
	}
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data any) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: "OK",
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: "ERROR",
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
