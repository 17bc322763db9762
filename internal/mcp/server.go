// Package mcp exposes the host's window controls as Model Context Protocol
// tools. The server runs out of process and forwards every call to the
// running host over its control socket.
package mcp

import (
	"context"
	"fmt"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/winhost/internal/ipc"
	"github.com/1broseidon/winhost/internal/surface"
)

const (
	ServerName    = "winhost"
	ServerVersion = "0.1.0"
)

// Host is the control surface of a running host. *ipc.Client implements it.
type Host interface {
	GetStatus() (*ipc.StatusData, error)
	Reload(windowID string, disableExtensions *bool) error
	Fullscreen(windowID string, action ipc.FullscreenAction) error
	Focus(windowID, mode string) error
	Close(windowID string) error
	SimulateFailure(windowID string, ev surface.FailureEvent) error
	GetState(windowID string) (*ipc.StateData, error)
}

var _ Host = (*ipc.Client)(nil)

// Server is the MCP server for window automation.
type Server struct {
	mcpServer *mcpsdk.Server
	host      Host
	logger    *slog.Logger
}

// NewServer creates a new MCP server forwarding to host.
func NewServer(host Host, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		host:   host,
		logger: logger.With("component", "mcp"),
	}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_windows",
		Description: "List every open host window with its ready state, geometry, fullscreen flag, zoom level and whether its content is being sampled for unresponsiveness.",
	}, s.handleListWindows)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "reload_window",
		Description: "Reload the content of a window from its committed configuration. Fails when the window has not loaded yet.",
	}, s.handleReloadWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "set_fullscreen",
		Description: "Enter, leave or toggle fullscreen for a window.",
	}, s.handleSetFullscreen)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "focus_window",
		Description: "Focus a window. Mode notify requests user attention instead of stealing focus; force also shows hidden windows.",
	}, s.handleFocusWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "close_window",
		Description: "Close a window. Its geometry is persisted before it closes.",
	}, s.handleCloseWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "simulate_failure",
		Description: "Inject a content health signal into a window to exercise crash and hang recovery. Recovery may prompt, reopen, close the window or quit the host.",
	}, s.handleSimulateFailure)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_window_state",
		Description: "Return the geometry and mode a window would persist if it closed now.",
	}, s.handleGetWindowState)
}

func (s *Server) handleListWindows(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListWindowsInput) (*mcpsdk.CallToolResult, ListWindowsOutput, error) {
	status, err := s.host.GetStatus()
	if err != nil {
		return nil, ListWindowsOutput{}, err
	}
	return nil, ListWindowsOutput{
		Windows:       status.Windows,
		Attention:     status.Attention,
		UptimeSeconds: status.UptimeSeconds,
	}, nil
}

func (s *Server) handleReloadWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args ReloadWindowInput) (*mcpsdk.CallToolResult, ActionOutput, error) {
	if err := s.host.Reload(args.WindowID, args.DisableExtensions); err != nil {
		return nil, ActionOutput{}, err
	}
	s.logger.Info("reload requested", "window_id", args.WindowID)
	return nil, ActionOutput{WindowID: args.WindowID, OK: true}, nil
}

func (s *Server) handleSetFullscreen(_ context.Context, _ *mcpsdk.CallToolRequest, args SetFullscreenInput) (*mcpsdk.CallToolResult, ActionOutput, error) {
	action := ipc.FullscreenAction(args.Action)
	switch action {
	case ipc.FullscreenOn, ipc.FullscreenOff, ipc.FullscreenToggle:
	default:
		return nil, ActionOutput{}, fmt.Errorf("action must be one of on, off, toggle; got %q", args.Action)
	}
	if err := s.host.Fullscreen(args.WindowID, action); err != nil {
		return nil, ActionOutput{}, err
	}
	return nil, ActionOutput{WindowID: args.WindowID, OK: true}, nil
}

func (s *Server) handleFocusWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args FocusWindowInput) (*mcpsdk.CallToolResult, ActionOutput, error) {
	if _, err := ipc.ParseFocusMode(args.Mode); err != nil {
		return nil, ActionOutput{}, err
	}
	if err := s.host.Focus(args.WindowID, args.Mode); err != nil {
		return nil, ActionOutput{}, err
	}
	return nil, ActionOutput{WindowID: args.WindowID, OK: true}, nil
}

func (s *Server) handleCloseWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args WindowInput) (*mcpsdk.CallToolResult, ActionOutput, error) {
	if err := s.host.Close(args.WindowID); err != nil {
		return nil, ActionOutput{}, err
	}
	return nil, ActionOutput{WindowID: args.WindowID, OK: true}, nil
}

func (s *Server) handleSimulateFailure(_ context.Context, _ *mcpsdk.CallToolRequest, args SimulateFailureInput) (*mcpsdk.CallToolResult, ActionOutput, error) {
	ev := surface.FailureEvent{
		Kind:     surface.FailureKind(args.Kind),
		Reason:   args.Reason,
		ExitCode: args.ExitCode,
	}
	if !ev.Kind.Valid() {
		return nil, ActionOutput{}, fmt.Errorf("unknown failure kind %q", args.Kind)
	}
	if err := s.host.SimulateFailure(args.WindowID, ev); err != nil {
		return nil, ActionOutput{}, err
	}
	s.logger.Info("failure injected", "window_id", args.WindowID, "event", ev.String())
	return nil, ActionOutput{WindowID: args.WindowID, OK: true}, nil
}

func (s *Server) handleGetWindowState(_ context.Context, _ *mcpsdk.CallToolRequest, args WindowInput) (*mcpsdk.CallToolResult, WindowStateOutput, error) {
	data, err := s.host.GetState(args.WindowID)
	if err != nil {
		return nil, WindowStateOutput{}, err
	}
	return nil, WindowStateOutput{
		WindowID: data.WindowID,
		Key:      data.Key,
		State:    data.State,
	}, nil
}
