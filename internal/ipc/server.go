package ipc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/1broseidon/winhost/internal/content"
	"github.com/1broseidon/winhost/internal/runtimepath"
	"github.com/1broseidon/winhost/internal/window"
)

// Windows resolves the windows commands act on.
type Windows interface {
	Resolve(id string) (*window.Controller, error)
	List() []*window.Controller
}

// ServerOptions configures a Server.
type ServerOptions struct {
	// SocketPath defaults to runtimepath.SocketPath().
	SocketPath string
	Windows    Windows
	// ReloadConfig re-reads the configuration file. Nil disables
	// RELOAD_CONFIG.
	ReloadConfig func() error
	// Attention reports the application-wide attention flag.
	Attention func() bool
	Logger    *slog.Logger
}

// Server handles IPC requests from clients
type Server struct {
	socketPath   string
	listener     net.Listener
	windows      Windows
	reloadConfig func() error
	attention    func() bool
	logger       *slog.Logger
	startTime    time.Time

	ctx    context.Context
	cancel context.CancelFunc
	conns  sync.WaitGroup

	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a new IPC server
func NewServer(opts ServerOptions) (*Server, error) {
	if opts.Windows == nil {
		return nil, errors.New("ipc: windows are required")
	}
	socketPath := opts.SocketPath
	if socketPath == "" {
		p, err := runtimepath.SocketPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
		}
		socketPath = p
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Remove existing socket if present
	os.Remove(socketPath)

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		socketPath:   socketPath,
		windows:      opts.Windows,
		reloadConfig: opts.ReloadConfig,
		attention:    opts.Attention,
		logger:       logger.With("component", "ipc"),
		startTime:    time.Now(),
		ctx:          ctx,
		cancel:       cancel,
	}, nil
}

// SocketPath returns the path the server listens on.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	// Set socket permissions
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.logger.Info("IPC server listening", "socket", s.socketPath)

	// Accept connections
	go s.acceptLoop()

	return nil
}

// Serve runs the server until ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return nil
}

// acceptLoop accepts incoming connections
func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("IPC accept error", "error", err)
			continue
		}

		s.conns.Add(1)
		go func() {
			defer s.conns.Done()
			s.handleConnection(conn)
		}()
	}
}

// handleConnection handles a single IPC connection
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)

	// Read the request (expect JSON on a single line)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		s.logger.Warn("IPC read error", "error", err)
		return
	}

	// Parse request
	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	// Handle command
	resp := s.handleCommand(req)

	// Send response
	respData, err := resp.Marshal()
	if err != nil {
		s.logger.Warn("failed to marshal response", "error", err)
		return
	}

	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		s.logger.Warn("failed to send response", "error", err)
	}
}

// handleCommand processes an IPC command and returns a response
func (s *Server) handleCommand(req *Request) *Response {
	s.logger.Debug("IPC command", "command", req.Command)

	switch req.Command {
	case CommandGetStatus:
		return s.handleGetStatus()
	case CommandReload:
		return s.handleReload(req.Payload)
	case CommandReloadConfig:
		return s.handleReloadConfig()
	case CommandFullscreen:
		return s.handleFullscreen(req.Payload)
	case CommandFocus:
		return s.handleFocus(req.Payload)
	case CommandClose:
		return s.handleClose(req.Payload)
	case CommandSimulateFailure:
		return s.handleSimulateFailure(req.Payload)
	case CommandGetState:
		return s.handleGetState(req.Payload)
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

func decodePayload(payload json.RawMessage, out any) error {
	if len(payload) == 0 {
		return nil
	}
	return json.Unmarshal(payload, out)
}

func (s *Server) resolve(id string) (*window.Controller, *Response) {
	c, err := s.windows.Resolve(id)
	if err != nil {
		return nil, NewErrorResponse(err.Error())
	}
	return c, nil
}

func ok(data any) *Response {
	resp, err := NewOKResponse(data)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return resp
}

// handleGetStatus returns a snapshot of every open window
func (s *Server) handleGetStatus() *Response {
	list := s.windows.List()
	status := StatusData{
		Windows:       make([]window.Info, 0, len(list)),
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
	}
	for _, c := range list {
		status.Windows = append(status.Windows, c.Info())
	}
	if s.attention != nil {
		status.Attention = s.attention()
	}
	return ok(status)
}

func (s *Server) handleReload(payload json.RawMessage) *Response {
	var req ReloadPayload
	if err := decodePayload(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid reload payload: %v", err))
	}
	c, errResp := s.resolve(req.WindowID)
	if errResp != nil {
		return errResp
	}

	var cli *content.ReloadArgs
	if req.DisableExtensions != nil {
		cli = &content.ReloadArgs{DisableExtensions: req.DisableExtensions}
	}
	if err := c.Reload(s.ctx, cli); err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to reload window: %v", err))
	}
	s.logger.Info("window reloaded", "window_id", c.ID())
	return ok(nil)
}

func (s *Server) handleReloadConfig() *Response {
	if s.reloadConfig == nil {
		return NewErrorResponse("configuration reload is not available")
	}
	if err := s.reloadConfig(); err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to reload config: %v", err))
	}
	return ok(nil)
}

func (s *Server) handleFullscreen(payload json.RawMessage) *Response {
	var req FullscreenPayload
	if err := decodePayload(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid fullscreen payload: %v", err))
	}
	c, errResp := s.resolve(req.WindowID)
	if errResp != nil {
		return errResp
	}

	var err error
	switch req.Action {
	case FullscreenOn:
		err = c.SetFullscreen(true)
	case FullscreenOff:
		err = c.SetFullscreen(false)
	case FullscreenToggle, "":
		err = c.ToggleFullscreen()
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown fullscreen action: %s", req.Action))
	}
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to change fullscreen: %v", err))
	}
	return ok(c.Info())
}

func (s *Server) handleFocus(payload json.RawMessage) *Response {
	var req FocusPayload
	if err := decodePayload(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid focus payload: %v", err))
	}
	mode, err := ParseFocusMode(req.Mode)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	c, errResp := s.resolve(req.WindowID)
	if errResp != nil {
		return errResp
	}
	if err := c.Focus(mode); err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to focus window: %v", err))
	}
	return ok(nil)
}

func (s *Server) handleClose(payload json.RawMessage) *Response {
	var req WindowPayload
	if err := decodePayload(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid close payload: %v", err))
	}
	c, errResp := s.resolve(req.WindowID)
	if errResp != nil {
		return errResp
	}
	if err := c.Close(); err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to close window: %v", err))
	}
	return ok(nil)
}

func (s *Server) handleSimulateFailure(payload json.RawMessage) *Response {
	var req FailurePayload
	if err := decodePayload(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid failure payload: %v", err))
	}
	if !req.Event.Kind.Valid() {
		return NewErrorResponse(fmt.Sprintf("Unknown failure kind: %q", req.Event.Kind))
	}
	c, errResp := s.resolve(req.WindowID)
	if errResp != nil {
		return errResp
	}
	s.logger.Info("simulating surface failure", "window_id", c.ID(), "event", req.Event.String())
	c.HandleFailure(req.Event)
	return ok(nil)
}

func (s *Server) handleGetState(payload json.RawMessage) *Response {
	var req WindowPayload
	if err := decodePayload(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid state payload: %v", err))
	}
	c, errResp := s.resolve(req.WindowID)
	if errResp != nil {
		return errResp
	}
	return ok(StateData{
		WindowID: c.ID(),
		Key:      c.StateKey(),
		State:    c.SerializeState(),
	})
}

// sendError sends an error response
func (s *Server) sendError(conn net.Conn, errMsg string) {
	resp := NewErrorResponse(errMsg)
	data, _ := resp.Marshal()
	data = append(data, '\n')
	conn.Write(data)
}

// Stop gracefully shuts down the IPC server
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	if s.shuttingDown {
		s.shutdownMu.Unlock()
		return
	}
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	s.cancel()
	if s.listener != nil {
		s.listener.Close()
	}
	s.conns.Wait()
	os.Remove(s.socketPath)
}
