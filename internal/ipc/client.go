package ipc

import (
	"bufio"
	"fmt"
	"net"
	"time"

	"github.com/goccy/go-json"

	"github.com/1broseidon/winhost/internal/runtimepath"
	"github.com/1broseidon/winhost/internal/surface"
)

// Client handles IPC communication with a running host
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a new IPC client for the default socket
func NewClient() *Client {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		// Keep constructor non-failing; sendRequest surfaces connection errors.
		socketPath = ""
	}
	return NewClientAt(socketPath)
}

// NewClientAt creates a client for the socket at path.
func NewClientAt(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    5 * time.Second,
	}
}

// sendRequest sends a request and waits for a response
func (c *Client) sendRequest(command CommandType, payload any) (*Response, error) {
	req := &Request{Command: command}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s payload: %w", command, err)
		}
		req.Payload = data
	}

	// Connect to socket
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to host: %w (is winhost running?)", err)
	}
	defer conn.Close()

	// Set deadline
	conn.SetDeadline(time.Now().Add(c.timeout))

	// Marshal request
	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	// Send request
	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	// Read response
	reader := bufio.NewReader(conn)
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	// Parse response
	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	// Check for error response
	if resp.Status == "ERROR" {
		return nil, fmt.Errorf("host error: %s", resp.Error)
	}

	return &resp, nil
}

// GetStatus retrieves the status of every open window
func (c *Client) GetStatus() (*StatusData, error) {
	resp, err := c.sendRequest(CommandGetStatus, nil)
	if err != nil {
		return nil, err
	}

	var status StatusData
	if err := json.Unmarshal(resp.Data, &status); err != nil {
		return nil, fmt.Errorf("failed to parse status data: %w", err)
	}
	return &status, nil
}

// Reload reloads the content of a window.
func (c *Client) Reload(windowID string, disableExtensions *bool) error {
	_, err := c.sendRequest(CommandReload, ReloadPayload{
		WindowID:          windowID,
		DisableExtensions: disableExtensions,
	})
	return err
}

// ReloadConfig asks the host to re-read its configuration file.
func (c *Client) ReloadConfig() error {
	_, err := c.sendRequest(CommandReloadConfig, nil)
	return err
}

// Fullscreen changes the fullscreen mode of a window.
func (c *Client) Fullscreen(windowID string, action FullscreenAction) error {
	_, err := c.sendRequest(CommandFullscreen, FullscreenPayload{WindowID: windowID, Action: action})
	return err
}

// Focus focuses a window with mode transfer, notify or force.
func (c *Client) Focus(windowID, mode string) error {
	_, err := c.sendRequest(CommandFocus, FocusPayload{WindowID: windowID, Mode: mode})
	return err
}

// Close closes a window.
func (c *Client) Close(windowID string) error {
	_, err := c.sendRequest(CommandClose, WindowPayload{WindowID: windowID})
	return err
}

// SimulateFailure injects a surface health signal into a window.
func (c *Client) SimulateFailure(windowID string, ev surface.FailureEvent) error {
	_, err := c.sendRequest(CommandSimulateFailure, FailurePayload{WindowID: windowID, Event: ev})
	return err
}

// GetState returns the state a window would persist now.
func (c *Client) GetState(windowID string) (*StateData, error) {
	resp, err := c.sendRequest(CommandGetState, WindowPayload{WindowID: windowID})
	if err != nil {
		return nil, err
	}

	var data StateData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to parse state data: %w", err)
	}
	return &data, nil
}

// Ping checks if the host is responding
func (c *Client) Ping() error {
	_, err := c.GetStatus()
	return err
}
