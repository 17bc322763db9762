//go:build !linux

package platform

import "errors"

// LinuxBackend is only available on Linux; elsewhere the headless
// MemoryBackend is used.
type LinuxBackend struct{}

var errNoX11 = errors.New("x11 backend is only supported on linux")

// NewLinuxBackendFromDisplay always fails on non-Linux platforms.
func NewLinuxBackendFromDisplay() (*LinuxBackend, error) {
	return nil, errNoX11
}

func (b *LinuxBackend) Disconnect()    {}
func (b *LinuxBackend) EventLoop()     {}
func (b *LinuxBackend) StopEventLoop() {}

func (b *LinuxBackend) Displays() ([]Display, error) { return nil, errNoX11 }

func (b *LinuxBackend) MatchingDisplay(Rect) (Display, bool) { return Display{}, false }

func (b *LinuxBackend) CreateWindow(CreateOptions) (NativeWindow, error) { return nil, errNoX11 }
