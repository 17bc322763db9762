package surface

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// Defaults for the liveness watchdog.
const (
	DefaultHeartbeatInterval = time.Second
	DefaultUnresponsiveAfter = 5 * time.Second
	DefaultTraceTimeout      = 2 * time.Second
	closeGracePeriod         = 3 * time.Second
	outboxSize               = 64
)

// ErrInputFull is returned when the surface stopped draining its input and
// the outgoing queue is full.
var ErrInputFull = errors.New("surface input queue is full")

// ProcessOptions configures a surface process.
type ProcessOptions struct {
	Command string
	Args    []string
	// Env is appended to the host environment.
	Env []string

	// HeartbeatInterval is how often the host pings the surface.
	HeartbeatInterval time.Duration
	// UnresponsiveAfter is how long the surface may go without answering a
	// ping before it is reported unresponsive.
	UnresponsiveAfter time.Duration
	TraceTimeout      time.Duration

	Logger *slog.Logger
}

// Process is a content surface running as a child process.
type Process struct {
	opts   ProcessOptions
	logger *slog.Logger

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	outbox chan []byte

	mu           sync.Mutex
	listener     Listener
	started      bool
	closing      bool
	lastPong     time.Time
	unresponsive bool
	nextTrace    uint64
	traces       map[uint64]chan string

	exited chan struct{}
	stop   chan struct{}
	wg     sync.WaitGroup
}

// NewProcess validates opts. The process is launched by Start.
func NewProcess(opts ProcessOptions) (*Process, error) {
	if opts.Command == "" {
		return nil, fmt.Errorf("surface command is required")
	}
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if opts.UnresponsiveAfter <= 0 {
		opts.UnresponsiveAfter = DefaultUnresponsiveAfter
	}
	if opts.UnresponsiveAfter < opts.HeartbeatInterval {
		opts.UnresponsiveAfter = 2 * opts.HeartbeatInterval
	}
	if opts.TraceTimeout <= 0 {
		opts.TraceTimeout = DefaultTraceTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Process{
		opts:   opts,
		logger: logger.With("surface", opts.Command),
		traces: make(map[uint64]chan string),
		outbox: make(chan []byte, outboxSize),
		exited: make(chan struct{}),
		stop:   make(chan struct{}),
	}, nil
}

// Listen installs the listener. It must be called before Start.
func (p *Process) Listen(l Listener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listener = l
}

func (p *Process) currentListener() Listener {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.listener
}

// Start launches the surface process. A launch failure is returned and also
// reported to the listener as a process-gone event.
func (p *Process) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return fmt.Errorf("surface already started")
	}
	p.started = true
	p.mu.Unlock()

	cmd := exec.Command(p.opts.Command, p.opts.Args...)
	cmd.Env = append(os.Environ(), p.opts.Env...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("surface stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("surface stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		close(p.exited)
		p.currentListener().failure(FailureEvent{Kind: KindProcessGone, Reason: ReasonLaunchFailed, ExitCode: -1})
		return fmt.Errorf("failed to start surface %q: %w", p.opts.Command, err)
	}
	p.cmd = cmd
	p.stdin = stdin

	p.mu.Lock()
	p.lastPong = time.Now()
	p.mu.Unlock()

	p.logger.Info("surface started", "pid", cmd.Process.Pid)

	readDone := make(chan struct{})
	p.wg.Add(4)
	go func() {
		defer p.wg.Done()
		p.writeLoop()
	}()
	go func() {
		defer p.wg.Done()
		defer close(readDone)
		p.readLoop(stdout)
	}()
	go func() {
		defer p.wg.Done()
		p.watchdog(ctx)
	}()
	go func() {
		defer p.wg.Done()
		p.wait(readDone)
	}()
	return nil
}

// PID returns the process id, or 0 before Start.
func (p *Process) PID() int {
	if p.cmd == nil || p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// writeLoop is the only writer of stdin. A surface that stops reading
// blocks this goroutine, never the callers; Close unblocks it by closing
// stdin.
func (p *Process) writeLoop() {
	for {
		select {
		case <-p.stop:
			return
		case <-p.exited:
			return
		case data := <-p.outbox:
			if _, err := p.stdin.Write(data); err != nil {
				p.logger.Debug("surface input write failed", "error", err)
			}
		}
	}
}

func (p *Process) readLoop(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		env, err := ParseEnvelope(line)
		if err != nil {
			p.logger.Warn("ignoring malformed surface line", "error", err)
			continue
		}
		p.dispatch(env)
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, os.ErrClosed) {
		p.logger.Debug("surface stdout closed", "error", err)
	}
}

func (p *Process) dispatch(env Envelope) {
	l := p.currentListener()
	switch env.Type {
	case TypePong:
		p.mu.Lock()
		p.lastPong = time.Now()
		recovered := p.unresponsive
		p.unresponsive = false
		p.mu.Unlock()
		if recovered {
			l.failure(FailureEvent{Kind: KindResponsive})
		}
	case TypeReady:
		l.ready()
	case TypeDidFinishLoad:
		l.didFinishLoad()
	case TypeLoadFailed:
		l.failure(FailureEvent{Kind: KindLoadFailed, Reason: env.Reason, ExitCode: env.Code})
	case TypeTrace:
		p.mu.Lock()
		ch, ok := p.traces[env.ID]
		delete(p.traces, env.ID)
		p.mu.Unlock()
		if ok {
			ch <- env.Trace
		}
	case TypeMessage:
		l.message(Message{Channel: env.Channel, Args: env.Args})
	default:
		p.logger.Debug("ignoring unknown surface envelope", "type", env.Type)
	}
}

func (p *Process) watchdog(ctx context.Context) {
	ticker := time.NewTicker(p.opts.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		case <-p.exited:
			return
		case <-ticker.C:
		}

		if err := p.tryWrite(Envelope{Type: TypePing}); err != nil && !errors.Is(err, ErrInputFull) {
			continue
		}

		p.mu.Lock()
		silent := time.Since(p.lastPong)
		became := !p.unresponsive && silent > p.opts.UnresponsiveAfter
		if became {
			p.unresponsive = true
		}
		p.mu.Unlock()

		if became {
			p.logger.Warn("surface stopped answering pings", "silent_for", silent.Round(time.Millisecond))
			p.currentListener().failure(FailureEvent{Kind: KindUnresponsive})
		}
	}
}

func (p *Process) wait(readDone <-chan struct{}) {
	<-readDone
	err := p.cmd.Wait()
	close(p.exited)

	p.mu.Lock()
	closing := p.closing
	for id, ch := range p.traces {
		close(ch)
		delete(p.traces, id)
	}
	p.mu.Unlock()

	if closing {
		p.logger.Debug("surface exited", "error", err)
		return
	}

	ev := exitEvent(p.cmd.ProcessState)
	p.logger.Warn("surface process gone", "reason", ev.Reason, "code", ev.ExitCode)
	p.currentListener().failure(ev)
}

func exitEvent(state *os.ProcessState) FailureEvent {
	ev := FailureEvent{Kind: KindProcessGone, Reason: ReasonAbnormalExit, ExitCode: -1}
	if state == nil {
		return ev
	}
	ev.ExitCode = state.ExitCode()
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		if ws.Signal() == syscall.SIGKILL {
			ev.Reason = ReasonKilled
		} else {
			ev.Reason = ReasonCrashed
		}
		return ev
	}
	if ev.ExitCode == 0 {
		ev.Reason = ReasonCleanExit
	}
	return ev
}

func (p *Process) encode(env Envelope) ([]byte, error) {
	select {
	case <-p.exited:
		return nil, ErrClosed
	case <-p.stop:
		return nil, ErrClosed
	default:
	}
	if p.stdin == nil {
		return nil, ErrClosed
	}
	return env.Marshal()
}

// tryWrite queues env without waiting. It returns ErrInputFull when the
// surface is not draining its input.
func (p *Process) tryWrite(env Envelope) error {
	data, err := p.encode(env)
	if err != nil {
		return err
	}
	select {
	case p.outbox <- data:
		return nil
	default:
		return fmt.Errorf("write %s to surface: %w", env.Type, ErrInputFull)
	}
}

// write queues env, waiting for room until ctx is done or the surface
// goes away.
func (p *Process) write(ctx context.Context, env Envelope) error {
	data, err := p.encode(env)
	if err != nil {
		return err
	}
	select {
	case p.outbox <- data:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.stop:
		return ErrClosed
	case <-p.exited:
		return ErrClosed
	}
}

// Navigate asks the surface to load url.
func (p *Process) Navigate(url string) error {
	return p.tryWrite(Envelope{Type: TypeNavigate, URL: url})
}

// Send delivers an application message.
func (p *Process) Send(channel string, args ...any) error {
	encoded, err := EncodeArgs(args...)
	if err != nil {
		return err
	}
	return p.tryWrite(Envelope{Type: TypeMessage, Channel: channel, Args: encoded})
}

// CaptureTrace asks the surface for a diagnostic trace. The request and
// the answer together are bounded by the trace timeout.
func (p *Process) CaptureTrace(ctx context.Context) (string, error) {
	ch := make(chan string, 1)
	p.mu.Lock()
	p.nextTrace++
	id := p.nextTrace
	p.traces[id] = ch
	p.mu.Unlock()

	drop := func() {
		p.mu.Lock()
		delete(p.traces, id)
		p.mu.Unlock()
	}

	timeout, cancel := context.WithTimeout(ctx, p.opts.TraceTimeout)
	defer cancel()

	if err := p.write(timeout, Envelope{Type: TypeTrace, ID: id}); err != nil {
		drop()
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return "", ErrNoTrace
		}
		return "", err
	}

	select {
	case trace, ok := <-ch:
		if !ok || trace == "" {
			return "", ErrNoTrace
		}
		return trace, nil
	case <-timeout.Done():
		drop()
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return "", ErrNoTrace
	}
}

// Close stops the surface. The process gets a grace period to exit after
// its input is closed and is killed afterwards.
func (p *Process) Close() error {
	p.mu.Lock()
	if p.closing {
		p.mu.Unlock()
		return nil
	}
	p.closing = true
	started := p.cmd != nil
	p.mu.Unlock()

	close(p.stop)
	if !started {
		return nil
	}

	_ = p.stdin.Close()

	select {
	case <-p.exited:
	case <-time.After(closeGracePeriod):
		p.logger.Warn("surface did not exit, killing it")
		_ = p.cmd.Process.Kill()
	}
	p.wg.Wait()
	return nil
}
