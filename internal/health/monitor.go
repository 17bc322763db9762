// Package health samples diagnostic traces from an unresponsive content
// surface and reports traces that dominate the sampling window.
package health

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Sampling defaults, also used when the configured values are inconsistent.
const (
	DefaultInterval  = time.Second
	DefaultPeriod    = 15 * time.Second
	DefaultThreshold = 20.0
)

// TraceSource captures one diagnostic trace. An empty trace or an error
// means the capture failed and the tick is not counted.
type TraceSource interface {
	CaptureTrace(ctx context.Context) (string, error)
}

// FaultReport describes a trace seen in more than the threshold share of
// the collected samples.
type FaultReport struct {
	ID      string
	Trace   string
	Count   int
	Total   int
	Percent float64
}

// Reporter receives fault reports.
type Reporter interface {
	ReportFault(FaultReport)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(FaultReport)

func (f ReporterFunc) ReportFault(r FaultReport) { f(r) }

// Options configures a Monitor.
type Options struct {
	Source   TraceSource
	Reporter Reporter
	Interval time.Duration
	Period   time.Duration
	// ThresholdPercent defaults to DefaultThreshold.
	ThresholdPercent float64
	Logger           *slog.Logger
}

// Monitor runs at most one sampling session at a time. Trigger starts a
// session; the session ends on Stop or when the period elapses, at which
// point the collected samples are summarised and cleared.
type Monitor struct {
	source    TraceSource
	reporter  Reporter
	interval  time.Duration
	period    time.Duration
	threshold float64
	logger    *slog.Logger

	mu      sync.Mutex
	samples map[string]int
	running bool
	closed  bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a Monitor.
func New(opts Options) (*Monitor, error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("health: trace source is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	interval, period := Timing(opts.Interval, opts.Period, logger)
	threshold := opts.ThresholdPercent
	if threshold <= 0 || threshold >= 100 {
		threshold = DefaultThreshold
	}
	return &Monitor{
		source:    opts.Source,
		reporter:  opts.Reporter,
		interval:  interval,
		period:    period,
		threshold: threshold,
		logger:    logger,
		samples:   make(map[string]int),
	}, nil
}

// Timing validates a sampling interval and period. Zero values select the
// defaults; a non-positive value or an interval longer than the period
// falls back to the defaults with a warning.
func Timing(interval, period time.Duration, logger *slog.Logger) (time.Duration, time.Duration) {
	if interval == 0 {
		interval = DefaultInterval
	}
	if period == 0 {
		period = DefaultPeriod
	}
	if interval < 0 || period < 0 || interval > period {
		if logger != nil {
			logger.Warn("invalid unresponsive sample interval or period, using defaults",
				"interval", interval,
				"period", period)
		}
		return DefaultInterval, DefaultPeriod
	}
	return interval, period
}

// Interval returns the effective sampling interval.
func (m *Monitor) Interval() time.Duration { return m.interval }

// Period returns the effective sampling period.
func (m *Monitor) Period() time.Duration { return m.period }

// Sampling reports whether a session is active.
func (m *Monitor) Sampling() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Trigger starts a sampling session unless one is already running.
func (m *Monitor) Trigger() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running || m.closed {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.running = true
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.run(ctx, m.done)
}

// Stop ends the current session and reports its samples. It returns once no
// capture is in flight. Stop without an active session does nothing.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel, done := m.cancel, m.done
	m.mu.Unlock()

	cancel()
	<-done
}

// Close stops sampling for good. Later calls to Trigger are ignored.
func (m *Monitor) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.Stop()
}

func (m *Monitor) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer m.finish()
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("panic in trace sampler", "panic", r)
		}
	}()

	period := time.NewTimer(m.period)
	defer period.Stop()

	for {
		m.capture(ctx)

		next := time.NewTimer(m.interval)
		select {
		case <-ctx.Done():
			next.Stop()
			return
		case <-period.C:
			next.Stop()
			m.logger.Debug("unresponsive sampling period elapsed", "period", m.period)
			return
		case <-next.C:
		}
	}
}

func (m *Monitor) capture(ctx context.Context) {
	trace, err := m.source.CaptureTrace(ctx)
	if err != nil {
		if ctx.Err() == nil {
			m.logger.Debug("diagnostic trace capture failed", "error", err)
		}
		return
	}
	if trace == "" || ctx.Err() != nil {
		return
	}
	m.mu.Lock()
	m.samples[trace]++
	m.mu.Unlock()
}

type sample struct {
	trace string
	count int
}

// finish ends the session: samples are cleared and summarised.
func (m *Monitor) finish() {
	m.mu.Lock()
	collected := m.samples
	m.samples = make(map[string]int)
	m.running = false
	m.cancel()
	m.mu.Unlock()

	if len(collected) == 0 {
		return
	}

	sorted := make([]sample, 0, len(collected))
	total := 0
	for trace, count := range collected {
		sorted = append(sorted, sample{trace: trace, count: count})
		total += count
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].count != sorted[j].count {
			return sorted[i].count > sorted[j].count
		}
		return sorted[i].trace < sorted[j].trace
	})

	var summary strings.Builder
	for _, s := range sorted {
		fmt.Fprintf(&summary, "<%d> %s\n", s.count, s.trace)

		percent := float64(s.count) * 100 / float64(total)
		if percent <= m.threshold || m.reporter == nil {
			continue
		}
		m.reporter.ReportFault(FaultReport{
			ID:      uuid.NewString(),
			Trace:   s.trace,
			Count:   s.count,
			Total:   total,
			Percent: percent,
		})
	}
	m.logger.Error("window unresponsive samples",
		"total", total,
		"distinct", len(sorted),
		"samples", summary.String())
}
