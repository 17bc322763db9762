package health

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// scriptedSource returns the scripted traces in order and then empty
// traces, signalling once the script is exhausted.
type scriptedSource struct {
	mu       sync.Mutex
	script   []string
	calls    int
	consumed chan struct{}
}

func newScriptedSource(traces ...string) *scriptedSource {
	return &scriptedSource{script: traces, consumed: make(chan struct{})}
}

func (s *scriptedSource) CaptureTrace(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls <= len(s.script) {
		if s.calls == len(s.script) {
			close(s.consumed)
		}
		return s.script[s.calls-1], nil
	}
	return "", nil
}

type recordingReporter struct {
	mu      sync.Mutex
	reports []FaultReport
}

func (r *recordingReporter) ReportFault(f FaultReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, f)
}

func (r *recordingReporter) all() []FaultReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]FaultReport(nil), r.reports...)
}

func discard() *slog.Logger { return slog.New(slog.DiscardHandler) }

func TestMonitor_ReportsDominantTrace(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	source := newScriptedSource("A", "A", "B", "A", "A", "A")
	reporter := &recordingReporter{}
	var logs bytes.Buffer
	m, err := New(Options{
		Source:   source,
		Reporter: reporter,
		Interval: time.Millisecond,
		Period:   time.Minute,
		Logger:   slog.New(slog.NewTextHandler(&logs, nil)),
	})
	require.NoError(t, err)

	m.Trigger()
	require.True(t, m.Sampling())
	select {
	case <-source.consumed:
	case <-time.After(5 * time.Second):
		t.Fatal("sampler did not consume the script")
	}
	m.Stop()

	reports := reporter.all()
	require.Len(t, reports, 1)
	assert.Equal(t, "A", reports[0].Trace)
	assert.Equal(t, 5, reports[0].Count)
	assert.Equal(t, 6, reports[0].Total)
	assert.InDelta(t, 83.33, reports[0].Percent, 0.01)
	assert.NotEmpty(t, reports[0].ID)

	assert.False(t, m.Sampling())
	out := logs.String()
	assert.Contains(t, out, "window unresponsive samples")
	assert.Contains(t, out, "total=6")
	assert.Less(t, strings.Index(out, "<5> A"), strings.Index(out, "<1> B"))
}

func TestMonitor_StopIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	source := newScriptedSource("A", "A")
	reporter := &recordingReporter{}
	m, err := New(Options{Source: source, Reporter: reporter, Interval: time.Millisecond, Period: time.Minute, Logger: discard()})
	require.NoError(t, err)

	m.Stop()
	m.Trigger()
	<-source.consumed
	m.Stop()
	m.Stop()

	assert.Len(t, reporter.all(), 1)
}

func TestMonitor_TriggerWhileSamplingIsNoop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	source := newScriptedSource("A")
	m, err := New(Options{Source: source, Interval: time.Millisecond, Period: time.Minute, Logger: discard()})
	require.NoError(t, err)

	m.Trigger()
	done := m.done
	m.Trigger()
	assert.Equal(t, done, m.done, "second trigger started a new session")
	m.Stop()
}

func TestMonitor_PeriodEndsSession(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	reporter := &recordingReporter{}
	m, err := New(Options{
		Source:   newScriptedSource("X"),
		Reporter: reporter,
		Interval: 5 * time.Millisecond,
		Period:   30 * time.Millisecond,
		Logger:   discard(),
	})
	require.NoError(t, err)

	m.Trigger()
	require.Eventually(t, func() bool { return !m.Sampling() }, 5*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return len(reporter.all()) == 1 }, 5*time.Second, 5*time.Millisecond)

	m.Stop()
	assert.Len(t, reporter.all(), 1)
}

type blockingSource struct {
	entered  chan struct{}
	returned chan struct{}
}

func (s *blockingSource) CaptureTrace(ctx context.Context) (string, error) {
	close(s.entered)
	<-ctx.Done()
	close(s.returned)
	return "", ctx.Err()
}

func TestMonitor_StopWaitsForInFlightCapture(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	source := &blockingSource{entered: make(chan struct{}), returned: make(chan struct{})}
	m, err := New(Options{Source: source, Logger: discard()})
	require.NoError(t, err)

	m.Trigger()
	<-source.entered
	m.Stop()

	select {
	case <-source.returned:
	default:
		t.Fatal("Stop returned while a capture was still in flight")
	}
}

type failingSource struct{}

func (failingSource) CaptureTrace(context.Context) (string, error) {
	return "", errors.New("capture failed")
}

func TestMonitor_FailedCapturesAreNotCounted(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	reporter := &recordingReporter{}
	m, err := New(Options{Source: failingSource{}, Reporter: reporter, Interval: time.Millisecond, Period: time.Minute, Logger: discard()})
	require.NoError(t, err)

	m.Trigger()
	time.Sleep(10 * time.Millisecond)
	m.Stop()
	assert.Empty(t, reporter.all())
}

func TestMonitor_CloseIgnoresTrigger(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	m, err := New(Options{Source: newScriptedSource(), Logger: discard()})
	require.NoError(t, err)
	m.Close()
	m.Trigger()
	assert.False(t, m.Sampling())
}

func TestTiming(t *testing.T) {
	tests := []struct {
		name         string
		interval     time.Duration
		period       time.Duration
		wantInterval time.Duration
		wantPeriod   time.Duration
	}{
		{"defaults", 0, 0, DefaultInterval, DefaultPeriod},
		{"custom", 500 * time.Millisecond, 5 * time.Second, 500 * time.Millisecond, 5 * time.Second},
		{"interval longer than period", 10 * time.Second, time.Second, DefaultInterval, DefaultPeriod},
		{"negative", -time.Second, time.Second, DefaultInterval, DefaultPeriod},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			interval, period := Timing(tt.interval, tt.period, discard())
			if interval != tt.wantInterval || period != tt.wantPeriod {
				t.Fatalf("Timing() = %v, %v; want %v, %v", interval, period, tt.wantInterval, tt.wantPeriod)
			}
		})
	}
}
