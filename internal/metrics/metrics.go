// Package metrics exposes window health counters for Prometheus.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/1broseidon/winhost/internal/health"
)

const namespace = "winhost"

// Metrics holds the collectors of one process. It satisfies the recorder
// interfaces of the recovery and health packages.
type Metrics struct {
	registry *prometheus.Registry

	windowErrors    *prometheus.CounterVec
	recoveryActions *prometheus.CounterVec
	faultReports    prometheus.Counter
	windowsOpen     prometheus.Gauge
	attention       prometheus.Gauge
	stateSaves      *prometheus.CounterVec
}

// New registers the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		windowErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "window_errors_total",
			Help:      "Content surface failures by kind",
		}, []string{"kind"}), // kind=unresponsive|process_gone|load_failed|responsive
		recoveryActions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recovery_actions_total",
			Help:      "Recovery decisions by action",
		}, []string{"action"}), // action=reopen|close|wait|exit|quit
		faultReports: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fault_reports_total",
			Help:      "Diagnostic traces reported as dominating an unresponsive period",
		}),
		windowsOpen: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "windows_open",
			Help:      "Number of live host windows",
		}),
		attention: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "attention_requested",
			Help:      "Whether any window requests attention (1) or not (0)",
		}),
		stateSaves: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_saves_total",
			Help:      "Window state checkpoints by outcome",
		}, []string{"outcome"}), // outcome=success|failure
	}
}

// WindowError counts a surface failure.
func (m *Metrics) WindowError(kind string) {
	m.windowErrors.WithLabelValues(kind).Inc()
}

// RecoveryAction counts a recovery decision.
func (m *Metrics) RecoveryAction(action string) {
	m.recoveryActions.WithLabelValues(action).Inc()
}

// ReportFault counts a fault report.
func (m *Metrics) ReportFault(health.FaultReport) {
	m.faultReports.Inc()
}

// SetWindowsOpen records the number of live windows.
func (m *Metrics) SetWindowsOpen(n int) {
	m.windowsOpen.Set(float64(n))
}

// SetAttention records the application-wide attention flag.
func (m *Metrics) SetAttention(active bool) {
	if active {
		m.attention.Set(1)
		return
	}
	m.attention.Set(0)
}

// StateSaved counts a state checkpoint.
func (m *Metrics) StateSaved(err error) {
	if err != nil {
		m.stateSaves.WithLabelValues("failure").Inc()
		return
	}
	m.stateSaves.WithLabelValues("success").Inc()
}

// Gatherer returns the registry backing m.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	logger.Info("metrics listening", "addr", ln.Addr().String())

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
