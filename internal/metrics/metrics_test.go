package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"

	"github.com/1broseidon/winhost/internal/health"
)

func TestRecorders(t *testing.T) {
	m := New()

	m.WindowError("unresponsive")
	m.WindowError("unresponsive")
	m.WindowError("process_gone")
	m.RecoveryAction("reopen")
	m.ReportFault(health.FaultReport{Trace: "A", Count: 5, Total: 6})
	m.SetWindowsOpen(3)
	m.SetAttention(true)
	m.StateSaved(nil)
	m.StateSaved(errors.New("disk full"))

	if got := testutil.ToFloat64(m.windowErrors.WithLabelValues("unresponsive")); got != 2 {
		t.Fatalf("unresponsive errors = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.windowErrors.WithLabelValues("process_gone")); got != 1 {
		t.Fatalf("process_gone errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.recoveryActions.WithLabelValues("reopen")); got != 1 {
		t.Fatalf("reopen actions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.faultReports); got != 1 {
		t.Fatalf("fault reports = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.windowsOpen); got != 3 {
		t.Fatalf("windows open = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.attention); got != 1 {
		t.Fatalf("attention = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.stateSaves.WithLabelValues("failure")); got != 1 {
		t.Fatalf("failed saves = %v, want 1", got)
	}

	m.SetAttention(false)
	if got := testutil.ToFloat64(m.attention); got != 0 {
		t.Fatalf("attention = %v, want 0", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.WindowError("load_failed")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), `winhost_window_errors_total{kind="load_failed"} 1`) {
		t.Fatalf("metrics output missing window error counter:\n%s", body)
	}
	if !strings.Contains(string(body), "go_goroutines") {
		t.Fatalf("metrics output missing runtime collector")
	}
}

func findFamily(t *testing.T, families []*dto.MetricFamily, name string) *dto.MetricFamily {
	t.Helper()
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("metric family %s not gathered", name)
	return nil
}

func TestGathererLabels(t *testing.T) {
	m := New()
	m.RecoveryAction("close")
	m.RecoveryAction("close")
	m.RecoveryAction("wait")

	families, err := m.Gatherer().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	mf := findFamily(t, families, "winhost_recovery_actions_total")
	if mf.GetType() != dto.MetricType_COUNTER {
		t.Fatalf("type = %v, want counter", mf.GetType())
	}
	counts := map[string]float64{}
	for _, metric := range mf.GetMetric() {
		for _, lp := range metric.GetLabel() {
			if lp.GetName() == "action" {
				counts[lp.GetValue()] = metric.GetCounter().GetValue()
			}
		}
	}
	if counts["close"] != 2 || counts["wait"] != 1 {
		t.Fatalf("unexpected action counts: %v", counts)
	}
}
