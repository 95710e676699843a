package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	// None of these should panic.
	m.ObserveRequest("GET", "/health", 200, time.Millisecond)
	m.BroadcastDropped()
	m.Refresh("poll", nil)
	m.Write(errors.New("boom"))
	m.PushPatch()
	m.Register()
}

func TestSyncCounters(t *testing.T) {
	m := New()

	m.Refresh("poll", nil)
	m.Refresh("poll", nil)
	m.Refresh("write", errors.New("offline"))
	m.Write(nil)
	m.PushPatch()

	if got := testutil.ToFloat64(m.refreshes.WithLabelValues("poll", ResultOK)); got != 2 {
		t.Errorf("poll ok refreshes = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.refreshes.WithLabelValues("write", ResultError)); got != 1 {
		t.Errorf("write error refreshes = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.writes.WithLabelValues(ResultOK)); got != 1 {
		t.Errorf("ok writes = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.pushPatches); got != 1 {
		t.Errorf("push patches = %v, want 1", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveRequest("PUT", "PUT /api/availability", http.StatusOK, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `freeday_http_requests_total{method="PUT",route="PUT /api/availability",status="200"} 1`) {
		t.Errorf("request counter missing from output:\n%s", body)
	}
}
