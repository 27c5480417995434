package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInMemoryRecorder_Snapshot(t *testing.T) {
	m := NewInMemory()

	m.IncLogin("success")
	m.IncLogin("failed")
	m.IncLogin("failed")
	m.IncTransaction("purchase")
	m.AddPoints("purchase", 40)
	m.AddPoints("purchase", 10)
	m.IncRateLimited("reset")
	m.ObserveRequest("GET", "/users/me", 200, 2*time.Millisecond)

	snap := m.Snapshot()
	if snap.LoginsSucceeded != 1 || snap.LoginsFailed != 2 {
		t.Errorf("logins = %d/%d, want 1/2", snap.LoginsSucceeded, snap.LoginsFailed)
	}
	if snap.Transactions["purchase"] != 1 || snap.Points["purchase"] != 50 {
		t.Errorf("purchase metrics = %d/%d", snap.Transactions["purchase"], snap.Points["purchase"])
	}
	if snap.RateLimited["reset"] != 1 {
		t.Errorf("rate limited reset = %d, want 1", snap.RateLimited["reset"])
	}
	if snap.Requests != 1 || snap.RequestDurationNs != int64(2*time.Millisecond) {
		t.Errorf("requests = %d, duration = %d", snap.Requests, snap.RequestDurationNs)
	}

	// Snapshot maps are copies.
	snap.Points["purchase"] = 0
	if m.Snapshot().Points["purchase"] != 50 {
		t.Error("mutating a snapshot must not affect the recorder")
	}
}

func TestPrometheusRecorder_Counters(t *testing.T) {
	p := NewPrometheus()

	p.IncTransaction("transfer")
	p.AddPoints("transfer", -25)
	p.IncPromotionCacheHit()
	p.IncAuthCacheMiss()

	if got := testutil.ToFloat64(p.transactions.WithLabelValues("transfer")); got != 1 {
		t.Errorf("transactions_total{transfer} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(p.points.WithLabelValues("transfer")); got != 25 {
		t.Errorf("moved_total{transfer} = %v, want 25", got)
	}
	if got := testutil.ToFloat64(p.cacheLookups.WithLabelValues("promotion", "hit")); got != 1 {
		t.Errorf("promotion cache hits = %v, want 1", got)
	}
}

func TestPrometheusRecorder_Handler(t *testing.T) {
	p := NewPrometheus()
	p.ObserveRequest("GET", "/promotions", 200, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `perks_http_requests_total{method="GET",route="/promotions",status="200"} 1`) {
		t.Errorf("exposition missing request counter:\n%s", body)
	}
}

func TestRecordersImplementInterface(t *testing.T) {
	var _ Recorder = NewNoop()
	var _ Recorder = NewInMemory()
	var _ Recorder = NewPrometheus()
	var _ Snapshotter = NewInMemory()
}
