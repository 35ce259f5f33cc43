package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/healthcheck", "200", time.Millisecond)
	m.ApiInflightInc()
	m.ApiInflightDec()
	m.ObserveAggregateOperation("race.record_finished", "success", time.Millisecond)
	m.IncAggregateConflict("race.record_finished")
	m.IncAggregateRetry("race.record_finished")
	m.IncRaceRecorded("local", 2)
	m.IncRaceEvent("published")
	m.RegisterDBStats(nil, "racegraph")
	if New(false) != nil {
		t.Fatalf("disabled metrics should be nil")
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("nil handler status: %d", rec.Code)
	}
}

func TestRaceCounters(t *testing.T) {
	m := New(true)
	m.IncRaceRecorded("local", 2)
	m.IncRaceRecorded("local", 3)
	m.IncRaceRecorded("online", 1)
	m.IncAggregateConflict("race.record_finished")

	if got := testutil.ToFloat64(m.racesRecorded.WithLabelValues("local")); got != 2 {
		t.Fatalf("local races: want=2 got=%v", got)
	}
	if got := testutil.ToFloat64(m.runnersRecorded.WithLabelValues("local")); got != 5 {
		t.Fatalf("local runners: want=5 got=%v", got)
	}
	if got := testutil.ToFloat64(m.aggregateConflicts.WithLabelValues("race.record_finished")); got != 1 {
		t.Fatalf("conflicts: want=1 got=%v", got)
	}
}

func TestHandlerExposesNamespace(t *testing.T) {
	m := New(true)
	m.ObserveAPI("POST", "/api/races", "201", 20*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `racegraph_api_requests_total{method="POST",route="/api/races",status="201"} 1`) {
		t.Fatalf("missing api counter in:\n%s", rec.Body.String())
	}
}

func TestParseHeaders(t *testing.T) {
	got := ParseHeaders(" x-api-key = abc ,broken, =v,k=")
	if len(got) != 1 || got["x-api-key"] != "abc" {
		t.Fatalf("unexpected headers: %+v", got)
	}
	if ParseHeaders("") != nil {
		t.Fatalf("empty input should yield nil")
	}
}
