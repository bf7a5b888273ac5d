package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusRecordsFeedTelemetry(t *testing.T) {
	t.Parallel()

	p := NewPrometheus()
	p.ObserveWeightResolution("cohort", true)
	p.ObserveWeightResolution("cohort", true)
	p.ObserveWeightResolution("default", false)
	p.ObserveAffinityLookup(3, 2)
	p.ObserveTrendingRecompute("stale")
	p.ObserveBestEffortFailure("cache_set")
	p.ObserveFeed("personalized", 40*time.Millisecond, 20)

	if got := testutil.ToFloat64(p.weightResolutions.WithLabelValues("cohort", "hit")); got != 2 {
		t.Fatalf("expected 2 cohort cache hits, got %v", got)
	}
	if got := testutil.ToFloat64(p.affinityLookups.WithLabelValues("miss")); got != 2 {
		t.Fatalf("expected 2 affinity misses, got %v", got)
	}
	if got := testutil.ToFloat64(p.trendingRecomputes.WithLabelValues("stale")); got != 1 {
		t.Fatalf("expected 1 stale trending read, got %v", got)
	}
	if got := testutil.ToFloat64(p.bestEffortFailures.WithLabelValues("cache_set")); got != 1 {
		t.Fatalf("expected 1 best-effort failure, got %v", got)
	}
	if got := testutil.CollectAndCount(p.feedDuration); got != 1 {
		t.Fatalf("expected one feed duration series, got %d", got)
	}
}

func TestPrometheusBreakerState(t *testing.T) {
	t.Parallel()

	p := NewPrometheus()
	p.ObserveBreakerTransition("signal-store", "closed", "open")
	if got := testutil.ToFloat64(p.breakerState.WithLabelValues("signal-store")); got != 2 {
		t.Fatalf("expected open state gauge 2, got %v", got)
	}
	p.ObserveBreakerTransition("signal-store", "open", "half-open")
	p.ObserveBreakerTransition("signal-store", "half-open", "closed")
	if got := testutil.ToFloat64(p.breakerState.WithLabelValues("signal-store")); got != 0 {
		t.Fatalf("expected closed state gauge 0, got %v", got)
	}
	if got := testutil.ToFloat64(p.breakerTransitions.WithLabelValues("signal-store", "closed", "open")); got != 1 {
		t.Fatalf("expected one trip, got %v", got)
	}
}

func TestPrometheusHandlerExposesRequests(t *testing.T) {
	t.Parallel()

	p := NewPrometheus()
	p.ObserveRequest(http.MethodGet, "/v1/feed/for-you", http.StatusOK, 12*time.Millisecond)

	srv := httptest.NewServer(p.Handler())
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	want := `feed_ranking_http_requests_total{method="GET",route="/v1/feed/for-you",status="200"} 1`
	if !strings.Contains(string(body), want) {
		t.Fatalf("expected %q in scrape output", want)
	}
	if !strings.Contains(string(body), "go_goroutines") {
		t.Fatal("expected runtime collectors in scrape output")
	}
}
