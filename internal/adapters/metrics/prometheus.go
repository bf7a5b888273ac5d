// Package metrics exposes feed ranking telemetry to Prometheus.
//
// One Prometheus value backs three sinks: the application's FeedMetrics port,
// the HTTP request observer and the Signal Store circuit breaker.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/viralforge/mesh/services/data-ai/M60-feed-ranking-engine/internal/ports"
)

const namespace = "feed_ranking"

var _ ports.FeedMetrics = (*Prometheus)(nil)

type Prometheus struct {
	gatherer prometheus.Gatherer

	feedDuration       *prometheus.HistogramVec
	feedItems          *prometheus.HistogramVec
	weightResolutions  *prometheus.CounterVec
	affinityLookups    *prometheus.CounterVec
	trendingRecomputes *prometheus.CounterVec
	bestEffortFailures *prometheus.CounterVec
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
	breakerState       *prometheus.GaugeVec
	breakerTransitions *prometheus.CounterVec
}

// NewPrometheus registers every collector on a fresh registry, together with
// the Go runtime and process collectors.
func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	p := &Prometheus{
		gatherer: reg,
		feedDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "feed_duration_seconds",
			Help:      "Time to assemble one feed page, by mode.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"mode"}),
		feedItems: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "feed_items",
			Help:      "Items returned per feed page, by mode.",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}, []string{"mode"}),
		weightResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weight_resolutions_total",
			Help:      "Weight resolutions by winning layer and cache outcome.",
		}, []string{"source", "cache"}),
		affinityLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "affinity_lookups_total",
			Help:      "Author affinity lookups by cache outcome.",
		}, []string{"cache"}),
		trendingRecomputes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trending_refreshes_total",
			Help:      "Trending ranking reads by outcome.",
		}, []string{"outcome"}),
		bestEffortFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "best_effort_failures_total",
			Help:      "Swallowed failures of best-effort side effects.",
		}, []string{"operation"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open).",
		}, []string{"name"}),
		breakerTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_transitions_total",
			Help:      "Circuit breaker state transitions.",
		}, []string{"name", "from", "to"}),
	}
	reg.MustRegister(
		p.feedDuration, p.feedItems, p.weightResolutions, p.affinityLookups,
		p.trendingRecomputes, p.bestEffortFailures, p.httpRequests, p.httpDuration,
		p.breakerState, p.breakerTransitions,
	)
	return p
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{})
}

func (p *Prometheus) ObserveFeed(mode string, duration time.Duration, items int) {
	p.feedDuration.WithLabelValues(mode).Observe(duration.Seconds())
	p.feedItems.WithLabelValues(mode).Observe(float64(items))
}

func (p *Prometheus) ObserveWeightResolution(source string, cacheHit bool) {
	p.weightResolutions.WithLabelValues(source, cacheLabel(cacheHit)).Inc()
}

func (p *Prometheus) ObserveAffinityLookup(hits, misses int) {
	p.affinityLookups.WithLabelValues("hit").Add(float64(hits))
	p.affinityLookups.WithLabelValues("miss").Add(float64(misses))
}

func (p *Prometheus) ObserveTrendingRecompute(outcome string) {
	p.trendingRecomputes.WithLabelValues(outcome).Inc()
}

func (p *Prometheus) ObserveBestEffortFailure(operation string) {
	p.bestEffortFailures.WithLabelValues(operation).Inc()
}

func (p *Prometheus) ObserveRequest(method, route string, status int, duration time.Duration) {
	p.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveBreakerTransition records a breaker state change. States use the
// gobreaker names: "closed", "half-open", "open".
func (p *Prometheus) ObserveBreakerTransition(name, from, to string) {
	p.breakerTransitions.WithLabelValues(name, from, to).Inc()
	p.breakerState.WithLabelValues(name).Set(breakerStateValue(to))
}

func cacheLabel(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}

func breakerStateValue(state string) float64 {
	switch state {
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return 0
	}
}
