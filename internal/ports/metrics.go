package ports

import "time"

// FeedMetrics receives ranking telemetry. Implementations must be safe for
// concurrent use.
type FeedMetrics interface {
	ObserveFeed(mode string, duration time.Duration, items int)
	ObserveWeightResolution(source string, cacheHit bool)
	ObserveAffinityLookup(hits, misses int)
	ObserveTrendingRecompute(outcome string)
	ObserveBestEffortFailure(operation string)
}

type NoopFeedMetrics struct{}

func (NoopFeedMetrics) ObserveFeed(string, time.Duration, int) {}
func (NoopFeedMetrics) ObserveWeightResolution(string, bool)   {}
func (NoopFeedMetrics) ObserveAffinityLookup(int, int)         {}
func (NoopFeedMetrics) ObserveTrendingRecompute(string)        {}
func (NoopFeedMetrics) ObserveBestEffortFailure(string)        {}
