package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/viralforge/mesh/services/data-ai/M60-feed-ranking-engine/internal/domain"
	"github.com/viralforge/mesh/services/data-ai/M60-feed-ranking-engine/internal/ports"
)

// BreakerObserver is notified on every state change.
type BreakerObserver interface {
	ObserveBreakerTransition(name, from, to string)
}

type BreakerSettings struct {
	Name string
	// MinRequests and FailureRatio decide when a closed breaker trips.
	MinRequests  uint32
	FailureRatio float64
	// HalfOpenRequests is the number of trial calls allowed while half-open.
	HalfOpenRequests uint32
	Interval         time.Duration
	OpenTimeout      time.Duration
}

func (s BreakerSettings) withDefaults() BreakerSettings {
	if s.Name == "" {
		s.Name = "signal-store"
	}
	if s.MinRequests == 0 {
		s.MinRequests = 10
	}
	if s.FailureRatio <= 0 || s.FailureRatio > 1 {
		s.FailureRatio = 0.6
	}
	if s.HalfOpenRequests == 0 {
		s.HalfOpenRequests = 3
	}
	if s.Interval <= 0 {
		s.Interval = time.Minute
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = 30 * time.Second
	}
	return s
}

var _ ports.SignalStore = (*SignalStoreBreaker)(nil)

// SignalStoreBreaker fails fast with ErrDependencyUnavailable while the
// Signal Store is unhealthy instead of queueing requests on a dead pool.
// Caller cancellations never count as failures.
type SignalStoreBreaker struct {
	next ports.SignalStore
	cb   *gobreaker.CircuitBreaker[any]
	name string
}

func NewSignalStoreBreaker(next ports.SignalStore, settings BreakerSettings, logger *slog.Logger, observer BreakerObserver) *SignalStoreBreaker {
	settings = settings.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: settings.HalfOpenRequests,
		Interval:    settings.Interval,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < settings.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= settings.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				"module", "adapters.resilience",
				"layer", "adapter",
				"operation", "state_change",
				"outcome", to.String(),
				"breaker", name,
				"from", from.String(),
			)
			if observer != nil {
				observer.ObserveBreakerTransition(name, from.String(), to.String())
			}
		},
	})
	return &SignalStoreBreaker{next: next, cb: cb, name: settings.Name}
}

// State reports the current breaker state name.
func (b *SignalStoreBreaker) State() string {
	return b.cb.State().String()
}

func (b *SignalStoreBreaker) FetchCandidatePosts(ctx context.Context, query ports.CandidateQuery) ([]domain.CandidatePost, error) {
	return execute(b, func() ([]domain.CandidatePost, error) { return b.next.FetchCandidatePosts(ctx, query) })
}

func (b *SignalStoreBreaker) AggregateInteractionCounts(ctx context.Context, userID string, authorIDs []string) (map[string]domain.InteractionCounts, error) {
	return execute(b, func() (map[string]domain.InteractionCounts, error) {
		return b.next.AggregateInteractionCounts(ctx, userID, authorIDs)
	})
}

func (b *SignalStoreBreaker) CountUserInteractions(ctx context.Context, userID string) (int64, error) {
	return execute(b, func() (int64, error) { return b.next.CountUserInteractions(ctx, userID) })
}

func (b *SignalStoreBreaker) FetchActiveEditorPicks(ctx context.Context, limit int) ([]string, error) {
	return execute(b, func() ([]string, error) { return b.next.FetchActiveEditorPicks(ctx, limit) })
}

func (b *SignalStoreBreaker) FetchTrendingWindowPosts(ctx context.Context, since time.Time) ([]domain.CandidatePost, error) {
	return execute(b, func() ([]domain.CandidatePost, error) { return b.next.FetchTrendingWindowPosts(ctx, since) })
}

func (b *SignalStoreBreaker) FetchInterestMatchedPosts(ctx context.Context, interests []string, since time.Time, limit int) ([]domain.CandidatePost, error) {
	return execute(b, func() ([]domain.CandidatePost, error) {
		return b.next.FetchInterestMatchedPosts(ctx, interests, since, limit)
	})
}

func (b *SignalStoreBreaker) FetchFollowingPosts(ctx context.Context, query ports.FollowingQuery) ([]domain.CandidatePost, error) {
	return execute(b, func() ([]domain.CandidatePost, error) { return b.next.FetchFollowingPosts(ctx, query) })
}

func execute[T any](b *SignalStoreBreaker, fn func() (T, error)) (T, error) {
	var zero T
	result, err := b.cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, fmt.Errorf("%w: %s: %v", domain.ErrDependencyUnavailable, b.name, err)
		}
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("%s: unexpected result type %T", b.name, result)
	}
	return typed, nil
}
