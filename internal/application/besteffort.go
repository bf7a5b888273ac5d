package application

import (
	"context"
	"time"

	"github.com/viralforge/mesh/services/data-ai/M60-feed-ranking-engine/internal/domain"
)

// bestEffort runs fn detached from the caller's cancellation but bounded by
// timeout. The failure is logged and counted, never returned as an error.
func (s *Service) bestEffort(ctx context.Context, operation string, timeout time.Duration, fn func(context.Context) error) domain.BestEffort {
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	result := domain.BestEffort{Operation: operation, Err: fn(runCtx)}
	if result.Failed() {
		s.metrics.ObserveBestEffortFailure(operation)
		s.logger.WarnContext(ctx, "best-effort operation failed",
			"module", "application.best_effort",
			"layer", "application",
			"operation", operation,
			"outcome", "swallowed",
			"error", result.Err,
		)
	}
	return result
}
