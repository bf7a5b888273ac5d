package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/viralforge/mesh/services/data-ai/M60-feed-ranking-engine/internal/domain"
)

type cachedWeights struct {
	Config     domain.WeightConfigSpec `json:"config"`
	Provenance string                  `json:"provenance"`
}

func defaultResolvedWeights() domain.ResolvedWeights {
	return domain.ResolvedWeights{Config: domain.DefaultWeightConfig(), Provenance: domain.ProvenanceDefault}
}

// ResolveWeights layers default, cohort and running-experiment weights for
// one user. Registry failures degrade to the next layer down and are not
// cached, so the next request retries them.
func (s *Service) ResolveWeights(ctx context.Context, userID string, cohortIDs []string) (domain.ResolvedWeights, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.ResolvedWeights{}, fmt.Errorf("%w: user_id is required", domain.ErrInvalidInput)
	}
	ids := uniqueSorted(trimAll(cohortIDs))
	if len(ids) == 0 {
		s.metrics.ObserveWeightResolution(domain.ProvenanceDefault, false)
		return defaultResolvedWeights(), nil
	}

	key := weightsCacheKey(userID, ids)
	if raw, ok := s.cacheGet(ctx, key); ok {
		if resolved, err := decodeCachedWeights(raw); err == nil {
			s.metrics.ObserveWeightResolution(domain.ProvenanceSource(resolved.Provenance), true)
			return resolved, nil
		}
	}

	resolved, cacheable := s.resolveFromRegistry(ctx, userID, ids)
	if cacheable {
		payload, _ := json.Marshal(cachedWeights{Config: resolved.Config.Spec(), Provenance: resolved.Provenance})
		s.cacheSet(ctx, key, string(payload), s.cfg.WeightsTTL)
	}
	s.metrics.ObserveWeightResolution(domain.ProvenanceSource(resolved.Provenance), false)
	return resolved, nil
}

func (s *Service) resolveFromRegistry(ctx context.Context, userID string, cohortIDs []string) (domain.ResolvedWeights, bool) {
	cohorts, err := s.cohorts.FetchActiveCohorts(ctx, cohortIDs)
	if err != nil {
		s.logger.WarnContext(ctx, "cohort lookup failed, using default weights",
			"module", "application.weights",
			"layer", "application",
			"operation", "fetch_active_cohorts",
			"outcome", "degraded",
			"error", err,
		)
		return defaultResolvedWeights(), false
	}
	cohort, ok := domain.SelectAuthoritativeCohort(cohorts)
	if !ok {
		return defaultResolvedWeights(), true
	}
	cohortWeights := domain.ResolvedWeights{Config: cohort.Config, Provenance: domain.CohortProvenance(cohort.CohortID)}

	experiment, err := s.experiments.FetchRunningExperiment(ctx, cohort.CohortID)
	if err != nil {
		s.logger.WarnContext(ctx, "experiment lookup failed, using cohort weights",
			"module", "application.weights",
			"layer", "application",
			"operation", "fetch_running_experiment",
			"outcome", "degraded",
			"cohort_id", cohort.CohortID,
			"error", err,
		)
		return cohortWeights, false
	}
	if experiment == nil {
		return cohortWeights, true
	}
	variant, ok := domain.AssignVariant(userID, *experiment)
	if !ok {
		return cohortWeights, true
	}
	return domain.ResolvedWeights{
		Config:     variant.Config,
		Provenance: domain.ExperimentProvenance(experiment.ExperimentID, variant.Name),
	}, true
}

// decodeCachedWeights re-validates the cached blob rather than trusting it.
func decodeCachedWeights(raw string) (domain.ResolvedWeights, error) {
	var cached cachedWeights
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		return domain.ResolvedWeights{}, err
	}
	if cached.Provenance == "" {
		return domain.ResolvedWeights{}, fmt.Errorf("cached weights missing provenance")
	}
	cfg, err := cached.Config.Build()
	if err != nil {
		return domain.ResolvedWeights{}, err
	}
	return domain.ResolvedWeights{Config: cfg, Provenance: cached.Provenance}, nil
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
