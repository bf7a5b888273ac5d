package application

import (
	"context"
	"fmt"
	"strconv"

	"github.com/viralforge/mesh/services/data-ai/M60-feed-ranking-engine/internal/domain"
)

// ResolveAffinity returns a normalised affinity for every distinct author.
// Cached entries are read in one round trip; misses are aggregated from the
// signal store in one batch and written back best-effort. The cache holds raw
// points and the ceiling is applied on read, so a ceiling change takes effect
// without invalidation.
func (s *Service) ResolveAffinity(ctx context.Context, userID string, authorIDs []string, ceiling float64) (map[string]float64, error) {
	authors := uniqueSorted(authorIDs)
	out := make(map[string]float64, len(authors))
	if len(authors) == 0 {
		return out, nil
	}
	if _, err := domain.AffinityScore(0, ceiling); err != nil {
		return nil, err
	}

	keys := make([]string, len(authors))
	for i, author := range authors {
		keys[i] = affinityCacheKey(userID, author)
	}
	cached := s.cacheGetMany(ctx, keys)

	misses := make([]string, 0, len(authors))
	for i, author := range authors {
		if cached[i].Found {
			if points, err := strconv.ParseFloat(cached[i].Value, 64); err == nil && points >= 0 {
				out[author], _ = domain.AffinityScore(points, ceiling)
				continue
			}
		}
		misses = append(misses, author)
	}
	s.metrics.ObserveAffinityLookup(len(authors)-len(misses), len(misses))
	if len(misses) == 0 {
		return out, nil
	}

	counts, err := s.signals.AggregateInteractionCounts(ctx, userID, misses)
	if err != nil {
		return nil, fmt.Errorf("%w: aggregate interaction counts: %w", domain.ErrDependencyUnavailable, err)
	}
	writeBack := make(map[string]string, len(misses))
	for _, author := range misses {
		points := domain.RawAffinityPoints(counts[author])
		out[author], _ = domain.AffinityScore(points, ceiling)
		writeBack[affinityCacheKey(userID, author)] = strconv.FormatFloat(points, 'f', -1, 64)
	}
	s.cacheSetMany(ctx, writeBack, s.cfg.AffinityTTL)
	return out, nil
}
