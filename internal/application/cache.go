package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"

	"github.com/viralforge/mesh/services/data-ai/M60-feed-ranking-engine/internal/domain"
	"github.com/viralforge/mesh/services/data-ai/M60-feed-ranking-engine/internal/ports"
)

const (
	trendingCacheKey      = "feed:trending"
	trendingStaleCacheKey = "feed:trending:stale"
	trendingLockKey       = "feed:trending:lock"
)

func affinityCacheKey(userID, authorID string) string {
	return "feed:" + userID + ":affinity:" + authorID
}

// weightsCacheKey hashes the sorted, de-duplicated cohort set so that the
// same set in any order maps to the same entry.
func weightsCacheKey(userID string, cohortIDs []string) string {
	ids := uniqueSorted(cohortIDs)
	raw, _ := json.Marshal(ids)
	sum := sha256.Sum256(raw)
	return "experiments:weights:" + userID + ":" + hex.EncodeToString(sum[:])[:16]
}

func uniqueSorted(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// cacheGet treats every error, including the timeout, as a miss.
func (s *Service) cacheGet(ctx context.Context, key string) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.CacheTimeout)
	defer cancel()
	value, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logCacheMiss(ctx, "cache_get", err)
		return "", false
	}
	return value, ok
}

func (s *Service) cacheGetMany(ctx context.Context, keys []string) []ports.CacheValue {
	if s.cache == nil || len(keys) == 0 {
		return make([]ports.CacheValue, len(keys))
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.CacheTimeout)
	defer cancel()
	values, err := s.cache.GetMany(ctx, keys)
	if err != nil || len(values) != len(keys) {
		s.logCacheMiss(ctx, "cache_get_many", err)
		return make([]ports.CacheValue, len(keys))
	}
	return values
}

func (s *Service) cacheSet(ctx context.Context, key, value string, ttl time.Duration) domain.BestEffort {
	return s.bestEffort(ctx, "cache_set", s.cfg.CacheTimeout, func(ctx context.Context) error {
		if s.cache == nil {
			return nil
		}
		return s.cache.Set(ctx, key, value, ttl)
	})
}

func (s *Service) cacheSetMany(ctx context.Context, entries map[string]string, ttl time.Duration) domain.BestEffort {
	return s.bestEffort(ctx, "cache_set_many", s.cfg.CacheTimeout, func(ctx context.Context) error {
		if s.cache == nil || len(entries) == 0 {
			return nil
		}
		return s.cache.SetMany(ctx, entries, ttl)
	})
}

func (s *Service) logCacheMiss(ctx context.Context, operation string, err error) {
	if err == nil {
		return
	}
	s.logger.DebugContext(ctx, "cache unavailable, treating as miss",
		"module", "application.cache",
		"layer", "application",
		"operation", operation,
		"outcome", "miss",
		"error", err,
	)
}
