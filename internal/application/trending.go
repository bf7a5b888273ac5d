package application

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/data-ai/M60-feed-ranking-engine/internal/domain"
)

type trendingSnapshot struct {
	Posts      []domain.TrendingPost `json:"posts"`
	ComputedAt time.Time             `json:"computed_at"`
}

// GetTrendingFeed pages the shared trending ranking.
func (s *Service) GetTrendingFeed(ctx context.Context, offset, limit int) (domain.TrendingPage, error) {
	started := time.Now()
	offset, limit = s.normalizePage(offset, limit)
	ranking, err := s.trendingRanking(ctx)
	if err != nil {
		return domain.TrendingPage{}, fmt.Errorf("%w: trending ranking: %w", domain.ErrDependencyUnavailable, err)
	}
	start, end, hasMore := domain.Paginate(len(ranking), offset, limit)
	items := make([]string, 0, end-start)
	for _, p := range ranking[start:end] {
		items = append(items, p.PostID)
	}
	s.metrics.ObserveFeed(domain.FeedModeTrending, time.Since(started), len(items))
	return domain.TrendingPage{Items: items, HasMore: hasMore}, nil
}

// trendingRanking serves the shared cached list. On expiry, concurrent
// callers in this process collapse into one recomputation, and across
// processes a short lock key elects a single recomputer. The recomputation
// is detached from any one caller, so a caller that gives up does not fail
// the others waiting on it.
func (s *Service) trendingRanking(ctx context.Context) ([]domain.TrendingPost, error) {
	if posts, ok := s.cachedTrending(ctx, trendingCacheKey); ok {
		s.metrics.ObserveTrendingRecompute("cache_hit")
		return posts, nil
	}
	ch := s.trendingFlight.DoChan(trendingCacheKey, func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.TrendingLockTTL)
		defer cancel()
		return s.recomputeTrending(flightCtx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]domain.TrendingPost), nil
	}
}

func (s *Service) recomputeTrending(ctx context.Context) ([]domain.TrendingPost, error) {
	token, locked := s.acquireTrendingLock(ctx)
	if !locked {
		if posts, ok := s.cachedTrending(ctx, trendingStaleCacheKey); ok {
			s.metrics.ObserveTrendingRecompute("stale")
			return posts, nil
		}
	}

	now := s.nowFn()
	posts, err := s.signals.FetchTrendingWindowPosts(ctx, now.Add(-s.cfg.TrendingWindow))
	if locked {
		defer s.releaseTrendingLock(ctx, token)
	}
	if err != nil {
		s.metrics.ObserveTrendingRecompute("failed")
		return nil, err
	}
	ranked := domain.RankTrending(posts)

	payload, _ := json.Marshal(trendingSnapshot{Posts: ranked, ComputedAt: now})
	s.cacheSet(ctx, trendingCacheKey, string(payload), s.cfg.TrendingTTL)
	s.cacheSet(ctx, trendingStaleCacheKey, string(payload), s.cfg.TrendingStaleTTL)
	if locked {
		s.metrics.ObserveTrendingRecompute("recomputed")
	} else {
		s.metrics.ObserveTrendingRecompute("recomputed_unlocked")
	}
	return ranked, nil
}

func (s *Service) cachedTrending(ctx context.Context, key string) ([]domain.TrendingPost, bool) {
	raw, ok := s.cacheGet(ctx, key)
	if !ok {
		return nil, false
	}
	var snap trendingSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, false
	}
	return snap.Posts, true
}

// acquireTrendingLock reports whether this caller won the recompute lock
// and the token it holds it with. Without a cache every caller recomputes.
func (s *Service) acquireTrendingLock(ctx context.Context) (string, bool) {
	if s.cache == nil {
		return "", true
	}
	token := s.cfg.ServiceName + ":" + uuid.NewString()
	lockCtx, cancel := context.WithTimeout(ctx, s.cfg.CacheTimeout)
	defer cancel()
	ok, err := s.cache.SetNX(lockCtx, trendingLockKey, token, s.cfg.TrendingLockTTL)
	if err != nil {
		s.logCacheMiss(ctx, "trending_lock", err)
		return "", false
	}
	return token, ok
}

// releaseTrendingLock leaves the key alone once it has expired and another
// instance holds it.
func (s *Service) releaseTrendingLock(ctx context.Context, token string) {
	if s.cache == nil {
		return
	}
	s.bestEffort(ctx, "trending_unlock", s.cfg.CacheTimeout, func(ctx context.Context) error {
		released, err := s.cache.DeleteIfValue(ctx, trendingLockKey, token)
		if err == nil && !released {
			s.logger.WarnContext(ctx, "trending lock expired before release",
				"module", "application.trending",
				"layer", "application",
				"operation", "trending_unlock",
				"outcome", "lock_lost",
			)
		}
		return err
	})
}
