package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/viralforge/mesh/services/data-ai/M60-feed-ranking-engine/internal/domain"
	"github.com/viralforge/mesh/services/data-ai/M60-feed-ranking-engine/internal/ports"
	"golang.org/x/sync/errgroup"
)

type ForYouInput struct {
	UserID           string
	Interests        []string
	CohortIDs        []string
	ExcludeAuthorIDs []string
	Offset           int
	Limit            int
}

// GetForYouFeed resolves weights and the interaction count concurrently,
// then serves either the cold-start blend or the fully scored window.
// Weights come first because the cold-start threshold is part of them.
func (s *Service) GetForYouFeed(ctx context.Context, input ForYouInput) (domain.FeedPage, error) {
	started := time.Now()
	userCtx := domain.UserContext{
		UserID:           strings.TrimSpace(input.UserID),
		Interests:        trimAll(input.Interests),
		CohortIDs:        trimAll(input.CohortIDs),
		ExcludeAuthorIDs: trimAll(input.ExcludeAuthorIDs),
	}
	if userCtx.UserID == "" {
		return domain.FeedPage{}, fmt.Errorf("%w: user_id is required", domain.ErrInvalidInput)
	}
	offset, limit := s.normalizePage(input.Offset, input.Limit)

	var (
		g        errgroup.Group
		resolved domain.ResolvedWeights
		count    int64
		countErr error
	)
	g.Go(func() error {
		var err error
		resolved, err = s.ResolveWeights(ctx, userCtx.UserID, userCtx.CohortIDs)
		return err
	})
	g.Go(func() error {
		count, countErr = s.signals.CountUserInteractions(ctx, userCtx.UserID)
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.FeedPage{}, err
	}
	userCtx.InteractionCount = count

	var page domain.FeedPage
	if countErr != nil {
		s.logger.WarnContext(ctx, "interaction count unavailable, ranking as warm user",
			"module", "application.feed",
			"layer", "application",
			"operation", "count_user_interactions",
			"outcome", "degraded",
			"error", countErr,
		)
	}
	if countErr == nil && userCtx.InteractionCount < int64(resolved.Config.ColdStartThreshold()) {
		page = s.coldStartFeed(ctx, userCtx, offset, limit)
	} else {
		var err error
		page, err = s.rankedFeed(ctx, userCtx, resolved.Config, offset, limit)
		if err != nil {
			return domain.FeedPage{}, err
		}
	}
	page.Provenance = resolved.Provenance
	s.metrics.ObserveFeed(page.Mode, time.Since(started), len(page.Items))
	return page, nil
}

func (s *Service) rankedFeed(ctx context.Context, user domain.UserContext, cfg domain.WeightConfig, offset, limit int) (domain.FeedPage, error) {
	now := s.nowFn()
	candidates, err := s.signals.FetchCandidatePosts(ctx, ports.CandidateQuery{
		ExcludeAuthorIDs: uniqueSorted(append([]string{user.UserID}, user.ExcludeAuthorIDs...)),
		Since:            now.Add(-s.cfg.CandidateWindow),
		Limit:            s.cfg.CandidateLimit,
	})
	if err != nil {
		return domain.FeedPage{}, fmt.Errorf("%w: fetch candidate posts: %w", domain.ErrDependencyUnavailable, err)
	}
	if len(candidates) > s.cfg.CandidateLimit {
		candidates = candidates[:s.cfg.CandidateLimit]
	}

	authors := make([]string, 0, len(candidates))
	for _, p := range candidates {
		authors = append(authors, p.AuthorID)
	}
	affinity, err := s.ResolveAffinity(ctx, user.UserID, authors, cfg.AffinityCeiling())
	if err != nil {
		s.logger.WarnContext(ctx, "affinity unavailable, scoring without it",
			"module", "application.feed",
			"layer", "application",
			"operation", "resolve_affinity",
			"outcome", "degraded",
			"error", err,
		)
		affinity = map[string]float64{}
	}

	scored := s.scoreCandidates(candidates, user.Interests, affinity, cfg.Weights(), now)
	domain.SortScored(scored)

	start, end, hasMore := domain.Paginate(len(scored), offset, limit)
	items := make([]domain.FeedItem, 0, end-start)
	for _, sp := range scored[start:end] {
		items = append(items, domain.FeedItem{PostID: sp.Post.PostID, Score: sp.Score, Source: domain.SourceScored})
	}
	return domain.FeedPage{Items: items, HasMore: hasMore, Mode: domain.FeedModePersonalized}, nil
}

// scoreCandidates splits the window across workers. Each worker owns a
// disjoint index range, so the only synchronisation is the final Wait.
func (s *Service) scoreCandidates(posts []domain.CandidatePost, interests []string, affinity map[string]float64, weights domain.Weights, now time.Time) []domain.ScoredPost {
	out := make([]domain.ScoredPost, len(posts))
	if len(posts) == 0 {
		return out
	}
	workers := min(s.cfg.ScoringWorkers, len(posts))
	chunk := (len(posts) + workers - 1) / workers

	var g errgroup.Group
	for start := 0; start < len(posts); start += chunk {
		end := min(start+chunk, len(posts))
		g.Go(func() error {
			for i := start; i < end; i++ {
				out[i] = scorePost(posts[i], interests, affinity[posts[i].AuthorID], weights, now)
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func scorePost(post domain.CandidatePost, interests []string, affinity float64, weights domain.Weights, now time.Time) domain.ScoredPost {
	recency := domain.RecencyScore(post.PublishedAt, now)
	specialty := domain.SpecialtyScore(post.Tags, post.Hashtags, interests)
	return domain.ScoredPost{
		Post:      post,
		Recency:   recency,
		Specialty: specialty,
		Affinity:  affinity,
		Score:     domain.CompositeScore(recency, specialty, affinity, weights),
	}
}
