package application

import (
	"context"

	"github.com/viralforge/mesh/services/data-ai/M60-feed-ranking-engine/internal/domain"
)

// A cold-start session is laid out in blocks of five slots: one editor pick,
// two trending posts, two interest-matched posts. Every prefix of whole
// blocks keeps the 20/40/40 split.
const (
	coldStartBlock        = 5
	editorSlotsPerBlock   = 1
	trendingSlotsPerBlock = 2
)

type coldStartQuotas struct {
	editor    int
	trending  int
	specialty int
}

func coldStartQuotasFor(window int) coldStartQuotas {
	blocks := window / coldStartBlock
	return coldStartQuotas{
		editor:    blocks * editorSlotsPerBlock,
		trending:  blocks * trendingSlotsPerBlock,
		specialty: blocks * (coldStartBlock - editorSlotsPerBlock - trendingSlotsPerBlock),
	}
}

// coldStartFeed pages a session list of ColdStartWindow slots. The list does
// not depend on offset or limit, so consecutive pages never repeat a post.
// Buckets fill in order (editor picks, trending, interest-matched) and skip
// posts an earlier bucket took. A short bucket leaves its slots empty and
// the page comes back short.
func (s *Service) coldStartFeed(ctx context.Context, user domain.UserContext, offset, limit int) domain.FeedPage {
	window := s.cfg.ColdStartWindow
	page := domain.FeedPage{Items: []domain.FeedItem{}, Mode: domain.FeedModeColdStart}
	if offset >= window || limit <= 0 {
		return page
	}
	quotas := coldStartQuotasFor(window)
	seen := make(map[string]struct{}, window)
	take := func(ids []string, quota int) []string {
		out := make([]string, 0, quota)
		for _, id := range ids {
			if len(out) == quota {
				break
			}
			if _, dup := seen[id]; dup || id == "" {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
		return out
	}
	picks := take(s.editorPickBucket(ctx, quotas.editor), quotas.editor)
	trending := take(s.trendingBucket(ctx, quotas.trending), quotas.trending)
	specialty := take(s.specialtyBucket(ctx, user.Interests, window), quotas.specialty)

	slots := layoutColdStart(window, picks, trending, specialty)
	end := offset + limit
	if end > window {
		end = window
	}
	for _, item := range slots[offset:end] {
		if item.PostID != "" {
			page.Items = append(page.Items, item)
		}
	}
	for _, item := range slots[end:] {
		if item.PostID != "" {
			page.HasMore = true
			break
		}
	}
	return page
}

// layoutColdStart places each bucket into its fixed slots. Unfilled slots
// keep an empty post id.
func layoutColdStart(window int, picks, trending, specialty []string) []domain.FeedItem {
	slots := make([]domain.FeedItem, window)
	specialtySlots := coldStartBlock - editorSlotsPerBlock - trendingSlotsPerBlock
	place := func(ids []string, perBlock, first int, source string) {
		for i, id := range ids {
			slot := (i/perBlock)*coldStartBlock + first + i%perBlock
			if slot >= window {
				return
			}
			slots[slot] = domain.FeedItem{PostID: id, Source: source}
		}
	}
	place(picks, editorSlotsPerBlock, 0, domain.SourceEditorPick)
	place(trending, trendingSlotsPerBlock, editorSlotsPerBlock, domain.SourceTrending)
	place(specialty, specialtySlots, editorSlotsPerBlock+trendingSlotsPerBlock, domain.SourceSpecialty)
	return slots
}

func (s *Service) editorPickBucket(ctx context.Context, quota int) []string {
	if quota <= 0 {
		return nil
	}
	ids, err := s.signals.FetchActiveEditorPicks(ctx, quota)
	if err != nil {
		s.logBucketFailure(ctx, "fetch_active_editor_picks", err)
		return nil
	}
	return ids
}

func (s *Service) trendingBucket(ctx context.Context, quota int) []string {
	if quota <= 0 {
		return nil
	}
	ranking, err := s.trendingRanking(ctx)
	if err != nil {
		s.logBucketFailure(ctx, "trending_ranking", err)
		return nil
	}
	ids := make([]string, 0, len(ranking))
	for _, p := range ranking {
		ids = append(ids, p.PostID)
	}
	return ids
}

// specialtyBucket fetches up to the whole session window so that enough
// posts remain after removing the ones earlier buckets already took.
func (s *Service) specialtyBucket(ctx context.Context, interests []string, window int) []string {
	if len(interests) == 0 || window <= 0 {
		return nil
	}
	posts, err := s.signals.FetchInterestMatchedPosts(ctx, interests, s.nowFn().Add(-s.cfg.InterestWindow), window)
	if err != nil {
		s.logBucketFailure(ctx, "fetch_interest_matched_posts", err)
		return nil
	}
	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.PostID)
	}
	return ids
}

func (s *Service) logBucketFailure(ctx context.Context, operation string, err error) {
	s.logger.WarnContext(ctx, "cold-start bucket unavailable",
		"module", "application.cold_start",
		"layer", "application",
		"operation", operation,
		"outcome", "degraded",
		"error", err,
	)
}
