package application

import (
	"context"
	"fmt"
	"time"

	"github.com/viralforge/mesh/services/data-ai/M60-feed-ranking-engine/internal/domain"
	"github.com/viralforge/mesh/services/data-ai/M60-feed-ranking-engine/internal/ports"
)

type FollowingInput struct {
	FollowingIDs     []string
	ExcludeAuthorIDs []string
	Cursor           string
	Depth            int
	Limit            int
}

// GetFollowingFeed pages followed authors newest first. Depth counts posts
// already served this session; a session never goes past FollowingHardCap.
func (s *Service) GetFollowingFeed(ctx context.Context, input FollowingInput) (domain.FollowingPage, error) {
	started := time.Now()
	_, limit := s.normalizePage(0, input.Limit)
	depth := max(input.Depth, 0)

	cursor, err := domain.DecodeFollowingCursor(input.Cursor)
	if err != nil {
		return domain.FollowingPage{}, err
	}
	authors := uniqueSorted(trimAll(input.FollowingIDs))
	if len(authors) == 0 {
		return domain.FollowingPage{Items: []domain.FeedItem{}, Depth: depth}, nil
	}
	remaining := s.cfg.FollowingHardCap - depth
	if remaining <= 0 {
		return domain.FollowingPage{Items: []domain.FeedItem{}, Depth: depth, Exhausted: true}, nil
	}
	pageLimit := min(limit, remaining)

	posts, err := s.signals.FetchFollowingPosts(ctx, ports.FollowingQuery{
		AuthorIDs:        authors,
		ExcludeAuthorIDs: uniqueSorted(trimAll(input.ExcludeAuthorIDs)),
		Before:           cursor,
		Limit:            pageLimit + 1,
	})
	if err != nil {
		return domain.FollowingPage{}, fmt.Errorf("%w: fetch following posts: %w", domain.ErrDependencyUnavailable, err)
	}
	hasExtra := len(posts) > pageLimit
	if hasExtra {
		posts = posts[:pageLimit]
	}

	page := domain.FollowingPage{
		Items: make([]domain.FeedItem, 0, len(posts)),
		Depth: depth + len(posts),
	}
	for _, p := range posts {
		page.Items = append(page.Items, domain.FeedItem{PostID: p.PostID, Source: domain.SourceFollowing})
	}
	page.Exhausted = page.Depth >= s.cfg.FollowingHardCap || !hasExtra
	if !page.Exhausted && len(posts) > 0 {
		last := posts[len(posts)-1]
		page.NextCursor = domain.FollowingCursor{PublishedAt: last.PublishedAt, PostID: last.PostID}.Encode()
	}
	s.metrics.ObserveFeed(domain.FeedModeFollowing, time.Since(started), len(page.Items))
	return page, nil
}
