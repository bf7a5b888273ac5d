package ports

import (
	"context"
	"time"

	"github.com/viralforge/mesh/services/data-ai/M60-feed-ranking-engine/internal/domain"
)

// CandidateQuery bounds the personalised candidate window.
type CandidateQuery struct {
	ExcludeAuthorIDs []string
	Since            time.Time
	Limit            int
}

// FollowingQuery pages posts by followed authors in (published_at, post_id)
// descending order, strictly after Before when set.
type FollowingQuery struct {
	AuthorIDs        []string
	ExcludeAuthorIDs []string
	Before           *domain.FollowingCursor
	Limit            int
}

// SignalStore is the read side of the post and interaction corpus. Only
// public, published posts are ever returned.
type SignalStore interface {
	FetchCandidatePosts(ctx context.Context, query CandidateQuery) ([]domain.CandidatePost, error)
	AggregateInteractionCounts(ctx context.Context, userID string, authorIDs []string) (map[string]domain.InteractionCounts, error)
	CountUserInteractions(ctx context.Context, userID string) (int64, error)
	FetchActiveEditorPicks(ctx context.Context, limit int) ([]string, error)
	FetchTrendingWindowPosts(ctx context.Context, since time.Time) ([]domain.CandidatePost, error)
	FetchInterestMatchedPosts(ctx context.Context, interests []string, since time.Time, limit int) ([]domain.CandidatePost, error)
	FetchFollowingPosts(ctx context.Context, query FollowingQuery) ([]domain.CandidatePost, error)
}
