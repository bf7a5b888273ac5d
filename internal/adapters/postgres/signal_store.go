package postgres

import (
	"context"
	"time"

	"github.com/viralforge/mesh/services/data-ai/M60-feed-ranking-engine/internal/domain"
	"github.com/viralforge/mesh/services/data-ai/M60-feed-ranking-engine/internal/ports"
	"gorm.io/gorm"
)

// trendingScanLimit bounds one trending recomputation. The scan is ordered
// by engagement, so the cap keeps the head of the ranking.
const trendingScanLimit = 5000

const trendingOrder = "like_count + comment_count*2 + share_count*3 DESC, published_at DESC, post_id ASC"

type signalStore struct {
	db *gorm.DB
}

// visiblePosts scopes a query to public, published posts.
func (s *signalStore) visiblePosts(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Model(&postModel{}).
		Where("visibility = ? AND status = ?", postVisibilityPublic, postStatusPublished)
}

func newestFirst(q *gorm.DB) *gorm.DB {
	return q.Order("published_at DESC").Order("post_id DESC")
}

func excludeAuthors(q *gorm.DB, authorIDs []string) *gorm.DB {
	// NOT IN with an empty list would filter every row.
	if len(authorIDs) == 0 {
		return q
	}
	return q.Where("author_id NOT IN ?", authorIDs)
}

func (s *signalStore) FetchCandidatePosts(ctx context.Context, query ports.CandidateQuery) ([]domain.CandidatePost, error) {
	q := excludeAuthors(s.visiblePosts(ctx).Where("published_at >= ?", query.Since), query.ExcludeAuthorIDs)
	var rows []postModel
	if err := newestFirst(q).Limit(query.Limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainCandidatePosts(rows), nil
}

// AggregateInteractionCounts computes all three counts for every author in
// one grouped query.
func (s *signalStore) AggregateInteractionCounts(ctx context.Context, userID string, authorIDs []string) (map[string]domain.InteractionCounts, error) {
	out := make(map[string]domain.InteractionCounts, len(authorIDs))
	if len(authorIDs) == 0 {
		return out, nil
	}
	var rows []interactionCountsRow
	err := s.db.WithContext(ctx).
		Model(&interactionModel{}).
		Select(`author_id,
			COUNT(*) FILTER (WHERE kind = 'like') AS likes,
			COUNT(*) FILTER (WHERE kind = 'comment') AS comments,
			COUNT(*) FILTER (WHERE kind = 'share') AS shares`).
		Where("user_id = ? AND author_id IN ?", userID, authorIDs).
		Group("author_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.AuthorID] = domain.InteractionCounts{Likes: row.Likes, Comments: row.Comments, Shares: row.Shares}
	}
	return out, nil
}

func (s *signalStore) CountUserInteractions(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&interactionModel{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// FetchActiveEditorPicks returns pick post ids by priority, skipping picks
// whose post is no longer visible.
func (s *signalStore) FetchActiveEditorPicks(ctx context.Context, limit int) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Table("editor_picks").
		Joins("JOIN posts ON posts.post_id = editor_picks.post_id").
		Where("editor_picks.is_active AND posts.visibility = ? AND posts.status = ?", postVisibilityPublic, postStatusPublished).
		Order("editor_picks.priority ASC").
		Order("editor_picks.created_at DESC").
		Limit(limit).
		Pluck("editor_picks.post_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *signalStore) FetchTrendingWindowPosts(ctx context.Context, since time.Time) ([]domain.CandidatePost, error) {
	var rows []postModel
	if err := s.trendingWindowQuery(ctx, since).Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainCandidatePosts(rows), nil
}

func (s *signalStore) trendingWindowQuery(ctx context.Context, since time.Time) *gorm.DB {
	return s.visiblePosts(ctx).
		Where("published_at >= ?", since).
		Order(trendingOrder).
		Limit(trendingScanLimit)
}

// FetchInterestMatchedPosts matches on tag or hashtag overlap. Tags are
// stored lower-cased.
func (s *signalStore) FetchInterestMatchedPosts(ctx context.Context, interests []string, since time.Time, limit int) ([]domain.CandidatePost, error) {
	normalized := stringArray(lowerAll(interests))
	if len(normalized) == 0 {
		return []domain.CandidatePost{}, nil
	}
	q := s.visiblePosts(ctx).
		Where("published_at >= ?", since).
		Where("(tags && ? OR hashtags && ?)", normalized, normalized)
	var rows []postModel
	if err := newestFirst(q).Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainCandidatePosts(rows), nil
}

func (s *signalStore) FetchFollowingPosts(ctx context.Context, query ports.FollowingQuery) ([]domain.CandidatePost, error) {
	if len(query.AuthorIDs) == 0 {
		return []domain.CandidatePost{}, nil
	}
	q := excludeAuthors(s.visiblePosts(ctx).Where("author_id IN ?", query.AuthorIDs), query.ExcludeAuthorIDs)
	if query.Before != nil {
		q = q.Where("(published_at, post_id) < (?, ?)", query.Before.PublishedAt, query.Before.PostID)
	}
	var rows []postModel
	if err := newestFirst(q).Limit(query.Limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainCandidatePosts(rows), nil
}
