package domain

import (
	"encoding/base64"
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	FeedModePersonalized = "personalized"
	FeedModeColdStart    = "cold_start"
	FeedModeTrending     = "trending"
	FeedModeFollowing    = "following"

	SourceScored     = "scored"
	SourceEditorPick = "editor_pick"
	SourceTrending   = "trending"
	SourceSpecialty  = "specialty"
	SourceFollowing  = "following"
)

// CandidatePost is the read-only projection of a post used for ranking.
type CandidatePost struct {
	PostID       string    `json:"post_id"`
	AuthorID     string    `json:"author_id"`
	PublishedAt  time.Time `json:"published_at"`
	Tags         []string  `json:"tags,omitempty"`
	Hashtags     []string  `json:"hashtags,omitempty"`
	LikeCount    int64     `json:"like_count"`
	CommentCount int64     `json:"comment_count"`
	ShareCount   int64     `json:"share_count"`
}

// InteractionCounts are the interactions a user performed against one author.
type InteractionCounts struct {
	Likes    int64 `json:"likes"`
	Comments int64 `json:"comments"`
	Shares   int64 `json:"shares"`
}

type UserContext struct {
	UserID           string
	Interests        []string
	InteractionCount int64
	CohortIDs        []string
	ExcludeAuthorIDs []string
}

type ScoredPost struct {
	Post      CandidatePost
	Recency   float64
	Specialty float64
	Affinity  float64
	Score     float64
}

// SortScored orders by score desc, then newer first, then post id asc. The
// order is total so a page is always the same slice of the same list.
func SortScored(items []ScoredPost) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.Post.PublishedAt.Equal(b.Post.PublishedAt) {
			return a.Post.PublishedAt.After(b.Post.PublishedAt)
		}
		return a.Post.PostID < b.Post.PostID
	})
}

type FeedItem struct {
	PostID string  `json:"post_id"`
	Score  float64 `json:"score"`
	Source string  `json:"source,omitempty"`
}

type FeedPage struct {
	Items      []FeedItem `json:"items"`
	HasMore    bool       `json:"has_more"`
	Mode       string     `json:"mode"`
	Provenance string     `json:"provenance,omitempty"`
}

// TrendingPost is one entry of the shared trending ranking.
type TrendingPost struct {
	PostID      string    `json:"post_id"`
	AuthorID    string    `json:"author_id"`
	PublishedAt time.Time `json:"published_at"`
	Engagement  int64     `json:"engagement"`
}

// RankTrending computes engagement for every post and returns them ordered by
// engagement desc, newer first, then post id.
func RankTrending(posts []CandidatePost) []TrendingPost {
	out := make([]TrendingPost, 0, len(posts))
	for _, p := range posts {
		out = append(out, TrendingPost{
			PostID:      p.PostID,
			AuthorID:    p.AuthorID,
			PublishedAt: p.PublishedAt,
			Engagement:  EngagementScore(p.LikeCount, p.CommentCount, p.ShareCount),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Engagement != b.Engagement {
			return a.Engagement > b.Engagement
		}
		if !a.PublishedAt.Equal(b.PublishedAt) {
			return a.PublishedAt.After(b.PublishedAt)
		}
		return a.PostID < b.PostID
	})
	return out
}

type TrendingPage struct {
	Items   []string `json:"items"`
	HasMore bool     `json:"has_more"`
}

// FollowingCursor is the keyset position of the last item a client saw.
type FollowingCursor struct {
	PublishedAt time.Time
	PostID      string
}

// Encode renders the cursor as an opaque URL-safe token.
func (c FollowingCursor) Encode() string {
	raw := c.PublishedAt.UTC().Format(time.RFC3339Nano) + "|" + c.PostID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeFollowingCursor parses a token produced by Encode. An empty token
// yields nil.
func DecodeFollowingCursor(token string) (*FollowingCursor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed cursor", ErrInvalidInput)
	}
	ts, postID, ok := strings.Cut(string(raw), "|")
	if !ok || postID == "" {
		return nil, fmt.Errorf("%w: malformed cursor", ErrInvalidInput)
	}
	publishedAt, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed cursor timestamp", ErrInvalidInput)
	}
	return &FollowingCursor{PublishedAt: publishedAt, PostID: postID}, nil
}

type FollowingPage struct {
	Items      []FeedItem `json:"items"`
	NextCursor string     `json:"next_cursor,omitempty"`
	Depth      int        `json:"depth"`
	Exhausted  bool       `json:"exhausted"`
}

// Paginate returns the [offset, offset+limit) window of n items and whether
// anything lies beyond it.
func Paginate(n, offset, limit int) (start, end int, hasMore bool) {
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}
	start = offset
	if start > n {
		start = n
	}
	end = start + limit
	if end > n {
		end = n
	}
	return start, end, end < n
}
