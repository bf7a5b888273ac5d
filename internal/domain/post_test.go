package domain

import (
	"testing"
	"time"
)

func TestSortScoredTieBreaks(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	items := []ScoredPost{
		{Post: CandidatePost{PostID: "p3", PublishedAt: now.Add(-time.Hour)}, Score: 0.5},
		{Post: CandidatePost{PostID: "p2", PublishedAt: now}, Score: 0.5},
		{Post: CandidatePost{PostID: "p1", PublishedAt: now}, Score: 0.5},
		{Post: CandidatePost{PostID: "p4", PublishedAt: now.Add(-48 * time.Hour)}, Score: 0.9},
	}
	SortScored(items)
	want := []string{"p4", "p1", "p2", "p3"}
	for i, id := range want {
		if items[i].Post.PostID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, items[i].Post.PostID)
		}
	}
}

func TestRankTrending(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	ranked := RankTrending([]CandidatePost{
		{PostID: "low", PublishedAt: now, LikeCount: 1},
		{PostID: "hot", PublishedAt: now, LikeCount: 10, CommentCount: 5, ShareCount: 2},
		{PostID: "old-tie", PublishedAt: now.Add(-time.Hour), LikeCount: 26},
	})
	if ranked[0].PostID != "hot" || ranked[0].Engagement != 26 {
		t.Fatalf("expected hot first with 26, got %+v", ranked[0])
	}
	if ranked[1].PostID != "old-tie" || ranked[2].PostID != "low" {
		t.Fatalf("unexpected order: %+v", ranked)
	}
}

func TestPaginate(t *testing.T) {
	t.Parallel()
	cases := []struct {
		n, offset, limit int
		start, end       int
		more             bool
	}{
		{25, 0, 10, 0, 10, true},
		{25, 20, 10, 20, 25, false},
		{25, 30, 10, 25, 25, false},
		{20, 10, 10, 10, 20, false},
	}
	for _, tc := range cases {
		start, end, more := Paginate(tc.n, tc.offset, tc.limit)
		if start != tc.start || end != tc.end || more != tc.more {
			t.Fatalf("Paginate(%d,%d,%d) = %d,%d,%v", tc.n, tc.offset, tc.limit, start, end, more)
		}
	}
}

func TestFollowingCursorRoundTrip(t *testing.T) {
	t.Parallel()
	c := FollowingCursor{PublishedAt: time.Date(2026, 3, 1, 10, 30, 0, 123, time.UTC), PostID: "post-9"}
	decoded, err := DecodeFollowingCursor(c.Encode())
	if err != nil || decoded == nil {
		t.Fatalf("decode cursor: %v", err)
	}
	if !decoded.PublishedAt.Equal(c.PublishedAt) || decoded.PostID != c.PostID {
		t.Fatalf("cursor mismatch: %+v vs %+v", decoded, c)
	}
	if empty, err := DecodeFollowingCursor(""); err != nil || empty != nil {
		t.Fatalf("expected nil cursor for empty token, got %+v (%v)", empty, err)
	}
	if _, err := DecodeFollowingCursor("!!not-base64"); err == nil {
		t.Fatalf("expected malformed cursor error")
	}
}
