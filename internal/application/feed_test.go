package application

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/viralforge/mesh/services/data-ai/M60-feed-ranking-engine/internal/domain"
)

func warmSignals(candidates []domain.CandidatePost) *fakeSignals {
	return &fakeSignals{candidates: candidates, interactions: 50, counts: map[string]domain.InteractionCounts{}}
}

func TestForYouFeedEndToEndScore(t *testing.T) {
	t.Parallel()

	signals := warmSignals([]domain.CandidatePost{{
		PostID:      "post-1",
		AuthorID:    "author-1",
		PublishedAt: testNow.Add(-24 * time.Hour),
		Tags:        []string{"Fitness"},
	}})
	signals.counts["author-1"] = domain.InteractionCounts{Likes: 10}
	env := newTestEnv(signals, nil, nil)

	page, err := env.svc.GetForYouFeed(context.Background(), ForYouInput{UserID: "user-1", Interests: []string{"fitness"}, Limit: 10})
	if err != nil {
		t.Fatalf("for-you feed: %v", err)
	}
	if page.Mode != domain.FeedModePersonalized || page.Provenance != domain.ProvenanceDefault {
		t.Fatalf("unexpected mode/provenance: %s %s", page.Mode, page.Provenance)
	}
	if len(page.Items) != 1 {
		t.Fatalf("expected one item, got %d", len(page.Items))
	}
	if math.Abs(page.Items[0].Score-0.56) > 1e-9 {
		t.Fatalf("expected score 0.56, got %v", page.Items[0].Score)
	}
	if page.HasMore {
		t.Fatal("expected no more pages")
	}
}

func TestForYouFeedExcludesSelfAndBlockedAuthors(t *testing.T) {
	t.Parallel()

	signals := warmSignals([]domain.CandidatePost{
		{PostID: "own", AuthorID: "user-1", PublishedAt: testNow},
		{PostID: "blocked", AuthorID: "author-x", PublishedAt: testNow},
		{PostID: "ok", AuthorID: "author-2", PublishedAt: testNow},
	})
	env := newTestEnv(signals, nil, nil)

	page, err := env.svc.GetForYouFeed(context.Background(), ForYouInput{UserID: "user-1", ExcludeAuthorIDs: []string{"author-x"}})
	if err != nil {
		t.Fatalf("for-you feed: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].PostID != "ok" {
		t.Fatalf("expected only post ok, got %+v", page.Items)
	}
	if got := signals.lastCandidateQry.Since; !got.Equal(testNow.Add(-7 * 24 * time.Hour)) {
		t.Fatalf("expected 7 day window, got %v", got)
	}
}

func TestForYouFeedPaginationIsStable(t *testing.T) {
	t.Parallel()

	candidates := make([]domain.CandidatePost, 0, 30)
	for i := 0; i < 30; i++ {
		candidates = append(candidates, domain.CandidatePost{
			PostID:      fmt.Sprintf("post-%02d", i),
			AuthorID:    fmt.Sprintf("author-%d", i%7),
			PublishedAt: testNow.Add(-time.Duration(i%5) * time.Hour),
			Tags:        []string{[]string{"fitness", "food", "travel"}[i%3]},
		})
	}
	signals := warmSignals(candidates)
	signals.counts["author-3"] = domain.InteractionCounts{Likes: 4, Comments: 2}
	env := newTestEnv(signals, nil, nil)
	ctx := context.Background()
	input := ForYouInput{UserID: "user-1", Interests: []string{"fitness"}}

	input.Limit = 20
	full, err := env.svc.GetForYouFeed(ctx, input)
	if err != nil {
		t.Fatalf("full page: %v", err)
	}
	input.Limit = 10
	first, err := env.svc.GetForYouFeed(ctx, input)
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	input.Offset = 10
	second, err := env.svc.GetForYouFeed(ctx, input)
	if err != nil {
		t.Fatalf("second page: %v", err)
	}

	joined := append(append([]domain.FeedItem{}, first.Items...), second.Items...)
	if len(joined) != len(full.Items) {
		t.Fatalf("expected %d items, got %d", len(full.Items), len(joined))
	}
	for i := range joined {
		if joined[i].PostID != full.Items[i].PostID {
			t.Fatalf("position %d: paged %s, unpaged %s", i, joined[i].PostID, full.Items[i].PostID)
		}
	}
	if !first.HasMore || !second.HasMore {
		t.Fatal("expected more pages after 10 and 20 of 30")
	}
}

func TestForYouFeedCandidateFailureIsDependencyError(t *testing.T) {
	t.Parallel()

	signals := warmSignals(nil)
	signals.candidatesErr = errBoom
	env := newTestEnv(signals, nil, nil)

	_, err := env.svc.GetForYouFeed(context.Background(), ForYouInput{UserID: "user-1"})
	if !errors.Is(err, domain.ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable, got %v", err)
	}
}

func TestForYouFeedRequiresUser(t *testing.T) {
	t.Parallel()

	env := newTestEnv(nil, nil, nil)
	_, err := env.svc.GetForYouFeed(context.Background(), ForYouInput{UserID: "  "})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestForYouFeedSurvivesCacheWriteFailure(t *testing.T) {
	t.Parallel()

	signals := warmSignals([]domain.CandidatePost{{PostID: "post-1", AuthorID: "author-1", PublishedAt: testNow}})
	signals.counts["author-1"] = domain.InteractionCounts{Likes: 100}
	env := newTestEnv(signals, nil, nil)
	env.cache.failWrites = true

	page, err := env.svc.GetForYouFeed(context.Background(), ForYouInput{UserID: "user-1"})
	if err != nil {
		t.Fatalf("for-you feed: %v", err)
	}
	// recency 1.0 * 0.4 + affinity capped at 1.0 * 0.3
	if len(page.Items) != 1 || math.Abs(page.Items[0].Score-0.7) > 1e-9 {
		t.Fatalf("unexpected items %+v", page.Items)
	}
}

func TestForYouFeedAffinityFailureScoresWithoutAffinity(t *testing.T) {
	t.Parallel()

	signals := warmSignals([]domain.CandidatePost{{PostID: "post-1", AuthorID: "author-1", PublishedAt: testNow}})
	signals.countsErr = errBoom
	env := newTestEnv(signals, nil, nil)

	page, err := env.svc.GetForYouFeed(context.Background(), ForYouInput{UserID: "user-1"})
	if err != nil {
		t.Fatalf("for-you feed: %v", err)
	}
	if len(page.Items) != 1 || math.Abs(page.Items[0].Score-0.4) > 1e-9 {
		t.Fatalf("unexpected items %+v", page.Items)
	}
}

func TestResolveAffinityUsesCacheAfterFirstLookup(t *testing.T) {
	t.Parallel()

	signals := &fakeSignals{counts: map[string]domain.InteractionCounts{
		"author-1": {Likes: 5, Comments: 5},
		"author-2": {Shares: 20},
	}}
	env := newTestEnv(signals, nil, nil)
	ctx := context.Background()

	first, err := env.svc.ResolveAffinity(ctx, "user-1", []string{"author-1", "author-2", "author-1", "author-3"}, 50)
	if err != nil {
		t.Fatalf("first lookup: %v", err)
	}
	if math.Abs(first["author-1"]-0.4) > 1e-9 || first["author-2"] != 1 || first["author-3"] != 0 {
		t.Fatalf("unexpected affinity %+v", first)
	}
	if _, ok := env.cache.data[affinityCacheKey("user-1", "author-3")]; !ok {
		t.Fatal("expected zero affinity to be cached too")
	}

	second, err := env.svc.ResolveAffinity(ctx, "user-1", []string{"author-1", "author-2", "author-3"}, 50)
	if err != nil {
		t.Fatalf("second lookup: %v", err)
	}
	if got := signals.aggregateCalls.Load(); got != 1 {
		t.Fatalf("expected one aggregation, got %d", got)
	}
	for author, v := range first {
		if second[author] != v {
			t.Fatalf("author %s: cached %v, fresh %v", author, second[author], v)
		}
	}
}

func TestResolveAffinityCachedPointsFollowCeilingChanges(t *testing.T) {
	t.Parallel()

	signals := &fakeSignals{counts: map[string]domain.InteractionCounts{
		"author-1": {Likes: 5, Comments: 5},
		"author-2": {Shares: 20},
	}}
	env := newTestEnv(signals, nil, nil)
	ctx := context.Background()

	if _, err := env.svc.ResolveAffinity(ctx, "user-1", []string{"author-1", "author-2"}, 50); err != nil {
		t.Fatalf("first lookup: %v", err)
	}
	if got := env.cache.data[affinityCacheKey("user-1", "author-1")]; got != "20" {
		t.Fatalf("expected raw points in cache, got %q", got)
	}

	widened, err := env.svc.ResolveAffinity(ctx, "user-1", []string{"author-1", "author-2"}, 100)
	if err != nil {
		t.Fatalf("second lookup: %v", err)
	}
	if got := signals.aggregateCalls.Load(); got != 1 {
		t.Fatalf("expected cached points to be reused, got %d aggregations", got)
	}
	if math.Abs(widened["author-1"]-0.2) > 1e-9 || widened["author-2"] != 1 {
		t.Fatalf("expected scores against the new ceiling, got %+v", widened)
	}
}

func TestResolveAffinityRejectsNonPositiveCeiling(t *testing.T) {
	t.Parallel()

	env := newTestEnv(&fakeSignals{}, nil, nil)
	_, err := env.svc.ResolveAffinity(context.Background(), "user-1", []string{"author-1"}, 0)
	if !errors.Is(err, domain.ErrInvalidWeightConfig) {
		t.Fatalf("expected ErrInvalidWeightConfig, got %v", err)
	}
}

func coldStartSignals() *fakeSignals {
	post := func(id string, likes int64) domain.CandidatePost {
		return domain.CandidatePost{PostID: id, AuthorID: "author-" + id, PublishedAt: testNow.Add(-time.Hour), LikeCount: likes}
	}
	return &fakeSignals{
		interactions: 3,
		editorPicks:  []string{"pick-1", "pick-2", "pick-3"},
		trending: []domain.CandidatePost{
			post("pick-1", 1000),
			post("trend-1", 500), post("trend-2", 400), post("trend-3", 300),
			post("trend-4", 200), post("trend-5", 100),
		},
		interestMatched: []domain.CandidatePost{
			post("trend-1", 0),
			post("spec-1", 0), post("spec-2", 0), post("spec-3", 0), post("spec-4", 0), post("spec-5", 0),
		},
	}
}

func TestForYouFeedColdStartBlend(t *testing.T) {
	t.Parallel()

	env := newTestEnv(coldStartSignals(), nil, nil)

	page, err := env.svc.GetForYouFeed(context.Background(), ForYouInput{UserID: "user-1", Interests: []string{"fitness"}, Limit: 10})
	if err != nil {
		t.Fatalf("cold start feed: %v", err)
	}
	if page.Mode != domain.FeedModeColdStart {
		t.Fatalf("expected cold start mode, got %s", page.Mode)
	}
	seen := map[string]bool{}
	bySource := map[string]int{}
	for _, item := range page.Items {
		if seen[item.PostID] {
			t.Fatalf("duplicate post %s", item.PostID)
		}
		seen[item.PostID] = true
		bySource[item.Source]++
	}
	if bySource[domain.SourceEditorPick] > 2 || bySource[domain.SourceTrending] > 4 || bySource[domain.SourceSpecialty] > 4 {
		t.Fatalf("quota exceeded: %+v", bySource)
	}
	want := []string{"pick-1", "trend-1", "trend-2", "spec-1", "spec-2", "pick-2", "trend-3", "trend-4", "spec-3", "spec-4"}
	if len(page.Items) != len(want) {
		t.Fatalf("expected %d items, got %+v", len(want), page.Items)
	}
	for i, id := range want {
		if page.Items[i].PostID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, page.Items[i].PostID)
		}
	}
	if !page.HasMore {
		t.Fatal("expected has_more while later slots are filled")
	}
}

func TestForYouFeedColdStartDoesNotBackfill(t *testing.T) {
	t.Parallel()

	signals := coldStartSignals()
	signals.editorPicks = nil
	env := newTestEnv(signals, nil, nil)

	page, err := env.svc.GetForYouFeed(context.Background(), ForYouInput{UserID: "user-1", Interests: []string{"fitness"}, Limit: 10})
	if err != nil {
		t.Fatalf("cold start feed: %v", err)
	}
	if len(page.Items) != 8 {
		t.Fatalf("expected 8 items without editor picks, got %d", len(page.Items))
	}
	for _, item := range page.Items {
		if item.Source == domain.SourceEditorPick {
			t.Fatalf("unexpected editor pick %s", item.PostID)
		}
	}
	if !page.HasMore {
		t.Fatal("expected has_more while later slots are filled")
	}
}

func TestForYouFeedColdStartPagesWithoutRepeats(t *testing.T) {
	t.Parallel()

	env := newTestEnv(coldStartSignals(), nil, nil)
	ctx := context.Background()
	fetch := func(offset, limit int) domain.FeedPage {
		t.Helper()
		page, err := env.svc.GetForYouFeed(ctx, ForYouInput{UserID: "user-1", Interests: []string{"fitness"}, Offset: offset, Limit: limit})
		if err != nil {
			t.Fatalf("cold start feed offset=%d limit=%d: %v", offset, limit, err)
		}
		return page
	}

	whole := fetch(0, 10)
	first := fetch(0, 5)
	second := fetch(5, 5)
	joined := append(append([]domain.FeedItem{}, first.Items...), second.Items...)
	if len(joined) != len(whole.Items) {
		t.Fatalf("expected %d paged items, got %d", len(whole.Items), len(joined))
	}
	seen := map[string]bool{}
	for i, item := range joined {
		if seen[item.PostID] {
			t.Fatalf("post %s served twice", item.PostID)
		}
		seen[item.PostID] = true
		if item.PostID != whole.Items[i].PostID {
			t.Fatalf("position %d: paged %s, unpaged %s", i, item.PostID, whole.Items[i].PostID)
		}
	}

	third := fetch(10, 5)
	want := []string{"pick-3", "trend-5", "spec-5"}
	if len(third.Items) != len(want) {
		t.Fatalf("expected %v on the last page, got %+v", want, third.Items)
	}
	for i, id := range want {
		if third.Items[i].PostID != id || seen[id] {
			t.Fatalf("position %d: expected unseen %s, got %s", i, id, third.Items[i].PostID)
		}
	}
	if third.HasMore {
		t.Fatal("expected no more pages after the last filled slot")
	}
}

func TestForYouFeedHugeOffsetReturnsEmptyPage(t *testing.T) {
	t.Parallel()

	for _, offset := range []int{10_000_000_000, math.MaxInt - 3} {
		env := newTestEnv(coldStartSignals(), nil, nil)
		page, err := env.svc.GetForYouFeed(context.Background(), ForYouInput{UserID: "user-1", Interests: []string{"fitness"}, Offset: offset, Limit: 20})
		if err != nil {
			t.Fatalf("offset %d: %v", offset, err)
		}
		if len(page.Items) != 0 || page.HasMore {
			t.Fatalf("offset %d: expected empty final page, got %+v", offset, page)
		}

		trending, err := env.svc.GetTrendingFeed(context.Background(), offset, 20)
		if err != nil {
			t.Fatalf("trending offset %d: %v", offset, err)
		}
		if len(trending.Items) != 0 || trending.HasMore {
			t.Fatalf("trending offset %d: expected empty page, got %+v", offset, trending)
		}
	}
}

func TestForYouFeedCountFailureRanksAsWarm(t *testing.T) {
	t.Parallel()

	signals := coldStartSignals()
	signals.interactionsErr = errBoom
	env := newTestEnv(signals, nil, nil)

	page, err := env.svc.GetForYouFeed(context.Background(), ForYouInput{UserID: "user-1"})
	if err != nil {
		t.Fatalf("for-you feed: %v", err)
	}
	if page.Mode != domain.FeedModePersonalized {
		t.Fatalf("expected personalized mode, got %s", page.Mode)
	}
}

func TestColdStartLayout(t *testing.T) {
	t.Parallel()

	if got := coldStartQuotasFor(100); got.editor != 20 || got.trending != 40 || got.specialty != 40 {
		t.Fatalf("unexpected quotas for 100 slots: %+v", got)
	}

	slots := layoutColdStart(10, []string{"a"}, []string{"b", "c", "d"}, []string{"e"})
	want := []string{"a", "b", "c", "e", "", "", "d", "", "", ""}
	for i, id := range want {
		if slots[i].PostID != id {
			t.Fatalf("slot %d: expected %q, got %q", i, id, slots[i].PostID)
		}
	}
	if slots[6].Source != domain.SourceTrending || slots[3].Source != domain.SourceSpecialty {
		t.Fatalf("unexpected sources: %+v", slots)
	}
}
