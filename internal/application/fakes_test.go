package application

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/viralforge/mesh/services/data-ai/M60-feed-ranking-engine/internal/domain"
	"github.com/viralforge/mesh/services/data-ai/M60-feed-ranking-engine/internal/ports"
)

var errBoom = errors.New("boom")

type fakeSignals struct {
	candidates       []domain.CandidatePost
	candidatesErr    error
	counts           map[string]domain.InteractionCounts
	countsErr        error
	interactions     int64
	interactionsErr  error
	editorPicks      []string
	trending         []domain.CandidatePost
	interestMatched  []domain.CandidatePost
	following        []domain.CandidatePost
	lastCandidateQry ports.CandidateQuery
	trendingGate     chan struct{}

	aggregateCalls atomic.Int32
	trendingCalls  atomic.Int32
}

func (f *fakeSignals) FetchCandidatePosts(_ context.Context, q ports.CandidateQuery) ([]domain.CandidatePost, error) {
	f.lastCandidateQry = q
	if f.candidatesErr != nil {
		return nil, f.candidatesErr
	}
	excluded := map[string]bool{}
	for _, id := range q.ExcludeAuthorIDs {
		excluded[id] = true
	}
	out := []domain.CandidatePost{}
	for _, p := range f.candidates {
		if excluded[p.AuthorID] || p.PublishedAt.Before(q.Since) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeSignals) AggregateInteractionCounts(_ context.Context, _ string, authorIDs []string) (map[string]domain.InteractionCounts, error) {
	f.aggregateCalls.Add(1)
	if f.countsErr != nil {
		return nil, f.countsErr
	}
	out := map[string]domain.InteractionCounts{}
	for _, id := range authorIDs {
		if c, ok := f.counts[id]; ok {
			out[id] = c
		}
	}
	return out, nil
}

func (f *fakeSignals) CountUserInteractions(context.Context, string) (int64, error) {
	return f.interactions, f.interactionsErr
}

func (f *fakeSignals) FetchActiveEditorPicks(_ context.Context, limit int) ([]string, error) {
	if limit < len(f.editorPicks) {
		return f.editorPicks[:limit], nil
	}
	return f.editorPicks, nil
}

func (f *fakeSignals) FetchTrendingWindowPosts(ctx context.Context, _ time.Time) ([]domain.CandidatePost, error) {
	f.trendingCalls.Add(1)
	if f.trendingGate != nil {
		select {
		case <-f.trendingGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.trending, nil
}

func (f *fakeSignals) FetchInterestMatchedPosts(_ context.Context, _ []string, _ time.Time, limit int) ([]domain.CandidatePost, error) {
	if limit < len(f.interestMatched) {
		return f.interestMatched[:limit], nil
	}
	return f.interestMatched, nil
}

func (f *fakeSignals) FetchFollowingPosts(_ context.Context, q ports.FollowingQuery) ([]domain.CandidatePost, error) {
	posts := append([]domain.CandidatePost(nil), f.following...)
	sort.Slice(posts, func(i, j int) bool {
		if !posts[i].PublishedAt.Equal(posts[j].PublishedAt) {
			return posts[i].PublishedAt.After(posts[j].PublishedAt)
		}
		return posts[i].PostID > posts[j].PostID
	})
	out := []domain.CandidatePost{}
	for _, p := range posts {
		if q.Before != nil {
			older := p.PublishedAt.Before(q.Before.PublishedAt) ||
				(p.PublishedAt.Equal(q.Before.PublishedAt) && p.PostID < q.Before.PostID)
			if !older {
				continue
			}
		}
		out = append(out, p)
		if len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

type fakeCohorts struct {
	mu        sync.Mutex
	items     map[string]domain.Cohort
	fetchErr  error
	fetchHits atomic.Int32
}

func newFakeCohorts(cohorts ...domain.Cohort) *fakeCohorts {
	f := &fakeCohorts{items: map[string]domain.Cohort{}}
	for _, c := range cohorts {
		f.items[c.CohortID] = c
	}
	return f
}

func (f *fakeCohorts) FetchActiveCohorts(_ context.Context, ids []string) ([]domain.Cohort, error) {
	f.fetchHits.Add(1)
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Cohort{}
	for _, id := range ids {
		if c, ok := f.items[id]; ok && c.Active {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCohorts) Create(_ context.Context, c domain.Cohort) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[c.CohortID] = c
	return nil
}

func (f *fakeCohorts) Update(ctx context.Context, c domain.Cohort) error { return f.Create(ctx, c) }

func (f *fakeCohorts) Get(_ context.Context, id string) (domain.Cohort, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.items[id]
	if !ok {
		return domain.Cohort{}, domain.ErrNotFound
	}
	return c, nil
}

func (f *fakeCohorts) List(context.Context) ([]domain.Cohort, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Cohort, 0, len(f.items))
	for _, c := range f.items {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeCohorts) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

type fakeExperiments struct {
	mu      sync.Mutex
	items   map[string]domain.Experiment
	results map[string]domain.ExperimentResults
}

func newFakeExperiments(experiments ...domain.Experiment) *fakeExperiments {
	f := &fakeExperiments{items: map[string]domain.Experiment{}, results: map[string]domain.ExperimentResults{}}
	for _, e := range experiments {
		f.items[e.ExperimentID] = e
	}
	return f
}

func (f *fakeExperiments) FetchRunningExperiment(_ context.Context, cohortID string) (*domain.Experiment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.items {
		if e.CohortID == cohortID && e.Status == domain.ExperimentStatusRunning {
			found := e
			return &found, nil
		}
	}
	return nil, nil
}

func (f *fakeExperiments) Create(_ context.Context, e domain.Experiment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[e.ExperimentID] = e
	return nil
}

func (f *fakeExperiments) Update(ctx context.Context, e domain.Experiment) error { return f.Create(ctx, e) }

func (f *fakeExperiments) Get(_ context.Context, id string) (domain.Experiment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.items[id]
	if !ok {
		return domain.Experiment{}, domain.ErrNotFound
	}
	return e, nil
}

func (f *fakeExperiments) List(context.Context) ([]domain.Experiment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Experiment, 0, len(f.items))
	for _, e := range f.items {
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeExperiments) SaveResults(_ context.Context, id string, r domain.ExperimentResults) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[id] = r
	return nil
}

type fakeEvents struct {
	mu     sync.Mutex
	events []domain.ExperimentEvent
}

func (f *fakeEvents) Append(_ context.Context, e domain.ExperimentEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return nil
}

func (f *fakeEvents) AggregateByVariant(_ context.Context, experimentID string) ([]domain.VariantCounts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	byVariant := map[string]*domain.VariantCounts{}
	for _, e := range f.events {
		if e.ExperimentID != experimentID {
			continue
		}
		c, ok := byVariant[e.VariantName]
		if !ok {
			c = &domain.VariantCounts{Variant: e.VariantName}
			byVariant[e.VariantName] = c
		}
		switch e.EventType {
		case domain.EventImpression:
			c.Impressions++
		case domain.EventClick:
			c.Clicks++
		case domain.EventLike:
			c.Likes++
		case domain.EventSessionStart:
			c.SessionStarts++
		}
	}
	out := make([]domain.VariantCounts, 0, len(byVariant))
	for _, c := range byVariant {
		out = append(out, *c)
	}
	return out, nil
}

type fakeEditorPicks struct {
	mu    sync.Mutex
	items map[string]domain.EditorPick
}

func (f *fakeEditorPicks) Add(_ context.Context, p domain.EditorPick) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.items == nil {
		f.items = map[string]domain.EditorPick{}
	}
	if _, ok := f.items[p.PostID]; ok {
		return domain.ErrConflict
	}
	f.items[p.PostID] = p
	return nil
}

func (f *fakeEditorPicks) Deactivate(_ context.Context, postID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[postID]
	if !ok {
		return domain.ErrNotFound
	}
	p.Active = false
	f.items[postID] = p
	return nil
}

func (f *fakeEditorPicks) ListActive(context.Context) ([]domain.EditorPick, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.EditorPick{}
	for _, p := range f.items {
		if p.Active {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out, nil
}

// memCache ignores TTLs; failWrites and failReads simulate an outage.
type memCache struct {
	mu         sync.Mutex
	data       map[string]string
	failWrites bool
	failReads  bool
	sets       int
	gets       atomic.Int32
}

func newMemCache() *memCache { return &memCache{data: map[string]string{}} }

func (c *memCache) Get(_ context.Context, key string) (string, bool, error) {
	c.gets.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failReads {
		return "", false, errBoom
	}
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memCache) GetMany(_ context.Context, keys []string) ([]ports.CacheValue, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failReads {
		return nil, errBoom
	}
	out := make([]ports.CacheValue, len(keys))
	for i, k := range keys {
		v, ok := c.data[k]
		out[i] = ports.CacheValue{Value: v, Found: ok}
	}
	return out, nil
}

func (c *memCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failWrites {
		return errBoom
	}
	c.sets++
	c.data[key] = value
	return nil
}

func (c *memCache) SetMany(ctx context.Context, entries map[string]string, ttl time.Duration) error {
	for k, v := range entries {
		if err := c.Set(ctx, k, v, ttl); err != nil {
			return err
		}
	}
	return nil
}

func (c *memCache) SetNX(_ context.Context, key, value string, _ time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failWrites {
		return false, errBoom
	}
	if _, ok := c.data[key]; ok {
		return false, nil
	}
	c.data[key] = value
	return true, nil
}

func (c *memCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func (c *memCache) DeleteIfValue(_ context.Context, key, value string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failWrites {
		return false, errBoom
	}
	if current, ok := c.data[key]; !ok || current != value {
		return false, nil
	}
	delete(c.data, key)
	return true, nil
}

// put writes a key directly, bypassing failure injection.
func (c *memCache) put(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
}

func (c *memCache) value(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, _ []byte, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
	return nil
}

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	svc         *Service
	signals     *fakeSignals
	cohorts     *fakeCohorts
	experiments *fakeExperiments
	events      *fakeEvents
	picks       *fakeEditorPicks
	cache       *memCache
	publisher   *recordingPublisher
}

func newTestEnv(signals *fakeSignals, cohorts *fakeCohorts, experiments *fakeExperiments) *testEnv {
	if signals == nil {
		signals = &fakeSignals{}
	}
	if cohorts == nil {
		cohorts = newFakeCohorts()
	}
	if experiments == nil {
		experiments = newFakeExperiments()
	}
	env := &testEnv{
		signals:     signals,
		cohorts:     cohorts,
		experiments: experiments,
		events:      &fakeEvents{},
		picks:       &fakeEditorPicks{},
		cache:       newMemCache(),
		publisher:   &recordingPublisher{},
	}
	env.svc = NewService(Dependencies{
		Signals:     env.signals,
		Cohorts:     env.cohorts,
		Experiments: env.experiments,
		Events:      env.events,
		EditorPicks: env.picks,
		Cache:       env.cache,
		Publisher:   env.publisher,
		Clock:       func() time.Time { return testNow },
	})
	return env
}

func mustConfig(r, s, a float64, threshold int, ceiling float64) domain.WeightConfig {
	cfg, err := domain.NewWeightConfig(r, s, a, threshold, ceiling)
	if err != nil {
		panic(err)
	}
	return cfg
}
