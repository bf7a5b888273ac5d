package application

import (
	"log/slog"
	"time"

	"github.com/viralforge/mesh/services/data-ai/M60-feed-ranking-engine/internal/ports"
	"golang.org/x/sync/singleflight"
)

type Config struct {
	ServiceName string

	CandidateWindow   time.Duration
	CandidateLimit    int
	InterestWindow    time.Duration
	TrendingWindow    time.Duration
	TrendingTTL       time.Duration
	TrendingStaleTTL  time.Duration
	TrendingLockTTL   time.Duration
	AffinityTTL       time.Duration
	WeightsTTL        time.Duration
	CacheTimeout      time.Duration
	BestEffortTimeout time.Duration

	FollowingHardCap int
	ColdStartWindow  int
	DefaultPageSize  int
	MaxPageSize      int
	MaxOffset        int
	ScoringWorkers   int
}

type Service struct {
	cfg         Config
	signals     ports.SignalStore
	cohorts     ports.CohortRepository
	experiments ports.ExperimentRepository
	events      ports.ExperimentEventRepository
	editorPicks ports.EditorPickRepository
	cache       ports.Cache
	publisher   ports.EventPublisher
	metrics     ports.FeedMetrics
	logger      *slog.Logger
	nowFn       func() time.Time

	trendingFlight singleflight.Group
}

type Dependencies struct {
	Config      Config
	Signals     ports.SignalStore
	Cohorts     ports.CohortRepository
	Experiments ports.ExperimentRepository
	Events      ports.ExperimentEventRepository
	EditorPicks ports.EditorPickRepository
	Cache       ports.Cache
	Publisher   ports.EventPublisher
	Metrics     ports.FeedMetrics
	Logger      *slog.Logger
	Clock       func() time.Time
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.ServiceName == "" {
		cfg.ServiceName = "M60-Feed-Ranking-Engine"
	}
	if cfg.CandidateWindow <= 0 {
		cfg.CandidateWindow = 7 * 24 * time.Hour
	}
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = 500
	}
	if cfg.InterestWindow <= 0 {
		cfg.InterestWindow = 7 * 24 * time.Hour
	}
	if cfg.TrendingWindow <= 0 {
		cfg.TrendingWindow = 48 * time.Hour
	}
	if cfg.TrendingTTL <= 0 {
		cfg.TrendingTTL = 5 * time.Minute
	}
	if cfg.TrendingStaleTTL <= cfg.TrendingTTL {
		cfg.TrendingStaleTTL = 6 * cfg.TrendingTTL
	}
	if cfg.TrendingLockTTL <= 0 {
		cfg.TrendingLockTTL = 30 * time.Second
	}
	if cfg.AffinityTTL <= 0 {
		cfg.AffinityTTL = time.Hour
	}
	if cfg.WeightsTTL <= 0 {
		cfg.WeightsTTL = 60 * time.Second
	}
	if cfg.CacheTimeout <= 0 {
		cfg.CacheTimeout = 150 * time.Millisecond
	}
	if cfg.BestEffortTimeout <= 0 {
		cfg.BestEffortTimeout = 2 * time.Second
	}
	if cfg.FollowingHardCap <= 0 {
		cfg.FollowingHardCap = 500
	}
	if cfg.ColdStartWindow < coldStartBlock {
		cfg.ColdStartWindow = 100
	}
	cfg.ColdStartWindow -= cfg.ColdStartWindow % coldStartBlock
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 20
	}
	if cfg.MaxPageSize < cfg.DefaultPageSize {
		cfg.MaxPageSize = 100
	}
	if cfg.MaxOffset <= 0 {
		cfg.MaxOffset = 10000
	}
	if cfg.ScoringWorkers <= 0 {
		cfg.ScoringWorkers = 8
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = ports.NoopFeedMetrics{}
	}
	clock := deps.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}

	return &Service{
		cfg:         cfg,
		signals:     deps.Signals,
		cohorts:     deps.Cohorts,
		experiments: deps.Experiments,
		events:      deps.Events,
		editorPicks: deps.EditorPicks,
		cache:       deps.Cache,
		publisher:   deps.Publisher,
		metrics:     metrics,
		logger:      logger,
		nowFn:       clock,
	}
}

// normalizePage clamps offset and limit to the configured bounds. Offsets
// past MaxOffset land beyond every ranked list and yield an empty page.
func (s *Service) normalizePage(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if offset > s.cfg.MaxOffset {
		offset = s.cfg.MaxOffset
	}
	if limit <= 0 {
		limit = s.cfg.DefaultPageSize
	}
	if limit > s.cfg.MaxPageSize {
		limit = s.cfg.MaxPageSize
	}
	return offset, limit
}
