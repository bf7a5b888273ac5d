package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ServiceID string
	LogLevel  string

	HTTPPort int
	GRPCPort int

	DatabaseURL  string
	RedisURL     string
	KafkaBrokers []string

	MaxDBConns                 int32
	KafkaConsumerGroup         string
	KafkaTopicExperimentEvents string
	KafkaTopicExperimentStatus string
	ConsumerPollInterval       time.Duration
	ConsumerBatchSize          int
	HealthCheckInterval        time.Duration
	BreakerMinRequests         uint32
	BreakerFailureRatio        float64
	BreakerOpenTimeout         time.Duration
	BreakerHalfOpenMaxRequests uint32
	KafkaIngestEnabled         bool

	Feed FeedConfig
}

// FeedConfig carries the ranking tunables handed to the application layer.
type FeedConfig struct {
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
	FollowingHardCap  int
	ColdStartWindow   int
	DefaultPageSize   int
	MaxPageSize       int
	MaxOffset         int
	ScoringWorkers    int
}

type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL                string   `yaml:"postgres_url"`
		RedisURL                   string   `yaml:"redis_url"`
		KafkaBrokers               []string `yaml:"kafka_brokers"`
		KafkaConsumerGroup         string   `yaml:"kafka_consumer_group"`
		KafkaTopicExperimentEvents string   `yaml:"kafka_topic_experiment_events"`
		KafkaTopicExperimentStatus string   `yaml:"kafka_topic_experiment_status"`
	} `yaml:"dependencies"`
	Feed struct {
		CandidateWindow  string `yaml:"candidate_window"`
		CandidateLimit   int    `yaml:"candidate_limit"`
		InterestWindow   string `yaml:"interest_window"`
		TrendingWindow   string `yaml:"trending_window"`
		TrendingTTL      string `yaml:"trending_ttl"`
		TrendingLockTTL  string `yaml:"trending_lock_ttl"`
		AffinityTTL      string `yaml:"affinity_ttl"`
		WeightsTTL       string `yaml:"weights_ttl"`
		CacheTimeout     string `yaml:"cache_timeout"`
		FollowingHardCap int    `yaml:"following_hard_cap"`
		ColdStartWindow  int    `yaml:"cold_start_window"`
		DefaultPageSize  int    `yaml:"default_page_size"`
		MaxPageSize      int    `yaml:"max_page_size"`
		MaxOffset        int    `yaml:"max_offset"`
	} `yaml:"feed"`
	Resilience struct {
		BreakerMinRequests  uint32  `yaml:"breaker_min_requests"`
		BreakerFailureRatio float64 `yaml:"breaker_failure_ratio"`
		BreakerOpenTimeout  string  `yaml:"breaker_open_timeout"`
	} `yaml:"resilience"`
}

func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:                  "M60-Feed-Ranking-Engine",
		LogLevel:                   "info",
		HTTPPort:                   8080,
		GRPCPort:                   9090,
		MaxDBConns:                 20,
		KafkaConsumerGroup:         "m60-feed-ranking-engine",
		KafkaTopicExperimentEvents: "experiment.events",
		KafkaTopicExperimentStatus: "experiment.status_changed",
		ConsumerPollInterval:       2 * time.Second,
		ConsumerBatchSize:          50,
		HealthCheckInterval:        10 * time.Second,
		BreakerMinRequests:         10,
		BreakerFailureRatio:        0.6,
		BreakerOpenTimeout:         30 * time.Second,
		BreakerHalfOpenMaxRequests: 3,
		KafkaIngestEnabled:         true,
		Feed: FeedConfig{
			CandidateWindow:   7 * 24 * time.Hour,
			CandidateLimit:    500,
			InterestWindow:    7 * 24 * time.Hour,
			TrendingWindow:    48 * time.Hour,
			TrendingTTL:       5 * time.Minute,
			TrendingStaleTTL:  30 * time.Minute,
			TrendingLockTTL:   30 * time.Second,
			AffinityTTL:       time.Hour,
			WeightsTTL:        60 * time.Second,
			CacheTimeout:      150 * time.Millisecond,
			BestEffortTimeout: 2 * time.Second,
			FollowingHardCap:  500,
			ColdStartWindow:   100,
			DefaultPageSize:   20,
			MaxPageSize:       100,
			MaxOffset:         10000,
			ScoringWorkers:    8,
		},
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if err := applyFile(&cfg, f); err != nil {
			return Config{}, err
		}
	}

	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.LogLevel = envOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaConsumerGroup = envOrDefault("KAFKA_CONSUMER_GROUP", cfg.KafkaConsumerGroup)
	cfg.KafkaTopicExperimentEvents = envOrDefault("KAFKA_TOPIC_EXPERIMENT_EVENTS", cfg.KafkaTopicExperimentEvents)
	cfg.KafkaTopicExperimentStatus = envOrDefault("KAFKA_TOPIC_EXPERIMENT_STATUS", cfg.KafkaTopicExperimentStatus)
	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))
	cfg.ConsumerPollInterval = time.Duration(envInt("CONSUMER_POLL_SECONDS", int(cfg.ConsumerPollInterval.Seconds()))) * time.Second
	cfg.KafkaIngestEnabled = envBool("KAFKA_INGEST_ENABLED", cfg.KafkaIngestEnabled)
	cfg.ConsumerBatchSize = envInt("CONSUMER_BATCH_SIZE", cfg.ConsumerBatchSize)
	cfg.BreakerMinRequests = uint32(envInt("BREAKER_MIN_REQUESTS", int(cfg.BreakerMinRequests)))
	cfg.BreakerOpenTimeout = envDuration("BREAKER_OPEN_TIMEOUT", cfg.BreakerOpenTimeout)

	cfg.Feed.CandidateWindow = envDuration("FEED_CANDIDATE_WINDOW", cfg.Feed.CandidateWindow)
	cfg.Feed.CandidateLimit = envInt("FEED_CANDIDATE_LIMIT", cfg.Feed.CandidateLimit)
	cfg.Feed.InterestWindow = envDuration("FEED_INTEREST_WINDOW", cfg.Feed.InterestWindow)
	cfg.Feed.TrendingWindow = envDuration("FEED_TRENDING_WINDOW", cfg.Feed.TrendingWindow)
	cfg.Feed.TrendingTTL = envDuration("FEED_TRENDING_TTL", cfg.Feed.TrendingTTL)
	cfg.Feed.TrendingLockTTL = envDuration("FEED_TRENDING_LOCK_TTL", cfg.Feed.TrendingLockTTL)
	cfg.Feed.AffinityTTL = envDuration("FEED_AFFINITY_TTL", cfg.Feed.AffinityTTL)
	cfg.Feed.WeightsTTL = envDuration("FEED_WEIGHTS_TTL", cfg.Feed.WeightsTTL)
	cfg.Feed.CacheTimeout = envDuration("FEED_CACHE_TIMEOUT", cfg.Feed.CacheTimeout)
	cfg.Feed.FollowingHardCap = envInt("FEED_FOLLOWING_HARD_CAP", cfg.Feed.FollowingHardCap)
	cfg.Feed.DefaultPageSize = envInt("FEED_DEFAULT_PAGE_SIZE", cfg.Feed.DefaultPageSize)
	cfg.Feed.MaxPageSize = envInt("FEED_MAX_PAGE_SIZE", cfg.Feed.MaxPageSize)
	cfg.Feed.ColdStartWindow = envInt("FEED_COLD_START_WINDOW", cfg.Feed.ColdStartWindow)
	cfg.Feed.MaxOffset = envInt("FEED_MAX_OFFSET", cfg.Feed.MaxOffset)
	cfg.Feed.ScoringWorkers = envInt("FEED_SCORING_WORKERS", cfg.Feed.ScoringWorkers)
	if cfg.Feed.TrendingStaleTTL <= cfg.Feed.TrendingTTL {
		cfg.Feed.TrendingStaleTTL = 6 * cfg.Feed.TrendingTTL
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing DB_URL/POSTGRES_URL")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("missing REDIS_URL")
	}
	if cfg.Feed.CacheTimeout > time.Second {
		return Config{}, fmt.Errorf("feed cache timeout %s exceeds 1s", cfg.Feed.CacheTimeout)
	}
	if cfg.Feed.MaxPageSize < cfg.Feed.DefaultPageSize {
		return Config{}, fmt.Errorf("feed max page size %d below default %d", cfg.Feed.MaxPageSize, cfg.Feed.DefaultPageSize)
	}
	if cfg.Feed.ColdStartWindow < 5 || cfg.Feed.ColdStartWindow%5 != 0 {
		return Config{}, fmt.Errorf("feed cold start window %d must be a positive multiple of 5", cfg.Feed.ColdStartWindow)
	}
	return cfg, nil
}

func applyFile(cfg *Config, f configFile) error {
	if f.Service.ID != "" {
		cfg.ServiceID = f.Service.ID
	}
	if f.Service.HTTPPort > 0 {
		cfg.HTTPPort = f.Service.HTTPPort
	}
	if f.Service.GRPCPort > 0 {
		cfg.GRPCPort = f.Service.GRPCPort
	}
	if f.Service.LogLevel != "" {
		cfg.LogLevel = f.Service.LogLevel
	}
	if f.Dependencies.PostgresURL != "" {
		cfg.DatabaseURL = f.Dependencies.PostgresURL
	}
	if f.Dependencies.RedisURL != "" {
		cfg.RedisURL = f.Dependencies.RedisURL
	}
	if len(f.Dependencies.KafkaBrokers) > 0 {
		cfg.KafkaBrokers = trimNonEmpty(f.Dependencies.KafkaBrokers)
	}
	if f.Dependencies.KafkaConsumerGroup != "" {
		cfg.KafkaConsumerGroup = f.Dependencies.KafkaConsumerGroup
	}
	if f.Dependencies.KafkaTopicExperimentEvents != "" {
		cfg.KafkaTopicExperimentEvents = f.Dependencies.KafkaTopicExperimentEvents
	}
	if f.Dependencies.KafkaTopicExperimentStatus != "" {
		cfg.KafkaTopicExperimentStatus = f.Dependencies.KafkaTopicExperimentStatus
	}

	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"feed.candidate_window", f.Feed.CandidateWindow, &cfg.Feed.CandidateWindow},
		{"feed.interest_window", f.Feed.InterestWindow, &cfg.Feed.InterestWindow},
		{"feed.trending_window", f.Feed.TrendingWindow, &cfg.Feed.TrendingWindow},
		{"feed.trending_ttl", f.Feed.TrendingTTL, &cfg.Feed.TrendingTTL},
		{"feed.trending_lock_ttl", f.Feed.TrendingLockTTL, &cfg.Feed.TrendingLockTTL},
		{"feed.affinity_ttl", f.Feed.AffinityTTL, &cfg.Feed.AffinityTTL},
		{"feed.weights_ttl", f.Feed.WeightsTTL, &cfg.Feed.WeightsTTL},
		{"feed.cache_timeout", f.Feed.CacheTimeout, &cfg.Feed.CacheTimeout},
		{"resilience.breaker_open_timeout", f.Resilience.BreakerOpenTimeout, &cfg.BreakerOpenTimeout},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil || v <= 0 {
			return fmt.Errorf("parse config file: %s: invalid duration %q", d.name, d.raw)
		}
		*d.dst = v
	}

	if f.Feed.CandidateLimit > 0 {
		cfg.Feed.CandidateLimit = f.Feed.CandidateLimit
	}
	if f.Feed.FollowingHardCap > 0 {
		cfg.Feed.FollowingHardCap = f.Feed.FollowingHardCap
	}
	if f.Feed.DefaultPageSize > 0 {
		cfg.Feed.DefaultPageSize = f.Feed.DefaultPageSize
	}
	if f.Feed.MaxPageSize > 0 {
		cfg.Feed.MaxPageSize = f.Feed.MaxPageSize
	}
	if f.Feed.ColdStartWindow > 0 {
		cfg.Feed.ColdStartWindow = f.Feed.ColdStartWindow
	}
	if f.Feed.MaxOffset > 0 {
		cfg.Feed.MaxOffset = f.Feed.MaxOffset
	}
	if f.Resilience.BreakerMinRequests > 0 {
		cfg.BreakerMinRequests = f.Resilience.BreakerMinRequests
	}
	if f.Resilience.BreakerFailureRatio > 0 && f.Resilience.BreakerFailureRatio <= 1 {
		cfg.BreakerFailureRatio = f.Resilience.BreakerFailureRatio
	}
	return nil
}

func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	switch strings.ToLower(raw) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	default:
		return fallback
	}
}

// envDuration accepts Go duration strings ("90s", "48h").
func envDuration(name string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func envCSV(name string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	return trimNonEmpty(strings.Split(raw, ","))
}

func trimNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
