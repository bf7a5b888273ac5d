package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/viralforge/mesh/services/data-ai/M60-feed-ranking-engine/internal/adapters/cache"
	eventadapter "github.com/viralforge/mesh/services/data-ai/M60-feed-ranking-engine/internal/adapters/events"
	grpcadapter "github.com/viralforge/mesh/services/data-ai/M60-feed-ranking-engine/internal/adapters/grpc"
	httpadapter "github.com/viralforge/mesh/services/data-ai/M60-feed-ranking-engine/internal/adapters/http"
	metricsadapter "github.com/viralforge/mesh/services/data-ai/M60-feed-ranking-engine/internal/adapters/metrics"
	"github.com/viralforge/mesh/services/data-ai/M60-feed-ranking-engine/internal/adapters/postgres"
	"github.com/viralforge/mesh/services/data-ai/M60-feed-ranking-engine/internal/adapters/resilience"
	"github.com/viralforge/mesh/services/data-ai/M60-feed-ranking-engine/internal/application"
	"github.com/viralforge/mesh/services/data-ai/M60-feed-ranking-engine/internal/contracts"
	"github.com/viralforge/mesh/services/data-ai/M60-feed-ranking-engine/internal/ports"
	"google.golang.org/grpc"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	httpServer *http.Server
	grpcServer *grpc.Server
	grpcLis    net.Listener
	health     *grpcadapter.HealthReporter
	consumer   *eventadapter.ConsumerWorker
	cleanupFn  func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)})).With("service", cfg.ServiceID)
	slog.SetDefault(logger)

	db, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := postgres.RunMigrations(ctx, db); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	redisClient, err := cache.Connect(ctx, cfg.RedisURL)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	metrics := metricsadapter.NewPrometheus()
	repos := postgres.NewRepositories(db)
	signals := resilience.NewSignalStoreBreaker(repos.Signals, resilience.BreakerSettings{
		Name:             "signal-store",
		MinRequests:      cfg.BreakerMinRequests,
		FailureRatio:     cfg.BreakerFailureRatio,
		HalfOpenRequests: cfg.BreakerHalfOpenMaxRequests,
		OpenTimeout:      cfg.BreakerOpenTimeout,
	}, logger, metrics)

	var closers []io.Closer
	publisher := ports.EventPublisher(eventadapter.NewLoggingPublisher(logger))
	consumerAdapter := eventadapter.Consumer(eventadapter.NewNoopConsumer())
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, pubErr := eventadapter.NewKafkaPublisher(cfg.KafkaBrokers, map[string]string{
			contracts.EventTypeExperimentStatusChanged: cfg.KafkaTopicExperimentStatus,
		})
		if pubErr != nil {
			logger.WarnContext(ctx, "kafka publisher disabled, using logging publisher", "error", pubErr)
		} else {
			publisher = kafkaPublisher
			closers = append(closers, kafkaPublisher)
		}

		if cfg.KafkaIngestEnabled {
			kafkaConsumer, conErr := eventadapter.NewKafkaConsumer(cfg.KafkaBrokers, cfg.KafkaConsumerGroup, []string{cfg.KafkaTopicExperimentEvents})
			if conErr != nil {
				logger.WarnContext(ctx, "kafka consumer disabled, using noop consumer", "error", conErr)
			} else {
				consumerAdapter = kafkaConsumer
				closers = append(closers, kafkaConsumer)
			}
		}
	}

	service := application.NewService(application.Dependencies{
		Config: application.Config{
			ServiceName:       cfg.ServiceID,
			CandidateWindow:   cfg.Feed.CandidateWindow,
			CandidateLimit:    cfg.Feed.CandidateLimit,
			InterestWindow:    cfg.Feed.InterestWindow,
			TrendingWindow:    cfg.Feed.TrendingWindow,
			TrendingTTL:       cfg.Feed.TrendingTTL,
			TrendingStaleTTL:  cfg.Feed.TrendingStaleTTL,
			TrendingLockTTL:   cfg.Feed.TrendingLockTTL,
			AffinityTTL:       cfg.Feed.AffinityTTL,
			WeightsTTL:        cfg.Feed.WeightsTTL,
			CacheTimeout:      cfg.Feed.CacheTimeout,
			BestEffortTimeout: cfg.Feed.BestEffortTimeout,
			FollowingHardCap:  cfg.Feed.FollowingHardCap,
			ColdStartWindow:   cfg.Feed.ColdStartWindow,
			DefaultPageSize:   cfg.Feed.DefaultPageSize,
			MaxPageSize:       cfg.Feed.MaxPageSize,
			MaxOffset:         cfg.Feed.MaxOffset,
			ScoringWorkers:    cfg.Feed.ScoringWorkers,
		},
		Signals:     signals,
		Cohorts:     repos.Cohorts,
		Experiments: repos.Experiments,
		Events:      repos.Events,
		EditorPicks: repos.EditorPicks,
		Cache:       cache.NewRedisCache(redisClient),
		Publisher:   publisher,
		Metrics:     metrics,
		Logger:      logger,
	})

	health := grpcadapter.NewHealthReporter(logger, map[string]grpcadapter.Probe{
		"postgres": sqlDB.PingContext,
		"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	}, cfg.HealthCheckInterval)

	handler := httpadapter.NewHandler(service, logger)
	router := httpadapter.NewRouter(handler, httpadapter.RouterOptions{
		Metrics:  metrics.Handler(),
		Observer: metrics,
		Ready:    health.Check,
	})
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	health.Register(grpcServer)
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		for _, closer := range closers {
			_ = closer.Close()
		}
		_ = redisClient.Close()
		_ = sqlDB.Close()
		return nil, err
	}

	consumer := eventadapter.NewConsumerWorker(logger, consumerAdapter, service, cfg.KafkaTopicExperimentEvents, cfg.ConsumerPollInterval, cfg.ConsumerBatchSize)

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpServer,
		grpcServer: grpcServer,
		grpcLis:    lis,
		health:     health,
		consumer:   consumer,
		cleanupFn: func(ctx context.Context) {
			for _, closer := range closers {
				_ = closer.Close()
			}
			_ = redisClient.Close()
			_ = sqlDB.Close()
		},
	}, nil
}

func Build(ctx context.Context, configPath string) (*Runtime, error) {
	return NewRuntime(ctx, configPath)
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	errCh := make(chan error, 3)

	go func() {
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		if err := r.grpcServer.Serve(r.grpcLis); err != nil {
			errCh <- err
		}
	}()
	go func() {
		_ = r.health.Run(ctx)
	}()

	r.logger.InfoContext(ctx, "feed ranking api started",
		"module", "app.bootstrap",
		"layer", "runtime",
		"operation", "run_api",
		"outcome", "started",
		"http_port", r.cfg.HTTPPort,
		"grpc_port", r.cfg.GRPCPort,
	)

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		r.logger.ErrorContext(ctx, "runtime failure", "error", runErr)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.grpcServer.GracefulStop()
	r.cleanupFn(shutdownCtx)
	return runErr
}

func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer r.cleanupFn(context.Background())
	_ = r.grpcLis.Close()

	err := r.consumer.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
