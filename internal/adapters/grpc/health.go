package grpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name reported alongside the overall
// ("") status.
const ServiceName = "feed.ranking.v1.FeedRanking"

// Probe checks one dependency; a nil error means healthy.
type Probe func(ctx context.Context) error

// HealthReporter runs dependency probes and mirrors the result into the
// standard gRPC health service. The HTTP readiness route uses Check too.
type HealthReporter struct {
	logger   *slog.Logger
	server   *health.Server
	probes   map[string]Probe
	interval time.Duration
	timeout  time.Duration

	mu      sync.Mutex
	lastErr error
}

func NewHealthReporter(logger *slog.Logger, probes map[string]Probe, interval time.Duration) *HealthReporter {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	r := &HealthReporter{
		logger:   logger,
		server:   health.NewServer(),
		probes:   probes,
		interval: interval,
		timeout:  2 * time.Second,
	}
	r.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	return r
}

func (r *HealthReporter) Register(server grpc.ServiceRegistrar) {
	healthpb.RegisterHealthServer(server, r.server)
}

// Check runs every probe once and updates the serving status.
func (r *HealthReporter) Check(ctx context.Context) error {
	names := make([]string, 0, len(r.probes))
	for name := range r.probes {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		probeCtx, cancel := context.WithTimeout(ctx, r.timeout)
		err := r.probes[name](probeCtx)
		cancel()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	err := errors.Join(errs...)

	r.mu.Lock()
	changed := (err == nil) != (r.lastErr == nil)
	r.lastErr = err
	r.mu.Unlock()

	if err != nil {
		r.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	} else {
		r.setStatus(healthpb.HealthCheckResponse_SERVING)
	}
	if changed {
		outcome := "serving"
		if err != nil {
			outcome = "not_serving"
		}
		r.logger.InfoContext(ctx, "health status changed",
			"module", "adapters.grpc",
			"layer", "adapter",
			"operation", "health_check",
			"outcome", outcome,
			"error", err,
		)
	}
	return err
}

// Run probes on an interval until ctx is cancelled, then marks the service
// as not serving so load balancers drain it.
func (r *HealthReporter) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		_ = r.Check(ctx)
		select {
		case <-ctx.Done():
			r.server.Shutdown()
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (r *HealthReporter) setStatus(status healthpb.HealthCheckResponse_ServingStatus) {
	r.server.SetServingStatus("", status)
	r.server.SetServingStatus(ServiceName, status)
}
