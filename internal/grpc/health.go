// Package grpc serves the gRPC health endpoint that reports whether the
// service's backing stores are reachable.
package grpc

import (
	"context"
	"log"
	"sort"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"vidchat-service/internal/observability"
)

const checkTimeout = 3 * time.Second

// CheckFunc reports whether one dependency is reachable.
type CheckFunc func(ctx context.Context) error

// HealthMonitor runs dependency checks and publishes the result through the
// standard gRPC health service. Each check is reported under its own
// service name; the empty name is SERVING only when every check passes.
type HealthMonitor struct {
	server   *health.Server
	checks   map[string]CheckFunc
	interval time.Duration
}

func NewHealthMonitor(interval time.Duration, checks map[string]CheckFunc) *HealthMonitor {
	m := &HealthMonitor{server: health.NewServer(), checks: checks, interval: interval}
	m.server.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	return m
}

// NewServer builds a gRPC server exposing the monitor, with metrics and
// tracing on every call.
func NewServer(monitor *HealthMonitor) *grpclib.Server {
	srv := grpclib.NewServer(
		grpclib.StatsHandler(otelgrpc.NewServerHandler()),
		grpclib.UnaryInterceptor(observability.GRPCServerMetricsUnaryInterceptor()),
	)
	healthpb.RegisterHealthServer(srv, monitor.server)
	return srv
}

// Run checks until ctx is done, then marks everything NOT_SERVING.
func (m *HealthMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.CheckOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			m.server.Shutdown()
			return
		case <-ticker.C:
			m.CheckOnce(ctx)
		}
	}
}

// CheckOnce runs every check and updates the reported statuses.
func (m *HealthMonitor) CheckOnce(ctx context.Context) {
	names := make([]string, 0, len(m.checks))
	for name := range m.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	overall := healthpb.HealthCheckResponse_SERVING
	for _, name := range names {
		checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := m.checks[name](checkCtx)
		cancel()

		status := healthpb.HealthCheckResponse_SERVING
		if err != nil {
			log.Printf("health check %s failed: %v", name, err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
			overall = status
		}
		m.server.SetServingStatus(name, status)
	}
	m.server.SetServingStatus("", overall)
}
