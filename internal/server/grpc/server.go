// Package grpcserver runs the operational gRPC endpoint: the standard health
// service backed by a storage ping, and reflection in development mode.
package grpcserver

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Service is the name reported for the API in the health service.
const Service = "spellkeeper.API"

// Pinger reports storage liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health keeps the gRPC health status in sync with the database.
type Health struct {
	srv      *health.Server
	db       Pinger
	interval time.Duration
	log      *zap.Logger
}

// NewHealth constructs Health. A nil db means there is nothing to ping and the
// status is always SERVING.
func NewHealth(db Pinger, interval time.Duration, log *zap.Logger) *Health {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Health{srv: health.NewServer(), db: db, interval: interval, log: log.Named("health")}
}

// Check pings the database once and publishes the result.
func (h *Health) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	st := healthpb.HealthCheckResponse_SERVING
	if h.db != nil {
		pctx, cancel := context.WithTimeout(ctx, h.interval)
		err := h.db.Ping(pctx)
		cancel()
		if err != nil {
			h.log.Warn("database ping failed", zap.Error(err))
			st = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	h.srv.SetServingStatus("", st)
	h.srv.SetServingStatus(Service, st)
	return st
}

// Run re-checks every interval until ctx is done, then marks everything
// NOT_SERVING.
func (h *Health) Run(ctx context.Context) {
	h.Check(ctx)
	t := time.NewTicker(h.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			h.srv.Shutdown()
			return
		case <-t.C:
			h.Check(ctx)
		}
	}
}

// NewServer builds a gRPC server with recovery and logging interceptors and the
// health service registered.
func NewServer(log *zap.Logger, h *Health, dev bool, opts ...grpc.ServerOption) *grpc.Server {
	log = log.Named("grpc")
	opts = append(opts,
		grpc.ChainUnaryInterceptor(RecoverUnary(log), LoggingUnary(log)),
		grpc.ChainStreamInterceptor(RecoverStream(log), LoggingStream(log)),
	)
	s := grpc.NewServer(opts...)
	healthpb.RegisterHealthServer(s, h.srv)
	if dev {
		reflection.Register(s)
	}
	return s
}
