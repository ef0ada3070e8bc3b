// Package health exposes component status over the standard gRPC health
// protocol. Each named check maps to one health service; the empty service
// name reports SERVING only while every check passes.
package health

import (
	"context"
	"net"
	"sort"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/BrandonDHaskell/Parkgate/server/internal/logging"
)

// Check returns nil when the component is healthy.
type Check func(ctx context.Context) error

const (
	DefaultInterval = 10 * time.Second
	checkTimeout    = 2 * time.Second
)

type Server struct {
	address  string
	hs       *health.Server
	checks   map[string]Check
	names    []string
	interval time.Duration
	logger   logging.Logger
}

func NewServer(address string, checks map[string]Check, interval time.Duration, logger logging.Logger) *Server {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = logging.Discard()
	}
	names := make([]string, 0, len(checks))
	for n := range checks {
		names = append(names, n)
	}
	sort.Strings(names)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	for _, n := range names {
		hs.SetServingStatus(n, healthpb.HealthCheckResponse_NOT_SERVING)
	}

	return &Server{
		address:  address,
		hs:       hs,
		checks:   checks,
		names:    names,
		interval: interval,
		logger:   logger.With("component", "health"),
	}
}

// Register attaches the health service to srv.
func (s *Server) Register(srv *grpc.Server) {
	healthpb.RegisterHealthServer(srv, s.hs)
}

// Refresh runs every check once and updates the served statuses.
func (s *Server) Refresh(ctx context.Context) {
	overall := healthpb.HealthCheckResponse_SERVING
	for _, n := range s.names {
		cctx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := s.checks[n](cctx)
		cancel()

		st := healthpb.HealthCheckResponse_SERVING
		if err != nil {
			st = healthpb.HealthCheckResponse_NOT_SERVING
			overall = healthpb.HealthCheckResponse_NOT_SERVING
			s.logger.Warn(ctx, "component unhealthy", "check", n, "error", err)
		}
		s.hs.SetServingStatus(n, st)
	}
	s.hs.SetServingStatus("", overall)
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, lis)
}

func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer()
	s.Register(srv)

	s.Refresh(ctx)
	go func() {
		t := time.NewTicker(s.interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				s.logger.Info(ctx, "stopping health server")
				s.hs.Shutdown()
				srv.GracefulStop()
				return
			case <-t.C:
				s.Refresh(ctx)
			}
		}
	}()

	s.logger.Info(ctx, "starting health server", "address", lis.Addr().String())
	return srv.Serve(lis)
}
