// Package grpc serves the ops endpoints (maintenance and health) on a
// listener separate from the public HTTP API.
package grpc

import (
	"context"
	"net"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/npremz/astrobackoffice/internal/logging"
	"github.com/npremz/astrobackoffice/internal/server/audit"
	"github.com/npremz/astrobackoffice/internal/server/services"
)

// Cleaner purges expired rows.
type Cleaner interface {
	Cleanup(ctx context.Context) (*services.CleanupResult, error)
}

type GRPCServer struct {
	address    string
	logger     logging.Logger
	cleaner    Cleaner
	sink       audit.Sink
	cronSecret []byte
}

func NewGRPCServer(a string, l logging.Logger, cleaner Cleaner, sink audit.Sink, cronSecret string) *GRPCServer {
	return &GRPCServer{
		address:    a,
		logger:     l.With("module", "grpc_server"),
		cleaner:    cleaner,
		sink:       sink,
		cronSecret: []byte(cronSecret),
	}
}

// newServer builds the gRPC server with interceptors, tracing and every
// service registered.
func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.bearerInterceptor),
	)

	RegisterMaintenanceServer(srv, s)

	hs := health.NewServer()
	hs.SetServingStatus(MaintenanceServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
