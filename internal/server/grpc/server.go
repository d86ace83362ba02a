// Package grpc serves internal callers over gRPC: the standard health
// service and the invite service, behind an interceptor that requires a
// valid access token on every method except health.
package grpc

import (
	"context"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dmitrijs2005/teamboard/internal/logging"
	"github.com/dmitrijs2005/teamboard/internal/server/auth"
)

// TokenVerifier checks signed tokens; *auth.Issuer implements it.
type TokenVerifier interface {
	Verify(token string, purpose auth.Purpose) (*auth.Claims, error)
}

type GRPCServer struct {
	address  string
	verifier TokenVerifier
	invites  InviteAPI
	health   *health.Server
	logger   logging.Logger
}

func NewGRPCServer(address string, v TokenVerifier, invites InviteAPI, l logging.Logger) *GRPCServer {
	return &GRPCServer{
		address:  address,
		verifier: v,
		invites:  invites,
		health:   health.NewServer(),
		logger:   l.With("module", "grpc_server"),
	}
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {

	// creates gRPC-server
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.accessTokenInterceptor))

	// registers services
	healthpb.RegisterHealthServer(srv, s.health)
	srv.RegisterService(&invitesServiceDesc, s)
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}
