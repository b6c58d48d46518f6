package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	authv3 "github.com/envoyproxy/go-control-plane/envoy/service/auth/v3"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const authzServiceName = "envoy.service.auth.v3.Authorization"

// Server manages the gRPC and HTTP servers
type Server struct {
	grpcServer   *grpc.Server
	httpServer   *http.Server
	healthServer *health.Server

	grpcPort int
	httpPort int

	authzServer *AuthzServer
	httpHandler http.Handler
	logger      *slog.Logger

	grpcAddr net.Addr
	httpAddr net.Addr
}

// Config contains server configuration
type Config struct {
	GRPCPort int
	HTTPPort int

	AuthzServer *AuthzServer
	HTTPHandler http.Handler
	Logger      *slog.Logger
}

// New creates a new server with the given configuration
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Server{
		grpcPort:    cfg.GRPCPort,
		httpPort:    cfg.HTTPPort,
		authzServer: cfg.AuthzServer,
		httpHandler: cfg.HTTPHandler,
		logger:      cfg.Logger,
	}
}

// Start starts both the gRPC and HTTP servers
func (s *Server) Start(ctx context.Context) error {
	if s.authzServer == nil {
		return errors.New("authz server is required")
	}
	if s.httpHandler == nil {
		s.httpHandler = http.NotFoundHandler()
	}

	// Create gRPC server
	s.grpcServer = grpc.NewServer()
	s.healthServer = health.NewServer()

	// Register services
	authv3.RegisterAuthorizationServer(s.grpcServer, s.authzServer)
	healthpb.RegisterHealthServer(s.grpcServer, s.healthServer)

	grpcListener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.grpcPort))
	if err != nil {
		return fmt.Errorf("failed to listen on gRPC port %d: %w", s.grpcPort, err)
	}
	s.grpcAddr = grpcListener.Addr()

	httpListener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.httpPort))
	if err != nil {
		grpcListener.Close()
		return fmt.Errorf("failed to listen on HTTP port %d: %w", s.httpPort, err)
	}
	s.httpAddr = httpListener.Addr()

	go func() {
		s.logger.Info("gRPC server listening", "addr", s.grpcAddr.String())
		if err := s.grpcServer.Serve(grpcListener); err != nil {
			s.logger.Error("gRPC server error", "error", err)
		}
	}()

	s.httpServer = &http.Server{
		Handler: s.httpHandler,
		BaseContext: func(net.Listener) context.Context {
			return context.WithoutCancel(ctx)
		},
	}

	go func() {
		s.logger.Info("HTTP server listening", "addr", s.httpAddr.String())
		if err := s.httpServer.Serve(httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", "error", err)
		}
	}()

	s.healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.healthServer.SetServingStatus(authzServiceName, healthpb.HealthCheckResponse_SERVING)

	return nil
}

// GRPCAddr returns the bound gRPC address once started
func (s *Server) GRPCAddr() net.Addr {
	return s.grpcAddr
}

// HTTPAddr returns the bound HTTP address once started
func (s *Server) HTTPAddr() net.Addr {
	return s.httpAddr
}

// Stop gracefully stops both servers
func (s *Server) Stop(ctx context.Context) error {
	if s.healthServer != nil {
		s.healthServer.Shutdown()
	}

	if s.grpcServer != nil {
		s.grpcServer.GracefulStop()
	}

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}
