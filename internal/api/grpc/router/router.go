package router

import (
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/dtroode/gophfeed/internal/api/grpc/middleware"
	"github.com/dtroode/gophfeed/internal/logger"
)

// Router represents the gRPC router of the ops server.
// It registers the health and reflection services behind logging and
// recovery interceptors.
type Router struct {
	health *health.Server
	logger *logger.Logger
}

// New creates new gRPC Router instance.
//
// Parameters:
//   - health: The health service whose status the process flips on shutdown
//   - logger: The logger for call logging
//
// Returns a pointer to the newly created Router instance.
func New(health *health.Server, logger *logger.Logger) *Router {
	return &Router{
		health: health,
		logger: logger,
	}
}

// Register registers all gRPC services and middleware.
//
// Returns the configured gRPC server instance.
func (r *Router) Register() *grpc.Server {
	lg := middleware.NewLogging(r.logger)

	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			logging.UnaryServerInterceptor(lg.Logger(), lg.Options()...),
			recovery.UnaryServerInterceptor(lg.RecoveryOptions()...),
		),
		grpc.ChainStreamInterceptor(
			logging.StreamServerInterceptor(lg.Logger(), lg.Options()...),
			recovery.StreamServerInterceptor(lg.RecoveryOptions()...),
		),
	)

	healthpb.RegisterHealthServer(s, r.health)
	reflection.Register(s)

	return s
}
