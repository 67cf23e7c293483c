// ABOUTME: Builds the gRPC server that hosts AdminTransport, with or without JWT auth
// ABOUTME: Keepalive settings match long-lived admin streams

package transport

import (
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"

	"github.com/2389/mediator-admin/internal/auth"
)

func keepaliveOptions() []grpc.ServerOption {
	return []grpc.ServerOption{
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    15 * time.Second,
			Timeout: 5 * time.Second,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             5 * time.Second,
			PermitWithoutStream: true,
		}),
	}
}

// NewGRPCServer creates a gRPC server with JWT stream auth. An empty secret
// disables auth and every stream runs as an anonymous admin.
// The verifier is nil when auth is disabled.
func NewGRPCServer(jwtSecret string, roles auth.RoleStore, logger *slog.Logger) (*grpc.Server, *auth.JWTVerifier, error) {
	if jwtSecret == "" {
		opts := append(keepaliveOptions(), grpc.ChainStreamInterceptor(auth.NoAuthStreamInterceptor()))
		logger.Warn("auth disabled - no jwt_secret configured")
		return grpc.NewServer(opts...), nil, nil
	}

	verifier, err := auth.NewJWTVerifier([]byte(jwtSecret))
	if err != nil {
		return nil, nil, fmt.Errorf("creating JWT verifier: %w", err)
	}

	opts := append(keepaliveOptions(), grpc.ChainStreamInterceptor(
		auth.StreamInterceptor(verifier, roles, logger.With("component", "auth")),
	))
	logger.Info("auth interceptor enabled (JWT)")
	return grpc.NewServer(opts...), verifier, nil
}
