// ABOUTME: gRPC stream interceptors that authenticate transport connections with JWT
// ABOUTME: Extracts the bearer token from metadata and attaches an AuthContext

package auth

import (
	"context"
	"log/slog"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/2389/mediator-admin/internal/store"
)

// logAuthFailure logs an authentication failure with structured context.
func logAuthFailure(logger *slog.Logger, ctx context.Context, reason string, attrs ...any) {
	if logger == nil {
		return
	}
	baseAttrs := []any{"reason", reason}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		baseAttrs = append(baseAttrs, "peer_addr", p.Addr.String())
	}
	baseAttrs = append(baseAttrs, attrs...)
	logger.Warn("auth failure", baseAttrs...)
}

// StreamInterceptor returns a gRPC stream interceptor that authenticates
// streams with a bearer JWT and loads the principal's roles.
// The optional logger enables auth failure logging for security monitoring.
func StreamInterceptor(tokens TokenVerifier, roles RoleStore, logger *slog.Logger) grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		authCtx, err := extractAuth(ss.Context(), tokens, roles, logger)
		if err != nil {
			return err
		}

		wrapped := &wrappedServerStream{
			ServerStream: ss,
			ctx:          WithAuth(ss.Context(), authCtx),
		}
		return handler(srv, wrapped)
	}
}

// NoAuthStreamInterceptor returns a gRPC stream interceptor that injects an
// anonymous admin auth context when authentication is disabled.
func NoAuthStreamInterceptor() grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		wrapped := &wrappedServerStream{
			ServerStream: ss,
			ctx:          WithAuth(ss.Context(), anonymousAdmin()),
		}
		return handler(srv, wrapped)
	}
}

// wrappedServerStream wraps a grpc.ServerStream with a custom context.
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

// Context returns the wrapped context.
func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}

// bearerToken pulls the token out of the authorization metadata.
func bearerToken(md metadata.MD) (string, error) {
	authHeaders := md.Get("authorization")
	if len(authHeaders) == 0 {
		return "", status.Error(codes.Unauthenticated, "missing authorization header")
	}

	authHeader := authHeaders[0]
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", status.Error(codes.Unauthenticated, "invalid authorization header format")
	}
	return strings.TrimPrefix(authHeader, "Bearer "), nil
}

// extractAuth builds the AuthContext for a stream from its metadata.
func extractAuth(ctx context.Context, tokens TokenVerifier, roles RoleStore, logger *slog.Logger) (*AuthContext, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		logAuthFailure(logger, ctx, "missing_metadata")
		return nil, status.Error(codes.Unauthenticated, "missing metadata")
	}

	tokenString, err := bearerToken(md)
	if err != nil {
		logAuthFailure(logger, ctx, "jwt_auth_failed", "error", err.Error())
		return nil, err
	}

	principalID, err := tokens.Verify(tokenString)
	if err != nil {
		logAuthFailure(logger, ctx, "jwt_auth_failed", "error", err.Error())
		return nil, status.Error(codes.Unauthenticated, "invalid or expired token")
	}

	roleNames, err := roles.ListRoles(ctx, store.RoleSubjectPrincipal, principalID)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to lookup roles: %v", err)
	}

	roleStrings := make([]string, len(roleNames))
	for i, r := range roleNames {
		roleStrings[i] = string(r)
	}

	return &AuthContext{
		PrincipalID: principalID,
		Roles:       roleStrings,
	}, nil
}
