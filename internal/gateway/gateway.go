// ABOUTME: Gateway orchestrator that wires the store, registry, and admin transport
// ABOUTME: Manages the gRPC listener, optional health and metrics HTTP server, and shutdown

package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"go.uber.org/multierr"
	"google.golang.org/grpc"

	"github.com/2389/mediator-admin/internal/auth"
	"github.com/2389/mediator-admin/internal/config"
	"github.com/2389/mediator-admin/internal/dedupe"
	"github.com/2389/mediator-admin/internal/mediator"
	"github.com/2389/mediator-admin/internal/protocol"
	"github.com/2389/mediator-admin/internal/routing"
	"github.com/2389/mediator-admin/internal/store"
	"github.com/2389/mediator-admin/internal/transport"
)

// Gateway runs the admin control plane of a mediator.
type Gateway struct {
	config     *config.Config
	store      store.Store
	registry   *protocol.Registry
	transport  *transport.Server
	grpcServer *grpc.Server
	httpServer *http.Server
	logger     *slog.Logger

	// guard is nil when dedupe is disabled
	guard *dedupe.Guard

	// tsnet node (or no-op) behind the gRPC listener
	listenerCloser io.Closer

	metrics *metrics
}

// New creates a Gateway, opening the store and seeding it from cfg.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	sqlStore, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}

	gw, err := newWithStore(ctx, cfg, sqlStore, logger)
	if err != nil {
		sqlStore.Close()
		return nil, err
	}
	return gw, nil
}

func newWithStore(ctx context.Context, cfg *config.Config, s store.Store, logger *slog.Logger) (*Gateway, error) {
	if err := Seed(ctx, s, cfg.Seed, logger.With("component", "seed")); err != nil {
		return nil, err
	}

	registry := protocol.NewRegistry(logger.With("component", "registry"))
	err := mediator.Setup(registry, mediator.Deps{
		Records: s,
		Routes:  routing.NewManager(s, logger.With("component", "routing")),
		Gate:    auth.NewGate(auth.NewRoleAuthorizer(s), logger.With("component", "gate")),
		Logger:  logger.With("component", "mediator"),
	})
	if err != nil {
		return nil, fmt.Errorf("registering admin protocol: %w", err)
	}

	gw := &Gateway{
		config:   cfg,
		store:    s,
		registry: registry,
		logger:   logger.With("component", "gateway"),
	}

	if !cfg.Dedupe.Disabled {
		gw.guard = dedupe.New(cfg.Dedupe.TTL, cfg.Dedupe.MaxSize)
	}

	gw.transport = transport.NewServer(transport.ServerConfig{
		Registry:  registry,
		Guard:     gw.guard,
		Logger:    logger,
		OnOutcome: gw.recordOutcome,
	})
	gw.metrics = newMetrics(registry, gw.transport.ConnectionCount)

	grpcServer, _, err := transport.NewGRPCServer(cfg.Auth.JWTSecret, s, logger)
	if err != nil {
		gw.closeOptionalComponents()
		return nil, err
	}
	transport.RegisterAdminTransportServer(grpcServer, gw.transport)
	gw.grpcServer = grpcServer

	if cfg.Server.HTTPAddr != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", gw.handleHealth)
		mux.HandleFunc("/health/ready", gw.handleReady)
		mux.Handle("/metrics", gw.metrics.handler())
		gw.httpServer = &http.Server{
			Addr:              cfg.Server.HTTPAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	return gw, nil
}

func (g *Gateway) recordOutcome(_ protocol.RequestContext, out protocol.Outcome) {
	g.metrics.observe(g.registry, out)
}

// setupListeners opens the transport listener and, if configured, the
// health HTTP listener.
func (g *Gateway) setupListeners(ctx context.Context) (grpcLn, httpLn net.Listener, err error) {
	grpcLn, closer, err := transport.Listen(ctx, g.config, g.logger)
	if err != nil {
		return nil, nil, err
	}
	g.listenerCloser = closer

	if g.httpServer == nil {
		return grpcLn, nil, nil
	}

	httpLn, err = net.Listen("tcp", g.httpServer.Addr)
	if err != nil {
		grpcLn.Close()
		closer.Close()
		return nil, nil, fmt.Errorf("listening on HTTP address: %w", err)
	}
	return grpcLn, httpLn, nil
}

// startServers starts the gRPC and HTTP servers in goroutines, returning an error channel.
func (g *Gateway) startServers(grpcLn, httpLn net.Listener) chan error {
	errCh := make(chan error, 2)

	go func() {
		g.logger.Info("gRPC server listening", "addr", grpcLn.Addr().String(), "types", g.registry.Len())
		if err := g.grpcServer.Serve(grpcLn); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errCh <- fmt.Errorf("gRPC server: %w", err)
		}
	}()

	if httpLn != nil {
		go func() {
			g.logger.Info("HTTP server listening", "addr", httpLn.Addr().String())
			if err := g.httpServer.Serve(httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("HTTP server: %w", err)
			}
		}()
	}

	return errCh
}

// waitForShutdownSignal waits for context cancellation or server error.
func (g *Gateway) waitForShutdownSignal(ctx context.Context, errCh chan error) error {
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
		return nil
	case err := <-errCh:
		g.logger.Error("server error", "error", err)
		return err
	}
}

// Run serves until ctx is canceled or a server fails, then shuts down.
func (g *Gateway) Run(ctx context.Context) error {
	grpcLn, httpLn, err := g.setupListeners(ctx)
	if err != nil {
		return err
	}

	errCh := g.startServers(grpcLn, httpLn)
	serverErr := g.waitForShutdownSignal(ctx, errCh)

	shutdownErr := g.gracefulShutdown()

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown uses a fresh context since the run context is already canceled.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.Shutdown(ctx)
}

func (g *Gateway) shutdownGRPCServer(ctx context.Context) {
	stopped := make(chan struct{})
	go func() {
		g.grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-ctx.Done():
		g.grpcServer.Stop()
	}
}

func closeError(label string, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", label, err)
	}
	return nil
}

func (g *Gateway) closeOptionalComponents() {
	if g.guard != nil {
		g.guard.Close()
	}
}

// Shutdown stops the servers and releases the store.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down gateway", "connections", g.transport.ConnectionCount())

	var err error
	if g.httpServer != nil {
		err = multierr.Append(err, closeError("HTTP shutdown", g.httpServer.Shutdown(ctx)))
	}

	g.shutdownGRPCServer(ctx)

	if g.listenerCloser != nil {
		err = multierr.Append(err, closeError("tailscale shutdown", g.listenerCloser.Close()))
	}
	err = multierr.Append(err, closeError("store close", g.store.Close()))

	g.closeOptionalComponents()

	return err
}

// handleHealth returns 200 OK if the server is alive.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 OK once the admin protocol is registered.
func (g *Gateway) handleReady(w http.ResponseWriter, r *http.Request) {
	if g.registry.Len() == 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("no message types registered"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "ready (%d types, %d connections)", g.registry.Len(), g.transport.ConnectionCount())
}
