// ABOUTME: Opens the transport listener on plain TCP or on a Tailscale tsnet node
// ABOUTME: The tsnet node is returned so the caller can close it on shutdown

package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"

	"tailscale.com/tsnet"

	"github.com/2389/mediator-admin/internal/config"
)

// tailnetPort is the port the transport listens on inside the tailnet.
const tailnetPort = ":50061"

// Listen opens the transport listener described by cfg. The returned closer
// releases the tsnet node and is a no-op for plain TCP.
func Listen(ctx context.Context, cfg *config.Config, logger *slog.Logger) (net.Listener, io.Closer, error) {
	if cfg.Tailscale.Enabled {
		if cfg.Server.GRPCAddr != "" {
			logger.Warn("server.grpc_addr is ignored when tailscale is enabled", "grpc_addr", cfg.Server.GRPCAddr)
		}
		return listenTailscale(ctx, cfg.Tailscale, logger)
	}

	ln, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("listening on gRPC address: %w", err)
	}
	return ln, nopCloser{}, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// resolveTailscaleStateDir returns the state directory, using default if not configured.
func resolveTailscaleStateDir(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory for tailscale state (set tailscale.state_dir explicitly): %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "mediator-admin", "tailscale"), nil
}

// resolveTailscaleAuthKey returns the auth key from config or environment.
func resolveTailscaleAuthKey(configured string) (string, error) {
	authKey := configured
	if authKey == "" {
		authKey = os.Getenv("TS_AUTHKEY")
	}
	if authKey == "" {
		return "", errors.New("tailscale auth key required: set auth_key in config or TS_AUTHKEY environment variable")
	}
	return authKey, nil
}

func listenTailscale(ctx context.Context, tsCfg config.TailscaleConfig, logger *slog.Logger) (net.Listener, io.Closer, error) {
	stateDir, err := resolveTailscaleStateDir(tsCfg.StateDir)
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(stateDir, 0700); err != nil {
		return nil, nil, fmt.Errorf("creating tailscale state dir: %w", err)
	}

	authKey, err := resolveTailscaleAuthKey(tsCfg.AuthKey)
	if err != nil {
		return nil, nil, err
	}

	srv := &tsnet.Server{
		Hostname:  tsCfg.Hostname,
		Dir:       stateDir,
		Ephemeral: tsCfg.Ephemeral,
		AuthKey:   authKey,
	}

	logger.Info("starting tailscale node", "hostname", tsCfg.Hostname, "state_dir", stateDir, "ephemeral", tsCfg.Ephemeral)
	st, err := srv.Up(ctx)
	if err != nil {
		_ = srv.Close()
		return nil, nil, fmt.Errorf("starting tailscale: %w", err)
	}

	var tsAddr, dnsName string
	if len(st.TailscaleIPs) > 0 {
		tsAddr = st.TailscaleIPs[0].String()
	} else {
		logger.Warn("tailscale node has no IP addresses assigned")
	}
	if st.Self != nil {
		dnsName = st.Self.DNSName
	}
	logger.Info("tailscale node ready", "hostname", tsCfg.Hostname, "tailscale_ip", tsAddr, "dns_name", dnsName)

	ln, err := srv.Listen("tcp", tailnetPort)
	if err != nil {
		_ = srv.Close()
		return nil, nil, fmt.Errorf("listening on tailscale gRPC port: %w", err)
	}
	return ln, srv, nil
}
