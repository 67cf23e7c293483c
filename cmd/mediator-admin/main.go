// ABOUTME: Entry point for mediator-admin, the admin control plane of a mediator
// ABOUTME: Dispatches serve, token, role, query, and health subcommands

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"

	"github.com/2389/mediator-admin/internal/config"
	"github.com/2389/mediator-admin/internal/gateway"
)

// Version is set at build time.
var version = "dev"

const banner = `
                    _ _       _
 _ __ ___   ___  __| (_) __ _| |_ ___  _ __
| '_ ' _ \ / _ \/ _' | |/ _' | __/ _ \| '__|
| | | | | |  __/ (_| | | (_| | || (_) | |
|_| |_| |_|\___|\__,_|_|\__,_|\__\___/|_|   admin
`

// getConfigPath returns the path to the config file.
// Priority: MEDIATOR_CONFIG env var > XDG_CONFIG_HOME/mediator-admin/config.yaml > ~/.config/mediator-admin/config.yaml
func getConfigPath() string {
	if envPath := os.Getenv("MEDIATOR_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "mediator-admin", "config.yaml")
}

func usage() {
	fmt.Println("Usage: mediator-admin <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve                                      Start the admin transport")
	fmt.Println("  token --principal ID [--ttl 24h]           Issue a JWT for a principal")
	fmt.Println("  grant-admin (--principal|--connection) ID  Grant a role (default admin)")
	fmt.Println("  revoke-admin (--principal|--connection) ID Revoke a role (default admin)")
	fmt.Println("                                             connection IDs take the form <principal>/<name>")
	fmt.Println("  query <mediation-requests|keylists|routes> Send one admin request and print the reply")
	fmt.Println("  health                                     Check the health endpoint")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	args := os.Args[2:]

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "token":
		err = runToken(args)
	case "grant-admin":
		err = runRole(ctx, args, true)
	case "revoke-admin":
		err = runRole(ctx, args, false)
	case "query":
		err = runQuery(ctx, args)
	case "health":
		err = runHealth(ctx)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging, os.Stdout)

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("Database:  %s\n", cfg.Database.Path)
	if cfg.Tailscale.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Tailscale: ")
		cyan.Print(cfg.Tailscale.Hostname)
		if cfg.Tailscale.Ephemeral {
			gray.Print(" (ephemeral)")
		}
		fmt.Println()
	} else {
		green.Print("    ▶ ")
		fmt.Printf("gRPC:      %s\n", cfg.Server.GRPCAddr)
	}
	if cfg.Server.HTTPAddr != "" {
		green.Print("    ▶ ")
		fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	}
	if !cfg.AuthEnabled() {
		yellow.Print("    ! ")
		fmt.Println("Auth:      disabled, every connection is an admin")
	}
	fmt.Println()

	logger.Info("starting mediator-admin",
		"config", configPath,
		"grpc_addr", cfg.Server.GRPCAddr,
		"http_addr", cfg.Server.HTTPAddr,
	)

	gw, err := gateway.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}

	return gw.Run(ctx)
}
