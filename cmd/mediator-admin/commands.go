// ABOUTME: Client-side subcommands: token issue, role grants, admin queries, health check
// ABOUTME: Flags accept both "--name value" and "--name=value" forms

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/2389/mediator-admin/internal/auth"
	"github.com/2389/mediator-admin/internal/config"
	"github.com/2389/mediator-admin/internal/mediator"
	"github.com/2389/mediator-admin/internal/message"
	"github.com/2389/mediator-admin/internal/store"
	"github.com/2389/mediator-admin/internal/transport"
)

const defaultQueryAddr = "127.0.0.1:50061"

// parseFlags reads the named flags out of args and returns the remaining
// positional arguments.
func parseFlags(args []string, names ...string) (map[string]string, []string, error) {
	allowed := make(map[string]bool, len(names))
	for _, n := range names {
		allowed[n] = true
	}

	flags := make(map[string]string)
	var positional []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "--") {
			positional = append(positional, arg)
			continue
		}

		name, value, hasValue := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		if !allowed[name] {
			return nil, nil, fmt.Errorf("unknown flag: %s", arg)
		}
		if !hasValue {
			if i+1 >= len(args) {
				return nil, nil, fmt.Errorf("--%s requires a value", name)
			}
			value = args[i+1]
			i++
		}
		flags[name] = value
	}
	return flags, positional, nil
}

func runToken(args []string) error {
	flags, rest, err := parseFlags(args, "principal", "ttl")
	if err != nil {
		return err
	}
	if len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}
	principal := strings.TrimSpace(flags["principal"])
	if principal == "" {
		return errors.New("--principal flag is required")
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if !cfg.AuthEnabled() {
		return errors.New("auth.jwt_secret is not configured")
	}

	ttl := cfg.Auth.TokenTTL
	if raw, ok := flags["ttl"]; ok {
		if ttl, err = time.ParseDuration(raw); err != nil {
			return fmt.Errorf("parsing --ttl: %w", err)
		}
	}

	verifier, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
	if err != nil {
		return err
	}
	token, err := verifier.Generate(principal, ttl)
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}

	fmt.Println(token)
	return nil
}

// roleTarget resolves --principal or --connection (exactly one) and --role.
func roleTarget(args []string) (store.RoleSubjectType, string, store.RoleName, error) {
	flags, rest, err := parseFlags(args, "principal", "connection", "role")
	if err != nil {
		return "", "", "", err
	}
	if len(rest) > 0 {
		return "", "", "", fmt.Errorf("unexpected argument: %s", rest[0])
	}

	principal, connection := flags["principal"], flags["connection"]
	var (
		subjectType store.RoleSubjectType
		subjectID   string
	)
	switch {
	case principal != "" && connection != "":
		return "", "", "", errors.New("use only one of --principal or --connection")
	case principal != "":
		subjectType, subjectID = store.RoleSubjectPrincipal, principal
	case connection != "":
		subjectType, subjectID = store.RoleSubjectConnection, connection
	default:
		return "", "", "", errors.New("--principal or --connection is required")
	}

	roleName := flags["role"]
	if roleName == "" {
		roleName = string(store.RoleAdmin)
	}
	role, err := store.ParseRoleName(roleName)
	if err != nil {
		return "", "", "", err
	}
	return subjectType, subjectID, role, nil
}

func runRole(ctx context.Context, args []string, grant bool) error {
	subjectType, subjectID, role, err := roleTarget(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	s, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer s.Close()

	green := color.New(color.FgGreen)
	if grant {
		if err := s.AddRole(ctx, subjectType, subjectID, role); err != nil {
			return err
		}
		green.Print("granted ")
	} else {
		if err := s.RemoveRole(ctx, subjectType, subjectID, role); err != nil {
			return err
		}
		green.Print("revoked ")
	}
	fmt.Printf("%s on %s %s\n", role, subjectType, subjectID)
	return nil
}

// buildQuery maps a query kind and its flags to the request payload.
func buildQuery(kind string, flags map[string]string) (message.Payload, error) {
	var connectionID *string
	if v, ok := flags["connection-id"]; ok {
		connectionID = &v
	}

	switch kind {
	case "mediation-requests":
		state := flags["state"]
		if state == "" {
			state = string(store.MediationStateRequestReceived)
		}
		return &mediator.MediationRequestsGet{State: state, ConnectionID: connectionID}, nil
	case "keylists":
		return &mediator.KeylistsGet{ConnectionID: connectionID}, nil
	case "routes":
		return &mediator.RoutesListGet{}, nil
	default:
		return nil, fmt.Errorf("unknown query %q (want mediation-requests, keylists, or routes)", kind)
	}
}

func runQuery(ctx context.Context, args []string) error {
	flags, rest, err := parseFlags(args, "state", "connection-id", "addr", "token", "timeout")
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		return errors.New("query needs exactly one of mediation-requests, keylists, routes")
	}

	payload, err := buildQuery(rest[0], flags)
	if err != nil {
		return err
	}

	addr := flags["addr"]
	if addr == "" {
		addr = defaultQueryAddr
		if cfg, err := config.Load(getConfigPath()); err == nil && cfg.Server.GRPCAddr != "" {
			addr = cfg.Server.GRPCAddr
		}
	}
	token := flags["token"]
	if token == "" {
		token = os.Getenv("MEDIATOR_TOKEN")
	}
	timeout := 10 * time.Second
	if raw, ok := flags["timeout"]; ok {
		if timeout, err = time.ParseDuration(raw); err != nil {
			return fmt.Errorf("parsing --timeout: %w", err)
		}
	}

	client, err := transport.Dial(addr, transport.ClientOptions{Token: token})
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	reply, err := client.Request(ctx, payload)
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.New("no reply (the connection may not be an admin connection)")
	}
	if err != nil {
		return err
	}

	return printReply(os.Stdout, reply)
}

func printReply(w io.Writer, reply *transport.Reply) error {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, reply.Envelope, "", "  "); err != nil {
		return fmt.Errorf("formatting reply: %w", err)
	}

	cyan := color.New(color.FgCyan)
	cyan.Fprintln(w, reply.Header.Type)
	_, err := fmt.Fprintln(w, pretty.String())
	return err
}

func runHealth(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Server.HTTPAddr == "" {
		return errors.New("server.http_addr is not configured")
	}

	url := fmt.Sprintf("http://%s/health/ready", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d: %s", resp.StatusCode, body)
	}

	fmt.Println(string(body))
	return nil
}
