// ABOUTME: Configuration loading and parsing for mediator-admin
// ABOUTME: Supports YAML or TOML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Defaults applied when a field is left empty
const (
	DefaultTokenTTL     = 24 * time.Hour
	DefaultDedupeTTL    = 5 * time.Minute
	DefaultDedupeMaxLen = 100_000
)

// Config represents the complete mediator-admin configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Tailscale TailscaleConfig `yaml:"tailscale" toml:"tailscale"`
	Database  DatabaseConfig  `yaml:"database" toml:"database"`
	Auth      AuthConfig      `yaml:"auth" toml:"auth"`
	Dedupe    DedupeConfig    `yaml:"dedupe" toml:"dedupe"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
	Seed      SeedConfig      `yaml:"seed" toml:"seed"`
}

// ServerConfig holds the listen addresses.
// HTTPAddr is optional and serves only the health endpoints.
type ServerConfig struct {
	GRPCAddr string `yaml:"grpc_addr" toml:"grpc_addr"`
	HTTPAddr string `yaml:"http_addr" toml:"http_addr"`
}

// TailscaleConfig holds Tailscale tsnet configuration
type TailscaleConfig struct {
	Enabled   bool   `yaml:"enabled" toml:"enabled"`
	Hostname  string `yaml:"hostname" toml:"hostname"`
	AuthKey   string `yaml:"auth_key" toml:"auth_key"`
	StateDir  string `yaml:"state_dir" toml:"state_dir"`
	Ephemeral bool   `yaml:"ephemeral" toml:"ephemeral"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// AuthConfig holds authentication configuration.
// An empty JWTSecret disables authentication.
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret" toml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"-" toml:"-"`

	TokenTTLRaw string `yaml:"token_ttl" toml:"token_ttl"`
}

// DedupeConfig holds the inbound replay guard settings
type DedupeConfig struct {
	Disabled bool          `yaml:"disabled" toml:"disabled"`
	MaxSize  int           `yaml:"max_size" toml:"max_size"`
	TTL      time.Duration `yaml:"-" toml:"-"`

	TTLRaw string `yaml:"ttl" toml:"ttl"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// SeedConfig lists records written to the store at startup
type SeedConfig struct {
	Admins           []SeedRole      `yaml:"admins" toml:"admins"`
	MediationRecords []SeedMediation `yaml:"mediation_records" toml:"mediation_records"`
	Routes           []SeedRoute     `yaml:"routes" toml:"routes"`
}

// SeedRole grants a role to a principal or connection
type SeedRole struct {
	SubjectType string `yaml:"subject_type" toml:"subject_type"` // principal or connection
	SubjectID   string `yaml:"subject_id" toml:"subject_id"`
	Role        string `yaml:"role" toml:"role"`
}

// SeedMediation is a mediation record to upsert
type SeedMediation struct {
	MediationID  string   `yaml:"mediation_id" toml:"mediation_id"`
	ConnectionID string   `yaml:"connection_id" toml:"connection_id"`
	State        string   `yaml:"state" toml:"state"`
	Role         string   `yaml:"role" toml:"role"`
	RoutingKeys  []string `yaml:"routing_keys" toml:"routing_keys"`
	Endpoint     string   `yaml:"endpoint" toml:"endpoint"`
}

// SeedRoute is a route record to insert
type SeedRoute struct {
	RecordID     string `yaml:"record_id" toml:"record_id"`
	ConnectionID string `yaml:"connection_id" toml:"connection_id"`
	RecipientKey string `yaml:"recipient_key" toml:"recipient_key"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are parsed as TOML, anything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expandedData := expandEnvVars(string(data))

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expandedData, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func (c *Config) applyDefaults() {
	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = DefaultTokenTTL
	}
	if c.Dedupe.TTL == 0 {
		c.Dedupe.TTL = DefaultDedupeTTL
	}
	if c.Dedupe.MaxSize == 0 {
		c.Dedupe.MaxSize = DefaultDedupeMaxLen
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// AuthEnabled reports whether connections must present a JWT.
func (c *Config) AuthEnabled() bool {
	return c.Auth.JWTSecret != ""
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if !c.Tailscale.Enabled && c.Server.GRPCAddr == "" {
		return fmt.Errorf("server.grpc_addr is required (or enable tailscale)")
	}

	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Dedupe.MaxSize < 0 {
		return fmt.Errorf("dedupe.max_size must not be negative")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q must be one of debug, info, warn, error", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format %q must be text or json", c.Logging.Format)
	}

	for i, a := range c.Seed.Admins {
		if a.SubjectID == "" {
			return fmt.Errorf("seed.admins[%d].subject_id is required", i)
		}
		if a.SubjectType != "principal" && a.SubjectType != "connection" {
			return fmt.Errorf("seed.admins[%d].subject_type %q must be principal or connection", i, a.SubjectType)
		}
	}
	for i, m := range c.Seed.MediationRecords {
		if m.MediationID == "" || m.ConnectionID == "" {
			return fmt.Errorf("seed.mediation_records[%d] needs mediation_id and connection_id", i)
		}
	}
	for i, r := range c.Seed.Routes {
		if r.RecordID == "" || r.RecipientKey == "" {
			return fmt.Errorf("seed.routes[%d] needs record_id and recipient_key", i)
		}
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Auth.TokenTTLRaw != "" {
		cfg.Auth.TokenTTL, err = time.ParseDuration(cfg.Auth.TokenTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing token_ttl %q: %w", cfg.Auth.TokenTTLRaw, err)
		}
	}

	if cfg.Dedupe.TTLRaw != "" {
		cfg.Dedupe.TTL, err = time.ParseDuration(cfg.Dedupe.TTLRaw)
		if err != nil {
			return fmt.Errorf("parsing dedupe ttl %q: %w", cfg.Dedupe.TTLRaw, err)
		}
	}

	return nil
}
