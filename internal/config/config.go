// ABOUTME: Configuration loading and parsing for press-gateway
// ABOUTME: Supports YAML files with environment variable expansion, defaults and duration parsing

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultCategories is the category set accepted when limits.categories is empty.
var DefaultCategories = []string{
	"world", "tech", "science", "business", "politics",
	"health", "culture", "sports", "opinion",
}

// Config represents the complete press-gateway configuration
type Config struct {
	Service    ServiceConfig    `yaml:"service"`
	Server     ServerConfig     `yaml:"server"`
	Tailscale  TailscaleConfig  `yaml:"tailscale"`
	Database   DatabaseConfig   `yaml:"database"`
	Repository RepositoryConfig `yaml:"repository"`
	Limits     LimitsConfig     `yaml:"limits"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServiceConfig names the service in health responses
type ServiceConfig struct {
	Name string `yaml:"name"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
	// TrustProxyHeaders makes the caller address come from CF-Connecting-IP
	// or X-Forwarded-For instead of the TCP peer.
	TrustProxyHeaders bool `yaml:"trust_proxy_headers"`
}

// TailscaleConfig holds Tailscale tsnet configuration
type TailscaleConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Hostname  string `yaml:"hostname"`
	AuthKey   string `yaml:"auth_key"`
	StateDir  string `yaml:"state_dir"`
	Ephemeral bool   `yaml:"ephemeral"`
	HTTPS     bool   `yaml:"https"`  // Serve HTTPS with Tailscale-provisioned certs
	Funnel    bool   `yaml:"funnel"` // Enable public Funnel (implies HTTPS)
}

// DatabaseConfig selects the credential store backend
type DatabaseConfig struct {
	Driver    string `yaml:"driver"` // memory, sqlite, sqlite3, postgres
	Path      string `yaml:"path"`
	DSN       string `yaml:"dsn"`
	Namespace string `yaml:"namespace"`
}

// RepositoryConfig selects and configures the content repository
type RepositoryConfig struct {
	Backend       string       `yaml:"backend"` // github, s3, memory
	PublicBaseURL string       `yaml:"public_base_url"`
	DocsURL       string       `yaml:"docs_url"`
	GitHub        GitHubConfig `yaml:"github"`
	S3            S3Config     `yaml:"s3"`

	Timeout    time.Duration `yaml:"-"`
	TimeoutRaw string        `yaml:"timeout"`

	// ListCacheTTL keeps story listings between repository reads; 0 disables it
	ListCacheTTL    time.Duration `yaml:"-"`
	ListCacheTTLRaw string        `yaml:"list_cache_ttl"`
}

// GitHubConfig configures the GitHub contents API backend
type GitHubConfig struct {
	Repo      string `yaml:"repo"` // owner/name
	Token     string `yaml:"token"`
	APIURL    string `yaml:"api_url"`
	Branch    string `yaml:"branch"`
	UserAgent string `yaml:"user_agent"`
}

// S3Config configures the S3-compatible object store backend
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"` // MinIO or other S3-compatible endpoint
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Prefix    string `yaml:"prefix"`
}

// LimitsConfig holds quota thresholds and the accepted categories
type LimitsConfig struct {
	DefaultDailyLimit   int      `yaml:"default_daily_limit"`
	MaxDailyLimit       int      `yaml:"max_daily_limit"`
	RegistrationsPerDay int      `yaml:"registrations_per_day"`
	Categories          []string `yaml:"categories"`
}

// AuthConfig holds admin authentication configuration
type AuthConfig struct {
	AdminJWTSecret string `yaml:"admin_jwt_secret"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse builds a Config from raw YAML, applying the same steps as Load.
func Parse(data []byte) (*Config, error) {
	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Parse duration fields
	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.ApplyDefaults()

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// DefaultPath returns the config file location: $PRESS_CONFIG, then
// $XDG_CONFIG_HOME/press/gateway.yaml, then ~/.config/press/gateway.yaml.
func DefaultPath() string {
	if p := os.Getenv("PRESS_CONFIG"); p != "" {
		return p
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "press", "gateway.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "gateway.yaml"
	}
	return filepath.Join(home, ".config", "press", "gateway.yaml")
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	// Match ${VAR_NAME} pattern
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// ApplyDefaults fills zero values with the gateway defaults.
func (c *Config) ApplyDefaults() {
	if c.Service.Name == "" {
		c.Service.Name = "Pinch Press API"
	}
	if c.Server.HTTPAddr == "" && !c.Tailscale.Enabled {
		c.Server.HTTPAddr = "0.0.0.0:8080"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Repository.Backend == "" {
		c.Repository.Backend = "github"
	}
	if c.Repository.Timeout == 0 {
		c.Repository.Timeout = 30 * time.Second
	}
	if c.Repository.GitHub.APIURL == "" {
		c.Repository.GitHub.APIURL = "https://api.github.com"
	}
	if c.Repository.GitHub.UserAgent == "" {
		c.Repository.GitHub.UserAgent = "PinchPress-Gateway"
	}
	if c.Repository.S3.Region == "" {
		c.Repository.S3.Region = "us-east-1"
	}
	if c.Limits.DefaultDailyLimit == 0 {
		c.Limits.DefaultDailyLimit = 10
	}
	if c.Limits.MaxDailyLimit == 0 {
		c.Limits.MaxDailyLimit = 100
	}
	if c.Limits.RegistrationsPerDay == 0 {
		c.Limits.RegistrationsPerDay = 5
	}
	if len(c.Limits.Categories) == 0 {
		c.Limits.Categories = slices.Clone(DefaultCategories)
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	// Server address is required unless Tailscale is enabled
	if !c.Tailscale.Enabled && c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required (or enable tailscale)")
	}

	// Tailscale requires a hostname
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}

	switch c.Database.Driver {
	case "memory":
	case "sqlite", "sqlite3":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for driver %q", c.Database.Driver)
		}
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for driver postgres")
		}
	default:
		return fmt.Errorf("database.driver %q is not one of memory, sqlite, sqlite3, postgres", c.Database.Driver)
	}

	switch c.Repository.Backend {
	case "memory":
	case "github":
		if !strings.Contains(c.Repository.GitHub.Repo, "/") {
			return fmt.Errorf("repository.github.repo must be owner/name")
		}
		if c.Repository.GitHub.Token == "" {
			return fmt.Errorf("repository.github.token is required")
		}
	case "s3":
		if c.Repository.S3.Bucket == "" {
			return fmt.Errorf("repository.s3.bucket is required")
		}
	default:
		return fmt.Errorf("repository.backend %q is not one of github, s3, memory", c.Repository.Backend)
	}

	if c.Limits.DefaultDailyLimit < 1 || c.Limits.DefaultDailyLimit > c.Limits.MaxDailyLimit {
		return fmt.Errorf("limits.default_daily_limit must be between 1 and limits.max_daily_limit")
	}
	if c.Repository.ListCacheTTL < 0 {
		return fmt.Errorf("repository.list_cache_ttl must not be negative")
	}
	if c.Limits.RegistrationsPerDay < 1 {
		return fmt.Errorf("limits.registrations_per_day must be positive")
	}

	// Admin tokens are HS256; short secrets are brute-forceable
	if c.Auth.AdminJWTSecret != "" && len(c.Auth.AdminJWTSecret) < 32 {
		return fmt.Errorf("auth.admin_jwt_secret must be at least 32 bytes")
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format %q is not one of text, json", c.Logging.Format)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Repository.TimeoutRaw != "" {
		cfg.Repository.Timeout, err = time.ParseDuration(cfg.Repository.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing repository.timeout %q: %w", cfg.Repository.TimeoutRaw, err)
		}
	}

	if cfg.Repository.ListCacheTTLRaw != "" {
		cfg.Repository.ListCacheTTL, err = time.ParseDuration(cfg.Repository.ListCacheTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing repository.list_cache_ttl %q: %w", cfg.Repository.ListCacheTTLRaw, err)
		}
	}

	return nil
}
