// Package config provides unified configuration for the Sagittarius agent
// and server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the configuration for both binaries. Each binary only
// validates the sections it uses.
type Config struct {
	Agent  AgentConfig  `json:"agent" yaml:"agent"`
	Server ServerConfig `json:"server" yaml:"server"`
	Store  StoreConfig  `json:"store" yaml:"store"`
}

// AgentConfig configures the capture/delivery agent.
type AgentConfig struct {
	// APIURL is the ingest endpoint the agent delivers to.
	APIURL string `json:"api_url" yaml:"api_url"`

	// APISecret is the shared secret sent on every delivery. Required.
	APISecret string `json:"api_secret" yaml:"api_secret"`

	// FlushInterval is the fixed period between delivery attempts.
	FlushInterval time.Duration `json:"flush_interval" yaml:"flush_interval"`

	// RequestTimeout bounds a single delivery attempt.
	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout"`

	// SpoolPath is where an undelivered snapshot is persisted.
	SpoolPath string `json:"spool_path" yaml:"spool_path"`

	// InputPath is the device record stream to read events from.
	InputPath string `json:"input_path" yaml:"input_path"`
}

// ServerConfig configures the API server.
type ServerConfig struct {
	// Addr is the HTTP listen address.
	Addr string `json:"addr" yaml:"addr"`

	// APISecret authenticates ingest and query requests. Required.
	APISecret string `json:"api_secret" yaml:"api_secret"`

	// ReadTimeout is the HTTP read timeout.
	ReadTimeout time.Duration `json:"read_timeout" yaml:"read_timeout"`

	// WriteTimeout is the HTTP write timeout.
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`

	// IdleTimeout is the HTTP idle timeout.
	IdleTimeout time.Duration `json:"idle_timeout" yaml:"idle_timeout"`
}

// StoreConfig selects and configures the aggregation store backend.
type StoreConfig struct {
	// Driver is the store backend: sqlite or postgres.
	Driver string `json:"driver" yaml:"driver"`

	// Path is the SQLite database file (sqlite driver).
	Path string `json:"path" yaml:"path"`

	// DSN is the connection string (postgres driver).
	DSN string `json:"dsn" yaml:"dsn"`
}

// DefaultConfig returns the defaults for local development.
func DefaultConfig() *Config {
	return &Config{
		Agent: AgentConfig{
			APIURL:         "http://localhost:3000/api/stats",
			FlushInterval:  10 * time.Second,
			RequestTimeout: 10 * time.Second,
			SpoolPath:      "stats_backup.json",
			InputPath:      "/dev/stdin",
		},
		Server: ServerConfig{
			Addr:         ":3000",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Store: StoreConfig{
			Driver: "sqlite",
			Path:   filepath.Join("data", "sagittarius.db"),
		},
	}
}

// LoadFromFile loads configuration from a YAML or JSON file over defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: failed to parse YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: failed to parse JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("config: unsupported file format: %s", ext)
	}

	return cfg, nil
}

// LoadFromEnv applies SAGITTARIUS_* environment overrides. API_URL and
// API_SECRET are also honored bare, matching the original deployment's .env
// files.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("API_URL"); v != "" {
		cfg.Agent.APIURL = v
	}
	if v := os.Getenv("API_SECRET"); v != "" {
		cfg.Agent.APISecret = v
		cfg.Server.APISecret = v
	}

	if v := os.Getenv("SAGITTARIUS_API_URL"); v != "" {
		cfg.Agent.APIURL = v
	}
	if v := os.Getenv("SAGITTARIUS_API_SECRET"); v != "" {
		cfg.Agent.APISecret = v
		cfg.Server.APISecret = v
	}
	if v := os.Getenv("SAGITTARIUS_FLUSH_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Agent.FlushInterval = d
		}
	}
	if v := os.Getenv("SAGITTARIUS_SPOOL_PATH"); v != "" {
		cfg.Agent.SpoolPath = v
	}
	if v := os.Getenv("SAGITTARIUS_INPUT_PATH"); v != "" {
		cfg.Agent.InputPath = v
	}
	if v := os.Getenv("SAGITTARIUS_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("SAGITTARIUS_STORE_DRIVER"); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv("SAGITTARIUS_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("SAGITTARIUS_STORE_DSN"); v != "" {
		cfg.Store.DSN = v
	}
}

// ValidateAgent checks the fields the agent binary needs. A missing secret
// is a startup error, never a warning.
func (c *Config) ValidateAgent() error {
	if c.Agent.APIURL == "" {
		return fmt.Errorf("config: agent.api_url is required")
	}
	if c.Agent.APISecret == "" {
		return fmt.Errorf("config: agent.api_secret is required (set API_SECRET)")
	}
	if c.Agent.FlushInterval <= 0 {
		return fmt.Errorf("config: agent.flush_interval must be positive")
	}
	return nil
}

// ValidateServer checks the fields the server binary needs.
func (c *Config) ValidateServer() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("config: server.addr is required")
	}
	if c.Server.APISecret == "" {
		return fmt.Errorf("config: server.api_secret is required (set API_SECRET)")
	}

	switch c.Store.Driver {
	case "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("config: store.path is required for the sqlite driver")
		}
	case "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("config: store.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("config: invalid store driver: %s (must be sqlite or postgres)", c.Store.Driver)
	}

	return nil
}

// EnsureStoreDir creates the directory holding the SQLite database.
func (c *Config) EnsureStoreDir() error {
	if c.Store.Driver != "sqlite" {
		return nil
	}
	dir := filepath.Dir(c.Store.Path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("config: failed to create store directory %s: %w", dir, err)
	}
	return nil
}
