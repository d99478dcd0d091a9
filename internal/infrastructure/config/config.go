// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigDir is the directory name for market configuration.
	DefaultConfigDir = ".market"
	// DefaultConfigFile is the default config file name.
	DefaultConfigFile = "config.yaml"
	// DefaultNetworksFile is the default networks file name.
	DefaultNetworksFile = "networks.yaml"
	// DefaultNetwork is used when no network is selected.
	DefaultNetwork = "default"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
)

var (
	// reNonAlphanumeric matches characters that aren't alphanumeric or underscore.
	reNonAlphanumeric = regexp.MustCompile(`[^a-z0-9_]`)
	// reMultipleUnderscores matches consecutive underscores.
	reMultipleUnderscores = regexp.MustCompile(`_+`)
)

// Config holds static infrastructure configuration (read-only after init).
type Config struct {
	// Agent is the identity the CLI acts as.
	Agent     string          `yaml:"agent,omitempty"`
	Store     StoreConfig     `yaml:"store,omitempty"`
	Substrate SubstrateConfig `yaml:"substrate,omitempty"`
	Cache     CacheConfig     `yaml:"cache,omitempty"`
	Log       LogConfig       `yaml:"log,omitempty"`
	Server    ServerConfig    `yaml:"server,omitempty"`
}

// StoreConfig selects the content store backend.
type StoreConfig struct {
	Backend string `yaml:"backend,omitempty"`
	// Path is the database file (sqlite) or directory (badger).
	// When empty it is computed per network using StorePathForNetwork.
	Path string `yaml:"path,omitempty"`
	// SyncWrites makes badger fsync every write.
	SyncWrites bool `yaml:"sync_writes,omitempty"`
}

// SQLiteConfig holds configuration for the SQLite content store.
type SQLiteConfig struct {
	Path string `yaml:"path,omitempty"`
}

// SubstrateConfig bounds how long and how often store calls are retried.
type SubstrateConfig struct {
	Timeout         time.Duration `yaml:"timeout,omitempty"`
	MaxTries        uint          `yaml:"max_tries,omitempty"`
	InitialInterval time.Duration `yaml:"initial_interval,omitempty"`
	MaxInterval     time.Duration `yaml:"max_interval,omitempty"`
	// Concurrency bounds parallel resolutions per query.
	Concurrency int `yaml:"concurrency,omitempty"`
}

// CacheConfig holds configuration for the latest-version cache.
type CacheConfig struct {
	Enabled    bool          `yaml:"enabled"`
	TTL        time.Duration `yaml:"ttl,omitempty"`
	MaxEntries int64         `yaml:"max_entries,omitempty"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// ServerConfig holds configuration for the HTTP API.
type ServerConfig struct {
	Addr         string        `yaml:"addr,omitempty"`
	ReadTimeout  time.Duration `yaml:"read_timeout,omitempty"`
	WriteTimeout time.Duration `yaml:"write_timeout,omitempty"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Backend: BackendSQLite,
		},
		Substrate: SubstrateConfig{
			Timeout:         5 * time.Second,
			MaxTries:        4,
			InitialInterval: 50 * time.Millisecond,
			MaxInterval:     time.Second,
			Concurrency:     8,
		},
		Cache: CacheConfig{
			Enabled:    true,
			TTL:        30 * time.Second,
			MaxEntries: 10000,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
	}
}

// Load loads configuration from the .market directory in the given path.
func Load(basePath string) (*Config, error) {
	configFile := ConfigFilePath(basePath)

	data, err := os.ReadFile(configFile)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s (run 'market init' first)", configFile)
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Start with defaults
	cfg := Default()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnvOverrides applies MARKET_* environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("MARKET_AGENT"); v != "" {
		c.Agent = v
	}
	if v := os.Getenv("MARKET_STORE_BACKEND"); v != "" {
		c.Store.Backend = v
	}
	if v := os.Getenv("MARKET_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("MARKET_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("MARKET_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("MARKET_SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("MARKET_SUBSTRATE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parsing MARKET_SUBSTRATE_TIMEOUT: %w", err)
		}
		c.Substrate.Timeout = d
	}
	if v := os.Getenv("MARKET_CACHE_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parsing MARKET_CACHE_ENABLED: %w", err)
		}
		c.Cache.Enabled = b
	}
	return nil
}

// Validate checks the configuration for values no component can use.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory, BackendSQLite, BackendBadger:
	default:
		return fmt.Errorf("unknown store backend %q (valid: memory, sqlite, badger)", c.Store.Backend)
	}
	if c.Substrate.MaxTries == 0 {
		return fmt.Errorf("substrate.max_tries must be at least 1")
	}
	if c.Substrate.Timeout < 0 {
		return fmt.Errorf("substrate.timeout must not be negative")
	}
	return nil
}

// ConfigDir returns the path to the .market config directory.
func ConfigDir(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir)
}

// ConfigFilePath returns the path to the config file.
func ConfigFilePath(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir, DefaultConfigFile)
}

// NetworksFilePath returns the path to the networks file.
func NetworksFilePath(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir, DefaultNetworksFile)
}

// Exists checks if a market config exists in the given path.
func Exists(basePath string) bool {
	_, err := os.Stat(ConfigFilePath(basePath))
	return err == nil
}

// SanitizeNetworkName converts a network name to a safe directory name.
func SanitizeNetworkName(name string) string {
	// Convert to lowercase
	name = strings.ToLower(name)

	// Replace spaces and hyphens with underscores
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, "-", "_")

	// Remove any characters that aren't alphanumeric or underscore
	name = reNonAlphanumeric.ReplaceAllString(name, "")

	// Remove consecutive underscores
	name = reMultipleUnderscores.ReplaceAllString(name, "_")

	// Trim leading/trailing underscores
	name = strings.Trim(name, "_")

	if name == "" {
		return DefaultNetwork
	}

	return name
}

// NetworkDir returns the directory path for a given network.
func NetworkDir(basePath, network string) string {
	return filepath.Join(basePath, DefaultConfigDir, "networks", SanitizeNetworkName(network))
}

// StorePathForNetwork returns the store location of a network for backend.
// The memory backend has no location.
func StorePathForNetwork(basePath, network, backend string) string {
	switch backend {
	case BackendSQLite:
		return filepath.Join(NetworkDir(basePath, network), "market.db")
	case BackendBadger:
		return filepath.Join(NetworkDir(basePath, network), "badger")
	default:
		return ""
	}
}
