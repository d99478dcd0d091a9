package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigYAML is the default configuration content.
const DefaultConfigYAML = `# Requests & Offers market configuration

# agent: your-identity (or set MARKET_AGENT env var)

store:
  backend: sqlite          # memory | sqlite | badger
  # path: computed per network unless set (or MARKET_STORE_PATH)

substrate:
  timeout: 5s
  max_tries: 4
  initial_interval: 50ms
  max_interval: 1s
  concurrency: 8

cache:
  enabled: true
  ttl: 30s
  max_entries: 10000

log:
  level: info              # debug | info | warn | error
  format: auto             # auto | text | json

server:
  addr: ":8080"
  read_timeout: 10s
  write_timeout: 30s
`

// WriteDefault creates the .market directory and writes a default config file.
func WriteDefault(basePath string) error {
	configDir := ConfigDir(basePath)
	configFile := ConfigFilePath(basePath)

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists: %s", configFile)
	}

	if err := os.WriteFile(configFile, []byte(DefaultConfigYAML), 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// Write writes the given config to the config file.
func Write(basePath string, cfg *Config) error {
	configDir := filepath.Join(basePath, DefaultConfigDir)

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(ConfigFilePath(basePath), data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
