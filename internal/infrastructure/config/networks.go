package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// NetworksConfig holds the named networks this workspace can act on (read/write).
// Each network is an independent store.
type NetworksConfig struct {
	Current  string                  `yaml:"current,omitempty"`
	Networks map[string]NetworkEntry `yaml:"networks,omitempty"`
}

// NetworkEntry holds configuration for a specific network.
type NetworkEntry struct {
	Backend     string `yaml:"backend,omitempty"`
	Path        string `yaml:"path,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// LoadNetworks loads network configuration from the .market directory.
func LoadNetworks(basePath string) (*NetworksConfig, error) {
	data, err := os.ReadFile(NetworksFilePath(basePath))
	if os.IsNotExist(err) {
		// Return empty config if file doesn't exist
		return &NetworksConfig{
			Networks: make(map[string]NetworkEntry),
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading networks file: %w", err)
	}

	var cfg NetworksConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing networks file: %w", err)
	}

	if cfg.Networks == nil {
		cfg.Networks = make(map[string]NetworkEntry)
	}

	return &cfg, nil
}

// Save writes the networks configuration to the networks file.
func (n *NetworksConfig) Save(basePath string) error {
	configDir := filepath.Join(basePath, DefaultConfigDir)

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshaling networks config: %w", err)
	}

	if err := os.WriteFile(NetworksFilePath(basePath), data, 0600); err != nil {
		return fmt.Errorf("writing networks file: %w", err)
	}

	return nil
}

// Add adds a network to the configuration.
func (n *NetworksConfig) Add(name string, entry NetworkEntry) {
	if n.Networks == nil {
		n.Networks = make(map[string]NetworkEntry)
	}
	n.Networks[name] = entry
}

// Remove removes a network from the configuration.
func (n *NetworksConfig) Remove(name string) {
	if n.Networks != nil {
		delete(n.Networks, name)
	}
	if n.Current == name {
		n.Current = ""
	}
}

// Names returns the configured network names, sorted.
func (n *NetworksConfig) Names() []string {
	names := make([]string, 0, len(n.Networks))
	for k := range n.Networks {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Get returns the configuration for a specific network.
func (n *NetworksConfig) Get(name string) (*NetworkEntry, error) {
	if len(n.Networks) == 0 {
		return nil, errors.New("no networks configured")
	}

	entry, ok := n.Networks[name]
	if !ok {
		names := n.Names()
		if len(names) > 5 {
			names = append(names[:5], "...")
		}
		return nil, fmt.Errorf("network %q not found (available: %s)", name, strings.Join(names, ", "))
	}

	return &entry, nil
}

// Exists checks if a network exists in the configuration.
func (n *NetworksConfig) Exists(name string) bool {
	if n.Networks == nil {
		return false
	}
	_, ok := n.Networks[name]
	return ok
}

// ResolveStore returns the backend and path for network, falling back to cfg
// for anything the network entry leaves unset.
func (n *NetworksConfig) ResolveStore(basePath, network string, cfg StoreConfig) StoreConfig {
	out := cfg
	if entry, ok := n.Networks[network]; ok {
		if entry.Backend != "" {
			out.Backend = entry.Backend
		}
		if entry.Path != "" {
			out.Path = entry.Path
		}
	}
	if out.Path == "" {
		out.Path = StorePathForNetwork(basePath, network, out.Backend)
	}
	return out
}
