// Package handlers contains application use case handlers.
package handlers

import (
	"context"
	"fmt"

	"github.com/happenings-community/requests-and-offers-sub003/internal/infrastructure/config"
)

// SchemaEnsurer is implemented by stores that need their schema created.
type SchemaEnsurer interface {
	EnsureSchema(ctx context.Context) error
}

// InitHandler handles market initialization.
type InitHandler struct {
	store SchemaEnsurer
}

// NewInitHandler creates a new init handler. store may be nil when the
// backend is opened after initialization.
func NewInitHandler(store SchemaEnsurer) *InitHandler {
	return &InitHandler{
		store: store,
	}
}

// InitResult contains the result of initialization.
type InitResult struct {
	ConfigPath   string
	NetworksPath string
	Network      string
	Backend      string
	StorePath    string
}

// Handle initializes the market configuration in basePath.
func (h *InitHandler) Handle(ctx context.Context, basePath string) (*InitResult, error) {
	if config.Exists(basePath) {
		return nil, fmt.Errorf("market already initialized in %s", basePath)
	}

	if err := config.WriteDefault(basePath); err != nil {
		return nil, fmt.Errorf("writing default config: %w", err)
	}

	cfg, err := config.Load(basePath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	nets, err := config.LoadNetworks(basePath)
	if err != nil {
		return nil, fmt.Errorf("loading networks: %w", err)
	}
	if !nets.Exists(config.DefaultNetwork) {
		nets.Add(config.DefaultNetwork, config.NetworkEntry{Description: "default network"})
	}
	if nets.Current == "" {
		nets.Current = config.DefaultNetwork
	}
	if err := nets.Save(basePath); err != nil {
		return nil, fmt.Errorf("saving networks: %w", err)
	}

	if h.store != nil {
		if err := h.store.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}

	store := nets.ResolveStore(basePath, nets.Current, cfg.Store)
	return &InitResult{
		ConfigPath:   config.ConfigFilePath(basePath),
		NetworksPath: config.NetworksFilePath(basePath),
		Network:      nets.Current,
		Backend:      store.Backend,
		StorePath:    store.Path,
	}, nil
}
