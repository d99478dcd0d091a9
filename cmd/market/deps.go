package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/happenings-community/requests-and-offers-sub003/internal/application/handlers"
	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/entities"
	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/ports"
	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/services"
	"github.com/happenings-community/requests-and-offers-sub003/internal/infrastructure/cache"
	"github.com/happenings-community/requests-and-offers-sub003/internal/infrastructure/config"
	"github.com/happenings-community/requests-and-offers-sub003/internal/infrastructure/contentstore/badger"
	"github.com/happenings-community/requests-and-offers-sub003/internal/infrastructure/contentstore/instrumented"
	"github.com/happenings-community/requests-and-offers-sub003/internal/infrastructure/contentstore/memory"
	"github.com/happenings-community/requests-and-offers-sub003/internal/infrastructure/contentstore/resilient"
	"github.com/happenings-community/requests-and-offers-sub003/internal/infrastructure/contentstore/sqlite"
	"github.com/happenings-community/requests-and-offers-sub003/internal/infrastructure/logging"
)

// Deps holds high-level dependencies for commands.
// Only handlers are exposed - services and stores are internal.
type Deps struct {
	Config   *config.Config
	Networks *config.NetworksConfig
	Network  string
	Logger   *slog.Logger

	Listings *handlers.ListingHandler
	Queries  *handlers.QueryHandler
	Admins   *handlers.AdminHandler
	Imports  *handlers.ImportHandler
	Catalog  *handlers.CatalogHandler
}

// Caller resolves the acting agent from --agent or the configured identity.
func (d *Deps) Caller() (entities.Hash, error) {
	identity := globalAgent
	if identity == "" {
		identity = d.Config.Agent
	}
	if identity == "" {
		return "", errors.New("agent is required (use --agent flag, set agent in config, or MARKET_AGENT)")
	}
	return entities.ParseAgent(identity)
}

// withDeps loads config and builds dependencies, then calls the provided function.
// It handles cleanup automatically.
func withDeps(ctx context.Context, fn func(*Deps) error) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	cfg, err := config.Load(cwd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		return fmt.Errorf("configuring logging: %w", err)
	}

	networks, err := config.LoadNetworks(cwd)
	if err != nil {
		return fmt.Errorf("loading networks: %w", err)
	}
	network := selectNetwork(networks)

	store, err := openStore(ctx, networks.ResolveStore(cwd, network, cfg.Store), logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("closing store", "error", err)
		}
	}()

	// Retries wrap the metrics layer so every attempt is counted.
	var substrate ports.ContentStore = instrumented.New(store, instrumented.NewMetrics(prometheus.DefaultRegisterer))
	substrate = resilient.New(substrate, resilient.Options{
		Timeout:         cfg.Substrate.Timeout,
		MaxTries:        cfg.Substrate.MaxTries,
		InitialInterval: cfg.Substrate.InitialInterval,
		MaxInterval:     cfg.Substrate.MaxInterval,
		Logger:          logger,
	})

	var latest ports.LatestCache
	if cfg.Cache.Enabled {
		c, err := cache.NewLatest(cfg.Cache.MaxEntries, cfg.Cache.TTL)
		if err != nil {
			return fmt.Errorf("creating cache: %w", err)
		}
		defer c.Close()
		latest = c
	}

	retry := services.RetryPolicy{
		MaxTries:        cfg.Substrate.MaxTries,
		InitialInterval: cfg.Substrate.InitialInterval,
		MaxInterval:     cfg.Substrate.MaxInterval,
	}
	chain := services.NewChainResolver(substrate, retry, logger)
	paths := services.NewPathIndex(substrate)
	rels := services.NewRelationshipIndex(substrate)
	admin := services.NewAdminService(paths, logger)
	catalog := services.NewCatalogService(substrate, chain, paths, admin, logger)
	lifecycle := services.NewLifecycleService(substrate, chain, paths, rels, services.AuthorOrAdmin(admin), latest, logger).
		WithRelationGate(catalog)
	query := services.NewQueryService(chain, paths, rels, latest, logger, cfg.Substrate.Concurrency)

	return fn(&Deps{
		Config:   cfg,
		Networks: networks,
		Network:  network,
		Logger:   logger.With("network", network),
		Listings: handlers.NewListingHandler(lifecycle, query),
		Queries:  handlers.NewQueryHandler(query),
		Admins:   handlers.NewAdminHandler(admin),
		Imports:  handlers.NewImportHandler(services.NewImportService(lifecycle)),
		Catalog:  handlers.NewCatalogHandler(catalog, query),
	})
}

// selectNetwork picks --network, then the current network, then the default.
func selectNetwork(networks *config.NetworksConfig) string {
	switch {
	case globalNetwork != "":
		return globalNetwork
	case networks.Current != "":
		return networks.Current
	default:
		return config.DefaultNetwork
	}
}

// openStore opens the backend named in cfg and makes sure its schema exists.
func openStore(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (ports.ContentStore, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		logger.Warn("using in-memory store, nothing will persist after exit")
		return memory.New(), nil

	case config.BackendSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
		store, err := sqlite.NewStore(config.SQLiteConfig{Path: cfg.Path})
		if err != nil {
			return nil, fmt.Errorf("creating sqlite store: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("ensuring sqlite schema: %w", err)
		}
		return store, nil

	case config.BackendBadger:
		bcfg := badger.DefaultConfig(cfg.Path)
		bcfg.SyncWrites = cfg.SyncWrites
		bcfg.Logger = logger.With("component", "badger")
		store, err := badger.Open(bcfg)
		if err != nil {
			return nil, fmt.Errorf("creating badger store: %w", err)
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
