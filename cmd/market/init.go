package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/happenings-community/requests-and-offers-sub003/internal/application/handlers"
	"github.com/happenings-community/requests-and-offers-sub003/internal/infrastructure/config"
	"github.com/happenings-community/requests-and-offers-sub003/internal/infrastructure/logging"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize a new market",
		Long:  "Creates a .market directory with default configuration, a default network and its store.",
		RunE:  runInit,
	}
}

// storeInitializer creates the store of the current network once the
// configuration has been written.
type storeInitializer struct {
	basePath string
}

func (s storeInitializer) EnsureSchema(ctx context.Context) error {
	cfg, err := config.Load(s.basePath)
	if err != nil {
		return err
	}
	networks, err := config.LoadNetworks(s.basePath)
	if err != nil {
		return err
	}
	store, err := openStore(ctx, networks.ResolveStore(s.basePath, selectNetwork(networks), cfg.Store), logging.Discard())
	if err != nil {
		return err
	}
	return store.Close()
}

func runInit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	result, err := handlers.NewInitHandler(storeInitializer{basePath: cwd}).Handle(ctx, cwd)
	if err != nil {
		return err
	}

	fmt.Printf("Created %s\n", result.ConfigPath)
	fmt.Printf("Created %s\n", result.NetworksPath)
	if result.StorePath != "" {
		fmt.Printf("Network %q uses %s store at %s\n", result.Network, result.Backend, result.StorePath)
	} else {
		fmt.Printf("Network %q uses %s store\n", result.Network, result.Backend)
	}
	fmt.Println("Market initialized successfully!")

	return nil
}
