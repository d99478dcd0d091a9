package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/happenings-community/requests-and-offers-sub003/internal/infrastructure/config"
	"github.com/happenings-community/requests-and-offers-sub003/internal/infrastructure/logging"
)

func newNetworksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "networks",
		Short: "Manage networks",
		Long:  "Each network is an independent marketplace with its own store.",
		RunE:  runNetworksList,
	}

	cmd.AddCommand(
		newNetworksListCmd(),
		newNetworksAddCmd(),
		newNetworksUseCmd(),
		newNetworksRemoveCmd(),
	)

	return cmd
}

func newNetworksListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all networks",
		RunE:  runNetworksList,
	}
}

func runNetworksList(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	cfg, err := config.Load(cwd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	nets, err := config.LoadNetworks(cwd)
	if err != nil {
		return fmt.Errorf("loading networks: %w", err)
	}

	if len(nets.Networks) == 0 {
		fmt.Println("No networks configured.")
		fmt.Println("Use 'market networks add NAME' to create a network.")
		return nil
	}

	fmt.Printf("  %-20s %-8s %-45s %s\n", "NAME", "BACKEND", "STORE", "DESCRIPTION")
	fmt.Printf("  %-20s %-8s %-45s %s\n", "----", "-------", "-----", "-----------")

	for _, name := range nets.Names() {
		entry, _ := nets.Get(name)
		store := nets.ResolveStore(cwd, name, cfg.Store)
		marker := " "
		if name == nets.Current {
			marker = "*"
		}
		fmt.Printf("%s %-20s %-8s %-45s %s\n", marker, name, store.Backend, store.Path, entry.Description)
	}

	return nil
}

type networkAddFlags struct {
	description string
	backend     string
	path        string
	use         bool
}

func newNetworksAddCmd() *cobra.Command {
	var flags networkAddFlags

	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a new network",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("getting current directory: %w", err)
			}
			return addNetwork(cmd.Context(), cwd, args[0], flags)
		},
	}

	cmd.Flags().StringVarP(&flags.description, "description", "d", "", "Network description")
	cmd.Flags().StringVar(&flags.backend, "backend", "", "Store backend (memory, sqlite, badger; default: config store.backend)")
	cmd.Flags().StringVar(&flags.path, "path", "", "Store location (default: .market/networks/NAME)")
	cmd.Flags().BoolVar(&flags.use, "use", false, "Make the new network current")

	return cmd
}

// addNetwork records a network and creates its store.
func addNetwork(ctx context.Context, basePath, name string, flags networkAddFlags) error {
	cfg, err := config.Load(basePath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	nets, err := config.LoadNetworks(basePath)
	if err != nil {
		return fmt.Errorf("loading networks: %w", err)
	}

	name = config.SanitizeNetworkName(name)
	if nets.Exists(name) {
		return fmt.Errorf("network %q already exists", name)
	}

	entry := config.NetworkEntry{
		Backend:     flags.backend,
		Path:        flags.path,
		Description: flags.description,
	}
	candidate := *cfg
	candidate.Store = (&config.NetworksConfig{Networks: map[string]config.NetworkEntry{name: entry}}).ResolveStore(basePath, name, cfg.Store)
	if err := candidate.Validate(); err != nil {
		return err
	}

	store, err := openStore(ctx, candidate.Store, logging.Discard())
	if err != nil {
		return fmt.Errorf("creating network store: %w", err)
	}
	if err := store.Close(); err != nil {
		return fmt.Errorf("closing network store: %w", err)
	}

	nets.Add(name, entry)
	if flags.use || nets.Current == "" {
		nets.Current = name
	}
	if err := nets.Save(basePath); err != nil {
		return fmt.Errorf("saving networks: %w", err)
	}

	fmt.Printf("Created network %q (%s store at %s)\n", name, candidate.Store.Backend, candidate.Store.Path)
	return nil
}

func newNetworksUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use NAME",
		Short: "Make a network current",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("getting current directory: %w", err)
			}
			nets, err := config.LoadNetworks(cwd)
			if err != nil {
				return fmt.Errorf("loading networks: %w", err)
			}
			if _, err := nets.Get(args[0]); err != nil {
				return err
			}
			nets.Current = args[0]
			if err := nets.Save(cwd); err != nil {
				return fmt.Errorf("saving networks: %w", err)
			}
			fmt.Printf("Now using network %q\n", args[0])
			return nil
		},
	}
}

func newNetworksRemoveCmd() *cobra.Command {
	var purge bool

	cmd := &cobra.Command{
		Use:   "remove NAME",
		Short: "Remove a network",
		Long:  "Removes a network from networks.yaml. Its store is kept unless --purge is given.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("getting current directory: %w", err)
			}
			return removeNetwork(cwd, args[0], purge)
		},
	}

	cmd.Flags().BoolVar(&purge, "purge", false, "Also delete the network directory under .market/networks")
	return cmd
}

func removeNetwork(basePath, name string, purge bool) error {
	nets, err := config.LoadNetworks(basePath)
	if err != nil {
		return fmt.Errorf("loading networks: %w", err)
	}
	if _, err := nets.Get(name); err != nil {
		return err
	}

	nets.Remove(name)
	if err := nets.Save(basePath); err != nil {
		return fmt.Errorf("saving networks: %w", err)
	}

	if purge {
		if err := os.RemoveAll(config.NetworkDir(basePath, name)); err != nil {
			return fmt.Errorf("removing network directory: %w", err)
		}
	}

	fmt.Printf("Removed network %q\n", name)
	return nil
}
