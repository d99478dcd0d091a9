// Package main provides the entry point for the market CLI application.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	version       = "0.1.0-dev"
	globalNetwork string
	globalAgent   string
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	rootCmd := &cobra.Command{
		Use:           "market",
		Short:         "A requests and offers marketplace on an append-only content store",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&globalNetwork, "network", "n", "", "Network to operate on (default: current network)")
	rootCmd.PersistentFlags().StringVarP(&globalAgent, "agent", "a", "", "Agent identity to act as (default: config agent or MARKET_AGENT)")

	rootCmd.AddCommand(
		newInitCmd(),
		newCreateCmd(),
		newUpdateCmd(),
		newArchiveCmd(),
		newUnarchiveCmd(),
		newDeleteCmd(),
		newShowCmd(),
		newHistoryCmd(),
		newListCmd(),
		newAdminCmd(),
		newMediumCmd(),
		newServiceTypeCmd(),
		newRepairCmd(),
		newServeCmd(),
		newImportCmd(),
		newExportCmd(),
		newNetworksCmd(),
	)

	return rootCmd.ExecuteContext(ctx)
}
