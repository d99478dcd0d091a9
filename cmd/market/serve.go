package main

import (
	"github.com/spf13/cobra"

	"github.com/happenings-community/requests-and-offers-sub003/internal/infrastructure/httpapi"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long:  "Serves listings, the catalog, administration, /health and /metrics over HTTP until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(d *Deps) error {
				cfg := d.Config.Server
				if addr != "" {
					cfg.Addr = addr
				}

				server := httpapi.New(httpapi.Deps{
					Listings: d.Listings,
					Queries:  d.Queries,
					Admins:   d.Admins,
					Catalog:  d.Catalog,
					Logger:   d.Logger,
				})
				return server.ListenAndServe(cmd.Context(), cfg)
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: server.addr from config)")
	return cmd
}
