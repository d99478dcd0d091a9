package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/happenings-community/requests-and-offers-sub003/internal/application/handlers"
	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/entities"
)

type listFlags struct {
	kind    string
	status  string
	owner   string
	tag     string
	related string
	relKind string
	limit   int
}

func newListCmd() *cobra.Command {
	var flags listFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List listings",
		Long:  "Lists requests and offers with optional filtering by kind, status, owner, tag or relationship.",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options()
			if err != nil {
				return err
			}
			return withDeps(cmd.Context(), func(d *Deps) error {
				result, err := d.Queries.HandleList(cmd.Context(), opts)
				if err != nil {
					return err
				}
				displayListings(result, flags.limit)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&flags.kind, "kind", "k", "", "Filter by kind (offer, request)")
	cmd.Flags().StringVarP(&flags.status, "status", "s", "", "Filter by status (active, archived)")
	cmd.Flags().StringVarP(&flags.owner, "owner", "o", "", "Filter by owning agent")
	cmd.Flags().StringVarP(&flags.tag, "tag", "t", "", "Filter by tag")
	cmd.Flags().StringVar(&flags.related, "related", "", "Filter by related hash (requires --kind and --rel-kind)")
	cmd.Flags().StringVar(&flags.relKind, "rel-kind", "", "Relationship kind for --related")
	cmd.Flags().IntVarP(&flags.limit, "limit", "l", DefaultListLimit, "Maximum number of listings to display")

	return cmd
}

// options validates the flags and turns them into query options.
func (f listFlags) options() (handlers.ListOptions, error) {
	var opts handlers.ListOptions

	if f.kind != "" {
		kind, err := parseKind(f.kind)
		if err != nil {
			return opts, err
		}
		opts.Kind = kind
	}
	if f.status != "" {
		opts.Status = entities.ListingStatus(f.status)
		if !opts.Status.IsValid() {
			return opts, fmt.Errorf("invalid status %q (valid: active, archived)", f.status)
		}
	}
	if f.owner != "" {
		owner, err := entities.ParseAgent(f.owner)
		if err != nil {
			return opts, fmt.Errorf("--owner: %w", err)
		}
		opts.Owner = owner
	}
	opts.Tag = f.tag
	if f.related != "" {
		related, err := entities.ParseHash(f.related)
		if err != nil {
			return opts, fmt.Errorf("--related: %w", err)
		}
		opts.Related = related
		opts.RelKind = entities.RelationKind(f.relKind)
		if !opts.RelKind.IsValid() {
			return opts, fmt.Errorf("invalid --rel-kind %q (valid: %v)", f.relKind, handlers.ValidRelationKinds())
		}
		if opts.Kind == "" {
			return opts, fmt.Errorf("--kind is required with --related")
		}
	}
	return opts, nil
}

func displayListings(result *handlers.ListResult, limit int) {
	if result.Total == 0 {
		fmt.Println("No listings found.")
		return
	}

	shown := result.Listings
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}
	fmt.Printf("Showing %d of %d listings:\n\n", len(shown), result.Total)
	for _, e := range shown {
		displayEntity(os.Stdout, e, false)
	}
}
