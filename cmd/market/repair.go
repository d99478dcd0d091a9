package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/entities"
	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/services"
)

func newRepairCmd() *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "repair [id]",
		Short: "Repair status bucket membership",
		Long: `Checks that each listing is in exactly one status bucket matching its latest
status and fixes it otherwise. Without an ID every indexed listing is checked.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var k entities.EntityKind
			if kind != "" {
				var err error
				if k, err = parseKind(kind); err != nil {
					return err
				}
			}

			return withDeps(cmd.Context(), func(d *Deps) error {
				caller, err := d.Caller()
				if err != nil {
					return err
				}

				var reports []*services.RepairReport
				if len(args) == 1 {
					id, err := entities.ParseHash(args[0])
					if err != nil {
						return err
					}
					report, err := d.Listings.HandleRepair(cmd.Context(), caller, id)
					if err != nil {
						return err
					}
					reports = append(reports, report)
				} else {
					if reports, err = d.Listings.HandleRepairAll(cmd.Context(), caller, k); err != nil {
						return err
					}
				}

				displayRepairs(os.Stdout, reports)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&kind, "kind", "k", "", "Only repair this kind (offer, request)")
	return cmd
}

func displayRepairs(w io.Writer, reports []*services.RepairReport) {
	repaired := 0
	for _, r := range reports {
		if !r.Repaired {
			continue
		}
		repaired++
		fmt.Fprintf(w, "Repaired %s: found in %v, expected %s\n", r.ID.Short(), r.Found, expectedBucket(r))
	}
	fmt.Fprintf(w, "Checked %d listings, repaired %d\n", len(reports), repaired)
}

func expectedBucket(r *services.RepairReport) string {
	if r.Deleted {
		return "none (deleted)"
	}
	return string(r.Expected)
}
