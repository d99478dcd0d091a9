package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/happenings-community/requests-and-offers-sub003/internal/application/handlers"
	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/entities"
)

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a listing",
		Long:  "Shows the latest version of a listing and its relationships. Any version hash may be given.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := entities.ParseHash(args[0])
			if err != nil {
				return err
			}
			return withDeps(cmd.Context(), func(d *Deps) error {
				e, err := d.Queries.HandleGet(cmd.Context(), id)
				if err != nil {
					return fmt.Errorf("getting listing: %w", err)
				}
				displayEntity(os.Stdout, e, true)
				return nil
			})
		},
	}
}

func newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <id>",
		Short: "Show every version of a listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := entities.ParseHash(args[0])
			if err != nil {
				return err
			}
			return withDeps(cmd.Context(), func(d *Deps) error {
				history, err := d.Queries.HandleHistory(cmd.Context(), id)
				if err != nil {
					return fmt.Errorf("getting history: %w", err)
				}
				displayHistory(os.Stdout, history)
				return nil
			})
		},
	}
}

func displayEntity(w io.Writer, e *entities.Entity, withRelationships bool) {
	l := e.Listing
	fmt.Fprintf(w, "ID: %s\n", e.ID)
	fmt.Fprintf(w, "  [%s/%s] %s\n", e.Kind, l.Status, l.Title)
	fmt.Fprintf(w, "  Author: %s  Updated: %s\n", e.Author.Short(), e.UpdatedAt.Format("2006-01-02 15:04"))
	if l.Description != "" {
		fmt.Fprintf(w, "  %s\n", l.Description)
	}
	if len(l.Capabilities) > 0 {
		fmt.Fprintf(w, "  Capabilities: %s\n", strings.Join(l.Capabilities, ", "))
	}
	if len(l.Requirements) > 0 {
		fmt.Fprintf(w, "  Requirements: %s\n", strings.Join(l.Requirements, ", "))
	}
	if l.InteractionType != "" {
		fmt.Fprintf(w, "  Interaction: %s\n", l.InteractionType)
	}
	if l.TimeZone != "" {
		fmt.Fprintf(w, "  Time zone: %s\n", l.TimeZone)
	}
	if withRelationships {
		for _, kind := range sortedKinds(e.Relationships) {
			fmt.Fprintf(w, "  %s: %s\n", kind, formatTargets(e.Relationships[kind]))
		}
	}
	fmt.Fprintln(w)
}

func sortedKinds(rels entities.Relationships) []entities.RelationKind {
	kinds := rels.Kinds()
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

func formatTargets(targets []entities.Target) string {
	parts := make([]string, 0, len(targets))
	for _, t := range targets {
		if t.Label != "" {
			parts = append(parts, t.Label)
		} else {
			parts = append(parts, t.ID.Short())
		}
	}
	return strings.Join(parts, ", ")
}

func displayHistory(w io.Writer, h *handlers.HistoryResult) {
	fmt.Fprintf(w, "History of %s (%d versions):\n\n", h.ID, len(h.Versions))
	for i, v := range h.Versions {
		title, status := "", ""
		if v.Listing != nil {
			title, status = v.Listing.Title, string(v.Listing.Status)
		}
		fmt.Fprintf(w, "%2d. %s  %-6s  %s  by %s  [%s] %s\n",
			i+1, v.Hash.Short(), v.Type, v.Timestamp.Format("2006-01-02 15:04:05"), v.Author.Short(), status, title)
	}
}
