package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/happenings-community/requests-and-offers-sub003/internal/application/handlers"
	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/entities"
	"github.com/happenings-community/requests-and-offers-sub003/internal/infrastructure/parsers"
)

type exportFlags struct {
	format string
	output string
	list   listFlags
}

type exporter struct {
	queries *handlers.QueryHandler
	format  string
	output  string
}

func newExportCmd() *cobra.Command {
	var flags exportFlags

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export listings to file",
		Long:  "Exports listings to JSON, CSV, or markdown format. JSON and CSV output can be imported again.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.format, "format", "f", "json", "Output format (json, csv, markdown)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringVarP(&flags.list.kind, "kind", "k", "", "Filter by kind (offer, request)")
	cmd.Flags().StringVarP(&flags.list.status, "status", "s", "", "Filter by status (active, archived)")
	cmd.Flags().StringVarP(&flags.list.tag, "tag", "t", "", "Filter by tag")
	cmd.Flags().IntVarP(&flags.list.limit, "limit", "l", DefaultExportLimit, "Maximum number of listings to export")

	return cmd
}

func runExport(cmd *cobra.Command, flags exportFlags) error {
	if !slices.Contains(validFormats, flags.format) {
		return fmt.Errorf("invalid format %q, valid formats: %v", flags.format, validFormats)
	}
	opts, err := flags.list.options()
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	return withDeps(ctx, func(d *Deps) error {
		e := &exporter{
			queries: d.Queries,
			format:  flags.format,
			output:  flags.output,
		}

		listings, err := e.fetchListings(ctx, opts, flags.list.limit)
		if err != nil {
			return err
		}

		return e.export(listings)
	})
}

func (e *exporter) fetchListings(ctx context.Context, opts handlers.ListOptions, limit int) ([]*entities.Entity, error) {
	result, err := e.queries.HandleList(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("listing: %w", err)
	}

	if result.Total == 0 {
		return nil, fmt.Errorf("no listings found to export")
	}

	listings := result.Listings
	if limit > 0 && len(listings) > limit {
		listings = listings[:limit]
	}
	return listings, nil
}

func (e *exporter) export(listings []*entities.Entity) (err error) {
	var w io.Writer
	var f *os.File

	if e.output != "" {
		f, err = os.OpenFile(e.output, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return fmt.Errorf("creating file: %w", err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("closing file: %w", cerr)
			}
		}()
		w = f
	} else {
		w = os.Stdout
	}

	if err := e.formatListings(w, listings); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}

	if e.output != "" {
		fmt.Printf("Exported %d listings to %s\n", len(listings), e.output)
	}

	return nil
}

func (e *exporter) formatListings(w io.Writer, listings []*entities.Entity) error {
	switch e.format {
	case "json":
		return formatJSON(w, listings)
	case "csv":
		return formatCSV(w, listings)
	case "markdown":
		return formatMarkdown(w, listings)
	default:
		return fmt.Errorf("unknown format: %s", e.format)
	}
}

// exportListing mirrors the import row format so exports can be re-imported.
type exportListing struct {
	ID                string   `json:"id"`
	Kind              string   `json:"kind"`
	Status            string   `json:"status"`
	Author            string   `json:"author"`
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	Tags              []string `json:"tags,omitempty"`
	Capabilities      []string `json:"capabilities,omitempty"`
	Requirements      []string `json:"requirements,omitempty"`
	Links             []string `json:"links,omitempty"`
	InteractionType   string   `json:"interaction_type,omitempty"`
	TimeZone          string   `json:"time_zone,omitempty"`
	TimePreference    string   `json:"time_preference,omitempty"`
	ContactPreference string   `json:"contact_preference,omitempty"`
}

func toExport(e *entities.Entity) exportListing {
	l := e.Listing
	return exportListing{
		ID:                e.ID.String(),
		Kind:              string(e.Kind),
		Status:            string(l.Status),
		Author:            e.Author.String(),
		Title:             l.Title,
		Description:       l.Description,
		Tags:              e.Tags(),
		Capabilities:      l.Capabilities,
		Requirements:      l.Requirements,
		Links:             l.Links,
		InteractionType:   string(l.InteractionType),
		TimeZone:          l.TimeZone,
		TimePreference:    l.TimePreference,
		ContactPreference: l.ContactPreference,
	}
}

func formatJSON(w io.Writer, listings []*entities.Entity) error {
	out := make([]exportListing, 0, len(listings))
	for _, e := range listings {
		out = append(out, toExport(e))
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

func formatCSV(w io.Writer, listings []*entities.Entity) error {
	writer := csv.NewWriter(w)

	header := []string{"id", "kind", "status", "title", "description", "tags", "capabilities", "requirements", "interaction_type", "time_zone"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, e := range listings {
		x := toExport(e)
		row := []string{
			x.ID,
			x.Kind,
			x.Status,
			x.Title,
			x.Description,
			strings.Join(x.Tags, parsers.ListSeparator),
			strings.Join(x.Capabilities, parsers.ListSeparator),
			strings.Join(x.Requirements, parsers.ListSeparator),
			x.InteractionType,
			x.TimeZone,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func formatMarkdown(w io.Writer, listings []*entities.Entity) error {
	if _, err := fmt.Fprintf(w, "# Exported Listings\n\nTotal: %d listings\n\n", len(listings)); err != nil {
		return err
	}

	if _, err := fmt.Fprint(w, "| Kind | Status | Title | Tags | Author |\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprint(w, "|------|--------|-------|------|--------|\n"); err != nil {
		return err
	}

	for _, e := range listings {
		if _, err := fmt.Fprintf(w, "| %s | %s | %s | %s | %s |\n",
			e.Kind,
			e.Listing.Status,
			escapeMarkdown(e.Listing.Title),
			escapeMarkdown(strings.Join(e.Tags(), ", ")),
			e.Author.Short(),
		); err != nil {
			return err
		}
	}

	return nil
}

func escapeMarkdown(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
