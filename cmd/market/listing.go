package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/happenings-community/requests-and-offers-sub003/internal/application/handlers"
	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/entities"
	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/services"
)

// listingFlags holds the payload and relationship flags shared by create and update.
type listingFlags struct {
	file              string
	title             string
	description       string
	status            string
	capabilities      []string
	requirements      []string
	links             []string
	interaction       string
	timeZone          string
	timePreference    string
	contactPreference string
	startDate         string
	endDate           string
	idempotencyKey    string

	tags          []string
	organizations []string
	serviceTypes  []string
	mediums       []string
}

func (f *listingFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&f.file, "file", "f", "", "Read the listing input from a JSON file")
	flags.StringVarP(&f.title, "title", "t", "", "Listing title")
	flags.StringVarP(&f.description, "description", "d", "", "Listing description")
	flags.StringSliceVar(&f.capabilities, "capability", nil, "Offered capability (repeatable)")
	flags.StringSliceVar(&f.requirements, "requirement", nil, "Request requirement (repeatable)")
	flags.StringSliceVar(&f.links, "link", nil, "Related URL (repeatable)")
	flags.StringVar(&f.interaction, "interaction", "", "Interaction type (virtual, in_person)")
	flags.StringVar(&f.timeZone, "time-zone", "", "Time zone, e.g. Europe/Berlin")
	flags.StringVar(&f.timePreference, "time-preference", "", "Preferred time of day")
	flags.StringVar(&f.contactPreference, "contact", "", "Contact preference")
	flags.StringVar(&f.startDate, "start", "", "Earliest date (YYYY-MM-DD)")
	flags.StringVar(&f.endDate, "end", "", "Latest date (YYYY-MM-DD)")
	flags.StringSliceVar(&f.tags, "tag", nil, "Tag (repeatable)")
	flags.StringSliceVar(&f.organizations, "organization", nil, "Organization hash (repeatable)")
	flags.StringSliceVar(&f.serviceTypes, "service-type", nil, "Service type hash (repeatable)")
	flags.StringSliceVar(&f.mediums, "medium", nil, "Medium of exchange hash (repeatable)")
	flags.StringVar(&f.idempotencyKey, "idempotency-key", "", "Reuse this key when retrying a failed call to avoid a duplicate write")
}

// context attaches the idempotency key, if one was given, to ctx.
func (f *listingFlags) context(ctx context.Context) context.Context {
	return services.WithIdempotencyKey(ctx, f.idempotencyKey)
}

// input builds the handler input. Relationship flags that were not given on
// the command line are left out so an update keeps the current set.
func (f *listingFlags) input(cmd *cobra.Command) (handlers.ListingInput, error) {
	var in handlers.ListingInput
	if f.file != "" {
		data, err := os.ReadFile(f.file)
		if err != nil {
			return in, fmt.Errorf("reading listing file: %w", err)
		}
		if err := json.Unmarshal(data, &in); err != nil {
			return in, fmt.Errorf("parsing listing file: %w", err)
		}
	}

	l := &in.Listing
	setString(cmd, "title", &l.Title, f.title)
	setString(cmd, "description", &l.Description, f.description)
	setString(cmd, "time-zone", &l.TimeZone, f.timeZone)
	setString(cmd, "time-preference", &l.TimePreference, f.timePreference)
	setString(cmd, "contact", &l.ContactPreference, f.contactPreference)
	if cmd.Flags().Changed("interaction") {
		l.InteractionType = entities.InteractionType(f.interaction)
	}
	if cmd.Flags().Changed("status") {
		l.Status = entities.ListingStatus(f.status)
	}
	setSlice(cmd, "capability", &l.Capabilities, f.capabilities)
	setSlice(cmd, "requirement", &l.Requirements, f.requirements)
	setSlice(cmd, "link", &l.Links, f.links)
	if f.startDate != "" || f.endDate != "" {
		l.DateRange = &entities.DateRange{Start: f.startDate, End: f.endDate}
	}

	rels := map[string][]string{
		"tag":          f.tags,
		"organization": f.organizations,
		"service-type": f.serviceTypes,
		"medium":       f.mediums,
	}
	kinds := map[string]entities.RelationKind{
		"tag":          entities.RelationTags,
		"organization": entities.RelationOrganization,
		"service-type": entities.RelationServiceType,
		"medium":       entities.RelationMediumOfExchange,
	}
	for flag, values := range rels {
		if !cmd.Flags().Changed(flag) {
			continue
		}
		if in.Relationships == nil {
			in.Relationships = make(handlers.RelationshipInput)
		}
		in.Relationships[string(kinds[flag])] = nonEmpty(values)
	}
	return in, nil
}

func setString(cmd *cobra.Command, flag string, dst *string, v string) {
	if cmd.Flags().Changed(flag) {
		*dst = v
	}
}

func setSlice(cmd *cobra.Command, flag string, dst *[]string, v []string) {
	if cmd.Flags().Changed(flag) {
		*dst = nonEmpty(v)
	}
}

// nonEmpty drops blank values so --tag "" clears a set.
func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func parseKind(s string) (entities.EntityKind, error) {
	kind, ok := entities.ParseEntityKind(s)
	if !ok {
		return "", fmt.Errorf("invalid kind %q (valid: offer, request)", s)
	}
	return kind, nil
}

func newCreateCmd() *cobra.Command {
	var flags listingFlags

	cmd := &cobra.Command{
		Use:   "create <offer|request>",
		Short: "Create a listing",
		Long:  "Creates an offer or a request owned by the acting agent and adds it to the active listings.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			in, err := flags.input(cmd)
			if err != nil {
				return err
			}

			return withDeps(cmd.Context(), func(d *Deps) error {
				caller, err := d.Caller()
				if err != nil {
					return err
				}
				e, err := d.Listings.HandleCreate(flags.context(cmd.Context()), caller, kind, in)
				if err != nil {
					return fmt.Errorf("creating %s: %w", kind, err)
				}
				fmt.Printf("Created %s %s\n", kind, e.ID)
				return nil
			})
		},
	}

	flags.register(cmd)
	return cmd
}

func newUpdateCmd() *cobra.Command {
	var (
		flags    listingFlags
		previous string
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a listing",
		Long: `Appends a new version of a listing. Fields not given keep their current
value when --file is not used; relationship flags replace the whole set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := entities.ParseHash(args[0])
			if err != nil {
				return err
			}
			var prev entities.Hash
			if previous != "" {
				if prev, err = entities.ParseHash(previous); err != nil {
					return fmt.Errorf("--previous: %w", err)
				}
			}

			return withDeps(cmd.Context(), func(d *Deps) error {
				caller, err := d.Caller()
				if err != nil {
					return err
				}

				in, err := flags.input(cmd)
				if err != nil {
					return err
				}
				if flags.file == "" {
					// Start from the current payload so unset flags keep their value.
					current, err := d.Queries.HandleGet(cmd.Context(), id)
					if err != nil {
						return fmt.Errorf("loading listing: %w", err)
					}
					base := *current.Listing
					in.Listing = mergeListing(base, in.Listing, cmd)
				}

				e, err := d.Listings.HandleUpdate(flags.context(cmd.Context()), caller, id, prev, in)
				if err != nil {
					return fmt.Errorf("updating listing: %w", err)
				}
				fmt.Printf("Updated %s %s (version %s)\n", e.Kind, e.ID, e.Latest.Short())
				return nil
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&flags.status, "status", "", "New status (active, archived)")
	cmd.Flags().StringVar(&previous, "previous", "", "Version being replaced (default: latest)")
	return cmd
}

// mergeListing overlays the fields set on the command line onto base.
func mergeListing(base, changes entities.Listing, cmd *cobra.Command) entities.Listing {
	set := cmd.Flags().Changed
	if set("title") {
		base.Title = changes.Title
	}
	if set("description") {
		base.Description = changes.Description
	}
	if set("status") {
		base.Status = changes.Status
	}
	if set("capability") {
		base.Capabilities = changes.Capabilities
	}
	if set("requirement") {
		base.Requirements = changes.Requirements
	}
	if set("link") {
		base.Links = changes.Links
	}
	if set("interaction") {
		base.InteractionType = changes.InteractionType
	}
	if set("time-zone") {
		base.TimeZone = changes.TimeZone
	}
	if set("time-preference") {
		base.TimePreference = changes.TimePreference
	}
	if set("contact") {
		base.ContactPreference = changes.ContactPreference
	}
	if set("start") || set("end") {
		base.DateRange = changes.DateRange
	}
	return base
}

// newStatusCmd builds archive, unarchive and delete, which take only an ID.
func newStatusCmd(use, short, done string, op func(d *Deps, cmd *cobra.Command, caller, id entities.Hash) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := entities.ParseHash(args[0])
			if err != nil {
				return err
			}
			return withDeps(cmd.Context(), func(d *Deps) error {
				caller, err := d.Caller()
				if err != nil {
					return err
				}
				if err := op(d, cmd, caller, id); err != nil {
					if errors.Is(err, errCancelled) {
						fmt.Println("Cancelled.")
						return nil
					}
					return fmt.Errorf("%s: %w", use, err)
				}
				fmt.Printf("%s %s\n", done, id)
				return nil
			})
		},
	}
}

func newArchiveCmd() *cobra.Command {
	return newStatusCmd("archive", "Archive a listing", "Archived", func(d *Deps, cmd *cobra.Command, caller, id entities.Hash) error {
		return d.Listings.HandleArchive(cmd.Context(), caller, id)
	})
}

func newUnarchiveCmd() *cobra.Command {
	return newStatusCmd("unarchive", "Restore an archived listing", "Restored", func(d *Deps, cmd *cobra.Command, caller, id entities.Hash) error {
		return d.Listings.HandleUnarchive(cmd.Context(), caller, id)
	})
}

func newDeleteCmd() *cobra.Command {
	var force bool

	cmd := newStatusCmd("delete", "Delete a listing", "Deleted", func(d *Deps, cmd *cobra.Command, caller, id entities.Hash) error {
		if !force && !confirmAction(fmt.Sprintf("Delete listing %s? This cannot be undone.", id.Short())) {
			return errCancelled
		}
		return d.Listings.HandleDelete(cmd.Context(), caller, id)
	})
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")
	return cmd
}
