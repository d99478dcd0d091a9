package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/happenings-community/requests-and-offers-sub003/internal/application/handlers"
	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/entities"
)

func newMediumCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "medium",
		Short: "Suggest and moderate mediums of exchange",
		Long: `Mediums of exchange are what listings can be paid in.

Anyone may suggest a currency; administrators approve or reject suggestions.
Only approved mediums can be linked from a listing with --medium.`,
	}

	cmd.AddCommand(
		newMediumListCmd(),
		newMediumWriteCmd("suggest", "Suggest a medium of exchange for review", func(ctx context.Context, d *Deps, caller entities.Hash, m entities.MediumOfExchange) (*entities.Medium, error) {
			return d.Catalog.HandleSuggestMedium(ctx, caller, m)
		}),
		newMediumWriteCmd("create", "Add an approved medium of exchange (administrators only)", func(ctx context.Context, d *Deps, caller entities.Hash, m entities.MediumOfExchange) (*entities.Medium, error) {
			return d.Catalog.HandleCreateMedium(ctx, caller, m)
		}),
		newCatalogIDCmd("approve", "Approve a medium of exchange", "Approved", func(ctx context.Context, d *Deps, caller, id entities.Hash) error {
			return d.Catalog.HandleApproveMedium(ctx, caller, id)
		}),
		newCatalogIDCmd("reject", "Reject a medium of exchange", "Rejected", func(ctx context.Context, d *Deps, caller, id entities.Hash) error {
			return d.Catalog.HandleRejectMedium(ctx, caller, id)
		}),
		newCatalogIDCmd("delete", "Delete a medium of exchange", "Deleted", func(ctx context.Context, d *Deps, caller, id entities.Hash) error {
			return d.Catalog.HandleDeleteMedium(ctx, caller, id)
		}),
		newCatalogListingsCmd("Show the listings paid in a medium of exchange", func(ctx context.Context, d *Deps, id entities.Hash, kind entities.EntityKind) (*handlers.ListResult, error) {
			return d.Catalog.HandleListingsForMedium(ctx, id, kind)
		}),
	)
	return cmd
}

// mediumFlags collects a medium of exchange from flags.
type mediumFlags struct {
	code         string
	name         string
	description  string
	exchangeType string
}

func (f *mediumFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.code, "code", "", "Short code, e.g. EUR (required)")
	flags.StringVar(&f.name, "name", "", "Display name (required)")
	flags.StringVar(&f.description, "description", "", "Description")
	flags.StringVar(&f.exchangeType, "type", string(entities.ExchangeCurrency), "Exchange type: base or currency")
}

func (f *mediumFlags) medium() entities.MediumOfExchange {
	return entities.MediumOfExchange{
		Code:         f.code,
		Name:         f.name,
		Description:  f.description,
		ExchangeType: entities.ExchangeType(f.exchangeType),
	}
}

func newMediumWriteCmd(use, short string, op func(context.Context, *Deps, entities.Hash, entities.MediumOfExchange) (*entities.Medium, error)) *cobra.Command {
	var f mediumFlags
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(d *Deps) error {
				caller, err := d.Caller()
				if err != nil {
					return err
				}
				m, err := op(cmd.Context(), d, caller, f.medium())
				if err != nil {
					return err
				}
				displayMedium(os.Stdout, m)
				return nil
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newMediumListCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List mediums of exchange",
		Long:  "Lists every medium, or those with --status. Pending and rejected mediums are visible to administrators only.",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := entities.ModerationStatus(status)
			if s != "" && !s.IsValid() {
				return fmt.Errorf("invalid status: %s (valid: pending, approved, rejected)", status)
			}
			return withDeps(cmd.Context(), func(d *Deps) error {
				var caller entities.Hash
				if s == entities.ModerationPending || s == entities.ModerationRejected {
					var err error
					if caller, err = d.Caller(); err != nil {
						return err
					}
				}
				result, err := d.Catalog.HandleListMediums(cmd.Context(), caller, s)
				if err != nil {
					return err
				}
				if result.Total == 0 {
					fmt.Println("No mediums of exchange found.")
					return nil
				}
				for _, m := range result.Mediums {
					displayMedium(os.Stdout, m)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Filter by status: pending, approved, rejected")
	return cmd
}

func newServiceTypeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service-type",
		Short: "Manage service types",
		Long:  "Service types categorize listings. Administrators manage them; link one from a listing with --service-type.",
	}

	cmd.AddCommand(
		newServiceTypeListCmd(),
		newServiceTypeCreateCmd(),
		newServiceTypeUpdateCmd(),
		newCatalogIDCmd("delete", "Delete a service type", "Deleted", func(ctx context.Context, d *Deps, caller, id entities.Hash) error {
			return d.Catalog.HandleDeleteServiceType(ctx, caller, id)
		}),
		newCatalogListingsCmd("Show the listings of a service type", func(ctx context.Context, d *Deps, id entities.Hash, kind entities.EntityKind) (*handlers.ListResult, error) {
			return d.Catalog.HandleListingsForServiceType(ctx, id, kind)
		}),
	)
	return cmd
}

// serviceTypeFlags collects a service type from flags.
type serviceTypeFlags struct {
	name        string
	description string
	technical   bool
}

func (f *serviceTypeFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.name, "name", "", "Name (required)")
	flags.StringVar(&f.description, "description", "", "Description (required)")
	flags.BoolVar(&f.technical, "technical", false, "Mark as a technical service")
}

func (f *serviceTypeFlags) serviceType() entities.ServiceType {
	return entities.ServiceType{Name: f.name, Description: f.description, Technical: f.technical}
}

func newServiceTypeCreateCmd() *cobra.Command {
	var f serviceTypeFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Add a service type",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(d *Deps) error {
				caller, err := d.Caller()
				if err != nil {
					return err
				}
				st, err := d.Catalog.HandleCreateServiceType(cmd.Context(), caller, f.serviceType())
				if err != nil {
					return err
				}
				displayServiceType(os.Stdout, st)
				return nil
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newServiceTypeUpdateCmd() *cobra.Command {
	var f serviceTypeFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Replace a service type",
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
				st, err := d.Catalog.HandleUpdateServiceType(cmd.Context(), caller, id, f.serviceType())
				if err != nil {
					return err
				}
				displayServiceType(os.Stdout, st)
				return nil
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newServiceTypeListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List service types",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(d *Deps) error {
				result, err := d.Catalog.HandleListServiceTypes(cmd.Context())
				if err != nil {
					return err
				}
				if result.Total == 0 {
					fmt.Println("No service types found.")
					return nil
				}
				for _, st := range result.ServiceTypes {
					displayServiceType(os.Stdout, st)
				}
				return nil
			})
		},
	}
}

// newCatalogIDCmd builds the commands that act on one catalog entry.
func newCatalogIDCmd(use, short, done string, op func(ctx context.Context, d *Deps, caller, id entities.Hash) error) *cobra.Command {
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
				if err := op(cmd.Context(), d, caller, id); err != nil {
					return err
				}
				fmt.Printf("%s %s\n", done, id.Short())
				return nil
			})
		},
	}
}

func newCatalogListingsCmd(short string, op func(ctx context.Context, d *Deps, id entities.Hash, kind entities.EntityKind) (*handlers.ListResult, error)) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "listings <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := entities.ParseHash(args[0])
			if err != nil {
				return err
			}
			var k entities.EntityKind
			if kind != "" {
				var ok bool
				if k, ok = entities.ParseEntityKind(kind); !ok {
					return fmt.Errorf("invalid kind: %s (valid: offer, request)", kind)
				}
			}
			return withDeps(cmd.Context(), func(d *Deps) error {
				result, err := op(cmd.Context(), d, id, k)
				if err != nil {
					return err
				}
				if result.Total == 0 {
					fmt.Println("No listings found.")
					return nil
				}
				for _, e := range result.Listings {
					displayEntity(os.Stdout, e, false)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&kind, "kind", "k", "", "Filter by kind: offer or request")
	return cmd
}

func displayMedium(w io.Writer, m *entities.Medium) {
	fmt.Fprintf(w, "ID: %s\n", m.ID)
	fmt.Fprintf(w, "  [%s/%s] %s %s\n", m.Medium.ExchangeType, m.Status, m.Medium.Code, m.Medium.Name)
	if m.Medium.Description != "" {
		fmt.Fprintf(w, "  %s\n", m.Medium.Description)
	}
	if m.Medium.ResourceSpecID != "" {
		fmt.Fprintf(w, "  Resource spec: %s\n", m.Medium.ResourceSpecID)
	}
	fmt.Fprintln(w)
}

func displayServiceType(w io.Writer, s *entities.Service) {
	fmt.Fprintf(w, "ID: %s\n", s.ID)
	label := s.ServiceType.Name
	if s.ServiceType.Technical {
		label += " (technical)"
	}
	fmt.Fprintf(w, "  %s\n", label)
	fmt.Fprintf(w, "  %s\n", s.ServiceType.Description)
	fmt.Fprintln(w)
}
