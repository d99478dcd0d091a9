package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/happenings-community/requests-and-offers-sub003/internal/application/handlers"
	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/entities"
)

type importFlags struct {
	format        string
	dryRun        bool
	organizations []string
}

func newImportCmd() *cobra.Command {
	var flags importFlags

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import listings from JSON or CSV",
		Long:  "Imports offers and requests from a structured file. Re-running an import does not duplicate listings.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, args[0], flags)
		},
	}

	cmd.Flags().StringVarP(&flags.format, "format", "f", "auto", "File format (json, csv, auto)")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Validate without saving")
	cmd.Flags().StringSliceVar(&flags.organizations, "organization", nil, "Organization hash linked to every listing (repeatable)")

	return cmd
}

func runImport(cmd *cobra.Command, filePath string, flags importFlags) error {
	ctx := cmd.Context()

	return withDeps(ctx, func(d *Deps) error {
		caller, err := d.Caller()
		if err != nil {
			return err
		}

		opts := handlers.ImportOptions{
			Format: flags.format,
			DryRun: flags.dryRun,
		}
		if len(flags.organizations) > 0 {
			opts.Relationships = handlers.RelationshipInput{
				string(entities.RelationOrganization): flags.organizations,
			}
		}

		fmt.Printf("Importing %s...\n", filePath)

		result, err := d.Imports.Handle(ctx, caller, filePath, opts)
		if result != nil && err != nil {
			fmt.Printf("Imported %d listings before failing; re-run the import to finish.\n", result.Imported)
		}
		if err != nil {
			return fmt.Errorf("importing file: %w", err)
		}
		d.Logger.Debug("import finished", "batch_id", result.BatchID, "imported", result.Imported)

		// Display errors
		if len(result.Errors) > 0 {
			fmt.Printf("\nValidation errors (%d):\n", len(result.Errors))
			for _, e := range result.Errors {
				fmt.Printf("  %s\n", e.Error())
			}
		}

		// Display summary
		fmt.Println()
		if flags.dryRun {
			fmt.Printf("Dry run: %d listings would be imported", result.Imported)
		} else {
			fmt.Printf("Imported: %d listings", result.Imported)
		}

		if len(result.Errors) > 0 {
			fmt.Printf(", %d errors", len(result.Errors))
		}

		fmt.Println()

		return nil
	})
}
