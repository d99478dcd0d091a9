package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/entities"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage network administrators",
	}

	cmd.AddCommand(
		newAdminListCmd(),
		newAdminRegisterCmd(),
		newAdminAddCmd(),
		newAdminRemoveCmd(),
	)

	return cmd
}

func newAdminListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List administrators",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(d *Deps) error {
				result, err := d.Admins.HandleList(cmd.Context())
				if err != nil {
					return err
				}
				if len(result.Administrators) == 0 {
					fmt.Println("No administrators registered.")
					fmt.Println("Use 'market admin register' to become the first administrator.")
					return nil
				}
				for _, a := range result.Administrators {
					fmt.Println(a)
				}
				return nil
			})
		},
	}
}

func newAdminRegisterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Become the first administrator of the network",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(d *Deps) error {
				caller, err := d.Caller()
				if err != nil {
					return err
				}
				if err := d.Admins.HandleRegister(cmd.Context(), caller); err != nil {
					return err
				}
				fmt.Printf("Registered %s as administrator\n", caller.Short())
				return nil
			})
		},
	}
}

// newAdminChangeCmd builds add and remove, which take the target agent.
func newAdminChangeCmd(use, short, done string, op func(d *Deps, cmd *cobra.Command, caller, agent entities.Hash) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <agent>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			agent, err := entities.ParseAgent(args[0])
			if err != nil {
				return err
			}
			return withDeps(cmd.Context(), func(d *Deps) error {
				caller, err := d.Caller()
				if err != nil {
					return err
				}
				if err := op(d, cmd, caller, agent); err != nil {
					return err
				}
				fmt.Printf("%s %s\n", done, agent.Short())
				return nil
			})
		},
	}
}

func newAdminAddCmd() *cobra.Command {
	return newAdminChangeCmd("add", "Grant administrator privilege", "Added administrator", func(d *Deps, cmd *cobra.Command, caller, agent entities.Hash) error {
		return d.Admins.HandleAdd(cmd.Context(), caller, agent)
	})
}

func newAdminRemoveCmd() *cobra.Command {
	return newAdminChangeCmd("remove", "Revoke administrator privilege", "Removed administrator", func(d *Deps, cmd *cobra.Command, caller, agent entities.Hash) error {
		return d.Admins.HandleRemove(cmd.Context(), caller, agent)
	})
}
