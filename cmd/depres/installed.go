package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newInstalledCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "installed",
		Short: "Maintain the installed package database",
		Long: `Record, list and remove installed packages. Installed packages are kept
by the resolver when they still satisfy every constraint.`,
	}
	cmd.AddCommand(newInstalledRecordCommand(a))
	cmd.AddCommand(newInstalledListCommand(a))
	cmd.AddCommand(newInstalledRemoveCommand(a))
	return cmd
}

func newInstalledRecordCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "record <candidate id...>",
		Short:   "Record catalog candidates as installed",
		Example: `  depres installed record 'app-editors/vim-9.0:0::gentoo'`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			u, err := a.loadUniverse(ctx, false)
			if err != nil {
				return err
			}
			db, err := a.installedDB()
			if err != nil {
				return err
			}
			defer db.Close()

			for _, id := range args {
				c := u.Get(id)
				if c == nil {
					return fmt.Errorf("no candidate %s in the configured catalogs", id)
				}
				if err := db.Record(ctx, c); err != nil {
					return err
				}
				a.logger.Info("recorded installed candidate", zap.String("candidate", id))
				color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "recorded %s\n", id)
			}
			return nil
		},
	}
}

func newInstalledListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List installed candidates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.installedDB()
			if err != nil {
				return err
			}
			defer db.Close()

			candidates, err := db.Candidates(cmd.Context())
			if err != nil {
				return err
			}
			for _, c := range candidates {
				fmt.Fprintln(cmd.OutOrStdout(), c.ID())
			}
			return nil
		},
	}
}

func newInstalledRemoveCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name> <slot>",
		Short: "Forget the installed candidate of a package slot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.installedDB()
			if err != nil {
				return err
			}
			defer db.Close()
			return db.Remove(cmd.Context(), args[0], args[1])
		},
	}
}
