package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Long: `Apply all pending schema migrations to the configured sqlite or
postgres store. The memory and redis stores have no schema.`,
		Args: cobra.NoArgs,
		RunE: runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = a.close() }()

	switch a.cfg.Store.Driver {
	case "sqlite", "postgres":
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "store %s has no schema, nothing to migrate\n", a.cfg.Store.Driver)
		return nil
	}

	if _, err := a.openStore(cmd.Context(), true); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Migrations completed successfully")
	return nil
}
