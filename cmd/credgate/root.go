package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for the credgate CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credgate",
		Short: "credgate - password login, email verification and password reset",
		Long: `credgate runs the credential workflows against a configured store:
registration, password login with signed session tokens, and one-time
codes for email verification and password reset.

Settings come from built-in defaults, an optional YAML file (--config)
and flags, in increasing order of precedence.`,
		SilenceUsage: true,
	}

	addConfigFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewRegisterCmd())
	cmd.AddCommand(NewProfileCmd())
	cmd.AddCommand(NewLoginCmd())
	cmd.AddCommand(NewWhoamiCmd())
	cmd.AddCommand(NewVerifyCmd())
	cmd.AddCommand(NewResetCmd())
	cmd.AddCommand(NewReportCmd())

	return cmd
}
