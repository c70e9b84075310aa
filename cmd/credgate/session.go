package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	credgate "github.com/MrEthical07/credgate"
)

// NewLoginCmd creates the login subcommand.
func NewLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Check a password and print a session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			email, _ := cmd.Flags().GetString("email")
			password, err := passwordArg(cmd, "password", "Password: ")
			if err != nil {
				return err
			}
			return withEngine(cmd, func(ctx context.Context, e *credgate.Engine) error {
				token, err := e.Authenticate(ctx, email, password)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), token)
				return nil
			})
		},
	}
	cmd.Flags().String("email", "", "account email")
	cmd.Flags().String("password", "", "password; prompted when empty")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

// NewWhoamiCmd creates the whoami subcommand.
func NewWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami TOKEN",
		Short: "Validate a session token and print its email",
		Long: `Validate a session token offline against the configured signing
secret. The store is not consulted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(ctx context.Context, e *credgate.Engine) error {
				email, err := e.ValidateToken(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), email)
				return nil
			})
		},
	}
}
