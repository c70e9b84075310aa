package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	credgate "github.com/MrEthical07/credgate"
)

// NewRegisterCmd creates the register subcommand.
func NewRegisterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an unverified account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, _ := cmd.Flags().GetString("name")
			email, _ := cmd.Flags().GetString("email")
			password, err := passwordArg(cmd, "password", "Password: ")
			if err != nil {
				return err
			}

			return withEngine(cmd, func(ctx context.Context, e *credgate.Engine) error {
				p, err := e.Register(ctx, credgate.RegisterRequest{Name: name, Email: email, Password: password})
				if err != nil {
					return err
				}
				return printProfile(cmd, p)
			})
		},
	}
	cmd.Flags().String("name", "", "display name")
	cmd.Flags().String("email", "", "account email")
	cmd.Flags().String("password", "", "password; prompted when empty")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

// NewProfileCmd creates the profile subcommand.
func NewProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show the public profile of an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			email, _ := cmd.Flags().GetString("email")
			return withEngine(cmd, func(ctx context.Context, e *credgate.Engine) error {
				p, err := e.Profile(ctx, email)
				if err != nil {
					return err
				}
				return printProfile(cmd, p)
			})
		},
	}
	cmd.Flags().String("email", "", "account email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

type profileView struct {
	UserID          string    `json:"user_id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	AccountVerified bool      `json:"account_verified"`
	CreatedAt       time.Time `json:"created_at"`
}

func printProfile(cmd *cobra.Command, p credgate.Profile) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(profileView{
		UserID:          p.UserID,
		Name:            p.Name,
		Email:           p.Email,
		AccountVerified: p.AccountVerified,
		CreatedAt:       p.CreatedAt,
	})
}
