package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	credgate "github.com/MrEthical07/credgate"
)

// NewVerifyCmd creates the verify command group.
func NewVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Email verification codes",
	}
	cmd.AddCommand(emailCmd("send", "Issue and deliver a verification code", func(ctx context.Context, e *credgate.Engine, email, _ string) error {
		return e.SendVerificationCode(ctx, email)
	}, false))
	cmd.AddCommand(emailCmd("confirm", "Redeem a verification code", func(ctx context.Context, e *credgate.Engine, email, code string) error {
		return e.ConfirmVerification(ctx, email, code)
	}, true))
	return cmd
}

// NewResetCmd creates the reset command group.
func NewResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Password reset codes",
	}
	cmd.AddCommand(emailCmd("send", "Issue and deliver a password reset code", func(ctx context.Context, e *credgate.Engine, email, _ string) error {
		return e.SendResetCode(ctx, email)
	}, false))
	cmd.AddCommand(emailCmd("check", "Check a reset code without spending it", func(ctx context.Context, e *credgate.Engine, email, code string) error {
		return e.CheckResetCode(ctx, email, code)
	}, true))

	complete := &cobra.Command{
		Use:   "complete",
		Short: "Redeem a reset code and set a new password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			email, _ := cmd.Flags().GetString("email")
			code, _ := cmd.Flags().GetString("code")
			password, err := passwordArg(cmd, "password", "New password: ")
			if err != nil {
				return err
			}
			return withEngine(cmd, func(ctx context.Context, e *credgate.Engine) error {
				if err := e.CompleteReset(ctx, email, code, password); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "password updated")
				return nil
			})
		},
	}
	complete.Flags().String("email", "", "account email")
	complete.Flags().String("code", "", "six-digit reset code")
	complete.Flags().String("password", "", "new password; prompted when empty")
	_ = complete.MarkFlagRequired("email")
	_ = complete.MarkFlagRequired("code")
	cmd.AddCommand(complete)

	return cmd
}

func emailCmd(use, short string, run func(ctx context.Context, e *credgate.Engine, email, code string) error, needsCode bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			email, _ := cmd.Flags().GetString("email")
			code, _ := cmd.Flags().GetString("code")
			return withEngine(cmd, func(ctx context.Context, e *credgate.Engine) error {
				if err := run(ctx, e, email, code); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "ok")
				return nil
			})
		},
	}
	cmd.Flags().String("email", "", "account email")
	_ = cmd.MarkFlagRequired("email")
	if needsCode {
		cmd.Flags().String("code", "", "six-digit code")
		_ = cmd.MarkFlagRequired("code")
	}
	return cmd
}
