package main

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	credgate "github.com/MrEthical07/credgate"
)

// NewReportCmd creates the report subcommand.
func NewReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Print the effective security settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEngine(cmd, func(_ context.Context, e *credgate.Engine) error {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(e.SecurityReport())
			})
		},
	}
}
