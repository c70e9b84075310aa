// Package main is the credgate command line tool. It runs the credential
// workflows against a configured store, which is handy for operating a
// deployment and for trying the engine locally.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := NewRootCmd()
	cmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)

	if err := cmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
