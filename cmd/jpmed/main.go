// Package main provides the jpmed CLI.
// jpmed reads the published Japanese drug-master datasets and builds the derived lists.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

var (
	// Version is set by build flags
	Version = "dev"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := getRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
