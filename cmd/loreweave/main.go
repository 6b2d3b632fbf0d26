// Package main provides the loreweave world engine CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/loreweave/loreweave/internal/cli"
	"github.com/loreweave/loreweave/internal/platform/config"
	"github.com/loreweave/loreweave/internal/platform/otel"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := otel.Setup(ctx, "loreweave")
	if err != nil {
		config.Exitf("Error: %v", err)
	}
	defer shutdown(context.Background())

	if err := cli.Execute(ctx); err != nil {
		os.Exit(1)
	}
}
