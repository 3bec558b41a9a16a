// Package main provides the promgen command.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	// Embedded zone database so silence timezones resolve on minimal hosts.
	_ "time/tzdata"

	"github.com/leapstack-labs/promgen/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Execute(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
