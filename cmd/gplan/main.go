// Command gplan compiles graph traversal queries into execution plans.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/roach88/gplan/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(cli.ExitCode(err))
	}
}
