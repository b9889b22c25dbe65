// Command mlflowctl manages experiments and runs on an MLflow tracking server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/opendatahub-io/mlflow-tracking-go/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand(cli.StandardStreams()).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
