package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/docforge/backend/internal/interfaces/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCommand()
	err := root.ExecuteContext(ctx)
	if err != nil {
		format, _ := root.PersistentFlags().GetString("format")
		cli.WriteError(os.Stderr, format, err)
	}
	stop()
	os.Exit(cli.GetExitCode(err))
}
