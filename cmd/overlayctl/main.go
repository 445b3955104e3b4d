package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/grovetools/overlay/cli"
	"github.com/grovetools/overlay/cmd"
	"github.com/grovetools/overlay/tui"
)

func main() {
	tui.InitializeTUI()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := cmd.NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		verbose, _ := rootCmd.PersistentFlags().GetBool("verbose")
		cli.NewErrorHandler(verbose, os.Stderr).Handle(err)
		stop()
		os.Exit(1)
	}
}
