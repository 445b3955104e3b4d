// Command overlay-preview hosts the overlay engine in a window of stand-in
// client windows, for trying icons, timing and placement without a
// compositor.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/grovetools/overlay/cli"
	"github.com/grovetools/overlay/internal/preview"
	"github.com/grovetools/overlay/pkg/paths"
	"github.com/grovetools/overlay/pkg/profiling"
	"github.com/grovetools/overlay/tui"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := cli.NewStandardCommand("overlay-preview", "Preview overlays on stand-in windows")
	cmd.Long = `overlay-preview runs the overlay engine against a grid of stand-in windows.
Drive it with overlayctl, for example:

  overlayctl vol-up 0x1000 40
  overlayctl mute 0x2000`
	cmd.Args = cobra.NoArgs

	cmd.Flags().Int("windows", 4, "Number of stand-in windows")
	cmd.Flags().Int("width", 960, "Canvas width in pixels")
	cmd.Flags().Int("height", 600, "Canvas height in pixels")

	profiler := profiling.NewCobraProfiler()
	profiler.AddFlags(cmd)
	cmd.PersistentPreRunE = profiler.PreRun
	cmd.PersistentPostRunE = profiler.PostRun

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := cli.LoadConfig(cmd)
		if err != nil {
			return err
		}

		windows, _ := cmd.Flags().GetInt("windows")
		width, _ := cmd.Flags().GetInt("width")
		height, _ := cmd.Flags().GetInt("height")

		opts := preview.Options{
			Windows:    windows,
			Width:      width,
			Height:     height,
			PidFile:    paths.PidFilePath(),
			ConfigPath: cfg.Source,
		}
		return run(cmd.Context(), cfg, opts)
	}

	cmd.AddCommand(cli.NewVersionCommand("overlay-preview"))
	return cmd
}

func main() {
	tui.InitializeTUI()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		verbose, _ := root.PersistentFlags().GetBool("verbose")
		cli.NewErrorHandler(verbose, os.Stderr).Handle(err)
		stop()
		os.Exit(1)
	}
}
