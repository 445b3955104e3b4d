// Package cmd implements the overlayctl subcommands.
package cmd

import (
	"github.com/grovetools/overlay/cli"
	"github.com/grovetools/overlay/pkg/client"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the overlayctl command tree.
func NewRootCmd() *cobra.Command {
	root := cli.NewStandardCommand("overlayctl", "Drive and inspect window overlays")
	root.Long = `overlayctl writes the mute-state and command files an overlay host polls,
and inspects a running host through its debug socket.`

	root.AddCommand(
		NewVolumeCmd(client.VerbVolumeUp),
		NewVolumeCmd(client.VerbVolumeDown),
		NewScrollCmd(),
		NewMuteCmd(true),
		NewMuteCmd(false),
		NewMutesCmd(),
		NewStatusCmd(),
		NewTopCmd(),
		NewLogsCmd(),
		NewConfigCmd(),
		NewSchemaCmd(),
		NewPathsCmd(),
		NewHostCmd(),
		cli.NewVersionCommand("overlayctl"),
	)
	return root
}
