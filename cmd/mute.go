package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/grovetools/overlay/cli"
	"github.com/grovetools/overlay/pkg/client"
	"github.com/spf13/cobra"
)

// NewMuteCmd creates the mute command, or unmute when muted is false.
func NewMuteCmd(muted bool) *cobra.Command {
	use, short := "mute", "Show the mute overlay on windows"
	if !muted {
		use, short = "unmute", "Remove the mute overlay from windows"
	}

	return &cobra.Command{
		Use:   use + " <address>...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			for _, addr := range args {
				if err := client.SetMuted(cfg.Files.MuteState, addr, muted); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// NewMutesCmd creates the mutes command, which lists or replaces the mute set.
func NewMutesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mutes",
		Short: "List or replace the muted windows",
		Example: `# List muted windows
overlayctl mutes

# Replace the whole mute set
overlayctl mutes --set 0x1,0x2

# Unmute everything
overlayctl mutes --clear`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			path := cfg.Files.MuteState

			clear, _ := cmd.Flags().GetBool("clear")
			set, _ := cmd.Flags().GetStringSlice("set")
			switch {
			case clear:
				return client.WriteMuted(path, nil)
			case cmd.Flags().Changed("set"):
				return client.WriteMuted(path, set)
			}

			muted, err := client.ReadMuted(path)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if cli.GetOptions(cmd).JSONOutput {
				if muted == nil {
					muted = []string{}
				}
				return json.NewEncoder(out).Encode(muted)
			}
			for _, addr := range muted {
				fmt.Fprintln(out, addr)
			}
			return nil
		},
	}

	cmd.Flags().StringSlice("set", nil, "Replace the mute set with these addresses (comma-separated)")
	cmd.Flags().Bool("clear", false, "Unmute every window")
	return cmd
}
