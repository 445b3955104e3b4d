package cmd

import (
	"fmt"
	"strconv"

	"github.com/grovetools/overlay/cli"
	"github.com/grovetools/overlay/errors"
	"github.com/grovetools/overlay/pkg/client"
	"github.com/spf13/cobra"
)

// NewVolumeCmd creates the vol-up or vol-down command.
func NewVolumeCmd(verb string) *cobra.Command {
	direction := "up"
	if verb == client.VerbVolumeDown {
		direction = "down"
	}

	return &cobra.Command{
		Use:   verb + " <address> <level>",
		Short: fmt.Sprintf("Show the volume %s overlay on a window", direction),
		Example: fmt.Sprintf(`# Volume changed to 40%% on window 0x5612ab
overlayctl %s 0x5612ab 40`, verb),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := strconv.Atoi(args[1])
			if err != nil {
				return errors.New(errors.ErrCodeInvalidInput, fmt.Sprintf("level %q is not an integer", args[1]))
			}

			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			if err := client.AppendVolume(cfg.Files.Command, verb, args[0], level); err != nil {
				return err
			}

			cli.GetLogger(cmd, "overlayctl").WithField("file", cfg.Files.Command).Debugf("%s %s %d", verb, args[0], level)
			return nil
		},
	}
}

// NewScrollCmd creates the scroll command.
func NewScrollCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scroll <address> <x> <y>",
		Short: "Show the scroll anchor overlay at a point in a window",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			x, errX := strconv.Atoi(args[1])
			y, errY := strconv.Atoi(args[2])
			if errX != nil || errY != nil {
				return errors.New(errors.ErrCodeInvalidInput, "anchor coordinates must be integers")
			}

			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			return client.AppendScroll(cfg.Files.Command, args[0], x, y)
		},
	}
}
