package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/grovetools/overlay/cli"
	"github.com/grovetools/overlay/internal/daemon/pidfile"
	"github.com/grovetools/overlay/logging"
	"github.com/grovetools/overlay/pkg/client"
	"github.com/grovetools/overlay/pkg/paths"
	"github.com/grovetools/overlay/tui/theme"
	"github.com/spf13/cobra"
)

// NewHostCmd creates the host command group for the preview host.
func NewHostCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "host",
		Short: "Check or stop the running overlay host",
	}

	cmd.AddCommand(newHostStatusCmd(), newHostStopCmd())
	return cmd
}

type hostStatus struct {
	Running bool                  `json:"running"`
	PID     int                   `json:"pid,omitempty"`
	Socket  string                `json:"socket,omitempty"`
	Server  bool                  `json:"server"`
	Config  *client.RunningConfig `json:"config,omitempty"`
}

func newHostStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether a host is running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}

			running, pid, err := pidfile.IsRunning(paths.PidFilePath())
			if err != nil {
				return fmt.Errorf("error checking status: %w", err)
			}
			status := hostStatus{Running: running, PID: pid}

			if running {
				remote := client.NewRemoteClient(cfg.Server.Socket)
				defer remote.Close()
				if remote.IsRunning() {
					status.Server = true
					status.Socket = cfg.Server.Socket
					ctx, cancel := context.WithTimeout(cmd.Context(), time.Second)
					defer cancel()
					if rc, err := remote.Config(ctx); err == nil {
						status.Config = rc
					}
				}
			}

			out := cmd.OutOrStdout()
			if cli.GetOptions(cmd).JSONOutput {
				return json.NewEncoder(out).Encode(status)
			}

			if !status.Running {
				fmt.Fprintln(out, theme.RenderStatus("warning", "Stopped"))
				return nil
			}
			fmt.Fprintln(out, theme.RenderStatus("success", "Running"))
			pretty := logging.NewPrettyLogger().WithWriter(out)
			pretty.Field("pid", status.PID)
			if status.Server {
				pretty.Field("socket", status.Socket)
			}
			if status.Config != nil {
				pretty.Field("up since", status.Config.StartedAt.Format(time.RFC3339))
				pretty.Field("command file", status.Config.CommandFile)
			}
			return nil
		},
	}
}

func newHostStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			running, pid, err := pidfile.IsRunning(paths.PidFilePath())
			if err != nil {
				return fmt.Errorf("error checking status: %w", err)
			}

			pretty := logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout())
			if !running {
				pretty.WarnPretty("Host is not running")
				return nil
			}

			process, err := os.FindProcess(pid)
			if err != nil {
				return fmt.Errorf("failed to find process %d: %w", pid, err)
			}
			if err := process.Signal(syscall.SIGTERM); err != nil {
				return fmt.Errorf("failed to send stop signal: %w", err)
			}

			pretty.Success(fmt.Sprintf("Sent SIGTERM to process %d", pid))
			return nil
		},
	}
}
