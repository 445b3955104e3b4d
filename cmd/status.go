package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"
	"github.com/grovetools/overlay/cli"
	"github.com/grovetools/overlay/pkg/client"
	"github.com/grovetools/overlay/pkg/overlay"
	"github.com/grovetools/overlay/tui/theme"
	"github.com/spf13/cobra"
)

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [address]",
		Short: "Show the overlays each window would draw",
		Long: `Show the overlays each window would draw right now.

Queries the running host when its debug server is reachable, otherwise
reads the mute-state file directly. Without a host only persistent
overlays (mute) are known.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}

			c := client.New(cfg)
			defer c.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Second)
			defer cancel()

			snap, err := c.Snapshot(ctx)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				snap = filterSnapshot(snap, args[0])
			}

			out := cmd.OutOrStdout()
			if cli.GetOptions(cmd).JSONOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(snap)
			}

			source := "files"
			if c.IsRunning() {
				if _, remote := c.(*client.RemoteClient); remote {
					source = "host"
				}
			}
			renderSnapshot(out, snap, source)
			return nil
		},
	}
}

func filterSnapshot(snap *client.Snapshot, address string) *client.Snapshot {
	filtered := &client.Snapshot{
		Overlays:  map[string][]overlay.Descriptor{},
		Listeners: snap.Listeners,
	}
	for _, m := range snap.Muted {
		if m == address {
			filtered.Muted = append(filtered.Muted, m)
		}
	}
	if descs, ok := snap.Overlays[address]; ok {
		filtered.Overlays[address] = descs
	}
	return filtered
}

func renderSnapshot(w io.Writer, snap *client.Snapshot, source string) {
	t := theme.DefaultTheme

	fmt.Fprintf(w, "%s %s\n", t.Header.Render("Overlays"), t.Muted.Render("("+source+")"))

	addrs := make([]string, 0, len(snap.Overlays))
	for addr := range snap.Overlays {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	if len(addrs) == 0 {
		fmt.Fprintln(w, t.Muted.Render("no active overlays"))
		return
	}

	tbl := ltable.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(t.Colors.Border)).
		Headers("WINDOW", "KIND", "OPACITY", "LEVEL", "ICON").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == ltable.HeaderRow {
				return t.TableHeader.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})

	for _, addr := range addrs {
		for _, d := range snap.Overlays[addr] {
			level := ""
			if d.Kind == overlay.KindVolumeLevel {
				level = strconv.Itoa(d.Level)
			}
			tbl.Row(addr, describeKind(d), fmt.Sprintf("%.2f", d.Opacity), level, d.IconPath)
		}
	}
	fmt.Fprintln(w, tbl.Render())

	if len(snap.Muted) > 0 {
		fmt.Fprintf(w, "%s %s\n", t.Bold.Render("muted:"), strings.Join(snap.Muted, " "))
	}
	if source == "host" {
		fmt.Fprintf(w, "%s %d\n", t.Bold.Render("windows:"), snap.Listeners)
	}
}

func describeKind(d overlay.Descriptor) string {
	if d.Position != nil {
		return fmt.Sprintf("%s @%d,%d", d.Kind, d.Position.X, d.Position.Y)
	}
	return string(d.Kind)
}
