package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/grovetools/overlay/cli"
	"github.com/grovetools/overlay/errors"
	"github.com/grovetools/overlay/pkg/client"
	"github.com/grovetools/overlay/tui/theme"
	"github.com/spf13/cobra"
)

// NewTopCmd creates the top command, a live view of a running host.
func NewTopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "top",
		Short: "Watch overlay state on a running host",
		Long: `Watch overlay state live. Requires a host with the debug server enabled
(server.enabled: true); the view updates every time the host wakes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}

			remote := client.NewRemoteClient(cfg.Server.Socket)
			defer remote.Close()
			if !remote.IsRunning() {
				return errors.New(errors.ErrCodeLoopUnavailable, "no overlay host is serving on the socket").
					WithDetail("socket", cfg.Server.Socket)
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			updates, err := remote.StreamWebsocket(ctx)
			if err != nil {
				return err
			}

			p := tea.NewProgram(newTopModel(updates, cfg.Server.Socket), tea.WithAltScreen(), tea.WithContext(ctx))
			_, err = p.Run()
			if err == tea.ErrProgramKilled {
				return nil
			}
			return err
		},
	}
}

type updateMsg client.Update

type streamClosedMsg struct{}

type topModel struct {
	updates <-chan client.Update
	socket  string
	latest  *client.Snapshot
	seen    int
	last    time.Time
	closed  bool
}

func newTopModel(updates <-chan client.Update, socket string) topModel {
	return topModel{updates: updates, socket: socket}
}

func waitForUpdate(updates <-chan client.Update) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-updates
		if !ok {
			return streamClosedMsg{}
		}
		return updateMsg(u)
	}
}

func (m topModel) Init() tea.Cmd {
	return waitForUpdate(m.updates)
}

func (m topModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
	case updateMsg:
		snap := msg.Snapshot
		m.latest = &snap
		m.seen++
		m.last = time.Now()
		return m, waitForUpdate(m.updates)
	case streamClosedMsg:
		m.closed = true
	}
	return m, nil
}

func (m topModel) View() string {
	t := theme.DefaultTheme
	var b strings.Builder

	state := t.Success.Render("connected")
	if m.closed {
		state = t.Error.Render("disconnected")
	}
	fmt.Fprintf(&b, "%s %s %s\n\n", t.Header.Render("overlay top"), state, t.Muted.Render(m.socket))

	if m.latest == nil {
		b.WriteString(t.Muted.Render("waiting for the host..."))
		b.WriteString("\n")
	} else {
		renderSnapshot(&b, m.latest, "host")
		fmt.Fprintf(&b, "\n%s\n", t.Muted.Render(fmt.Sprintf("%d updates, last %s", m.seen, m.last.Format("15:04:05.000"))))
	}

	b.WriteString(t.Muted.Render("q to quit"))
	return b.String()
}
