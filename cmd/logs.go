package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/overlay/cli"
	"github.com/grovetools/overlay/errors"
	"github.com/grovetools/overlay/logging"
	"github.com/grovetools/overlay/tui/theme"
	"github.com/hpcloud/tail"
	"github.com/spf13/cobra"
)

// NewLogsCmd creates the logs command.
func NewLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print or follow the overlay log file",
		Example: `# Last 50 lines
overlayctl logs -n 50

# Follow as the host writes
overlayctl logs -f`,
		Args: cobra.NoArgs,
		RunE: runLogsE,
	}

	cmd.Flags().BoolP("follow", "f", false, "Keep printing lines as they are written")
	cmd.Flags().IntP("lines", "n", 20, "Number of trailing lines to print first (0 for the whole file)")
	cmd.Flags().String("file", "", "Log file to read (default: the configured log file)")
	return cmd
}

func runLogsE(cmd *cobra.Command, args []string) error {
	if _, err := cli.LoadConfig(cmd); err != nil {
		return err
	}

	path, _ := cmd.Flags().GetString("file")
	if path == "" {
		path = logging.LogFilePath(logging.CurrentConfig())
	}
	if path == "" {
		return errors.New(errors.ErrCodeConfigInvalid, "no log file configured")
	}

	follow, _ := cmd.Flags().GetBool("follow")
	lines, _ := cmd.Flags().GetInt("lines")
	asJSON := cli.GetOptions(cmd).JSONOutput
	out := cmd.OutOrStdout()

	data, err := os.ReadFile(path)
	if err != nil && !(follow && os.IsNotExist(err)) {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to read log file").WithDetail("path", path)
	}
	for _, line := range lastLines(string(data), lines) {
		printLogLine(out, line, asJSON)
	}
	if !follow {
		return nil
	}

	t, err := tail.TailFile(path, tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: false,
		Location:  &tail.SeekInfo{Offset: int64(len(data)), Whence: io.SeekStart},
		Logger:    stdlog.New(io.Discard, "", 0),
	})
	if err != nil {
		return err
	}
	defer t.Cleanup()

	ctx := cmd.Context()
	for {
		select {
		case <-ctx.Done():
			return t.Stop()
		case line, ok := <-t.Lines:
			if !ok {
				return t.Err()
			}
			if line.Err != nil {
				continue
			}
			printLogLine(out, line.Text, asJSON)
		}
	}
}

// lastLines returns the final n non-empty lines of content, or all of them
// when n is 0 or negative.
func lastLines(content string, n int) []string {
	var lines []string
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if n > 0 && len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}

// printLogLine pretty-prints a JSON log entry, or the raw line when it is
// not JSON. In JSON mode entries pass through unchanged.
func printLogLine(w io.Writer, line string, asJSON bool) {
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		if asJSON {
			raw, _ := json.Marshal(map[string]string{"raw_line": line})
			fmt.Fprintln(w, string(raw))
			return
		}
		fmt.Fprintln(w, line)
		return
	}
	if asJSON {
		fmt.Fprintln(w, line)
		return
	}

	ts, _ := entry["time"].(string)
	level, _ := entry["level"].(string)
	msg, _ := entry["msg"].(string)
	component, _ := entry["component"].(string)

	timeStr := ts
	if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		timeStr = parsed.Format("15:04:05")
	}

	var levelStyle lipgloss.Style
	switch strings.ToLower(level) {
	case "error", "fatal", "panic":
		levelStyle = theme.DefaultTheme.Error
	case "warning":
		levelStyle = theme.DefaultTheme.Warning
	case "info":
		levelStyle = theme.DefaultTheme.Info
	default:
		levelStyle = theme.DefaultTheme.Muted
	}

	keys := make([]string, 0, len(entry))
	for k := range entry {
		switch k {
		case "time", "level", "msg", "component":
		default:
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	fields := make([]string, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, fmt.Sprintf("%s=%v", theme.DefaultTheme.Muted.Render(k), entry[k]))
	}

	fmt.Fprintf(w, "%s %s [%s] %s %s\n",
		timeStr,
		levelStyle.Render(strings.ToUpper(level)),
		theme.DefaultTheme.Accent.Render(component),
		msg,
		strings.Join(fields, " "),
	)
}
