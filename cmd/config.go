package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/grovetools/overlay/cli"
	"github.com/grovetools/overlay/config"
	"github.com/grovetools/overlay/errors"
	"github.com/grovetools/overlay/logging"
	"github.com/grovetools/overlay/pkg/paths"
	"github.com/grovetools/overlay/tui/theme"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const starterConfig = `# overlay configuration
version: "1.0"

timing:
  display_ms: 800
  fade_ms: 100
  poll_interval_ms: 10
  sweep_interval_ms: 1000

files:
  mute_state: /tmp/volume-mute-state
  command: /tmp/superglue-overlay-cmd

icons:
  dir: ~/.icons
  size: 128
  padding: 10
  positions:
    scroll-anchor: center

notify: false

server:
  enabled: false

logging:
  level: info
  file:
    disabled: false
`

// NewConfigCmd creates the config command group.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and create the overlay configuration",
	}

	cmd.AddCommand(newConfigShowCmd(), newConfigValidateCmd(), newConfigInitCmd(), newConfigPathCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with defaults applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if cli.GetOptions(cmd).JSONOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(cfg)
			}

			if cfg.Source != "" {
				fmt.Fprintf(out, "# Source: %s\n", cfg.Source)
			} else {
				fmt.Fprintln(out, "# Source: built-in defaults")
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = out.Write(data)
			return err
		},
	}
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Check a configuration file against the schema and value rules",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cli.GetOptions(cmd).ConfigFile
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				found, err := config.FindConfigFile(paths.ConfigDir())
				if err != nil {
					return err
				}
				path = found
			}

			if _, err := config.Load(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", theme.DefaultTheme.Success.Render("valid"), path)
			return nil
		},
	}
}

func newConfigInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter overlay.yml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("path")
			if path == "" {
				path = paths.ConfigFile()
			}
			if path == "" {
				return errors.New(errors.ErrCodeConfigInvalid, "cannot determine the config directory")
			}

			force, _ := cmd.Flags().GetBool("force")
			if _, err := os.Stat(path); err == nil && !force {
				return errors.New(errors.ErrCodeInvalidInput, "config file already exists (use --force to overwrite)").
					WithDetail("path", path)
			}

			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return err
			}
			if err := os.WriteFile(path, []byte(starterConfig), 0644); err != nil {
				return err
			}
			logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout()).Success("Wrote " + path)
			return nil
		},
	}

	cmd.Flags().String("path", "", "Where to write the file (default: the config directory)")
	cmd.Flags().Bool("force", false, "Overwrite an existing file")
	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Source != "" {
				fmt.Fprintln(cmd.OutOrStdout(), cfg.Source)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", paths.ConfigFile(), theme.DefaultTheme.Muted.Render("(not present, using defaults)"))
			return nil
		},
	}
}

// NewSchemaCmd creates the schema command.
func NewSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema for overlay.yml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := config.GenerateSchema()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

// NewPathsCmd creates the paths command.
func NewPathsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print the directories and files overlay uses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}

			entries := []struct {
				Key   string
				Value string
			}{
				{"config_dir", paths.ConfigDir()},
				{"state_dir", paths.StateDir()},
				{"logs_dir", paths.LogsDir()},
				{"runtime_dir", paths.RuntimeDir()},
				{"pid_file", paths.PidFilePath()},
				{"socket", cfg.Server.Socket},
				{"icon_dir", cfg.Icons.Dir},
				{"mute_state_file", cfg.Files.MuteState},
				{"command_file", cfg.Files.Command},
			}

			out := cmd.OutOrStdout()
			if cli.GetOptions(cmd).JSONOutput {
				m := make(map[string]string, len(entries))
				for _, e := range entries {
					m[e.Key] = e.Value
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(m)
			}
			for _, e := range entries {
				fmt.Fprintf(out, "%-16s %s\n", theme.DefaultTheme.Bold.Render(e.Key), e.Value)
			}
			return nil
		},
	}
}
