package config

import (
	"fmt"
	"time"

	"github.com/grovetools/overlay/pkg/overlay"
	"github.com/grovetools/overlay/pkg/paths"
	"github.com/mitchellh/mapstructure"
)

// Defaults mirror the timings the overlay was tuned with.
const (
	DefaultDisplayMS       = 800
	DefaultFadeMS          = 100
	DefaultPollIntervalMS  = 10
	DefaultSweepIntervalMS = 1000
	DefaultIconSize        = 128
	DefaultIconPadding     = 10
	DefaultDebounceMS      = 100
)

// TimingConfig controls overlay lifetimes and the monitor cadence.
type TimingConfig struct {
	DisplayMS      int `yaml:"display_ms,omitempty" toml:"display_ms,omitempty" json:"display_ms,omitempty" jsonschema:"description=How long a transient overlay stays fully opaque (ms),minimum=0"`
	FadeMS         int `yaml:"fade_ms,omitempty" toml:"fade_ms,omitempty" json:"fade_ms,omitempty" jsonschema:"description=Length of the linear fade-out after the display period (ms),minimum=0"`
	PollIntervalMS int `yaml:"poll_interval_ms,omitempty" toml:"poll_interval_ms,omitempty" json:"poll_interval_ms,omitempty" jsonschema:"description=File monitor polling interval (ms),minimum=0"`
	// SweepIntervalMS drops expired events periodically. 0 disables the sweep.
	SweepIntervalMS *int `yaml:"sweep_interval_ms,omitempty" toml:"sweep_interval_ms,omitempty" json:"sweep_interval_ms,omitempty" jsonschema:"description=Interval for dropping expired overlay events (ms); 0 disables,minimum=0"`
}

// FilesConfig names the files shared with the external volume tooling.
type FilesConfig struct {
	MuteState string `yaml:"mute_state,omitempty" toml:"mute_state,omitempty" json:"mute_state,omitempty" jsonschema:"description=File holding the whitespace-separated list of muted window addresses"`
	Command   string `yaml:"command,omitempty" toml:"command,omitempty" json:"command,omitempty" jsonschema:"description=Append-only command channel file; truncated after each processed batch"`
}

// IconsConfig controls icon lookup and placement.
type IconsConfig struct {
	Dir       string            `yaml:"dir,omitempty" toml:"dir,omitempty" json:"dir,omitempty" jsonschema:"description=Directory holding up.png down.png mute.png anchor.png and volume_N.png"`
	Size      int               `yaml:"size,omitempty" toml:"size,omitempty" json:"size,omitempty" jsonschema:"description=Icon edge length in pixels,minimum=0"`
	Padding   *int              `yaml:"padding,omitempty" toml:"padding,omitempty" json:"padding,omitempty" jsonschema:"description=Distance from the window edges in pixels,minimum=0"`
	Positions map[string]string `yaml:"positions,omitempty" toml:"positions,omitempty" json:"positions,omitempty" jsonschema:"description=Per-kind placement (center top-left top-right bottom-left bottom-right top-center bottom-center)"`
}

// ServerConfig controls the local inspection server.
type ServerConfig struct {
	Enabled bool   `yaml:"enabled,omitempty" toml:"enabled,omitempty" json:"enabled,omitempty" jsonschema:"description=Serve overlay state over a unix socket"`
	Socket  string `yaml:"socket,omitempty" toml:"socket,omitempty" json:"socket,omitempty" jsonschema:"description=Unix socket path (default: <runtime dir>/overlay.sock)"`
}

// Config represents the overlay.yml configuration
type Config struct {
	Version string       `yaml:"version,omitempty" toml:"version,omitempty" json:"version,omitempty" jsonschema:"description=Configuration version (e.g. 1.0)"`
	Timing  TimingConfig `yaml:"timing,omitempty" toml:"timing,omitempty" json:"timing,omitempty" jsonschema:"description=Overlay timing"`
	Files   FilesConfig  `yaml:"files,omitempty" toml:"files,omitempty" json:"files,omitempty" jsonschema:"description=Input files"`
	Icons   IconsConfig  `yaml:"icons,omitempty" toml:"icons,omitempty" json:"icons,omitempty" jsonschema:"description=Icon lookup and placement"`
	// Notify adds filesystem notifications on top of polling for lower latency.
	Notify bool         `yaml:"notify,omitempty" toml:"notify,omitempty" json:"notify,omitempty" jsonschema:"description=Use filesystem notifications in addition to polling"`
	Server ServerConfig `yaml:"server,omitempty" toml:"server,omitempty" json:"server,omitempty" jsonschema:"description=Local inspection server"`

	// Extensions captures all other top-level keys for extensibility.
	Extensions map[string]interface{} `yaml:",inline" toml:"-" json:"-" jsonschema:"-"`

	// Source is the file the configuration was loaded from, empty for defaults.
	Source string `yaml:"-" toml:"-" json:"-" jsonschema:"-"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults sets default values for configuration
func (c *Config) SetDefaults() {
	if c.Version == "" {
		c.Version = "1.0"
	}
	if c.Timing.DisplayMS == 0 {
		c.Timing.DisplayMS = DefaultDisplayMS
	}
	if c.Timing.FadeMS == 0 {
		c.Timing.FadeMS = DefaultFadeMS
	}
	if c.Timing.PollIntervalMS == 0 {
		c.Timing.PollIntervalMS = DefaultPollIntervalMS
	}
	if c.Timing.SweepIntervalMS == nil {
		sweep := DefaultSweepIntervalMS
		c.Timing.SweepIntervalMS = &sweep
	}
	if c.Files.MuteState == "" {
		c.Files.MuteState = paths.DefaultMuteStateFile
	}
	if c.Files.Command == "" {
		c.Files.Command = paths.DefaultCommandFile
	}
	if c.Icons.Dir == "" {
		c.Icons.Dir = paths.IconDir()
	} else {
		c.Icons.Dir = expandPath(c.Icons.Dir)
	}
	if c.Icons.Size == 0 {
		c.Icons.Size = DefaultIconSize
	}
	if c.Icons.Padding == nil {
		pad := DefaultIconPadding
		c.Icons.Padding = &pad
	}
	if c.Server.Socket == "" {
		c.Server.Socket = paths.SocketPath()
	}
}

// OverlayTiming returns the overlay display and fade durations.
func (c *Config) OverlayTiming() overlay.Timing {
	return overlay.Timing{
		Display: time.Duration(c.Timing.DisplayMS) * time.Millisecond,
		Fade:    time.Duration(c.Timing.FadeMS) * time.Millisecond,
	}
}

// PollInterval returns the file monitor polling interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Timing.PollIntervalMS) * time.Millisecond
}

// SweepInterval returns the expired-event sweep interval, zero when disabled.
func (c *Config) SweepInterval() time.Duration {
	if c.Timing.SweepIntervalMS == nil {
		return DefaultSweepIntervalMS * time.Millisecond
	}
	return time.Duration(*c.Timing.SweepIntervalMS) * time.Millisecond
}

// IconSet returns the icon lookup rooted at the configured directory.
func (c *Config) IconSet() overlay.IconSet {
	return overlay.IconSet{Dir: c.Icons.Dir}
}

// Layout returns the per-kind placement. Validate rejects unknown names, so
// parsing here cannot fail for a validated config.
func (c *Config) Layout() overlay.Layout {
	layout := overlay.DefaultLayout()
	if c.Icons.Padding != nil {
		layout.Padding = *c.Icons.Padding
	}
	if len(c.Icons.Positions) > 0 {
		layout.Positions = make(map[overlay.Kind]overlay.Position, len(c.Icons.Positions))
		for name, pos := range c.Icons.Positions {
			kind, err := overlay.ParseKind(name)
			if err != nil {
				continue
			}
			layout.Positions[kind] = overlay.ParsePosition(pos)
		}
	}
	return layout
}

// UnmarshalExtension decodes a specific extension's configuration from the
// loaded overlay.yml into the provided target struct. The target must be a pointer.
//
// Example:
//
//	var logCfg logging.Config
//	err := cfg.UnmarshalExtension("logging", &logCfg)
func (c *Config) UnmarshalExtension(key string, target interface{}) error {
	extensionConfig, ok := c.Extensions[key]
	if !ok {
		// A missing key leaves the target zero-valued.
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "yaml",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(extensionConfig); err != nil {
		return fmt.Errorf("failed to decode extension config for '%s': %w", key, err)
	}

	return nil
}
