package config

import (
	"fmt"

	"github.com/grovetools/overlay/errors"
	"github.com/grovetools/overlay/pkg/overlay"
)

// Validate checks if the configuration is valid. It expects SetDefaults to
// have run.
func (c *Config) Validate() error {
	if c.Timing.DisplayMS < 0 {
		return errors.New(errors.ErrCodeConfigValidation, "timing.display_ms cannot be negative").
			WithDetail("display_ms", c.Timing.DisplayMS)
	}
	if c.Timing.FadeMS < 0 {
		return errors.New(errors.ErrCodeConfigValidation, "timing.fade_ms cannot be negative").
			WithDetail("fade_ms", c.Timing.FadeMS)
	}
	if c.Timing.PollIntervalMS <= 0 {
		return errors.New(errors.ErrCodeConfigValidation, "timing.poll_interval_ms must be positive").
			WithDetail("poll_interval_ms", c.Timing.PollIntervalMS)
	}
	if c.Timing.SweepIntervalMS != nil && *c.Timing.SweepIntervalMS < 0 {
		return errors.New(errors.ErrCodeConfigValidation, "timing.sweep_interval_ms cannot be negative").
			WithDetail("sweep_interval_ms", *c.Timing.SweepIntervalMS)
	}

	if c.Files.MuteState == c.Files.Command {
		return errors.New(errors.ErrCodeConfigValidation, "files.mute_state and files.command must differ").
			WithDetail("path", c.Files.Command)
	}

	if c.Icons.Size <= 0 {
		return errors.New(errors.ErrCodeConfigValidation, "icons.size must be positive").
			WithDetail("size", c.Icons.Size)
	}
	if c.Icons.Padding != nil && *c.Icons.Padding < 0 {
		return errors.New(errors.ErrCodeConfigValidation, "icons.padding cannot be negative").
			WithDetail("padding", *c.Icons.Padding)
	}
	for kind, pos := range c.Icons.Positions {
		if _, err := overlay.ParseKind(kind); err != nil {
			return errors.Wrap(err, errors.ErrCodeConfigValidation, fmt.Sprintf("invalid icons.positions key '%s'", kind)).
				WithDetail("kind", kind)
		}
		if !validPosition(pos) {
			return errors.New(errors.ErrCodeConfigValidation, fmt.Sprintf("unknown position '%s' for %s", pos, kind)).
				WithDetail("kind", kind).
				WithDetail("position", pos)
		}
	}

	if c.Server.Enabled && c.Server.Socket == "" {
		return errors.New(errors.ErrCodeConfigValidation, "server.socket cannot be empty when the server is enabled")
	}

	return nil
}

func validPosition(name string) bool {
	for _, p := range overlay.Positions {
		if string(p) == name {
			return true
		}
	}
	return false
}
