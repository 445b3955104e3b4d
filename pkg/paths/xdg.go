// Package paths provides XDG-compliant path resolution for the overlay engine.
//
// Resolution order:
// 1. OVERLAY_HOME (portable root) → $OVERLAY_HOME/{config,state,run}
// 2. XDG env vars → $XDG_*_HOME/overlay
// 3. Platform defaults → ~/.config/overlay, ~/.local/state/overlay
package paths

import (
	"os"
	"path/filepath"
)

const appName = "overlay"

// Default locations of the files shared with the external volume tooling.
const (
	DefaultMuteStateFile = "/tmp/volume-mute-state"
	DefaultCommandFile   = "/tmp/superglue-overlay-cmd"
)

func getConfigHome() string {
	if home := os.Getenv("OVERLAY_HOME"); home != "" {
		return filepath.Join(home, "config")
	}
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return xdgConfigHome
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".config")
	}
	return ""
}

func getStateHome() string {
	if home := os.Getenv("OVERLAY_HOME"); home != "" {
		return filepath.Join(home, "state")
	}
	if xdgStateHome := os.Getenv("XDG_STATE_HOME"); xdgStateHome != "" {
		return xdgStateHome
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".local", "state")
	}
	return ""
}

// ConfigDir returns the overlay configuration directory.
func ConfigDir() string {
	base := getConfigHome()
	if base == "" {
		return ""
	}
	return filepath.Join(base, appName)
}

// StateDir returns the overlay state directory.
// Used for logs and the pid file.
func StateDir() string {
	base := getStateHome()
	if base == "" {
		return ""
	}
	return filepath.Join(base, appName)
}

// LogsDir returns the directory log files are written to.
func LogsDir() string {
	state := StateDir()
	if state == "" {
		return ""
	}
	return filepath.Join(state, "logs")
}

// RuntimeDir returns the directory for sockets.
// Uses XDG_RUNTIME_DIR when available, falls back to StateDir.
func RuntimeDir() string {
	if home := os.Getenv("OVERLAY_HOME"); home != "" {
		return filepath.Join(home, "run")
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, appName)
	}
	return StateDir()
}

// SocketPath returns the path to the inspection server unix socket.
func SocketPath() string {
	return filepath.Join(RuntimeDir(), "overlay.sock")
}

// PidFilePath returns the path to the host PID file.
func PidFilePath() string {
	return filepath.Join(StateDir(), "overlay.pid")
}

// IconDir returns the default icon directory, $HOME/.icons.
func IconDir() string {
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".icons")
	}
	return ".icons"
}

// ConfigFile returns the default configuration file path.
func ConfigFile() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "overlay.yml")
}

// EnsureDirs creates the overlay directories if they don't exist.
func EnsureDirs() error {
	dirs := []string{
		ConfigDir(),
		StateDir(),
		LogsDir(),
		RuntimeDir(),
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
