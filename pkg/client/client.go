// Package client talks to a running overlay host's debug server, falling
// back to reading the overlay files directly when no host is running.
package client

import (
	"context"
	"time"

	"github.com/grovetools/overlay/internal/daemon/store"
	"github.com/grovetools/overlay/pkg/overlay"
)

// Client reads overlay state from a host.
type Client interface {
	// Overlays returns the descriptors a window would draw right now.
	Overlays(ctx context.Context, address string) ([]overlay.Descriptor, error)

	// Snapshot returns descriptors for every known window.
	Snapshot(ctx context.Context) (*Snapshot, error)

	// Config returns the configuration the host is running with.
	Config(ctx context.Context) (*RunningConfig, error)

	// Stream delivers a snapshot on connect and after every host wake.
	// The channel closes when ctx is cancelled or the connection drops.
	Stream(ctx context.Context) (<-chan Update, error)

	// IsRunning returns true if a host is available and responding.
	IsRunning() bool

	// Close cleans up any resources used by the client.
	Close() error
}

// Snapshot is the point-in-time state of every window.
type Snapshot = store.Snapshot

// Update is one message from the host's stream.
type Update struct {
	UpdateType string   `json:"update_type"` // "initial" or "damage"
	Snapshot   Snapshot `json:"snapshot"`
}

// RunningConfig mirrors the host's /api/config answer.
type RunningConfig struct {
	Display       time.Duration `json:"display"`
	Fade          time.Duration `json:"fade"`
	PollInterval  time.Duration `json:"poll_interval"`
	SweepInterval time.Duration `json:"sweep_interval"`
	MuteStateFile string        `json:"mute_state_file"`
	CommandFile   string        `json:"command_file"`
	IconDir       string        `json:"icon_dir"`
	ConfigFile    string        `json:"config_file,omitempty"`
	StartedAt     time.Time     `json:"started_at"`
}
