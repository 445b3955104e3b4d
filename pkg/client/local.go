package client

import (
	"context"
	"errors"
	"os"

	"github.com/grovetools/overlay/config"
	"github.com/grovetools/overlay/internal/daemon/store"
	"github.com/grovetools/overlay/pkg/overlay"
)

// LocalClient implements Client by reading the mute-state file directly.
// Transient overlays live only in a host's memory, so a local client only
// ever reports mute overlays.
type LocalClient struct {
	cfg *config.Config
}

// NewLocalClient creates a LocalClient for cfg. A nil cfg uses defaults.
func NewLocalClient(cfg *config.Config) *LocalClient {
	if cfg == nil {
		cfg = config.Default()
	}
	return &LocalClient{cfg: cfg}
}

func (c *LocalClient) load() *store.Store {
	st := store.New(store.WithIconSet(c.cfg.IconSet()))
	if data, err := os.ReadFile(c.cfg.Files.MuteState); err == nil {
		st.OnMuteStateChanged(string(data))
	}
	return st
}

// Overlays implements Client.
func (c *LocalClient) Overlays(ctx context.Context, address string) ([]overlay.Descriptor, error) {
	return c.load().OverlayInfo(address), nil
}

// Snapshot implements Client.
func (c *LocalClient) Snapshot(ctx context.Context) (*Snapshot, error) {
	snap := c.load().Snapshot()
	return &snap, nil
}

// Config implements Client with the locally loaded configuration.
func (c *LocalClient) Config(ctx context.Context) (*RunningConfig, error) {
	timing := c.cfg.OverlayTiming()
	return &RunningConfig{
		Display:       timing.Display,
		Fade:          timing.Fade,
		PollInterval:  c.cfg.PollInterval(),
		SweepInterval: c.cfg.SweepInterval(),
		MuteStateFile: c.cfg.Files.MuteState,
		CommandFile:   c.cfg.Files.Command,
		IconDir:       c.cfg.Icons.Dir,
		ConfigFile:    c.cfg.Source,
	}, nil
}

// Stream returns an error since streaming needs a running host.
func (c *LocalClient) Stream(ctx context.Context) (<-chan Update, error) {
	return nil, errors.New("streaming not available without a running overlay host; start overlay-preview")
}

// IsRunning returns false since this is the local fallback client.
func (c *LocalClient) IsRunning() bool {
	return false
}

// Close is a no-op for LocalClient.
func (c *LocalClient) Close() error {
	return nil
}

var _ Client = (*LocalClient)(nil)
