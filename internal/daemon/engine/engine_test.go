package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/grovetools/overlay/config"
	"github.com/grovetools/overlay/errors"
	"github.com/grovetools/overlay/internal/daemon/hostloop"
	"github.com/grovetools/overlay/pkg/overlay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "overlay-engine-test")
	if err != nil {
		panic(err)
	}
	os.Setenv("OVERLAY_HOME", dir)
	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

type damageCounter struct {
	n atomic.Int32
}

func (d *damageCounter) Damage() { d.n.Add(1) }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.Files.MuteState = filepath.Join(dir, "mute")
	cfg.Files.Command = filepath.Join(dir, "cmd")
	cfg.Icons.Dir = filepath.Join(dir, "icons")
	cfg.Timing.PollIntervalMS = 5
	cfg.SetDefaults()
	return cfg
}

func appendLine(t *testing.T, path, line string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	require.NoError(t, err)
	defer f.Close()
	_, err = fmt.Fprintln(f, line)
	require.NoError(t, err)
}

func TestEngineCommandDamagesListeners(t *testing.T) {
	cfg := testConfig(t)
	e, err := New(cfg)
	require.NoError(t, err)
	defer e.Stop()

	loop := hostloop.New(nil)
	require.NoError(t, e.Start(context.Background(), loop))

	listener := &damageCounter{}
	e.Store().RegisterListener(listener)

	appendLine(t, cfg.Files.Command, "vol-up 0xabc 50")

	require.Eventually(t, func() bool {
		loop.DispatchPending()
		return listener.n.Load() > 0
	}, 2*time.Second, 5*time.Millisecond)

	descs := e.Store().OverlayInfo("0xabc")
	require.Len(t, descs, 2)
	assert.Equal(t, overlay.KindVolumeLevel, descs[0].Kind)
	assert.Equal(t, filepath.Join(cfg.Icons.Dir, "volume_6.png"), descs[0].IconPath)

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(cfg.Files.Command)
		return err == nil && len(data) == 0
	}, time.Second, 5*time.Millisecond, "command file is truncated after processing")
}

func TestEngineMuteState(t *testing.T) {
	cfg := testConfig(t)
	e, err := New(cfg)
	require.NoError(t, err)
	defer e.Stop()

	loop := hostloop.New(nil)
	require.NoError(t, e.Start(context.Background(), loop))
	listener := &damageCounter{}
	e.Store().RegisterListener(listener)

	require.NoError(t, os.WriteFile(cfg.Files.MuteState, []byte("0x1\n0x2\n"), 0644))

	require.Eventually(t, func() bool {
		loop.DispatchPending()
		return listener.n.Load() > 0 && len(e.Store().Muted()) == 2
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []overlay.Kind{overlay.KindMute}, kindsOf(e.Store().OverlayInfo("0x2")))
}

func kindsOf(descs []overlay.Descriptor) []overlay.Kind {
	out := make([]overlay.Kind, 0, len(descs))
	for _, d := range descs {
		out = append(out, d.Kind)
	}
	return out
}

func TestEngineKeepsRunningWithoutLoop(t *testing.T) {
	cfg := testConfig(t)
	e, err := New(cfg)
	require.NoError(t, err)
	defer e.Stop()

	err = e.Start(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeLoopUnavailable))

	appendLine(t, cfg.Files.Command, "vol-down 0x9 10")
	require.Eventually(t, func() bool {
		return len(e.Store().OverlayInfo("0x9")) == 2
	}, 2*time.Second, 5*time.Millisecond, "polling continues without a host loop")
}

func TestEngineSignalsWhileFading(t *testing.T) {
	cfg := testConfig(t)
	cfg.Timing.DisplayMS = 10
	cfg.Timing.FadeMS = 300
	e, err := New(cfg)
	require.NoError(t, err)
	defer e.Stop()

	loop := hostloop.New(nil)
	require.NoError(t, e.Start(context.Background(), loop))
	listener := &damageCounter{}
	e.Store().RegisterListener(listener)

	appendLine(t, cfg.Files.Command, "vol-up 0x1 10")

	// The command itself yields one wake; fading must yield more without
	// any further input.
	require.Eventually(t, func() bool {
		loop.DispatchPending()
		return listener.n.Load() >= 3
	}, 2*time.Second, 5*time.Millisecond)
}

func TestEngineSweepDropsUnqueriedEvents(t *testing.T) {
	cfg := testConfig(t)
	cfg.Timing.DisplayMS = 5
	cfg.Timing.FadeMS = 5
	sweep := 10
	cfg.Timing.SweepIntervalMS = &sweep

	e, err := New(cfg)
	require.NoError(t, err)
	defer e.Stop()
	require.NoError(t, e.Start(context.Background(), hostloop.New(nil)))

	appendLine(t, cfg.Files.Command, "vol-up 0x1 10")
	require.Eventually(t, func() bool {
		data, _ := os.ReadFile(cfg.Files.Command)
		return len(data) == 0
	}, 2*time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		return len(e.Store().Addresses()) == 0
	}, 2*time.Second, 5*time.Millisecond)
}

func TestEngineReload(t *testing.T) {
	cfg := testConfig(t)
	e, err := New(cfg)
	require.NoError(t, err)
	defer e.Stop()

	next := testConfig(t)
	next.Files = cfg.Files
	next.Timing.DisplayMS = 1234
	next.Icons.Dir = "/elsewhere"
	e.Reload(next)

	assert.Equal(t, 1234*time.Millisecond, e.Store().Timing().Display)
	assert.Same(t, next, e.Config())

	e.Store().OnMuteStateChanged("0x1")
	descs := e.Store().OverlayInfo("0x1")
	require.Len(t, descs, 1)
	assert.Equal(t, filepath.Join("/elsewhere", "mute.png"), descs[0].IconPath)
}

func TestEngineConfigHotReload(t *testing.T) {
	cfg := testConfig(t)
	path := filepath.Join(t.TempDir(), "overlay.yml")
	write := func(display int) {
		content := fmt.Sprintf("timing:\n  display_ms: %d\nfiles:\n  mute_state: %s\n  command: %s\n",
			display, cfg.Files.MuteState, cfg.Files.Command)
		tmp := path + ".tmp"
		require.NoError(t, os.WriteFile(tmp, []byte(content), 0644))
		require.NoError(t, os.Rename(tmp, path))
	}
	write(800)

	e, err := New(cfg, WithConfigPath(path))
	require.NoError(t, err)
	defer e.Stop()
	require.NoError(t, e.Start(context.Background(), hostloop.New(nil)))

	write(250)
	require.Eventually(t, func() bool {
		return e.Store().Timing().Display == 250*time.Millisecond
	}, 3*time.Second, 10*time.Millisecond)
}

func TestEngineStopIsIdempotent(t *testing.T) {
	e, err := New(testConfig(t))
	require.NoError(t, err)
	require.NoError(t, e.Start(context.Background(), hostloop.New(nil)))

	e.Stop()
	e.Stop()

	// Signals after shutdown are dropped.
	e.Notifier().Signal()
}
