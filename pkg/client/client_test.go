package client

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/grovetools/overlay/config"
	"github.com/grovetools/overlay/errors"
	"github.com/grovetools/overlay/internal/daemon/engine"
	"github.com/grovetools/overlay/internal/daemon/server"
	"github.com/grovetools/overlay/pkg/overlay"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "overlay-client-test")
	if err != nil {
		panic(err)
	}
	os.Setenv("OVERLAY_HOME", dir)
	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

func TestAppendVolume(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cmd")

	require.NoError(t, AppendVolume(path, VerbVolumeUp, "0xabc", 40))
	require.NoError(t, AppendVolume(path, VerbVolumeDown, "0xabc", 35))
	require.NoError(t, AppendScroll(path, "0xabc", 12, -3))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "vol-up 0xabc 40\nvol-down 0xabc 35\nscroll 0xabc 12 -3\n", string(data))
}

func TestAppendRejectsBadInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cmd")

	tests := []struct {
		name string
		err  error
	}{
		{"unknown verb", AppendVolume(path, "vol-sideways", "0x1", 10)},
		{"level too high", AppendVolume(path, VerbVolumeUp, "0x1", 101)},
		{"level negative", AppendVolume(path, VerbVolumeUp, "0x1", -1)},
		{"empty address", AppendVolume(path, VerbVolumeUp, "", 10)},
		{"address with space", AppendScroll(path, "0x1 0x2", 0, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, tt.err)
			assert.True(t, errors.Is(tt.err, errors.ErrCodeInvalidInput))
		})
	}

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "nothing is written for rejected input")
}

func TestSetMuted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mute")

	muted, err := ReadMuted(path)
	require.NoError(t, err)
	assert.Empty(t, muted)

	require.NoError(t, SetMuted(path, "0x2", true))
	require.NoError(t, SetMuted(path, "0x1", true))
	require.NoError(t, SetMuted(path, "0x1", true))

	muted, err = ReadMuted(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"0x1", "0x2"}, muted)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "0x1\n0x2\n", string(data))

	require.NoError(t, SetMuted(path, "0x2", false))
	require.NoError(t, SetMuted(path, "0x9", false))
	muted, err = ReadMuted(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"0x1"}, muted)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files are left behind")
}

func testConfig(t *testing.T, socket string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.Files.MuteState = filepath.Join(dir, "mute")
	cfg.Files.Command = filepath.Join(dir, "cmd")
	cfg.Icons.Dir = "/icons"
	cfg.Server.Socket = socket
	cfg.SetDefaults()
	return cfg
}

func TestLocalClient(t *testing.T) {
	cfg := testConfig(t, filepath.Join(t.TempDir(), "none.sock"))
	require.NoError(t, SetMuted(cfg.Files.MuteState, "0x5", true))

	c := New(cfg)
	defer c.Close()
	_, isLocal := c.(*LocalClient)
	require.True(t, isLocal, "no socket means local fallback")
	assert.False(t, c.IsRunning())

	ctx := context.Background()
	descs, err := c.Overlays(ctx, "0x5")
	require.NoError(t, err)
	require.Len(t, descs, 1)
	assert.Equal(t, overlay.KindMute, descs[0].Kind)
	assert.Equal(t, "/icons/mute.png", descs[0].IconPath)

	snap, err := c.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"0x5"}, snap.Muted)

	rc, err := c.Config(ctx)
	require.NoError(t, err)
	assert.Equal(t, cfg.Files.Command, rc.CommandFile)

	_, err = c.Stream(ctx)
	assert.Error(t, err)
}

func TestRemoteClient(t *testing.T) {
	dir, err := os.MkdirTemp("", "ovc")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	socket := filepath.Join(dir, "overlay.sock")

	cfg := testConfig(t, socket)
	eng, err := engine.New(cfg)
	require.NoError(t, err)
	defer eng.Stop()

	srv := server.New(logrus.NewEntry(logrus.New()))
	srv.SetEngine(eng)
	go srv.ListenAndServe(socket)
	defer srv.Shutdown(context.Background())

	require.Eventually(t, func() bool {
		_, err := os.Stat(socket)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	var c Client
	require.Eventually(t, func() bool {
		c = New(cfg)
		return c.IsRunning()
	}, 2*time.Second, 10*time.Millisecond)
	defer c.Close()
	remote, ok := c.(*RemoteClient)
	require.True(t, ok)

	eng.Store().OnOverlayCommand("vol-up 0x1 70")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	descs, err := c.Overlays(ctx, "0x1")
	require.NoError(t, err)
	require.Len(t, descs, 2)
	assert.Equal(t, overlay.KindVolumeUp, descs[1].Kind)

	snap, err := c.Snapshot(ctx)
	require.NoError(t, err)
	assert.Contains(t, snap.Overlays, "0x1")

	rc, err := c.Config(ctx)
	require.NoError(t, err)
	assert.Equal(t, 800*time.Millisecond, rc.Display)

	sse, err := c.Stream(ctx)
	require.NoError(t, err)
	first := <-sse
	assert.Equal(t, "initial", first.UpdateType)

	ws, err := remote.StreamWebsocket(ctx)
	require.NoError(t, err)
	first = <-ws
	assert.Equal(t, "initial", first.UpdateType)

	eng.Store().OnMuteStateChanged("0x1")
	eng.Store().NotifyListeners()

	for _, ch := range []<-chan Update{sse, ws} {
		select {
		case u := <-ch:
			assert.Equal(t, "damage", u.UpdateType)
			assert.Equal(t, []string{"0x1"}, u.Snapshot.Muted)
		case <-time.After(2 * time.Second):
			t.Fatal("no update after damage")
		}
	}
}

func TestWriteMuted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mute")

	require.NoError(t, WriteMuted(path, []string{"0xb", "0xa", "0xb"}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "0xa\n0xb\n", string(data))

	require.NoError(t, WriteMuted(path, nil))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data)

	err = WriteMuted(path, []string{"bad address"})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}
