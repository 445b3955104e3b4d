package preview

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/grovetools/overlay/config"
	"github.com/grovetools/overlay/internal/assets"
	"github.com/grovetools/overlay/internal/daemon/hostloop"
	"github.com/grovetools/overlay/internal/daemon/pidfile"
	"github.com/grovetools/overlay/pkg/client"
	"github.com/grovetools/overlay/pkg/overlay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "overlay-preview-test")
	if err != nil {
		panic(err)
	}
	os.Setenv("OVERLAY_HOME", dir)
	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.Files.MuteState = filepath.Join(dir, "mute")
	cfg.Files.Command = filepath.Join(dir, "cmd")
	cfg.Icons.Dir = filepath.Join(dir, "icons")
	cfg.Icons.Size = 32
	cfg.Timing.PollIntervalMS = 5
	cfg.Timing.DisplayMS = 5000
	cfg.SetDefaults()

	require.NoError(t, os.MkdirAll(cfg.Icons.Dir, 0755))
	for _, name := range []string{"up.png", "mute.png", "volume_6.png"} {
		writeIcon(t, filepath.Join(cfg.Icons.Dir, name), 64)
	}
	return cfg
}

func writeIcon(t *testing.T, path string, size int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	img.Set(0, 0, color.RGBA{R: 0xff, A: 0xff})
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestGrid(t *testing.T) {
	rects := Grid(4, 200, 200, 10)
	require.Len(t, rects, 4)
	assert.Equal(t, image.Rect(10, 10, 95, 95), rects[0])
	assert.Equal(t, image.Rect(105, 105, 190, 190), rects[3])

	rects = Grid(3, 300, 200, 0)
	require.Len(t, rects, 3)
	assert.Equal(t, 150, rects[0].Dx())

	assert.Nil(t, Grid(0, 100, 100, 0))
}

func TestWindowAddress(t *testing.T) {
	assert.Equal(t, "0x1000", WindowAddress(0))
	assert.Equal(t, "0x3000", WindowAddress(2))
}

func TestPlacementsSkipsUnknownIcons(t *testing.T) {
	w := &Window{Address: "0x1", Bounds: image.Rect(0, 0, 100, 100)}
	w.descs = []overlay.Descriptor{
		{Kind: overlay.KindMute, Opacity: 1, IconPath: "/icons/mute.png"},
		{Kind: overlay.KindVolumeUp, Opacity: 1, IconPath: "/icons/missing.png"},
	}

	size := func(path string) (image.Point, bool) {
		if path == "/icons/mute.png" {
			return image.Pt(20, 20), true
		}
		return image.Point{}, false
	}
	got := Placements([]*Window{w}, overlay.DefaultLayout(), size)
	require.Len(t, got, 1)
	assert.Equal(t, image.Rect(40, 40, 60, 60), got[0].Rect)
	assert.Equal(t, overlay.KindMute, got[0].Descriptor.Kind)
}

func TestHostDrawsCommandedOverlays(t *testing.T) {
	cfg := testConfig(t)
	uploader := assets.NewMemoryUploader()
	pidPath := filepath.Join(t.TempDir(), "overlay.pid")

	h, err := New(cfg, uploader, Options{Windows: 2, Width: 400, Height: 200, PidFile: pidPath})
	require.NoError(t, err)

	running, _, err := pidfile.IsRunning(pidPath)
	require.NoError(t, err)
	assert.True(t, running)

	loop := hostloop.New(nil)
	require.NoError(t, h.Start(context.Background(), loop))

	target := h.Windows()[1]
	require.NoError(t, client.AppendVolume(cfg.Files.Command, client.VerbVolumeUp, target.Address, 50))

	require.Eventually(t, func() bool {
		loop.DispatchPending()
		return len(target.Overlays()) == 2
	}, 2*time.Second, 5*time.Millisecond)
	assert.Empty(t, h.Windows()[0].Overlays())

	frame := h.Frame()
	require.Len(t, frame, 2)
	for _, p := range frame {
		assert.Same(t, target, p.Window)
		assert.Equal(t, image.Pt(32, 32), p.Rect.Size())
		assert.True(t, p.Rect.In(target.Bounds), "%v outside %v", p.Rect, target.Bounds)
	}
	assert.Equal(t, 2, h.Cache().Len())

	h.Stop()
	h.Stop()

	_, _, live := uploader.Stats()
	assert.Zero(t, live)
	_, statErr := os.Stat(pidPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestHostRefusesSecondInstance(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "overlay.pid")
	first, err := New(testConfig(t), assets.NewMemoryUploader(), Options{Windows: 1, Width: 100, Height: 100, PidFile: pidPath})
	require.NoError(t, err)
	defer first.Stop()

	// Same process, so fake a live foreign owner.
	require.NoError(t, os.WriteFile(pidPath, []byte("1"), 0644))
	_, err = New(testConfig(t), assets.NewMemoryUploader(), Options{Windows: 1, Width: 100, Height: 100, PidFile: pidPath})
	require.Error(t, err)
}

func TestHostServesDebugAPI(t *testing.T) {
	cfg := testConfig(t)
	sockDir, err := os.MkdirTemp("", "ovp")
	require.NoError(t, err)
	defer os.RemoveAll(sockDir)
	cfg.Server.Enabled = true
	cfg.Server.Socket = filepath.Join(sockDir, "s.sock")

	h, err := New(cfg, assets.NewMemoryUploader(), Options{Windows: 1, Width: 100, Height: 100})
	require.NoError(t, err)
	defer h.Stop()

	loop := hostloop.New(nil)
	require.NoError(t, h.Start(context.Background(), loop))

	require.NoError(t, os.WriteFile(cfg.Files.MuteState, []byte(h.Windows()[0].Address+"\n"), 0644))

	remote := client.NewRemoteClient(cfg.Server.Socket)
	defer remote.Close()
	require.True(t, remote.IsRunning())

	require.Eventually(t, func() bool {
		loop.DispatchPending()
		descs, err := remote.Overlays(context.Background(), h.Windows()[0].Address)
		return err == nil && len(descs) == 1 && descs[0].Kind == overlay.KindMute
	}, 2*time.Second, 10*time.Millisecond)
}
