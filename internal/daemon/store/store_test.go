package store

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/grovetools/overlay/pkg/overlay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type countingSignaler struct {
	n atomic.Int32
}

func (s *countingSignaler) Signal() { s.n.Add(1) }

type truncRecorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *truncRecorder) truncate(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
	return nil
}

func (r *truncRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.paths)
}

type harness struct {
	store *Store
	clock *fakeClock
	sig   *countingSignaler
	trunc *truncRecorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		clock: newFakeClock(),
		sig:   &countingSignaler{},
		trunc: &truncRecorder{},
	}
	h.store = New(
		WithClock(h.clock.Now),
		WithSignaler(h.sig),
		WithCommandFile("/tmp/overlay-cmd"),
		WithIconSet(overlay.IconSet{Dir: "/icons"}),
		WithTruncate(h.trunc.truncate),
	)
	return h
}

func kinds(descs []overlay.Descriptor) []overlay.Kind {
	out := make([]overlay.Kind, 0, len(descs))
	for _, d := range descs {
		out = append(out, d.Kind)
	}
	return out
}

func TestVolumeCommandLifecycle(t *testing.T) {
	h := newHarness(t)

	h.store.OnOverlayCommand("vol-up 0xabc 50\n")
	assert.Equal(t, int32(1), h.sig.n.Load())
	assert.Equal(t, []string{"/tmp/overlay-cmd"}, h.trunc.paths)

	descs := h.store.OverlayInfo("0xabc")
	require.Len(t, descs, 2)
	assert.Equal(t, []overlay.Kind{overlay.KindVolumeLevel, overlay.KindVolumeUp}, kinds(descs))
	assert.Equal(t, 1.0, descs[0].Opacity)
	assert.Equal(t, 50, descs[0].Level)
	assert.Equal(t, filepath.Join("/icons", "volume_6.png"), descs[0].IconPath)
	assert.Equal(t, filepath.Join("/icons", "up.png"), descs[1].IconPath)

	h.clock.Advance(799 * time.Millisecond)
	for _, d := range h.store.OverlayInfo("0xabc") {
		assert.Equal(t, 1.0, d.Opacity)
	}

	h.clock.Advance(51 * time.Millisecond) // 850ms
	for _, d := range h.store.OverlayInfo("0xabc") {
		assert.InDelta(t, 0.5, d.Opacity, 1e-9)
	}

	h.clock.Advance(50 * time.Millisecond) // 900ms
	assert.Empty(t, h.store.OverlayInfo("0xabc"))
	assert.Empty(t, h.store.Addresses(), "expired entry should be deleted")
}

func TestVolumeDownUsesDownArrow(t *testing.T) {
	h := newHarness(t)

	h.store.OnOverlayCommand("vol-down 0x1 0")
	descs := h.store.OverlayInfo("0x1")
	assert.Equal(t, []overlay.Kind{overlay.KindVolumeLevel, overlay.KindVolumeDown}, kinds(descs))
	assert.Equal(t, filepath.Join("/icons", "volume_0.png"), descs[0].IconPath)
	assert.Equal(t, filepath.Join("/icons", "down.png"), descs[1].IconPath)
}

func TestNewCommandSupersedesPrevious(t *testing.T) {
	h := newHarness(t)

	h.store.OnOverlayCommand("vol-up 0x1 10")
	h.clock.Advance(850 * time.Millisecond)
	h.store.OnOverlayCommand("vol-down 0x1 90")

	descs := h.store.OverlayInfo("0x1")
	require.Len(t, descs, 2)
	assert.Equal(t, overlay.KindVolumeDown, descs[1].Kind)
	assert.Equal(t, 90, descs[0].Level)
	assert.Equal(t, 1.0, descs[0].Opacity)
}

func TestMuteIsPersistentAndLast(t *testing.T) {
	h := newHarness(t)

	h.store.OnMuteStateChanged("0x1\n")
	h.store.OnOverlayCommand("vol-up 0x1 70")

	descs := h.store.OverlayInfo("0x1")
	assert.Equal(t, []overlay.Kind{overlay.KindVolumeLevel, overlay.KindVolumeUp, overlay.KindMute}, kinds(descs))
	assert.Equal(t, filepath.Join("/icons", "mute.png"), descs[2].IconPath)

	h.clock.Advance(time.Hour)
	descs = h.store.OverlayInfo("0x1")
	require.Len(t, descs, 1)
	assert.Equal(t, overlay.KindMute, descs[0].Kind)
	assert.Equal(t, 1.0, descs[0].Opacity)
}

func TestMuteStateReplacedWholesale(t *testing.T) {
	h := newHarness(t)

	h.store.OnMuteStateChanged("  0x1  \n\n0x2\n")
	assert.Equal(t, []string{"0x1", "0x2"}, h.store.Muted())

	h.store.OnMuteStateChanged("0x3")
	assert.Equal(t, []string{"0x3"}, h.store.Muted())
	assert.Empty(t, h.store.OverlayInfo("0x1"))

	h.store.OnMuteStateChanged("")
	assert.Empty(t, h.store.Muted())

	// Every mute update wakes the host, changed or not.
	assert.Equal(t, int32(3), h.sig.n.Load())
}

func TestUnknownVerbHasNoSideEffects(t *testing.T) {
	h := newHarness(t)

	h.store.OnOverlayCommand("vol-up 0x1 40")
	before := h.store.OverlayInfo("0x1")
	signals := h.sig.n.Load()

	h.store.OnOverlayCommand("vol-sideways 0x1 40\n")

	assert.Equal(t, before, h.store.OverlayInfo("0x1"))
	assert.Equal(t, signals, h.sig.n.Load(), "no accepted line, no wake")
	assert.Equal(t, 2, h.trunc.count(), "the batch is still consumed")
}

func TestMalformedLinesAreSkipped(t *testing.T) {
	h := newHarness(t)

	h.store.OnOverlayCommand(
		"vol-up 0x1\n" +
			"vol-up 0x2 loud\n" +
			"vol-up 0x3 101\n" +
			"vol-down 0x4 -1\n" +
			"vol-up 0x5 30 extra\n" +
			"scroll 0x6 1\n" +
			"vol-down 0x7 20\n")

	assert.Equal(t, []string{"0x7"}, h.store.Addresses())
	assert.Equal(t, int32(1), h.sig.n.Load())
}

func TestEmptyContentIsNoop(t *testing.T) {
	h := newHarness(t)

	h.store.OnOverlayCommand("")
	assert.Zero(t, h.trunc.count())
	assert.Zero(t, h.sig.n.Load())
}

func TestBatchAppliesEveryLine(t *testing.T) {
	h := newHarness(t)

	h.store.OnOverlayCommand("vol-up 0x1 10\nvol-down 0x2 20\n")
	assert.Equal(t, []string{"0x1", "0x2"}, h.store.Addresses())
	assert.Equal(t, int32(1), h.sig.n.Load(), "one wake per batch")
	assert.Equal(t, 1, h.trunc.count())
}

func TestScrollAnchor(t *testing.T) {
	h := newHarness(t)

	h.store.OnOverlayCommand("vol-up 0x1 60")
	h.store.OnOverlayCommand("scroll 0x1 10 20")
	h.store.OnOverlayCommand("scroll 0x1 30 40")
	h.store.OnMuteStateChanged("0x1")

	descs := h.store.OverlayInfo("0x1")
	assert.Equal(t, []overlay.Kind{
		overlay.KindScrollAnchor,
		overlay.KindVolumeLevel,
		overlay.KindVolumeUp,
		overlay.KindMute,
	}, kinds(descs))
	require.NotNil(t, descs[0].Position)
	assert.Equal(t, image.Pt(30, 40), *descs[0].Position)
	assert.Equal(t, filepath.Join("/icons", "anchor.png"), descs[0].IconPath)

	// A volume command clears the anchor along with everything else.
	h.store.OnOverlayCommand("vol-down 0x1 50")
	descs = h.store.OverlayInfo("0x1")
	assert.Equal(t, []overlay.Kind{overlay.KindVolumeLevel, overlay.KindVolumeDown, overlay.KindMute}, kinds(descs))
}

func TestDescriptorPositionIsACopy(t *testing.T) {
	h := newHarness(t)

	h.store.OnOverlayCommand("scroll 0x1 5 5")
	descs := h.store.OverlayInfo("0x1")
	require.Len(t, descs, 1)
	descs[0].Position.X = 999

	again := h.store.OverlayInfo("0x1")
	assert.Equal(t, 5, again[0].Position.X)
}

func TestOpacityNeverIncreases(t *testing.T) {
	h := newHarness(t)
	h.store.OnOverlayCommand("vol-up 0x1 50")

	prev := 1.0
	for i := 0; i < 100; i++ {
		h.clock.Advance(10 * time.Millisecond)
		descs := h.store.OverlayInfo("0x1")
		if len(descs) == 0 {
			prev = 0
			continue
		}
		require.LessOrEqual(t, descs[0].Opacity, prev)
		prev = descs[0].Opacity
	}
	assert.Zero(t, prev)
}

func TestSweep(t *testing.T) {
	h := newHarness(t)

	h.store.OnOverlayCommand("vol-up 0x1 10\nvol-up 0x2 10\n")
	h.clock.Advance(500 * time.Millisecond)
	h.store.OnOverlayCommand("scroll 0x3 1 1")
	signals := h.sig.n.Load()

	assert.Zero(t, h.store.Sweep())

	h.clock.Advance(450 * time.Millisecond)
	assert.Equal(t, 4, h.store.Sweep())
	assert.Equal(t, []string{"0x3"}, h.store.Addresses())
	assert.Equal(t, signals, h.sig.n.Load(), "sweep never wakes the host")
}

func TestAnimating(t *testing.T) {
	h := newHarness(t)
	assert.False(t, h.store.Animating())

	h.store.OnOverlayCommand("vol-up 0x1 10")
	assert.False(t, h.store.Animating(), "fully opaque needs no redraw")

	h.clock.Advance(850 * time.Millisecond)
	assert.True(t, h.store.Animating())

	h.clock.Advance(100 * time.Millisecond)
	assert.True(t, h.store.Animating(), "the removal frame is still pending")

	h.clock.Advance(time.Second)
	assert.False(t, h.store.Animating())
}

func TestSetTiming(t *testing.T) {
	h := newHarness(t)
	h.store.SetTiming(overlay.Timing{Display: 100 * time.Millisecond, Fade: 100 * time.Millisecond})
	h.store.OnOverlayCommand("vol-up 0x1 10")

	h.clock.Advance(150 * time.Millisecond)
	descs := h.store.OverlayInfo("0x1")
	require.NotEmpty(t, descs)
	assert.InDelta(t, 0.5, descs[0].Opacity, 1e-9)
}

func TestRealTruncate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cmd")
	require.NoError(t, os.WriteFile(path, []byte("vol-up 0x1 10\n"), 0644))

	s := New(WithCommandFile(path))
	s.OnOverlayCommand("vol-up 0x1 10\n")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data)

	// A missing file is not an error.
	require.NoError(t, os.Remove(path))
	s.OnOverlayCommand("vol-up 0x1 10\n")
}

func TestSnapshot(t *testing.T) {
	h := newHarness(t)
	h.store.OnMuteStateChanged("0x2")
	h.store.OnOverlayCommand("vol-up 0x1 10")
	h.store.RegisterListener(&damageCounter{})

	snap := h.store.Snapshot()
	assert.Equal(t, []string{"0x2"}, snap.Muted)
	assert.Len(t, snap.Overlays["0x1"], 2)
	assert.Len(t, snap.Overlays["0x2"], 1)
	assert.Equal(t, 1, snap.Listeners)
}

func TestConcurrentAccess(t *testing.T) {
	s := New()
	var wg sync.WaitGroup

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				addr := fmt.Sprintf("0x%d", j%5)
				s.OnOverlayCommand(fmt.Sprintf("vol-up %s %d\n", addr, j%100))
				s.OnMuteStateChanged(addr)
				s.OverlayInfo(addr)
				s.Sweep()
				s.Animating()
			}
		}(i)
	}
	wg.Wait()
}
