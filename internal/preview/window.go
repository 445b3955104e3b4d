// Package preview runs the overlay engine against a set of stand-in
// windows, the way a compositor would host it.
package preview

import (
	"fmt"
	"image"
	"sync"

	"github.com/grovetools/overlay/internal/daemon/store"
	"github.com/grovetools/overlay/pkg/overlay"
)

// Window is a stand-in client window. On Damage it re-reads its overlays
// from the store, as a compositor surface would schedule a repaint.
type Window struct {
	Address string
	Bounds  image.Rectangle

	store *store.Store

	mu      sync.Mutex
	descs   []overlay.Descriptor
	damages int
}

// NewWindow creates a window for address covering bounds.
func NewWindow(st *store.Store, address string, bounds image.Rectangle) *Window {
	return &Window{Address: address, Bounds: bounds, store: st}
}

// Damage implements store.Listener.
func (w *Window) Damage() {
	descs := w.store.OverlayInfo(w.Address)

	w.mu.Lock()
	w.descs = descs
	w.damages++
	w.mu.Unlock()
}

// Overlays returns the descriptors read on the last damage.
func (w *Window) Overlays() []overlay.Descriptor {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]overlay.Descriptor(nil), w.descs...)
}

// Damages returns how many times the window was damaged.
func (w *Window) Damages() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.damages
}

// WindowAddress returns the fake address of the i-th window.
func WindowAddress(i int) string {
	return fmt.Sprintf("0x%x", 0x1000*(i+1))
}

// Grid splits a width x height canvas into n window rectangles laid out in
// rows, with gap pixels between them.
func Grid(n, width, height, gap int) []image.Rectangle {
	if n <= 0 {
		return nil
	}

	cols := 1
	for cols*cols < n {
		cols++
	}
	rows := (n + cols - 1) / cols

	cellW := (width - gap*(cols+1)) / cols
	cellH := (height - gap*(rows+1)) / rows

	rects := make([]image.Rectangle, 0, n)
	for i := 0; i < n; i++ {
		col, row := i%cols, i/cols
		x := gap + col*(cellW+gap)
		y := gap + row*(cellH+gap)
		rects = append(rects, image.Rect(x, y, x+cellW, y+cellH))
	}
	return rects
}

// Placement is one icon to draw.
type Placement struct {
	Window     *Window
	Descriptor overlay.Descriptor
	Rect       image.Rectangle
}

// Placements lays out the overlays of every window. size reports an icon's
// pixel size; icons it cannot resolve are skipped.
func Placements(windows []*Window, layout overlay.Layout, size func(path string) (image.Point, bool)) []Placement {
	var out []Placement
	for _, w := range windows {
		for _, d := range w.Overlays() {
			iconSize, ok := size(d.IconPath)
			if !ok {
				continue
			}
			out = append(out, Placement{
				Window:     w,
				Descriptor: d,
				Rect:       layout.Bounds(d, w.Bounds, iconSize),
			})
		}
	}
	return out
}
