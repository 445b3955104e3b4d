//go:build !headless

package main

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/grovetools/overlay/config"
	"github.com/grovetools/overlay/internal/assets"
	"github.com/grovetools/overlay/internal/daemon/hostloop"
	"github.com/grovetools/overlay/internal/preview"
	"github.com/grovetools/overlay/logging"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/sirupsen/logrus"
)

var (
	backgroundColor = color.RGBA{0x1f, 0x1f, 0x28, 0xff}
	windowColor     = color.RGBA{0x36, 0x36, 0x46, 0xff}
)

// textureUploader hands decoded icons to the GPU as ebiten images.
type textureUploader struct{}

func (textureUploader) Upload(img image.Image) (assets.Texture, error) {
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("empty image")
	}
	return ebiten.NewImageFromImage(img), nil
}

func (textureUploader) Release(tex assets.Texture) {
	if img, ok := tex.(*ebiten.Image); ok {
		img.Deallocate()
	}
}

// game draws the stand-in windows and their overlays. Update runs on the
// ebiten main thread and is where store wakes are dispatched, so window
// damage happens on the same thread that draws.
type game struct {
	ctx    context.Context
	host   *preview.Host
	loop   *hostloop.Loop
	logger *logrus.Entry

	width, height int
	surfaces      map[string]*ebiten.Image
	showLabels    bool
}

func (g *game) Update() error {
	select {
	case <-g.ctx.Done():
		return ebiten.Termination
	default:
	}
	if ebiten.IsWindowBeingClosed() {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyL) {
		g.showLabels = !g.showLabels
	}

	if _, err := g.loop.DispatchPending(); err != nil {
		g.logger.WithError(err).Warn("Event dispatch failed")
	}
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.Fill(backgroundColor)

	for _, w := range g.host.Windows() {
		surface, ok := g.surfaces[w.Address]
		if !ok {
			surface = ebiten.NewImage(w.Bounds.Dx(), w.Bounds.Dy())
			surface.Fill(windowColor)
			g.surfaces[w.Address] = surface
		}
		op := &ebiten.DrawImageOptions{}
		op.GeoM.Translate(float64(w.Bounds.Min.X), float64(w.Bounds.Min.Y))
		screen.DrawImage(surface, op)

		if g.showLabels {
			ebitenutil.DebugPrintAt(screen, w.Address, w.Bounds.Min.X+4, w.Bounds.Min.Y+4)
		}
	}

	for _, p := range g.host.Frame() {
		tex, ok := g.host.Cache().Load(p.Descriptor.IconPath)
		if !ok {
			continue
		}
		img := tex.(*ebiten.Image)
		size := img.Bounds().Size()

		op := &ebiten.DrawImageOptions{}
		op.GeoM.Scale(float64(p.Rect.Dx())/float64(size.X), float64(p.Rect.Dy())/float64(size.Y))
		op.GeoM.Translate(float64(p.Rect.Min.X), float64(p.Rect.Min.Y))
		op.ColorScale.ScaleAlpha(float32(p.Descriptor.Opacity))
		op.Filter = ebiten.FilterLinear
		screen.DrawImage(img, op)
	}
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.width, g.height
}

// run hosts the engine in an ebiten window until it is closed or ctx ends.
func run(ctx context.Context, cfg *config.Config, opts preview.Options) error {
	logger := logging.NewLogger("overlay-preview")

	host, err := preview.New(cfg, textureUploader{}, opts)
	if err != nil {
		return err
	}
	defer host.Stop()

	loop := hostloop.New(logging.NewLogger("hostloop"))
	if err := host.Start(ctx, loop); err != nil {
		// Without the loop nothing redraws, which defeats a preview.
		return err
	}

	ebiten.SetWindowSize(opts.Width, opts.Height)
	ebiten.SetWindowTitle("overlay preview")
	ebiten.SetWindowClosingHandled(true)
	ebiten.SetRunnableOnUnfocused(true)

	g := &game{
		ctx:        ctx,
		host:       host,
		loop:       loop,
		logger:     logger,
		width:      opts.Width,
		height:     opts.Height,
		surfaces:   make(map[string]*ebiten.Image),
		showLabels: true,
	}

	logger.WithField("windows", len(host.Windows())).Info("Preview host running")
	if err := ebiten.RunGame(g); err != nil && err != ebiten.Termination {
		return err
	}
	return nil
}
