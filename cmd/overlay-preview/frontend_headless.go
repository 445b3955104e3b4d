//go:build headless

package main

import (
	"context"

	"github.com/grovetools/overlay/config"
	"github.com/grovetools/overlay/internal/assets"
	"github.com/grovetools/overlay/internal/daemon/hostloop"
	"github.com/grovetools/overlay/internal/preview"
	"github.com/grovetools/overlay/logging"
	"github.com/sirupsen/logrus"
)

// frameLogger logs the frame a display would draw after each wake.
type frameLogger struct {
	host   *preview.Host
	logger *logrus.Entry
}

func (f *frameLogger) Damage() {
	for _, p := range f.host.Frame() {
		f.logger.WithFields(logrus.Fields{
			"address": p.Window.Address,
			"kind":    p.Descriptor.Kind,
			"opacity": p.Descriptor.Opacity,
			"rect":    p.Rect.String(),
		}).Debug("Overlay")
	}
}

// run hosts the engine on a poll loop without any display, decoding icons
// into memory. Useful on machines without a GPU and for the debug server.
func run(ctx context.Context, cfg *config.Config, opts preview.Options) error {
	logger := logging.NewLogger("overlay-preview")

	host, err := preview.New(cfg, assets.NewMemoryUploader(), opts)
	if err != nil {
		return err
	}
	defer host.Stop()

	loop := hostloop.New(logging.NewLogger("hostloop"))
	if err := host.Start(ctx, loop); err != nil {
		return err
	}

	frames := &frameLogger{host: host, logger: logger}
	host.Engine().Store().RegisterListener(frames)
	defer host.Engine().Store().UnregisterListener(frames)

	logger.WithField("windows", len(host.Windows())).Info("Headless preview host running")
	if err := loop.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}
