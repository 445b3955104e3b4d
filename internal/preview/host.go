package preview

import (
	"context"
	stderrors "errors"
	"image"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/grovetools/overlay/config"
	"github.com/grovetools/overlay/internal/assets"
	"github.com/grovetools/overlay/internal/daemon/engine"
	"github.com/grovetools/overlay/internal/daemon/notifier"
	"github.com/grovetools/overlay/internal/daemon/pidfile"
	"github.com/grovetools/overlay/internal/daemon/server"
	"github.com/grovetools/overlay/logging"
	"github.com/grovetools/overlay/pkg/overlay"
	"github.com/grovetools/overlay/pkg/paths"
	"github.com/grovetools/overlay/pkg/profiling"
	"github.com/sirupsen/logrus"
)

// Options configures a Host.
type Options struct {
	// Windows is the number of stand-in windows.
	Windows int
	// Width and Height size the canvas the windows are tiled on.
	Width, Height int
	// PidFile guards a single host per user. Empty skips the guard.
	PidFile string
	// ConfigPath enables hot reload of timing and icons.
	ConfigPath string
}

// Host owns the engine, the stand-in windows, the icon cache and the
// optional debug server.
type Host struct {
	cfg    *config.Config
	opts   Options
	logger *logrus.Entry

	engine  *engine.Engine
	windows []*Window
	cache   *assets.Cache

	srv      *server.Server
	listener net.Listener
	wg       sync.WaitGroup

	stopOnce sync.Once
}

// New builds a host. Icons are decoded at cfg's icon size and handed to
// uploader.
func New(cfg *config.Config, uploader assets.Uploader, opts Options) (*Host, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if opts.Windows <= 0 {
		opts.Windows = 4
	}

	logger := logging.NewLogger("preview")

	if err := paths.EnsureDirs(); err != nil {
		logger.WithError(err).Warn("Failed to create overlay directories")
	}

	if opts.PidFile != "" {
		if err := pidfile.Acquire(opts.PidFile); err != nil {
			return nil, err
		}
	}

	engineOpts := []engine.Option{}
	if opts.ConfigPath != "" {
		engineOpts = append(engineOpts, engine.WithConfigPath(opts.ConfigPath))
	}
	eng, err := engine.New(cfg, engineOpts...)
	if err != nil {
		if opts.PidFile != "" {
			_ = pidfile.Release(opts.PidFile)
		}
		return nil, err
	}

	h := &Host{
		cfg:    cfg,
		opts:   opts,
		logger: logger,
		engine: eng,
		cache: assets.New(
			assets.FileDecoder{Size: cfg.Icons.Size},
			uploader,
			assets.WithLogger(logging.NewLogger("assets")),
		),
	}

	for i, rect := range Grid(opts.Windows, opts.Width, opts.Height, 16) {
		w := NewWindow(eng.Store(), WindowAddress(i), rect)
		h.windows = append(h.windows, w)
	}
	return h, nil
}

// Start attaches the engine to loop, registers the windows and starts the
// debug server when enabled. An attach failure is logged and returned but
// leaves the host running.
func (h *Host) Start(ctx context.Context, loop notifier.Loop) error {
	for _, w := range h.windows {
		h.engine.Store().RegisterListener(w)
		h.logger.WithFields(logrus.Fields{
			"address": w.Address,
			"bounds":  w.Bounds.String(),
		}).Info("Window mapped")
	}

	if h.cfg.Server.Enabled {
		if err := h.startServer(); err != nil {
			h.logger.WithError(err).Warn("Debug server disabled")
		}
	}

	startErr := h.engine.Start(ctx, loop)

	// Initial paint so persistent overlays already in the files show up.
	for _, w := range h.windows {
		w.Damage()
	}
	return startErr
}

func (h *Host) startServer() error {
	listener, err := server.Listen(h.cfg.Server.Socket)
	if err != nil {
		return err
	}
	h.listener = listener
	h.srv = server.New(logging.NewLogger("server"))
	h.srv.SetEngine(h.engine)

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.logger.WithField("socket", h.cfg.Server.Socket).Info("Debug server listening")
		if err := h.srv.Serve(listener); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			h.logger.WithError(err).Debug("Debug server stopped")
		}
	}()
	return nil
}

// Windows returns the stand-in windows.
func (h *Host) Windows() []*Window {
	return h.windows
}

// Engine returns the overlay engine.
func (h *Host) Engine() *engine.Engine {
	return h.engine
}

// Cache returns the icon cache.
func (h *Host) Cache() *assets.Cache {
	return h.cache
}

// Layout returns the configured overlay placement.
func (h *Host) Layout() overlay.Layout {
	return h.engine.Config().Layout()
}

// Frame loads the icons the windows need and returns what to draw.
func (h *Host) Frame() []Placement {
	defer profiling.Start("frame").Stop()
	return Placements(h.windows, h.Layout(), func(path string) (image.Point, bool) {
		if _, ok := h.cache.Load(path); !ok {
			return image.Point{}, false
		}
		return h.cache.Size(path), true
	})
}

// Stop unregisters the windows, stops the server and engine, releases the
// icon textures and the pid file. It is safe to call more than once.
func (h *Host) Stop() {
	h.stopOnce.Do(func() {
		for _, w := range h.windows {
			h.engine.Store().UnregisterListener(w)
		}

		if h.srv != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			if err := h.srv.Shutdown(ctx); err != nil {
				h.logger.WithError(err).Warn("Debug server shutdown failed")
			}
			cancel()
			_ = h.listener.Close()
			h.wg.Wait()
		}

		h.engine.Stop()
		h.cache.Clear()

		if h.opts.PidFile != "" {
			if err := pidfile.Release(h.opts.PidFile); err != nil {
				h.logger.WithError(err).Warn("Failed to remove pid file")
			}
		}
		h.logger.Info("Preview host stopped")
	})
}
