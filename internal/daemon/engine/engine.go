// Package engine wires the file monitor, the overlay store and the wakeup
// notifier together from a loaded configuration.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/grovetools/overlay/config"
	"github.com/grovetools/overlay/internal/daemon/monitor"
	"github.com/grovetools/overlay/internal/daemon/notifier"
	"github.com/grovetools/overlay/internal/daemon/store"
	"github.com/grovetools/overlay/logging"
	"github.com/sirupsen/logrus"
)

// Engine owns the background machinery for one host. The monitor starts
// polling as soon as the engine is created; Start connects it to the
// host's event loop.
type Engine struct {
	store    *store.Store
	monitor  *monitor.Monitor
	notifier *notifier.Notifier
	logger   *logrus.Entry

	configPath string
	storeOpts  []store.Option

	mu      sync.RWMutex
	cfg     *config.Config
	running bool
	cancel  context.CancelFunc
	watcher *config.Watcher

	wg       sync.WaitGroup
	stopOnce sync.Once
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger. Sub-components always get their own
// component loggers.
func WithLogger(logger *logrus.Entry) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithConfigPath enables hot reload of timing and icons from path.
func WithConfigPath(path string) Option {
	return func(e *Engine) {
		e.configPath = path
	}
}

// WithStoreOptions passes extra options to the store, after the ones
// derived from the configuration.
func WithStoreOptions(opts ...store.Option) Option {
	return func(e *Engine) {
		e.storeOpts = append(e.storeOpts, opts...)
	}
}

// New builds the engine and starts polling the mute-state and command files.
// A nil cfg uses the defaults.
func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	e := &Engine{cfg: cfg}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logging.NewLogger("engine")
	}

	n, err := notifier.New(logging.NewLogger("notifier"))
	if err != nil {
		return nil, err
	}
	e.notifier = n

	storeOpts := []store.Option{
		store.WithTiming(cfg.OverlayTiming()),
		store.WithIconSet(cfg.IconSet()),
		store.WithCommandFile(cfg.Files.Command),
		store.WithSignaler(n),
		store.WithLogger(logging.NewLogger("store")),
	}
	e.store = store.New(append(storeOpts, e.storeOpts...)...)

	e.monitor = monitor.New(cfg.PollInterval(), logging.NewLogger("monitor"), monitor.WithNotify(cfg.Notify))
	e.monitor.Watch(cfg.Files.MuteState, e.store.OnMuteStateChanged)
	e.monitor.Watch(cfg.Files.Command, e.store.OnOverlayCommand)
	// Hosts only redraw on damage, so keep waking them while overlays fade.
	e.monitor.OnPass(func() {
		if e.store.Animating() {
			n.Signal()
		}
	})

	e.logger.WithFields(logrus.Fields{
		"mute_state": cfg.Files.MuteState,
		"command":    cfg.Files.Command,
		"poll":       cfg.PollInterval(),
	}).Info("Overlay engine initialized")

	return e, nil
}

// Start attaches the notifier to loop so store changes damage listeners on
// the loop's thread, then starts the sweep and config reload goroutines.
//
// An attach failure is returned but is not fatal to the engine: polling and
// state queries keep working, only automatic redraws are lost.
func (e *Engine) Start(ctx context.Context, loop notifier.Loop) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil
	}
	ctx, e.cancel = context.WithCancel(ctx)
	e.running = true
	sweep := e.cfg.SweepInterval()
	e.mu.Unlock()

	attachErr := e.notifier.Attach(loop, e.store.NotifyListeners)
	if attachErr != nil {
		e.logger.WithError(attachErr).Error("Cannot reach host event loop; overlays will not redraw automatically")
	}

	if sweep > 0 {
		e.wg.Add(1)
		go e.runSweep(ctx, sweep)
	}

	if e.configPath != "" {
		w, err := config.NewWatcher(e.configPath, 0, logging.NewLogger("config"), e.Reload)
		if err != nil {
			e.logger.WithError(err).WithField("path", e.configPath).Warn("Config hot reload disabled")
		} else {
			e.mu.Lock()
			e.watcher = w
			e.mu.Unlock()
			e.wg.Add(1)
			go func() {
				defer e.wg.Done()
				w.Start(ctx)
			}()
		}
	}

	return attachErr
}

func (e *Engine) runSweep(ctx context.Context, interval time.Duration) {
	defer e.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := e.store.Sweep(); n > 0 {
				e.logger.WithField("dropped", n).Debug("Swept expired overlay events")
			}
		}
	}
}

// Reload applies the parts of cfg that can change at runtime: timing, icons
// and logging. File paths and the poll interval need a restart.
func (e *Engine) Reload(cfg *config.Config) {
	if cfg == nil {
		return
	}

	e.mu.Lock()
	old := e.cfg
	e.cfg = cfg
	e.mu.Unlock()

	e.store.SetTiming(cfg.OverlayTiming())
	e.store.SetIconSet(cfg.IconSet())
	if err := logging.ConfigureFrom(cfg); err != nil {
		e.logger.WithError(err).Warn("Failed to apply logging configuration")
	}

	if old.Files != cfg.Files || old.Timing.PollIntervalMS != cfg.Timing.PollIntervalMS || old.Notify != cfg.Notify {
		e.logger.Warn("File paths and polling settings take effect after a restart")
	}
	e.logger.WithFields(logrus.Fields{
		"display": cfg.OverlayTiming().Display,
		"fade":    cfg.OverlayTiming().Fade,
		"icons":   cfg.Icons.Dir,
	}).Info("Configuration reloaded")

	// Redraw with the new timing and icons.
	e.notifier.Signal()
}

// Stop halts polling before closing the notifier, so no callback can signal
// a closed pipe. It is safe to call more than once.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		e.mu.Lock()
		cancel := e.cancel
		watcher := e.watcher
		e.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		if watcher != nil {
			watcher.Close()
		}
		e.wg.Wait()

		e.monitor.Stop()
		if err := e.notifier.Close(); err != nil {
			e.logger.WithError(err).Debug("Failed to close notifier")
		}
		e.logger.Info("Overlay engine stopped")
	})
}

// Store returns the engine's overlay store.
func (e *Engine) Store() *store.Store {
	return e.store
}

// Notifier returns the wakeup notifier.
func (e *Engine) Notifier() *notifier.Notifier {
	return e.notifier
}

// Config returns the configuration currently in effect.
func (e *Engine) Config() *config.Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg
}
