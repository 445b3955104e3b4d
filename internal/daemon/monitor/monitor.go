// Package monitor polls files for content changes and reports them to
// per-path callbacks on a single background goroutine.
package monitor

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// DefaultInterval is the polling period used when none is given.
const DefaultInterval = 10 * time.Millisecond

// Callback receives the full new content of a watched file. It runs on the
// polling goroutine and must not call Watch, OnPass or Stop.
type Callback func(content string)

type watch struct {
	path string
	last string
	fn   Callback
}

// Monitor polls a set of files. Polling is the source of truth; the optional
// fsnotify watcher only triggers an early pass.
type Monitor struct {
	interval time.Duration
	logger   *logrus.Entry
	notify   bool

	mu      sync.Mutex
	watches []*watch
	byPath  map[string]*watch
	hooks   []func()

	pathsMu     sync.RWMutex
	paths       map[string]struct{}
	watchedDirs map[string]struct{}
	fsw         *fsnotify.Watcher

	kick     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithNotify enables an fsnotify watcher on the parent directories of
// watched files.
func WithNotify(enabled bool) Option {
	return func(m *Monitor) {
		m.notify = enabled
	}
}

// New creates a Monitor and starts its polling goroutine.
func New(interval time.Duration, logger *logrus.Entry, opts ...Option) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	m := &Monitor{
		interval:    interval,
		logger:      logger,
		byPath:      make(map[string]*watch),
		paths:       make(map[string]struct{}),
		watchedDirs: make(map[string]struct{}),
		kick:        make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.notify {
		fsw, err := fsnotify.NewWatcher()
		if err != nil {
			m.logger.WithError(err).Warn("fsnotify unavailable, relying on polling only")
		} else {
			m.fsw = fsw
			m.wg.Add(1)
			go m.forward()
		}
	}

	m.wg.Add(1)
	go m.run()
	return m
}

// Watch registers path. The current content becomes the baseline, so a file
// that already exists does not trigger the callback until it changes.
// Watching a path again replaces its callback and keeps the baseline.
func (m *Monitor) Watch(path string, fn Callback) {
	path = filepath.Clean(path)

	m.mu.Lock()
	if w, ok := m.byPath[path]; ok {
		w.fn = fn
		m.mu.Unlock()
		return
	}
	w := &watch{path: path, last: m.readFile(path), fn: fn}
	m.watches = append(m.watches, w)
	m.byPath[path] = w
	m.mu.Unlock()

	m.logger.WithField("path", path).Debug("Watching file")
	m.addNotify(path)
}

// OnPass registers fn to run after every polling pass, after the callbacks.
func (m *Monitor) OnPass(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, fn)
}

// Paths returns the watched paths in registration order.
func (m *Monitor) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.watches))
	for _, w := range m.watches {
		out = append(out, w.path)
	}
	return out
}

// Stop halts polling and waits for the goroutines to exit. It is safe to
// call more than once.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.done)
		if m.fsw != nil {
			m.fsw.Close()
		}
	})
	m.wg.Wait()
}

// Close is Stop for use with defer and io.Closer.
func (m *Monitor) Close() error {
	m.Stop()
	return nil
}

func (m *Monitor) run() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
		case <-m.kick:
		}

		// Stop wins over a tick that became ready at the same time.
		select {
		case <-m.done:
			return
		default:
		}

		m.pass()
	}
}

// pass checks every watched file once. Callbacks run sequentially while
// the lock is held, so Watch never interleaves with a pass.
func (m *Monitor) pass() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, w := range m.watches {
		content := m.readFile(w.path)
		if content == w.last {
			continue
		}
		w.last = content
		if w.fn != nil {
			w.fn(content)
		}
	}

	for _, hook := range m.hooks {
		hook()
	}
}

// readFile returns the file content, or "" when it cannot be read.
func (m *Monitor) readFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			m.logger.WithError(err).WithField("path", path).Debug("Failed to read watched file")
		}
		return ""
	}
	return string(data)
}

func (m *Monitor) addNotify(path string) {
	if m.fsw == nil {
		return
	}

	m.pathsMu.Lock()
	defer m.pathsMu.Unlock()

	m.paths[path] = struct{}{}
	dir := filepath.Dir(path)
	if _, ok := m.watchedDirs[dir]; ok {
		return
	}
	if err := m.fsw.Add(dir); err != nil {
		m.logger.WithError(err).WithField("dir", dir).Warn("Failed to watch directory, polling only")
		return
	}
	m.watchedDirs[dir] = struct{}{}
}

// forward turns fsnotify events for watched paths into an early pass.
func (m *Monitor) forward() {
	defer m.wg.Done()

	for {
		select {
		case <-m.done:
			return
		case event, ok := <-m.fsw.Events:
			if !ok {
				return
			}
			m.pathsMu.RLock()
			_, watched := m.paths[filepath.Clean(event.Name)]
			m.pathsMu.RUnlock()
			if !watched {
				continue
			}
			select {
			case m.kick <- struct{}{}:
			default:
			}
		case err, ok := <-m.fsw.Errors:
			if !ok {
				return
			}
			m.logger.WithError(err).Debug("fsnotify error")
		}
	}
}
