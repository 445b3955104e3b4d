// Package hostloop is a small poll(2) based fd loop. It stands in for a
// compositor's event loop in the preview host and in tests.
package hostloop

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// DefaultTimeout bounds how long Run blocks in poll before re-checking ctx.
const DefaultTimeout = 50 * time.Millisecond

type source struct {
	id int
	fd int
	fn func()
}

// Loop dispatches readable-fd callbacks on whichever goroutine calls Run or
// DispatchPending.
type Loop struct {
	logger *logrus.Entry

	mu      sync.Mutex
	nextID  int
	sources map[int]*source
}

// New creates an empty loop.
func New(logger *logrus.Entry) *Loop {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Loop{
		logger:  logger,
		sources: make(map[int]*source),
	}
}

// AddReadable registers fn to run when fd becomes readable. The returned
// remove function is safe to call more than once.
func (l *Loop) AddReadable(fd int, fn func()) (func(), error) {
	if fd < 0 {
		return nil, fmt.Errorf("invalid fd %d", fd)
	}
	if fn == nil {
		return nil, fmt.Errorf("nil callback for fd %d", fd)
	}

	l.mu.Lock()
	l.nextID++
	id := l.nextID
	l.sources[id] = &source{id: id, fd: fd, fn: fn}
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.sources, id)
			l.mu.Unlock()
		})
	}, nil
}

// Len returns the number of registered sources.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.sources)
}

// DispatchPending runs callbacks for fds that are readable right now and
// returns how many ran. It never blocks.
func (l *Loop) DispatchPending() (int, error) {
	return l.poll(0)
}

// Run dispatches on the calling goroutine, locked to its OS thread, until
// ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	timeout := int(DefaultTimeout / time.Millisecond)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if _, err := l.poll(timeout); err != nil {
			return err
		}
	}
}

func (l *Loop) snapshot() []*source {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*source, 0, len(l.sources))
	for _, s := range l.sources {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func (l *Loop) registered(id int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.sources[id]
	return ok
}

func (l *Loop) poll(timeoutMs int) (int, error) {
	sources := l.snapshot()
	if len(sources) == 0 {
		if timeoutMs > 0 {
			time.Sleep(time.Duration(timeoutMs) * time.Millisecond)
		}
		return 0, nil
	}

	fds := make([]unix.PollFd, len(sources))
	for i, s := range sources {
		fds[i] = unix.PollFd{Fd: int32(s.fd), Events: unix.POLLIN}
	}

	n, err := unix.Poll(fds, timeoutMs)
	if err == unix.EINTR {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("poll: %w", err)
	}
	if n == 0 {
		return 0, nil
	}

	dispatched := 0
	for i, pfd := range fds {
		if pfd.Revents&unix.POLLNVAL != 0 {
			l.logger.WithField("fd", pfd.Fd).Debug("Skipping closed fd")
			continue
		}
		if pfd.Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) == 0 {
			continue
		}
		// A callback earlier in this round may have removed the source.
		if !l.registered(sources[i].id) {
			continue
		}
		sources[i].fn()
		dispatched++
	}
	return dispatched, nil
}
