// Package notifier wakes a goroutine or OS thread owned by a host event
// loop from any other goroutine, using a non-blocking self-pipe.
package notifier

import (
	"sync"

	"github.com/grovetools/overlay/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// Loop is the host event loop adapter. AddReadable arranges for fn to run on
// the loop's own thread whenever fd is readable; remove undoes it.
type Loop interface {
	AddReadable(fd int, fn func()) (remove func(), err error)
}

// Notifier is a self-pipe. Signal may be called from any goroutine; the
// attached wake callback runs on the loop's thread.
type Notifier struct {
	logger *logrus.Entry

	mu     sync.RWMutex
	r, w   int
	closed bool
	remove func()
	onWake func()
}

// New creates the pipe. Both ends are non-blocking and close-on-exec.
func New(logger *logrus.Entry) (*Notifier, error) {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		return nil, errors.PipeFailed("create", err)
	}
	for _, fd := range fds {
		if err := unix.SetNonblock(fd, true); err != nil {
			unix.Close(fds[0])
			unix.Close(fds[1])
			return nil, errors.PipeFailed("set non-blocking", err)
		}
		unix.CloseOnExec(fd)
	}

	return &Notifier{
		logger: logger,
		r:      fds[0],
		w:      fds[1],
	}, nil
}

// Attach registers the read end with loop. onWake runs after pending
// signals have been drained, so bursts of Signal calls coalesce into one
// wake. Attaching again replaces the previous registration.
func (n *Notifier) Attach(loop Loop, onWake func()) error {
	if loop == nil {
		return errors.LoopUnavailable()
	}

	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return errors.New(errors.ErrCodePipeFailed, "notifier is closed")
	}
	prev := n.remove
	n.remove = nil
	fd := n.r
	n.mu.Unlock()

	if prev != nil {
		prev()
	}

	remove, err := loop.AddReadable(fd, n.handle)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeLoopUnavailable, "failed to register wakeup fd with host loop").
			WithDetail("fd", fd)
	}

	n.mu.Lock()
	n.remove = remove
	n.onWake = onWake
	n.mu.Unlock()

	n.logger.WithField("fd", fd).Debug("Notifier attached to host loop")
	return nil
}

// Signal marks the consumer dirty. It never blocks: a full pipe already
// holds a pending wake, so EAGAIN is ignored.
func (n *Notifier) Signal() {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.closed {
		return
	}
	if _, err := unix.Write(n.w, []byte{1}); err != nil && err != unix.EAGAIN {
		n.logger.WithError(err).Debug("Failed to signal notifier")
	}
}

// Drain consumes every pending signal byte and returns how many were read.
func (n *Notifier) Drain() int {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.closed {
		return 0
	}
	return n.drainLocked()
}

func (n *Notifier) drainLocked() int {
	var buf [64]byte
	total := 0
	for {
		c, err := unix.Read(n.r, buf[:])
		if c > 0 {
			total += c
		}
		if err == unix.EINTR {
			continue
		}
		if err != nil || c <= 0 {
			return total
		}
	}
}

// ReadFD returns the read end for hosts that integrate the fd themselves.
func (n *Notifier) ReadFD() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.r
}

// handle runs on the loop's thread when the read end is readable.
func (n *Notifier) handle() {
	n.mu.RLock()
	if n.closed {
		n.mu.RUnlock()
		return
	}
	n.drainLocked()
	onWake := n.onWake
	n.mu.RUnlock()

	if onWake != nil {
		onWake()
	}
}

// Close detaches from the loop and closes both ends. Signal after Close is a
// no-op.
func (n *Notifier) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	remove := n.remove
	n.remove = nil
	n.onWake = nil
	n.mu.Unlock()

	if remove != nil {
		remove()
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	rerr := unix.Close(n.r)
	werr := unix.Close(n.w)
	if rerr != nil {
		return errors.PipeFailed("close", rerr)
	}
	if werr != nil {
		return errors.PipeFailed("close", werr)
	}
	return nil
}
