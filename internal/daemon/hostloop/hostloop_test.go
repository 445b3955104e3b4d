package hostloop

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/grovetools/overlay/internal/daemon/notifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func newPipe(t *testing.T) (r, w int) {
	t.Helper()
	var fds [2]int
	require.NoError(t, unix.Pipe(fds[:]))
	t.Cleanup(func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

func TestDispatchPending(t *testing.T) {
	r, w := newPipe(t)
	l := New(nil)

	calls := 0
	remove, err := l.AddReadable(r, func() {
		calls++
		var buf [8]byte
		unix.Read(r, buf[:])
	})
	require.NoError(t, err)
	assert.Equal(t, 1, l.Len())

	n, err := l.DispatchPending()
	require.NoError(t, err)
	assert.Zero(t, n)

	unix.Write(w, []byte{1})
	n, err = l.DispatchPending()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, calls)

	remove()
	remove()
	assert.Zero(t, l.Len())

	unix.Write(w, []byte{1})
	n, err = l.DispatchPending()
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, calls)
}

func TestAddReadableRejectsBadInput(t *testing.T) {
	l := New(nil)
	_, err := l.AddReadable(-1, func() {})
	assert.Error(t, err)
	_, err = l.AddReadable(3, nil)
	assert.Error(t, err)
}

func TestRunStopsOnCancel(t *testing.T) {
	l := New(nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNotifierWakesLoopThread(t *testing.T) {
	n, err := notifier.New(nil)
	require.NoError(t, err)
	defer n.Close()

	l := New(nil)
	var wakes atomic.Int32
	require.NoError(t, n.Attach(l, func() { wakes.Add(1) }))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	// Signal from another goroutine, as the monitor does.
	go func() {
		for i := 0; i < 10; i++ {
			n.Signal()
		}
	}()

	require.Eventually(t, func() bool {
		return wakes.Load() >= 1
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, n.Close())
	assert.Zero(t, l.Len())
}
