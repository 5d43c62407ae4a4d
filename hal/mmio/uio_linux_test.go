//go:build linux

package mmio

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/ardnew/softnoc/pkg"
)

// openFIFO opens a named pipe as an interrupt source. The interrupt enable
// written by OpenUIO is read back as the first interrupt.
func openFIFO(t *testing.T) *UIO {
	t.Helper()

	path := filepath.Join(t.TempDir(), "uio0")
	require.NoError(t, unix.Mkfifo(path, 0o600))

	u, err := OpenUIO(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = u.Close() })
	return u
}

func TestUIOWaitIRQ(t *testing.T) {
	u := openFIFO(t)

	require.NoError(t, u.WaitIRQ(context.Background()))
	assert.Equal(t, uint32(1), u.Count())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, u.WaitIRQ(ctx), context.DeadlineExceeded)

	require.NoError(t, u.AckIRQ())
	require.NoError(t, u.WaitIRQ(context.Background()))
}

func TestUIOCloseWaitsForWaiter(t *testing.T) {
	u := openFIFO(t)
	require.NoError(t, u.WaitIRQ(context.Background()))

	done := make(chan error, 1)
	go func() {
		done <- u.WaitIRQ(context.Background())
	}()
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, u.Close())

	// The descriptors outlive the waiter, so it sees the close rather than
	// a failed epoll_wait.
	select {
	case err := <-done:
		assert.ErrorIs(t, err, pkg.ErrCancelled)
	case <-time.After(time.Second):
		t.Fatal("waiter not released by Close")
	}

	assert.ErrorIs(t, u.WaitIRQ(context.Background()), pkg.ErrCancelled)
	assert.NoError(t, u.Close())
}
