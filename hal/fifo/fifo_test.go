package fifo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/softnoc/hal"
	"github.com/ardnew/softnoc/pkg"
)

func TestEndpointCount(t *testing.T) {
	h := New(5)
	assert.Equal(t, uint32(5), h.ReadWord(hal.EndpointCountOffset))
}

func TestInjectAndRead(t *testing.T) {
	h := New(2)
	h.Inject(1, 0xAA, 0xBB)

	assert.Equal(t, uint32(0), h.ReadWord(hal.PortAddr(0)), "endpoint 0 has no data")
	assert.Equal(t, uint32(2), h.ReadWord(hal.PortAddr(1)))
	assert.Equal(t, uint32(0xAA), h.ReadWord(hal.PortAddr(1)))
	assert.Equal(t, uint32(0xBB), h.ReadWord(hal.PortAddr(1)))
	assert.Equal(t, uint32(0), h.ReadWord(hal.PortAddr(1)))
	assert.Equal(t, 3, h.Consumed(1))
	assert.Equal(t, 0, h.Pending(1))
}

func TestWriteCapturesWords(t *testing.T) {
	h := New(1)
	h.WriteWord(hal.PortAddr(0), 2)
	h.WriteWord(hal.PortAddr(0), 0x04030201)
	h.WriteWord(hal.PortAddr(0), 0x08070605)

	assert.Equal(t, []uint32{2, 0x04030201, 0x08070605}, h.Sent(0))
	assert.Equal(t, 0, h.Pending(0), "unrouted sends must not loop back")
}

func TestRoute(t *testing.T) {
	h := New(4)
	h.Route(0, 3)

	h.WriteWord(hal.PortAddr(0), 2)
	h.WriteWord(hal.PortAddr(0), 7)
	assert.Equal(t, 0, h.Pending(3), "incomplete packet must not be forwarded")

	h.WriteWord(hal.PortAddr(0), 9)
	require.Equal(t, 3, h.Pending(3))
	assert.Equal(t, uint32(2), h.ReadWord(hal.PortAddr(3)))
	assert.Equal(t, uint32(7), h.ReadWord(hal.PortAddr(3)))
	assert.Equal(t, uint32(9), h.ReadWord(hal.PortAddr(3)))

	h.Route(0, -1)
	h.WriteWord(hal.PortAddr(0), 1)
	h.WriteWord(hal.PortAddr(0), 5)
	assert.Equal(t, 0, h.Pending(3))
}

func TestEnableRegister(t *testing.T) {
	h := New(2)
	assert.False(t, h.Enabled(1))
	h.WriteWord(hal.EnableAddr(1), 1)
	assert.True(t, h.Enabled(1))
	assert.Equal(t, uint32(1), h.ReadWord(hal.EnableAddr(1)))
	assert.False(t, h.Enabled(0))
}

func TestWaitIRQ(t *testing.T) {
	h := New(1)
	h.Inject(0, 1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, h.WaitIRQ(ctx))
	require.NoError(t, h.AckIRQ())

	short, shortCancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer shortCancel()
	assert.ErrorIs(t, h.WaitIRQ(short), context.DeadlineExceeded)
}

func TestCloseReleasesWaiter(t *testing.T) {
	h := New(1)
	errCh := make(chan error, 1)
	go func() {
		errCh <- h.WaitIRQ(context.Background())
	}()

	require.NoError(t, h.Close())
	require.NoError(t, h.Close(), "Close must be idempotent")

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, pkg.ErrCancelled)
	case <-time.After(time.Second):
		t.Fatal("WaitIRQ not released by Close")
	}
}
