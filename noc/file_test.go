package noc

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/softnoc/pkg"
)

func TestOpenFile(t *testing.T) {
	a, h := newTestAdapter(t, 2, nil)
	h.Route(1, 0)

	f, err := a.OpenFile(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 0, f.Endpoint())

	_, err = a.OpenFile(context.Background(), 0)
	assert.ErrorIs(t, err, pkg.ErrBusy)

	_, err = a.Write(1, []byte("ping"))
	require.NoError(t, err)
	a.Poll()

	buf := make([]byte, 4)
	n, err := io.ReadFull(f, buf)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "ping", string(buf))

	n, err = f.Write([]byte("pong"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []uint32{1, 0x676E6F70}, h.Sent(0))

	require.NoError(t, f.Close())
	assert.False(t, a.IsOpen(0))
	assert.ErrorIs(t, f.Close(), pkg.ErrNotOpen)

	_, err = f.Read(buf)
	assert.ErrorIs(t, err, pkg.ErrNotOpen)
	_, err = f.Write(buf)
	assert.ErrorIs(t, err, pkg.ErrNotOpen)
}

func TestFileCloseDoesNotReleaseNewOpener(t *testing.T) {
	a, _ := newTestAdapter(t, 1, nil)

	f, err := a.OpenFile(context.Background(), 0)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	g, err := a.OpenFile(context.Background(), 0)
	require.NoError(t, err)
	defer g.Close()

	assert.ErrorIs(t, f.Close(), pkg.ErrNotOpen)
	assert.True(t, a.IsOpen(0))
}

func TestFileReadCancelled(t *testing.T) {
	a, _ := newTestAdapter(t, 1, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	f, err := a.OpenFile(ctx, 0)
	require.NoError(t, err)
	defer f.Close()

	n, err := f.Read(make([]byte, 4))
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestOpenFileInvalidEndpoint(t *testing.T) {
	a, _ := newTestAdapter(t, 1, nil)

	_, err := a.OpenFile(context.Background(), 1)
	assert.ErrorIs(t, err, pkg.ErrInvalidEndpoint)
}
