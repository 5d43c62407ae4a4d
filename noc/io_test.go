package noc

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"testing/iotest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/softnoc/pkg"
)

func TestWriteWordPacking(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want []uint32
	}{
		{
			name: "two words",
			data: []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08},
			want: []uint32{2, 0x04030201, 0x08070605},
		},
		{
			name: "padded final word",
			data: []byte{0x01, 0x02, 0x03, 0x04, 0x05},
			want: []uint32{2, 0x04030201, 0x00000005},
		},
		{
			name: "single byte",
			data: []byte{0xFF},
			want: []uint32{1, 0x000000FF},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, h := newTestAdapter(t, 1, nil)

			n, err := a.Write(0, tt.data)
			require.NoError(t, err)
			assert.Equal(t, len(tt.data), n)
			assert.Equal(t, tt.want, h.Sent(0))
		})
	}
}

func TestWriteEmpty(t *testing.T) {
	a, h := newTestAdapter(t, 1, nil)

	n, err := a.Write(0, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Empty(t, h.Sent(0))
}

func TestWriteDoesNotRequireOpen(t *testing.T) {
	a, h := newTestAdapter(t, 2, nil)

	_, err := a.Write(1, []byte("ok"))
	require.NoError(t, err)
	assert.Len(t, h.Sent(1), 2)
}

func TestLoopbackRoundTrip(t *testing.T) {
	a, h := newTestAdapter(t, 2, nil)
	h.Route(0, 1)
	require.NoError(t, a.Open(1))

	msg := []byte("hello, noc!")
	n, err := a.Write(0, msg)
	require.NoError(t, err)
	require.Equal(t, len(msg), n)

	a.Poll()

	buf := make([]byte, len(msg))
	n, err = a.ReadFull(context.Background(), 1, buf)
	require.NoError(t, err)
	assert.Equal(t, len(msg), n)
	assert.Equal(t, msg, buf)
}

func TestReadNotOpen(t *testing.T) {
	a, _ := newTestAdapter(t, 1, nil)

	_, err := a.Read(context.Background(), 0, make([]byte, 4))
	assert.ErrorIs(t, err, pkg.ErrNotOpen)
}

func TestReadEmptyBuffer(t *testing.T) {
	a, _ := newTestAdapter(t, 1, nil)
	require.NoError(t, a.Open(0))

	n, err := a.Read(context.Background(), 0, nil)
	assert.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestReadReturnsAvailable(t *testing.T) {
	a, h := newTestAdapter(t, 1, nil)
	require.NoError(t, a.Open(0))

	h.Inject(0, 0x04030201, 0x08070605)
	a.Poll()

	buf := make([]byte, 16)
	n, err := a.Read(context.Background(), 0, buf)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, buf[:n])
}

func TestReadTruncatesFinalWord(t *testing.T) {
	a, h := newTestAdapter(t, 1, nil)
	require.NoError(t, a.Open(0))

	h.Inject(0, 0x04030201, 0x08070605, 0x0C0B0A09)
	a.Poll()

	buf := make([]byte, 6)
	n, err := a.Read(context.Background(), 0, buf)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, buf)

	// The rest of the second word is gone; the next read starts on a word.
	buf = make([]byte, 4)
	n, err = a.Read(context.Background(), 0, buf)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte{9, 10, 11, 12}, buf)
}

func TestBlockedReaderWoken(t *testing.T) {
	a, h := newTestAdapter(t, 2, nil)
	require.NoError(t, a.Open(0))

	type result struct {
		n   int
		err error
		buf []byte
	}
	done := make(chan result, 1)
	go func() {
		buf := make([]byte, 4)
		n, err := a.Read(context.Background(), 0, buf)
		done <- result{n, err, buf}
	}()

	select {
	case r := <-done:
		t.Fatalf("Read() returned before data arrived: %d, %v", r.n, r.err)
	case <-time.After(20 * time.Millisecond):
	}

	h.Inject(0, 0xA1B2C3D4)
	res := a.Poll()
	assert.Equal(t, 1, res.Packets)

	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.Equal(t, 4, r.n)
		assert.Equal(t, []byte{0xD4, 0xC3, 0xB2, 0xA1}, r.buf)
	case <-time.After(time.Second):
		t.Fatal("reader not woken after Poll")
	}
}

func TestNeverFedReaderCancelled(t *testing.T) {
	a, h := newTestAdapter(t, 2, nil)
	require.NoError(t, a.Open(0))

	ctx, cancel := context.WithCancel(context.Background())
	type result struct {
		n   int
		err error
	}
	done := make(chan result, 1)
	go func() {
		n, err := a.Read(ctx, 0, make([]byte, 8))
		done <- result{n, err}
	}()

	// Traffic for another endpoint must not wake the reader
	h.Inject(1, 1, 2, 3)
	a.Poll()

	select {
	case r := <-done:
		t.Fatalf("Read() returned without data: %d, %v", r.n, r.err)
	case <-time.After(20 * time.Millisecond):
	}

	cancel()
	select {
	case r := <-done:
		assert.Equal(t, 0, r.n)
		assert.ErrorIs(t, r.err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("reader not released by cancellation")
	}
}

func TestReadDeadline(t *testing.T) {
	a, _ := newTestAdapter(t, 1, nil)
	require.NoError(t, a.Open(0))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	n, err := a.ReadFull(ctx, 0, make([]byte, 4))
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestReadFullPartialOnCancel(t *testing.T) {
	a, h := newTestAdapter(t, 1, nil)
	require.NoError(t, a.Open(0))

	h.Inject(0, 0x11111111)
	a.Poll()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	buf := make([]byte, 8)
	n, err := a.ReadFull(ctx, 0, buf)
	assert.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte{0x11, 0x11, 0x11, 0x11}, buf[:n])
}

func TestReadFullWaitsAcrossPackets(t *testing.T) {
	a, h := newTestAdapter(t, 1, nil)
	require.NoError(t, a.Open(0))

	h.Inject(0, 1)
	a.Poll()

	done := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 8)
		_, _ = a.ReadFull(context.Background(), 0, buf)
		done <- buf
	}()

	time.Sleep(10 * time.Millisecond)
	h.Inject(0, 2)
	a.Poll()

	select {
	case buf := <-done:
		assert.Equal(t, []byte{1, 0, 0, 0, 2, 0, 0, 0}, buf)
	case <-time.After(time.Second):
		t.Fatal("ReadFull() did not complete")
	}
}

func TestCloseWakesReader(t *testing.T) {
	a, _ := newTestAdapter(t, 1, nil)
	require.NoError(t, a.Open(0))

	done := make(chan error, 1)
	go func() {
		_, err := a.Read(context.Background(), 0, make([]byte, 4))
		done <- err
	}()
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, a.Close(0))
	select {
	case err := <-done:
		assert.ErrorIs(t, err, pkg.ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("reader not woken by Close")
	}
}

func TestQueuedReaderCancelled(t *testing.T) {
	a, _ := newTestAdapter(t, 1, nil)
	require.NoError(t, a.Open(0))

	first := make(chan error, 1)
	go func() {
		_, err := a.Read(context.Background(), 0, make([]byte, 4))
		first <- err
	}()
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	second := make(chan error, 1)
	go func() {
		_, err := a.Read(ctx, 0, make([]byte, 4))
		second <- err
	}()

	select {
	case err := <-second:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("queued reader ignored its deadline")
	}

	require.NoError(t, a.Close(0))
	assert.ErrorIs(t, <-first, pkg.ErrClosed)
}

func TestQueuedReaderWokenByClose(t *testing.T) {
	a, _ := newTestAdapter(t, 1, nil)
	require.NoError(t, a.Open(0))

	done := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := a.Read(context.Background(), 0, make([]byte, 4))
			done <- err
		}()
	}
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, a.Close(0))
	for i := 0; i < 2; i++ {
		select {
		case err := <-done:
			assert.ErrorIs(t, err, pkg.ErrClosed)
		case <-time.After(time.Second):
			t.Fatal("reader not woken by Close")
		}
	}
}

func TestReadSlotReleased(t *testing.T) {
	a, h := newTestAdapter(t, 1, nil)
	require.NoError(t, a.Open(0))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := a.Read(ctx, 0, make([]byte, 4))
	require.ErrorIs(t, err, context.DeadlineExceeded)

	h.Inject(0, 0x64636261)
	a.Poll()

	buf := make([]byte, 4)
	n, err := a.Read(context.Background(), 0, buf)
	require.NoError(t, err)
	assert.Equal(t, "abcd", string(buf[:n]))
}

// limitedWriter accepts limit bytes and fails afterwards.
type limitedWriter struct {
	buf   bytes.Buffer
	limit int
}

var errWriterFull = errors.New("writer full")

func (w *limitedWriter) Write(p []byte) (int, error) {
	if w.buf.Len()+len(p) > w.limit {
		return 0, errWriterFull
	}
	return w.buf.Write(p)
}

func TestReadTo(t *testing.T) {
	a, h := newTestAdapter(t, 1, nil)
	require.NoError(t, a.Open(0))

	h.Inject(0, 0x64636261, 0x00006665)
	a.Poll()

	var out bytes.Buffer
	n, err := a.ReadTo(context.Background(), 0, &out, 6)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, "abcdef", out.String())
}

func TestReadToWriterFailure(t *testing.T) {
	a, h := newTestAdapter(t, 1, nil)
	require.NoError(t, a.Open(0))

	h.Inject(0, 1, 2, 3)
	a.Poll()

	w := &limitedWriter{limit: 4}
	n, err := a.ReadTo(context.Background(), 0, w, 12)
	assert.ErrorIs(t, err, errWriterFull)
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte{1, 0, 0, 0}, w.buf.Bytes())
}

func TestWriteFrom(t *testing.T) {
	a, h := newTestAdapter(t, 1, nil)

	n, err := a.WriteFrom(0, bytes.NewReader([]byte{1, 2, 3, 4, 5, 6}), 6)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, []uint32{2, 0x04030201, 0x00000605}, h.Sent(0))
}

func TestWriteFromReaderFailure(t *testing.T) {
	a, h := newTestAdapter(t, 1, nil)
	errSource := errors.New("source failed")

	r := io.MultiReader(bytes.NewReader([]byte{1, 2, 3, 4, 5, 6}), iotest.ErrReader(errSource))
	n, err := a.WriteFrom(0, r, 12)
	assert.ErrorIs(t, err, errSource)
	assert.Equal(t, 4, n)
	assert.Equal(t, []uint32{3, 0x04030201}, h.Sent(0))
}

func TestWritePacket(t *testing.T) {
	a, h := newTestAdapter(t, 1, nil)

	require.NoError(t, a.WritePacket(0, []uint32{0xDEADBEEF, 7}))
	require.NoError(t, a.WritePacket(0, nil))
	assert.Equal(t, []uint32{2, 0xDEADBEEF, 7}, h.Sent(0))
}

func TestAnnounceReady(t *testing.T) {
	a, h := newTestAdapter(t, 2, func(c *Config) { c.Mode = ModeClassified })
	h.Route(0, 1)

	require.NoError(t, a.AnnounceReady(0, 1, 6, 99, true))
	assert.Equal(t, []uint32{1, ControlHeader(1, 6, 99, true).Word()}, h.Sent(0))

	a.Poll()
	assert.True(t, a.Readiness().IsReady(6, 99))
}
