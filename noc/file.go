package noc

import (
	"context"
	"io"
	"sync"

	"github.com/ardnew/softnoc/pkg"
)

// File is an open endpoint presented as a byte stream, the analogue of a
// per-endpoint character device node.
type File struct {
	adapter *Adapter
	ep      int
	ctx     context.Context

	mutex  sync.Mutex
	closed bool
}

// OpenFile opens endpoint ep and returns it as a File. Blocked reads on the
// file return when ctx is done.
func (a *Adapter) OpenFile(ctx context.Context, ep int) (*File, error) {
	if err := a.Open(ep); err != nil {
		return nil, err
	}
	return &File{adapter: a, ep: ep, ctx: ctx}, nil
}

// Endpoint returns the endpoint index of the file.
func (f *File) Endpoint() int {
	return f.ep
}

// Read implements io.Reader with the blocking semantics of Adapter.Read.
func (f *File) Read(p []byte) (int, error) {
	if f.isClosed() {
		return 0, pkg.ErrNotOpen
	}
	return f.adapter.Read(f.ctx, f.ep, p)
}

// Write implements io.Writer. Each call sends exactly one packet.
func (f *File) Write(p []byte) (int, error) {
	if f.isClosed() {
		return 0, pkg.ErrNotOpen
	}
	return f.adapter.Write(f.ep, p)
}

// Close releases the endpoint. Closing twice returns pkg.ErrNotOpen.
func (f *File) Close() error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if f.closed {
		return pkg.ErrNotOpen
	}
	f.closed = true
	return f.adapter.Close(f.ep)
}

func (f *File) isClosed() bool {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.closed
}

var _ io.ReadWriteCloser = (*File)(nil)
