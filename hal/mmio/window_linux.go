//go:build linux

package mmio

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"go.uber.org/multierr"
	"golang.org/x/sys/unix"

	"github.com/ardnew/softnoc/hal"
	"github.com/ardnew/softnoc/pkg"
)

// Window is a register window backed by a shared mapping of a device file.
type Window struct {
	path string
	fd   int
	data []byte
	size uint32
}

// Open maps the register window described by opts.
func Open(opts Options) (*Window, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	fd, err := unix.Open(opts.Path, unix.O_RDWR|unix.O_SYNC|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", opts.Path, err)
	}

	data, err := unix.Mmap(fd, opts.Offset, int(opts.Size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, multierr.Combine(
			fmt.Errorf("mmap %s: %w", opts.Path, err),
			unix.Close(fd),
		)
	}

	pkg.LogInfo(pkg.ComponentHAL, "register window mapped",
		"path", opts.Path,
		"offset", fmt.Sprintf("0x%X", opts.Offset),
		"size", fmt.Sprintf("0x%X", opts.Size))

	return &Window{
		path: opts.Path,
		fd:   fd,
		data: data,
		size: opts.Size,
	}, nil
}

// ReadWord implements hal.Window.
func (w *Window) ReadWord(offset uint32) uint32 {
	return atomic.LoadUint32(w.reg(offset))
}

// WriteWord implements hal.Window.
func (w *Window) WriteWord(offset uint32, v uint32) {
	atomic.StoreUint32(w.reg(offset), v)
}

// Size implements hal.Sizer.
func (w *Window) Size() uint32 {
	return w.size
}

// Close unmaps the window and closes the device file.
func (w *Window) Close() error {
	var err error
	if w.data != nil {
		err = multierr.Append(err, unix.Munmap(w.data))
		w.data = nil
	}
	if w.fd >= 0 {
		err = multierr.Append(err, unix.Close(w.fd))
		w.fd = -1
	}
	return err
}

// reg returns a pointer to the register at offset. Out-of-range or
// misaligned offsets are programming errors and panic.
func (w *Window) reg(offset uint32) *uint32 {
	if offset%hal.WordSize != 0 || offset+hal.WordSize > w.size {
		panic(fmt.Sprintf("mmio: register offset 0x%X outside window of 0x%X bytes", offset, w.size))
	}
	return (*uint32)(unsafe.Pointer(&w.data[offset]))
}

// Compile-time interface checks
var (
	_ hal.Window = (*Window)(nil)
	_ hal.Sizer  = (*Window)(nil)
)
