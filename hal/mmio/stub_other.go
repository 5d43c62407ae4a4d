//go:build !linux

package mmio

import (
	"context"

	"github.com/ardnew/softnoc/pkg"
)

// Window is unavailable on this platform.
type Window struct{}

// Open returns pkg.ErrNotSupported on this platform.
func Open(opts Options) (*Window, error) {
	return nil, pkg.ErrNotSupported
}

func (w *Window) ReadWord(offset uint32) uint32 { return 0 }

func (w *Window) WriteWord(offset uint32, v uint32) {}

func (w *Window) Size() uint32 { return 0 }

func (w *Window) Close() error { return nil }

// UIO is unavailable on this platform.
type UIO struct{}

// OpenUIO returns pkg.ErrNotSupported on this platform.
func OpenUIO(path string) (*UIO, error) {
	return nil, pkg.ErrNotSupported
}

func (u *UIO) WaitIRQ(ctx context.Context) error { return pkg.ErrNotSupported }

func (u *UIO) AckIRQ() error { return pkg.ErrNotSupported }

func (u *UIO) Count() uint32 { return 0 }

func (u *UIO) Close() error { return nil }
