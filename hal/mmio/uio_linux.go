//go:build linux

package mmio

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/sys/unix"

	"github.com/ardnew/softnoc/hal"
	"github.com/ardnew/softnoc/pkg"
)

// maxEpollEvents bounds one epoll_wait batch (interrupt fd + wake fd).
const maxEpollEvents = 2

// UIO delivers adapter interrupts from a Linux userspace I/O device node.
//
// A read of the UIO file blocks until the interrupt fires and returns the
// running interrupt count; writing 1 re-enables the interrupt. The file is
// watched with epoll together with an eventfd so that a wait can be
// interrupted by context cancellation or Close.
type UIO struct {
	path   string
	fd     int // UIO device file
	epfd   int // epoll instance
	wakefd int // eventfd for waking WaitIRQ

	mutex   sync.Mutex
	closed  bool
	count   uint32         // Interrupt count reported by the last read
	waiters sync.WaitGroup // WaitIRQ calls in flight
}

// OpenUIO opens the UIO device node at path and enables its interrupt.
func OpenUIO(path string) (*UIO, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, multierr.Combine(fmt.Errorf("epoll create: %w", err), unix.Close(fd))
	}

	wakefd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		return nil, multierr.Combine(fmt.Errorf("eventfd: %w", err), unix.Close(epfd), unix.Close(fd))
	}

	u := &UIO{path: path, fd: fd, epfd: epfd, wakefd: wakefd}

	for _, watched := range []int{fd, wakefd} {
		event := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(watched)}
		if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, watched, &event); err != nil {
			return nil, multierr.Combine(fmt.Errorf("epoll add: %w", err), u.closeFDs())
		}
	}

	if err := u.AckIRQ(); err != nil {
		return nil, multierr.Combine(err, u.closeFDs())
	}

	pkg.LogInfo(pkg.ComponentHAL, "uio interrupt source opened", "path", path)
	return u, nil
}

// WaitIRQ implements hal.Interrupter.
func (u *UIO) WaitIRQ(ctx context.Context) error {
	if !u.enter() {
		return pkg.ErrCancelled
	}
	defer u.waiters.Done()

	stop := context.AfterFunc(ctx, func() {
		if u.enter() {
			u.wake()
			u.waiters.Done()
		}
	})
	defer stop()

	var events [maxEpollEvents]unix.EpollEvent
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if u.isClosed() {
			return pkg.ErrCancelled
		}

		n, err := unix.EpollWait(u.epfd, events[:], -1)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return fmt.Errorf("epoll wait: %w", err)
		}

		for i := 0; i < n; i++ {
			switch int(events[i].Fd) {
			case u.wakefd:
				// Drain the eventfd; the loop re-checks ctx and closed.
				var buf [8]byte
				unix.Read(u.wakefd, buf[:])
			case u.fd:
				var buf [4]byte
				if _, err := unix.Read(u.fd, buf[:]); err != nil {
					if err == unix.EAGAIN {
						continue
					}
					return fmt.Errorf("read %s: %w", u.path, err)
				}
				u.mutex.Lock()
				u.count = binary.NativeEndian.Uint32(buf[:])
				u.mutex.Unlock()
				return nil
			}
		}
	}
}

// AckIRQ implements hal.Interrupter by re-enabling the UIO interrupt.
func (u *UIO) AckIRQ() error {
	var buf [4]byte
	binary.NativeEndian.PutUint32(buf[:], 1)
	if _, err := unix.Write(u.fd, buf[:]); err != nil {
		return fmt.Errorf("enable irq %s: %w", u.path, err)
	}
	return nil
}

// Count returns the interrupt count reported by the kernel on the last wakeup.
func (u *UIO) Count() uint32 {
	u.mutex.Lock()
	defer u.mutex.Unlock()
	return u.count
}

// Close wakes any waiter, waits for in-flight WaitIRQ calls to return, and
// releases the file descriptors.
func (u *UIO) Close() error {
	u.mutex.Lock()
	if u.closed {
		u.mutex.Unlock()
		return nil
	}
	u.closed = true
	u.mutex.Unlock()

	u.wake()
	u.waiters.Wait()
	return u.closeFDs()
}

// enter registers a WaitIRQ call unless u is closed.
func (u *UIO) enter() bool {
	u.mutex.Lock()
	defer u.mutex.Unlock()
	if u.closed {
		return false
	}
	u.waiters.Add(1)
	return true
}

func (u *UIO) isClosed() bool {
	u.mutex.Lock()
	defer u.mutex.Unlock()
	return u.closed
}

// wake signals the epoll loop through the eventfd.
func (u *UIO) wake() {
	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], 1)
	unix.Write(u.wakefd, buf[:])
}

func (u *UIO) closeFDs() error {
	return multierr.Combine(
		unix.Close(u.wakefd),
		unix.Close(u.epfd),
		unix.Close(u.fd),
	)
}

// Compile-time interface check
var _ hal.Interrupter = (*UIO)(nil)
