// Package mmio maps the adapter register window from a device file and
// delivers its interrupt through the Linux UIO framework.
//
// The window is a MAP_SHARED mapping of /dev/mem (at the adapter's physical
// base address) or of a UIO map. Every register access is a single atomic
// 32-bit load or store so the compiler cannot elide, merge or reorder it.
//
// Typical setup with a UIO driver bound to the adapter:
//
//	win, err := mmio.Open(mmio.Options{Path: "/dev/uio0"})
//	if err != nil {
//	    return err
//	}
//	defer win.Close()
//
//	irq, err := mmio.OpenUIO("/dev/uio0")
//	if err != nil {
//	    return err
//	}
//	defer irq.Close()
//
// [OpenDevice] performs both steps and returns a [Device] that implements
// [hal.Window], [hal.Sizer] and [hal.Interrupter] for use with noc.New.
//
// Both types are only functional on Linux; other platforms return
// [github.com/ardnew/softnoc/pkg.ErrNotSupported].
package mmio
