// Package hal defines the register window contract between the softnoc core
// and network adapter hardware.
//
// The core never touches hardware directly. It reads and writes 32-bit
// registers through a [Window] and, where available, sleeps on an
// [Interrupter] until the receive interrupt fires.
//
// # Register Layout
//
//	base + 0x0000                      endpoint count (read-only)
//	base + 0x2000 + i*0x2000 + 0x0     endpoint i send/receive port
//	base + 0x2000 + i*0x2000 + 0x4     endpoint i enable register
//
// Use [PortAddr] and [EnableAddr] rather than computing offsets by hand.
//
// # Implementations
//
//   - [github.com/ardnew/softnoc/hal/mmio]: mmap of a device file
//     (/dev/mem or a UIO node), with UIO interrupt delivery on Linux
//   - [github.com/ardnew/softnoc/hal/fifo]: in-memory word FIFOs for tests
//     and simulation
//
// # Example
//
//	type MyWindow struct {
//	    regs []uint32
//	}
//
//	func (w *MyWindow) ReadWord(offset uint32) uint32 {
//	    return w.regs[offset/hal.WordSize]
//	}
//
//	func (w *MyWindow) WriteWord(offset, v uint32) {
//	    w.regs[offset/hal.WordSize] = v
//	}
package hal
