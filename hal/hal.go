package hal

import (
	"context"
)

// MaxEndpoints is the maximum number of endpoints an adapter exposes.
const MaxEndpoints = 16

// Register window layout (byte offsets from the window base).
const (
	EndpointCountOffset = 0x0000 // Read-only endpoint count
	EndpointBlockBase   = 0x2000 // First per-endpoint register block
	EndpointBlockStride = 0x2000 // Distance between endpoint blocks
	PortOffset          = 0x0    // Send/receive word port within a block
	EnableOffset        = 0x4    // Enable register within a block
)

// WordSize is the width in bytes of every register and payload word.
const WordSize = 4

// BlockAddr returns the offset of the register block for endpoint ep.
func BlockAddr(ep int) uint32 {
	return EndpointBlockBase + uint32(ep)*EndpointBlockStride
}

// PortAddr returns the offset of the send/receive port for endpoint ep.
// Reading the port pops one word from the hardware receive queue; writing
// pushes one word into the hardware send queue.
func PortAddr(ep int) uint32 {
	return BlockAddr(ep) + PortOffset
}

// EnableAddr returns the offset of the enable register for endpoint ep.
func EnableAddr(ep int) uint32 {
	return BlockAddr(ep) + EnableOffset
}

// WindowSize returns the number of bytes a window must map to reach every
// register of n endpoints.
func WindowSize(n int) uint32 {
	return BlockAddr(n)
}

// DecodeAddr splits a register offset into an endpoint index and the offset
// within that endpoint's block. ok is false for offsets below the first block.
func DecodeAddr(offset uint32) (ep int, reg uint32, ok bool) {
	if offset < EndpointBlockBase {
		return 0, 0, false
	}
	rel := offset - EndpointBlockBase
	return int(rel / EndpointBlockStride), rel % EndpointBlockStride, true
}

// Window is the memory-mapped register window of a network adapter.
//
// Every access is a single aligned 32-bit operation with hardware side
// effects: reading a port consumes a word, writing a port emits one.
// Implementations must not reorder or merge accesses.
type Window interface {
	// ReadWord reads the 32-bit register at offset.
	ReadWord(offset uint32) uint32

	// WriteWord writes v to the 32-bit register at offset.
	WriteWord(offset uint32, v uint32)
}

// Sizer is implemented by windows with a fixed mapped length. The adapter
// uses it to reject windows too small for the reported endpoint count.
type Sizer interface {
	Size() uint32
}

// Interrupter delivers the adapter's receive interrupt.
//
// Windows that also implement Interrupter let the adapter service loop sleep
// until hardware has data instead of polling on a timer.
type Interrupter interface {
	// WaitIRQ blocks until the interrupt fires or the context is cancelled.
	WaitIRQ(ctx context.Context) error

	// AckIRQ acknowledges the last interrupt and re-arms the line.
	AckIRQ() error
}
