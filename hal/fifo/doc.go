// Package fifo implements a simulated network adapter register window using
// in-memory word FIFOs.
//
// This HAL is primarily intended for testing and simulation. It lets the
// adapter core, the daemon and the examples run without hardware while
// preserving the side-effecting register semantics of the real device.
//
// # Architecture
//
// Every endpoint owns two word queues:
//
//	network ──Inject──▶ rx FIFO ──port read──▶ adapter core
//	adapter core ──port write──▶ tx FIFO ──Route──▶ rx FIFO of another endpoint
//
// Reading a port pops one word (0 when the FIFO is empty, which the core
// reads as "no packet"). Writing a port appends one word to the send FIFO.
// With [HAL.Route] configured, each completed outbound packet (length word
// plus payload) is forwarded to the receive FIFO of the destination endpoint.
//
// # Interrupts
//
// Injecting or routing data raises a single pending interrupt that
// [HAL.WaitIRQ] consumes, so a burst of packets produces one wakeup and the
// core drains everything in one multiplexer invocation.
//
// # Usage
//
//	h := fifo.New(4)
//	h.Inject(0, 0xdeadbeef, 0x01020304) // length-prefixed packet on endpoint 0
//	h.InjectRaw(1, 40)                  // oversized length word on endpoint 1
//	h.Route(2, 3)                       // loop endpoint 2 sends into endpoint 3
package fifo
