// Package noc implements the receive and transmit core of a network-on-chip
// adapter.
//
// An [Adapter] sits on a register window ([hal.Window]) exposing a small,
// fixed number of hardware endpoints. Each endpoint has a word port: reads pop
// received words and writes push outgoing words. Traffic is framed as a
// length word followed by that many payload words.
//
// # Receive
//
// [Adapter.Poll] is the multiplexer. It scans every endpoint port, reading at
// most one packet per endpoint per scan, and repeats until a scan finds no
// data. It never blocks: it runs from the interrupt service loop started by
// [Adapter.Start] or directly from the caller.
//
// In [ModeBuffered] each payload word is queued on the endpoint's [Ring], a
// single-producer single-consumer queue with one slot kept free. A full ring
// drops the newest word. Words for endpoints that are not open are drained and
// dropped. Packets longer than Config.MaxPacketWords are drained and discarded.
//
// In [ModeClassified] the first payload word is a [Header]. Control packets
// (class 7) with the ready bit set update the [Readiness] bitmap and are not
// dispatched. Every other packet goes to the [Handler] registered for its
// class; packets of unregistered classes are dropped with a throttled warning.
// [Adapter.EndpointHandler] returns a handler that queues classified packets
// for blocking readers.
//
// Drops are never reported to readers. They are counted in [Adapter.Stats]
// by [pkg.DropReason].
//
// # Blocking I/O
//
// An endpoint has at most one opener ([Adapter.Open], [Adapter.OpenFile]).
// [Adapter.Read] waits until data is queued and copies whole words in
// little-endian byte order. Waits end when the context is done or the
// endpoint is closed. [Adapter.Write] sends one packet immediately without
// waiting for the receiver.
package noc
