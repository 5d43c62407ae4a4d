package fifo

import (
	"context"
	"sync"

	"github.com/ardnew/softnoc/hal"
	"github.com/ardnew/softnoc/pkg"
)

// noRoute marks an endpoint whose sent packets are only captured.
const noRoute = -1

// HAL implements hal.Window and hal.Interrupter with in-memory word FIFOs.
//
// Each endpoint has a receive FIFO, filled by Inject and drained by reads of
// the endpoint port, and a send FIFO, filled by writes to the port. Sent
// packets can optionally be routed to the receive FIFO of another endpoint
// to simulate a loopback network.
type HAL struct {
	count int

	mutex    sync.Mutex
	rx       [hal.MaxEndpoints][]uint32 // Words waiting to be read from the port
	tx       [hal.MaxEndpoints][]uint32 // Words written to the port
	consumed [hal.MaxEndpoints]int      // Words read from the port
	enabled  [hal.MaxEndpoints]uint32

	// Loopback routing and in-progress outbound packets
	route   [hal.MaxEndpoints]int
	pending [hal.MaxEndpoints][]uint32

	irqCh     chan struct{}
	closeCh   chan struct{}
	closeOnce sync.Once
}

// New creates a simulated adapter with n endpoints.
// n is reported through the endpoint count register unchanged, so values
// above hal.MaxEndpoints can be used to exercise initialization failures.
func New(n int) *HAL {
	h := &HAL{
		count:   n,
		irqCh:   make(chan struct{}, 1),
		closeCh: make(chan struct{}),
	}
	for i := range h.route {
		h.route[i] = noRoute
	}
	return h
}

// ReadWord implements hal.Window.
func (h *HAL) ReadWord(offset uint32) uint32 {
	if offset == hal.EndpointCountOffset {
		return uint32(h.count)
	}
	ep, reg, ok := h.decode(offset)
	if !ok {
		return 0
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	switch reg {
	case hal.PortOffset:
		q := h.rx[ep]
		if len(q) == 0 {
			return 0
		}
		w := q[0]
		h.rx[ep] = q[1:]
		h.consumed[ep]++
		return w
	case hal.EnableOffset:
		return h.enabled[ep]
	}
	return 0
}

// WriteWord implements hal.Window.
func (h *HAL) WriteWord(offset uint32, v uint32) {
	ep, reg, ok := h.decode(offset)
	if !ok {
		pkg.LogDebug(pkg.ComponentHAL, "write to read-only register",
			"offset", offset)
		return
	}

	h.mutex.Lock()
	switch reg {
	case hal.PortOffset:
		h.tx[ep] = append(h.tx[ep], v)
		if h.route[ep] != noRoute {
			h.assemble(ep, v)
		}
	case hal.EnableOffset:
		h.enabled[ep] = v
	}
	h.mutex.Unlock()
}

// assemble tracks outbound words of a routed endpoint and forwards each
// complete packet to the destination receive FIFO. Called with mutex held.
func (h *HAL) assemble(ep int, v uint32) {
	p := append(h.pending[ep], v)
	if uint32(len(p)-1) < p[0] {
		h.pending[ep] = p
		return
	}
	h.pending[ep] = nil
	dst := h.route[ep]
	h.rx[dst] = append(h.rx[dst], p...)
	h.raise()
}

// Inject queues one length-prefixed packet on the receive FIFO of endpoint ep
// and raises the interrupt.
func (h *HAL) Inject(ep int, words ...uint32) {
	packet := make([]uint32, 0, len(words)+1)
	packet = append(packet, uint32(len(words)))
	packet = append(packet, words...)
	h.InjectRaw(ep, packet...)
}

// InjectRaw queues words on the receive FIFO of endpoint ep exactly as given,
// without a length prefix, and raises the interrupt. It is used to model
// malformed traffic.
func (h *HAL) InjectRaw(ep int, words ...uint32) {
	h.mutex.Lock()
	h.rx[ep] = append(h.rx[ep], words...)
	h.raise()
	h.mutex.Unlock()
}

// Route forwards every packet sent on endpoint src to the receive FIFO of
// endpoint dst. A negative dst disables routing for src.
func (h *HAL) Route(src, dst int) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if dst < 0 {
		dst = noRoute
	}
	h.route[src] = dst
	h.pending[src] = nil
}

// Sent returns a copy of all words written to the port of endpoint ep.
func (h *HAL) Sent(ep int) []uint32 {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return append([]uint32(nil), h.tx[ep]...)
}

// Consumed returns the number of words read from the port of endpoint ep.
func (h *HAL) Consumed(ep int) int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return h.consumed[ep]
}

// Pending returns the number of words still queued on the receive FIFO of
// endpoint ep.
func (h *HAL) Pending(ep int) int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.rx[ep])
}

// Enabled reports the value last written to the enable register of ep.
func (h *HAL) Enabled(ep int) bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return h.enabled[ep] != 0
}

// RaiseIRQ asserts the interrupt line without queuing data.
func (h *HAL) RaiseIRQ() {
	h.raise()
}

// WaitIRQ implements hal.Interrupter.
func (h *HAL) WaitIRQ(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-h.closeCh:
		return pkg.ErrCancelled
	case <-h.irqCh:
		return nil
	}
}

// AckIRQ implements hal.Interrupter. The simulated line is edge-triggered
// and needs no re-arming.
func (h *HAL) AckIRQ() error {
	return nil
}

// Close releases any goroutine blocked in WaitIRQ.
func (h *HAL) Close() error {
	h.closeOnce.Do(func() {
		close(h.closeCh)
	})
	return nil
}

func (h *HAL) raise() {
	select {
	case h.irqCh <- struct{}{}:
	default:
	}
}

func (h *HAL) decode(offset uint32) (int, uint32, bool) {
	ep, reg, ok := hal.DecodeAddr(offset)
	if !ok || ep >= hal.MaxEndpoints {
		return 0, 0, false
	}
	return ep, reg, true
}

// Compile-time interface checks
var (
	_ hal.Window      = (*HAL)(nil)
	_ hal.Interrupter = (*HAL)(nil)
)
