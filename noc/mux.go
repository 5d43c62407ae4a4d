package noc

import (
	"github.com/ardnew/softnoc/hal"
	"github.com/ardnew/softnoc/pkg"
)

// PollResult summarizes one multiplexer invocation.
type PollResult struct {
	Passes  int  // Scans performed, including the final quiescent one
	Packets int  // Length words with a nonzero size
	Words   int  // Payload words read from the ports
	Dropped int  // Payload words discarded
	Capped  bool // The pass limit stopped the scan before quiescence
}

// Poll drains every endpoint port until one full scan finds no data.
//
// Each scan reads at most one packet per endpoint, so an endpoint that keeps
// producing cannot starve the others. Poll never blocks on a reader: words
// that do not fit are dropped. It stops after Config.MaxPasses scans even if
// hardware is still producing.
//
// Poll is safe to call from several goroutines; calls are serialized so each
// endpoint ring keeps a single producer.
func (a *Adapter) Poll() PollResult {
	a.pollMu.Lock()
	defer a.pollMu.Unlock()

	a.counters.polls.Add(1)

	var res PollResult
	for res.Passes < a.cfg.MaxPasses {
		res.Passes++
		a.counters.passes.Add(1)

		busy := false
		for i := range a.endpoints {
			if a.drainPacket(&a.endpoints[i], &res) {
				busy = true
			}
		}
		if !busy {
			return res
		}
	}

	res.Capped = true
	a.counters.capHits.Add(1)
	pkg.LogWarn(pkg.ComponentMux, "pass limit reached, ports still busy",
		"passes", res.Passes, "packets", res.Packets)
	return res
}

// drainPacket reads at most one packet from the port of e. It reports
// whether the port had data.
func (a *Adapter) drainPacket(e *endpoint, res *PollResult) bool {
	port := hal.PortAddr(e.index)

	size := a.win.ReadWord(port)
	if size == 0 {
		return false
	}
	res.Packets++

	if size > uint32(a.cfg.MaxPacketWords) {
		for i := uint32(0); i < size; i++ {
			a.win.ReadWord(port)
		}
		res.Words += int(size)
		res.Dropped += int(size)
		a.counters.malformed.Add(1)
		e.stats.drop(pkg.DropMalformed, int(size))
		pkg.LogDebug(pkg.ComponentMux, "oversize packet discarded",
			"endpoint", e.index, "size", size, "limit", a.cfg.MaxPacketWords)
		return true
	}

	n := int(size)
	res.Words += n
	if a.cfg.Mode == ModeClassified {
		buf := a.scratch[:n]
		for i := range buf {
			buf[i] = a.win.ReadWord(port)
		}
		res.Dropped += a.classify(e, buf)
		return true
	}

	s := e.session.Load()
	if s != nil {
		e.stats.rxPackets.Add(1)
	}
	dropped := 0
	for i := 0; i < n; i++ {
		if !a.deliver(e, s, a.win.ReadWord(port)) {
			dropped++
		}
	}
	if dropped > 0 {
		res.Dropped += dropped
		pkg.LogDebug(pkg.ComponentMux, "words dropped",
			"endpoint", e.index, "dropped", dropped, "size", n, "open", s != nil)
	}
	return true
}

// deliver pushes one word onto the ring of session s belonging to e. A nil s
// means the endpoint is closed. It reports whether the word was queued.
func (a *Adapter) deliver(e *endpoint, s *session, w uint32) bool {
	if s == nil {
		e.stats.drop(pkg.DropNotOpen, 1)
		return false
	}
	ok := s.ring.Push(w)
	if ok {
		e.stats.rxWords.Add(1)
	} else {
		e.stats.drop(pkg.DropBufferFull, 1)
	}
	s.signal()
	return ok
}

// classify routes a classified packet held in the scratch buffer and returns
// the number of words dropped.
func (a *Adapter) classify(e *endpoint, words []uint32) int {
	h := ParseHeader(words[0])

	if h.IsControl() {
		a.counters.control.Add(1)
		if h.Ready {
			// Readiness updates are consumed here and never dispatched.
			_ = a.ready.Set(int(h.Src), int(h.Endpoint))
			pkg.LogDebug(pkg.ComponentDispatch, "remote endpoint ready",
				"tile", h.Src, "remote", h.Endpoint, "endpoint", e.index)
			return 0
		}
	}

	handler := a.dispatch.Lookup(h.Class)
	if handler == nil {
		a.counters.unregistered.Add(1)
		e.stats.drop(pkg.DropUnregisteredClass, len(words))
		if a.diag.allow(classKey(h.Class)) {
			pkg.LogWarn(pkg.ComponentDispatch, "no handler for packet class",
				"class", h.Class, "src", h.Src, "endpoint", e.index, "size", len(words))
		}
		return len(words)
	}

	a.handlerDropped = 0
	handler.HandlePacket(e.index, words)
	return a.handlerDropped
}

// EndpointHandler returns a Handler that queues a classified packet on the
// ring of the endpoint it arrived on, so blocking readers can consume
// classified traffic. Words that do not fit are dropped and counted in the
// PollResult of the running Poll.
//
// The handler must only be invoked by the multiplexer.
func (a *Adapter) EndpointHandler() Handler {
	return HandlerFunc(func(ep int, words []uint32) {
		if ep < 0 || ep >= len(a.endpoints) {
			return
		}
		e := &a.endpoints[ep]
		s := e.session.Load()
		if s != nil {
			e.stats.rxPackets.Add(1)
		}
		for _, w := range words {
			if !a.deliver(e, s, w) {
				a.handlerDropped++
			}
		}
	})
}
