package noc

import (
	"sync/atomic"

	"github.com/ardnew/softnoc/pkg"
)

// EndpointStats is a snapshot of one endpoint's counters.
type EndpointStats struct {
	Index     int
	Open      bool
	Queued    int    // Words currently waiting in the ring
	RxPackets uint64 // Packets routed to the endpoint while open
	RxWords   uint64 // Words queued on the ring
	TxPackets uint64
	TxWords   uint64 // Payload words, excluding length words

	// Dropped counts discarded words, indexed by pkg.DropReason.
	Dropped [pkg.NumDropReasons]uint64
}

// DroppedTotal returns the number of words dropped for any reason.
func (s EndpointStats) DroppedTotal() uint64 {
	var n uint64
	for _, d := range s.Dropped {
		n += d
	}
	return n
}

// Stats is a snapshot of adapter counters.
type Stats struct {
	Endpoints []EndpointStats

	Polls        uint64 // Poll invocations
	Passes       uint64 // Scans over all endpoints
	CapHits      uint64 // Polls stopped by the pass limit
	Malformed    uint64 // Oversize packets drained
	Unregistered uint64 // Classified packets without a handler
	Control      uint64 // Control-class packets seen
}

type endpointCounters struct {
	rxPackets atomic.Uint64
	rxWords   atomic.Uint64
	txPackets atomic.Uint64
	txWords   atomic.Uint64
	dropped   [pkg.NumDropReasons]atomic.Uint64
}

func (c *endpointCounters) drop(reason pkg.DropReason, words int) {
	c.dropped[reason].Add(uint64(words))
}

type adapterCounters struct {
	polls        atomic.Uint64
	passes       atomic.Uint64
	capHits      atomic.Uint64
	malformed    atomic.Uint64
	unregistered atomic.Uint64
	control      atomic.Uint64
}

// Stats returns a snapshot of the adapter counters. Counters are read
// individually, so a snapshot taken during a Poll may be slightly skewed.
func (a *Adapter) Stats() Stats {
	s := Stats{
		Endpoints:    make([]EndpointStats, len(a.endpoints)),
		Polls:        a.counters.polls.Load(),
		Passes:       a.counters.passes.Load(),
		CapHits:      a.counters.capHits.Load(),
		Malformed:    a.counters.malformed.Load(),
		Unregistered: a.counters.unregistered.Load(),
		Control:      a.counters.control.Load(),
	}
	for i := range a.endpoints {
		e := &a.endpoints[i]
		es := EndpointStats{
			Index:     i,
			RxPackets: e.stats.rxPackets.Load(),
			RxWords:   e.stats.rxWords.Load(),
			TxPackets: e.stats.txPackets.Load(),
			TxWords:   e.stats.txWords.Load(),
		}
		if sess := e.session.Load(); sess != nil {
			es.Open = true
			es.Queued = sess.ring.Len()
		}
		for r := range es.Dropped {
			es.Dropped[r] = e.stats.dropped[r].Load()
		}
		s.Endpoints[i] = es
	}
	return s
}
