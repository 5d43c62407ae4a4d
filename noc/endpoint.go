package noc

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ardnew/softnoc/pkg"
)

// session is the state of one open/close lifetime of an endpoint.
type session struct {
	ring   *Ring
	notify chan struct{} // Pending signal, set by the producer after a push
	done   chan struct{} // Closed on release
}

func newSession(size int) *session {
	return &session{
		ring:   NewRing(size),
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// signal sets the pending flag without blocking.
func (s *session) signal() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// wait suspends until the producer signals, the session is released, or ctx
// is done.
func (s *session) wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return pkg.ErrClosed
	case <-s.notify:
		return nil
	}
}

// endpoint is one entry of the endpoint state table.
//
// The current session is published through an atomic pointer: nil means
// closed. The multiplexer is the only producer for the session ring and the
// goroutine holding the read slot is the only consumer.
type endpoint struct {
	index    int
	session  atomic.Pointer[session]
	readSlot chan struct{} // Capacity 1; held by the active reader
	writeMu  sync.Mutex
	stats    endpointCounters
}

// acquireRead takes the read slot of e for session s. Waiting for the slot
// ends early when ctx is done or s is released.
func (e *endpoint) acquireRead(ctx context.Context, s *session) error {
	select {
	case e.readSlot <- struct{}{}:
	default:
		select {
		case e.readSlot <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return pkg.ErrClosed
		}
	}
	if e.session.Load() != s {
		e.releaseRead()
		return pkg.ErrClosed
	}
	return nil
}

func (e *endpoint) releaseRead() {
	<-e.readSlot
}

func (e *endpoint) open(size int) error {
	if !e.session.CompareAndSwap(nil, newSession(size)) {
		return pkg.ErrBusy
	}
	pkg.LogDebug(pkg.ComponentEndpoint, "endpoint opened", "endpoint", e.index)
	return nil
}

func (e *endpoint) close() error {
	s := e.session.Swap(nil)
	if s == nil {
		return pkg.ErrNotOpen
	}
	close(s.done)
	pkg.LogDebug(pkg.ComponentEndpoint, "endpoint closed",
		"endpoint", e.index, "discarded", s.ring.Len())
	return nil
}

func (e *endpoint) isOpen() bool {
	return e.session.Load() != nil
}
