package noc

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ardnew/softnoc/pkg"
)

const readinessWords = MaxTiles * MaxRemoteEndpoints / 64

// Readiness is a bitmap of remote endpoints that announced themselves ready
// through control-class packets, indexed by source tile and endpoint id.
//
// Bits are updated from the multiplexer without locks. Waiters are released
// by closing a broadcast channel that is replaced on every Set.
type Readiness struct {
	bits [readinessWords]atomic.Uint64

	mutex   sync.Mutex
	changed chan struct{}
}

// NewReadiness creates an empty readiness bitmap.
func NewReadiness() *Readiness {
	return &Readiness{changed: make(chan struct{})}
}

func readinessBit(tile, ep int) (word int, mask uint64, err error) {
	if tile < 0 || tile >= MaxTiles || ep < 0 || ep >= MaxRemoteEndpoints {
		return 0, 0, fmt.Errorf("%w: tile %d endpoint %d", pkg.ErrInvalidParameter, tile, ep)
	}
	bit := tile*MaxRemoteEndpoints + ep
	return bit / 64, 1 << (bit % 64), nil
}

// Set marks endpoint ep of tile as ready and wakes waiters.
func (r *Readiness) Set(tile, ep int) error {
	w, mask, err := readinessBit(tile, ep)
	if err != nil {
		return err
	}
	for {
		old := r.bits[w].Load()
		if old&mask != 0 {
			return nil
		}
		if r.bits[w].CompareAndSwap(old, old|mask) {
			break
		}
	}

	r.mutex.Lock()
	close(r.changed)
	r.changed = make(chan struct{})
	r.mutex.Unlock()
	return nil
}

// Clear marks endpoint ep of tile as not ready.
func (r *Readiness) Clear(tile, ep int) error {
	w, mask, err := readinessBit(tile, ep)
	if err != nil {
		return err
	}
	for {
		old := r.bits[w].Load()
		if old&mask == 0 || r.bits[w].CompareAndSwap(old, old&^mask) {
			return nil
		}
	}
}

// IsReady reports whether endpoint ep of tile is marked ready.
// Out-of-range ids are never ready.
func (r *Readiness) IsReady(tile, ep int) bool {
	w, mask, err := readinessBit(tile, ep)
	if err != nil {
		return false
	}
	return r.bits[w].Load()&mask != 0
}

// Ready returns the ready endpoint ids of tile in ascending order.
func (r *Readiness) Ready(tile int) []int {
	var eps []int
	for ep := 0; ep < MaxRemoteEndpoints; ep++ {
		if r.IsReady(tile, ep) {
			eps = append(eps, ep)
		}
	}
	return eps
}

// Wait blocks until endpoint ep of tile is ready or ctx is done.
func (r *Readiness) Wait(ctx context.Context, tile, ep int) error {
	if _, _, err := readinessBit(tile, ep); err != nil {
		return err
	}
	for {
		r.mutex.Lock()
		ch := r.changed
		r.mutex.Unlock()

		if r.IsReady(tile, ep) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
	}
}
