package noc

import (
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/yasserelgammal/rate-limiter/limiter"
	"github.com/yasserelgammal/rate-limiter/store"

	"github.com/ardnew/softnoc/pkg"
)

// Handler processes classified packets.
//
// HandlePacket runs synchronously on the multiplexer and must not block.
// words holds the full payload, header word first, and is only valid for the
// duration of the call.
type Handler interface {
	HandlePacket(ep int, words []uint32)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ep int, words []uint32)

// HandlePacket calls f(ep, words).
func (f HandlerFunc) HandlePacket(ep int, words []uint32) {
	f(ep, words)
}

type handlerBox struct {
	h Handler
}

// Dispatcher maps packet classes to handlers.
// Slots are swapped atomically, so the multiplexer always observes either
// the previous or the new handler of a class.
type Dispatcher struct {
	slots [NumClasses]atomic.Pointer[handlerBox]
}

// Register installs h for class, replacing any previous handler.
// A nil h clears the class.
func (d *Dispatcher) Register(class int, h Handler) error {
	if class < 0 || class >= NumClasses {
		return fmt.Errorf("%w: %d", pkg.ErrInvalidClass, class)
	}
	if h == nil {
		d.slots[class].Store(nil)
		return nil
	}
	d.slots[class].Store(&handlerBox{h: h})
	return nil
}

// Unregister clears the handler for class.
func (d *Dispatcher) Unregister(class int) error {
	return d.Register(class, nil)
}

// Lookup returns the handler for class, or nil.
func (d *Dispatcher) Lookup(class uint8) Handler {
	if int(class) >= NumClasses {
		return nil
	}
	if b := d.slots[class].Load(); b != nil {
		return b.h
	}
	return nil
}

// throttle limits how often a diagnostic keyed by a string is emitted.
type throttle struct {
	bucket *limiter.TokenBucket
}

func newThrottle(rate, burst int) (*throttle, error) {
	bucket, err := limiter.NewTokenBucket(
		limiter.Config{
			Rate:     int64(rate),
			Duration: time.Second,
			Burst:    int64(burst),
		},
		store.NewMemoryStore(time.Minute),
	)
	if err != nil {
		return nil, fmt.Errorf("diagnostic limiter: %w", err)
	}
	return &throttle{bucket: bucket}, nil
}

func (t *throttle) allow(key string) bool {
	return t.bucket.Allow(key)
}

func classKey(class uint8) string {
	return "class-" + strconv.Itoa(int(class))
}
