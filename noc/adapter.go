package noc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/ardnew/softnoc/hal"
	"github.com/ardnew/softnoc/pkg"
)

// Adapter is the receive/transmit core of one NoC adapter.
//
// It owns a fixed table of endpoints sized from the endpoint-count register,
// the class dispatch table, and the readiness bitmap. Receive happens in Poll,
// driven either by the caller or by the service loop started with Start.
type Adapter struct {
	win hal.Window
	cfg Config

	endpoints []endpoint
	dispatch  Dispatcher
	ready     *Readiness
	diag      *throttle
	counters  adapterCounters

	pollMu         sync.Mutex
	scratch        []uint32 // Classified packet in flight, guarded by pollMu
	handlerDropped int      // Words dropped by EndpointHandler, guarded by pollMu

	mutex   sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates an adapter over the register window win.
//
// The endpoint count is read once from the window and must be between 1 and
// hal.MaxEndpoints. If win implements hal.Sizer it must cover every endpoint
// block.
func New(win hal.Window, cfg Config) (*Adapter, error) {
	if win == nil {
		return nil, fmt.Errorf("%w: nil register window", pkg.ErrInvalidParameter)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	count := win.ReadWord(hal.EndpointCountOffset)
	switch {
	case count == 0:
		return nil, pkg.ErrNoDevice
	case count > hal.MaxEndpoints:
		return nil, fmt.Errorf("%w: window reports %d, limit %d",
			pkg.ErrTooManyEndpoints, count, hal.MaxEndpoints)
	}
	if sz, ok := win.(hal.Sizer); ok && sz.Size() < hal.WindowSize(int(count)) {
		return nil, fmt.Errorf("%w: window size %#x too small for %d endpoints",
			pkg.ErrInvalidParameter, sz.Size(), count)
	}

	diag, err := newThrottle(cfg.DiagnosticRate, cfg.DiagnosticBurst)
	if err != nil {
		return nil, err
	}

	a := &Adapter{
		win:       win,
		cfg:       cfg,
		endpoints: make([]endpoint, count),
		ready:     NewReadiness(),
		diag:      diag,
		scratch:   make([]uint32, cfg.MaxPacketWords),
	}
	for i := range a.endpoints {
		a.endpoints[i].index = i
		a.endpoints[i].readSlot = make(chan struct{}, 1)
	}

	pkg.LogInfo(pkg.ComponentAdapter, "adapter initialized",
		"endpoints", count, "mode", cfg.Mode, "buffer_words", cfg.BufferWords)
	return a, nil
}

// NumEndpoints returns the number of hardware endpoints.
func (a *Adapter) NumEndpoints() int {
	return len(a.endpoints)
}

// Config returns the adapter configuration.
func (a *Adapter) Config() Config {
	return a.cfg
}

// Readiness returns the remote endpoint readiness bitmap.
func (a *Adapter) Readiness() *Readiness {
	return a.ready
}

func (a *Adapter) endpoint(ep int) (*endpoint, error) {
	if ep < 0 || ep >= len(a.endpoints) {
		return nil, fmt.Errorf("%w: %d", pkg.ErrInvalidEndpoint, ep)
	}
	return &a.endpoints[ep], nil
}

// Open acquires endpoint ep and allocates an empty receive ring.
// It fails with pkg.ErrBusy if the endpoint is already open.
func (a *Adapter) Open(ep int) error {
	e, err := a.endpoint(ep)
	if err != nil {
		return err
	}
	return e.open(a.cfg.BufferWords)
}

// Close releases endpoint ep, discarding queued words and waking any blocked
// reader with pkg.ErrClosed.
func (a *Adapter) Close(ep int) error {
	e, err := a.endpoint(ep)
	if err != nil {
		return err
	}
	return e.close()
}

// IsOpen reports whether endpoint ep is open.
func (a *Adapter) IsOpen(ep int) bool {
	e, err := a.endpoint(ep)
	return err == nil && e.isOpen()
}

// SetEnabled writes the hardware enable register of endpoint ep.
func (a *Adapter) SetEnabled(ep int, enabled bool) error {
	if _, err := a.endpoint(ep); err != nil {
		return err
	}
	var v uint32
	if enabled {
		v = 1
	}
	a.win.WriteWord(hal.EnableAddr(ep), v)
	pkg.LogDebug(pkg.ComponentEndpoint, "enable register written",
		"endpoint", ep, "enabled", enabled)
	return nil
}

// Enabled reads the hardware enable register of endpoint ep.
func (a *Adapter) Enabled(ep int) (bool, error) {
	if _, err := a.endpoint(ep); err != nil {
		return false, err
	}
	return a.win.ReadWord(hal.EnableAddr(ep)) != 0, nil
}

// Register installs h as the handler for packet class, replacing any
// previous handler. Handlers only run in classified mode.
func (a *Adapter) Register(class int, h Handler) error {
	if err := a.dispatch.Register(class, h); err != nil {
		return err
	}
	pkg.LogDebug(pkg.ComponentDispatch, "handler registered",
		"class", class, "cleared", h == nil)
	return nil
}

// Unregister clears the handler for packet class.
func (a *Adapter) Unregister(class int) error {
	return a.Register(class, nil)
}

// Start runs the receive service loop in a new goroutine.
//
// If the register window implements hal.Interrupter, each interrupt triggers
// a Poll followed by an acknowledge. Otherwise Poll runs every
// Config.PollInterval.
func (a *Adapter) Start(ctx context.Context) error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if a.running {
		return pkg.ErrAlreadyRunning
	}

	ctx, a.cancel = context.WithCancel(ctx)
	a.done = make(chan struct{})
	a.running = true

	go a.serviceLoop(ctx, a.done)

	pkg.LogDebug(pkg.ComponentAdapter, "service started")
	return nil
}

// Stop cancels the service loop and waits for it to exit.
func (a *Adapter) Stop() error {
	a.mutex.Lock()
	if !a.running {
		a.mutex.Unlock()
		return nil
	}
	a.running = false
	a.cancel()
	done := a.done
	a.mutex.Unlock()

	<-done

	pkg.LogDebug(pkg.ComponentAdapter, "service stopped")
	return nil
}

// IsRunning reports whether the service loop is running.
func (a *Adapter) IsRunning() bool {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return a.running
}

// Shutdown stops the service loop and closes every open endpoint.
func (a *Adapter) Shutdown() error {
	err := a.Stop()
	for i := range a.endpoints {
		if a.endpoints[i].isOpen() {
			// A concurrent Close may win the race; that is not a failure.
			if cerr := a.endpoints[i].close(); cerr != nil && !errors.Is(cerr, pkg.ErrNotOpen) {
				err = multierr.Append(err, cerr)
			}
		}
	}
	pkg.LogInfo(pkg.ComponentAdapter, "adapter shut down")
	return err
}

func (a *Adapter) serviceLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	// Drain anything that arrived before the service started.
	a.Poll()

	if irq, ok := a.win.(hal.Interrupter); ok {
		a.interruptLoop(ctx, irq)
		return
	}
	a.pollLoop(ctx)
}

func (a *Adapter) interruptLoop(ctx context.Context, irq hal.Interrupter) {
	for {
		if err := irq.WaitIRQ(ctx); err != nil {
			if ctx.Err() == nil && !errors.Is(err, pkg.ErrCancelled) {
				pkg.LogError(pkg.ComponentAdapter, "interrupt wait failed", "error", err)
			}
			return
		}

		a.Poll()

		if err := irq.AckIRQ(); err != nil {
			pkg.LogWarn(pkg.ComponentAdapter, "interrupt acknowledge failed", "error", err)
		}
	}
}

func (a *Adapter) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Poll()
		}
	}
}
