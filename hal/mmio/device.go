package mmio

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/ardnew/softnoc/hal"
)

// Device is a mapped register window whose interrupt is delivered through a
// UIO device node.
type Device struct {
	*Window
	*UIO
}

// OpenDevice maps the window described by opts and opens the UIO interrupt
// source at uioPath. The mapping is released if the interrupt source cannot
// be opened.
func OpenDevice(opts Options, uioPath string) (*Device, error) {
	win, err := Open(opts)
	if err != nil {
		return nil, err
	}
	irq, err := OpenUIO(uioPath)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("open interrupt source: %w", err), win.Close())
	}
	return &Device{Window: win, UIO: irq}, nil
}

// Close releases the interrupt source and then the mapping.
func (d *Device) Close() error {
	return multierr.Append(d.UIO.Close(), d.Window.Close())
}

var (
	_ hal.Window      = (*Device)(nil)
	_ hal.Sizer       = (*Device)(nil)
	_ hal.Interrupter = (*Device)(nil)
)
