package mmio

import (
	"fmt"

	"github.com/ardnew/softnoc/hal"
	"github.com/ardnew/softnoc/pkg"
)

// DefaultPath is the device file mapped when Options.Path is empty.
const DefaultPath = "/dev/mem"

// Options describes the register window mapping.
type Options struct {
	Path   string // Device file (e.g. /dev/mem or /dev/uio0)
	Offset int64  // Physical base address or UIO map offset, page aligned
	Size   uint32 // Bytes to map; zero maps room for hal.MaxEndpoints
}

func (o *Options) validate() error {
	if o.Path == "" {
		o.Path = DefaultPath
	}
	if o.Size == 0 {
		o.Size = hal.WindowSize(hal.MaxEndpoints)
	}
	if o.Offset < 0 {
		return fmt.Errorf("negative window offset %d: %w", o.Offset, pkg.ErrInvalidParameter)
	}
	if o.Size < hal.WindowSize(1) {
		return fmt.Errorf("window size 0x%X below one endpoint block: %w", o.Size, pkg.ErrInvalidParameter)
	}
	return nil
}
