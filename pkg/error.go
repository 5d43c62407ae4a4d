package pkg

import "errors"

// Adapter errors.
var (
	// ErrBusy indicates the endpoint is already open.
	ErrBusy = errors.New("device busy")

	// ErrInvalidEndpoint indicates an endpoint index outside the hardware range.
	ErrInvalidEndpoint = errors.New("invalid endpoint")

	// ErrNotOpen indicates the endpoint has not been opened.
	ErrNotOpen = errors.New("endpoint not open")

	// ErrClosed indicates the endpoint was released while an operation was pending.
	ErrClosed = errors.New("endpoint closed")

	// ErrInvalidClass indicates a packet class id outside 0-7.
	ErrInvalidClass = errors.New("invalid packet class")

	// ErrNoDevice indicates the register window reports no endpoints.
	ErrNoDevice = errors.New("device not present")

	// ErrTooManyEndpoints indicates the register window reports more endpoints
	// than the adapter supports.
	ErrTooManyEndpoints = errors.New("too many endpoints")

	// ErrInvalidParameter indicates an invalid parameter was provided.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrNotSupported indicates an unsupported operation or feature.
	ErrNotSupported = errors.New("not supported")

	// ErrAlreadyRunning indicates the adapter service is already running.
	ErrAlreadyRunning = errors.New("already running")

	// ErrCancelled indicates a wait was cancelled by shutdown.
	ErrCancelled = errors.New("operation cancelled")
)

// DropReason records why the receive path discarded data. Drops are never
// surfaced to readers; they are only counted and logged.
type DropReason int

// Drop reasons.
const (
	DropNone              DropReason = iota // Not dropped
	DropMalformed                           // Length word above the packet limit
	DropBufferFull                          // Endpoint ring had no free slot
	DropUnregisteredClass                   // No handler for the header class
	DropNotOpen                             // Endpoint has no opener
)

// NumDropReasons is the number of DropReason values, including DropNone.
const NumDropReasons = 5

// String returns a string representation of the drop reason.
func (r DropReason) String() string {
	switch r {
	case DropNone:
		return "none"
	case DropMalformed:
		return "malformed"
	case DropBufferFull:
		return "buffer-full"
	case DropUnregisteredClass:
		return "unregistered-class"
	case DropNotOpen:
		return "not-open"
	default:
		return "unknown"
	}
}
