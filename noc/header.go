package noc

import "fmt"

// Header field layout of payload word 0 in classified traffic.
const (
	headerDestShift  = 27
	headerDestMask   = 0x1F
	headerClassShift = 24
	headerClassMask  = 0x7
	headerSrcShift   = 19
	headerSrcMask    = 0x1F

	// Control-class fields
	headerReadyBit = 1 << 1
	headerEPShift  = 2
	headerEPMask   = 0xFF
)

// NumClasses is the number of distinct packet classes.
const NumClasses = 8

// ClassControl is the reserved class carrying domain readiness notifications.
const ClassControl = NumClasses - 1

// MaxTiles is the number of addressable tiles (5-bit tile ids).
const MaxTiles = headerDestMask + 1

// MaxRemoteEndpoints is the number of endpoint ids a control packet can name.
const MaxRemoteEndpoints = headerEPMask + 1

// Header is the decoded first payload word of a classified packet.
type Header struct {
	Dest  uint8 // Destination tile id (0-31)
	Class uint8 // Packet class (0-7)
	Src   uint8 // Source tile id (0-31)

	// Control-class fields, meaningful only when Class == ClassControl
	Ready    bool  // Source domain endpoint is ready
	Endpoint uint8 // Source endpoint id
}

// ParseHeader decodes a header word.
func ParseHeader(w uint32) Header {
	h := Header{
		Dest:  uint8(w >> headerDestShift & headerDestMask),
		Class: uint8(w >> headerClassShift & headerClassMask),
		Src:   uint8(w >> headerSrcShift & headerSrcMask),
	}
	if h.Class == ClassControl {
		h.Ready = w&headerReadyBit != 0
		h.Endpoint = uint8(w >> headerEPShift & headerEPMask)
	}
	return h
}

// Word encodes the header. Fields are truncated to their bit widths; the
// control fields are only encoded for ClassControl.
func (h Header) Word() uint32 {
	w := uint32(h.Dest&headerDestMask)<<headerDestShift |
		uint32(h.Class&headerClassMask)<<headerClassShift |
		uint32(h.Src&headerSrcMask)<<headerSrcShift
	if h.Class&headerClassMask == ClassControl {
		w |= uint32(h.Endpoint) << headerEPShift
		if h.Ready {
			w |= headerReadyBit
		}
	}
	return w
}

// IsControl reports whether the header belongs to the reserved control class.
func (h Header) IsControl() bool {
	return h.Class == ClassControl
}

// ControlHeader builds a readiness notification from tile src about its
// endpoint ep, addressed to tile dest.
func ControlHeader(dest, src, ep uint8, ready bool) Header {
	return Header{
		Dest:     dest,
		Class:    ClassControl,
		Src:      src,
		Ready:    ready,
		Endpoint: ep,
	}
}

// String returns a human-readable header description.
func (h Header) String() string {
	if h.IsControl() {
		return fmt.Sprintf("dst=%d class=%d src=%d ready=%t ep=%d",
			h.Dest, h.Class, h.Src, h.Ready, h.Endpoint)
	}
	return fmt.Sprintf("dst=%d class=%d src=%d", h.Dest, h.Class, h.Src)
}
