package noc

import (
	"fmt"
	"strings"
	"time"

	"github.com/ardnew/softnoc/pkg"
)

// Default configuration values.
const (
	DefaultBufferWords     = 32
	DefaultMaxPacketWords  = 32
	DefaultMaxPasses       = 1024
	DefaultPollInterval    = time.Millisecond
	DefaultDiagnosticRate  = 10
	DefaultDiagnosticBurst = 5
)

// Mode selects how the multiplexer routes received packets.
type Mode int

// Receive modes.
const (
	// ModeBuffered queues every payload word on the receiving endpoint's ring.
	ModeBuffered Mode = iota
	// ModeClassified decodes the header word and dispatches by packet class.
	ModeClassified
)

// String returns the configuration name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeBuffered:
		return "buffered"
	case ModeClassified:
		return "classified"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if m != ModeBuffered && m != ModeClassified {
		return nil, fmt.Errorf("%w: mode %d", pkg.ErrInvalidParameter, int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "buffered", "":
		*m = ModeBuffered
	case "classified":
		*m = ModeClassified
	default:
		return fmt.Errorf("%w: unknown mode %q", pkg.ErrInvalidParameter, text)
	}
	return nil
}

// Config holds adapter parameters.
type Config struct {
	// BufferWords is the number of ring slots per endpoint. One slot is
	// reserved, so an endpoint queues at most BufferWords-1 words.
	BufferWords int `yaml:"buffer_words"`

	// MaxPacketWords is the largest accepted payload length. Longer packets
	// are drained from the port and discarded.
	MaxPacketWords int `yaml:"max_packet_words"`

	// Mode selects buffered or classified receive.
	Mode Mode `yaml:"mode"`

	// MaxPasses bounds the number of scans a single Poll performs before it
	// gives up on reaching quiescence.
	MaxPasses int `yaml:"max_passes"`

	// PollInterval is the scan period used when the register window cannot
	// deliver interrupts.
	PollInterval time.Duration `yaml:"poll_interval"`

	// DiagnosticRate and DiagnosticBurst throttle unregistered-class
	// warnings, per class, in messages per second.
	DiagnosticRate  int `yaml:"diagnostic_rate"`
	DiagnosticBurst int `yaml:"diagnostic_burst"`
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		BufferWords:     DefaultBufferWords,
		MaxPacketWords:  DefaultMaxPacketWords,
		Mode:            ModeBuffered,
		MaxPasses:       DefaultMaxPasses,
		PollInterval:    DefaultPollInterval,
		DiagnosticRate:  DefaultDiagnosticRate,
		DiagnosticBurst: DefaultDiagnosticBurst,
	}
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	switch {
	case c.BufferWords < 2:
		return fmt.Errorf("%w: buffer_words %d, need at least 2", pkg.ErrInvalidParameter, c.BufferWords)
	case c.MaxPacketWords < 1:
		return fmt.Errorf("%w: max_packet_words %d, need at least 1", pkg.ErrInvalidParameter, c.MaxPacketWords)
	case c.Mode != ModeBuffered && c.Mode != ModeClassified:
		return fmt.Errorf("%w: mode %d", pkg.ErrInvalidParameter, int(c.Mode))
	case c.MaxPasses < 1:
		return fmt.Errorf("%w: max_passes %d, need at least 1", pkg.ErrInvalidParameter, c.MaxPasses)
	case c.PollInterval <= 0:
		return fmt.Errorf("%w: poll_interval %s", pkg.ErrInvalidParameter, c.PollInterval)
	case c.DiagnosticRate < 1:
		return fmt.Errorf("%w: diagnostic_rate %d, need at least 1", pkg.ErrInvalidParameter, c.DiagnosticRate)
	case c.DiagnosticBurst < 1:
		return fmt.Errorf("%w: diagnostic_burst %d, need at least 1", pkg.ErrInvalidParameter, c.DiagnosticBurst)
	}
	return nil
}
