package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ardnew/softnoc/hal"
	"github.com/ardnew/softnoc/hal/mmio"
	"github.com/ardnew/softnoc/noc"
	"github.com/ardnew/softnoc/pkg"
)

// Defaults for fields outside noc.Config.
const (
	DefaultSimulatedEndpoints = 4
	DefaultMetricsPath        = "/metrics"
	DefaultLogLevel           = "warn"
	DefaultLogFormat          = "text"
)

// File is the daemon configuration document.
type File struct {
	Adapter noc.Config `yaml:"adapter"`
	Window  Window     `yaml:"window"`
	Metrics Metrics    `yaml:"metrics"`
	Log     Log        `yaml:"log"`
}

// Window selects and locates the register window.
type Window struct {
	// Path is the device file mapped for register access, such as /dev/mem
	// or /dev/uio0. An empty path selects the simulated adapter.
	Path   string `yaml:"path"`
	Offset int64  `yaml:"offset"`
	Size   uint32 `yaml:"size"`

	// UIO is the interrupt source device. Without it the adapter polls.
	UIO string `yaml:"uio"`

	// SimulatedEndpoints is the endpoint count of the simulated adapter.
	SimulatedEndpoints int `yaml:"simulated_endpoints"`

	// Loopback routes packets sent on the key endpoint to the value
	// endpoint of the simulated adapter.
	Loopback map[int]int `yaml:"loopback"`
}

// Simulated reports whether the window is the in-memory simulator.
func (w Window) Simulated() bool {
	return w.Path == ""
}

// MMIO returns the mapping options of a device-backed window.
func (w Window) MMIO() mmio.Options {
	return mmio.Options{Path: w.Path, Offset: w.Offset, Size: w.Size}
}

// Metrics configures the Prometheus endpoint. An empty Listen disables it.
type Metrics struct {
	Listen string `yaml:"listen"`
	Path   string `yaml:"path"`
}

// Log configures the shared logger.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Apply installs the level and format on the shared logger.
func (l Log) Apply() error {
	level, ok := pkg.ParseLogLevel(l.Level)
	if !ok {
		return fmt.Errorf("%w: log level %q", pkg.ErrInvalidParameter, l.Level)
	}
	format, ok := pkg.ParseLogFormat(l.Format)
	if !ok {
		return fmt.Errorf("%w: log format %q", pkg.ErrInvalidParameter, l.Format)
	}
	pkg.SetLogFormat(format)
	pkg.SetLogLevel(level)
	return nil
}

// Default returns the configuration used when no file is given: a simulated
// adapter with default parameters and metrics disabled.
func Default() File {
	return File{
		Adapter: noc.DefaultConfig(),
		Window: Window{
			SimulatedEndpoints: DefaultSimulatedEndpoints,
		},
		Metrics: Metrics{
			Path: DefaultMetricsPath,
		},
		Log: Log{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// Load reads and validates the configuration file at path.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read config: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return File{}, fmt.Errorf("%s: %w", path, err)
	}
	pkg.LogDebug(pkg.ComponentConfig, "configuration loaded", "path", path)
	return f, nil
}

// Parse decodes a YAML document over the defaults and validates the result.
// Unknown keys are rejected.
func Parse(data []byte) (File, error) {
	f := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return File{}, fmt.Errorf("%w: %w", pkg.ErrInvalidParameter, err)
	}

	if err := f.Validate(); err != nil {
		return File{}, err
	}
	return f, nil
}

// Validate checks every section.
func (f File) Validate() error {
	if err := f.Adapter.Validate(); err != nil {
		return fmt.Errorf("adapter: %w", err)
	}
	if err := f.Window.validate(); err != nil {
		return fmt.Errorf("window: %w", err)
	}
	if _, ok := pkg.ParseLogLevel(f.Log.Level); !ok {
		return fmt.Errorf("log: %w: level %q", pkg.ErrInvalidParameter, f.Log.Level)
	}
	if _, ok := pkg.ParseLogFormat(f.Log.Format); !ok {
		return fmt.Errorf("log: %w: format %q", pkg.ErrInvalidParameter, f.Log.Format)
	}
	if f.Metrics.Listen != "" && f.Metrics.Path == "" {
		return fmt.Errorf("metrics: %w: empty path", pkg.ErrInvalidParameter)
	}
	return nil
}

func (w Window) validate() error {
	if w.Offset < 0 {
		return fmt.Errorf("%w: negative offset %d", pkg.ErrInvalidParameter, w.Offset)
	}
	if !w.Simulated() {
		if len(w.Loopback) > 0 {
			return fmt.Errorf("%w: loopback requires the simulated window", pkg.ErrInvalidParameter)
		}
		return nil
	}
	n := w.SimulatedEndpoints
	if n < 1 || n > hal.MaxEndpoints {
		return fmt.Errorf("%w: simulated_endpoints %d, need 1-%d",
			pkg.ErrInvalidParameter, n, hal.MaxEndpoints)
	}
	for src, dst := range w.Loopback {
		if src < 0 || src >= n || dst < 0 || dst >= n {
			return fmt.Errorf("%w: loopback %d -> %d outside 0-%d",
				pkg.ErrInvalidParameter, src, dst, n-1)
		}
	}
	return nil
}
