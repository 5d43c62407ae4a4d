package pkg

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
)

// Component identifies a subsystem in log records.
type Component string

// Adapter component identifiers.
const (
	ComponentAdapter  Component = "adapter"
	ComponentMux      Component = "mux"
	ComponentEndpoint Component = "endpoint"
	ComponentDispatch Component = "dispatch"
	ComponentHAL      Component = "hal"
	ComponentConfig   Component = "config"
	ComponentMetrics  Component = "metrics"
)

// LogFormat specifies the output format for logging.
type LogFormat int

// Log format options.
const (
	LogFormatText LogFormat = iota // Text format (default)
	LogFormatJSON                  // JSON format
)

var (
	// logLevel is shared by every logger created in this package, so a level
	// change applies to loggers handed out earlier.
	logLevel = new(slog.LevelVar)

	logger atomic.Pointer[slog.Logger]

	// componentLoggers caches one derived logger per component for the
	// logger it was derived from.
	componentLoggers sync.Map // Component -> *componentLogger
)

type componentLogger struct {
	base    *slog.Logger
	derived *slog.Logger
}

func init() {
	logLevel.Set(slog.LevelWarn)
	logger.Store(NewLogger(os.Stderr, LogFormatText))
}

// SetLogLevel sets the minimum level of the package loggers.
func SetLogLevel(level slog.Level) {
	logLevel.Set(level)
}

// GetLogLevel returns the minimum level of the package loggers.
func GetLogLevel() slog.Level {
	return logLevel.Level()
}

// SetLogger replaces the logger used by the Log functions.
func SetLogger(l *slog.Logger) {
	logger.Store(l)
}

// CurrentLogger returns the logger used by the Log functions.
func CurrentLogger() *slog.Logger {
	return logger.Load()
}

// SetLogFormat replaces the logger with one writing the given format to
// os.Stderr at the package level.
func SetLogFormat(format LogFormat) {
	SetLogger(NewLogger(os.Stderr, format))
}

// NewLogger creates a logger writing the given format to w, filtered by the
// package level.
func NewLogger(w io.Writer, format LogFormat) *slog.Logger {
	opts := &slog.HandlerOptions{Level: logLevel}
	if format == LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ParseLogLevel converts a level name (debug, info, warn, error) into a
// slog.Level. Unknown names return false.
func ParseLogLevel(name string) (slog.Level, bool) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelWarn, false
	}
	return level, true
}

// ParseLogFormat converts "text" or "json" into a LogFormat.
func ParseLogFormat(name string) (LogFormat, bool) {
	switch name {
	case "", "text":
		return LogFormatText, true
	case "json":
		return LogFormatJSON, true
	default:
		return LogFormatText, false
	}
}

// Logger returns the current logger tagged with component.
func Logger(component Component) *slog.Logger {
	base := logger.Load()
	if v, ok := componentLoggers.Load(component); ok {
		if c := v.(*componentLogger); c.base == base {
			return c.derived
		}
	}
	derived := base.With("component", string(component))
	componentLoggers.Store(component, &componentLogger{base: base, derived: derived})
	return derived
}

// LogEnabled reports whether a record at level for component would be
// written.
func LogEnabled(component Component, level slog.Level) bool {
	return Logger(component).Enabled(context.Background(), level)
}

// LogDebug logs a debug message with the given component.
func LogDebug(component Component, msg string, args ...any) {
	logAt(component, slog.LevelDebug, msg, args)
}

// LogInfo logs an info message with the given component.
func LogInfo(component Component, msg string, args ...any) {
	logAt(component, slog.LevelInfo, msg, args)
}

// LogWarn logs a warning message with the given component.
func LogWarn(component Component, msg string, args ...any) {
	logAt(component, slog.LevelWarn, msg, args)
}

// LogError logs an error message with the given component.
func LogError(component Component, msg string, args ...any) {
	logAt(component, slog.LevelError, msg, args)
}

// logAt checks the level before building the record; the receive path logs
// from inside the multiplexer.
func logAt(component Component, level slog.Level, msg string, args []any) {
	l := Logger(component)
	ctx := context.Background()
	if !l.Enabled(ctx, level) {
		return
	}
	l.Log(ctx, level, msg, args...)
}
