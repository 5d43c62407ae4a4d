// Package pkg provides shared utilities for the softnoc adapter core.
//
// This package contains common functionality used by the register window
// implementations, the adapter core and the daemon, including:
//
//   - Structured logging via Go's standard [log/slog] package
//   - Sentinel errors for endpoint and initialization failures
//   - Drop reasons for data discarded on the receive path
//   - Component identifiers for log filtering
//
// # Logging
//
// The logging subsystem wraps [log/slog] with adapter-specific context:
//
//	pkg.SetLogLevel(slog.LevelDebug)
//	pkg.LogInfo(pkg.ComponentAdapter, "endpoint opened", "endpoint", 3)
//
// # Errors
//
// Process-context failures are returned as sentinel values:
//
//	if errors.Is(err, pkg.ErrBusy) {
//	    // Endpoint already has an opener
//	}
//
// Receive-path faults (oversized packets, full rings, unregistered classes)
// are never returned to callers. They are counted per [DropReason].
package pkg
