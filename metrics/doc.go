// Package metrics exports NoC adapter statistics to Prometheus.
//
// Per-endpoint series carry an "endpoint" label; dropped words also carry a
// "reason" label (malformed, buffer-full, unregistered-class, not-open).
package metrics
