// Package server exposes the scan's operational endpoints while it runs.
//
// MetricsServer serves the Prometheus registry of an instrumentation
// Provider on /metrics, next to liveness and readiness probes:
//   - /healthz reports that the process is alive
//   - /readyz turns ready once the scan has started
//   - /healthz/detailed reports the scan phase and uptime
package server
