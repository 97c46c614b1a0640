// Package telemetry provides structured logging, metrics and tracing for
// the fabricward reconciliation engine.
//
//   - Logger wraps zerolog with run/entity field helpers and honors the
//     harness log parameters (level, file path, append, console/json)
//   - Metrics exposes a Prometheus registry covering gateway requests,
//     task polling, reconcile outcomes and active LAN automation sessions
//   - Tracer emits one OpenTelemetry span per pipeline phase, exported to
//     stdout or kept in-process
package telemetry
