// Package httpserver wraps net/http with context-driven graceful shutdown
// and functional options. Run serves until its context is cancelled, then
// drains in-flight requests within a bounded timeout; signal handling is the
// caller's responsibility. Liveness and readiness probes come from
// HealthCheckHandler.
package httpserver
