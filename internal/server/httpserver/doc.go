// Package httpserver provides the operator HTTP endpoint for Capsule.
//
// It serves Prometheus metrics, a liveness probe and build information on a
// separate plain HTTP listener (metrics.addr). Gemini traffic never passes
// through it.
//
// It uses the Go standard library net/http; metrics exposition comes from
// promhttp via internal/telemetry/metric.
package httpserver
