// Package metric provides Prometheus metrics for Capsule.
//
// The Registry groups the collectors updated by the Gemini connection
// handler: connection counts, TLS handshake failures, responses by status
// code, bytes sent, request latency, handler panics, rejected traversal
// attempts and rate-limited requests. Handler exposes them for scraping.
package metric
