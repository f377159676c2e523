// Package logger provides structured logging for Capsule.
//
// Two sinks live here:
//
//   - logger.go: operational logging built on log/slog (JSON or text),
//     with a process-wide level that can be changed at runtime
//   - access.go: the request access log, one W3C-style line per completed
//     request, serialized across connection goroutines
//
// Supporting files:
//
//   - context.go: connection IDs carried in a context, added as conn_id
//     by the handler New builds
//   - redact.go: sensitive attribute redaction
package logger
