// Package shutdown provides graceful shutdown for Capsule.
//
// A Handler waits for SIGINT/SIGTERM (or an explicit Trigger), then runs
// the registered hooks in reverse registration order under a shared
// timeout: the listener is closed first, in-flight connections drain, and
// the access log is flushed last.
package shutdown
