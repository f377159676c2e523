// Package command provides the capsule-server command line.
//
// This package defines all commands using urfave/cli/v2:
//
//   - root.go: App, global flags
//   - serve.go: serve (default command) wires config, logging, TLS,
//     access log, metrics and the Gemini server, then waits for shutdown
//   - gencert.go: gencert writes a self-signed certificate
//   - config.go: config show / config check
//   - version.go: version
//
// Commands write to the App's Writer so tests can capture output.
package command
