// Package main provides the entry point for capsule-server.
//
// capsule-server speaks the Gemini protocol over TLS. It serves registered
// routes, configured redirects and files below a public root.
//
// Usage:
//
//	capsule-server [--config capsule.yaml] [serve]
//	capsule-server gencert --host gemini.example
//	capsule-server config check
//	capsule-server version -o json
//
// Without a subcommand the server is started.
package main
