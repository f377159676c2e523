// Package tlscert provides the server's TLS credential.
//
//   - credential.go: key pair loading and the server tls.Config
//     (TLS 1.2 and 1.3 only)
//   - generate.go: self-signed certificate generation for capsules that
//     rely on trust-on-first-use
//   - watcher.go: certificate hot-reload via fsnotify
//
// The rest of the server only sees a Source, an opaque provider of the
// current certificate.
package tlscert
