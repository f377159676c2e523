// Package staticfile maps Gemini request paths onto files below a public
// root directory.
//
// Resolve never touches the network: it returns a Result describing what
// the connection handler should send (a file and its MIME type, a
// trailing-slash redirect, a rejected traversal attempt, or nothing).
// Every resolved path is canonicalized, symlinks included, and must stay
// inside the canonical public root.
package staticfile
