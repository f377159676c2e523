// Package geminiserver implements a Gemini protocol server.
//
// A client opens a TLS connection, sends one absolute URL terminated by
// CRLF, and receives a status line ("<code> <meta>\r\n") optionally followed
// by a body, after which the server closes the connection.
//
// Request flow for every accepted connection, all on one goroutine:
//
//	TLS handshake -> ReadRequestLine -> ValidateURL (+ Policy)
//	  -> routes -> redirects -> static files -> 51 NOT FOUND
//
// Route and redirect tables are ordered; the first registered match wins.
// They are read-only once Serve has been called.
//
// The package uses only the Go standard library for the wire protocol;
// rate limiting, connection caps and host normalization come from
// golang.org/x/time and golang.org/x/net.
package geminiserver
