package geminiserver

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// MaxURLSize is the longest URL a client may send.
	MaxURLSize = 1024
	// MaxRequestSize is MaxURLSize plus the terminating CRLF.
	MaxRequestSize = MaxURLSize + 2
)

var (
	// ErrMalformedRequest covers framing and encoding errors.
	ErrMalformedRequest = errors.New("geminiserver: malformed request")

	// ErrRequestTooLarge is returned when no CRLF arrives within the limit.
	ErrRequestTooLarge = errors.New("geminiserver: request too large")
)

// RequestError is a request line that could not be framed or decoded.
// Reason is suitable as the meta of a 59 response.
type RequestError struct {
	Kind   error
	Reason string
}

func (e *RequestError) Error() string { return e.Kind.Error() + ": " + e.Reason }

func (e *RequestError) Unwrap() error { return e.Kind }

// ReadRequestLine reads one CRLF terminated request line from r, one byte
// at a time, so slow or fragmented delivery is tolerated.
//
// On a *RequestError the bytes read so far are returned alongside the
// error for logging. A connection closed before any byte arrived yields
// ("", nil); the empty line is then rejected as a missing URL. Other I/O
// errors (timeouts, resets) are returned unchanged.
func ReadRequestLine(r io.ByteReader) (string, error) {
	buf := make([]byte, 0, 64)
	for {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF {
				if len(buf) == 0 {
					return "", nil
				}
				return string(buf), &RequestError{Kind: ErrMalformedRequest, Reason: "request line missing CRLF"}
			}
			return string(buf), err
		}

		if b == '\r' {
			next, err := r.ReadByte()
			if err != nil && err != io.EOF {
				return string(buf), err
			}
			if err == io.EOF || next != '\n' {
				return string(buf), &RequestError{Kind: ErrMalformedRequest, Reason: "request line missing LF after CR"}
			}
			break
		}

		if len(buf) >= MaxRequestSize {
			return string(buf), &RequestError{Kind: ErrRequestTooLarge, Reason: "no CRLF within 1026 bytes of request line"}
		}
		buf = append(buf, b)
	}

	if len(buf) > MaxURLSize {
		return string(buf), &RequestError{Kind: ErrRequestTooLarge, Reason: "URL exceeds 1024 bytes"}
	}
	if !utf8.Valid(buf) {
		return string(buf), &RequestError{Kind: ErrMalformedRequest, Reason: "request line is not valid UTF-8"}
	}
	return string(buf), nil
}

// Request is a validated Gemini request. It is immutable.
type Request struct {
	ctx        context.Context
	received   time.Time
	remoteAddr string
	url        url.URL
}

// NewRequest creates a Request for an already validated URL.
func NewRequest(ctx context.Context, u *url.URL, remoteAddr string, received time.Time) *Request {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Request{
		ctx:        ctx,
		received:   received,
		remoteAddr: remoteAddr,
		url:        *u,
	}
}

// Context returns the connection context.
func (r *Request) Context() context.Context { return r.ctx }

// Received returns when the connection was accepted.
func (r *Request) Received() time.Time { return r.received }

// RemoteAddr returns the client IP, or the masking sentinel.
func (r *Request) RemoteAddr() string { return r.remoteAddr }

// URL returns a copy of the request URL.
func (r *Request) URL() *url.URL {
	u := r.url
	return &u
}

// Route returns the percent-decoded, lower-cased path used for matching.
// A URL without a path (gemini://host) routes as "/".
func (r *Request) Route() string {
	if r.url.Path == "" {
		return "/"
	}
	return strings.ToLower(r.url.Path)
}

// Query returns the decoded query string, which carries the user's answer
// to an input (1x) prompt.
func (r *Request) Query() (string, error) {
	return url.QueryUnescape(r.url.RawQuery)
}
