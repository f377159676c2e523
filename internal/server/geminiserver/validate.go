package geminiserver

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/idna"
)

// DefaultPort is the Gemini port assumed when a URL has none.
const DefaultPort = 1965

var (
	ErrMissingURL  = errors.New("missing URL")
	ErrInvalidURL  = errors.New("invalid URL")
	ErrRelativeURL = errors.New("relative URLs not allowed")
)

// RefusalError is a well-formed URL the server will not act on
// (answered with 53 PROXY REQUEST REFUSED).
type RefusalError struct {
	// What names the refused target class, e.g. "protocols".
	What string
}

func (e *RefusalError) Error() string {
	return "will not proxy requests for other " + e.What
}

// Policy decides whether a parsed absolute URL is in scope for this server.
// It returns nil to accept, a *RefusalError for out of scope requests, or
// an error wrapping ErrInvalidURL for URLs it cannot interpret.
type Policy interface {
	Accept(u *url.URL) error
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc func(u *url.URL) error

// Accept calls f(u).
func (f PolicyFunc) Accept(u *url.URL) error { return f(u) }

// HostPolicy accepts gemini:// URLs addressed to this server's hostname
// and port. Hostnames are compared case-insensitively in their IDNA ASCII
// form.
type HostPolicy struct {
	Hostname string
	Port     int
}

// Accept implements Policy.
func (p HostPolicy) Accept(u *url.URL) error {
	if u.Scheme != "gemini" {
		return &RefusalError{What: "protocols"}
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}

	port := DefaultPort
	if ps := u.Port(); ps != "" {
		n, err := strconv.Atoi(ps)
		if err != nil || n <= 0 || n > 65535 {
			return fmt.Errorf("%w: bad port %q", ErrInvalidURL, ps)
		}
		port = n
	}

	wantPort := p.Port
	if wantPort == 0 {
		wantPort = DefaultPort
	}
	if normalizeHost(u.Hostname()) != normalizeHost(p.Hostname) || port != wantPort {
		return &RefusalError{What: "hosts or ports"}
	}
	return nil
}

// AcceptAll is the policy of proxy-like servers: any absolute URL is in
// scope.
type AcceptAll struct{}

// Accept implements Policy.
func (AcceptAll) Accept(*url.URL) error { return nil }

func normalizeHost(host string) string {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if ascii, err := idna.Lookup.ToASCII(host); err == nil {
		return ascii
	}
	return host
}

// ValidateURL turns a raw request line into an absolute URL.
//
// Checks run in a fixed order, and the first failure wins: empty line
// (ErrMissingURL), unparsable (ErrInvalidURL), no "://" (ErrRelativeURL),
// then the policy. Conformance tools check for these outcomes in this
// order.
func ValidateURL(raw string, policy Policy) (*url.URL, error) {
	if raw == "" {
		return nil, ErrMissingURL
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	// "/" parses as a URL without error; require the authority marker.
	if !strings.Contains(raw, "://") {
		return nil, ErrRelativeURL
	}
	if u.Scheme == "" {
		return nil, fmt.Errorf("%w: missing scheme", ErrInvalidURL)
	}

	if policy != nil {
		if err := policy.Accept(u); err != nil {
			return nil, err
		}
	}
	return u, nil
}

// rejectURL writes the response for a ValidateURL error.
func rejectURL(w *Response, err error) {
	var refusal *RefusalError
	switch {
	case errors.As(err, &refusal):
		_ = w.ProxyRefused(refusal.What)
	case errors.Is(err, ErrMissingURL):
		_ = w.BadRequest("Missing URL")
	case errors.Is(err, ErrRelativeURL):
		_ = w.BadRequest("Relative URLs not allowed")
	default:
		_ = w.BadRequest("Invalid URL")
	}
}
