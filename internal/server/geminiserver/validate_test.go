package geminiserver

import (
	"bytes"
	"errors"
	"net/url"
	"strings"
	"testing"
)

func TestValidateURL(t *testing.T) {
	policy := HostPolicy{Hostname: "example.com", Port: 1965}

	tests := []struct {
		name        string
		raw         string
		wantErr     error
		wantRefusal string
	}{
		{name: "valid", raw: "gemini://example.com/"},
		{name: "valid with explicit port", raw: "gemini://example.com:1965/docs"},
		{name: "host is case insensitive", raw: "gemini://EXAMPLE.com/"},
		{name: "trailing dot host", raw: "gemini://example.com./"},
		{name: "no path", raw: "gemini://example.com"},
		{name: "empty", raw: "", wantErr: ErrMissingURL},
		{name: "unparsable host", raw: "gemini://exa mple.com/", wantErr: ErrInvalidURL},
		{name: "missing scheme", raw: "://example.com/", wantErr: ErrInvalidURL},
		{name: "bad port", raw: "gemini://example.com:abc/", wantErr: ErrInvalidURL},
		{name: "no host", raw: "gemini:///path", wantErr: ErrInvalidURL},
		{name: "relative path", raw: "/", wantErr: ErrRelativeURL},
		{name: "schemeless host", raw: "example.com/foo", wantErr: ErrRelativeURL},
		{name: "opaque URL", raw: "mailto:someone@example.com", wantErr: ErrRelativeURL},
		{name: "other scheme", raw: "https://example.com/", wantRefusal: "protocols"},
		{name: "other host", raw: "gemini://other.example/", wantRefusal: "hosts or ports"},
		{name: "other port", raw: "gemini://example.com:1966/", wantRefusal: "hosts or ports"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := ValidateURL(tt.raw, policy)

			switch {
			case tt.wantRefusal != "":
				var refusal *RefusalError
				if !errors.As(err, &refusal) {
					t.Fatalf("ValidateURL(%q) error = %v, want *RefusalError", tt.raw, err)
				}
				if refusal.What != tt.wantRefusal {
					t.Errorf("refusal.What = %q, want %q", refusal.What, tt.wantRefusal)
				}
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ValidateURL(%q) error = %v, want %v", tt.raw, err, tt.wantErr)
				}
			default:
				if err != nil {
					t.Fatalf("ValidateURL(%q) unexpected error: %v", tt.raw, err)
				}
				if u == nil {
					t.Fatal("ValidateURL() returned nil URL")
				}
			}
		})
	}
}

func TestHostPolicy_IDNA(t *testing.T) {
	policy := HostPolicy{Hostname: "bücher.example", Port: 1965}

	u, _ := url.Parse("gemini://xn--bcher-kva.example/")
	if err := policy.Accept(u); err != nil {
		t.Errorf("punycode host should match unicode hostname: %v", err)
	}
}

func TestHostPolicy_DefaultPort(t *testing.T) {
	policy := HostPolicy{Hostname: "localhost"}

	u, _ := url.Parse("gemini://localhost:1965/")
	if err := policy.Accept(u); err != nil {
		t.Errorf("zero Port should mean 1965: %v", err)
	}
}

func TestAcceptAll(t *testing.T) {
	u, err := ValidateURL("https://anywhere.example:8443/x", AcceptAll{})
	if err != nil {
		t.Fatalf("AcceptAll should accept any absolute URL: %v", err)
	}
	if u.Host != "anywhere.example:8443" {
		t.Errorf("Host = %q", u.Host)
	}

	// Framing checks still apply.
	if _, err := ValidateURL("/relative", AcceptAll{}); !errors.Is(err, ErrRelativeURL) {
		t.Errorf("error = %v, want ErrRelativeURL", err)
	}
}

func TestPolicyFunc(t *testing.T) {
	deny := PolicyFunc(func(*url.URL) error { return &RefusalError{What: "protocols"} })

	_, err := ValidateURL("gemini://localhost/", deny)
	var refusal *RefusalError
	if !errors.As(err, &refusal) {
		t.Fatalf("error = %v, want *RefusalError", err)
	}
}

func TestRejectURL(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrMissingURL, "59 Missing URL\r\n"},
		{ErrInvalidURL, "59 Invalid URL\r\n"},
		{ErrRelativeURL, "59 Relative URLs not allowed\r\n"},
		{&RefusalError{What: "protocols"}, "53 Will not proxy requests for other protocols\r\n"},
		{&RefusalError{What: "hosts or ports"}, "53 Will not proxy requests for other hosts or ports\r\n"},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.want), func(t *testing.T) {
			var buf bytes.Buffer
			w := NewResponse(&buf)
			rejectURL(w, tt.err)
			_ = w.Flush()

			if buf.String() != tt.want {
				t.Errorf("response = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}
