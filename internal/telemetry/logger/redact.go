package logger

import (
	"log/slog"
	"strings"
)

// sensitiveKeyParts mark attribute keys whose string values are hidden.
var sensitiveKeyParts = []string{"password", "secret", "token", "credential", "private"}

// pemMarker marks PEM encoded material (certificates, private keys).
const pemMarker = "-----BEGIN "

const redactedValue = "***REDACTED***"

// redactSensitive is the ReplaceAttr hook of every logger built by New.
// Groups are walked recursively.
func redactSensitive(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		v := a.Value.String()
		switch {
		case strings.Contains(v, pemMarker):
			return slog.String(a.Key, redactedValue)
		case v != "" && IsSensitiveKey(a.Key):
			return slog.String(a.Key, redactedValue)
		case a.Key == "url":
			return slog.String(a.Key, RedactQuery(v))
		}
	case slog.KindGroup:
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}
	return a
}

// RedactQuery hides the query part of a request URL. A Gemini query is
// user input and may answer a sensitive-input (11) prompt.
func RedactQuery(rawURL string) string {
	base, _, ok := strings.Cut(rawURL, "?")
	if !ok {
		return rawURL
	}
	return base + "?" + redactedValue
}

// IsSensitiveKey reports whether an attribute key names secret content.
func IsSensitiveKey(key string) bool {
	key = strings.ToLower(key)
	for _, part := range sensitiveKeyParts {
		if strings.Contains(key, part) {
			return true
		}
	}
	return false
}

// MaskSecret masks a secret for display, keeping two characters at each end.
func MaskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
