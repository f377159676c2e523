package geminiserver

import "testing"

func named(name string) Handler {
	return HandlerFunc(func(w *Response, _ *Request) { _ = w.Success(name) })
}

func matchName(t *testing.T, rt *Router, path string) string {
	t.Helper()
	h, ok := rt.Match(path)
	if !ok {
		return ""
	}
	w := NewResponse(discard{})
	h.ServeGemini(w, nil)
	return w.Meta()
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func TestRoute_Matches(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"/hello", "/hello", true},
		{"/hello", "/hello/world", true},
		{"/hello", "/hellothere", true},
		{"/hello", "/", false},
		{"/hello$", "/hello", true},
		{"/hello$", "/hello/world", false},
		{"/hello$", "/hello/", false},
		{"/Hello", "/hello", true},
		{"/HELLO$", "/hello", true},
		{"/", "/anything", true},
		// A lone "$" is an ordinary prefix pattern.
		{"$", "$", true},
		{"$", "/", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+" "+tt.path, func(t *testing.T) {
			r := NewRoute(tt.pattern, named("x"))
			if got := r.Matches(tt.path); got != tt.want {
				t.Errorf("Route(%q).Matches(%q) = %v, want %v", tt.pattern, tt.path, got, tt.want)
			}
			if r.Pattern() != tt.pattern {
				t.Errorf("Pattern() = %q, want %q", r.Pattern(), tt.pattern)
			}
		})
	}
}

func TestRouter_FirstMatchWins(t *testing.T) {
	var rt Router
	rt.Handle("/hello$", named("exact"))
	rt.Handle("/hello", named("prefix"))
	rt.Handle("/", named("root"))

	tests := map[string]string{
		"/hello":       "exact",
		"/hello/world": "prefix",
		"/other":       "root",
	}
	for path, want := range tests {
		if got := matchName(t, &rt, path); got != want {
			t.Errorf("Match(%q) served %q, want %q", path, got, want)
		}
	}
	if rt.Len() != 3 {
		t.Errorf("Len() = %d, want 3", rt.Len())
	}
}

func TestRouter_NoMatch(t *testing.T) {
	var rt Router
	rt.HandleFunc("/a$", func(w *Response, _ *Request) {})

	if _, ok := rt.Match("/b"); ok {
		t.Error("Match(/b) should fail")
	}
}

func TestNewRoute_Panics(t *testing.T) {
	for name, fn := range map[string]func(){
		"empty pattern": func() { NewRoute("", named("x")) },
		"nil handler":   func() { NewRoute("/x", nil) },
	} {
		t.Run(name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			fn()
		})
	}
}
