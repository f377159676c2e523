package geminiserver

import "strings"

// Handler responds to a Gemini request.
//
// A handler must write exactly one status line through w. If it returns
// without writing anything the server answers 40 on its behalf; if it
// panics the server recovers and reports the failure to the client.
type Handler interface {
	ServeGemini(w *Response, r *Request)
}

// HandlerFunc adapts an ordinary function to Handler.
type HandlerFunc func(w *Response, r *Request)

// ServeGemini calls f(w, r).
func (f HandlerFunc) ServeGemini(w *Response, r *Request) { f(w, r) }

// exactSuffix marks a pattern that must match the whole route path.
const exactSuffix = "$"

// Route binds a path pattern to a handler.
//
// Patterns are compared against the lower-cased decoded request path. A
// pattern ending in "$" (and longer than "$" itself) matches only that
// exact path; any other pattern matches by prefix.
type Route struct {
	pattern string
	match   string
	exact   bool
	handler Handler
}

// NewRoute compiles pattern. It panics if pattern is empty or h is nil.
func NewRoute(pattern string, h Handler) Route {
	if pattern == "" {
		panic("geminiserver: empty route pattern")
	}
	if h == nil {
		panic("geminiserver: nil handler for route " + pattern)
	}

	r := Route{pattern: pattern, match: strings.ToLower(pattern), handler: h}
	if len(r.match) > 1 && strings.HasSuffix(r.match, exactSuffix) {
		r.exact = true
		r.match = strings.TrimSuffix(r.match, exactSuffix)
	}
	return r
}

// Pattern returns the pattern as registered.
func (r Route) Pattern() string { return r.pattern }

// Matches reports whether the route applies to the lower-cased path.
func (r Route) Matches(path string) bool {
	if r.exact {
		return path == r.match
	}
	return strings.HasPrefix(path, r.match)
}

// Router is an ordered list of routes. The first matching route wins.
type Router struct {
	routes []Route
}

// Handle appends a route.
func (rt *Router) Handle(pattern string, h Handler) {
	rt.routes = append(rt.routes, NewRoute(pattern, h))
}

// HandleFunc appends a route for a plain function.
func (rt *Router) HandleFunc(pattern string, f func(w *Response, r *Request)) {
	rt.Handle(pattern, HandlerFunc(f))
}

// Match returns the handler of the first route matching path.
func (rt *Router) Match(path string) (Handler, bool) {
	for _, r := range rt.routes {
		if r.Matches(path) {
			return r.handler, true
		}
	}
	return nil, false
}

// Len returns the number of routes.
func (rt *Router) Len() int { return len(rt.routes) }
