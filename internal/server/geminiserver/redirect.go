package geminiserver

import "strings"

// Redirect sends requests whose route path starts with Prefix to Target.
// The zero value of Permanent means a temporary (30) redirect.
type Redirect struct {
	Prefix    string
	Target    string
	Permanent bool
}

// Status returns the status code the redirect is answered with.
func (r Redirect) Status() Status {
	if r.Permanent {
		return StatusRedirectPermanent
	}
	return StatusRedirectTemporary
}

// RedirectTable is an ordered list of redirects. The first match wins.
type RedirectTable struct {
	rules []Redirect
}

// Add appends a rule. The prefix is lower-cased to match route paths.
func (t *RedirectTable) Add(r Redirect) {
	r.Prefix = strings.ToLower(r.Prefix)
	t.rules = append(t.rules, r)
}

// Match returns the first rule whose prefix matches path.
func (t *RedirectTable) Match(path string) (Redirect, bool) {
	for _, r := range t.rules {
		if strings.HasPrefix(path, r.Prefix) {
			return r, true
		}
	}
	return Redirect{}, false
}

// Len returns the number of rules.
func (t *RedirectTable) Len() int { return len(t.rules) }
