// Package search finds folders and recordings by name anywhere under a
// directory, independently of the navigation position.
package search

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Query is a parsed search string.
type Query struct {
	Raw    string
	folded string
}

// Parse prepares input for matching. Surrounding whitespace is ignored.
func Parse(input string) *Query {
	return &Query{
		Raw:    input,
		folded: fold(strings.TrimSpace(input)),
	}
}

// IsEmpty reports whether the query matches nothing. Empty queries never
// trigger a traversal.
func (q *Query) IsEmpty() bool {
	return q.folded == ""
}

// Matcher tests entry names against a query. It is safe for concurrent use.
type Matcher struct {
	q *Query
}

// NewMatcher returns a matcher for q.
func NewMatcher(q *Query) *Matcher {
	return &Matcher{q: q}
}

// Match reports whether name contains the query, ignoring case and Unicode
// normalization differences.
func (m *Matcher) Match(name string) bool {
	if m.q.IsEmpty() {
		return false
	}
	return strings.Contains(fold(name), m.q.folded)
}

func fold(s string) string {
	return strings.ToLower(norm.NFC.String(s))
}
