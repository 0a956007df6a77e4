// Package routes maps request paths onto coarse route classes. The class is
// part of the decision-cache key, so two endpoints in the same class share
// cached method selections while distinct classes stay isolated.
package routes

import (
	"path"
	"sort"
	"strings"
)

// DefaultClass is returned when no pattern matches.
const DefaultClass = "default"

type mapping struct {
	pattern string
	class   string
}

// Matcher resolves a request path to a route class. Patterns support globs:
//   - "api/v1/*"  — matches one additional path segment
//   - "admin/**"  — matches any number of segments (including zero)
//   - "*"         — matches any path entirely
//
// More specific (longer) patterns win over shorter ones.
type Matcher struct {
	mappings []mapping
}

// NewMatcher builds a Matcher from a pattern-to-class table.
func NewMatcher(classes map[string]string) *Matcher {
	m := &Matcher{mappings: make([]mapping, 0, len(classes))}
	for pattern, class := range classes {
		m.mappings = append(m.mappings, mapping{
			pattern: strings.TrimPrefix(pattern, "/"),
			class:   class,
		})
	}
	sort.Slice(m.mappings, func(i, j int) bool {
		a, b := m.mappings[i], m.mappings[j]
		if len(a.pattern) != len(b.pattern) {
			return len(a.pattern) > len(b.pattern)
		}
		return a.pattern < b.pattern
	})
	return m
}

// Class returns the route class for reqPath.
func (m *Matcher) Class(reqPath string) string {
	// Strip any query string first; classes are path-shaped.
	if i := strings.IndexByte(reqPath, '?'); i >= 0 {
		reqPath = reqPath[:i]
	}
	reqPath = strings.TrimPrefix(reqPath, "/")

	for _, mp := range m.mappings {
		if matchPath(mp.pattern, reqPath) {
			return mp.class
		}
	}
	return DefaultClass
}

// matchPath matches reqPath against a glob pattern.
func matchPath(pattern, reqPath string) bool {
	if pattern == "*" {
		return true
	}

	// Handle "**" — everything after the prefix
	if strings.Contains(pattern, "**") {
		parts := strings.SplitN(pattern, "**", 2)
		prefix := parts[0]
		suffix := parts[1]
		if !strings.HasPrefix(reqPath, prefix) {
			return false
		}
		rest := reqPath[len(prefix):]
		if suffix == "" || suffix == "/" {
			return true
		}
		return strings.HasSuffix(rest, strings.TrimPrefix(suffix, "/"))
	}

	matched, err := path.Match(pattern, reqPath)
	if err != nil {
		return false
	}
	return matched
}
