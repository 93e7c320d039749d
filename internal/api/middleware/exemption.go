package middleware

import (
	"path"
	"strings"
)

// ExemptionMatcher matches request paths against Ant-style patterns:
// "*" matches within one segment, "?" one character, and "**" any number of
// segments including none. "/api/v1/templates/**" therefore matches both
// "/api/v1/templates" and "/api/v1/templates/a/b".
type ExemptionMatcher struct {
	patterns [][]string
}

// NewExemptionMatcher compiles patterns; blank entries are ignored.
func NewExemptionMatcher(patterns []string) *ExemptionMatcher {
	m := &ExemptionMatcher{}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		m.patterns = append(m.patterns, splitPath(p))
	}
	return m
}

// Match reports whether urlPath matches any pattern.
func (m *ExemptionMatcher) Match(urlPath string) bool {
	if m == nil {
		return false
	}
	segs := splitPath(urlPath)
	for _, p := range m.patterns {
		if matchSegments(p, segs) {
			return true
		}
	}
	return false
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

func matchSegments(pattern, segs []string) bool {
	for len(pattern) > 0 {
		if pattern[0] == "**" {
			rest := pattern[1:]
			if len(rest) == 0 {
				return true
			}
			for i := 0; i <= len(segs); i++ {
				if matchSegments(rest, segs[i:]) {
					return true
				}
			}
			return false
		}
		if len(segs) == 0 {
			return false
		}
		if ok, err := path.Match(pattern[0], segs[0]); err != nil || !ok {
			return false
		}
		pattern, segs = pattern[1:], segs[1:]
	}
	return len(segs) == 0
}
