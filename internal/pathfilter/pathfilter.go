// Package pathfilter narrows changed-file lists via path glob patterns.
package pathfilter

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
)

// Filter matches file paths against a set of glob patterns.
type Filter struct {
	patterns []string
}

// New creates a filter from doublestar glob patterns. Each pattern is
// validated up front so a bad CLI argument fails before any git work.
func New(patterns []string) (*Filter, error) {
	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid glob pattern: %q", pattern)
		}
	}
	return &Filter{patterns: patterns}, nil
}

// Match reports whether the path matches any pattern. A filter with
// no patterns matches everything.
func (f *Filter) Match(path string) bool {
	if len(f.patterns) == 0 {
		return true
	}
	for _, pattern := range f.patterns {
		match, err := doublestar.Match(pattern, path)
		if err != nil {
			continue
		}
		if match {
			return true
		}
	}
	return false
}

// Apply returns the paths that match, preserving input order.
func (f *Filter) Apply(paths []string) []string {
	if len(f.patterns) == 0 {
		return paths
	}
	var matched []string
	for _, path := range paths {
		if f.Match(path) {
			matched = append(matched, path)
		}
	}
	return matched
}
