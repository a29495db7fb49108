package pathfilter

import (
	"testing"
)

func TestNewRejectsInvalidPattern(t *testing.T) {
	if _, err := New([]string{"src/["}); err == nil {
		t.Fatalf("New with invalid pattern did not fail")
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		path     string
		expected bool
	}{
		{"no patterns match everything", nil, "src/a.cpp", true},
		{"doublestar", []string{"src/**"}, "src/db/index.cpp", true},
		{"extension", []string{"**/*.py"}, "buildscripts/lint.py", true},
		{"non-match", []string{"**/*.py"}, "src/a.cpp", false},
		{"any of several", []string{"docs/**", "src/**"}, "src/a.cpp", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := New(tt.patterns)
			if err != nil {
				t.Fatalf("New returned error: %v", err)
			}
			if got := f.Match(tt.path); got != tt.expected {
				t.Errorf("Match(%q) = %v, expected %v", tt.path, got, tt.expected)
			}
		})
	}
}

func TestApplyPreservesOrder(t *testing.T) {
	f, err := New([]string{"src/**"})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	paths := []string{"src/z.cpp", "docs/readme.md", "src/a.cpp"}
	got := f.Apply(paths)

	expected := []string{"src/z.cpp", "src/a.cpp"}
	if len(got) != len(expected) {
		t.Fatalf("Apply = %v, expected %v", got, expected)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("Apply[%d] = %q, expected %q", i, got[i], expected[i])
		}
	}
}
