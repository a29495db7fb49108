package expansions

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeExpansions(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "expansions.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing expansions file: %v", err)
	}
	return path
}

func TestLoadEmptyPath(t *testing.T) {
	cache := NewCache()

	exp, err := cache.Load("")
	if err != nil {
		t.Fatalf("Load(\"\") returned error: %v", err)
	}
	if exp != nil {
		t.Fatalf("Load(\"\") = %v, expected nil", exp)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cache := NewCache()

	_, err := cache.Load(filepath.Join(t.TempDir(), "nope.yml"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load of missing file returned %v, expected ErrNotFound", err)
	}
}

func TestLoadParsesDocument(t *testing.T) {
	path := writeExpansions(t, "is_patch: true\nrevision: abc123\n")
	cache := NewCache()

	exp, err := cache.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exp.IsPatch() {
		t.Errorf("IsPatch() = false, expected true")
	}
	if exp.Revision() != "abc123" {
		t.Errorf("Revision() = %q, expected %q", exp.Revision(), "abc123")
	}
}

func TestLoadMemoizes(t *testing.T) {
	path := writeExpansions(t, "revision: abc123\n")
	cache := NewCache()

	first, err := cache.Load(path)
	if err != nil {
		t.Fatalf("first Load returned error: %v", err)
	}

	// Remove the file; a second load must come from the cache.
	if err := os.Remove(path); err != nil {
		t.Fatalf("removing expansions file: %v", err)
	}

	second, err := cache.Load(path)
	if err != nil {
		t.Fatalf("second Load returned error: %v", err)
	}
	if second.Revision() != first.Revision() {
		t.Errorf("second Load = %v, expected cached %v", second, first)
	}
	if cache.Reads() != 1 {
		t.Errorf("Reads() = %d, expected 1", cache.Reads())
	}
}

func TestIsPatchTruthiness(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected bool
	}{
		{"bool true", "is_patch: true\n", true},
		{"bool false", "is_patch: false\n", false},
		{"absent", "revision: abc\n", false},
		{"string true", `is_patch: "true"` + "\n", true},
		{"empty string", `is_patch: ""` + "\n", false},
		{"int one", "is_patch: 1\n", true},
		{"int zero", "is_patch: 0\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeExpansions(t, tt.content)

			exp, err := NewCache().Load(path)
			if err != nil {
				t.Fatalf("Load returned error: %v", err)
			}
			if exp.IsPatch() != tt.expected {
				t.Errorf("IsPatch() = %v, expected %v", exp.IsPatch(), tt.expected)
			}
		})
	}
}
