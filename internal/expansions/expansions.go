// Package expansions loads the Evergreen expansions document that
// describes the current CI run.
package expansions

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when a non-empty expansions path does not
// exist on disk.
var ErrNotFound = errors.New("expansions file not found")

// Expansions is the parsed key/value document. Callers must treat it
// as read-only: the same map is shared by every Load of the same path.
type Expansions map[string]interface{}

// IsPatch reports whether the run is a patch build. The value is
// treated as truthy the way the upstream tooling does: absent, false,
// zero, and empty-string values are all false.
func (e Expansions) IsPatch() bool {
	return truthy(e["is_patch"])
}

// Revision returns the revision expansion as a string, or "" if absent.
func (e Expansions) Revision() string {
	if s, ok := e["revision"].(string); ok {
		return s
	}
	return ""
}

func truthy(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case int:
		return val != 0
	case float64:
		return val != 0
	default:
		return true
	}
}

// Cache memoizes parsed expansions by file path for its lifetime.
// A file is read and parsed at most once per path.
type Cache struct {
	byPath map[string]Expansions
	reads  int
}

// NewCache creates an empty expansions cache.
func NewCache() *Cache {
	return &Cache{byPath: make(map[string]Expansions)}
}

// Load returns the expansions parsed from path. An empty path means
// the process is not running in CI and yields (nil, nil). A non-empty
// path that does not exist is a configuration error.
func (c *Cache) Load(path string) (Expansions, error) {
	if path == "" {
		return nil, nil
	}

	if cached, ok := c.byPath[path]; ok {
		return cached, nil
	}

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w at %s", ErrNotFound, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading expansions file %s: %w", path, err)
	}
	c.reads++

	var exp Expansions
	if err := yaml.Unmarshal(data, &exp); err != nil {
		return nil, fmt.Errorf("parsing expansions file %s: %w", path, err)
	}

	c.byPath[path] = exp
	return exp, nil
}

// Reads returns how many times a file has actually been read from
// disk. Exposed for tests that assert memoization.
func (c *Cache) Reads() int {
	return c.reads
}
