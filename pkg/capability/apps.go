package capability

import (
	"maps"
	"slices"
	"strings"
)

// AppTable maps a lower-case application name to its launch path.
// It is built once at startup and never changes afterwards.
type AppTable struct {
	paths map[string]string
}

// NewAppTable copies entries, normalizing names to lower case with single spaces.
// Entries with an empty name or path are dropped.
func NewAppTable(entries map[string]string) *AppTable {
	t := &AppTable{paths: make(map[string]string, len(entries))}
	for name, path := range entries {
		name = normalizeAppName(name)
		path = strings.TrimSpace(path)
		if name == "" || path == "" {
			continue
		}
		t.paths[name] = path
	}
	return t
}

// Lookup resolves a name to its launch path.
func (t *AppTable) Lookup(name string) (string, bool) {
	if t == nil {
		return "", false
	}
	p, ok := t.paths[normalizeAppName(name)]
	return p, ok
}

// Names lists the known application names in sorted order.
func (t *AppTable) Names() []string {
	if t == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(t.paths))
}

// Len reports how many applications are known.
func (t *AppTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.paths)
}

// normalizeAppName lower-cases name and collapses whitespace runs, matching
// how oracle replies are normalized before they are parsed.
func normalizeAppName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}
