package translation

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
)

// Table is an immutable mapping from translation key to display string.
// A reload builds a new Table; an existing Table is never modified.
type Table struct {
	entries map[string]string
}

// NewTable creates a Table from a copy of the given entries
func NewTable(entries map[string]string) *Table {
	copied := make(map[string]string, len(entries))
	for key, value := range entries {
		copied[key] = value
	}
	return &Table{entries: copied}
}

// EmptyTable returns a Table with no entries
func EmptyTable() *Table {
	return &Table{entries: map[string]string{}}
}

// LoadTable reads the flat JSON object stored as "<lang>.json" in dir
func LoadTable(dir string, language string) (*Table, error) {
	tablePath := filepath.Join(dir, language+".json")

	data, err := os.ReadFile(tablePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read translation table %s: %w", tablePath, err)
	}

	var entries map[string]string
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse translation table %s: %w", tablePath, err)
	}

	return &Table{entries: entries}, nil
}

// Lookup returns the display string stored under key
func (table *Table) Lookup(key string) (string, bool) {
	if table == nil {
		return "", false
	}
	value, ok := table.entries[key]
	return value, ok
}

// Len returns the number of entries in the table
func (table *Table) Len() int {
	if table == nil {
		return 0
	}
	return len(table.entries)
}
