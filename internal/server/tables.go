package server

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/leapstack-labs/polysql/pkg/executor"
)

// tableExts are the data file extensions read from a tables directory.
var tableExts = []string{".json", ".yaml", ".yml"}

func isTableFile(path string) bool {
	return slices.Contains(tableExts, strings.ToLower(filepath.Ext(path)))
}

// LoadTablesDir reads every JSON or YAML file directly under dir and merges
// their tables. A table defined by two files is an error. Files are read
// in name order.
func LoadTablesDir(dir string) (executor.Tables, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read tables directory: %w", err)
	}

	tables := make(executor.Tables)
	source := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() || !isTableFile(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path) //nolint:gosec // G304: files come from the configured tables directory
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", e.Name(), err)
		}
		loaded, err := executor.LoadTables(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		for name, rel := range loaded {
			if prev, dup := source[name]; dup {
				return nil, fmt.Errorf("table %q defined in both %s and %s", name, prev, e.Name())
			}
			source[name] = e.Name()
			tables[name] = rel
		}
	}
	return tables, nil
}
