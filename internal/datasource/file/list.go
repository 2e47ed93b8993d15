package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ListTables maps each "<Name>.csv" in dir to its table name, e.g.
// "ProductInventory.csv" to "ProductInventory". The extension match is case
// insensitive; subdirectories and other files are ignored. Names are
// returned sorted.
func ListTables(dir string) (map[string]string, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("list %s: %w", dir, err)
	}
	paths := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if !strings.EqualFold(ext, ".csv") {
			continue
		}
		name := strings.TrimSpace(strings.TrimSuffix(e.Name(), ext))
		if name == "" {
			continue
		}
		paths[name] = filepath.Join(dir, e.Name())
	}
	names := make([]string, 0, len(paths))
	for n := range paths {
		names = append(names, n)
	}
	sort.Strings(names)
	return paths, names, nil
}
