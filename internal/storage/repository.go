// Package storage is the backend-agnostic access layer for SQL databases:
// it reads source tables into memory and writes analysis summaries back.
// Concrete backends register themselves by kind at init time; import
// insights/internal/storage/all to enable every built-in backend.
package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"insights/internal/table"
)

// Config selects and configures a backend.
type Config struct {
	// Kind is the registered backend name, e.g. "postgres" or "sqlite".
	Kind string
	DSN  string
	// Table is the CopyFrom target, possibly schema-qualified.
	Table string
}

// Repository is the contract every backend implements.
type Repository interface {
	// LoadTable reads columns of the source relation into a table called
	// name. No columns means every column.
	LoadTable(ctx context.Context, name, source string, columns []string) (*table.Table, error)
	// CopyFrom bulk-inserts rows aligned to columns into the configured
	// table and reports how many were written.
	CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error)
	// Exec runs one statement, typically DDL.
	Exec(ctx context.Context, sql string) error
	Close()
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register adds or replaces the factory for kind.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[strings.ToLower(kind)] = f
}

// New opens a repository of cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[strings.ToLower(cfg.Kind)]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: unsupported kind %q (registered: %v)", cfg.Kind, ListKinds())
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered backend kinds, sorted.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
