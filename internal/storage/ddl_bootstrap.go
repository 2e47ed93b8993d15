package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"insights/internal/ddl"
)

var (
	ddlMu       sync.RWMutex
	ddlDialects = map[string]ddl.Dialect{}
)

// RegisterDDL registers the dialect used to create tables for kind. Backends
// call it from init.
func RegisterDDL(kind string, d ddl.Dialect) {
	ddlMu.Lock()
	defer ddlMu.Unlock()
	ddlDialects[strings.ToLower(kind)] = d
}

// Dialect returns the registered dialect for kind.
func Dialect(kind string) (ddl.Dialect, bool) {
	ddlMu.RLock()
	defer ddlMu.RUnlock()
	d, ok := ddlDialects[strings.ToLower(kind)]
	return d, ok
}

// EnsureTable creates td through repo unless it already exists.
func EnsureTable(ctx context.Context, kind string, repo Repository, td ddl.TableDef) error {
	d, ok := Dialect(kind)
	if !ok {
		return fmt.Errorf("no DDL dialect registered for storage kind %q", kind)
	}
	stmt, err := ddl.BuildCreateTableSQL(td, d)
	if err != nil {
		return fmt.Errorf("build DDL: %w", err)
	}
	if err := repo.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("apply DDL: %w", err)
	}
	return nil
}
