// Package mssql implements a SQL Server repository on go-mssqldb. It is the
// natural source for the AdventureWorks tables, which ship as a SQL Server
// sample database, and writes summaries back with the bulk copy API.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"insights/internal/storage"
	"insights/internal/table"
)

// Config holds MSSQL repository configuration.
type Config struct {
	DSN   string
	Table string // bulk copy target, e.g. "dbo.inventory_by_category"
}

// Repository is an MSSQL-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// NewRepository validates the DSN, connects and returns a close function.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if _, err := msdsn.Parse(cfg.DSN); err != nil {
		return nil, nil, fmt.Errorf("mssql: parse dsn: %w", err)
	}
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err == nil {
		err = db.PingContext(ctx)
		if err != nil {
			_ = db.Close()
		}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("mssql: connect: %w", err)
	}
	return &Repository{db: db, cfg: cfg}, func() { _ = db.Close() }, nil
}

// msIdent quotes a SQL Server identifier using [brackets], escaping ].
func msIdent(id string) string { return `[` + strings.ReplaceAll(id, `]`, `]]`) + `]` }

// LoadTable implements storage.Repository. Sources are usually
// schema-qualified, e.g. "Production.ProductInventory".
func (r *Repository) LoadTable(ctx context.Context, name, source string, columns []string) (*table.Table, error) {
	t, err := storage.QueryTable(ctx, r.db, sq.AtP, msIdent, name, source, columns)
	if err != nil {
		return nil, fmt.Errorf("mssql: %w", err)
	}
	return t, nil
}

// CopyFrom bulk-inserts rows into the configured table. The whole batch
// shares one transaction; any failure rolls it back.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (n int64, err error) {
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("mssql: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if n, err = bulkCopy(ctx, tx, r.cfg.Table, columns, rows); err != nil {
		return 0, fmt.Errorf("mssql: bulk copy into %s: %w", r.cfg.Table, err)
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("mssql: commit: %w", err)
	}
	return n, nil
}

// bulkCopy streams rows through a CopyIn statement; the final argument-less
// Exec flushes the bulk buffer and reports the row count.
func bulkCopy(ctx context.Context, tx *sql.Tx, dest string, columns []string, rows [][]any) (int64, error) {
	stmt, err := tx.PrepareContext(ctx, mssql.CopyIn(dest, mssql.BulkOptions{}, columns...))
	if err != nil {
		return 0, err
	}
	defer stmt.Close()
	for i, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return 0, fmt.Errorf("row %d: %w", i, err)
		}
	}
	res, err := stmt.ExecContext(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Exec runs one statement.
func (r *Repository) Exec(ctx context.Context, sqlText string) error {
	_, err := r.db.ExecContext(ctx, sqlText)
	return err
}
