// Package sqlite implements a SQLite-backed storage.Repository using
// database/sql and the pure-Go modernc driver. SQLite has no bulk-load API
// like Postgres COPY; CopyFrom runs prepared INSERTs in one transaction.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"insights/internal/ddl"
	"insights/internal/storage"
	"insights/internal/table"
)

// Config holds SQLite repository configuration.
type Config struct {
	// DSN is a file path or URI, e.g. "insights.db" or
	// "file:insights.db?cache=shared".
	DSN string
	// Table is the CopyFrom target.
	Table string
}

// Repository is a SQLite-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// NewRepository opens and pings the database and returns a close function.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// An in-memory database lives only as long as its one connection.
	if strings.Contains(cfg.DSN, ":memory:") {
		db.SetMaxOpenConns(1)
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("sqlite: ping %s: %w", cfg.DSN, err)
	}
	return &Repository{db: db, cfg: cfg}, func() { db.Close() }, nil
}

func quote(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

// LoadTable implements storage.Repository.
func (r *Repository) LoadTable(ctx context.Context, name, source string, columns []string) (*table.Table, error) {
	t, err := storage.QueryTable(ctx, r.db, sq.Question, quote, name, source, columns)
	if err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}
	return t, nil
}

// CopyFrom inserts rows into the configured table through one prepared
// statement inside a single transaction.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (n int64, err error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("sqlite: CopyFrom: columns must not be empty")
	}
	if len(rows) == 0 {
		return 0, nil
	}
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quote(c)
	}
	// Only the shape of the VALUES list matters; values bind per Exec.
	insertSQL, _, err := sq.Insert(ddl.QuoteFQN(r.cfg.Table, quote)).
		Columns(quoted...).
		Values(make([]any, len(columns))...).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("sqlite: build insert: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return 0, fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, row := range rows {
		if len(row) != len(columns) {
			return 0, fmt.Errorf("sqlite: CopyFrom: row %d has %d values for %d columns", i, len(row), len(columns))
		}
		if _, err = stmt.ExecContext(ctx, row...); err != nil {
			return 0, fmt.Errorf("sqlite: insert row %d: %w", i, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: commit: %w", err)
	}
	return int64(len(rows)), nil
}

// Exec runs one statement.
func (r *Repository) Exec(ctx context.Context, sqlText string) error {
	if strings.TrimSpace(sqlText) == "" {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, sqlText); err != nil {
		return fmt.Errorf("sqlite: exec: %w", err)
	}
	return nil
}
