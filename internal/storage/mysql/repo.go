// Package mysql implements a MySQL repository on go-sql-driver/mysql.
// CopyFrom sends each batch as one multi-row INSERT.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	driver "github.com/go-sql-driver/mysql"

	"insights/internal/ddl"
	"insights/internal/storage"
	"insights/internal/table"
)

// Config holds MySQL repository configuration.
type Config struct {
	DSN   string
	Table string
}

// Repository is a MySQL-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// NewRepository parses the DSN, forces parseTime so DATETIME columns scan as
// time.Time, connects and returns a close function.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	dc, err := driver.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("mysql dsn: %w", err)
	}
	dc.ParseTime = true
	conn, err := driver.NewConnector(dc)
	if err != nil {
		return nil, nil, fmt.Errorf("mysql connector: %w", err)
	}
	db := sql.OpenDB(conn)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}
	return &Repository{db: db, cfg: cfg}, func() { _ = db.Close() }, nil
}

func quote(id string) string { return "`" + strings.ReplaceAll(id, "`", "``") + "`" }

// LoadTable implements storage.Repository.
func (r *Repository) LoadTable(ctx context.Context, name, source string, columns []string) (*table.Table, error) {
	t, err := storage.QueryTable(ctx, r.db, sq.Question, quote, name, source, columns)
	if err != nil {
		return nil, fmt.Errorf("mysql: %w", err)
	}
	return t, nil
}

// InsertSQL builds the multi-row INSERT for rows.
func InsertSQL(tableName string, columns []string, rows [][]any) (string, []any, error) {
	cols := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = quote(c)
	}
	b := sq.Insert(ddl.QuoteFQN(tableName, quote)).Columns(cols...)
	for _, row := range rows {
		if len(row) != len(columns) {
			return "", nil, fmt.Errorf("row length %d != columns length %d", len(row), len(columns))
		}
		b = b.Values(row...)
	}
	return b.ToSql()
}

// CopyFrom inserts rows with one statement.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	q, args, err := InsertSQL(r.cfg.Table, columns, rows)
	if err != nil {
		return 0, fmt.Errorf("mysql: %w", err)
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, fmt.Errorf("mysql: insert: %w", err)
	}
	return res.RowsAffected()
}

// Exec runs one statement.
func (r *Repository) Exec(ctx context.Context, sqlText string) error {
	_, err := r.db.ExecContext(ctx, sqlText)
	return err
}
