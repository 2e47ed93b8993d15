package mssql

import (
	"context"
	"fmt"
	"strings"

	"insights/internal/ddl"
	"insights/internal/storage"
)

// newRepository is a test hook that points to NewRepository by default.
var newRepository = NewRepository

var _ storage.Repository = (*wrappedRepo)(nil)

type wrappedRepo struct {
	*Repository
	closeFn func()
}

// Close implements storage.Repository.
func (w *wrappedRepo) Close() { w.closeFn() }

// Dialect renders CREATE TABLE guarded by OBJECT_ID, since SQL Server has no
// CREATE TABLE IF NOT EXISTS.
var Dialect = ddl.Dialect{
	Name:  "mssql",
	Quote: msIdent,
	Types: map[ddl.Kind]string{
		ddl.KindText:  "NVARCHAR(400)",
		ddl.KindInt:   "BIGINT",
		ddl.KindFloat: "FLOAT",
		ddl.KindBool:  "BIT",
		ddl.KindTime:  "DATETIME2",
	},
	Guard: func(fqn, _ string, create string) string {
		return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL\n%s;", strings.ReplaceAll(fqn, "'", "''"), create)
	},
}

func init() {
	storage.Register("mssql", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, closeFn, err := newRepository(ctx, Config{DSN: cfg.DSN, Table: cfg.Table})
		if err != nil {
			return nil, err
		}
		return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
	})
	storage.RegisterDDL("mssql", Dialect)
}
