package mysql

import (
	"context"

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

// Close closes the underlying connection pool.
func (w *wrappedRepo) Close() { w.closeFn() }

// Dialect renders CREATE TABLE IF NOT EXISTS with backtick quoting.
var Dialect = ddl.Dialect{
	Name:  "mysql",
	Quote: quote,
	Types: map[ddl.Kind]string{
		ddl.KindText:  "VARCHAR(400)",
		ddl.KindInt:   "BIGINT",
		ddl.KindFloat: "DOUBLE",
		ddl.KindBool:  "BOOLEAN",
		ddl.KindTime:  "DATETIME",
	},
}

func init() {
	storage.Register("mysql", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, closeFn, err := newRepository(ctx, Config{DSN: cfg.DSN, Table: cfg.Table})
		if err != nil {
			return nil, err
		}
		return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
	})
	storage.RegisterDDL("mysql", Dialect)
}
