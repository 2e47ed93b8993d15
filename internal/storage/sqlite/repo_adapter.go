package sqlite

import (
	"context"

	"insights/internal/ddl"
	"insights/internal/storage"
)

// newRepository is a test hook.
var newRepository = NewRepository

type wrappedRepo struct {
	*Repository
	closeFn func()
}

// Close implements storage.Repository.
func (w *wrappedRepo) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}

var _ storage.Repository = (*wrappedRepo)(nil)

// Dialect renders CREATE TABLE for SQLite's type affinities.
var Dialect = ddl.Dialect{
	Name:  "sqlite",
	Quote: quote,
	Types: map[ddl.Kind]string{
		ddl.KindText:  "TEXT",
		ddl.KindInt:   "INTEGER",
		ddl.KindFloat: "REAL",
		ddl.KindBool:  "INTEGER",
		ddl.KindTime:  "TIMESTAMP",
	},
}

func init() {
	storage.Register("sqlite", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, closeFn, err := newRepository(ctx, Config{DSN: cfg.DSN, Table: cfg.Table})
		if err != nil {
			return nil, err
		}
		return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
	})
	storage.RegisterDDL("sqlite", Dialect)
}
