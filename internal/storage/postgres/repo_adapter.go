// Package postgres wires the Postgres backend into the storage factory and
// registers its DDL dialect, so callers stay backend-agnostic.
package postgres

import (
	"context"

	"insights/internal/ddl"
	"insights/internal/storage"
)

// newRepository is a test hook that points to NewRepository by default.
var newRepository = NewRepository

type wrappedRepo struct {
	*Repository
	closeFn func()
}

var _ storage.Repository = (*wrappedRepo)(nil)

// Close implements storage.Repository.
func (w *wrappedRepo) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}

// Dialect renders CREATE TABLE IF NOT EXISTS with double-quoted identifiers.
var Dialect = ddl.Dialect{
	Name:  "postgres",
	Quote: pgIdent,
	Types: map[ddl.Kind]string{
		ddl.KindText:  "TEXT",
		ddl.KindInt:   "BIGINT",
		ddl.KindFloat: "DOUBLE PRECISION",
		ddl.KindBool:  "BOOLEAN",
		ddl.KindTime:  "TIMESTAMPTZ",
	},
}

func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, closeFn, err := newRepository(ctx, Config{DSN: cfg.DSN, Table: cfg.Table})
		if err != nil {
			return nil, err
		}
		return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
	})
	storage.RegisterDDL("postgres", Dialect)
}
