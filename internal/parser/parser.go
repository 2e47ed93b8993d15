// Package parser defines how raw extracts become tables.
package parser

import (
	"io"

	"insights/internal/table"
)

// Parser reads one extract into a table named name. skipped counts the rows
// that were dropped as malformed.
type Parser interface {
	Parse(r io.Reader, name string) (t *table.Table, skipped int, err error)
}
