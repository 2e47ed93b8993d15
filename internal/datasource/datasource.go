// Package datasource defines where raw table extracts are read from.
package datasource

import (
	"context"
	"io"
)

// Source opens one extract for reading.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}
