// Package file implements a local filesystem-backed data source.
package file

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Local is a filesystem data source that opens one extract from disk.
type Local struct{ path string }

// NewLocal returns a Local bound to path. It is safe for concurrent use.
func NewLocal(path string) *Local { return &Local{path: path} }

// Path returns the bound path.
func (l *Local) Path() string { return l.path }

// Open opens the configured path for reading.
//
// A context that is already done short-circuits before touching the
// filesystem. Filesystem errors are wrapped with the path and still match
// errors.Is(err, os.ErrNotExist). On Linux the kernel is told the file will
// be read sequentially once.
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	adviseSequential(f)
	return f, nil
}
