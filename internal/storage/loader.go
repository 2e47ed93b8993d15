package storage

import (
	"context"
	"fmt"
	"time"

	"insights/internal/logger"
)

// CopyFn inserts rows aligned to columns and returns how many were written.
// It may be called repeatedly and must return promptly once ctx is done.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// LoadBatches drains rows from in into batches of batchSize and calls copyFn
// for each non-empty batch. It returns the total reported by copyFn and the
// number of batches flushed, stopping at the first error.
func LoadBatches(
	ctx context.Context,
	columns []string,
	in <-chan []any,
	batchSize int,
	copyFn CopyFn,
) (total, batches int64, err error) {
	if batchSize <= 0 {
		return 0, 0, fmt.Errorf("batchSize must be > 0")
	}
	if copyFn == nil {
		return 0, 0, fmt.Errorf("copyFn must not be nil")
	}

	log := logger.L()
	batch := make([][]any, 0, batchSize)
	start := time.Now()

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := copyFn(ctx, columns, batch)
		total += n
		batch = batch[:0]
		if err != nil {
			log.Error("copy failed", logger.Int64("inserted", n), logger.Int64("total", total), logger.ErrorF(err))
			return err
		}
		batches++
		log.Debug("batch flushed",
			logger.Int64("batch", batches),
			logger.Int64("inserted", n),
			logger.Int64("total", total),
			logger.Duration("elapsed", time.Since(start).Truncate(time.Millisecond)))
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return total, batches, ctx.Err()
		case row, ok := <-in:
			if !ok {
				return total, batches, flush()
			}
			batch = append(batch, row)
			if len(batch) >= batchSize {
				if err := flush(); err != nil {
					return total, batches, err
				}
			}
		}
	}
}
