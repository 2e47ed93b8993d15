package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"insights/internal/ddl"
	"insights/internal/logger"
	"insights/internal/metrics"
	"insights/internal/table"
)

// RunIDColumn tags every exported row with the export it belongs to.
const RunIDColumn = "RunID"

// ExportOptions configures Export.
type ExportOptions struct {
	// Kind selects the DDL dialect; it must match the repository's backend.
	Kind string
	// Table is the destination, used for the CREATE TABLE.
	Table string
	// Job labels the emitted metrics.
	Job string
	// BatchSize defaults to 1000.
	BatchSize int
	// CreateTable creates the destination when it does not exist.
	CreateTable bool
}

// Export writes t plus a RunID column through repo and returns the run id.
// Rows are streamed into CopyFrom batches; a failed batch aborts the export.
func Export(ctx context.Context, repo Repository, t *table.Table, opt ExportOptions) (string, int64, error) {
	if opt.BatchSize <= 0 {
		opt.BatchSize = 1000
	}
	runID := uuid.NewString()
	tagged := t.WithColumn(RunIDColumn, func(table.Row) any { return runID })

	if opt.CreateTable {
		td, err := ddl.FromTable(opt.Table, tagged)
		if err != nil {
			return "", 0, err
		}
		if err := EnsureTable(ctx, opt.Kind, repo, td); err != nil {
			return "", 0, err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	in := make(chan []any, opt.BatchSize)
	go func() {
		defer close(in)
		for _, r := range tagged.Rows() {
			select {
			case in <- r:
			case <-ctx.Done():
				return
			}
		}
	}()

	start := time.Now()
	n, batches, err := LoadBatches(ctx, tagged.Columns(), in, opt.BatchSize, repo.CopyFrom)
	metrics.RecordStep(opt.Job, "export:"+t.Name(), err, time.Since(start))
	metrics.RecordBatches(opt.Job, batches)
	if err != nil {
		return runID, n, fmt.Errorf("export %s: %w", t.Name(), err)
	}
	metrics.RecordRow(opt.Job, metrics.KindExported, n)
	logger.L().Info("exported",
		logger.String("table", t.Name()),
		logger.String("run_id", runID),
		logger.Int64("rows", n),
		logger.Int64("batches", batches))
	return runID, n, nil
}
