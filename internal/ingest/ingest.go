// Package ingest loads the source tables into a registry, either from a
// directory of CSV extracts or from a SQL repository. Every table goes
// through the same preparation: NA markers become nulls, then cells are
// coerced to the table's contract, then the registry checks required columns.
package ingest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"insights/internal/datasource"
	"insights/internal/datasource/file"
	"insights/internal/logger"
	"insights/internal/metrics"
	"insights/internal/parser"
	"insights/internal/parser/csv"
	"insights/internal/registry"
	"insights/internal/storage"
	"insights/internal/table"
	"insights/internal/transformer"
	"insights/internal/transformer/builtin"
)

// Options configures a load.
type Options struct {
	Parser csv.Options
	// Tables restricts the load to these names. Empty loads everything found.
	Tables []string
	// Concurrency bounds parallel loads; zero means 4.
	Concurrency int
	// Job labels emitted metrics.
	Job string
}

// Report summarizes a load.
type Report struct {
	Loaded  map[string]int   `json:"loaded"`
	Skipped map[string]int   `json:"skipped_rows,omitempty"`
	Failed  map[string]error `json:"-"`
}

func newReport() *Report {
	return &Report{Loaded: map[string]int{}, Skipped: map[string]int{}, Failed: map[string]error{}}
}

// Names returns the loaded table names, sorted.
func (r *Report) Names() []string {
	out := make([]string, 0, len(r.Loaded))
	for n := range r.Loaded {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

type collector struct {
	mu  sync.Mutex
	rep *Report
}

func (c *collector) loaded(name string, rows, skipped int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rep.Loaded[name] = rows
	if skipped > 0 {
		c.rep.Skipped[name] = skipped
	}
}

func (c *collector) failed(name string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rep.Failed[name] = err
}

// LoadDir parses every "<Table>.csv" in dir concurrently and puts the
// prepared tables into reg. A file that cannot be read or parsed is logged,
// recorded in Report.Failed and skipped; the analyses that need it then
// report a missing table. A parsed table that violates its contract fails
// the whole load.
func LoadDir(ctx context.Context, dir string, reg *registry.Registry, opt Options) (*Report, error) {
	paths, names, err := file.ListTables(dir)
	if err != nil {
		return nil, err
	}
	names = selected(names, opt.Tables)
	p := csv.NewParser(opt.Parser)
	log := logger.L()
	col := &collector{rep: newReport()}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency(opt))
	for _, name := range names {
		name := name
		g.Go(func() error {
			start := time.Now()
			t, skipped, err := parse(gctx, file.NewLocal(paths[name]), p, name)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				metrics.RecordStep(opt.Job, "ingest:"+name, err, time.Since(start))
				log.Warn("skipping table", logger.String("table", name), logger.ErrorF(err))
				col.failed(name, err)
				return nil
			}
			metrics.RecordRow(opt.Job, metrics.KindParseErrors, int64(skipped))
			if err := put(reg, t); err != nil {
				metrics.RecordStep(opt.Job, "ingest:"+name, err, time.Since(start))
				return err
			}
			metrics.RecordStep(opt.Job, "ingest:"+name, nil, time.Since(start))
			metrics.RecordRow(opt.Job, metrics.KindLoaded, int64(t.Len()))
			log.Info("table loaded",
				logger.String("table", name),
				logger.Int("rows", t.Len()),
				logger.Int("skipped", skipped),
				logger.Duration("elapsed", time.Since(start)))
			col.loaded(name, t.Len(), skipped)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return col.rep, err
	}
	return col.rep, nil
}

// LoadRepository reads each table from repo concurrently. sources maps a
// table name to its SQL relation, e.g. "ProductInventory" to
// "Production.ProductInventory". Unlike LoadDir, any failure aborts the load.
func LoadRepository(ctx context.Context, repo storage.Repository, sources map[string]string, reg *registry.Registry, opt Options) (*Report, error) {
	names := lo.Keys(sources)
	sort.Strings(names)
	names = selected(names, opt.Tables)
	col := &collector{rep: newReport()}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency(opt))
	for _, name := range names {
		name := name
		g.Go(func() error {
			start := time.Now()
			t, err := repo.LoadTable(gctx, name, sources[name], nil)
			if err == nil {
				err = put(reg, t)
			}
			metrics.RecordStep(opt.Job, "ingest:"+name, err, time.Since(start))
			if err != nil {
				return fmt.Errorf("load %s: %w", name, err)
			}
			metrics.RecordRow(opt.Job, metrics.KindLoaded, int64(t.Len()))
			logger.L().Info("table loaded",
				logger.String("table", name),
				logger.String("source", sources[name]),
				logger.Int("rows", t.Len()),
				logger.Duration("elapsed", time.Since(start)))
			col.loaded(name, t.Len(), 0)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return col.rep, err
	}
	return col.rep, nil
}

func parse(ctx context.Context, src datasource.Source, p parser.Parser, name string) (*table.Table, int, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer rc.Close()
	return p.Parse(rc, name)
}

// Prepare normalizes t and coerces it to its contract in reg, if any.
func Prepare(reg *registry.Registry, t *table.Table) (*table.Table, error) {
	chain := transformer.Chain{builtin.Normalize{}}
	if c, ok := reg.Contract(t.Name()); ok {
		chain = append(chain, builtin.ForContract(c, t))
	}
	return chain.Apply(t)
}

func put(reg *registry.Registry, t *table.Table) error {
	prepared, err := Prepare(reg, t)
	if err != nil {
		return err
	}
	return reg.Put(prepared)
}

func selected(names, only []string) []string {
	if len(only) == 0 {
		return names
	}
	return lo.Filter(names, func(n string, _ int) bool { return lo.Contains(only, n) })
}

func concurrency(opt Options) int {
	if opt.Concurrency > 0 {
		return opt.Concurrency
	}
	return 4
}
