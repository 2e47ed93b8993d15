// Package analysis holds the dashboard's catalog of analyses.
//
// Each analysis is a Definition: a name, the page it belongs to, the tables
// it reads and a short Run function composed from the pipeline package (a
// join plan, a GroupBy and the derived measures in package metric). Catalog
// runs a definition against a registry, checking that every required table
// is present before any join so a missing extract surfaces as a
// MissingTableError instead of an empty chart.
//
// Results are plain tables, ready to render or export. The catalog never
// mutates the registry it is given.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"insights/internal/logger"
	"insights/internal/metrics"
	"insights/internal/registry"
	"insights/internal/table"
)

// ErrUnknownAnalysis is returned by Run for a name the catalog does not hold.
var ErrUnknownAnalysis = errors.New("unknown analysis")

// Page groups analyses the way the dashboard navigation does.
type Page string

const (
	PageInventory  Page = "inventory"
	PageProduction Page = "production"
	PageSales      Page = "sales"
	PageAdvanced   Page = "advanced"
)

// Pages lists the pages in navigation order.
func Pages() []Page {
	return []Page{PageInventory, PageProduction, PageSales, PageAdvanced}
}

// Options tune individual analyses.
type Options struct {
	// SalesFrom and SalesTo bound sales-by-territory by order date, both
	// inclusive.
	SalesFrom time.Time
	SalesTo   time.Time
	// TopN overrides a definition's row limit by analysis name.
	TopN map[string]int
	// Period is the seasonal period, in months, of the decomposition.
	Period int
}

// DefaultOptions covers fiscal year 2014 with a yearly season.
func DefaultOptions() Options {
	return Options{
		SalesFrom: time.Date(2013, 7, 1, 0, 0, 0, 0, time.UTC),
		SalesTo:   time.Date(2014, 6, 30, 0, 0, 0, 0, time.UTC),
		Period:    12,
	}
}

// Definition declares one analysis.
type Definition struct {
	Name  string `json:"name"`
	Title string `json:"title"`
	Page  Page   `json:"page"`
	// Tables must all be present in the registry.
	Tables []string `json:"tables"`
	// TopN limits the result rows; zero means unlimited.
	TopN int                                  `json:"top_n,omitempty"`
	Run  func(*Context) (*table.Table, error) `json:"-"`
}

// Context is what a Run function sees.
type Context struct {
	Reg  *registry.Registry
	Opts Options

	limit    int
	excluded int
}

// Limit is the effective row limit.
func (c *Context) Limit() int { return c.limit }

// Excluded reports how many rows edge-case policies dropped so far.
func (c *Context) Excluded() int { return c.excluded }

// exclude records the rows lost between before and after.
func (c *Context) exclude(before, after *table.Table) {
	if d := before.Len() - after.Len(); d > 0 {
		c.excluded += d
	}
}

// Result is one analysis run.
type Result struct {
	Name     string        `json:"name"`
	Page     Page          `json:"page"`
	Table    *table.Table  `json:"-"`
	Excluded int           `json:"excluded"`
	Elapsed  time.Duration `json:"elapsed"`
}

// Catalog is an ordered, named set of definitions.
type Catalog struct {
	Job  string
	opts Options
	defs []Definition
	idx  map[string]int
}

// New returns the catalog of every dashboard analysis.
func New(opts Options) *Catalog {
	if opts.Period == 0 {
		opts.Period = DefaultOptions().Period
	}
	if opts.SalesFrom.IsZero() && opts.SalesTo.IsZero() {
		d := DefaultOptions()
		opts.SalesFrom, opts.SalesTo = d.SalesFrom, d.SalesTo
	}
	c := &Catalog{Job: "insights", opts: opts, idx: map[string]int{}}
	for _, group := range [][]Definition{inventoryDefs(), productionDefs(), salesDefs(), advancedDefs()} {
		for _, d := range group {
			c.add(d)
		}
	}
	return c
}

func (c *Catalog) add(d Definition) {
	if _, dup := c.idx[d.Name]; dup {
		panic(fmt.Sprintf("analysis: duplicate definition %q", d.Name))
	}
	c.idx[d.Name] = len(c.defs)
	c.defs = append(c.defs, d)
}

// Options returns the options runs use.
func (c *Catalog) Options() Options { return c.opts }

// List returns every definition in catalog order.
func (c *Catalog) List() []Definition {
	return append([]Definition(nil), c.defs...)
}

// Names returns the sorted definition names.
func (c *Catalog) Names() []string {
	out := make([]string, 0, len(c.defs))
	for _, d := range c.defs {
		out = append(out, d.Name)
	}
	sort.Strings(out)
	return out
}

// Lookup finds a definition by name.
func (c *Catalog) Lookup(name string) (Definition, bool) {
	i, ok := c.idx[name]
	if !ok {
		return Definition{}, false
	}
	return c.defs[i], true
}

// Page returns the definitions on page p in catalog order.
func (c *Catalog) Page(p Page) []Definition {
	var out []Definition
	for _, d := range c.defs {
		if d.Page == p {
			out = append(out, d)
		}
	}
	return out
}

// Run executes the named analysis against reg.
func (c *Catalog) Run(ctx context.Context, name string, reg *registry.Registry) (Result, error) {
	d, ok := c.Lookup(name)
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownAnalysis, name)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	start := time.Now()
	out, ac, err := c.run(d, reg)
	elapsed := time.Since(start)
	metrics.RecordStep(c.Job, "analysis:"+d.Name, err, elapsed)

	log := logger.L().With(logger.String("analysis", d.Name), logger.Duration("elapsed", elapsed))
	if err != nil {
		log.Warn("analysis failed", logger.ErrorF(err))
		return Result{}, fmt.Errorf("analysis %s: %w", d.Name, err)
	}
	metrics.RecordRow(c.Job, metrics.KindSummary, int64(out.Len()))
	metrics.RecordRow(c.Job, metrics.KindExcluded, int64(ac.excluded))
	if ac.excluded > 0 {
		log.Info("rows excluded by metric policy", logger.Int("excluded", ac.excluded))
	}
	log.Debug("analysis done", logger.Int("rows", out.Len()))

	return Result{
		Name:     d.Name,
		Page:     d.Page,
		Table:    out.Named(d.Name),
		Excluded: ac.excluded,
		Elapsed:  elapsed,
	}, nil
}

func (c *Catalog) run(d Definition, reg *registry.Registry) (*table.Table, *Context, error) {
	for _, name := range d.Tables {
		if _, err := reg.Get(name); err != nil {
			return nil, nil, err
		}
	}
	ac := &Context{Reg: reg, Opts: c.opts, limit: d.TopN}
	if n, ok := c.opts.TopN[d.Name]; ok {
		ac.limit = n
	}
	out, err := d.Run(ac)
	if err != nil {
		return nil, ac, err
	}
	return out, ac, nil
}

// RunPage executes every analysis on page p. It stops at the first error.
func (c *Catalog) RunPage(ctx context.Context, p Page, reg *registry.Registry) ([]Result, error) {
	var out []Result
	for _, d := range c.Page(p) {
		r, err := c.Run(ctx, d.Name, reg)
		if err != nil {
			return out, err
		}
		out = append(out, r)
	}
	return out, nil
}
