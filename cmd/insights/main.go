// Command insights loads the AdventureWorks extracts, runs the dashboard
// analyses and prints, exports or serves the results.
//
//	insights -config configs/insights.json -analysis inventory-by-category
//	insights -page production -filter min-scrap -value 50 -format csv
//	insights -analysis all -export
//	insights -serve
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"insights/internal/analysis"
	"insights/internal/config"
	"insights/internal/filter"
	"insights/internal/ingest"
	"insights/internal/logger"
	"insights/internal/metrics"
	"insights/internal/metrics/datadog"
	"insights/internal/metrics/prompush"
	"insights/internal/registry"
	"insights/internal/report"
	"insights/internal/schema"
	"insights/internal/server"
	"insights/internal/storage"

	// register every backend with the storage factory; the config picks one.
	_ "insights/internal/storage/all"
)

// flags are the command line switches.
type flags struct {
	cfgPath  string
	name     string
	page     string
	filter   string
	value    string
	format   string
	export   bool
	serve    bool
	validate bool
	verbose  bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "insights:", err)
		}
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (flags, error) {
	var f flags
	fs := flag.NewFlagSet("insights", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.cfgPath, "config", "", "dashboard config JSON path (defaults apply when empty)")
	fs.StringVar(&f.name, "analysis", "", `analysis name, or "all"`)
	fs.StringVar(&f.page, "page", "", "run every analysis on a page: inventory, production, sales, advanced")
	fs.StringVar(&f.filter, "filter", "", "filter kind: category, subcategory, product, location, min-scrap")
	fs.StringVar(&f.value, "value", "", "filter value")
	fs.StringVar(&f.format, "format", "text", "output format: text, csv, json")
	fs.BoolVar(&f.export, "export", false, "write results to the configured export database")
	fs.BoolVar(&f.serve, "serve", false, "serve the HTTP API instead of printing")
	fs.BoolVar(&f.validate, "validate", false, "validate the configuration and exit")
	fs.BoolVar(&f.verbose, "v", false, "enable debug logs")
	if err := fs.Parse(args); err != nil {
		return f, err
	}
	if f.name == "" && f.page == "" && !f.serve && !f.validate {
		f.name = "all"
	}
	return f, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	f, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(f.cfgPath)
	if err != nil {
		return err
	}
	level := cfg.Log.Level
	if f.verbose {
		level = "debug"
	}
	if err := logger.Init(level, cfg.Log.JSON); err != nil {
		return err
	}
	defer logger.Sync()

	issues := config.ValidateDashboard(cfg)
	for _, iss := range issues {
		fmt.Fprintln(stderr, iss.Error())
	}
	if config.HasErrors(issues) {
		return fmt.Errorf("configuration is invalid: %s", f.cfgPath)
	}
	if f.validate {
		fmt.Fprintln(stdout, "configuration is valid")
		return nil
	}
	if f.export && !cfg.Export.Enabled() {
		return errors.New("-export requires export.kind and export.dsn in the config")
	}
	format, err := report.ParseFormat(f.format)
	if err != nil {
		return err
	}
	flt, err := filter.Parse(f.filter, f.value)
	if err != nil {
		return err
	}

	if flush := setupMetrics(cfg); flush != nil {
		defer flush()
	}

	opts, err := cfg.AnalysisOptions()
	if err != nil {
		return err
	}
	cat := analysis.New(opts)
	cat.Job = cfg.Job

	start := time.Now()
	reg, err := load(ctx, cfg)
	if err != nil {
		return err
	}
	logger.L().Info("tables loaded",
		logger.Strings("tables", reg.Names()),
		logger.Duration("elapsed", time.Since(start)))

	var exporter server.Exporter
	if cfg.Export.Enabled() {
		exporter = newExporter(cfg)
	}
	if f.serve {
		srv := server.New(server.Config{Addr: cfg.Server.Addr, Users: cfg.Server.Users}, cat, reg, exporter)
		return srv.ListenAndServe(ctx)
	}

	results, titles, err := runSelected(ctx, cat, reg, f, flt)
	if err != nil {
		return err
	}
	if err := report.Write(stdout, format, results, titles); err != nil {
		return err
	}
	if f.export {
		for _, res := range results {
			runID, n, err := exporter(ctx, res)
			if err != nil {
				return err
			}
			fmt.Fprintf(stderr, "exported %s: %d rows (run %s)\n", res.Name, n, runID)
		}
	}
	return nil
}

func loadConfig(path string) (config.Dashboard, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return cfg, err
		}
	}
	if err := config.ApplyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// setupMetrics installs the configured backend and returns its flush, or nil
// when metrics are disabled. Backend failures fall back to the nop backend.
func setupMetrics(cfg config.Dashboard) func() {
	var (
		b   metrics.Backend
		err error
	)
	switch cfg.Metrics.Backend {
	case "prometheus":
		b, err = prompush.NewBackend(cfg.Job, cfg.Metrics.PushgatewayURL)
	case "datadog":
		b, err = datadog.NewBackend(datadog.Config{
			Addr:       cfg.Metrics.DatadogAddr,
			Namespace:  cfg.Metrics.Namespace,
			GlobalTags: cfg.Metrics.Tags,
		})
	default:
		logger.L().Debug("metrics disabled", logger.String("backend", cfg.Metrics.Backend))
		return nil
	}
	if err != nil {
		logger.L().Warn("metrics backend unavailable; using nop", logger.ErrorF(err))
		return nil
	}
	metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			logger.L().Warn("metrics flush", logger.ErrorF(err))
		}
	}
}

// load fills a registry from the configured source.
func load(ctx context.Context, cfg config.Dashboard) (*registry.Registry, error) {
	reg := registry.New(schema.Contracts()...)
	opt := ingest.Options{
		Parser:      cfg.ParserOptions(),
		Concurrency: cfg.Runtime.LoadWorkers,
		Job:         cfg.Job,
	}
	switch cfg.Source.Kind {
	case "sql":
		repo, err := storage.New(ctx, storage.Config{Kind: cfg.Source.Storage.Kind, DSN: cfg.Source.Storage.DSN})
		if err != nil {
			return nil, err
		}
		defer repo.Close()
		if _, err := ingest.LoadRepository(ctx, repo, cfg.Source.Tables, reg, opt); err != nil {
			return nil, err
		}
	default:
		rep, err := ingest.LoadDir(ctx, cfg.Source.Dir, reg, opt)
		if err != nil {
			return nil, err
		}
		for name, ferr := range rep.Failed {
			logger.L().Warn("table skipped", logger.String("table", name), logger.ErrorF(ferr))
		}
	}
	return reg, nil
}

// runSelected runs one analysis, a page, or the whole catalog, with the
// filter scoped to each analysis' page.
func runSelected(ctx context.Context, cat *analysis.Catalog, reg *registry.Registry, f flags, flt filter.Filter) ([]analysis.Result, map[string]string, error) {
	var defs []analysis.Definition
	switch {
	case f.page != "":
		defs = cat.Page(analysis.Page(f.page))
		if len(defs) == 0 {
			return nil, nil, fmt.Errorf("%w: page %q", analysis.ErrUnknownAnalysis, f.page)
		}
	case f.name == "all":
		defs = cat.List()
	default:
		d, ok := cat.Lookup(f.name)
		if !ok {
			return nil, nil, fmt.Errorf("%w: %q (known: %v)", analysis.ErrUnknownAnalysis, f.name, cat.Names())
		}
		defs = []analysis.Definition{d}
	}

	// "all" is best effort: a missing extract should not hide every other
	// analysis.
	bestEffort := f.name == "all" && f.page == ""
	titles := make(map[string]string, len(defs))
	scoped := map[analysis.Page]*registry.Registry{}
	var out []analysis.Result
	for _, d := range defs {
		titles[d.Name] = d.Title
		r, ok := scoped[d.Page]
		if !ok {
			r = reg
			if flt.Kind != filter.None {
				var err error
				if r, err = filter.Apply(reg, filter.ForPage(d.Page, flt)); err != nil {
					if !bestEffort {
						return nil, nil, err
					}
					logger.L().Warn("page filter failed, skipping page",
						logger.String("page", string(d.Page)), logger.ErrorF(err))
					r = nil
				}
			}
			scoped[d.Page] = r
		}
		if r == nil {
			continue
		}
		res, err := cat.Run(ctx, d.Name, r)
		if err != nil {
			if bestEffort {
				logger.L().Warn("analysis skipped", logger.String("analysis", d.Name), logger.ErrorF(err))
				continue
			}
			return nil, nil, err
		}
		out = append(out, res)
	}
	return out, titles, nil
}
