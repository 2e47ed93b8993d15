package main

import (
	"context"
	"strings"

	"insights/internal/analysis"
	"insights/internal/config"
	"insights/internal/server"
	"insights/internal/storage"
)

// exportTable names the destination of an analysis, e.g.
// "insights.inventory_by_category".
func exportTable(schema, name string) string {
	t := strings.ReplaceAll(name, "-", "_")
	if schema == "" {
		return t
	}
	return schema + "." + t
}

// newExporter opens one repository per export, targeting the analysis'
// own table.
func newExporter(cfg config.Dashboard) server.Exporter {
	return func(ctx context.Context, res analysis.Result) (string, int64, error) {
		dest := exportTable(cfg.Export.Schema, res.Name)
		repo, err := storage.New(ctx, storage.Config{Kind: cfg.Export.Kind, DSN: cfg.Export.DSN, Table: dest})
		if err != nil {
			return "", 0, err
		}
		defer repo.Close()
		batch := cfg.Export.BatchSize
		if batch == 0 {
			batch = cfg.Runtime.BatchSize
		}
		return storage.Export(ctx, repo, res.Table, storage.ExportOptions{
			Kind:        cfg.Export.Kind,
			Table:       dest,
			Job:         cfg.Job,
			BatchSize:   batch,
			CreateTable: cfg.Export.AutoCreateTable,
		})
	}
}
