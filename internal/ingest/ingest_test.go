package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"insights/internal/parser/csv"
	"insights/internal/registry"
	"insights/internal/schema"
	"insights/internal/storage"
	_ "insights/internal/storage/sqlite"
	"insights/internal/table"
)

func writeCSV(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

/* TestLoadDir verifies coercion, NA handling and that unreadable files are skipped. */
func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "ProductInventory.csv", "ProductID,LocationID,Shelf,Quantity,ModifiedDate\n"+
		"1.0,1,A,408,2014-08-08\n"+
		"1,6,NA,324,2014-08-08\n"+
		"2,1,B,NULL,2014-08-08\n"+
		"3,50,C,585\n")
	writeCSV(t, dir, "Location.csv", "LocationID,Name\n1,Tool Crib\n6,Miscellaneous Storage\n")
	writeCSV(t, dir, "ScrapReason.csv", "")
	writeCSV(t, dir, "notes.txt", "ignored")

	reg := registry.New(schema.Contracts()...)
	rep, err := LoadDir(context.Background(), dir, reg, Options{Parser: csv.Options{TrimSpace: true}, Job: "test"})
	require.NoError(t, err)
	require.Equal(t, []string{"Location", "ProductInventory"}, rep.Names())
	require.Equal(t, 3, rep.Loaded[schema.ProductInventory])
	require.Equal(t, 1, rep.Skipped[schema.ProductInventory])
	require.Contains(t, rep.Failed, schema.ScrapReason)

	inv, err := reg.Get(schema.ProductInventory)
	require.NoError(t, err)
	require.Equal(t, "1", inv.Value(0, "ProductID"), "keys are canonical")
	require.Equal(t, int64(408), inv.Value(0, "Quantity"))
	require.Nil(t, inv.Value(1, "Shelf"), "NA marker is null")
	require.Nil(t, inv.Value(2, "Quantity"))
	require.Equal(t, time.Date(2014, 8, 8, 0, 0, 0, 0, time.UTC), inv.Value(0, "ModifiedDate"))

	_, err = reg.Get(schema.ScrapReason)
	require.ErrorIs(t, err, table.ErrMissingTable)
}

/* TestLoadDirContractViolation verifies a missing required column fails the load. */
func TestLoadDirContractViolation(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "Location.csv", "LocationID\n1\n")

	_, err := LoadDir(context.Background(), dir, registry.New(schema.Contracts()...), Options{})
	require.ErrorIs(t, err, table.ErrMissingColumn)
}

/* TestLoadDirSelectedTables verifies Options.Tables restricts the load. */
func TestLoadDirSelectedTables(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "Location.csv", "LocationID,Name\n1,Tool Crib\n")
	writeCSV(t, dir, "ProductCategory.csv", "ProductCategoryID,Name\n1,Bikes\n")

	reg := registry.New(schema.Contracts()...)
	rep, err := LoadDir(context.Background(), dir, reg, Options{Tables: []string{schema.ProductCategory}, Concurrency: 1})
	require.NoError(t, err)
	require.Equal(t, []string{schema.ProductCategory}, rep.Names())
	require.Equal(t, []string{schema.ProductCategory}, reg.Names())
}

/* TestLoadDirMissingDir verifies a missing directory is an error. */
func TestLoadDirMissingDir(t *testing.T) {
	_, err := LoadDir(context.Background(), filepath.Join(t.TempDir(), "nope"), registry.New(), Options{})
	require.Error(t, err)
}

/* TestLoadRepository verifies tables are read from SQL and coerced. */
func TestLoadRepository(t *testing.T) {
	ctx := context.Background()
	repo, err := storage.New(ctx, storage.Config{Kind: "sqlite", DSN: filepath.Join(t.TempDir(), "aw.db")})
	require.NoError(t, err)
	defer repo.Close()
	require.NoError(t, repo.Exec(ctx, `CREATE TABLE "ProductCategory" ("ProductCategoryID" INTEGER, "Name" TEXT)`))
	require.NoError(t, repo.Exec(ctx, `INSERT INTO "ProductCategory" VALUES (1, 'Bikes'), (4, 'Accessories')`))

	reg := registry.New(schema.Contracts()...)
	rep, err := LoadRepository(ctx, repo, map[string]string{schema.ProductCategory: "ProductCategory"}, reg, Options{})
	require.NoError(t, err)
	require.Equal(t, 2, rep.Loaded[schema.ProductCategory])

	cat, err := reg.Get(schema.ProductCategory)
	require.NoError(t, err)
	require.Equal(t, "4", cat.Value(1, "ProductCategoryID"))
	require.Equal(t, "Accessories", cat.Value(1, "Name"))

	_, err = LoadRepository(ctx, repo, map[string]string{schema.Location: "Location"}, reg, Options{})
	require.Error(t, err)
}
