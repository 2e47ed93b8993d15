package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"insights/internal/storage"

	"github.com/stretchr/testify/require"
)

var extracts = map[string]string{
	"ProductCategory.csv":    "ProductCategoryID,Name\n1,Bikes\n2,Components\n",
	"ProductSubcategory.csv": "ProductSubcategoryID,Name,ProductCategoryID\n10,Road Bikes,1\n20,Brakes,2\n",
	"Product.csv": "ProductID,Name,StandardCost,ListPrice,SafetyStockLevel,ProductSubcategoryID,ProductModelID\n" +
		"1,Road-150,100.0,200.0,5,10,7\n" +
		"2,Brake-X,10.0,20.0,0,20,8\n",
	"Location.csv": "LocationID,Name\n1,Tool Crib\n2,Paint Shop\n",
	"ProductInventory.csv": "ProductID,LocationID,Quantity,ModifiedDate\n" +
		"1,1,10,2013-07-15\n" +
		"1,2,5,2013-08-03\n" +
		"2,1,50,2013-08-20\n",
}

// writeFixture lays out extracts and a config; exportDSN may be empty.
func writeFixture(t *testing.T, exportDSN string) string {
	t.Helper()
	dir := t.TempDir()
	data := filepath.Join(dir, "data")
	require.NoError(t, os.Mkdir(data, 0o755))
	for name, body := range extracts {
		require.NoError(t, os.WriteFile(filepath.Join(data, name), []byte(body), 0o644))
	}
	export := ""
	if exportDSN != "" {
		export = fmt.Sprintf(`"export": {"kind": "sqlite", "dsn": %q, "auto_create_table": true},`, exportDSN)
	}
	cfg := fmt.Sprintf(`{"job": "test", "source": {"kind": "dir", "dir": %q}, %s "log": {"level": "error"}}`, data, export)
	path := filepath.Join(dir, "insights.json")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path
}

/* TestRunPrintsCSV verifies an end-to-end run from extracts to CSV output. */
func TestRunPrintsCSV(t *testing.T) {
	cfg := writeFixture(t, "")
	var out, errOut bytes.Buffer
	err := run(context.Background(), []string{"-config", cfg, "-analysis", "inventory-by-category", "-format", "csv"}, &out, &errOut)
	require.NoError(t, err, errOut.String())
	require.Equal(t, "CategoryName,Quantity\nComponents,50\nBikes,15\n", out.String())
}

/* TestRunFilter verifies the filter is scoped to the analysis' page. */
func TestRunFilter(t *testing.T) {
	cfg := writeFixture(t, "")
	var out, errOut bytes.Buffer
	err := run(context.Background(), []string{
		"-config", cfg, "-analysis", "inventory-by-category", "-format", "csv",
		"-filter", "category", "-value", "Bikes",
	}, &out, &errOut)
	require.NoError(t, err, errOut.String())
	require.Equal(t, "CategoryName,Quantity\nBikes,15\n", out.String())
}

// TestRunErrors checks argument and lookup failures surface as errors.
func TestRunErrors(t *testing.T) {
	cfg := writeFixture(t, "")
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown analysis", []string{"-analysis", "nope"}, "unknown analysis"},
		{"unknown page", []string{"-page", "nope"}, "unknown analysis"},
		{"bad format", []string{"-format", "xml"}, "unknown format"},
		{"bad filter", []string{"-filter", "colour"}, "unknown filter kind"},
		{"export without destination", []string{"-export"}, "-export requires"},
		{"missing table", []string{"-analysis", "scrap-by-reason"}, "missing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out, errOut bytes.Buffer
			err := run(context.Background(), append([]string{"-config", cfg}, tt.args...), &out, &errOut)
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.want)
		})
	}
}

/*
TestRunAllSkipsUnfilterablePages verifies a filter that cannot be resolved
skips pages under "all" but still fails a single page run.
*/
func TestRunAllSkipsUnfilterablePages(t *testing.T) {
	cfg := writeFixture(t, "")
	require.NoError(t, os.Remove(filepath.Join(filepath.Dir(cfg), "data", "Location.csv")))
	flt := []string{"-config", cfg, "-format", "csv", "-filter", "location", "-value", "Tool Crib"}

	var out, errOut bytes.Buffer
	err := run(context.Background(), append(flt, "-analysis", "all"), &out, &errOut)
	require.NoError(t, err, errOut.String())

	out.Reset()
	err = run(context.Background(), append(flt, "-page", "inventory"), &out, &errOut)
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing")
}

// TestRunValidate checks -validate stops after the config check.
func TestRunValidate(t *testing.T) {
	var out, errOut bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-config", writeFixture(t, ""), "-validate"}, &out, &errOut))
	require.Contains(t, out.String(), "configuration is valid")
}

/* TestRunExport verifies results are written to the export database with a run id. */
func TestRunExport(t *testing.T) {
	db := filepath.Join(t.TempDir(), "out.db")
	var out, errOut bytes.Buffer
	err := run(context.Background(), []string{
		"-config", writeFixture(t, db), "-analysis", "inventory-by-category", "-format", "json", "-export",
	}, &out, &errOut)
	require.NoError(t, err, errOut.String())
	require.True(t, strings.Contains(errOut.String(), "exported inventory-by-category: 2 rows"), errOut.String())

	repo, err := storage.New(context.Background(), storage.Config{Kind: "sqlite", DSN: db})
	require.NoError(t, err)
	defer repo.Close()
	got, err := repo.LoadTable(context.Background(), "summary", "inventory_by_category", nil)
	require.NoError(t, err)
	require.Equal(t, 2, got.Len())
	require.True(t, got.Has(storage.RunIDColumn))
}

// TestExportTable checks destination naming.
func TestExportTable(t *testing.T) {
	require.Equal(t, "inventory_by_category", exportTable("", "inventory-by-category"))
	require.Equal(t, "insights.top_products", exportTable("insights", "top-products"))
}
