package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"insights/internal/storage"
	"insights/internal/table"
)

func openRepo(t *testing.T, tableName string) storage.Repository {
	t.Helper()
	repo, err := storage.New(context.Background(), storage.Config{
		Kind:  "sqlite",
		DSN:   filepath.Join(t.TempDir(), "insights.db"),
		Table: tableName,
	})
	require.NoError(t, err)
	t.Cleanup(repo.Close)
	return repo
}

// TestExportRoundTrip verifies a summary survives Export and LoadTable.
func TestExportRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := openRepo(t, "inventory_by_category")
	summary := table.MustNew("inventory-by-category", []string{"CategoryName", "Quantity", "Value"}, [][]any{
		{"Bikes", int64(15), 1234.5},
		{"Components", int64(57), nil},
	})

	runID, n, err := storage.Export(ctx, repo, summary, storage.ExportOptions{
		Kind: "sqlite", Table: "inventory_by_category", Job: "test", BatchSize: 1, CreateTable: true,
	})
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	got, err := repo.LoadTable(ctx, "summary", "inventory_by_category", []string{"CategoryName", "Quantity", "Value", storage.RunIDColumn})
	require.NoError(t, err)
	require.Equal(t, 2, got.Len())
	require.Equal(t, "Bikes", got.Value(0, "CategoryName"))
	require.Equal(t, int64(15), got.Value(0, "Quantity"))
	require.Equal(t, 1234.5, got.Value(0, "Value"))
	require.Nil(t, got.Value(1, "Value"))
	require.Equal(t, runID, got.Value(1, storage.RunIDColumn))

	// A second export appends under a new run id without recreating the table.
	runID2, _, err := storage.Export(ctx, repo, summary, storage.ExportOptions{Kind: "sqlite", Table: "inventory_by_category", CreateTable: true})
	require.NoError(t, err)
	require.NotEqual(t, runID, runID2)
	all, err := repo.LoadTable(ctx, "summary", "inventory_by_category", nil)
	require.NoError(t, err)
	require.Equal(t, 4, all.Len())
}

// TestCopyFromRowWidth verifies mismatched rows roll back the batch.
func TestCopyFromRowWidth(t *testing.T) {
	ctx := context.Background()
	repo := openRepo(t, "loc")
	require.NoError(t, repo.Exec(ctx, `CREATE TABLE loc ("LocationID" INTEGER, "Name" TEXT)`))

	_, err := repo.CopyFrom(ctx, []string{"LocationID", "Name"}, [][]any{{int64(1), "Tool Crib"}, {int64(2)}})
	require.Error(t, err)

	got, err := repo.LoadTable(ctx, "Location", "loc", nil)
	require.NoError(t, err)
	require.Equal(t, 0, got.Len())
}

// TestNewRepositoryRequiresDSN verifies the DSN check.
func TestNewRepositoryRequiresDSN(t *testing.T) {
	_, _, err := NewRepository(context.Background(), Config{})
	require.Error(t, err)
}
