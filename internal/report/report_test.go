package report

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"insights/internal/analysis"
	"insights/internal/table"

	"github.com/stretchr/testify/require"
)

func result() analysis.Result {
	t := table.MustNew("top-products", []string{"Name", "Quantity", "Ratio", "Date"}, [][]any{
		{"Chain", int64(408), 0.25, time.Date(2014, 6, 30, 0, 0, 0, 0, time.UTC)},
		{"Crankarm", int64(0), math.NaN(), nil},
	})
	return analysis.Result{Name: "top-products", Page: analysis.PageInventory, Table: t, Excluded: 1, Elapsed: 3 * time.Millisecond}
}

// TestParseFormat checks accepted spellings and the default.
func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": Text, "JSON": JSON, " csv ": CSV, "text": Text} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := ParseFormat("xml")
	require.Error(t, err)
}

/* TestWriteJSON verifies NaN becomes null and dates render as text. */
func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, JSON, []analysis.Result{result()}, map[string]string{"top-products": "Top products"}))

	var p Payload
	require.NoError(t, json.Unmarshal(buf.Bytes(), &p))
	require.Equal(t, "Top products", p.Title)
	require.Equal(t, []string{"Name", "Quantity", "Ratio", "Date"}, p.Columns)
	require.Equal(t, "2014-06-30", p.Rows[0][3])
	require.Nil(t, p.Rows[1][2])
	require.Equal(t, 1, p.Excluded)
	require.EqualValues(t, 3, p.ElapsedMS)
}

// TestWriteCSV checks the header and the empty rendering of nulls.
func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, CSV, []analysis.Result{result()}, nil))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Equal(t, []string{
		"Name,Quantity,Ratio,Date",
		"Chain,408,0.2500,2014-06-30",
		"Crankarm,0,,",
	}, lines)
}

// TestWriteText checks the title line and the excluded footer.
func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Text, []analysis.Result{result()}, nil))
	out := buf.String()
	require.True(t, strings.HasPrefix(out, "== top-products [inventory] ==\n"), out)
	require.Contains(t, out, "Chain")
	require.Contains(t, out, "(1 rows excluded)")
}
