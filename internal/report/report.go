// Package report renders analysis results as aligned text, CSV or JSON. The
// CLI and the HTTP API share it so both surfaces print identical tables.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"
	"time"

	"insights/internal/analysis"
	"insights/internal/table"
)

// Format selects the output encoding.
type Format string

const (
	Text Format = "text"
	CSV  Format = "csv"
	JSON Format = "json"
)

// ParseFormat accepts text, csv or json; empty means text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return Text, nil
	case Text, CSV, JSON:
		return f, nil
	}
	return "", fmt.Errorf("unknown format %q (want text, csv or json)", s)
}

// ContentType is the HTTP media type of f.
func (f Format) ContentType() string {
	switch f {
	case CSV:
		return "text/csv; charset=utf-8"
	case JSON:
		return "application/json"
	}
	return "text/plain; charset=utf-8"
}

// Payload is the JSON shape of one result. Rows follow Columns order.
type Payload struct {
	Name      string        `json:"name"`
	Title     string        `json:"title,omitempty"`
	Page      analysis.Page `json:"page"`
	Columns   []string      `json:"columns"`
	Rows      [][]any       `json:"rows"`
	Excluded  int           `json:"excluded"`
	ElapsedMS int64         `json:"elapsed_ms"`
}

// NewPayload converts res. NaN and infinities become null.
func NewPayload(res analysis.Result, title string) Payload {
	p := Payload{
		Name:      res.Name,
		Title:     title,
		Page:      res.Page,
		Columns:   res.Table.Columns(),
		Rows:      make([][]any, 0, res.Table.Len()),
		Excluded:  res.Excluded,
		ElapsedMS: res.Elapsed.Milliseconds(),
	}
	for _, r := range res.Table.Rows() {
		out := make([]any, len(r))
		for i, v := range r {
			out[i] = jsonCell(v)
		}
		p.Rows = append(p.Rows, out)
	}
	return p
}

func jsonCell(v any) any {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
	case time.Time:
		return table.Text(x)
	}
	return v
}

// Write renders results to w. JSON writes a single object for one result
// and an array otherwise. titles maps analysis names to display titles.
func Write(w io.Writer, f Format, results []analysis.Result, titles map[string]string) error {
	switch f {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if len(results) == 1 {
			return enc.Encode(NewPayload(results[0], titles[results[0].Name]))
		}
		all := make([]Payload, 0, len(results))
		for _, r := range results {
			all = append(all, NewPayload(r, titles[r.Name]))
		}
		return enc.Encode(all)
	case CSV:
		for i, r := range results {
			if i > 0 {
				if _, err := io.WriteString(w, "\n"); err != nil {
					return err
				}
			}
			if err := WriteCSV(w, r.Table); err != nil {
				return err
			}
		}
		return nil
	}
	for i, r := range results {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		title := titles[r.Name]
		if title == "" {
			title = r.Name
		}
		if _, err := fmt.Fprintf(w, "== %s [%s] ==\n", title, r.Page); err != nil {
			return err
		}
		if err := WriteText(w, r.Table); err != nil {
			return err
		}
		if r.Excluded > 0 {
			if _, err := fmt.Fprintf(w, "(%d rows excluded)\n", r.Excluded); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteCSV writes t with a header row.
func WriteCSV(w io.Writer, t *table.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns()); err != nil {
		return err
	}
	rec := make([]string, len(t.Columns()))
	for _, r := range t.Rows() {
		for i, v := range r {
			rec[i] = cellText(v)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteText writes t as tab-aligned columns.
func WriteText(w io.Writer, t *table.Table) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(t.Columns(), "\t"))
	rec := make([]string, len(t.Columns()))
	for _, r := range t.Rows() {
		for i, v := range r {
			rec[i] = cellText(v)
		}
		fmt.Fprintln(tw, strings.Join(rec, "\t"))
	}
	return tw.Flush()
}

// cellText rounds floats to four decimals for display.
func cellText(v any) string {
	if f, ok := v.(float64); ok && !math.IsNaN(f) && !math.IsInf(f, 0) && f != math.Trunc(f) {
		return fmt.Sprintf("%.4f", f)
	}
	return table.Text(v)
}
