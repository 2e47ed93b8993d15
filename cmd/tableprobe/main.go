// Command tableprobe checks a directory of extracts before a dashboard run:
// row counts, rows the parser would drop, the type each column looks like,
// and whether each table satisfies its contract.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"unicode/utf8"

	"insights/internal/datasource/file"
	"insights/internal/parser/csv"
	"insights/internal/probe"
)

var (
	flagDir       = flag.String("dir", "data", "directory holding one <Table>.csv per table")
	flagDelimiter = flag.String("delimiter", ",", "CSV field delimiter (single character)")
	flagJSON      = flag.Bool("json", false, "print reports as JSON")
	flagStrict    = flag.Bool("strict", false, "exit 1 when any table fails its contract")
)

func main() {
	flag.Parse()

	delim := ','
	if *flagDelimiter != "" {
		if r, _ := utf8.DecodeRuneInString(*flagDelimiter); r != utf8.RuneError {
			delim = r
		}
	}

	reports, err := probeDir(context.Background(), *flagDir, csv.Options{Comma: delim, TrimSpace: true})
	if err != nil {
		fmt.Fprintln(os.Stderr, "tableprobe:", err)
		os.Exit(1)
	}
	if *flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		err = enc.Encode(reports)
	} else {
		err = printReports(os.Stdout, reports)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "tableprobe:", err)
		os.Exit(1)
	}
	if *flagStrict {
		for _, r := range reports {
			if !r.OK() {
				os.Exit(1)
			}
		}
	}
}

// probeDir parses every extract in dir and inspects it. A file that does not
// parse at all is reported as an error.
func probeDir(ctx context.Context, dir string, opt csv.Options) ([]probe.Report, error) {
	paths, names, err := file.ListTables(dir)
	if err != nil {
		return nil, err
	}
	p := csv.NewParser(opt)
	out := make([]probe.Report, 0, len(names))
	for _, name := range names {
		rc, err := file.NewLocal(paths[name]).Open(ctx)
		if err != nil {
			return nil, err
		}
		t, skipped, err := p.Parse(rc, name)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out = append(out, probe.Inspect(t, skipped))
	}
	return out, nil
}

func printReports(w io.Writer, reports []probe.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, r := range reports {
		status := "ok"
		if !r.OK() {
			status = "FAIL"
		}
		contract := "none"
		if r.HasContract {
			contract = "checked"
		}
		fmt.Fprintf(tw, "%s\trows=%d\tskipped=%d\tcontract=%s\t%s\n", r.Table, r.Rows, r.SkippedRows, contract, status)
		for _, c := range r.Columns {
			declared := c.Declared
			if declared == "" {
				declared = "-"
			}
			fmt.Fprintf(tw, "  %s\t%s\t%s\tnulls=%d\t%s\n", c.Name, c.Inferred, declared, c.Nulls, c.Mismatch)
		}
		for _, m := range r.Missing {
			fmt.Fprintf(tw, "  %s\tmissing\t\t\trequired by contract\n", m)
		}
	}
	return tw.Flush()
}
