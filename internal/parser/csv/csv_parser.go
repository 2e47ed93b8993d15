// Package csv reads AdventureWorks CSV extracts into tables.
//
// Every cell is kept as a string (or nil when empty); typing is left to the
// contract coercion in the ingest package. Rows whose width differs from the
// header are skipped and counted rather than failing the file, matching how
// the extracts were historically loaded.
//
// Known byte-level corruption can be repaired before the CSV reader sees it
// with Options.Scrub. The rewrite streams with a small rolling carry and never
// buffers the whole file.
package csv

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"insights/internal/logger"
	"insights/internal/parser"
	"insights/internal/table"
)

// Replacement rewrites one byte sequence in the raw input.
type Replacement struct {
	From string
	To   string
}

// Options configures the CSV parser. Zero values are usable.
type Options struct {
	// Comma is the field delimiter. When zero, ',' is used.
	Comma rune
	// TrimSpace trims leading and trailing white space from each value.
	TrimSpace bool
	// LazyQuotes relaxes quote handling in the CSV reader.
	LazyQuotes bool
	// HeaderMap maps canonical header names to column names, e.g. a
	// localized export's "Cantidad" to "Quantity".
	HeaderMap map[string]string
	// Scrub lists byte rewrites applied in order before parsing.
	Scrub []Replacement
	// LogLimit caps how many skipped rows are logged individually.
	LogLimit int
}

// Parser parses CSV input according to Options. It is safe to reuse across
// inputs and for concurrent use.
type Parser struct{ opt Options }

var _ parser.Parser = (*Parser)(nil)

// NewParser constructs a Parser with the provided Options.
func NewParser(opt Options) *Parser {
	if opt.LogLimit == 0 {
		opt.LogLimit = 100
	}
	return &Parser{opt: opt}
}

// Parse reads a header row and the data rows that follow into a table named
// name. skipped counts rows dropped for a read error or a wrong field count.
func (p *Parser) Parse(r io.Reader, name string) (*table.Table, int, error) {
	for _, s := range p.opt.Scrub {
		r = newStreamingRewriter(r, []byte(s.From), []byte(s.To))
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = p.opt.LazyQuotes
	cr.ReuseRecord = true
	if p.opt.Comma != 0 {
		cr.Comma = p.opt.Comma
	}

	h, err := cr.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read csv header of %s: %w", name, err)
	}
	headers := p.headers(h)

	log := logger.L().With(logger.String("table", name))
	var (
		rows    [][]any
		skipped int
	)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err == nil && len(rec) != len(headers) {
			err = fmt.Errorf("expected %d fields, got %d", len(headers), len(rec))
		}
		if err != nil {
			if skipped < p.opt.LogLimit {
				log.Debug("skipping row", logger.Int("line", line), logger.ErrorF(err))
			}
			skipped++
			continue
		}
		row := make([]any, len(rec))
		for i, v := range rec {
			if p.opt.TrimSpace {
				v = strings.TrimSpace(v)
			}
			if v != "" {
				row[i] = v
			}
		}
		rows = append(rows, row)
	}
	if skipped > 0 {
		log.Warn("rows skipped", logger.Int("skipped", skipped), logger.Int("kept", len(rows)))
	}

	t, err := table.New(name, headers, rows)
	if err != nil {
		return nil, skipped, fmt.Errorf("parse %s: %w", name, err)
	}
	return t, skipped, nil
}

func (p *Parser) headers(h []string) []string {
	out := make([]string, len(h))
	copy(out, h)
	StripHeaderBOM(out)
	for i, c := range out {
		c = CanonicalHeader(c)
		if m, ok := p.opt.HeaderMap[c]; ok {
			c = m
		}
		if c == "" {
			c = fmt.Sprintf("col_%d", i)
		}
		out[i] = c
	}
	return out
}

var foldAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// CanonicalHeader folds accents and removes white space, so "Product ID",
// " ProductID " and "ProductÍD" all read as "ProductID".
func CanonicalHeader(h string) string {
	folded, _, err := transform.String(foldAccents, h)
	if err != nil {
		folded = h
	}
	return strings.Join(strings.Fields(folded), "")
}

// streamingRewriter replaces every occurrence of pat with repl without
// buffering the stream. The last len(pat)-1 bytes of each block are held
// back so matches spanning reads are still found.
type streamingRewriter struct {
	br    *bufio.Reader
	pat   []byte
	repl  []byte
	carry []byte
	buf   bytes.Buffer
	eof   bool
}

func newStreamingRewriter(r io.Reader, pat, repl []byte) *streamingRewriter {
	return &streamingRewriter{
		br:   bufio.NewReaderSize(r, 64*1024),
		pat:  pat,
		repl: repl,
	}
}

// Read implements io.Reader.
func (sr *streamingRewriter) Read(p []byte) (int, error) {
	for sr.buf.Len() == 0 {
		if sr.eof {
			return 0, io.EOF
		}
		if err := sr.fill(); err != nil {
			return 0, err
		}
	}
	return sr.buf.Read(p)
}

func (sr *streamingRewriter) fill() error {
	tmp := make([]byte, 64*1024)
	n, rerr := sr.br.Read(tmp)
	if n > 0 {
		block := append(sr.carry, tmp[:n]...)
		if len(sr.pat) > 0 {
			block = bytes.ReplaceAll(block, sr.pat, sr.repl)
		}
		k := len(sr.pat) - 1
		if k > 0 && len(block) > k {
			sr.buf.Write(block[:len(block)-k])
			sr.carry = append([]byte(nil), block[len(block)-k:]...)
		} else if k > 0 {
			sr.carry = append([]byte(nil), block...)
		} else {
			sr.buf.Write(block)
			sr.carry = nil
		}
	}
	switch {
	case rerr == io.EOF:
		sr.buf.Write(sr.carry)
		sr.carry = nil
		sr.eof = true
	case rerr != nil:
		return rerr
	}
	return nil
}
