// Package builtin contains the reusable transformers: key normalization,
// contract-driven coercion, string cleanup, and required-field filtering.
package builtin

import (
	"math"
	"strconv"
	"strings"

	"insights/internal/table"
)

// CanonicalKey maps a join-key cell to its canonical form.
//
// Integral numbers, whatever their source representation (12, 12.0, "12",
// " 12.0 "), become the decimal string "12". Integers and digit strings are
// rewritten exactly, so ids beyond 2^53 never collapse onto a neighbour.
// Other numbers keep their shortest decimal form and other text, including
// "NaN" and "Inf", is trimmed. Nil, float NaN and blank cells become nil so
// they can never match in a join.
func CanonicalKey(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil
		}
		if k, ok := integerText(s); ok {
			return k
		}
		if !numericText(s) {
			return s
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) {
			return formatKey(f)
		}
		return s
	case int:
		return strconv.FormatInt(int64(x), 10)
	case int8:
		return strconv.FormatInt(int64(x), 10)
	case int16:
		return strconv.FormatInt(int64(x), 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint:
		return strconv.FormatUint(uint64(x), 10)
	case uint8:
		return strconv.FormatUint(uint64(x), 10)
	case uint16:
		return strconv.FormatUint(uint64(x), 10)
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	}
	if f, ok := table.Float(v); ok {
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return nil
		}
		return formatKey(f)
	}
	if table.IsNull(v) {
		return nil
	}
	return table.Text(v)
}

// integerText canonicalizes an optionally signed digit string with an
// optional all-zero fraction ("-007.00" -> "-7") without going through float.
func integerText(s string) (string, bool) {
	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	if i := strings.IndexByte(s, '.'); i >= 0 {
		if strings.Trim(s[i+1:], "0") != "" {
			return "", false
		}
		s = s[:i]
	}
	if s == "" {
		return "", false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return "", false
		}
	}
	s = strings.TrimLeft(s, "0")
	if s == "" {
		return "0", true
	}
	if neg {
		return "-" + s, true
	}
	return s, true
}

// numericText reports whether s is a plain decimal or exponent literal.
// Words that ParseFloat accepts ("NaN", "Inf", "infinity") are not.
func numericText(s string) bool {
	digits := false
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c >= '0' && c <= '9':
			digits = true
		case c == '+' || c == '-' || c == '.' || c == 'e' || c == 'E':
		default:
			return false
		}
	}
	return digits
}

func formatKey(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// NormalizeKeys rewrites the listed columns into canonical key form and marks
// them as join keys. It never changes the row count, never mutates its input,
// and is a no-op on columns already in canonical form.
type NormalizeKeys struct {
	Columns []string
}

// Apply implements transformer.Transformer.
func (n NormalizeKeys) Apply(t *table.Table) (*table.Table, error) {
	if err := t.Require(n.Columns...); err != nil {
		return nil, err
	}
	out := t
	for _, c := range n.Columns {
		if out.IsKey(c) {
			continue
		}
		col := c
		out = out.WithColumn(col, func(r table.Row) any { return CanonicalKey(r.Get(col)) })
	}
	return out.MarkKeys(n.Columns...)
}
