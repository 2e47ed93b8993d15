package table

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// dateLayouts are tried in order when a string cell is read as a time. The
// first entries cover database extracts; the slash forms cover spreadsheet
// exports, month first.
var dateLayouts = []string{
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006 15:04:05",
	"1/2/2006 15:04",
	"01/02/2006",
	"1/2/2006",
}

// IsNull reports whether v is a missing value: nil, NaN, or blank text.
func IsNull(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(x)
	case float32:
		return math.IsNaN(float64(x))
	case string:
		return strings.TrimSpace(x) == ""
	}
	return false
}

// Float reads v as a number. Numeric text is parsed; nulls and anything that
// is not a number report false.
func Float(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) {
			return 0, false
		}
		return x, true
	case float32:
		if math.IsNaN(float64(x)) {
			return 0, false
		}
		return float64(x), true
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int16:
		return float64(x), true
	case uint8:
		return float64(x), true
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// Time reads v as a timestamp. Strings are parsed against the known layouts;
// a zero time.Time is treated as missing.
func Time(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, !x.IsZero()
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// Text renders v for display and for text comparison. Nulls render empty.
func Text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		if math.IsNaN(x) {
			return ""
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format("2006-01-02")
		}
		return x.Format("2006-01-02 15:04:05")
	}
	if f, ok := Float(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return ""
}

// Compare orders two non-null values: numerically when both read as
// numbers, chronologically when both are times, textually otherwise.
func Compare(a, b any) int {
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb)
		}
	}
	fa, oka := Float(a)
	fb, okb := Float(b)
	if oka && okb {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	return strings.Compare(Text(a), Text(b))
}

// AppendKey appends a type-tagged encoding of v to buf, terminated by a unit
// separator, so that tuples of values can be hashed and compared as bytes.
func AppendKey(buf []byte, v any) []byte {
	switch x := v.(type) {
	case nil:
		buf = append(buf, 'z')
	case string:
		buf = append(buf, 's')
		buf = append(buf, x...)
	case time.Time:
		buf = append(buf, 't')
		buf = strconv.AppendInt(buf, x.UnixNano(), 10)
	case bool:
		buf = append(buf, 'b')
		buf = strconv.AppendBool(buf, x)
	case int:
		buf = strconv.AppendInt(append(buf, 'n'), int64(x), 10)
	case int32:
		buf = strconv.AppendInt(append(buf, 'n'), int64(x), 10)
	case int64:
		buf = strconv.AppendInt(append(buf, 'n'), x, 10)
	case uint64:
		buf = strconv.AppendUint(append(buf, 'n'), x, 10)
	default:
		if f, ok := Float(v); ok {
			buf = append(buf, 'n')
			// Integral floats share the integer encoding so 12 and 12.0 agree.
			if f == math.Trunc(f) && math.Abs(f) < 1<<63 {
				buf = strconv.AppendInt(buf, int64(f), 10)
			} else {
				buf = strconv.AppendFloat(buf, f, 'g', -1, 64)
			}
		} else {
			buf = append(buf, 'z')
		}
	}
	return append(buf, 0x1f)
}
