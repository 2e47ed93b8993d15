package pipeline

import (
	"fmt"
	"sort"

	"github.com/zeebo/xxh3"

	"insights/internal/table"
)

// Reduction names an aggregate function.
type Reduction string

const (
	Sum     Reduction = "sum"
	Mean    Reduction = "mean"
	Count   Reduction = "count"   // non-null values
	NUnique Reduction = "nunique" // distinct non-null values
	Min     Reduction = "min"
	Max     Reduction = "max"
	Median  Reduction = "median"
)

func (r Reduction) numeric() bool {
	switch r {
	case Sum, Mean, Min, Max, Median:
		return true
	}
	return false
}

// Measure reduces one column. As names the output column and defaults to
// Column.
type Measure struct {
	Column string
	Reduce Reduction
	As     string
}

func (m Measure) name() string {
	if m.As != "" {
		return m.As
	}
	return m.Column
}

// GroupBy produces one row per distinct combination of Columns present in the
// input, with each measure reduced over the group. There is no zero fill.
// Rows with a null group key are dropped unless KeepNullKeys is set. Output
// rows are ordered by group key ascending.
//
// Numeric reductions fail with InvalidMeasureError when the column holds a
// non-numeric value or when every value of a non-empty input is null. Within
// a group, a sum of nulls is 0 while mean, min, max and median are null.
type GroupBy struct {
	Columns      []string
	Measures     []Measure
	KeepNullKeys bool
}

type group struct {
	key  string
	rows []int
}

// Apply implements transformer.Transformer.
func (g GroupBy) Apply(t *table.Table) (*table.Table, error) {
	if err := t.Require(g.Columns...); err != nil {
		return nil, err
	}
	for _, m := range g.Measures {
		if err := checkMeasure(t, m); err != nil {
			return nil, err
		}
	}

	keyPos := positions(t, g.Columns)
	rows := t.Rows()
	var (
		groups  []*group
		buckets = make(map[uint64][]*group)
		buf     []byte
	)
next:
	for i, r := range rows {
		buf = buf[:0]
		for _, j := range keyPos {
			if !g.KeepNullKeys && table.IsNull(r[j]) {
				continue next
			}
			buf = table.AppendKey(buf, r[j])
		}
		h := xxh3.Hash(buf)
		var hit *group
		for _, cand := range buckets[h] {
			if cand.key == string(buf) {
				hit = cand
				break
			}
		}
		if hit == nil {
			hit = &group{key: string(buf)}
			buckets[h] = append(buckets[h], hit)
			groups = append(groups, hit)
		}
		hit.rows = append(hit.rows, i)
	}

	sort.SliceStable(groups, func(a, b int) bool {
		ra, rb := rows[groups[a].rows[0]], rows[groups[b].rows[0]]
		for _, j := range keyPos {
			va, vb := ra[j], rb[j]
			na, nb := table.IsNull(va), table.IsNull(vb)
			switch {
			case na && nb:
				continue
			case na:
				return false
			case nb:
				return true
			}
			if c := table.Compare(va, vb); c != 0 {
				return c < 0
			}
		}
		return false
	})

	cols := append([]string{}, g.Columns...)
	for _, m := range g.Measures {
		cols = append(cols, m.name())
	}
	measurePos := make([]int, len(g.Measures))
	for i, m := range g.Measures {
		measurePos[i], _ = t.Index(m.Column)
	}

	out := make([][]any, 0, len(groups))
	for _, gr := range groups {
		first := rows[gr.rows[0]]
		nr := make([]any, 0, len(cols))
		for _, j := range keyPos {
			nr = append(nr, first[j])
		}
		for i, m := range g.Measures {
			nr = append(nr, reduce(m.Reduce, rows, gr.rows, measurePos[i]))
		}
		out = append(out, nr)
	}
	res, err := table.New(t.Name(), cols, out)
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, c := range g.Columns {
		if t.IsKey(c) {
			keys = append(keys, c)
		}
	}
	return res.MarkKeys(keys...)
}

func checkMeasure(t *table.Table, m Measure) error {
	j, err := t.Index(m.Column)
	if err != nil {
		return err
	}
	switch m.Reduce {
	case Sum, Mean, Count, NUnique, Min, Max, Median:
	default:
		return &table.InvalidMeasureError{Table: t.Name(), Column: m.Column,
			Reason: fmt.Sprintf("unknown reduction %q", m.Reduce)}
	}
	if !m.Reduce.numeric() {
		return nil
	}
	nonNull := 0
	for i, r := range t.Rows() {
		v := r[j]
		if table.IsNull(v) {
			continue
		}
		if _, ok := table.Float(v); !ok {
			return &table.InvalidMeasureError{Table: t.Name(), Column: m.Column,
				Reason: fmt.Sprintf("non-numeric value %q in row %d", table.Text(v), i)}
		}
		nonNull++
	}
	if t.Len() > 0 && nonNull == 0 {
		return &table.InvalidMeasureError{Table: t.Name(), Column: m.Column, Reason: "every value is null"}
	}
	return nil
}

func reduce(r Reduction, rows [][]any, idx []int, j int) any {
	switch r {
	case Count:
		var n int64
		for _, i := range idx {
			if !table.IsNull(rows[i][j]) {
				n++
			}
		}
		return n
	case NUnique:
		seen := make(map[string]struct{})
		var buf []byte
		for _, i := range idx {
			v := rows[i][j]
			if table.IsNull(v) {
				continue
			}
			buf = table.AppendKey(buf[:0], v)
			seen[string(buf)] = struct{}{}
		}
		return int64(len(seen))
	}

	vals := make([]float64, 0, len(idx))
	for _, i := range idx {
		if f, ok := table.Float(rows[i][j]); ok {
			vals = append(vals, f)
		}
	}
	if r == Sum {
		var s float64
		for _, v := range vals {
			s += v
		}
		return s
	}
	if len(vals) == 0 {
		return nil
	}
	switch r {
	case Mean:
		var s float64
		for _, v := range vals {
			s += v
		}
		return s / float64(len(vals))
	case Min, Max:
		best := vals[0]
		for _, v := range vals[1:] {
			if (r == Min && v < best) || (r == Max && v > best) {
				best = v
			}
		}
		return best
	case Median:
		sort.Float64s(vals)
		n := len(vals)
		if n%2 == 1 {
			return vals[n/2]
		}
		return (vals[n/2-1] + vals[n/2]) / 2
	}
	return nil
}
