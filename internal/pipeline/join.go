// Package pipeline holds the join planner and the aggregator: the two
// parameterized stages every analysis is composed from.
//
// A Plan names a fact table and an ordered list of dimension Steps. Running
// it normalizes the join keys on both sides and left-joins each dimension in
// turn, so every fact row survives with nulls where a lookup misses. A
// GroupBy then reduces the enriched rows to one row per key combination.
package pipeline

import (
	"fmt"
	"strings"

	"insights/internal/table"
)

// JoinKind selects the merge semantics.
type JoinKind int

const (
	// LeftJoin keeps every left row exactly once.
	LeftJoin JoinKind = iota
	// OuterJoin keeps every row of both sides; both key sets must be unique.
	OuterJoin
)

func (k JoinKind) String() string {
	if k == OuterJoin {
		return "outer"
	}
	return "left"
}

// JoinOptions configures one merge.
type JoinOptions struct {
	// On lists the left key columns.
	On []string
	// RightOn lists the right key columns; it defaults to On.
	RightOn []string
	Kind    JoinKind
	// Columns are the right columns to attach. Empty means every non-key
	// column of the right table.
	Columns []string
	// As renames attached columns.
	As map[string]string
	// Suffix is appended as "_<Suffix>" to an attached column whose name is
	// already taken. It defaults to the right table's name.
	Suffix string
}

// Join merges right into left.
//
// Key columns on both sides must have been normalized (see
// builtin.NormalizeKeys), otherwise a JoinKeyMismatchError is returned. The
// right side's key combinations must be unique (DuplicateKeyError), so a left
// join never duplicates or drops left rows. Rows with a null key never match.
func Join(left, right *table.Table, o JoinOptions) (*table.Table, error) {
	if len(o.On) == 0 {
		return nil, fmt.Errorf("join %s with %s: no key columns", left.Name(), right.Name())
	}
	rightOn := o.RightOn
	if len(rightOn) == 0 {
		rightOn = o.On
	}
	if len(rightOn) != len(o.On) {
		return nil, fmt.Errorf("join %s with %s: %d left keys but %d right keys",
			left.Name(), right.Name(), len(o.On), len(rightOn))
	}
	if err := left.Require(o.On...); err != nil {
		return nil, err
	}
	if err := right.Require(rightOn...); err != nil {
		return nil, err
	}
	for i := range o.On {
		if !left.IsKey(o.On[i]) || !right.IsKey(rightOn[i]) {
			return nil, &table.JoinKeyMismatchError{
				Left: left.Name(), Right: right.Name(),
				LeftKey: o.On[i], RightKey: rightOn[i],
			}
		}
	}

	attach := o.Columns
	if len(attach) == 0 {
		keySet := make(map[string]bool, len(rightOn))
		for _, k := range rightOn {
			keySet[k] = true
		}
		for _, c := range right.Columns() {
			if !keySet[c] {
				attach = append(attach, c)
			}
		}
	}
	if err := right.Require(attach...); err != nil {
		return nil, err
	}
	suffix := o.Suffix
	if suffix == "" {
		suffix = right.Name()
	}

	leftCols := left.Columns()
	taken := make(map[string]bool, len(leftCols)+len(attach))
	for _, c := range leftCols {
		taken[c] = true
	}
	outCols := append([]string{}, leftCols...)
	for _, c := range attach {
		name := c
		if as, ok := o.As[c]; ok {
			name = as
		}
		if taken[name] {
			name = name + "_" + suffix
		}
		if taken[name] {
			return nil, fmt.Errorf("join %s with %s: column %q collides even after suffixing",
				left.Name(), right.Name(), name)
		}
		taken[name] = true
		outCols = append(outCols, name)
	}

	rightIdx, err := indexKeys(right, rightOn)
	if err != nil {
		return nil, err
	}
	if o.Kind == OuterJoin {
		if _, err := indexKeys(left, o.On); err != nil {
			return nil, err
		}
	}

	attachPos := positions(right, attach)
	leftKeyPos := positions(left, o.On)
	rightKeyPos := positions(right, rightOn)
	rightRows := right.Rows()

	rows := make([][]any, 0, left.Len())
	matched := make([]bool, right.Len())
	var buf []byte
	for _, lr := range left.Rows() {
		nr := make([]any, len(outCols))
		copy(nr, lr)
		var ok bool
		buf, ok = tupleKey(buf[:0], lr, leftKeyPos)
		if ok {
			if ri, hit := rightIdx[string(buf)]; hit {
				matched[ri] = true
				for k, j := range attachPos {
					nr[len(lr)+k] = rightRows[ri][j]
				}
			}
		}
		rows = append(rows, nr)
	}

	if o.Kind == OuterJoin {
		for ri, rr := range rightRows {
			// Null-keyed right rows never match and are kept as unmatched.
			if matched[ri] {
				continue
			}
			nr := make([]any, len(outCols))
			for k, j := range leftKeyPos {
				nr[j] = rr[rightKeyPos[k]]
			}
			for k, j := range attachPos {
				nr[len(leftCols)+k] = rr[j]
			}
			rows = append(rows, nr)
		}
	}

	out, err := table.New(left.Name(), outCols, rows)
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, c := range leftCols {
		if left.IsKey(c) {
			keys = append(keys, c)
		}
	}
	return out.MarkKeys(keys...)
}

// indexKeys maps each non-null key tuple of t to its row, failing on the
// first repeated tuple.
func indexKeys(t *table.Table, cols []string) (map[string]int, error) {
	pos := positions(t, cols)
	idx := make(map[string]int, t.Len())
	var buf []byte
	for i, r := range t.Rows() {
		var ok bool
		buf, ok = tupleKey(buf[:0], r, pos)
		if !ok {
			continue
		}
		if _, dup := idx[string(buf)]; dup {
			vals := make([]string, len(pos))
			for k, j := range pos {
				vals[k] = table.Text(r[j])
			}
			return nil, &table.DuplicateKeyError{Table: t.Name(), Key: cols, Value: strings.Join(vals, ",")}
		}
		idx[string(buf)] = i
	}
	return idx, nil
}

// tupleKey encodes the key cells of r; ok is false when any of them is null.
func tupleKey(buf []byte, r []any, pos []int) ([]byte, bool) {
	for _, j := range pos {
		if table.IsNull(r[j]) {
			return buf, false
		}
		buf = table.AppendKey(buf, r[j])
	}
	return buf, true
}

func positions(t *table.Table, cols []string) []int {
	out := make([]int, len(cols))
	for i, c := range cols {
		out[i], _ = t.Index(c)
	}
	return out
}
