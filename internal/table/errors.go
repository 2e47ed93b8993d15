package table

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels for errors.Is checks. The concrete error types below carry the
// details and match their sentinel through Is.
var (
	ErrMissingTable    = errors.New("missing table")
	ErrMissingColumn   = errors.New("missing column")
	ErrJoinKeyMismatch = errors.New("join key mismatch")
	ErrInvalidMeasure  = errors.New("invalid measure")
	ErrDuplicateKey    = errors.New("duplicate dimension key")
)

// MissingTableError reports that a required table is not loaded.
type MissingTableError struct {
	Table string
}

func (e *MissingTableError) Error() string {
	return fmt.Sprintf("missing table %q", e.Table)
}

func (e *MissingTableError) Is(target error) bool { return target == ErrMissingTable }

// MissingColumnError reports a required column absent from a table.
type MissingColumnError struct {
	Table  string
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("table %q: missing column %q", e.Table, e.Column)
}

func (e *MissingColumnError) Is(target error) bool { return target == ErrMissingColumn }

// JoinKeyMismatchError reports join key columns that were not normalized to
// the canonical key form before the merge.
type JoinKeyMismatchError struct {
	Left, Right       string
	LeftKey, RightKey string
}

func (e *JoinKeyMismatchError) Error() string {
	return fmt.Sprintf("join %s.%s = %s.%s: key columns are not in canonical form",
		e.Left, e.LeftKey, e.Right, e.RightKey)
}

func (e *JoinKeyMismatchError) Is(target error) bool { return target == ErrJoinKeyMismatch }

// InvalidMeasureError reports a measure column that cannot be aggregated.
type InvalidMeasureError struct {
	Table  string
	Column string
	Reason string
}

func (e *InvalidMeasureError) Error() string {
	return fmt.Sprintf("table %q: invalid measure %q: %s", e.Table, e.Column, e.Reason)
}

func (e *InvalidMeasureError) Is(target error) bool { return target == ErrInvalidMeasure }

// DuplicateKeyError reports a dimension table whose join key is not unique,
// which would fan out fact rows in a left join.
type DuplicateKeyError struct {
	Table string
	Key   []string
	Value string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("table %q: duplicate key %s=%s", e.Table, strings.Join(e.Key, ","), e.Value)
}

func (e *DuplicateKeyError) Is(target error) bool { return target == ErrDuplicateKey }
