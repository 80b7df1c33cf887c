package store

import (
	"fmt"
	"time"

	"bizledger/internal/core/id"
	"bizledger/internal/core/types"
)

// Reader decodes typed values out of a Row. The first conversion failure is
// kept and reported by Err; later reads return zero values.
//
//	r := store.Read(row)
//	loan.Principal = r.Money("principal")
//	if err := r.Err(); err != nil { ... }
type Reader struct {
	row Row
	err error
}

// Read starts decoding row.
func Read(row Row) *Reader {
	return &Reader{row: row}
}

// Err returns the first decoding error.
func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) fail(col string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("column %s: %w", col, err)
	}
}

// Has reports whether the row carries a non-nil value for col.
func (r *Reader) Has(col string) bool {
	v, ok := r.row[col]
	return ok && v != nil
}

// ID decodes a required identifier.
func (r *Reader) ID(col string) id.ID {
	v, err := id.FromAny(r.row[col])
	if err != nil {
		r.fail(col, err)
	}
	return v
}

// OptID decodes a nullable identifier.
func (r *Reader) OptID(col string) *id.ID {
	if !r.Has(col) {
		return nil
	}
	v := r.ID(col)
	if id.IsNil(v) {
		return nil
	}
	return &v
}

// String decodes a text column. NULL reads as "".
func (r *Reader) String(col string) string {
	return types.StringFromAny(r.row[col])
}

// Money decodes a numeric column. NULL reads as zero.
func (r *Reader) Money(col string) types.Money {
	if !r.Has(col) {
		return types.Zero()
	}
	v, err := types.MoneyFromAny(r.row[col])
	if err != nil {
		r.fail(col, err)
	}
	return v
}

// Int decodes an integer column. NULL reads as zero.
func (r *Reader) Int(col string) int64 {
	if !r.Has(col) {
		return 0
	}
	v, err := types.Int64FromAny(r.row[col])
	if err != nil {
		r.fail(col, err)
	}
	return v
}

// Time decodes a required timestamp or date.
func (r *Reader) Time(col string) time.Time {
	v, err := types.TimeFromAny(r.row[col])
	if err != nil {
		r.fail(col, err)
	}
	return v
}

// OptTime decodes a nullable timestamp or date.
func (r *Reader) OptTime(col string) *time.Time {
	if !r.Has(col) {
		return nil
	}
	v := r.Time(col)
	return &v
}

// FirstOf returns the name of the first column in cols present on the row.
func (r *Reader) FirstOf(cols ...string) (string, bool) {
	for _, c := range cols {
		if _, ok := r.row[c]; ok {
			return c, true
		}
	}
	return "", false
}
