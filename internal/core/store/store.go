// Package store defines the row-oriented client every repository writes through.
//
// The backing store offers single-statement operations only. There is no
// multi-statement transaction available to the application, so callers that
// touch several rows compose them through the compensation coordinator.
package store

import (
	"context"
	"errors"
	"reflect"
)

// Row is one record keyed by column name.
type Row map[string]any

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Columns returns the row's keys.
func (r Row) Columns() []string {
	cols := make([]string, 0, len(r))
	for k := range r {
		cols = append(cols, k)
	}
	return cols
}

// Eq is a conjunction of equality predicates. A slice value means IN.
// The layout matches squirrel.Eq so the postgres store can pass it through.
type Eq map[string]any

// Query describes a single-table select.
type Query struct {
	Table   string
	Columns []string // empty selects every column
	Where   Eq
	OrderBy []string // "col" or "col DESC"
	Limit   *uint64
}

// Limit returns a pointer suitable for Query.Limit.
func Limit(n uint64) *uint64 {
	return &n
}

// Probe returns a zero-row select of a single column. It succeeds exactly
// when the column exists on the table.
func Probe(table, column string) Query {
	return Query{Table: table, Columns: []string{column}, Limit: Limit(0)}
}

// RowStore is the generic row-oriented client.
type RowStore interface {
	// Select returns the rows matching q.
	Select(ctx context.Context, q Query) ([]Row, error)
	// Insert writes rows in a single statement.
	Insert(ctx context.Context, table string, rows ...Row) error
	// Update sets columns on every row matching where and reports how many changed.
	Update(ctx context.Context, table string, set Row, where Eq) (int64, error)
	// Delete removes every row matching where and reports how many were removed.
	Delete(ctx context.Context, table string, where Eq) (int64, error)
}

// ErrNoRows is returned by SelectOne when nothing matches.
var ErrNoRows = errors.New("store: no rows")

// SelectOne returns the first row matching q.
func SelectOne(ctx context.Context, s RowStore, q Query) (Row, error) {
	q.Limit = Limit(1)
	rows, err := s.Select(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	return rows[0], nil
}

// IsList reports whether an Eq value should be matched with IN semantics.
func IsList(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return false
	}
	// []byte and fixed-size byte arrays (uuid.UUID) are scalar values.
	return rv.Type().Elem().Kind() != reflect.Uint8
}

// ListValues expands an IN value into its elements.
func ListValues(v any) []any {
	rv := reflect.ValueOf(v)
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}
