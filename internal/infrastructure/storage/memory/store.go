// Package memory provides an in-memory store.RowStore for tests and local runs.
//
// Tables may be declared with a fixed column set to reproduce deployments
// whose schema drifted, and faults can be injected per call to exercise
// compensation paths.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"bizledger/internal/core/store"
	"bizledger/internal/core/types"
)

// Op names a row store operation.
type Op string

const (
	OpSelect Op = "select"
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Call describes one row store invocation as seen by a fault hook.
type Call struct {
	Op      Op
	Table   string
	Columns []string    // select projection
	Rows    []store.Row // insert payload
	Set     store.Row   // update payload
	Where   store.Eq
}

// FaultFunc returns a non-nil error to make the call fail before it touches any data.
type FaultFunc func(Call) error

// ColumnErrorFunc builds the error returned for a column the table does not have.
type ColumnErrorFunc func(table, column string) error

// PostgresColumnError mimics PostgreSQL's undefined_column error.
func PostgresColumnError(table, column string) error {
	return &pgconn.PgError{
		Severity:  "ERROR",
		Code:      "42703",
		Message:   fmt.Sprintf("column %q does not exist", column),
		TableName: table,
	}
}

// TextColumnError returns a ColumnErrorFunc producing plain-text errors from
// a format taking table and column, like hosted REST backends do.
func TextColumnError(format string) ColumnErrorFunc {
	return func(table, column string) error {
		return fmt.Errorf(format, table, column)
	}
}

// Option configures a Store.
type Option func(*Store)

// WithColumnError overrides the undefined-column error style.
func WithColumnError(fn ColumnErrorFunc) Option {
	return func(s *Store) { s.columnErr = fn }
}

// Store is a thread-safe in-memory row store.
type Store struct {
	mu     sync.RWMutex
	tables map[string][]store.Row
	shapes map[string]map[string]bool

	faultMu   sync.RWMutex
	faults    map[int]FaultFunc
	nextFault int

	callMu sync.Mutex
	calls  map[Op]map[string]int

	columnErr ColumnErrorFunc
}

// Compile-time check that Store implements store.RowStore.
var _ store.RowStore = (*Store)(nil)

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		tables:    make(map[string][]store.Row),
		shapes:    make(map[string]map[string]bool),
		faults:    make(map[int]FaultFunc),
		calls:     make(map[Op]map[string]int),
		columnErr: PostgresColumnError,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefineTable fixes the column set of table. Calls naming any other column fail
// with the configured undefined-column error. Undeclared tables accept any column.
func (s *Store) DefineTable(table string, columns ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	shape := make(map[string]bool, len(columns))
	for _, c := range columns {
		shape[c] = true
	}
	s.shapes[table] = shape
}

// Seed inserts rows directly, bypassing faults, shapes and call counters.
func (s *Store) Seed(table string, rows ...store.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		s.tables[table] = append(s.tables[table], r.Clone())
	}
}

// Rows returns a copy of every row in table.
func (s *Store) Rows(table string) []store.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.Row, len(s.tables[table]))
	for i, r := range s.tables[table] {
		out[i] = r.Clone()
	}
	return out
}

// InjectFault registers fn for every subsequent call. The returned func removes it.
func (s *Store) InjectFault(fn FaultFunc) (remove func()) {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()

	key := s.nextFault
	s.nextFault++
	s.faults[key] = fn
	return func() {
		s.faultMu.Lock()
		delete(s.faults, key)
		s.faultMu.Unlock()
	}
}

// FailOn makes every op on table fail with err until removed.
func (s *Store) FailOn(op Op, table string, err error) (remove func()) {
	return s.InjectFault(func(c Call) error {
		if c.Op == op && c.Table == table {
			return err
		}
		return nil
	})
}

// Calls reports how many times op was attempted on table.
func (s *Store) Calls(op Op, table string) int {
	s.callMu.Lock()
	defer s.callMu.Unlock()
	return s.calls[op][table]
}

// ResetCalls zeroes the call counters.
func (s *Store) ResetCalls() {
	s.callMu.Lock()
	defer s.callMu.Unlock()
	s.calls = make(map[Op]map[string]int)
}

// before counts the call and runs fault hooks outside the data lock,
// so hooks may read the store.
func (s *Store) before(c Call) error {
	s.callMu.Lock()
	if s.calls[c.Op] == nil {
		s.calls[c.Op] = make(map[string]int)
	}
	s.calls[c.Op][c.Table]++
	s.callMu.Unlock()

	s.faultMu.RLock()
	keys := make([]int, 0, len(s.faults))
	for k := range s.faults {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	hooks := make([]FaultFunc, 0, len(keys))
	for _, k := range keys {
		hooks = append(hooks, s.faults[k])
	}
	s.faultMu.RUnlock()

	for _, h := range hooks {
		if err := h(c); err != nil {
			return err
		}
	}
	return nil
}

// checkColumns must be called with s.mu held.
func (s *Store) checkColumns(table string, cols ...string) error {
	shape, ok := s.shapes[table]
	if !ok {
		return nil
	}
	for _, c := range cols {
		if c == "*" {
			continue
		}
		if !shape[c] {
			return s.columnErr(table, c)
		}
	}
	return nil
}

// Select implements store.RowStore.
func (s *Store) Select(ctx context.Context, q store.Query) ([]store.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.before(Call{Op: OpSelect, Table: q.Table, Columns: q.Columns, Where: q.Where}); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	orderCols := make([]string, len(q.OrderBy))
	for i, o := range q.OrderBy {
		orderCols[i] = strings.Fields(o)[0]
	}
	if err := s.checkColumns(q.Table, q.Columns...); err != nil {
		return nil, err
	}
	if err := s.checkColumns(q.Table, whereColumns(q.Where)...); err != nil {
		return nil, err
	}
	if err := s.checkColumns(q.Table, orderCols...); err != nil {
		return nil, err
	}

	var matched []store.Row
	for _, r := range s.tables[q.Table] {
		if matches(r, q.Where) {
			matched = append(matched, r)
		}
	}

	if len(q.OrderBy) > 0 {
		sort.SliceStable(matched, func(i, j int) bool {
			for _, o := range q.OrderBy {
				parts := strings.Fields(o)
				c := compareValues(matched[i][parts[0]], matched[j][parts[0]])
				if c == 0 {
					continue
				}
				if len(parts) > 1 && strings.EqualFold(parts[1], "DESC") {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}

	if q.Limit != nil && uint64(len(matched)) > *q.Limit {
		matched = matched[:*q.Limit]
	}

	out := make([]store.Row, len(matched))
	for i, r := range matched {
		out[i] = project(r, q.Columns)
	}
	return out, nil
}

// Insert implements store.RowStore. Rows sharing an "id" with an existing row are rejected.
func (s *Store) Insert(ctx context.Context, table string, rows ...store.Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.before(Call{Op: OpInsert, Table: table, Rows: rows}); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range rows {
		if err := s.checkColumns(table, r.Columns()...); err != nil {
			return err
		}
		if rid, ok := r["id"]; ok && rid != nil {
			for _, existing := range s.tables[table] {
				if equalValues(existing["id"], rid) {
					return &pgconn.PgError{
						Severity:  "ERROR",
						Code:      "23505",
						Message:   fmt.Sprintf("duplicate key value violates unique constraint %q", table+"_pkey"),
						TableName: table,
					}
				}
			}
		}
	}
	for _, r := range rows {
		s.tables[table] = append(s.tables[table], r.Clone())
	}
	return nil
}

// Update implements store.RowStore.
func (s *Store) Update(ctx context.Context, table string, set store.Row, where store.Eq) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := s.before(Call{Op: OpUpdate, Table: table, Set: set, Where: where}); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkColumns(table, set.Columns()...); err != nil {
		return 0, err
	}
	if err := s.checkColumns(table, whereColumns(where)...); err != nil {
		return 0, err
	}

	var n int64
	for i, r := range s.tables[table] {
		if !matches(r, where) {
			continue
		}
		next := r.Clone()
		for k, v := range set {
			next[k] = v
		}
		s.tables[table][i] = next
		n++
	}
	return n, nil
}

// Delete implements store.RowStore.
func (s *Store) Delete(ctx context.Context, table string, where store.Eq) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := s.before(Call{Op: OpDelete, Table: table, Where: where}); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkColumns(table, whereColumns(where)...); err != nil {
		return 0, err
	}

	kept := s.tables[table][:0:0]
	var n int64
	for _, r := range s.tables[table] {
		if matches(r, where) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	s.tables[table] = kept
	return n, nil
}

// Columns implements the field resolver's catalog lookup for declared tables.
func (s *Store) Columns(_ context.Context, table string) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	shape, ok := s.shapes[table]
	if !ok {
		return nil, fmt.Errorf("table %s has no declared shape", table)
	}
	out := make(map[string]bool, len(shape))
	for c := range shape {
		out[c] = true
	}
	return out, nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

func whereColumns(where store.Eq) []string {
	cols := make([]string, 0, len(where))
	for c := range where {
		cols = append(cols, c)
	}
	return cols
}

func project(r store.Row, cols []string) store.Row {
	if len(cols) == 0 {
		return r.Clone()
	}
	out := make(store.Row, len(cols))
	for _, c := range cols {
		out[c] = r[c]
	}
	return out
}

func matches(r store.Row, where store.Eq) bool {
	for col, want := range where {
		got := r[col]
		if store.IsList(want) {
			found := false
			for _, v := range store.ListValues(want) {
				if equalValues(got, v) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
			continue
		}
		if !equalValues(got, want) {
			return false
		}
	}
	return true
}

func equalValues(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Equal(tb)
		}
	}
	if isNumeric(a) && isNumeric(b) {
		da, _ := types.MoneyFromAny(a)
		db, _ := types.MoneyFromAny(b)
		return da.Equal(db)
	}
	return types.StringFromAny(a) == types.StringFromAny(b)
}

// compareValues orders NULLs first, then by time, number or text.
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb)
		}
	}
	if isNumeric(a) && isNumeric(b) {
		da, _ := types.MoneyFromAny(a)
		db, _ := types.MoneyFromAny(b)
		return da.Cmp(db)
	}
	return strings.Compare(types.StringFromAny(a), types.StringFromAny(b))
}

func isNumeric(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64,
		float32, float64, decimal.Decimal:
		return true
	}
	return false
}
