package postgres

import (
	"context"
	"fmt"
	"sort"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"bizledger/internal/core/store"
)

var tracer = otel.Tracer("bizledger/rowstore")

// Querier is the subset of pgxpool.Pool the row store needs.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Compile-time check that RowStore implements store.RowStore.
var _ store.RowStore = (*RowStore)(nil)

// RowStore executes every call as one autocommitted statement.
// Multi-row consistency is the caller's concern.
type RowStore struct {
	q Querier
}

// NewRowStore creates a row store over a pool or any Querier.
func NewRowStore(q Querier) *RowStore {
	return &RowStore{q: q}
}

// builder returns a squirrel builder with PostgreSQL placeholder format.
func builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func startSpan(ctx context.Context, op, table string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "rowstore."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.sql.table", table),
		),
	)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Select runs a single-table select and scans each row into a map.
func (s *RowStore) Select(ctx context.Context, q store.Query) (rows []store.Row, err error) {
	ctx, span := startSpan(ctx, "select", q.Table)
	defer func() { endSpan(span, err) }()

	cols := q.Columns
	if len(cols) == 0 {
		cols = []string{"*"}
	}

	sb := builder().Select(cols...).From(q.Table)
	if len(q.Where) > 0 {
		sb = sb.Where(squirrel.Eq(q.Where))
	}
	if len(q.OrderBy) > 0 {
		sb = sb.OrderBy(q.OrderBy...)
	}
	if q.Limit != nil {
		sb = sb.Limit(*q.Limit)
	}

	sql, args, err := sb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var raw []map[string]any
	if err := pgxscan.Select(ctx, s.q, &raw, sql, args...); err != nil {
		return nil, fmt.Errorf("select %s: %w", q.Table, err)
	}

	rows = make([]store.Row, len(raw))
	for i, r := range raw {
		rows[i] = store.Row(r)
	}
	return rows, nil
}

// Insert writes rows with one multi-values statement.
// Columns missing from a row are sent as NULL.
func (s *RowStore) Insert(ctx context.Context, table string, rows ...store.Row) (err error) {
	if len(rows) == 0 {
		return nil
	}
	ctx, span := startSpan(ctx, "insert", table)
	span.SetAttributes(attribute.Int("db.rows", len(rows)))
	defer func() { endSpan(span, err) }()

	cols := unionColumns(rows)
	ib := builder().Insert(table).Columns(cols...)
	for _, row := range rows {
		vals := make([]any, len(cols))
		for i, c := range cols {
			vals[i] = row[c]
		}
		ib = ib.Values(vals...)
	}

	sql, args, err := ib.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := s.q.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return nil
}

// Update sets columns on every matching row.
func (s *RowStore) Update(ctx context.Context, table string, set store.Row, where store.Eq) (n int64, err error) {
	ctx, span := startSpan(ctx, "update", table)
	defer func() { endSpan(span, err) }()

	if len(where) == 0 {
		return 0, fmt.Errorf("update %s: refusing unfiltered update", table)
	}

	sql, args, err := builder().
		Update(table).
		SetMap(map[string]any(set)).
		Where(squirrel.Eq(where)).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build update: %w", err)
	}

	tag, err := s.q.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", table, err)
	}
	return tag.RowsAffected(), nil
}

// Delete removes every matching row.
func (s *RowStore) Delete(ctx context.Context, table string, where store.Eq) (n int64, err error) {
	ctx, span := startSpan(ctx, "delete", table)
	defer func() { endSpan(span, err) }()

	if len(where) == 0 {
		return 0, fmt.Errorf("delete %s: refusing unfiltered delete", table)
	}

	sql, args, err := builder().
		Delete(table).
		Where(squirrel.Eq(where)).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete: %w", err)
	}

	tag, err := s.q.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", table, err)
	}
	return tag.RowsAffected(), nil
}

// Ping verifies connectivity for readiness checks.
func (s *RowStore) Ping(ctx context.Context) error {
	var one int
	return s.q.QueryRow(ctx, "SELECT 1").Scan(&one)
}

func unionColumns(rows []store.Row) []string {
	seen := make(map[string]struct{})
	for _, r := range rows {
		for c := range r {
			seen[c] = struct{}{}
		}
	}
	cols := make([]string, 0, len(seen))
	for c := range seen {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}
