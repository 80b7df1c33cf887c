package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
)

// ErrTableNotIntrospected is returned when information_schema lists no
// columns for a table, either because it is missing or not visible to the role.
var ErrTableNotIntrospected = errors.New("table not visible in information_schema")

// Columns lists the columns of table in the current schema.
// It backs the field resolver's catalog lookup so the probe heuristics are
// only needed when introspection is unavailable.
func (s *RowStore) Columns(ctx context.Context, table string) (cols map[string]bool, err error) {
	ctx, span := startSpan(ctx, "columns", table)
	defer func() { endSpan(span, err) }()

	sql, args, err := builder().
		Select("column_name").
		From("information_schema.columns").
		Where("table_schema = current_schema()").
		Where("table_name = ?", table).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build columns query: %w", err)
	}

	var names []string
	if err := pgxscan.Select(ctx, s.q, &names, sql, args...); err != nil {
		return nil, fmt.Errorf("introspect %s: %w", table, err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%s: %w", table, ErrTableNotIntrospected)
	}

	cols = make(map[string]bool, len(names))
	for _, n := range names {
		cols[n] = true
	}
	return cols, nil
}
