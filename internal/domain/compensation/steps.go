package compensation

import (
	"context"
	"errors"
	"fmt"

	"bizledger/internal/core/store"
)

// ErrNoRowsAffected is returned by an update or delete step whose filter
// matched nothing. Callers use status columns in the filter as guards.
var ErrNoRowsAffected = errors.New("no rows affected")

// Insert writes rows into table in one statement. The inverse deletes them by id,
// so every row must carry an "id".
func Insert(s store.RowStore, name, table string, rows ...store.Row) Step {
	ids := make([]any, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r["id"])
	}

	return Step{
		Name: name,
		Do: func(ctx context.Context) error {
			for _, v := range ids {
				if v == nil {
					return fmt.Errorf("insert %s: row without id cannot be compensated", table)
				}
			}
			return s.Insert(ctx, table, rows...)
		},
		Undo: func(ctx context.Context) error {
			if len(ids) == 0 {
				return nil
			}
			_, err := s.Delete(ctx, table, store.Eq{"id": ids})
			return err
		},
	}
}

// Update sets columns on rows matching where. Before writing it captures the
// current values of the columns being set; the inverse writes them back per row.
func Update(s store.RowStore, name, table string, set store.Row, where store.Eq) Step {
	var before []store.Row

	return Step{
		Name: name,
		Do: func(ctx context.Context) error {
			cols := append(set.Columns(), "id")
			rows, err := s.Select(ctx, store.Query{Table: table, Columns: cols, Where: where})
			if err != nil {
				return fmt.Errorf("capture %s: %w", table, err)
			}
			if len(rows) == 0 {
				return fmt.Errorf("update %s: %w", table, ErrNoRowsAffected)
			}
			n, err := s.Update(ctx, table, set, where)
			if err != nil {
				return err
			}
			if n == 0 {
				return fmt.Errorf("update %s: %w", table, ErrNoRowsAffected)
			}
			before = rows
			return nil
		},
		Undo: func(ctx context.Context) error {
			var errs []error
			for _, r := range before {
				rowID := r["id"]
				restore := r.Clone()
				delete(restore, "id")
				if _, err := s.Update(ctx, table, restore, store.Eq{"id": rowID}); err != nil {
					errs = append(errs, err)
				}
			}
			return errors.Join(errs...)
		},
	}
}

// Delete removes rows matching where after capturing them in full.
// The inverse re-inserts the captured rows.
func Delete(s store.RowStore, name, table string, where store.Eq) Step {
	var removed []store.Row

	return Step{
		Name: name,
		Do: func(ctx context.Context) error {
			rows, err := s.Select(ctx, store.Query{Table: table, Where: where})
			if err != nil {
				return fmt.Errorf("capture %s: %w", table, err)
			}
			if len(rows) == 0 {
				return nil
			}
			if _, err := s.Delete(ctx, table, where); err != nil {
				return err
			}
			removed = rows
			return nil
		},
		Undo: func(ctx context.Context) error {
			if len(removed) == 0 {
				return nil
			}
			return s.Insert(ctx, table, removed...)
		},
	}
}
