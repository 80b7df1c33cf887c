package domain

import "bizledger/internal/core/store"

// ListFilter contains paging options for list operations.
type ListFilter struct {
	Limit  int
	Offset int
}

// DefaultListFilter returns sensible defaults.
func DefaultListFilter() ListFilter {
	return ListFilter{Limit: 50}
}

// Normalize clamps the filter to valid bounds.
func (f ListFilter) Normalize() ListFilter {
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// Page applies offset and limit to rows already ordered by the store.
// The row store has no OFFSET, so paging is done after the select.
func Page[T any](items []T, f ListFilter) ListResult[T] {
	f = f.Normalize()
	total := len(items)
	start := min(f.Offset, total)
	end := min(start+f.Limit, total)
	return ListResult[T]{
		Items:      items[start:end],
		TotalCount: int64(total),
		Limit:      f.Limit,
		Offset:     f.Offset,
	}
}

// ListResult contains paginated results.
type ListResult[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// OwnedQuery builds a select over table filtered to one owner.
func OwnedQuery(table, ownerCol, ownerID string, orderBy ...string) store.Query {
	return store.Query{
		Table:   table,
		Where:   store.Eq{ownerCol: ownerID},
		OrderBy: orderBy,
	}
}
