package ledger

import (
	"context"

	"bizledger/internal/core/apperror"
	"bizledger/internal/core/id"
	"bizledger/internal/core/schema"
	"bizledger/internal/core/store"
	"bizledger/internal/core/types"
	"bizledger/internal/domain/compensation"
)

// Repository reads and writes entries through the row store. The ownership
// column is resolved per table, so the same code serves either schema shape.
type Repository struct {
	store    store.RowStore
	resolver schema.Resolver
}

// NewRepository creates a ledger repository.
func NewRepository(s store.RowStore, r schema.Resolver) *Repository {
	return &Repository{store: s, resolver: r}
}

// Row maps e to a row for its table.
func (r *Repository) Row(ctx context.Context, e Entry) store.Row {
	row := store.RowFromStruct(e)
	row[schema.OwnerColumn(ctx, r.resolver, e.Kind.Table())] = e.OwnerID
	if e.SourceType == SourceManual {
		row["source_type"] = nil
	}
	return row
}

// InsertStep returns a compensable insert of e.
func (r *Repository) InsertStep(ctx context.Context, e Entry) compensation.Step {
	return compensation.Insert(r.store, "insert_"+string(e.Kind)+"_entry", e.Kind.Table(), r.Row(ctx, e))
}

// DeleteBySourceStep returns a compensable delete of every entry derived from a source record.
func (r *Repository) DeleteBySourceStep(kind Kind, src SourceType, sourceID id.ID) compensation.Step {
	return compensation.Delete(r.store, "delete_"+string(kind)+"_entries", kind.Table(),
		store.Eq{"source_type": string(src), "source_id": sourceID})
}

// Total sums every entry of kind owned by ownerID.
// The store offers no aggregates, so the amounts are summed here.
func (r *Repository) Total(ctx context.Context, ownerID string, kind Kind) (types.Money, error) {
	ownerCol := schema.OwnerColumn(ctx, r.resolver, kind.Table())
	rows, err := r.store.Select(ctx, store.Query{
		Table:   kind.Table(),
		Columns: []string{"amount"},
		Where:   store.Eq{ownerCol: ownerID},
	})
	if err != nil {
		return types.Zero(), apperror.NewDatabase(err)
	}

	total := types.Zero()
	for _, row := range rows {
		rd := store.Read(row)
		total = total.Add(rd.Money("amount"))
		if err := rd.Err(); err != nil {
			return types.Zero(), apperror.NewInternal(err)
		}
	}
	return total, nil
}
