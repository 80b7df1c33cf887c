package transactions

import (
	"context"
	"errors"

	"bizledger/internal/core/apperror"
	"bizledger/internal/core/id"
	"bizledger/internal/core/schema"
	"bizledger/internal/core/store"
	"bizledger/internal/domain"
)

// Repository maps transactions and their line items to rows.
type Repository struct {
	store    store.RowStore
	resolver schema.Resolver
}

// NewRepository creates a transaction repository.
func NewRepository(s store.RowStore, r schema.Resolver) *Repository {
	return &Repository{store: s, resolver: r}
}

func (r *Repository) ownerCol(ctx context.Context) string {
	return schema.OwnerColumn(ctx, r.resolver, schema.Transactions)
}

// TransactionRow maps t to a row with the resolved owner column.
func (r *Repository) TransactionRow(ctx context.Context, t Transaction) store.Row {
	row := store.RowFromStruct(t)
	row[r.ownerCol(ctx)] = t.OwnerID
	return row
}

// ItemRows maps line items to rows.
func (r *Repository) ItemRows(items []LineItem) []store.Row {
	rows := make([]store.Row, len(items))
	for i, it := range items {
		rows[i] = store.RowFromStruct(it)
	}
	return rows
}

// Get loads a transaction owned by ownerID, without items.
func (r *Repository) Get(ctx context.Context, ownerID string, txID id.ID) (Transaction, error) {
	col := r.ownerCol(ctx)
	row, err := store.SelectOne(ctx, r.store, store.Query{
		Table: schema.Transactions,
		Where: store.Eq{"id": txID, col: ownerID},
	})
	if errors.Is(err, store.ErrNoRows) {
		return Transaction{}, apperror.NewNotFound("transaction", txID)
	}
	if err != nil {
		return Transaction{}, apperror.NewDatabase(err)
	}
	return transactionFromRow(row, col)
}

// List loads every transaction of ownerID, newest first.
func (r *Repository) List(ctx context.Context, ownerID string) ([]Transaction, error) {
	col := r.ownerCol(ctx)
	rows, err := r.store.Select(ctx, domain.OwnedQuery(schema.Transactions, col, ownerID,
		"transaction_date DESC", "created_at DESC"))
	if err != nil {
		return nil, apperror.NewDatabase(err)
	}
	out := make([]Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := transactionFromRow(row, col)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// Items loads a transaction's line items.
func (r *Repository) Items(ctx context.Context, txID id.ID) ([]LineItem, error) {
	rows, err := r.store.Select(ctx, store.Query{
		Table: schema.TransactionItems,
		Where: store.Eq{"transaction_id": txID},
	})
	if err != nil {
		return nil, apperror.NewDatabase(err)
	}
	out := make([]LineItem, 0, len(rows))
	for _, row := range rows {
		rd := store.Read(row)
		it := LineItem{
			ID:            rd.ID("id"),
			TransactionID: rd.ID("transaction_id"),
			ProductID:     rd.ID("product_id"),
			Quantity:      rd.Int("quantity"),
			UnitPrice:     rd.Money("unit_price"),
		}
		if err := rd.Err(); err != nil {
			return nil, apperror.NewInternal(err).WithDetail("table", schema.TransactionItems)
		}
		out = append(out, it)
	}
	return out, nil
}

// CheckProducts fails with NOT_FOUND for the first product not owned by ownerID.
func (r *Repository) CheckProducts(ctx context.Context, ownerID string, productIDs []id.ID) error {
	col := schema.OwnerColumn(ctx, r.resolver, schema.Products)
	rows, err := r.store.Select(ctx, store.Query{
		Table:   schema.Products,
		Columns: []string{"id"},
		Where:   store.Eq{"id": productIDs, col: ownerID},
	})
	if err != nil {
		return apperror.NewDatabase(err)
	}

	found := make(map[id.ID]bool, len(rows))
	for _, row := range rows {
		found[store.Read(row).ID("id")] = true
	}
	for _, pid := range productIDs {
		if !found[pid] {
			return apperror.NewNotFound("product", pid)
		}
	}
	return nil
}

func transactionFromRow(row store.Row, ownerCol string) (Transaction, error) {
	rd := store.Read(row)
	t := Transaction{
		ID:              rd.ID("id"),
		OwnerID:         rd.String(ownerCol),
		Kind:            Kind(rd.String("kind")),
		TransactionDate: rd.Time("transaction_date"),
		Total:           rd.Money("total"),
		Notes:           rd.String("notes"),
		CreatedAt:       rd.Time("created_at"),
		UpdatedAt:       rd.Time("updated_at"),
	}
	if err := rd.Err(); err != nil {
		return Transaction{}, apperror.NewInternal(err).WithDetail("table", schema.Transactions)
	}
	return t, nil
}
