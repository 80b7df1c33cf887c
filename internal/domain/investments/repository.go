package investments

import (
	"context"
	"errors"

	"bizledger/internal/core/apperror"
	"bizledger/internal/core/id"
	"bizledger/internal/core/schema"
	"bizledger/internal/core/store"
)

// Repository maps investments and returns to rows.
type Repository struct {
	store    store.RowStore
	resolver schema.Resolver
}

// NewRepository creates an investment repository.
func NewRepository(s store.RowStore, r schema.Resolver) *Repository {
	return &Repository{store: s, resolver: r}
}

func (r *Repository) ownerCol(ctx context.Context) string {
	return schema.OwnerColumn(ctx, r.resolver, schema.Investments)
}

// InvestmentRow maps inv to a row with the resolved owner column.
func (r *Repository) InvestmentRow(ctx context.Context, inv Investment) store.Row {
	row := store.RowFromStruct(inv)
	row[r.ownerCol(ctx)] = inv.OwnerID
	return row
}

// Get loads an investment owned by ownerID.
func (r *Repository) Get(ctx context.Context, ownerID string, investmentID id.ID) (Investment, error) {
	col := r.ownerCol(ctx)
	row, err := store.SelectOne(ctx, r.store, store.Query{
		Table: schema.Investments,
		Where: store.Eq{"id": investmentID, col: ownerID},
	})
	if errors.Is(err, store.ErrNoRows) {
		return Investment{}, apperror.NewNotFound("investment", investmentID)
	}
	if err != nil {
		return Investment{}, apperror.NewDatabase(err)
	}

	rd := store.Read(row)
	inv := Investment{
		ID:             rd.ID("id"),
		OwnerID:        rd.String(col),
		Name:           rd.String("name"),
		AmountInvested: rd.Money("amount_invested"),
		StartDate:      rd.Time("start_date"),
		CurrentValue:   rd.Money("current_value"),
		TotalReturns:   rd.Money("total_returns"),
		CreatedAt:      rd.Time("created_at"),
		UpdatedAt:      rd.Time("updated_at"),
	}
	if err := rd.Err(); err != nil {
		return Investment{}, apperror.NewInternal(err).WithDetail("table", schema.Investments)
	}
	return inv, nil
}

// GetReturn loads one return by id.
func (r *Repository) GetReturn(ctx context.Context, returnID id.ID) (Return, error) {
	row, err := store.SelectOne(ctx, r.store, store.Query{
		Table: schema.InvestmentReturns,
		Where: store.Eq{"id": returnID},
	})
	if errors.Is(err, store.ErrNoRows) {
		return Return{}, apperror.NewNotFound("investment return", returnID)
	}
	if err != nil {
		return Return{}, apperror.NewDatabase(err)
	}
	return returnFromRow(row)
}

// Returns loads an investment's returns, oldest first.
func (r *Repository) Returns(ctx context.Context, investmentID id.ID) ([]Return, error) {
	rows, err := r.store.Select(ctx, store.Query{
		Table:   schema.InvestmentReturns,
		Where:   store.Eq{"investment_id": investmentID},
		OrderBy: []string{"return_date", "created_at"},
	})
	if err != nil {
		return nil, apperror.NewDatabase(err)
	}
	out := make([]Return, 0, len(rows))
	for _, row := range rows {
		ret, err := returnFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, ret)
	}
	return out, nil
}

func returnFromRow(row store.Row) (Return, error) {
	rd := store.Read(row)
	ret := Return{
		ID:            rd.ID("id"),
		InvestmentID:  rd.ID("investment_id"),
		ReturnDate:    rd.Time("return_date"),
		Amount:        rd.Money("amount"),
		ReturnType:    ReturnType(rd.String("return_type")),
		LedgerEntryID: rd.OptID("ledger_entry_id"),
		CreatedAt:     rd.Time("created_at"),
	}
	if err := rd.Err(); err != nil {
		return Return{}, apperror.NewInternal(err).WithDetail("table", schema.InvestmentReturns)
	}
	return ret, nil
}
