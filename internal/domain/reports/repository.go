package reports

import (
	"context"

	"bizledger/internal/core/apperror"
	"bizledger/internal/core/schema"
	"bizledger/internal/core/store"
	"bizledger/internal/core/types"
	"bizledger/internal/domain/aggregates"
	"bizledger/internal/domain/ledger"
	"bizledger/internal/domain/registers/stock"
)

// Repository defines report data access.
type Repository interface {
	// Ledger
	LedgerTotal(ctx context.Context, ownerID string, kind ledger.Kind) (types.Money, error)

	// Derived aggregates
	LoanExposure(ctx context.Context, ownerID string) (LoanExposure, error)
	InvestmentValue(ctx context.Context, ownerID string) (types.Money, error)
	ProfitShared(ctx context.Context, ownerID string) (types.Money, error)

	// Inventory
	InventoryUnits(ctx context.Context, ownerID string) (int64, error)
}

// StoreRepository reads report figures from the row store.
type StoreRepository struct {
	store    store.RowStore
	resolver schema.Resolver
	ledger   *ledger.Repository
	stock    *stock.Reconciler
}

var _ Repository = (*StoreRepository)(nil)

// NewStoreRepository creates a row store backed report repository.
func NewStoreRepository(s store.RowStore, r schema.Resolver) *StoreRepository {
	return &StoreRepository{
		store:    s,
		resolver: r,
		ledger:   ledger.NewRepository(s, r),
		stock:    stock.NewReconciler(s, r),
	}
}

// LedgerTotal sums every entry of kind.
func (r *StoreRepository) LedgerTotal(ctx context.Context, ownerID string, kind ledger.Kind) (types.Money, error) {
	return r.ledger.Total(ctx, ownerID, kind)
}

// LoanExposure counts active and defaulted loans and sums their remaining balance.
func (r *StoreRepository) LoanExposure(ctx context.Context, ownerID string) (LoanExposure, error) {
	rows, err := r.owned(ctx, schema.Loans, ownerID, "status", "remaining_balance")
	if err != nil {
		return LoanExposure{}, err
	}

	out := LoanExposure{Outstanding: types.Zero()}
	for _, row := range rows {
		rd := store.Read(row)
		if rd.String("status") == aggregates.LoanPaidOff {
			continue
		}
		if rd.String("status") == aggregates.LoanActive {
			out.Active++
		}
		out.Outstanding = out.Outstanding.Add(rd.Money("remaining_balance"))
		if err := rd.Err(); err != nil {
			return LoanExposure{}, apperror.NewInternal(err).WithDetail("table", schema.Loans)
		}
	}
	return out, nil
}

// InvestmentValue sums current_value over every investment.
func (r *StoreRepository) InvestmentValue(ctx context.Context, ownerID string) (types.Money, error) {
	return r.sum(ctx, schema.Investments, ownerID, "current_value")
}

// ProfitShared sums total_profit_shared over every funding.
func (r *StoreRepository) ProfitShared(ctx context.Context, ownerID string) (types.Money, error) {
	return r.sum(ctx, schema.InvestorFundings, ownerID, "total_profit_shared")
}

// InventoryUnits sums product stock.
func (r *StoreRepository) InventoryUnits(ctx context.Context, ownerID string) (int64, error) {
	return r.stock.TotalUnits(ctx, ownerID)
}

func (r *StoreRepository) owned(ctx context.Context, table, ownerID string, cols ...string) ([]store.Row, error) {
	ownerCol := schema.OwnerColumn(ctx, r.resolver, table)
	rows, err := r.store.Select(ctx, store.Query{
		Table:   table,
		Columns: cols,
		Where:   store.Eq{ownerCol: ownerID},
	})
	if err != nil {
		return nil, apperror.NewDatabase(err)
	}
	return rows, nil
}

func (r *StoreRepository) sum(ctx context.Context, table, ownerID, col string) (types.Money, error) {
	rows, err := r.owned(ctx, table, ownerID, col)
	if err != nil {
		return types.Money{}, err
	}
	total := types.Zero()
	for _, row := range rows {
		rd := store.Read(row)
		total = total.Add(rd.Money(col))
		if err := rd.Err(); err != nil {
			return types.Money{}, apperror.NewInternal(err).WithDetail("table", table)
		}
	}
	return total, nil
}
