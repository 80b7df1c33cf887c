package funding

import (
	"context"
	"errors"

	"bizledger/internal/core/apperror"
	"bizledger/internal/core/id"
	"bizledger/internal/core/schema"
	"bizledger/internal/core/store"
)

// Repository maps fundings and profit-sharing payments to rows.
type Repository struct {
	store    store.RowStore
	resolver schema.Resolver
}

// NewRepository creates a funding repository.
func NewRepository(s store.RowStore, r schema.Resolver) *Repository {
	return &Repository{store: s, resolver: r}
}

func (r *Repository) ownerCol(ctx context.Context) string {
	return schema.OwnerColumn(ctx, r.resolver, schema.InvestorFundings)
}

// FundingRow maps f to a row with the resolved owner column.
func (r *Repository) FundingRow(ctx context.Context, f Funding) store.Row {
	row := store.RowFromStruct(f)
	row[r.ownerCol(ctx)] = f.OwnerID
	return row
}

// Get loads a funding owned by ownerID.
func (r *Repository) Get(ctx context.Context, ownerID string, fundingID id.ID) (Funding, error) {
	col := r.ownerCol(ctx)
	row, err := store.SelectOne(ctx, r.store, store.Query{
		Table: schema.InvestorFundings,
		Where: store.Eq{"id": fundingID, col: ownerID},
	})
	if errors.Is(err, store.ErrNoRows) {
		return Funding{}, apperror.NewNotFound("funding", fundingID)
	}
	if err != nil {
		return Funding{}, apperror.NewDatabase(err)
	}

	rd := store.Read(row)
	f := Funding{
		ID:                 rd.ID("id"),
		OwnerID:            rd.String(col),
		InvestorName:       rd.String("investor_name"),
		Amount:             rd.Money("amount"),
		ProfitSharePercent: rd.Money("profit_share_percent"),
		StartDate:          rd.Time("start_date"),
		TotalProfitShared:  rd.Money("total_profit_shared"),
		CreatedAt:          rd.Time("created_at"),
		UpdatedAt:          rd.Time("updated_at"),
	}
	if err := rd.Err(); err != nil {
		return Funding{}, apperror.NewInternal(err).WithDetail("table", schema.InvestorFundings)
	}
	return f, nil
}

// GetPayment loads one payment by id.
func (r *Repository) GetPayment(ctx context.Context, paymentID id.ID) (Payment, error) {
	row, err := store.SelectOne(ctx, r.store, store.Query{
		Table: schema.ProfitSharingPayments,
		Where: store.Eq{"id": paymentID},
	})
	if errors.Is(err, store.ErrNoRows) {
		return Payment{}, apperror.NewNotFound("profit sharing payment", paymentID)
	}
	if err != nil {
		return Payment{}, apperror.NewDatabase(err)
	}
	return paymentFromRow(row)
}

// Payments loads a funding's payments by due date.
func (r *Repository) Payments(ctx context.Context, fundingID id.ID) ([]Payment, error) {
	rows, err := r.store.Select(ctx, store.Query{
		Table:   schema.ProfitSharingPayments,
		Where:   store.Eq{"funding_id": fundingID},
		OrderBy: []string{"due_date", "created_at"},
	})
	if err != nil {
		return nil, apperror.NewDatabase(err)
	}
	out := make([]Payment, 0, len(rows))
	for _, row := range rows {
		p, err := paymentFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func paymentFromRow(row store.Row) (Payment, error) {
	rd := store.Read(row)
	p := Payment{
		ID:            rd.ID("id"),
		FundingID:     rd.ID("funding_id"),
		Period:        rd.String("period"),
		Revenue:       rd.Money("revenue"),
		Expenses:      rd.Money("expenses"),
		NetProfit:     rd.Money("net_profit"),
		ShareAmount:   rd.Money("share_amount"),
		DueDate:       rd.Time("due_date"),
		Status:        PaymentStatus(rd.String("status")),
		PaidDate:      rd.OptTime("paid_date"),
		LedgerEntryID: rd.OptID("ledger_entry_id"),
		CreatedAt:     rd.Time("created_at"),
	}
	if err := rd.Err(); err != nil {
		return Payment{}, apperror.NewInternal(err).WithDetail("table", schema.ProfitSharingPayments)
	}
	return p, nil
}
