// Package aggregates recomputes the denormalised totals stored on loans,
// investments and fundings from their full child sets.
//
// Recalculation always reads every child row, so running it twice in a row
// writes the same values. It never touches updated_at for the same reason.
package aggregates

import (
	"context"
	"errors"

	"bizledger/internal/core/apperror"
	"bizledger/internal/core/id"
	"bizledger/internal/core/schema"
	"bizledger/internal/core/store"
	"bizledger/internal/core/types"
	"bizledger/internal/domain/compensation"
)

// Statuses written by the recalculator. They mirror the values owned by the
// loans and funding packages.
const (
	LoanActive    = "active"
	LoanPaidOff   = "paid_off"
	LoanDefaulted = "defaulted"

	PaymentPaid = "paid"
)

// LoanTotals is the recomputed state of a loan.
type LoanTotals struct {
	LoanID           id.ID
	TotalPaid        types.Money
	RemainingBalance types.Money
	Status           string
	Installments     int
	PaidInstallments int
}

// InvestmentTotals is the recomputed state of an investment.
type InvestmentTotals struct {
	InvestmentID id.ID
	TotalReturns types.Money
	CurrentValue types.Money
	Returns      int
}

// FundingTotals is the recomputed state of an investor funding.
type FundingTotals struct {
	FundingID         id.ID
	TotalProfitShared types.Money
	PaidPayments      int
}

// Recalculator recomputes and writes aggregate counters.
type Recalculator struct {
	store store.RowStore
}

// NewRecalculator creates a recalculator.
func NewRecalculator(s store.RowStore) *Recalculator {
	return &Recalculator{store: s}
}

// RecalculateLoan sets total_paid, remaining_balance and status from the
// loan's installments. A loan becomes paid_off once every installment is
// paid; a defaulted loan stays defaulted otherwise.
func (r *Recalculator) RecalculateLoan(ctx context.Context, loanID id.ID) (LoanTotals, error) {
	loan, err := r.parent(ctx, schema.Loans, loanID, "principal", "status")
	if err != nil {
		return LoanTotals{}, err
	}
	lr := store.Read(loan)
	principal := lr.Money("principal")
	status := lr.String("status")

	rows, err := r.store.Select(ctx, store.Query{
		Table:   schema.LoanInstallments,
		Columns: []string{"status", "principal_component", "paid_amount"},
		Where:   store.Eq{"loan_id": loanID},
	})
	if err != nil {
		return LoanTotals{}, apperror.NewDatabase(err)
	}

	t := LoanTotals{LoanID: loanID, TotalPaid: types.Zero(), Installments: len(rows)}
	paidPrincipal := types.Zero()
	for _, row := range rows {
		rd := store.Read(row)
		if rd.String("status") != PaymentPaid {
			continue
		}
		t.PaidInstallments++
		t.TotalPaid = t.TotalPaid.Add(rd.Money("paid_amount"))
		paidPrincipal = paidPrincipal.Add(rd.Money("principal_component"))
		if err := rd.Err(); err != nil {
			return LoanTotals{}, apperror.NewInternal(err)
		}
	}
	if err := lr.Err(); err != nil {
		return LoanTotals{}, apperror.NewInternal(err)
	}

	t.RemainingBalance = principal.Sub(paidPrincipal)
	if t.RemainingBalance.IsNegative() {
		t.RemainingBalance = types.Zero()
	}

	switch {
	case t.Installments > 0 && t.PaidInstallments == t.Installments:
		t.Status = LoanPaidOff
	case status == LoanDefaulted:
		t.Status = LoanDefaulted
	default:
		t.Status = LoanActive
	}

	err = r.write(ctx, schema.Loans, loanID, store.Row{
		"total_paid":        t.TotalPaid,
		"remaining_balance": t.RemainingBalance,
		"status":            t.Status,
	})
	return t, err
}

// RecalculateInvestment sets total_returns and current_value
// (amount_invested + total_returns) from the investment's returns.
func (r *Recalculator) RecalculateInvestment(ctx context.Context, investmentID id.ID) (InvestmentTotals, error) {
	inv, err := r.parent(ctx, schema.Investments, investmentID, "amount_invested")
	if err != nil {
		return InvestmentTotals{}, err
	}
	ir := store.Read(inv)
	invested := ir.Money("amount_invested")

	rows, err := r.store.Select(ctx, store.Query{
		Table:   schema.InvestmentReturns,
		Columns: []string{"amount"},
		Where:   store.Eq{"investment_id": investmentID},
	})
	if err != nil {
		return InvestmentTotals{}, apperror.NewDatabase(err)
	}

	t := InvestmentTotals{InvestmentID: investmentID, TotalReturns: types.Zero(), Returns: len(rows)}
	for _, row := range rows {
		rd := store.Read(row)
		t.TotalReturns = t.TotalReturns.Add(rd.Money("amount"))
		if err := rd.Err(); err != nil {
			return InvestmentTotals{}, apperror.NewInternal(err)
		}
	}
	if err := ir.Err(); err != nil {
		return InvestmentTotals{}, apperror.NewInternal(err)
	}
	t.CurrentValue = invested.Add(t.TotalReturns)

	err = r.write(ctx, schema.Investments, investmentID, store.Row{
		"total_returns": t.TotalReturns,
		"current_value": t.CurrentValue,
	})
	return t, err
}

// RecalculateFunding sets total_profit_shared from the funding's paid payments.
func (r *Recalculator) RecalculateFunding(ctx context.Context, fundingID id.ID) (FundingTotals, error) {
	if _, err := r.parent(ctx, schema.InvestorFundings, fundingID, "id"); err != nil {
		return FundingTotals{}, err
	}

	rows, err := r.store.Select(ctx, store.Query{
		Table:   schema.ProfitSharingPayments,
		Columns: []string{"share_amount"},
		Where:   store.Eq{"funding_id": fundingID, "status": PaymentPaid},
	})
	if err != nil {
		return FundingTotals{}, apperror.NewDatabase(err)
	}

	t := FundingTotals{FundingID: fundingID, TotalProfitShared: types.Zero(), PaidPayments: len(rows)}
	for _, row := range rows {
		rd := store.Read(row)
		t.TotalProfitShared = t.TotalProfitShared.Add(rd.Money("share_amount"))
		if err := rd.Err(); err != nil {
			return FundingTotals{}, apperror.NewInternal(err)
		}
	}

	err = r.write(ctx, schema.InvestorFundings, fundingID, store.Row{
		"total_profit_shared": t.TotalProfitShared,
	})
	return t, err
}

// LoanStep is the closing step of a loan write sequence. It has no inverse:
// the inverses of the earlier steps leave the children as they were, and a
// recalculation is only ever as stale as the next one.
func (r *Recalculator) LoanStep(loanID id.ID, out *LoanTotals) compensation.Step {
	return compensation.Step{
		Name: "recalculate_loan",
		Do: func(ctx context.Context) error {
			t, err := r.RecalculateLoan(ctx, loanID)
			if out != nil {
				*out = t
			}
			return err
		},
	}
}

// InvestmentStep is the closing step of an investment write sequence.
func (r *Recalculator) InvestmentStep(investmentID id.ID, out *InvestmentTotals) compensation.Step {
	return compensation.Step{
		Name: "recalculate_investment",
		Do: func(ctx context.Context) error {
			t, err := r.RecalculateInvestment(ctx, investmentID)
			if out != nil {
				*out = t
			}
			return err
		},
	}
}

// FundingStep is the closing step of a funding write sequence.
func (r *Recalculator) FundingStep(fundingID id.ID, out *FundingTotals) compensation.Step {
	return compensation.Step{
		Name: "recalculate_funding",
		Do: func(ctx context.Context) error {
			t, err := r.RecalculateFunding(ctx, fundingID)
			if out != nil {
				*out = t
			}
			return err
		},
	}
}

func (r *Recalculator) parent(ctx context.Context, table string, parentID id.ID, cols ...string) (store.Row, error) {
	row, err := store.SelectOne(ctx, r.store, store.Query{
		Table:   table,
		Columns: cols,
		Where:   store.Eq{"id": parentID},
	})
	if errors.Is(err, store.ErrNoRows) {
		return nil, apperror.NewNotFound(table, parentID)
	}
	if err != nil {
		return nil, apperror.NewDatabase(err)
	}
	return row, nil
}

func (r *Recalculator) write(ctx context.Context, table string, parentID id.ID, set store.Row) error {
	if _, err := r.store.Update(ctx, table, set, store.Eq{"id": parentID}); err != nil {
		return apperror.NewDatabase(err)
	}
	return nil
}
