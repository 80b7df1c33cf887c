package loans

import (
	"context"
	"errors"

	"bizledger/internal/core/apperror"
	"bizledger/internal/core/id"
	"bizledger/internal/core/schema"
	"bizledger/internal/core/store"
	"bizledger/internal/domain"
)

// Repository maps loans and installments to rows.
type Repository struct {
	store    store.RowStore
	resolver schema.Resolver
}

// NewRepository creates a loan repository.
func NewRepository(s store.RowStore, r schema.Resolver) *Repository {
	return &Repository{store: s, resolver: r}
}

func (r *Repository) ownerCol(ctx context.Context) string {
	return schema.OwnerColumn(ctx, r.resolver, schema.Loans)
}

// LoanRow maps l to a loans row with the resolved owner column.
func (r *Repository) LoanRow(ctx context.Context, l Loan) store.Row {
	row := store.RowFromStruct(l)
	row[r.ownerCol(ctx)] = l.OwnerID
	return row
}

// InstallmentRows maps a schedule to rows.
func (r *Repository) InstallmentRows(items []Installment) []store.Row {
	rows := make([]store.Row, len(items))
	for i, in := range items {
		rows[i] = store.RowFromStruct(in)
	}
	return rows
}

// Get loads a loan owned by ownerID, without installments.
func (r *Repository) Get(ctx context.Context, ownerID string, loanID id.ID) (Loan, error) {
	col := r.ownerCol(ctx)
	row, err := store.SelectOne(ctx, r.store, store.Query{
		Table: schema.Loans,
		Where: store.Eq{"id": loanID, col: ownerID},
	})
	if errors.Is(err, store.ErrNoRows) {
		return Loan{}, apperror.NewNotFound("loan", loanID)
	}
	if err != nil {
		return Loan{}, apperror.NewDatabase(err)
	}
	return loanFromRow(row, col)
}

// List loads every loan of ownerID, newest first.
func (r *Repository) List(ctx context.Context, ownerID string) ([]Loan, error) {
	col := r.ownerCol(ctx)
	rows, err := r.store.Select(ctx, domain.OwnedQuery(schema.Loans, col, ownerID, "created_at DESC"))
	if err != nil {
		return nil, apperror.NewDatabase(err)
	}
	out := make([]Loan, 0, len(rows))
	for _, row := range rows {
		l, err := loanFromRow(row, col)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

// Installments loads a loan's schedule in sequence order.
func (r *Repository) Installments(ctx context.Context, loanID id.ID) ([]Installment, error) {
	rows, err := r.store.Select(ctx, store.Query{
		Table:   schema.LoanInstallments,
		Where:   store.Eq{"loan_id": loanID},
		OrderBy: []string{"sequence_number"},
	})
	if err != nil {
		return nil, apperror.NewDatabase(err)
	}
	out := make([]Installment, 0, len(rows))
	for _, row := range rows {
		in, err := installmentFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, nil
}

// GetInstallment loads one installment by id.
func (r *Repository) GetInstallment(ctx context.Context, installmentID id.ID) (Installment, error) {
	row, err := store.SelectOne(ctx, r.store, store.Query{
		Table: schema.LoanInstallments,
		Where: store.Eq{"id": installmentID},
	})
	if errors.Is(err, store.ErrNoRows) {
		return Installment{}, apperror.NewNotFound("installment", installmentID)
	}
	if err != nil {
		return Installment{}, apperror.NewDatabase(err)
	}
	return installmentFromRow(row)
}

func loanFromRow(row store.Row, ownerCol string) (Loan, error) {
	rd := store.Read(row)
	l := Loan{
		ID:               rd.ID("id"),
		OwnerID:          rd.String(ownerCol),
		LenderName:       rd.String("lender_name"),
		LenderContact:    rd.String("lender_contact"),
		Principal:        rd.Money("principal"),
		AnnualRate:       rd.Money("annual_rate"),
		TermMonths:       int(rd.Int("term_months")),
		DisbursementDate: rd.Time("disbursement_date"),
		FirstPaymentDate: rd.Time("first_payment_date"),
		Status:           Status(rd.String("status")),
		TotalPaid:        rd.Money("total_paid"),
		RemainingBalance: rd.Money("remaining_balance"),
		Notes:            rd.String("notes"),
		CreatedAt:        rd.Time("created_at"),
		UpdatedAt:        rd.Time("updated_at"),
	}
	if err := rd.Err(); err != nil {
		return Loan{}, apperror.NewInternal(err).WithDetail("table", schema.Loans)
	}
	return l, nil
}

func installmentFromRow(row store.Row) (Installment, error) {
	rd := store.Read(row)
	in := Installment{
		ID:                 rd.ID("id"),
		LoanID:             rd.ID("loan_id"),
		Sequence:           int(rd.Int("sequence_number")),
		DueDate:            rd.Time("due_date"),
		PrincipalComponent: rd.Money("principal_component"),
		InterestComponent:  rd.Money("interest_component"),
		TotalDue:           rd.Money("total_due"),
		Status:             InstallmentStatus(rd.String("status")),
		PaidDate:           rd.OptTime("paid_date"),
		LedgerEntryID:      rd.OptID("ledger_entry_id"),
	}
	if rd.Has("paid_amount") {
		amt := rd.Money("paid_amount")
		in.PaidAmount = &amt
	}
	if err := rd.Err(); err != nil {
		return Installment{}, apperror.NewInternal(err).WithDetail("table", schema.LoanInstallments)
	}
	return in, nil
}
