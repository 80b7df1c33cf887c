package loans

import (
	"context"
	"errors"

	"bizledger/internal/core/apperror"
	"bizledger/internal/core/id"
	"bizledger/internal/core/schema"
	"bizledger/internal/core/store"
	"bizledger/internal/core/types"
	"bizledger/internal/domain"
	"bizledger/internal/domain/aggregates"
	"bizledger/internal/domain/amortization"
	"bizledger/internal/domain/compensation"
	"bizledger/internal/domain/events"
	"bizledger/internal/domain/ledger"
	"bizledger/pkg/logger"
)

// Service provides loan operations.
type Service struct {
	domain.Deps
	repo *Repository
}

// NewService creates a loan service.
func NewService(deps domain.Deps) *Service {
	return &Service{
		Deps: deps,
		repo: NewRepository(deps.Store, deps.Resolver),
	}
}

// CreateLoan stores a loan and its full installment schedule.
// The loan row is written first; if the installments cannot be written the
// loan row is removed again.
func (s *Service) CreateLoan(ctx context.Context, in CreateInput) (Loan, error) {
	owner, err := domain.RequireOwner(ctx)
	if err != nil {
		return Loan{}, err
	}
	if err := in.Validate(); err != nil {
		return Loan{}, err
	}

	plan, err := amortization.Calculate(in.Principal, in.AnnualRate, in.TermMonths, in.FirstPaymentDate)
	if err != nil {
		return Loan{}, err
	}

	now := s.Now()
	disbursed := in.DisbursementDate
	if disbursed.IsZero() {
		disbursed = s.Today()
	}

	loan := Loan{
		ID:               id.New(),
		OwnerID:          owner,
		LenderName:       in.Lender.Name,
		LenderContact:    in.Lender.Contact,
		Principal:        in.Principal,
		AnnualRate:       in.AnnualRate,
		TermMonths:       in.TermMonths,
		DisbursementDate: disbursed,
		FirstPaymentDate: in.FirstPaymentDate,
		Status:           StatusActive,
		TotalPaid:        types.Zero(),
		RemainingBalance: in.Principal,
		Notes:            in.Lender.Notes,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	loan.Installments = make([]Installment, len(plan.Installments))
	for i, p := range plan.Installments {
		loan.Installments[i] = Installment{
			ID:                 id.New(),
			LoanID:             loan.ID,
			Sequence:           p.Sequence,
			DueDate:            p.DueDate,
			PrincipalComponent: p.Principal,
			InterestComponent:  p.Interest,
			TotalDue:           p.TotalDue,
			Status:             InstallmentPending,
		}
	}

	_, err = s.Coordinator.Run(ctx, "create_loan",
		compensation.Insert(s.Store, "insert_loan", schema.Loans, s.repo.LoanRow(ctx, loan)),
		compensation.Insert(s.Store, "insert_installments", schema.LoanInstallments, s.repo.InstallmentRows(loan.Installments)...),
	)
	if err != nil {
		return Loan{}, err
	}

	logger.Info(ctx, "loan created",
		"loan_id", loan.ID,
		"principal", loan.Principal.StringFixed(2),
		"term_months", loan.TermMonths,
		"level_payment", plan.LevelPayment.StringFixed(2))

	s.Emit(ctx, events.Event{
		Type:        events.LoanCreated,
		OwnerID:     owner,
		AggregateID: loan.ID,
		Payload: map[string]any{
			"principal":     loan.Principal,
			"term_months":   loan.TermMonths,
			"level_payment": plan.LevelPayment,
		},
	})
	return loan, nil
}

// GetLoan loads a loan with its schedule.
func (s *Service) GetLoan(ctx context.Context, loanID id.ID) (Loan, error) {
	owner, err := domain.RequireOwner(ctx)
	if err != nil {
		return Loan{}, err
	}
	loan, err := s.repo.Get(ctx, owner, loanID)
	if err != nil {
		return Loan{}, err
	}
	loan.Installments, err = s.repo.Installments(ctx, loan.ID)
	if err != nil {
		return Loan{}, err
	}
	return loan, nil
}

// ListLoans pages through the owner's loans, newest first.
func (s *Service) ListLoans(ctx context.Context, f domain.ListFilter) (domain.ListResult[Loan], error) {
	owner, err := domain.RequireOwner(ctx)
	if err != nil {
		return domain.ListResult[Loan]{}, err
	}
	all, err := s.repo.List(ctx, owner)
	if err != nil {
		return domain.ListResult[Loan]{}, err
	}
	return domain.Page(all, f), nil
}

// PayInstallment marks an installment paid and books the repayment as an
// expense. The expense is written first and removed again if the
// installment cannot be updated; loan totals are recalculated last.
func (s *Service) PayInstallment(ctx context.Context, in PayInput) (PaymentResult, error) {
	owner, err := domain.RequireOwner(ctx)
	if err != nil {
		return PaymentResult{}, err
	}

	inst, err := s.repo.GetInstallment(ctx, in.InstallmentID)
	if err != nil {
		return PaymentResult{}, err
	}
	loan, err := s.repo.Get(ctx, owner, inst.LoanID)
	if apperror.IsNotFound(err) {
		// Someone else's installment looks the same as a missing one.
		return PaymentResult{}, apperror.NewNotFound("installment", in.InstallmentID)
	}
	if err != nil {
		return PaymentResult{}, err
	}
	if inst.IsPaid() {
		return PaymentResult{}, apperror.NewAlreadyPaid("installment", inst.ID)
	}

	paidDate := in.PaidDate
	if paidDate.IsZero() {
		paidDate = s.Today()
	}
	amount := inst.TotalDue
	if in.PaidAmount != nil {
		amount = types.RoundMoney(*in.PaidAmount)
		if !amount.IsPositive() {
			return PaymentResult{}, apperror.NewValidation("paid amount must be positive").WithDetail("field", "paid_amount")
		}
	}

	entry := s.Factory.ForInstallment(ledger.InstallmentPaid{
		OwnerID:       owner,
		LoanID:        loan.ID,
		LenderName:    loan.LenderName,
		InstallmentID: inst.ID,
		Sequence:      inst.Sequence,
		TermMonths:    loan.TermMonths,
		PaidDate:      paidDate,
		Amount:        amount,
		Principal:     inst.PrincipalComponent,
		Interest:      inst.InterestComponent,
	})

	var totals aggregates.LoanTotals
	_, err = s.Coordinator.Run(ctx, "pay_installment",
		s.Ledger.InsertStep(ctx, entry),
		compensation.Update(s.Store, "mark_installment_paid", schema.LoanInstallments,
			store.Row{
				"status":          string(InstallmentPaid),
				"paid_date":       paidDate,
				"paid_amount":     amount,
				"ledger_entry_id": entry.ID,
			},
			store.Eq{"id": inst.ID, "status": string(InstallmentPending)},
		),
		s.Recalculator.LoanStep(loan.ID, &totals),
	)
	if errors.Is(err, compensation.ErrNoRowsAffected) {
		// Paid concurrently between the read above and the guarded update.
		return PaymentResult{}, apperror.NewAlreadyPaid("installment", inst.ID)
	}
	if err != nil {
		return PaymentResult{}, err
	}

	inst.Status = InstallmentPaid
	inst.PaidDate = &paidDate
	inst.PaidAmount = &amount
	inst.LedgerEntryID = &entry.ID

	loan.Status = Status(totals.Status)
	loan.TotalPaid = totals.TotalPaid
	loan.RemainingBalance = totals.RemainingBalance

	logger.Info(ctx, "installment paid",
		"loan_id", loan.ID,
		"installment_id", inst.ID,
		"sequence", inst.Sequence,
		"amount", amount.StringFixed(2),
		"loan_status", loan.Status)

	s.Emit(ctx, events.Event{
		Type:        events.InstallmentPaid,
		OwnerID:     owner,
		AggregateID: loan.ID,
		Payload: map[string]any{
			"installment_id":    inst.ID,
			"amount":            amount,
			"ledger_entry_id":   entry.ID,
			"loan_status":       loan.Status,
			"remaining_balance": loan.RemainingBalance,
		},
	})

	return PaymentResult{
		Installment: inst,
		Entry:       entry,
		LoanStatus:  loan.Status,
		Loan:        loan,
	}, nil
}

// DeleteLoan removes a loan that has no paid installments, together with its schedule.
func (s *Service) DeleteLoan(ctx context.Context, loanID id.ID) error {
	owner, err := domain.RequireOwner(ctx)
	if err != nil {
		return err
	}
	loan, err := s.repo.Get(ctx, owner, loanID)
	if err != nil {
		return err
	}
	insts, err := s.repo.Installments(ctx, loan.ID)
	if err != nil {
		return err
	}
	for _, in := range insts {
		if in.IsPaid() {
			return apperror.NewBusinessRule(apperror.CodeBusinessRule,
				"a loan with paid installments cannot be deleted").
				WithDetail("loan_id", loan.ID).
				WithDetail("installment_id", in.ID)
		}
	}

	_, err = s.Coordinator.Run(ctx, "delete_loan",
		compensation.Delete(s.Store, "delete_installments", schema.LoanInstallments, store.Eq{"loan_id": loan.ID}),
		compensation.Delete(s.Store, "delete_loan", schema.Loans, store.Eq{"id": loan.ID}),
	)
	if err != nil {
		return err
	}

	logger.Info(ctx, "loan deleted", "loan_id", loan.ID, "installments", len(insts))
	s.Emit(ctx, events.Event{Type: events.LoanDeleted, OwnerID: owner, AggregateID: loan.ID})
	return nil
}

// MarkDefaulted flags an active loan as defaulted. Paying the remaining
// installments later still moves it to paid_off.
func (s *Service) MarkDefaulted(ctx context.Context, loanID id.ID) (Loan, error) {
	owner, err := domain.RequireOwner(ctx)
	if err != nil {
		return Loan{}, err
	}
	loan, err := s.repo.Get(ctx, owner, loanID)
	if err != nil {
		return Loan{}, err
	}

	switch loan.Status {
	case StatusDefaulted:
		return Loan{}, apperror.NewAlreadyProcessed("loan", loan.ID)
	case StatusPaidOff:
		return Loan{}, apperror.NewBusinessRule(apperror.CodeBusinessRule, "a paid-off loan cannot default").
			WithDetail("loan_id", loan.ID)
	}

	now := s.Now()
	_, err = s.Coordinator.Run(ctx, "mark_loan_defaulted",
		compensation.Update(s.Store, "set_loan_status", schema.Loans,
			store.Row{"status": string(StatusDefaulted), "updated_at": now},
			store.Eq{"id": loan.ID, "status": string(StatusActive)},
		),
	)
	if errors.Is(err, compensation.ErrNoRowsAffected) {
		return Loan{}, apperror.NewAlreadyProcessed("loan", loan.ID)
	}
	if err != nil {
		return Loan{}, err
	}

	loan.Status = StatusDefaulted
	loan.UpdatedAt = now
	s.Emit(ctx, events.Event{Type: events.LoanDefaulted, OwnerID: owner, AggregateID: loan.ID})
	return loan, nil
}
