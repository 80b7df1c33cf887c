package funding

import (
	"context"
	"errors"
	"time"

	"bizledger/internal/core/apperror"
	"bizledger/internal/core/id"
	"bizledger/internal/core/schema"
	"bizledger/internal/core/store"
	"bizledger/internal/core/types"
	"bizledger/internal/domain"
	"bizledger/internal/domain/aggregates"
	"bizledger/internal/domain/compensation"
	"bizledger/internal/domain/events"
	"bizledger/internal/domain/ledger"
	"bizledger/pkg/logger"
)

// Service provides investor funding operations.
type Service struct {
	domain.Deps
	repo *Repository
}

// NewService creates a funding service.
func NewService(deps domain.Deps) *Service {
	return &Service{
		Deps: deps,
		repo: NewRepository(deps.Store, deps.Resolver),
	}
}

// CreateFunding records capital received from an investor.
func (s *Service) CreateFunding(ctx context.Context, in CreateInput) (Funding, error) {
	owner, err := domain.RequireOwner(ctx)
	if err != nil {
		return Funding{}, err
	}
	if err := in.Validate(); err != nil {
		return Funding{}, err
	}

	now := s.Now()
	start := in.StartDate
	if start.IsZero() {
		start = s.Today()
	}
	f := Funding{
		ID:                 id.New(),
		OwnerID:            owner,
		InvestorName:       in.InvestorName,
		Amount:             types.RoundMoney(in.Amount),
		ProfitSharePercent: in.ProfitSharePercent,
		StartDate:          start,
		TotalProfitShared:  types.Zero(),
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if _, err := s.Coordinator.Run(ctx, "create_funding",
		compensation.Insert(s.Store, "insert_funding", schema.InvestorFundings, s.repo.FundingRow(ctx, f)),
	); err != nil {
		return Funding{}, err
	}

	s.Emit(ctx, events.Event{
		Type:        events.FundingCreated,
		OwnerID:     owner,
		AggregateID: f.ID,
		Payload:     map[string]any{"amount": f.Amount, "profit_share_percent": f.ProfitSharePercent},
	})
	return f, nil
}

// GetFunding loads a funding.
func (s *Service) GetFunding(ctx context.Context, fundingID id.ID) (Funding, error) {
	owner, err := domain.RequireOwner(ctx)
	if err != nil {
		return Funding{}, err
	}
	return s.repo.Get(ctx, owner, fundingID)
}

// ListPayments loads the profit-sharing payments of a funding.
func (s *Service) ListPayments(ctx context.Context, fundingID id.ID) ([]Payment, error) {
	f, err := s.GetFunding(ctx, fundingID)
	if err != nil {
		return nil, err
	}
	return s.repo.Payments(ctx, f.ID)
}

// RecordPayment computes the investor's share of a period's profit and
// records it. A payment recorded as paid also books the share as an expense.
// A period closing at a loss is refused.
func (s *Service) RecordPayment(ctx context.Context, in PaymentInput) (PaymentResult, error) {
	owner, err := domain.RequireOwner(ctx)
	if err != nil {
		return PaymentResult{}, err
	}
	if err := in.Validate(); err != nil {
		return PaymentResult{}, err
	}
	f, err := s.repo.Get(ctx, owner, in.FundingID)
	if err != nil {
		return PaymentResult{}, err
	}

	net := in.Revenue.Sub(in.Expenses)
	if net.IsNegative() {
		return PaymentResult{}, apperror.NewNegativeProfit(net.StringFixed(2)).
			WithDetail("funding_id", f.ID).
			WithDetail("period", in.Period)
	}

	status := in.Status
	if status == "" {
		status = PaymentPending
	}
	due := in.DueDate
	if due.IsZero() {
		due = s.Today()
	}

	p := Payment{
		ID:          id.New(),
		FundingID:   f.ID,
		Period:      in.Period,
		Revenue:     types.RoundMoney(in.Revenue),
		Expenses:    types.RoundMoney(in.Expenses),
		NetProfit:   types.RoundMoney(net),
		ShareAmount: ShareOf(net, f.ProfitSharePercent),
		DueDate:     due,
		Status:      status,
		CreatedAt:   s.Now(),
	}

	var steps []compensation.Step
	var entry *ledger.Entry
	if status == PaymentPaid {
		paid := in.PaidDate
		if paid.IsZero() {
			paid = s.Today()
		}
		p.PaidDate = &paid
		if p.ShareAmount.IsPositive() {
			e := s.entryFor(owner, f, p, paid)
			entry = &e
			p.LedgerEntryID = &e.ID
			steps = append(steps, s.Ledger.InsertStep(ctx, e))
		}
	}

	var totals aggregates.FundingTotals
	steps = append(steps,
		compensation.Insert(s.Store, "insert_payment", schema.ProfitSharingPayments, store.RowFromStruct(p)),
		s.Recalculator.FundingStep(f.ID, &totals),
	)
	if _, err := s.Coordinator.Run(ctx, "record_profit_sharing_payment", steps...); err != nil {
		return PaymentResult{}, err
	}
	f.TotalProfitShared = totals.TotalProfitShared

	logger.Info(ctx, "profit sharing recorded",
		"funding_id", f.ID,
		"payment_id", p.ID,
		"period", p.Period,
		"net_profit", p.NetProfit.StringFixed(2),
		"share_amount", p.ShareAmount.StringFixed(2),
		"status", p.Status)

	s.Emit(ctx, events.Event{
		Type:        events.ProfitSharingRecorded,
		OwnerID:     owner,
		AggregateID: f.ID,
		Payload: map[string]any{
			"payment_id":   p.ID,
			"period":       p.Period,
			"share_amount": p.ShareAmount,
			"status":       p.Status,
		},
	})
	return PaymentResult{Payment: p, Entry: entry, Funding: f}, nil
}

// MarkPaid moves a pending payment to paid and books its expense.
func (s *Service) MarkPaid(ctx context.Context, paymentID id.ID, paidDate time.Time) (PaymentResult, error) {
	owner, err := domain.RequireOwner(ctx)
	if err != nil {
		return PaymentResult{}, err
	}
	p, err := s.repo.GetPayment(ctx, paymentID)
	if err != nil {
		return PaymentResult{}, err
	}
	f, err := s.repo.Get(ctx, owner, p.FundingID)
	if apperror.IsNotFound(err) {
		return PaymentResult{}, apperror.NewNotFound("profit sharing payment", paymentID)
	}
	if err != nil {
		return PaymentResult{}, err
	}
	if p.Status == PaymentPaid {
		return PaymentResult{}, apperror.NewAlreadyProcessed("profit sharing payment", p.ID)
	}

	if paidDate.IsZero() {
		paidDate = s.Today()
	}
	set := store.Row{"status": string(PaymentPaid), "paid_date": paidDate}

	var steps []compensation.Step
	var entry *ledger.Entry
	if p.ShareAmount.IsPositive() {
		e := s.entryFor(owner, f, p, paidDate)
		entry = &e
		set["ledger_entry_id"] = e.ID
		steps = append(steps, s.Ledger.InsertStep(ctx, e))
	}

	var totals aggregates.FundingTotals
	steps = append(steps,
		compensation.Update(s.Store, "mark_payment_paid", schema.ProfitSharingPayments, set,
			store.Eq{"id": p.ID, "status": string(PaymentPending)}),
		s.Recalculator.FundingStep(f.ID, &totals),
	)
	_, err = s.Coordinator.Run(ctx, "mark_profit_sharing_paid", steps...)
	if errors.Is(err, compensation.ErrNoRowsAffected) {
		return PaymentResult{}, apperror.NewAlreadyProcessed("profit sharing payment", p.ID)
	}
	if err != nil {
		return PaymentResult{}, err
	}

	p.Status = PaymentPaid
	p.PaidDate = &paidDate
	if entry != nil {
		p.LedgerEntryID = &entry.ID
	}
	f.TotalProfitShared = totals.TotalProfitShared

	s.Emit(ctx, events.Event{
		Type:        events.ProfitSharingPaid,
		OwnerID:     owner,
		AggregateID: f.ID,
		Payload:     map[string]any{"payment_id": p.ID, "share_amount": p.ShareAmount},
	})
	return PaymentResult{Payment: p, Entry: entry, Funding: f}, nil
}

func (s *Service) entryFor(owner string, f Funding, p Payment, paid time.Time) ledger.Entry {
	return s.Factory.ForProfitSharing(ledger.ProfitShared{
		OwnerID:      owner,
		FundingID:    f.ID,
		InvestorName: f.InvestorName,
		PaymentID:    p.ID,
		Period:       p.Period,
		PaidDate:     paid,
		Amount:       p.ShareAmount,
	})
}
