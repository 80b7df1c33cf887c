package investments

import (
	"context"

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

// Service provides investment operations.
type Service struct {
	domain.Deps
	repo *Repository
}

// NewService creates an investment service.
func NewService(deps domain.Deps) *Service {
	return &Service{
		Deps: deps,
		repo: NewRepository(deps.Store, deps.Resolver),
	}
}

// CreateInvestment records a new investment with no returns yet.
func (s *Service) CreateInvestment(ctx context.Context, in CreateInput) (Investment, error) {
	owner, err := domain.RequireOwner(ctx)
	if err != nil {
		return Investment{}, err
	}
	if err := in.Validate(); err != nil {
		return Investment{}, err
	}

	now := s.Now()
	start := in.StartDate
	if start.IsZero() {
		start = s.Today()
	}
	amount := types.RoundMoney(in.AmountInvested)
	inv := Investment{
		ID:             id.New(),
		OwnerID:        owner,
		Name:           in.Name,
		AmountInvested: amount,
		StartDate:      start,
		CurrentValue:   amount,
		TotalReturns:   types.Zero(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if _, err := s.Coordinator.Run(ctx, "create_investment",
		compensation.Insert(s.Store, "insert_investment", schema.Investments, s.repo.InvestmentRow(ctx, inv)),
	); err != nil {
		return Investment{}, err
	}

	s.Emit(ctx, events.Event{
		Type:        events.InvestmentCreated,
		OwnerID:     owner,
		AggregateID: inv.ID,
		Payload:     map[string]any{"amount_invested": inv.AmountInvested},
	})
	return inv, nil
}

// GetInvestment loads an investment.
func (s *Service) GetInvestment(ctx context.Context, investmentID id.ID) (Investment, error) {
	owner, err := domain.RequireOwner(ctx)
	if err != nil {
		return Investment{}, err
	}
	return s.repo.Get(ctx, owner, investmentID)
}

// ListReturns loads the returns of an investment.
func (s *Service) ListReturns(ctx context.Context, investmentID id.ID) ([]Return, error) {
	inv, err := s.GetInvestment(ctx, investmentID)
	if err != nil {
		return nil, err
	}
	return s.repo.Returns(ctx, inv.ID)
}

// RecordReturn books a return as income and adds it to the investment.
// The income entry is written first and removed again if the return row
// cannot be written.
func (s *Service) RecordReturn(ctx context.Context, in ReturnInput) (ReturnResult, error) {
	owner, err := domain.RequireOwner(ctx)
	if err != nil {
		return ReturnResult{}, err
	}
	if err := in.Validate(); err != nil {
		return ReturnResult{}, err
	}
	inv, err := s.repo.Get(ctx, owner, in.InvestmentID)
	if err != nil {
		return ReturnResult{}, err
	}

	date := in.Date
	if date.IsZero() {
		date = s.Today()
	}
	kind := in.Type
	if kind == "" {
		kind = ReturnOther
	}

	ret := Return{
		ID:           id.New(),
		InvestmentID: inv.ID,
		ReturnDate:   date,
		Amount:       types.RoundMoney(in.Amount),
		ReturnType:   kind,
		CreatedAt:    s.Now(),
	}
	entry := s.Factory.ForInvestmentReturn(ledger.InvestmentReturned{
		OwnerID:        owner,
		InvestmentID:   inv.ID,
		InvestmentName: inv.Name,
		ReturnID:       ret.ID,
		ReturnType:     string(kind),
		Date:           date,
		Amount:         ret.Amount,
	})
	ret.LedgerEntryID = &entry.ID

	var totals aggregates.InvestmentTotals
	if _, err := s.Coordinator.Run(ctx, "record_investment_return",
		s.Ledger.InsertStep(ctx, entry),
		compensation.Insert(s.Store, "insert_return", schema.InvestmentReturns, store.RowFromStruct(ret)),
		s.Recalculator.InvestmentStep(inv.ID, &totals),
	); err != nil {
		return ReturnResult{}, err
	}

	inv.TotalReturns = totals.TotalReturns
	inv.CurrentValue = totals.CurrentValue

	logger.Info(ctx, "investment return recorded",
		"investment_id", inv.ID,
		"return_id", ret.ID,
		"amount", ret.Amount.StringFixed(2),
		"return_type", ret.ReturnType)

	s.Emit(ctx, events.Event{
		Type:        events.InvestmentReturnRecorded,
		OwnerID:     owner,
		AggregateID: inv.ID,
		Payload: map[string]any{
			"return_id":       ret.ID,
			"amount":          ret.Amount,
			"ledger_entry_id": entry.ID,
			"current_value":   inv.CurrentValue,
		},
	})
	return ReturnResult{Return: ret, Entry: entry, Investment: inv}, nil
}

// DeleteReturn removes a return together with the income booked for it.
func (s *Service) DeleteReturn(ctx context.Context, returnID id.ID) (Investment, error) {
	owner, err := domain.RequireOwner(ctx)
	if err != nil {
		return Investment{}, err
	}
	ret, err := s.repo.GetReturn(ctx, returnID)
	if err != nil {
		return Investment{}, err
	}
	inv, err := s.repo.Get(ctx, owner, ret.InvestmentID)
	if apperror.IsNotFound(err) {
		return Investment{}, apperror.NewNotFound("investment return", returnID)
	}
	if err != nil {
		return Investment{}, err
	}

	var totals aggregates.InvestmentTotals
	if _, err := s.Coordinator.Run(ctx, "delete_investment_return",
		s.Ledger.DeleteBySourceStep(ledger.KindIncome, ledger.SourceInvestmentReturn, ret.ID),
		compensation.Delete(s.Store, "delete_return", schema.InvestmentReturns, store.Eq{"id": ret.ID}),
		s.Recalculator.InvestmentStep(inv.ID, &totals),
	); err != nil {
		return Investment{}, err
	}

	inv.TotalReturns = totals.TotalReturns
	inv.CurrentValue = totals.CurrentValue

	s.Emit(ctx, events.Event{
		Type:        events.InvestmentReturnDeleted,
		OwnerID:     owner,
		AggregateID: inv.ID,
		Payload:     map[string]any{"return_id": ret.ID, "amount": ret.Amount},
	})
	return inv, nil
}
