package reports

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"bizledger/internal/domain"
	"bizledger/internal/domain/ledger"
)

// Service provides report generation operations.
type Service struct {
	repo  Repository
	clock func() time.Time
}

// NewService creates a new reports service.
func NewService(repo Repository, clock func() time.Time) *Service {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &Service{repo: repo, clock: clock}
}

// Summary gathers the dashboard figures. The reads are independent and run
// concurrently; the first failure cancels the rest.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	owner, err := domain.RequireOwner(ctx)
	if err != nil {
		return nil, err
	}

	out := &Summary{GeneratedAt: s.clock()}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		v, err := s.repo.LedgerTotal(gctx, owner, ledger.KindIncome)
		if err != nil {
			return fmt.Errorf("income total: %w", err)
		}
		out.TotalIncome = v
		return nil
	})
	g.Go(func() error {
		v, err := s.repo.LedgerTotal(gctx, owner, ledger.KindExpense)
		if err != nil {
			return fmt.Errorf("expense total: %w", err)
		}
		out.TotalExpense = v
		return nil
	})
	g.Go(func() error {
		v, err := s.repo.LoanExposure(gctx, owner)
		if err != nil {
			return fmt.Errorf("loan exposure: %w", err)
		}
		out.ActiveLoans = v.Active
		out.OutstandingLoanBalance = v.Outstanding
		return nil
	})
	g.Go(func() error {
		v, err := s.repo.InvestmentValue(gctx, owner)
		if err != nil {
			return fmt.Errorf("investment value: %w", err)
		}
		out.InvestmentValue = v
		return nil
	})
	g.Go(func() error {
		v, err := s.repo.ProfitShared(gctx, owner)
		if err != nil {
			return fmt.Errorf("profit shared: %w", err)
		}
		out.TotalProfitShared = v
		return nil
	})
	g.Go(func() error {
		v, err := s.repo.InventoryUnits(gctx, owner)
		if err != nil {
			return fmt.Errorf("inventory units: %w", err)
		}
		out.InventoryUnits = v
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	out.NetIncome = out.TotalIncome.Sub(out.TotalExpense)
	return out, nil
}
