package transactions

import (
	"context"

	"bizledger/internal/core/id"
	"bizledger/internal/core/schema"
	"bizledger/internal/core/store"
	"bizledger/internal/core/types"
	"bizledger/internal/domain"
	"bizledger/internal/domain/compensation"
	"bizledger/internal/domain/events"
	"bizledger/internal/domain/registers/stock"
	"bizledger/pkg/logger"
)

// Service provides sale and purchase operations.
type Service struct {
	domain.Deps
	repo  *Repository
	stock *stock.Reconciler
}

// NewService creates a transaction service.
func NewService(deps domain.Deps) *Service {
	return &Service{
		Deps:  deps,
		repo:  NewRepository(deps.Store, deps.Resolver),
		stock: stock.NewReconciler(deps.Store, deps.Resolver),
	}
}

// CreateTransaction records a sale or purchase and moves stock for its items.
// Stock failures are returned as warnings; the transaction stays recorded.
func (s *Service) CreateTransaction(ctx context.Context, in CreateInput) (Result, error) {
	owner, err := domain.RequireOwner(ctx)
	if err != nil {
		return Result{}, err
	}
	if err := in.Validate(); err != nil {
		return Result{}, err
	}
	if err := s.repo.CheckProducts(ctx, owner, productIDs(in.Items)); err != nil {
		return Result{}, err
	}

	now := s.Now()
	date := in.Date
	if date.IsZero() {
		date = s.Today()
	}
	tx := Transaction{
		ID:              id.New(),
		OwnerID:         owner,
		Kind:            in.Kind,
		TransactionDate: date,
		Notes:           in.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	tx.Items = lineItems(tx.ID, in.Items)
	tx.Total = total(tx.Items)

	if _, err := s.Coordinator.Run(ctx, "create_transaction",
		compensation.Insert(s.Store, "insert_transaction", schema.Transactions, s.repo.TransactionRow(ctx, tx)),
		compensation.Insert(s.Store, "insert_items", schema.TransactionItems, s.repo.ItemRows(tx.Items)...),
	); err != nil {
		return Result{}, err
	}

	moved := s.stock.ApplyLineItems(ctx, tx.Kind.Direction(), stockItems(tx.Items), tx.Kind.Reason())

	logger.Info(ctx, "transaction created",
		"transaction_id", tx.ID,
		"kind", tx.Kind,
		"total", tx.Total.StringFixed(2),
		"items", len(tx.Items),
		"stock_warnings", len(moved.Warnings))

	s.Emit(ctx, events.Event{
		Type:        events.TransactionCreated,
		OwnerID:     owner,
		AggregateID: tx.ID,
		Payload:     map[string]any{"kind": tx.Kind, "total": tx.Total},
	})
	return Result{Transaction: tx, Stock: moved.Levels, Warnings: moved.Warnings}, nil
}

// GetTransaction loads a transaction with its items.
func (s *Service) GetTransaction(ctx context.Context, txID id.ID) (Transaction, error) {
	owner, err := domain.RequireOwner(ctx)
	if err != nil {
		return Transaction{}, err
	}
	tx, err := s.repo.Get(ctx, owner, txID)
	if err != nil {
		return Transaction{}, err
	}
	tx.Items, err = s.repo.Items(ctx, tx.ID)
	if err != nil {
		return Transaction{}, err
	}
	return tx, nil
}

// ListTransactions pages through the owner's transactions, newest first.
func (s *Service) ListTransactions(ctx context.Context, f domain.ListFilter) (domain.ListResult[Transaction], error) {
	owner, err := domain.RequireOwner(ctx)
	if err != nil {
		return domain.ListResult[Transaction]{}, err
	}
	all, err := s.repo.List(ctx, owner)
	if err != nil {
		return domain.ListResult[Transaction]{}, err
	}
	return domain.Page(all, f), nil
}

// UpdateItems replaces a transaction's line items and moves stock by the
// difference between the old and new lines.
func (s *Service) UpdateItems(ctx context.Context, txID id.ID, items []ItemInput) (Result, error) {
	owner, err := domain.RequireOwner(ctx)
	if err != nil {
		return Result{}, err
	}
	if err := validateItems(items); err != nil {
		return Result{}, err
	}
	tx, err := s.repo.Get(ctx, owner, txID)
	if err != nil {
		return Result{}, err
	}
	before, err := s.repo.Items(ctx, tx.ID)
	if err != nil {
		return Result{}, err
	}
	if err := s.repo.CheckProducts(ctx, owner, productIDs(items)); err != nil {
		return Result{}, err
	}

	now := s.Now()
	after := lineItems(tx.ID, items)
	newTotal := total(after)

	if _, err := s.Coordinator.Run(ctx, "update_transaction_items",
		compensation.Delete(s.Store, "delete_items", schema.TransactionItems, store.Eq{"transaction_id": tx.ID}),
		compensation.Insert(s.Store, "insert_items", schema.TransactionItems, s.repo.ItemRows(after)...),
		compensation.Update(s.Store, "update_total", schema.Transactions,
			store.Row{"total": newTotal, "updated_at": now},
			store.Eq{"id": tx.ID}),
	); err != nil {
		return Result{}, err
	}

	movements := stock.Diff(tx.Kind.Direction(), stockItems(before), stockItems(after), stock.ReasonTransactionEdit)
	moved := s.stock.ApplyAll(ctx, movements)

	tx.Items = after
	tx.Total = newTotal
	tx.UpdatedAt = now

	s.Emit(ctx, events.Event{
		Type:        events.TransactionUpdated,
		OwnerID:     owner,
		AggregateID: tx.ID,
		Payload:     map[string]any{"total": tx.Total, "movements": len(movements)},
	})
	return Result{Transaction: tx, Stock: moved.Levels, Warnings: moved.Warnings}, nil
}

// DeleteTransaction removes a transaction and its items, then returns their
// stock. Stock failures never block the deletion; they are reported as a
// partial rollback with warnings.
func (s *Service) DeleteTransaction(ctx context.Context, txID id.ID) (DeleteResult, error) {
	owner, err := domain.RequireOwner(ctx)
	if err != nil {
		return DeleteResult{}, err
	}
	tx, err := s.repo.Get(ctx, owner, txID)
	if err != nil {
		return DeleteResult{}, err
	}
	items, err := s.repo.Items(ctx, tx.ID)
	if err != nil {
		return DeleteResult{}, err
	}

	if _, err := s.Coordinator.Run(ctx, "delete_transaction",
		compensation.Delete(s.Store, "delete_items", schema.TransactionItems, store.Eq{"transaction_id": tx.ID}),
		compensation.Delete(s.Store, "delete_transaction", schema.Transactions, store.Eq{"id": tx.ID}),
	); err != nil {
		return DeleteResult{}, err
	}

	moved := s.stock.RollbackFromLineItems(ctx, tx.Kind.Direction(), stockItems(items), stock.ReasonTransactionDelete)
	res := DeleteResult{Deleted: true, StockRollback: StockComplete, Warnings: moved.Warnings}
	if !moved.Complete() {
		res.StockRollback = StockPartial
	}

	logger.Info(ctx, "transaction deleted",
		"transaction_id", tx.ID,
		"kind", tx.Kind,
		"stock_rollback", res.StockRollback)

	s.Emit(ctx, events.Event{
		Type:        events.TransactionDeleted,
		OwnerID:     owner,
		AggregateID: tx.ID,
		Payload:     map[string]any{"stock_rollback": res.StockRollback},
	})
	return res, nil
}

func lineItems(txID id.ID, in []ItemInput) []LineItem {
	out := make([]LineItem, len(in))
	for i, it := range in {
		out[i] = LineItem{
			ID:            id.New(),
			TransactionID: txID,
			ProductID:     it.ProductID,
			Quantity:      it.Quantity,
			UnitPrice:     types.RoundMoney(it.UnitPrice),
		}
	}
	return out
}

func productIDs(items []ItemInput) []id.ID {
	seen := make(map[id.ID]bool, len(items))
	out := make([]id.ID, 0, len(items))
	for _, it := range items {
		if !seen[it.ProductID] {
			seen[it.ProductID] = true
			out = append(out, it.ProductID)
		}
	}
	return out
}
