package stock

import (
	"context"
	"errors"
	"fmt"

	"bizledger/internal/core/apperror"
	"bizledger/internal/core/id"
	"bizledger/internal/core/schema"
	"bizledger/internal/core/store"
	"bizledger/pkg/logger"
)

// Reconciler applies stock movements to the products table. The stock column
// name differs between deployments; writes go to the resolved column first
// and are mirrored to the other known name on a best-effort basis.
type Reconciler struct {
	store    store.RowStore
	resolver schema.Resolver
}

// NewReconciler creates a reconciler.
func NewReconciler(s store.RowStore, r schema.Resolver) *Reconciler {
	return &Reconciler{store: s, resolver: r}
}

// Apply moves one product's stock by m.Delta, never below zero.
// A failure is returned as a PARTIAL_SIDE_EFFECT warning, not an error.
func (r *Reconciler) Apply(ctx context.Context, m Movement) (Level, *apperror.AppError) {
	lvl := Level{ProductID: m.ProductID}
	step := fmt.Sprintf("stock %s for product %s", m.Reason, m.ProductID)

	col := schema.StockColumn(ctx, r.resolver)
	row, err := store.SelectOne(ctx, r.store, store.Query{
		Table:   schema.Products,
		Columns: []string{"id", col},
		Where:   store.Eq{"id": m.ProductID},
	})
	if err != nil {
		if errors.Is(err, store.ErrNoRows) {
			err = apperror.NewNotFound("product", m.ProductID)
		}
		return lvl, r.warn(ctx, step, m, err)
	}

	rd := store.Read(row)
	lvl.Before = rd.Int(col)
	if err := rd.Err(); err != nil {
		return lvl, r.warn(ctx, step, m, err)
	}

	lvl.After = lvl.Before + m.Delta
	if lvl.After < 0 {
		lvl.After = 0
		lvl.Clamped = true
		logger.Warn(ctx, "stock clamped at zero",
			"product_id", m.ProductID, "before", lvl.Before, "delta", m.Delta, "reason", m.Reason)
	}

	if _, err := r.store.Update(ctx, schema.Products, store.Row{col: lvl.After}, store.Eq{"id": m.ProductID}); err != nil {
		return lvl, r.warn(ctx, step, m, err)
	}

	for _, alt := range schema.Alternates(col, schema.StockColumns) {
		if _, err := r.store.Update(ctx, schema.Products, store.Row{alt: lvl.After}, store.Eq{"id": m.ProductID}); err != nil {
			logger.Debug(ctx, "stock mirror skipped", "column", alt, "product_id", m.ProductID, "error", err)
		}
	}

	logger.Debug(ctx, "stock applied",
		"product_id", m.ProductID, "column", col, "before", lvl.Before, "after", lvl.After, "reason", m.Reason)
	return lvl, nil
}

// ApplyAll applies each movement and gathers the outcome.
func (r *Reconciler) ApplyAll(ctx context.Context, movements []Movement) Result {
	var res Result
	for _, m := range movements {
		lvl, warn := r.Apply(ctx, m)
		if warn != nil {
			res.Warnings = append(res.Warnings, warn)
			continue
		}
		res.Levels = append(res.Levels, lvl)
	}
	return res
}

// ApplyLineItems applies a transaction's line items in direction dir.
func (r *Reconciler) ApplyLineItems(ctx context.Context, dir Direction, items []LineItem, reason Reason) Result {
	return r.ApplyAll(ctx, Movements(dir, items, reason))
}

// RollbackFromLineItems reverses the stock effect of items that were applied
// in direction dir. Quantities are summed per product first.
func (r *Reconciler) RollbackFromLineItems(ctx context.Context, dir Direction, items []LineItem, reason Reason) Result {
	return r.ApplyAll(ctx, Movements(dir.Inverse(), items, reason))
}

// Quantity returns a product's current stock.
func (r *Reconciler) Quantity(ctx context.Context, productID id.ID) (int64, error) {
	col := schema.StockColumn(ctx, r.resolver)
	row, err := store.SelectOne(ctx, r.store, store.Query{
		Table:   schema.Products,
		Columns: []string{col},
		Where:   store.Eq{"id": productID},
	})
	if errors.Is(err, store.ErrNoRows) {
		return 0, apperror.NewNotFound("product", productID)
	}
	if err != nil {
		return 0, apperror.NewDatabase(err)
	}
	rd := store.Read(row)
	qty := rd.Int(col)
	if err := rd.Err(); err != nil {
		return 0, apperror.NewInternal(err)
	}
	return qty, nil
}

// TotalUnits sums stock over every product owned by ownerID.
func (r *Reconciler) TotalUnits(ctx context.Context, ownerID string) (int64, error) {
	col := schema.StockColumn(ctx, r.resolver)
	ownerCol := schema.OwnerColumn(ctx, r.resolver, schema.Products)
	rows, err := r.store.Select(ctx, store.Query{
		Table:   schema.Products,
		Columns: []string{col},
		Where:   store.Eq{ownerCol: ownerID},
	})
	if err != nil {
		return 0, apperror.NewDatabase(err)
	}

	var total int64
	for _, row := range rows {
		rd := store.Read(row)
		total += rd.Int(col)
		if err := rd.Err(); err != nil {
			return 0, apperror.NewInternal(err)
		}
	}
	return total, nil
}

func (r *Reconciler) warn(ctx context.Context, step string, m Movement, err error) *apperror.AppError {
	logger.Warn(ctx, "stock movement failed",
		"product_id", m.ProductID, "delta", m.Delta, "reason", m.Reason, "error", err)
	return apperror.NewPartialSideEffect(step, err).
		WithDetail("product_id", m.ProductID).
		WithDetail("delta", m.Delta).
		WithDetail("reason", m.Reason)
}
