// Package domain holds what every ledger service shares: its collaborators
// and the owner/clock helpers used at the top of each operation.
package domain

import (
	"context"
	"time"

	"bizledger/internal/core/apperror"
	appctx "bizledger/internal/core/context"
	"bizledger/internal/core/schema"
	"bizledger/internal/core/store"
	"bizledger/internal/domain/aggregates"
	"bizledger/internal/domain/compensation"
	"bizledger/internal/domain/events"
	"bizledger/internal/domain/ledger"
)

// Deps are the collaborators of a domain service.
type Deps struct {
	Store        store.RowStore
	Resolver     schema.Resolver
	Coordinator  *compensation.Coordinator
	Recalculator *aggregates.Recalculator
	Ledger       *ledger.Repository
	Factory      *ledger.Factory
	Publisher    events.Publisher
	Clock        func() time.Time
}

// NewDeps wires the shared collaborators over one store and resolver.
// Publisher defaults to events.Nop and Clock to UTC wall time.
func NewDeps(s store.RowStore, r schema.Resolver, p events.Publisher, clock func() time.Time) Deps {
	if p == nil {
		p = events.Nop{}
	}
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return Deps{
		Store:        s,
		Resolver:     r,
		Coordinator:  compensation.NewCoordinator(),
		Recalculator: aggregates.NewRecalculator(s),
		Ledger:       ledger.NewRepository(s, r),
		Factory:      ledger.NewFactory(clock),
		Publisher:    p,
		Clock:        clock,
	}
}

// Now returns the current time from the configured clock.
func (d Deps) Now() time.Time {
	return d.Clock()
}

// Today returns the clock's date at midnight UTC.
func (d Deps) Today() time.Time {
	return TruncateDay(d.Clock())
}

// OwnerColumn resolves the ownership column of table.
func (d Deps) OwnerColumn(ctx context.Context, table string) string {
	return schema.OwnerColumn(ctx, d.Resolver, table)
}

// Emit publishes an event after commit. Failures are logged only.
func (d Deps) Emit(ctx context.Context, ev events.Event) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = d.Now()
	}
	events.Emit(ctx, d.Publisher, ev)
}

// RequireOwner returns the acting owner id from ctx.
func RequireOwner(ctx context.Context) (string, error) {
	owner := appctx.GetOwnerID(ctx)
	if owner == "" {
		return "", apperror.NewUnauthorized("owner identity required")
	}
	return owner, nil
}

// TruncateDay drops the time of day, keeping the calendar date in UTC.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NormalizeStoreErr maps a store error to an AppError, keeping existing ones.
func NormalizeStoreErr(err error) error {
	if err == nil {
		return nil
	}
	if apperror.IsAppError(err) {
		return err
	}
	return apperror.NewDatabase(err)
}
