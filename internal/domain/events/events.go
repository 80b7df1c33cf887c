// Package events describes the notifications emitted after an operation commits.
package events

import (
	"context"
	"sync"
	"time"

	"bizledger/internal/core/id"
	"bizledger/pkg/logger"
)

// Event types.
const (
	LoanCreated              = "loan.created"
	LoanDeleted              = "loan.deleted"
	LoanDefaulted            = "loan.defaulted"
	InstallmentPaid          = "loan.installment_paid"
	InvestmentCreated        = "investment.created"
	InvestmentReturnRecorded = "investment.return_recorded"
	InvestmentReturnDeleted  = "investment.return_deleted"
	FundingCreated           = "funding.created"
	ProfitSharingRecorded    = "funding.profit_sharing_recorded"
	ProfitSharingPaid        = "funding.profit_sharing_paid"
	TransactionCreated       = "transaction.created"
	TransactionUpdated       = "transaction.updated"
	TransactionDeleted       = "transaction.deleted"
)

// Event is one committed change.
type Event struct {
	Type        string    `json:"type"`
	OwnerID     string    `json:"owner_id"`
	AggregateID id.ID     `json:"aggregate_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Payload     any       `json:"payload,omitempty"`
}

// Publisher delivers events to downstream consumers. Publish runs on the
// request path and must not wait on remote delivery.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Nop discards every event.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, Event) error { return nil }

// Emit publishes ev and only logs a failure. The operation that produced the
// event has already committed and must not be reported as failed.
func Emit(ctx context.Context, p Publisher, ev Event) {
	if p == nil {
		return
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	if err := p.Publish(context.WithoutCancel(ctx), ev); err != nil {
		logger.Warn(ctx, "event publish failed", "type", ev.Type, "aggregate_id", ev.AggregateID, "error", err)
	}
}

// Recorder keeps published events in memory. Used by tests and local runs.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Publish implements Publisher.
func (r *Recorder) Publish(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of what was published.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types returns the type of each published event in order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}
