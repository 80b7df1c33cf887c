// Package stock keeps product stock counts in step with the transactions
// that move goods.
package stock

import (
	"bizledger/internal/core/apperror"
	"bizledger/internal/core/id"
)

// Direction is the sign a line item's quantity takes when applied.
type Direction int

const (
	// Outbound goods leave stock (sales).
	Outbound Direction = -1
	// Inbound goods enter stock (purchases).
	Inbound Direction = 1
)

// Inverse returns the opposite direction.
func (d Direction) Inverse() Direction {
	return -d
}

// Reason explains why stock moved. Logged with every applied movement.
type Reason string

const (
	ReasonSale              Reason = "sale"
	ReasonPurchase          Reason = "purchase"
	ReasonTransactionEdit   Reason = "transaction_edit"
	ReasonTransactionDelete Reason = "transaction_delete"
)

// Movement is an intent to change one product's stock. It is never stored.
type Movement struct {
	ProductID id.ID
	Delta     int64
	Reason    Reason
}

// LineItem is the part of a transaction line the reconciler needs.
type LineItem struct {
	ProductID id.ID
	Quantity  int64
}

// Level is a product's stock after a movement.
type Level struct {
	ProductID id.ID `json:"product_id"`
	Before    int64 `json:"before"`
	After     int64 `json:"after"`
	Clamped   bool  `json:"clamped,omitempty"`
}

// Result collects what a batch of movements did. Failures never abort the
// batch; each becomes a PARTIAL_SIDE_EFFECT warning.
type Result struct {
	Levels   []Level
	Warnings []*apperror.AppError
}

// Complete reports whether every movement was applied.
func (r Result) Complete() bool {
	return len(r.Warnings) == 0
}

// Merge appends other's levels and warnings.
func (r *Result) Merge(other Result) {
	r.Levels = append(r.Levels, other.Levels...)
	r.Warnings = append(r.Warnings, other.Warnings...)
}

// Movements turns line items into per-product movements in direction dir.
// Quantities for the same product are summed and net-zero products dropped.
func Movements(dir Direction, items []LineItem, reason Reason) []Movement {
	order := make([]id.ID, 0, len(items))
	sums := make(map[id.ID]int64, len(items))
	for _, it := range items {
		if _, seen := sums[it.ProductID]; !seen {
			order = append(order, it.ProductID)
		}
		sums[it.ProductID] += it.Quantity * int64(dir)
	}

	out := make([]Movement, 0, len(order))
	for _, pid := range order {
		if sums[pid] == 0 {
			continue
		}
		out = append(out, Movement{ProductID: pid, Delta: sums[pid], Reason: reason})
	}
	return out
}

// Diff returns the movements that take stock from the effect of before to the
// effect of after, both in direction dir.
func Diff(dir Direction, before, after []LineItem, reason Reason) []Movement {
	combined := make([]LineItem, 0, len(before)+len(after))
	for _, it := range before {
		combined = append(combined, LineItem{ProductID: it.ProductID, Quantity: -it.Quantity})
	}
	combined = append(combined, after...)
	return Movements(dir, combined, reason)
}
