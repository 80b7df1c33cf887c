// Package transactions records sales and purchases and keeps product stock in
// step with their line items.
package transactions

import (
	"time"

	"github.com/shopspring/decimal"

	"bizledger/internal/core/apperror"
	"bizledger/internal/core/id"
	"bizledger/internal/core/types"
	"bizledger/internal/domain/registers/stock"
)

// Kind of transaction.
type Kind string

const (
	KindSale     Kind = "sale"
	KindPurchase Kind = "purchase"
)

// Direction returns how the kind moves stock.
func (k Kind) Direction() stock.Direction {
	if k == KindPurchase {
		return stock.Inbound
	}
	return stock.Outbound
}

// Reason returns the stock movement reason for a new transaction of this kind.
func (k Kind) Reason() stock.Reason {
	if k == KindPurchase {
		return stock.ReasonPurchase
	}
	return stock.ReasonSale
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindSale || k == KindPurchase
}

// Stock rollback outcomes reported by DeleteTransaction.
const (
	StockComplete = "complete"
	StockPartial  = "partial"
)

// Transaction is a sale or purchase of products.
type Transaction struct {
	ID              id.ID       `db:"id" json:"id"`
	OwnerID         string      `db:"-" json:"owner_id"`
	Kind            Kind        `db:"kind" json:"kind"`
	TransactionDate time.Time   `db:"transaction_date" json:"transaction_date"`
	Total           types.Money `db:"total" json:"total"`
	Notes           string      `db:"notes" json:"notes,omitempty"`
	CreatedAt       time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at" json:"updated_at"`

	Items []LineItem `db:"-" json:"items,omitempty"`
}

// LineItem is one product line of a transaction.
type LineItem struct {
	ID            id.ID       `db:"id" json:"id"`
	TransactionID id.ID       `db:"transaction_id" json:"transaction_id"`
	ProductID     id.ID       `db:"product_id" json:"product_id"`
	Quantity      int64       `db:"quantity" json:"quantity"`
	UnitPrice     types.Money `db:"unit_price" json:"unit_price"`
}

// ItemInput is a requested line.
type ItemInput struct {
	ProductID id.ID
	Quantity  int64
	UnitPrice types.Money
}

// CreateInput is the input of CreateTransaction.
type CreateInput struct {
	Kind  Kind
	Date  time.Time // defaults to today
	Notes string
	Items []ItemInput
}

// Validate checks the input.
func (in CreateInput) Validate() error {
	if !in.Kind.Valid() {
		return apperror.NewValidation("transaction kind must be sale or purchase").
			WithDetail("field", "kind").
			WithDetail("value", string(in.Kind))
	}
	return validateItems(in.Items)
}

func validateItems(items []ItemInput) error {
	if len(items) == 0 {
		return apperror.NewValidation("at least one line item is required").WithDetail("field", "items")
	}
	for i, it := range items {
		if id.IsNil(it.ProductID) {
			return apperror.NewValidation("product is required").WithDetail("field", "items").WithDetail("index", i)
		}
		if it.Quantity <= 0 {
			return apperror.NewValidation("quantity must be positive").WithDetail("field", "items").WithDetail("index", i)
		}
		if it.UnitPrice.IsNegative() {
			return apperror.NewValidation("unit price cannot be negative").WithDetail("field", "items").WithDetail("index", i)
		}
	}
	return nil
}

// Result is returned by CreateTransaction and UpdateItems. Warnings lists
// stock movements that could not be applied.
type Result struct {
	Transaction Transaction          `json:"transaction"`
	Stock       []stock.Level        `json:"stock,omitempty"`
	Warnings    []*apperror.AppError `json:"warnings,omitempty"`
}

// DeleteResult is returned by DeleteTransaction.
type DeleteResult struct {
	Deleted       bool                 `json:"deleted"`
	StockRollback string               `json:"stock_rollback"`
	Warnings      []*apperror.AppError `json:"warnings,omitempty"`
}

func stockItems(items []LineItem) []stock.LineItem {
	out := make([]stock.LineItem, len(items))
	for i, it := range items {
		out[i] = stock.LineItem{ProductID: it.ProductID, Quantity: it.Quantity}
	}
	return out
}

func total(items []LineItem) types.Money {
	sum := types.Zero()
	for _, it := range items {
		sum = sum.Add(it.UnitPrice.Mul(decimal.NewFromInt(it.Quantity)))
	}
	return types.RoundMoney(sum)
}
