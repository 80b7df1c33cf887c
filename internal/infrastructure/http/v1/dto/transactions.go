package dto

import (
	"github.com/shopspring/decimal"

	"bizledger/internal/core/id"
	"bizledger/internal/domain/transactions"
)

// LineItemRequest is one product line.
type LineItemRequest struct {
	ProductID id.ID           `json:"product_id"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// CreateTransactionRequest is the body of POST /transactions.
type CreateTransactionRequest struct {
	Kind            string            `json:"kind" binding:"required"`
	TransactionDate Date              `json:"transaction_date"`
	Notes           string            `json:"notes"`
	Items           []LineItemRequest `json:"items"`
}

// ToInput converts the request to the service input.
func (r CreateTransactionRequest) ToInput() transactions.CreateInput {
	return transactions.CreateInput{
		Kind:  transactions.Kind(r.Kind),
		Date:  r.TransactionDate.Time,
		Notes: r.Notes,
		Items: ItemInputs(r.Items),
	}
}

// UpdateItemsRequest is the body of PUT /transactions/:id/items.
type UpdateItemsRequest struct {
	Items []LineItemRequest `json:"items"`
}

// ItemInputs converts request lines to service inputs.
func ItemInputs(items []LineItemRequest) []transactions.ItemInput {
	out := make([]transactions.ItemInput, len(items))
	for i, it := range items {
		out[i] = transactions.ItemInput{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		}
	}
	return out
}
