package dto

import (
	"github.com/shopspring/decimal"

	"bizledger/internal/domain/investments"
)

// CreateInvestmentRequest is the body of POST /investments.
type CreateInvestmentRequest struct {
	Name           string          `json:"name" binding:"required"`
	AmountInvested decimal.Decimal `json:"amount_invested"`
	StartDate      Date            `json:"start_date"`
}

// ToInput converts the request to the service input.
func (r CreateInvestmentRequest) ToInput() investments.CreateInput {
	return investments.CreateInput{
		Name:           r.Name,
		AmountInvested: r.AmountInvested,
		StartDate:      r.StartDate.Time,
	}
}

// RecordReturnRequest is the body of POST /investments/:id/returns.
type RecordReturnRequest struct {
	ReturnDate Date            `json:"return_date"`
	Amount     decimal.Decimal `json:"amount"`
	ReturnType string          `json:"return_type"`
}

// InvestmentResponse is an investment with its returns.
type InvestmentResponse struct {
	investments.Investment
	Returns []investments.Return `json:"returns"`
}
