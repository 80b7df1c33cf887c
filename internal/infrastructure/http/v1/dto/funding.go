package dto

import (
	"github.com/shopspring/decimal"

	"bizledger/internal/domain/funding"
)

// CreateFundingRequest is the body of POST /fundings.
type CreateFundingRequest struct {
	InvestorName       string          `json:"investor_name" binding:"required"`
	Amount             decimal.Decimal `json:"amount"`
	ProfitSharePercent decimal.Decimal `json:"profit_share_percent"`
	StartDate          Date            `json:"start_date"`
}

// ToInput converts the request to the service input.
func (r CreateFundingRequest) ToInput() funding.CreateInput {
	return funding.CreateInput{
		InvestorName:       r.InvestorName,
		Amount:             r.Amount,
		ProfitSharePercent: r.ProfitSharePercent,
		StartDate:          r.StartDate.Time,
	}
}

// RecordPaymentRequest is the body of POST /fundings/:id/payments.
type RecordPaymentRequest struct {
	Period   string          `json:"period" binding:"required"`
	Revenue  decimal.Decimal `json:"revenue"`
	Expenses decimal.Decimal `json:"expenses"`
	DueDate  Date            `json:"due_date"`
	Status   string          `json:"status"`
	PaidDate Date            `json:"paid_date"`
}

// MarkPaidRequest is the body of POST /profit-payments/:id/pay.
type MarkPaidRequest struct {
	PaidDate Date `json:"paid_date"`
}

// FundingResponse is a funding with its payments.
type FundingResponse struct {
	funding.Funding
	Payments []funding.Payment `json:"payments"`
}
