package dto

import (
	"github.com/shopspring/decimal"

	"bizledger/internal/domain/loans"
)

// CreateLoanRequest is the body of POST /loans.
type CreateLoanRequest struct {
	LenderName       string          `json:"lender_name" binding:"required"`
	LenderContact    string          `json:"lender_contact"`
	Principal        decimal.Decimal `json:"principal"`
	AnnualRate       decimal.Decimal `json:"annual_rate"`
	TermMonths       int             `json:"term_months" binding:"required"`
	DisbursementDate Date            `json:"disbursement_date"`
	FirstPaymentDate Date            `json:"first_payment_date"`
	Notes            string          `json:"notes"`
}

// ToInput converts the request to the service input.
func (r CreateLoanRequest) ToInput() loans.CreateInput {
	return loans.CreateInput{
		Principal:        r.Principal,
		AnnualRate:       r.AnnualRate,
		TermMonths:       r.TermMonths,
		DisbursementDate: r.DisbursementDate.Time,
		FirstPaymentDate: r.FirstPaymentDate.Time,
		Lender: loans.LenderInfo{
			Name:    r.LenderName,
			Contact: r.LenderContact,
			Notes:   r.Notes,
		},
	}
}

// PayInstallmentRequest is the body of POST /installments/:id/pay.
// Both fields are optional.
type PayInstallmentRequest struct {
	PaidDate   Date             `json:"paid_date"`
	PaidAmount *decimal.Decimal `json:"paid_amount"`
}
