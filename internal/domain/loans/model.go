// Package loans manages loans and their amortized installments.
package loans

import (
	"strings"
	"time"

	"bizledger/internal/core/apperror"
	"bizledger/internal/core/id"
	"bizledger/internal/core/types"
	"bizledger/internal/domain/aggregates"
	"bizledger/internal/domain/ledger"
)

// Status of a loan.
type Status string

const (
	StatusActive    Status = aggregates.LoanActive
	StatusPaidOff   Status = aggregates.LoanPaidOff
	StatusDefaulted Status = aggregates.LoanDefaulted
)

// InstallmentStatus of one installment.
type InstallmentStatus string

const (
	InstallmentPending InstallmentStatus = "pending"
	InstallmentPaid    InstallmentStatus = aggregates.PaymentPaid
)

// Loan is a borrowed principal repaid in level installments.
type Loan struct {
	ID               id.ID       `db:"id" json:"id"`
	OwnerID          string      `db:"-" json:"owner_id"`
	LenderName       string      `db:"lender_name" json:"lender_name"`
	LenderContact    string      `db:"lender_contact" json:"lender_contact,omitempty"`
	Principal        types.Money `db:"principal" json:"principal"`
	AnnualRate       types.Money `db:"annual_rate" json:"annual_rate"`
	TermMonths       int         `db:"term_months" json:"term_months"`
	DisbursementDate time.Time   `db:"disbursement_date" json:"disbursement_date"`
	FirstPaymentDate time.Time   `db:"first_payment_date" json:"first_payment_date"`
	Status           Status      `db:"status" json:"status"`
	TotalPaid        types.Money `db:"total_paid" json:"total_paid"`
	RemainingBalance types.Money `db:"remaining_balance" json:"remaining_balance"`
	Notes            string      `db:"notes" json:"notes,omitempty"`
	CreatedAt        time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time   `db:"updated_at" json:"updated_at"`

	Installments []Installment `db:"-" json:"installments,omitempty"`
}

// Installment is one scheduled repayment.
type Installment struct {
	ID                 id.ID             `db:"id" json:"id"`
	LoanID             id.ID             `db:"loan_id" json:"loan_id"`
	Sequence           int               `db:"sequence_number" json:"sequence_number"`
	DueDate            time.Time         `db:"due_date" json:"due_date"`
	PrincipalComponent types.Money       `db:"principal_component" json:"principal_component"`
	InterestComponent  types.Money       `db:"interest_component" json:"interest_component"`
	TotalDue           types.Money       `db:"total_due" json:"total_due"`
	Status             InstallmentStatus `db:"status" json:"status"`
	PaidDate           *time.Time        `db:"paid_date" json:"paid_date,omitempty"`
	PaidAmount         *types.Money      `db:"paid_amount" json:"paid_amount,omitempty"`
	LedgerEntryID      *id.ID            `db:"ledger_entry_id" json:"ledger_entry_id,omitempty"`
}

// IsPaid reports whether the installment has been paid.
func (i Installment) IsPaid() bool {
	return i.Status == InstallmentPaid
}

// LenderInfo describes who lent the money.
type LenderInfo struct {
	Name    string
	Contact string
	Notes   string
}

// CreateInput is the input of CreateLoan.
type CreateInput struct {
	Principal        types.Money
	AnnualRate       types.Money
	TermMonths       int
	DisbursementDate time.Time // defaults to today
	FirstPaymentDate time.Time
	Lender           LenderInfo
}

// Validate checks the fields the schedule does not cover.
func (in CreateInput) Validate() error {
	if strings.TrimSpace(in.Lender.Name) == "" {
		return apperror.NewValidation("lender name is required").WithDetail("field", "lender_name")
	}
	if !in.DisbursementDate.IsZero() && !in.FirstPaymentDate.IsZero() &&
		in.FirstPaymentDate.Before(in.DisbursementDate) {
		return apperror.NewValidation("first payment date cannot precede disbursement").
			WithDetail("field", "first_payment_date")
	}
	return nil
}

// PayInput is the input of PayInstallment.
type PayInput struct {
	InstallmentID id.ID
	PaidDate      time.Time    // defaults to today
	PaidAmount    *types.Money // nil means the installment's total due
}

// PaymentResult is returned by PayInstallment.
type PaymentResult struct {
	Installment Installment  `json:"installment"`
	Entry       ledger.Entry `json:"ledger_entry"`
	LoanStatus  Status       `json:"loan_status"`
	Loan        Loan         `json:"loan"`
}
