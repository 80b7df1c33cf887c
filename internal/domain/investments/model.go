// Package investments tracks money placed in investments and the returns it earns.
package investments

import (
	"strings"
	"time"

	"bizledger/internal/core/apperror"
	"bizledger/internal/core/id"
	"bizledger/internal/core/types"
	"bizledger/internal/domain/ledger"
)

// ReturnType classifies a return.
type ReturnType string

const (
	ReturnDividend    ReturnType = "dividend"
	ReturnInterest    ReturnType = "interest"
	ReturnCapitalGain ReturnType = "capital_gain"
	ReturnOther       ReturnType = "other"
)

// Valid reports whether t is a known return type.
func (t ReturnType) Valid() bool {
	switch t {
	case ReturnDividend, ReturnInterest, ReturnCapitalGain, ReturnOther:
		return true
	}
	return false
}

// Investment is money placed somewhere expecting returns.
type Investment struct {
	ID             id.ID       `db:"id" json:"id"`
	OwnerID        string      `db:"-" json:"owner_id"`
	Name           string      `db:"name" json:"name"`
	AmountInvested types.Money `db:"amount_invested" json:"amount_invested"`
	StartDate      time.Time   `db:"start_date" json:"start_date"`
	CurrentValue   types.Money `db:"current_value" json:"current_value"`
	TotalReturns   types.Money `db:"total_returns" json:"total_returns"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at" json:"updated_at"`
}

// Return is one payout of an investment.
type Return struct {
	ID            id.ID       `db:"id" json:"id"`
	InvestmentID  id.ID       `db:"investment_id" json:"investment_id"`
	ReturnDate    time.Time   `db:"return_date" json:"return_date"`
	Amount        types.Money `db:"amount" json:"amount"`
	ReturnType    ReturnType  `db:"return_type" json:"return_type"`
	LedgerEntryID *id.ID      `db:"ledger_entry_id" json:"ledger_entry_id,omitempty"`
	CreatedAt     time.Time   `db:"created_at" json:"created_at"`
}

// CreateInput is the input of CreateInvestment.
type CreateInput struct {
	Name           string
	AmountInvested types.Money
	StartDate      time.Time // defaults to today
}

// Validate checks the input.
func (in CreateInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return apperror.NewValidation("investment name is required").WithDetail("field", "name")
	}
	if !in.AmountInvested.IsPositive() {
		return apperror.NewValidation("amount invested must be positive").WithDetail("field", "amount_invested")
	}
	return nil
}

// ReturnInput is the input of RecordReturn.
type ReturnInput struct {
	InvestmentID id.ID
	Date         time.Time // defaults to today
	Amount       types.Money
	Type         ReturnType // defaults to other
}

// Validate checks the input.
func (in ReturnInput) Validate() error {
	if !in.Amount.IsPositive() {
		return apperror.NewValidation("return amount must be positive").WithDetail("field", "amount")
	}
	if in.Type != "" && !in.Type.Valid() {
		return apperror.NewValidation("unknown return type").
			WithDetail("field", "return_type").
			WithDetail("value", string(in.Type))
	}
	return nil
}

// ReturnResult is returned by RecordReturn.
type ReturnResult struct {
	Return     Return       `json:"return"`
	Entry      ledger.Entry `json:"ledger_entry"`
	Investment Investment   `json:"investment"`
}
