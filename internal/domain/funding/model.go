// Package funding manages investor funding and the profit shares paid against it.
package funding

import (
	"strings"
	"time"

	"bizledger/internal/core/apperror"
	"bizledger/internal/core/id"
	"bizledger/internal/core/types"
	"bizledger/internal/domain/aggregates"
	"bizledger/internal/domain/ledger"
)

// PaymentStatus of a profit-sharing payment.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = aggregates.PaymentPaid
)

// Funding is capital provided by an investor in exchange for a profit share.
type Funding struct {
	ID                 id.ID       `db:"id" json:"id"`
	OwnerID            string      `db:"-" json:"owner_id"`
	InvestorName       string      `db:"investor_name" json:"investor_name"`
	Amount             types.Money `db:"amount" json:"amount"`
	ProfitSharePercent types.Money `db:"profit_share_percent" json:"profit_share_percent"`
	StartDate          time.Time   `db:"start_date" json:"start_date"`
	TotalProfitShared  types.Money `db:"total_profit_shared" json:"total_profit_shared"`
	CreatedAt          time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time   `db:"updated_at" json:"updated_at"`
}

// Payment is the profit share owed for one period.
type Payment struct {
	ID            id.ID         `db:"id" json:"id"`
	FundingID     id.ID         `db:"funding_id" json:"funding_id"`
	Period        string        `db:"period" json:"period"`
	Revenue       types.Money   `db:"revenue" json:"revenue"`
	Expenses      types.Money   `db:"expenses" json:"expenses"`
	NetProfit     types.Money   `db:"net_profit" json:"net_profit"`
	ShareAmount   types.Money   `db:"share_amount" json:"share_amount"`
	DueDate       time.Time     `db:"due_date" json:"due_date"`
	Status        PaymentStatus `db:"status" json:"status"`
	PaidDate      *time.Time    `db:"paid_date" json:"paid_date,omitempty"`
	LedgerEntryID *id.ID        `db:"ledger_entry_id" json:"ledger_entry_id,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
}

// CreateInput is the input of CreateFunding.
type CreateInput struct {
	InvestorName       string
	Amount             types.Money
	ProfitSharePercent types.Money
	StartDate          time.Time // defaults to today
}

// Validate checks the input.
func (in CreateInput) Validate() error {
	if strings.TrimSpace(in.InvestorName) == "" {
		return apperror.NewValidation("investor name is required").WithDetail("field", "investor_name")
	}
	if !in.Amount.IsPositive() {
		return apperror.NewValidation("funding amount must be positive").WithDetail("field", "amount")
	}
	if !in.ProfitSharePercent.IsPositive() || in.ProfitSharePercent.GreaterThan(types.MustMoney("100")) {
		return apperror.NewValidation("profit share percent must be above 0 and at most 100").
			WithDetail("field", "profit_share_percent")
	}
	return nil
}

// PaymentInput is the input of RecordPayment.
type PaymentInput struct {
	FundingID id.ID
	Period    string
	Revenue   types.Money
	Expenses  types.Money
	DueDate   time.Time     // defaults to today
	Status    PaymentStatus // defaults to pending
	PaidDate  time.Time     // used when Status is paid, defaults to today
}

// Validate checks the input.
func (in PaymentInput) Validate() error {
	if strings.TrimSpace(in.Period) == "" {
		return apperror.NewValidation("period is required").WithDetail("field", "period")
	}
	if in.Revenue.IsNegative() {
		return apperror.NewValidation("revenue cannot be negative").WithDetail("field", "revenue")
	}
	if in.Expenses.IsNegative() {
		return apperror.NewValidation("expenses cannot be negative").WithDetail("field", "expenses")
	}
	switch in.Status {
	case "", PaymentPending, PaymentPaid:
	default:
		return apperror.NewValidation("unknown payment status").
			WithDetail("field", "status").
			WithDetail("value", string(in.Status))
	}
	return nil
}

// PaymentResult is returned by RecordPayment and MarkPaid.
// Entry is nil while the payment is pending.
type PaymentResult struct {
	Payment Payment       `json:"payment"`
	Entry   *ledger.Entry `json:"ledger_entry,omitempty"`
	Funding Funding       `json:"funding"`
}

// ShareOf returns the investor's share of net profit, rounded to cents.
func ShareOf(netProfit, percent types.Money) types.Money {
	return types.RoundMoney(netProfit.Mul(percent).Div(types.MustMoney("100")))
}
