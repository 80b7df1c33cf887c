// Package ledger models income and expense entries, including the ones
// derived automatically from loan, investment and funding events.
package ledger

import (
	"time"

	"bizledger/internal/core/id"
	"bizledger/internal/core/schema"
	"bizledger/internal/core/types"
)

// Kind selects the table an entry lives in.
type Kind string

const (
	KindExpense Kind = "expense"
	KindIncome  Kind = "income"
)

// Table returns the table holding entries of this kind.
func (k Kind) Table() string {
	if k == KindIncome {
		return schema.Incomes
	}
	return schema.Expenses
}

// SourceType names the record a derived entry was created for.
type SourceType string

const (
	SourceManual           SourceType = ""
	SourceLoanInstallment  SourceType = "loan_installment"
	SourceInvestmentReturn SourceType = "investment_return"
	SourceProfitSharing    SourceType = "profit_sharing_payment"
)

// Categories used by derived entries.
const (
	CategoryLoanRepayment    = "Loan Repayment"
	CategoryInvestmentReturn = "Investment Return"
	CategoryProfitSharing    = "Profit Sharing"
)

// Entry is one income or expense record.
type Entry struct {
	ID          id.ID       `db:"id" json:"id"`
	OwnerID     string      `db:"-" json:"owner_id"`
	Kind        Kind        `db:"-" json:"kind"`
	Date        time.Time   `db:"entry_date" json:"entry_date"`
	Category    string      `db:"category" json:"category"`
	Subcategory string      `db:"subcategory" json:"subcategory,omitempty"`
	Amount      types.Money `db:"amount" json:"amount"`
	Description string      `db:"description" json:"description"`
	SourceType  SourceType  `db:"source_type" json:"source_type,omitempty"`
	SourceID    *id.ID      `db:"source_id" json:"source_id,omitempty"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
}

// Derived reports whether the entry was generated from another record.
func (e Entry) Derived() bool {
	return e.SourceType != SourceManual && e.SourceID != nil
}
