// Package reports builds read-only views over the ledger.
package reports

import (
	"time"

	"bizledger/internal/core/types"
)

// --- Dashboard Summary ---

// Summary is the dashboard's headline figures for one owner.
type Summary struct {
	GeneratedAt time.Time `json:"generated_at"`

	// Ledger
	TotalIncome  types.Money `json:"total_income"`
	TotalExpense types.Money `json:"total_expense"`
	NetIncome    types.Money `json:"net_income"`

	// Loans
	ActiveLoans            int         `json:"active_loans"`
	OutstandingLoanBalance types.Money `json:"outstanding_loan_balance"`

	// Investments and funding
	InvestmentValue   types.Money `json:"investment_value"`
	TotalProfitShared types.Money `json:"total_profit_shared"`

	// Inventory
	InventoryUnits int64 `json:"inventory_units"`
}

// LoanExposure sums the loans still being repaid.
type LoanExposure struct {
	Active      int
	Outstanding types.Money
}
