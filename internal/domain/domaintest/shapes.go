package domaintest

import "bizledger/internal/core/schema"

// columns of each table, without the ownership column.
var columns = map[string][]string{
	schema.Loans: {"id", "lender_name", "lender_contact", "principal", "annual_rate", "term_months",
		"disbursement_date", "first_payment_date", "status", "total_paid", "remaining_balance",
		"notes", "created_at", "updated_at"},
	schema.LoanInstallments: {"id", "loan_id", "sequence_number", "due_date", "principal_component",
		"interest_component", "total_due", "status", "paid_date", "paid_amount", "ledger_entry_id"},
	schema.Expenses: ledgerColumns,
	schema.Incomes:  ledgerColumns,
	schema.Investments: {"id", "name", "amount_invested", "start_date", "current_value",
		"total_returns", "created_at", "updated_at"},
	schema.InvestmentReturns: {"id", "investment_id", "return_date", "amount", "return_type",
		"ledger_entry_id", "created_at"},
	schema.InvestorFundings: {"id", "investor_name", "amount", "profit_share_percent", "start_date",
		"total_profit_shared", "created_at", "updated_at"},
	schema.ProfitSharingPayments: {"id", "funding_id", "period", "revenue", "expenses", "net_profit",
		"share_amount", "due_date", "status", "paid_date", "ledger_entry_id", "created_at"},
	schema.Products:         {"id", "name", "stock_quantity"},
	schema.Transactions:     {"id", "kind", "transaction_date", "total", "notes", "created_at", "updated_at"},
	schema.TransactionItems: {"id", "transaction_id", "product_id", "quantity", "unit_price"},
}

var ledgerColumns = []string{"id", "entry_date", "category", "subcategory", "amount",
	"description", "source_type", "source_id", "created_at"}

var owned = map[string]bool{}

func init() {
	for _, t := range schema.OwnedTables() {
		owned[t] = true
	}
}

func columnsFor(table, ownerCol string) []string {
	cols := append([]string(nil), columns[table]...)
	if owned[table] {
		cols = append(cols, ownerCol)
	}
	return cols
}

// AllTables lists every table the ledger writes.
func AllTables() []string {
	return []string{
		schema.Loans, schema.LoanInstallments, schema.Expenses, schema.Incomes,
		schema.Investments, schema.InvestmentReturns, schema.InvestorFundings,
		schema.ProfitSharingPayments, schema.Products, schema.Transactions, schema.TransactionItems,
	}
}
