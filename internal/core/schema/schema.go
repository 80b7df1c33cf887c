// Package schema names the tables the ledger writes and the columns whose
// names differ between deployments.
package schema

import "context"

// Tables.
const (
	Loans                 = "loans"
	LoanInstallments      = "loan_installments"
	Expenses              = "expenses"
	Incomes               = "incomes"
	Investments           = "investments"
	InvestmentReturns     = "investment_returns"
	InvestorFundings      = "investor_fundings"
	ProfitSharingPayments = "profit_sharing_payments"
	Products              = "products"
	Transactions          = "transactions"
	TransactionItems      = "transaction_items"
)

// OwnerColumns are the known names of the ownership column, preferred first.
var OwnerColumns = []string{"owner_id", "user_id"}

// StockColumns are the known names of the product stock count, preferred first.
var StockColumns = []string{"stock_quantity", "stock"}

// OwnedTables lists every table scoped by an ownership column.
func OwnedTables() []string {
	return []string{Loans, Expenses, Incomes, Investments, InvestorFundings, Products, Transactions}
}

// Resolver maps a logical field to the physical column a deployment uses.
// Resolve never fails; when nothing matches it returns the first candidate.
type Resolver interface {
	Resolve(ctx context.Context, table string, candidates ...string) string
}

// OwnerColumn resolves the ownership column of table.
func OwnerColumn(ctx context.Context, r Resolver, table string) string {
	return r.Resolve(ctx, table, OwnerColumns...)
}

// StockColumn resolves the stock count column of the products table.
func StockColumn(ctx context.Context, r Resolver) string {
	return r.Resolve(ctx, Products, StockColumns...)
}

// Alternates returns candidates other than resolved, in order.
func Alternates(resolved string, candidates []string) []string {
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c != resolved {
			out = append(out, c)
		}
	}
	return out
}
