package ledger

import (
	"fmt"
	"time"

	"bizledger/internal/core/id"
	"bizledger/internal/core/types"
)

// InstallmentPaid carries what the factory needs from a paid installment.
type InstallmentPaid struct {
	OwnerID       string
	LoanID        id.ID
	LenderName    string
	InstallmentID id.ID
	Sequence      int
	TermMonths    int
	PaidDate      time.Time
	Amount        types.Money
	Principal     types.Money
	Interest      types.Money
}

// InvestmentReturned carries what the factory needs from a recorded return.
type InvestmentReturned struct {
	OwnerID        string
	InvestmentID   id.ID
	InvestmentName string
	ReturnID       id.ID
	ReturnType     string
	Date           time.Time
	Amount         types.Money
}

// ProfitShared carries what the factory needs from a paid profit-sharing payment.
type ProfitShared struct {
	OwnerID      string
	FundingID    id.ID
	InvestorName string
	PaymentID    id.ID
	Period       string
	PaidDate     time.Time
	Amount       types.Money
}

// Factory builds derived entries. Every entry it returns has a fresh id and a
// back-reference to its source so cleanup can find it.
type Factory struct {
	now func() time.Time
}

// NewFactory creates a factory. now defaults to time.Now in UTC.
func NewFactory(now func() time.Time) *Factory {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Factory{now: now}
}

// ForInstallment builds the expense booked when an installment is paid.
func (f *Factory) ForInstallment(ev InstallmentPaid) Entry {
	src := ev.InstallmentID
	return Entry{
		ID:          id.New(),
		OwnerID:     ev.OwnerID,
		Kind:        KindExpense,
		Date:        ev.PaidDate,
		Category:    CategoryLoanRepayment,
		Subcategory: ev.LenderName,
		Amount:      types.RoundMoney(ev.Amount),
		Description: fmt.Sprintf("Installment %d/%d to %s (principal %s, interest %s)",
			ev.Sequence, ev.TermMonths, ev.LenderName,
			ev.Principal.StringFixed(2), ev.Interest.StringFixed(2)),
		SourceType: SourceLoanInstallment,
		SourceID:   &src,
		CreatedAt:  f.now(),
	}
}

// ForInvestmentReturn builds the income booked when a return is recorded.
func (f *Factory) ForInvestmentReturn(ev InvestmentReturned) Entry {
	src := ev.ReturnID
	return Entry{
		ID:          id.New(),
		OwnerID:     ev.OwnerID,
		Kind:        KindIncome,
		Date:        ev.Date,
		Category:    CategoryInvestmentReturn,
		Subcategory: ev.ReturnType,
		Amount:      types.RoundMoney(ev.Amount),
		Description: fmt.Sprintf("%s return from %s", ev.ReturnType, ev.InvestmentName),
		SourceType:  SourceInvestmentReturn,
		SourceID:    &src,
		CreatedAt:   f.now(),
	}
}

// ForProfitSharing builds the expense booked when a profit share is paid out.
func (f *Factory) ForProfitSharing(ev ProfitShared) Entry {
	src := ev.PaymentID
	return Entry{
		ID:          id.New(),
		OwnerID:     ev.OwnerID,
		Kind:        KindExpense,
		Date:        ev.PaidDate,
		Category:    CategoryProfitSharing,
		Subcategory: ev.InvestorName,
		Amount:      types.RoundMoney(ev.Amount),
		Description: fmt.Sprintf("Profit share for %s to %s", ev.Period, ev.InvestorName),
		SourceType:  SourceProfitSharing,
		SourceID:    &src,
		CreatedAt:   f.now(),
	}
}
