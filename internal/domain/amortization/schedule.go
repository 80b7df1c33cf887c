// Package amortization computes level-payment loan schedules.
package amortization

import (
	"time"

	"github.com/shopspring/decimal"

	"bizledger/internal/core/apperror"
	"bizledger/internal/core/types"
)

// MaxTermMonths bounds the schedule length.
const MaxTermMonths = 600

// powPrecision is the number of decimal places kept while compounding.
const powPrecision = 20

var (
	hundred = decimal.NewFromInt(100)
	twelve  = decimal.NewFromInt(12)
	cent    = decimal.New(1, -2)
)

// Installment is one row of a schedule.
type Installment struct {
	Sequence  int
	DueDate   time.Time
	Principal types.Money
	Interest  types.Money
	TotalDue  types.Money
}

// Schedule is the full plan for a loan.
type Schedule struct {
	LevelPayment  types.Money
	TotalInterest types.Money
	Installments  []Installment
}

// TotalPrincipal sums the principal components. It always equals the loan principal.
func (s Schedule) TotalPrincipal() types.Money {
	total := types.Zero()
	for _, in := range s.Installments {
		total = total.Add(in.Principal)
	}
	return total
}

// MonthlyRate converts an annual percentage to a monthly fraction.
func MonthlyRate(annualRatePercent types.Money) decimal.Decimal {
	return annualRatePercent.Div(hundred).Div(twelve)
}

// levelPayment returns the unrounded P·r(1+r)^n / ((1+r)^n − 1), or P/n
// when the rate is zero, together with (1+r)^n.
func levelPayment(principal, rate decimal.Decimal, termMonths int) (decimal.Decimal, decimal.Decimal, error) {
	if termMonths <= 0 {
		return decimal.Zero, decimal.Zero, apperror.NewValidation("term must be at least one month")
	}
	n := decimal.NewFromInt(int64(termMonths))
	if rate.IsZero() {
		return principal.DivRound(n, powPrecision), decimal.NewFromInt(1), nil
	}

	growth, err := decimal.NewFromInt(1).Add(rate).PowWithPrecision(n, powPrecision)
	if err != nil {
		return decimal.Zero, decimal.Zero, apperror.NewInternal(err)
	}
	payment := principal.Mul(rate).Mul(growth).DivRound(growth.Sub(decimal.NewFromInt(1)), powPrecision)
	return payment, growth, nil
}

// Calculate builds the schedule for principal at annualRatePercent over
// termMonths, with the first installment due on firstPayment.
//
// Every installment is due the rounded level payment. Principal components
// are the exact annuity components rounded to cents, with the rounding
// residue spread one cent at a time so they still sum to the loan amount and
// never decrease. Interest is the level payment minus principal, floored at
// zero, so it never increases. The last installment therefore takes exactly
// the remaining principal.
func Calculate(principal, annualRatePercent types.Money, termMonths int, firstPayment time.Time) (Schedule, error) {
	if err := validate(principal, annualRatePercent, termMonths, firstPayment); err != nil {
		return Schedule{}, err
	}

	rate := MonthlyRate(annualRatePercent)
	exact, growth, err := levelPayment(principal, rate, termMonths)
	if err != nil {
		return Schedule{}, err
	}
	level := types.RoundMoney(exact)
	if level.LessThan(cent) {
		return Schedule{}, apperror.NewValidation("principal is too small to repay in whole cents over this term").
			WithDetail("field", "principal")
	}

	parts, err := principalParts(principal, rate, exact, growth, termMonths)
	if err != nil {
		return Schedule{}, err
	}

	zeroRate := rate.IsZero()
	totalInterest := types.Zero()
	installments := make([]Installment, 0, termMonths)

	for i, principalPart := range parts {
		interest := types.Zero()
		if !zeroRate && level.GreaterThan(principalPart) {
			interest = level.Sub(principalPart)
		}
		totalInterest = totalInterest.Add(interest)

		installments = append(installments, Installment{
			Sequence:  i + 1,
			DueDate:   AddMonthsClamped(firstPayment, i),
			Principal: principalPart,
			Interest:  interest,
			TotalDue:  principalPart.Add(interest),
		})
	}

	return Schedule{
		LevelPayment:  level,
		TotalInterest: totalInterest,
		Installments:  installments,
	}, nil
}

// principalParts returns the cent-rounded principal components. The exact
// component of installment i is payment/(1+r)^(n−i+1), or P/n at zero rate.
func principalParts(principal, rate, payment, growth decimal.Decimal, termMonths int) ([]types.Money, error) {
	parts := make([]types.Money, termMonths)
	step := decimal.NewFromInt(1).Add(rate)
	component := payment.DivRound(growth, powPrecision)
	if rate.IsZero() {
		component = payment
	}

	sum := types.Zero()
	for i := range parts {
		parts[i] = types.RoundMoney(component)
		sum = sum.Add(parts[i])
		if !rate.IsZero() {
			component = component.Mul(step).Round(powPrecision)
		}
	}

	// Residue goes to the tail when short and comes off the head when over.
	residue := principal.Sub(sum).Div(cent).IntPart()
	for i := termMonths - 1; residue > 0 && i >= 0; i-- {
		parts[i] = parts[i].Add(cent)
		residue--
	}
	for i := 0; residue < 0 && i < termMonths; i++ {
		if parts[i].GreaterThanOrEqual(cent) {
			parts[i] = parts[i].Sub(cent)
			residue++
		}
	}
	if residue != 0 {
		return nil, apperror.NewValidation("principal is too small to repay in whole cents over this term").
			WithDetail("field", "principal")
	}
	return parts, nil
}

func validate(principal, rate types.Money, termMonths int, firstPayment time.Time) error {
	switch {
	case !principal.IsPositive():
		return apperror.NewValidation("principal must be positive").WithDetail("field", "principal")
	case !principal.Equal(types.RoundMoney(principal)):
		return apperror.NewValidation("principal must have at most two decimal places").WithDetail("field", "principal")
	case rate.IsNegative():
		return apperror.NewValidation("interest rate must not be negative").WithDetail("field", "interest_rate")
	case termMonths < 1 || termMonths > MaxTermMonths:
		return apperror.NewValidation("term must be between 1 and 600 months").WithDetail("field", "term_months")
	case firstPayment.IsZero():
		return apperror.NewValidation("first payment date is required").WithDetail("field", "first_payment_date")
	}
	return nil
}

// AddMonthsClamped moves t forward by months calendar months, keeping the day
// of month but clamping it to the last day of shorter months.
// Jan 31 + 1 month is Feb 28 (or 29), never Mar 3.
func AddMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}
