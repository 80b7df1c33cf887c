package loans

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizledger/internal/core/apperror"
	"bizledger/internal/core/id"
	"bizledger/internal/core/schema"
	"bizledger/internal/core/types"
	"bizledger/internal/domain"
	"bizledger/internal/domain/domaintest"
	"bizledger/internal/domain/events"
	"bizledger/internal/domain/ledger"
	"bizledger/internal/infrastructure/storage/memory"
)

var firstPayment = time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC)

func bankLoan() CreateInput {
	return CreateInput{
		Principal:        decimal.NewFromInt(12_000_000),
		AnnualRate:       decimal.NewFromInt(12),
		TermMonths:       12,
		DisbursementDate: time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC),
		FirstPaymentDate: firstPayment,
		Lender:           LenderInfo{Name: "Bank BRI", Contact: "+62 21 000"},
	}
}

func setup(t *testing.T, shape ...func(*memory.Store)) (*domaintest.Env, *Service) {
	t.Helper()
	env := domaintest.New(shape...)
	return env, NewService(env.Deps)
}

func TestCreateLoan_Schedule(t *testing.T) {
	env, svc := setup(t)

	loan, err := svc.CreateLoan(env.Ctx, bankLoan())
	require.NoError(t, err)

	assert.Equal(t, StatusActive, loan.Status)
	assert.Equal(t, domaintest.Owner, loan.OwnerID)
	assert.Equal(t, "12000000.00", loan.RemainingBalance.StringFixed(2))
	require.Len(t, loan.Installments, 12)

	first := loan.Installments[0]
	assert.Equal(t, "1066185.46", first.TotalDue.StringFixed(2))
	assert.Equal(t, "120000.00", first.InterestComponent.StringFixed(2))
	assert.Equal(t, firstPayment, first.DueDate)
	assert.Equal(t, time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC), loan.Installments[1].DueDate)

	principal := types.Zero()
	for _, in := range loan.Installments {
		principal = principal.Add(in.PrincipalComponent)
		assert.Equal(t, InstallmentPending, in.Status)
	}
	assert.True(t, principal.Equal(loan.Principal))

	assert.Len(t, env.Store.Rows(schema.Loans), 1)
	assert.Len(t, env.Store.Rows(schema.LoanInstallments), 12)
	assert.Equal(t, domaintest.Owner, env.Store.Rows(schema.Loans)[0]["owner_id"])
	assert.Equal(t, []string{events.LoanCreated}, env.Events.Types())

	got, err := svc.GetLoan(env.Ctx, loan.ID)
	require.NoError(t, err)
	assert.Len(t, got.Installments, 12)
	assert.Equal(t, 1, got.Installments[0].Sequence)
	assert.Equal(t, 12, got.Installments[11].Sequence)
}

func TestCreateLoan_Validation(t *testing.T) {
	env, svc := setup(t)

	noLender := bankLoan()
	noLender.Lender.Name = " "
	_, err := svc.CreateLoan(env.Ctx, noLender)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	noTerm := bankLoan()
	noTerm.TermMonths = 0
	_, err = svc.CreateLoan(env.Ctx, noTerm)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	early := bankLoan()
	early.FirstPaymentDate = early.DisbursementDate.AddDate(0, 0, -1)
	_, err = svc.CreateLoan(env.Ctx, early)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = svc.CreateLoan(context.Background(), bankLoan())
	assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized))

	assert.Empty(t, env.Store.Rows(schema.Loans))
}

func TestCreateLoan_RollsBackLoanWhenScheduleFails(t *testing.T) {
	env, svc := setup(t)
	env.Store.FailOn(memory.OpInsert, schema.LoanInstallments, errors.New("connection reset"))

	_, err := svc.CreateLoan(env.Ctx, bankLoan())

	require.Error(t, err)
	assert.True(t, apperror.IsDependentWrite(err))
	assert.Empty(t, env.Store.Rows(schema.Loans), "loan row removed again")
	assert.Empty(t, env.Store.Rows(schema.LoanInstallments))
	assert.Empty(t, env.Events.Events())
}

func TestPayInstallment(t *testing.T) {
	env, svc := setup(t)
	loan, err := svc.CreateLoan(env.Ctx, bankLoan())
	require.NoError(t, err)
	first := loan.Installments[0]
	paidOn := time.Date(2025, time.January, 30, 0, 0, 0, 0, time.UTC)

	res, err := svc.PayInstallment(env.Ctx, PayInput{InstallmentID: first.ID, PaidDate: paidOn})
	require.NoError(t, err)

	assert.Equal(t, InstallmentPaid, res.Installment.Status)
	assert.Equal(t, StatusActive, res.LoanStatus)
	assert.Equal(t, "1066185.46", res.Entry.Amount.StringFixed(2))
	assert.Equal(t, ledger.CategoryLoanRepayment, res.Entry.Category)
	assert.Equal(t, "11053814.54", res.Loan.RemainingBalance.StringFixed(2))
	assert.Equal(t, "1066185.46", res.Loan.TotalPaid.StringFixed(2))

	expenses := env.Store.Rows(schema.Expenses)
	require.Len(t, expenses, 1)
	assert.Equal(t, first.ID, expenses[0]["source_id"])
	assert.Equal(t, string(ledger.SourceLoanInstallment), types.StringFromAny(expenses[0]["source_type"]))
	assert.Equal(t, domaintest.Owner, expenses[0]["owner_id"])
	assert.Equal(t, paidOn, expenses[0]["entry_date"])

	row := env.Store.Rows(schema.LoanInstallments)[0]
	assert.Equal(t, "paid", types.StringFromAny(row["status"]))
	assert.Equal(t, res.Entry.ID, row["ledger_entry_id"])

	got, err := svc.GetLoan(env.Ctx, loan.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Installments[0].LedgerEntryID)
	assert.Equal(t, res.Entry.ID, *got.Installments[0].LedgerEntryID)
	assert.Equal(t, "11053814.54", got.RemainingBalance.StringFixed(2))

	assert.Equal(t, []string{events.LoanCreated, events.InstallmentPaid}, env.Events.Types())
}

func TestPayInstallment_DefaultsToTodayAndTotalDue(t *testing.T) {
	env, svc := setup(t)
	loan, err := svc.CreateLoan(env.Ctx, bankLoan())
	require.NoError(t, err)

	res, err := svc.PayInstallment(env.Ctx, PayInput{InstallmentID: loan.Installments[0].ID})
	require.NoError(t, err)
	require.NotNil(t, res.Installment.PaidDate)
	assert.Equal(t, domain.TruncateDay(domaintest.Now), *res.Installment.PaidDate)
	assert.True(t, res.Installment.PaidAmount.Equal(loan.Installments[0].TotalDue))
}

func TestPayInstallment_ExplicitAmount(t *testing.T) {
	env, svc := setup(t)
	loan, err := svc.CreateLoan(env.Ctx, bankLoan())
	require.NoError(t, err)
	instID := loan.Installments[0].ID

	for _, bad := range []string{"0", "-5", "0.004"} {
		amount := decimal.RequireFromString(bad)
		_, err = svc.PayInstallment(env.Ctx, PayInput{InstallmentID: instID, PaidAmount: &amount})
		require.Error(t, err, bad)
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation), bad)
	}
	assert.Empty(t, env.Store.Rows(schema.Expenses), "rejected amounts write nothing")

	partial := decimal.RequireFromString("500000")
	res, err := svc.PayInstallment(env.Ctx, PayInput{InstallmentID: instID, PaidAmount: &partial})
	require.NoError(t, err)
	assert.Equal(t, "500000.00", res.Installment.PaidAmount.StringFixed(2))
	assert.Equal(t, "500000.00", res.Entry.Amount.StringFixed(2))
}

func TestPayInstallment_Twice(t *testing.T) {
	env, svc := setup(t)
	loan, err := svc.CreateLoan(env.Ctx, bankLoan())
	require.NoError(t, err)
	instID := loan.Installments[0].ID

	_, err = svc.PayInstallment(env.Ctx, PayInput{InstallmentID: instID})
	require.NoError(t, err)

	_, err = svc.PayInstallment(env.Ctx, PayInput{InstallmentID: instID})
	assert.True(t, apperror.HasCode(err, apperror.CodeAlreadyPaid))
	assert.Len(t, env.Store.Rows(schema.Expenses), 1, "no second expense")
}

func TestPayInstallment_RollsBackEntryWhenInstallmentUpdateFails(t *testing.T) {
	env, svc := setup(t)
	loan, err := svc.CreateLoan(env.Ctx, bankLoan())
	require.NoError(t, err)
	env.Store.FailOn(memory.OpUpdate, schema.LoanInstallments, errors.New("statement timeout"))

	_, err = svc.PayInstallment(env.Ctx, PayInput{InstallmentID: loan.Installments[0].ID})

	require.Error(t, err)
	assert.True(t, apperror.IsDependentWrite(err))
	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, "mark_installment_paid", appErr.Details["step"])
	assert.Empty(t, env.Store.Rows(schema.Expenses), "no orphaned expense")
	assert.Equal(t, "pending", types.StringFromAny(env.Store.Rows(schema.LoanInstallments)[0]["status"]))
}

func TestPayInstallment_RestoresInstallmentWhenRecalculationFails(t *testing.T) {
	env, svc := setup(t)
	loan, err := svc.CreateLoan(env.Ctx, bankLoan())
	require.NoError(t, err)
	env.Store.FailOn(memory.OpUpdate, schema.Loans, errors.New("deadlock detected"))

	_, err = svc.PayInstallment(env.Ctx, PayInput{InstallmentID: loan.Installments[0].ID})

	require.Error(t, err)
	assert.True(t, apperror.IsDependentWrite(err))
	assert.Empty(t, env.Store.Rows(schema.Expenses))

	got, err := svc.GetLoan(env.Ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, InstallmentPending, got.Installments[0].Status)
	assert.Nil(t, got.Installments[0].PaidDate)
	assert.Nil(t, got.Installments[0].LedgerEntryID)
}

func TestPayInstallment_AllPaidClosesLoan(t *testing.T) {
	env, svc := setup(t)
	loan, err := svc.CreateLoan(env.Ctx, bankLoan())
	require.NoError(t, err)

	var last PaymentResult
	for _, in := range loan.Installments {
		last, err = svc.PayInstallment(env.Ctx, PayInput{InstallmentID: in.ID})
		require.NoError(t, err)
	}

	assert.Equal(t, StatusPaidOff, last.LoanStatus)
	assert.True(t, last.Loan.RemainingBalance.IsZero())
	assert.Equal(t, "12794225.52", last.Loan.TotalPaid.StringFixed(2))
	assert.Len(t, env.Store.Rows(schema.Expenses), 12)
}

func TestPayInstallment_OtherOwner(t *testing.T) {
	env, svc := setup(t)
	loan, err := svc.CreateLoan(env.Ctx, bankLoan())
	require.NoError(t, err)

	_, err = svc.PayInstallment(env.As("intruder"), PayInput{InstallmentID: loan.Installments[0].ID})
	assert.True(t, apperror.IsNotFound(err))

	_, err = svc.PayInstallment(env.Ctx, PayInput{InstallmentID: id.New()})
	assert.True(t, apperror.IsNotFound(err))

	_, err = svc.GetLoan(env.As("intruder"), loan.ID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestPayInstallment_UserIDShape(t *testing.T) {
	env, svc := setup(t, domaintest.UserIDShape(domaintest.AllTables()...))
	loan, err := svc.CreateLoan(env.Ctx, bankLoan())
	require.NoError(t, err)

	_, err = svc.PayInstallment(env.Ctx, PayInput{InstallmentID: loan.Installments[0].ID})
	require.NoError(t, err)

	loanRow := env.Store.Rows(schema.Loans)[0]
	assert.Equal(t, domaintest.Owner, loanRow["user_id"])
	assert.NotContains(t, loanRow, "owner_id")

	expense := env.Store.Rows(schema.Expenses)[0]
	assert.Equal(t, domaintest.Owner, expense["user_id"])
	assert.NotContains(t, expense, "owner_id")
}

func TestDeleteLoan(t *testing.T) {
	env, svc := setup(t)
	loan, err := svc.CreateLoan(env.Ctx, bankLoan())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteLoan(env.Ctx, loan.ID))
	assert.Empty(t, env.Store.Rows(schema.Loans))
	assert.Empty(t, env.Store.Rows(schema.LoanInstallments))

	_, err = svc.GetLoan(env.Ctx, loan.ID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestDeleteLoan_RefusedOncePaid(t *testing.T) {
	env, svc := setup(t)
	loan, err := svc.CreateLoan(env.Ctx, bankLoan())
	require.NoError(t, err)
	_, err = svc.PayInstallment(env.Ctx, PayInput{InstallmentID: loan.Installments[0].ID})
	require.NoError(t, err)

	err = svc.DeleteLoan(env.Ctx, loan.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeBusinessRule))
	assert.Len(t, env.Store.Rows(schema.LoanInstallments), 12)
}

func TestDeleteLoan_RestoresScheduleWhenLoanDeleteFails(t *testing.T) {
	env, svc := setup(t)
	loan, err := svc.CreateLoan(env.Ctx, bankLoan())
	require.NoError(t, err)
	env.Store.FailOn(memory.OpDelete, schema.Loans, errors.New("foreign key violation"))

	err = svc.DeleteLoan(env.Ctx, loan.ID)
	assert.True(t, apperror.IsDependentWrite(err))
	assert.Len(t, env.Store.Rows(schema.LoanInstallments), 12, "installments re-inserted")
}

func TestMarkDefaulted(t *testing.T) {
	env, svc := setup(t)
	loan, err := svc.CreateLoan(env.Ctx, bankLoan())
	require.NoError(t, err)

	got, err := svc.MarkDefaulted(env.Ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDefaulted, got.Status)

	_, err = svc.MarkDefaulted(env.Ctx, loan.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeAlreadyProcessed))

	var last PaymentResult
	for _, in := range loan.Installments {
		last, err = svc.PayInstallment(env.Ctx, PayInput{InstallmentID: in.ID})
		require.NoError(t, err)
		if in.Sequence < 12 {
			assert.Equal(t, StatusDefaulted, last.LoanStatus)
		}
	}
	assert.Equal(t, StatusPaidOff, last.LoanStatus)

	_, err = svc.MarkDefaulted(env.Ctx, loan.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeBusinessRule))
}

func TestListLoans(t *testing.T) {
	env, svc := setup(t)
	for range 3 {
		_, err := svc.CreateLoan(env.Ctx, bankLoan())
		require.NoError(t, err)
	}
	_, err := svc.CreateLoan(env.As("someone-else"), bankLoan())
	require.NoError(t, err)

	page, err := svc.ListLoans(env.Ctx, domain.ListFilter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.TotalCount)
	assert.Len(t, page.Items, 2)
}
