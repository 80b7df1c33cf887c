package investments

import (
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
	"bizledger/internal/domain/domaintest"
	"bizledger/internal/domain/events"
	"bizledger/internal/domain/ledger"
	"bizledger/internal/infrastructure/storage/memory"
)

func setup(t *testing.T, shape ...func(*memory.Store)) (*domaintest.Env, *Service, Investment) {
	t.Helper()
	env := domaintest.New(shape...)
	svc := NewService(env.Deps)
	inv, err := svc.CreateInvestment(env.Ctx, CreateInput{
		Name:           "Mutual fund",
		AmountInvested: decimal.NewFromInt(10_000_000),
		StartDate:      time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return env, svc, inv
}

func TestCreateInvestment(t *testing.T) {
	env, _, inv := setup(t)

	assert.True(t, inv.CurrentValue.Equal(inv.AmountInvested))
	assert.True(t, inv.TotalReturns.IsZero())
	rows := env.Store.Rows(schema.Investments)
	require.Len(t, rows, 1)
	assert.Equal(t, domaintest.Owner, rows[0]["owner_id"])
	assert.Equal(t, []string{events.InvestmentCreated}, env.Events.Types())
}

func TestCreateInvestment_Validation(t *testing.T) {
	env, svc, _ := setup(t)

	_, err := svc.CreateInvestment(env.Ctx, CreateInput{Name: "x", AmountInvested: decimal.Zero})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	_, err = svc.CreateInvestment(env.Ctx, CreateInput{AmountInvested: decimal.NewFromInt(1)})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestRecordReturn(t *testing.T) {
	env, svc, inv := setup(t)
	date := time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC)

	res, err := svc.RecordReturn(env.Ctx, ReturnInput{
		InvestmentID: inv.ID,
		Date:         date,
		Amount:       decimal.RequireFromString("250000"),
		Type:         ReturnDividend,
	})
	require.NoError(t, err)

	assert.Equal(t, "250000.00", res.Investment.TotalReturns.StringFixed(2))
	assert.Equal(t, "10250000.00", res.Investment.CurrentValue.StringFixed(2))
	assert.Equal(t, ledger.KindIncome, res.Entry.Kind)
	assert.Equal(t, ledger.CategoryInvestmentReturn, res.Entry.Category)
	require.NotNil(t, res.Return.LedgerEntryID)
	assert.Equal(t, res.Entry.ID, *res.Return.LedgerEntryID)

	incomes := env.Store.Rows(schema.Incomes)
	require.Len(t, incomes, 1)
	assert.Equal(t, res.Return.ID, incomes[0]["source_id"])
	assert.Equal(t, date, incomes[0]["entry_date"])

	got, err := svc.GetInvestment(env.Ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "10250000.00", got.CurrentValue.StringFixed(2))

	returns, err := svc.ListReturns(env.Ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, returns, 1)
	assert.Equal(t, ReturnDividend, returns[0].ReturnType)
}

func TestRecordReturn_Validation(t *testing.T) {
	env, svc, inv := setup(t)

	_, err := svc.RecordReturn(env.Ctx, ReturnInput{InvestmentID: inv.ID, Amount: decimal.NewFromInt(-5)})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = svc.RecordReturn(env.Ctx, ReturnInput{InvestmentID: inv.ID, Amount: decimal.NewFromInt(5), Type: "bonus"})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = svc.RecordReturn(env.Ctx, ReturnInput{InvestmentID: id.New(), Amount: decimal.NewFromInt(5)})
	assert.True(t, apperror.IsNotFound(err))

	_, err = svc.RecordReturn(env.As("intruder"), ReturnInput{InvestmentID: inv.ID, Amount: decimal.NewFromInt(5)})
	assert.True(t, apperror.IsNotFound(err))
}

func TestRecordReturn_RollsBackIncomeWhenReturnInsertFails(t *testing.T) {
	env, svc, inv := setup(t)
	env.Store.FailOn(memory.OpInsert, schema.InvestmentReturns, errors.New("connection reset"))

	_, err := svc.RecordReturn(env.Ctx, ReturnInput{InvestmentID: inv.ID, Amount: decimal.NewFromInt(1000)})

	require.Error(t, err)
	assert.True(t, apperror.IsDependentWrite(err))
	assert.Empty(t, env.Store.Rows(schema.Incomes), "no orphaned income")
	assert.Empty(t, env.Store.Rows(schema.InvestmentReturns))

	got, err := svc.GetInvestment(env.Ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, got.TotalReturns.IsZero())
}

func TestDeleteReturn(t *testing.T) {
	env, svc, inv := setup(t)
	first, err := svc.RecordReturn(env.Ctx, ReturnInput{InvestmentID: inv.ID, Amount: decimal.NewFromInt(300), Type: ReturnInterest})
	require.NoError(t, err)
	_, err = svc.RecordReturn(env.Ctx, ReturnInput{InvestmentID: inv.ID, Amount: decimal.NewFromInt(200)})
	require.NoError(t, err)

	got, err := svc.DeleteReturn(env.Ctx, first.Return.ID)
	require.NoError(t, err)

	assert.Equal(t, "200.00", got.TotalReturns.StringFixed(2))
	assert.Equal(t, "10000200.00", got.CurrentValue.StringFixed(2))
	assert.Len(t, env.Store.Rows(schema.InvestmentReturns), 1)
	incomes := env.Store.Rows(schema.Incomes)
	require.Len(t, incomes, 1)
	assert.NotEqual(t, first.Return.ID, incomes[0]["source_id"])
	assert.Contains(t, env.Events.Types(), events.InvestmentReturnDeleted)
}

func TestDeleteReturn_RestoresIncomeWhenReturnDeleteFails(t *testing.T) {
	env, svc, inv := setup(t)
	res, err := svc.RecordReturn(env.Ctx, ReturnInput{InvestmentID: inv.ID, Amount: decimal.NewFromInt(300)})
	require.NoError(t, err)
	env.Store.FailOn(memory.OpDelete, schema.InvestmentReturns, errors.New("lock timeout"))

	_, err = svc.DeleteReturn(env.Ctx, res.Return.ID)

	assert.True(t, apperror.IsDependentWrite(err))
	incomes := env.Store.Rows(schema.Incomes)
	require.Len(t, incomes, 1, "income re-inserted")
	assert.Equal(t, res.Entry.ID, incomes[0]["id"])
	amount, err := types.MoneyFromAny(incomes[0]["amount"])
	require.NoError(t, err)
	assert.Equal(t, "300.00", amount.StringFixed(2))
}

func TestDeleteReturn_OtherOwner(t *testing.T) {
	env, svc, inv := setup(t)
	res, err := svc.RecordReturn(env.Ctx, ReturnInput{InvestmentID: inv.ID, Amount: decimal.NewFromInt(300)})
	require.NoError(t, err)

	_, err = svc.DeleteReturn(env.As("intruder"), res.Return.ID)
	assert.True(t, apperror.IsNotFound(err))
	assert.Len(t, env.Store.Rows(schema.Incomes), 1)
}

func TestRecordReturn_UserIDShape(t *testing.T) {
	env, svc, inv := setup(t, domaintest.UserIDShape(domaintest.AllTables()...))

	_, err := svc.RecordReturn(env.Ctx, ReturnInput{InvestmentID: inv.ID, Amount: decimal.NewFromInt(10)})
	require.NoError(t, err)
	assert.Equal(t, domaintest.Owner, env.Store.Rows(schema.Incomes)[0]["user_id"])
	assert.Equal(t, domaintest.Owner, env.Store.Rows(schema.Investments)[0]["user_id"])
}
