package reports

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizledger/internal/core/apperror"
	"bizledger/internal/core/id"
	"bizledger/internal/core/schema"
	"bizledger/internal/core/store"
	"bizledger/internal/domain/domaintest"
	"bizledger/internal/infrastructure/storage/memory"
)

func seed(env *domaintest.Env, ownerCol string) {
	own := func(r store.Row) store.Row {
		r["id"] = id.New()
		r[ownerCol] = domaintest.Owner
		return r
	}
	other := store.Row{"id": id.New(), ownerCol: "someone-else", "amount": "1000000", "current_value": "9",
		"status": "active", "remaining_balance": "9", "stock_quantity": int64(99), "total_profit_shared": "9"}

	env.Store.Seed(schema.Incomes, own(store.Row{"amount": "1500000"}), own(store.Row{"amount": "250000.50"}), other.Clone())
	env.Store.Seed(schema.Expenses, own(store.Row{"amount": "400000"}), other.Clone())
	env.Store.Seed(schema.Loans,
		own(store.Row{"status": "active", "remaining_balance": "1000"}),
		own(store.Row{"status": "defaulted", "remaining_balance": "500"}),
		own(store.Row{"status": "paid_off", "remaining_balance": "0"}),
		other.Clone(),
	)
	env.Store.Seed(schema.Investments, own(store.Row{"current_value": "10250000"}), other.Clone())
	env.Store.Seed(schema.InvestorFundings, own(store.Row{"total_profit_shared": "600000"}), other.Clone())
	env.Store.Seed(schema.Products,
		own(store.Row{"stock_quantity": int64(15)}),
		own(store.Row{"stock_quantity": int64(7)}),
		other.Clone(),
	)
}

func TestSummary(t *testing.T) {
	env := domaintest.New()
	seed(env, "owner_id")
	svc := NewService(NewStoreRepository(env.Store, env.Resolver), nil)

	got, err := svc.Summary(env.Ctx)
	require.NoError(t, err)

	assert.Equal(t, "1750000.50", got.TotalIncome.StringFixed(2))
	assert.Equal(t, "400000.00", got.TotalExpense.StringFixed(2))
	assert.Equal(t, "1350000.50", got.NetIncome.StringFixed(2))
	assert.Equal(t, 1, got.ActiveLoans)
	assert.Equal(t, "1500.00", got.OutstandingLoanBalance.StringFixed(2), "defaulted loans are still owed")
	assert.Equal(t, "10250000.00", got.InvestmentValue.StringFixed(2))
	assert.Equal(t, "600000.00", got.TotalProfitShared.StringFixed(2))
	assert.Equal(t, int64(22), got.InventoryUnits)
}

func TestSummary_UserIDShape(t *testing.T) {
	env := domaintest.New(domaintest.UserIDShape(schema.Incomes, schema.Expenses, schema.Loans))
	seed(env, "user_id")
	svc := NewService(NewStoreRepository(env.Store, env.Resolver), nil)

	got, err := svc.Summary(env.Ctx)
	require.NoError(t, err)
	assert.Equal(t, "1750000.50", got.TotalIncome.StringFixed(2))
	assert.Equal(t, 1, got.ActiveLoans)
}

func TestSummary_FailureFailsSummary(t *testing.T) {
	env := domaintest.New()
	seed(env, "owner_id")
	boom := errors.New("replica lag")
	env.Store.FailOn(memory.OpSelect, schema.Investments, boom)
	svc := NewService(NewStoreRepository(env.Store, env.Resolver), nil)

	_, err := svc.Summary(env.Ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.True(t, apperror.HasCode(err, apperror.CodeDatabase))
}

func TestSummary_RequiresOwner(t *testing.T) {
	svc := NewService(NewStoreRepository(memory.New(), nil), nil)
	_, err := svc.Summary(context.Background())
	assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized))
}
