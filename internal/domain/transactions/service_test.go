package transactions

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
	"bizledger/internal/core/store"
	"bizledger/internal/domain/domaintest"
	"bizledger/internal/domain/events"
	"bizledger/internal/domain/registers/stock"
	"bizledger/internal/infrastructure/storage/memory"
)

type fixture struct {
	env      *domaintest.Env
	svc      *Service
	stockCol string
	x, y     id.ID
}

func setup(t *testing.T, stockCol string) *fixture {
	t.Helper()
	env := domaintest.New(
		domaintest.OwnerIDShape(domaintest.AllTables()...),
		func(s *memory.Store) { s.DefineTable(schema.Products, "id", "owner_id", "name", stockCol) },
	)
	f := &fixture{env: env, svc: NewService(env.Deps), stockCol: stockCol, x: id.New(), y: id.New()}
	env.Store.Seed(schema.Products,
		store.Row{"id": f.x, "owner_id": domaintest.Owner, "name": "Kopi 250g", stockCol: int64(20)},
		store.Row{"id": f.y, "owner_id": domaintest.Owner, "name": "Teh 100g", stockCol: int64(10)},
	)
	return f
}

func (f *fixture) qty(t *testing.T, pid id.ID) int64 {
	t.Helper()
	q, err := f.svc.stock.Quantity(f.env.Ctx, pid)
	require.NoError(t, err)
	return q
}

func item(pid id.ID, qty int64, price string) ItemInput {
	return ItemInput{ProductID: pid, Quantity: qty, UnitPrice: decimal.RequireFromString(price)}
}

func TestDeleteTransaction_StockRollbackBothColumnShapes(t *testing.T) {
	for _, col := range schema.StockColumns {
		t.Run(col, func(t *testing.T) {
			f := setup(t, col)

			res, err := f.svc.CreateTransaction(f.env.Ctx, CreateInput{
				Kind:  KindSale,
				Items: []ItemInput{item(f.x, 5, "25000")},
			})
			require.NoError(t, err)
			require.Empty(t, res.Warnings)
			afterSale := f.qty(t, f.x)
			assert.Equal(t, int64(15), afterSale)

			del, err := f.svc.DeleteTransaction(f.env.Ctx, res.Transaction.ID)
			require.NoError(t, err)

			assert.True(t, del.Deleted)
			assert.Equal(t, StockComplete, del.StockRollback)
			assert.Equal(t, afterSale+5, f.qty(t, f.x))
			assert.Empty(t, f.env.Store.Rows(schema.Transactions))
			assert.Empty(t, f.env.Store.Rows(schema.TransactionItems))
		})
	}
}

func TestCreateTransaction(t *testing.T) {
	f := setup(t, "stock_quantity")
	date := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)

	res, err := f.svc.CreateTransaction(f.env.Ctx, CreateInput{
		Kind:  KindPurchase,
		Date:  date,
		Notes: "restock",
		Items: []ItemInput{item(f.x, 4, "18000"), item(f.y, 6, "9500.50"), item(f.x, 1, "18000")},
	})
	require.NoError(t, err)

	assert.Equal(t, "147003.00", res.Transaction.Total.StringFixed(2))
	assert.Equal(t, date, res.Transaction.TransactionDate)
	assert.Len(t, res.Stock, 2, "one level per product")
	assert.Equal(t, int64(25), f.qty(t, f.x))
	assert.Equal(t, int64(16), f.qty(t, f.y))

	got, err := f.svc.GetTransaction(f.env.Ctx, res.Transaction.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 3)
	assert.Equal(t, KindPurchase, got.Kind)
	assert.Equal(t, []string{events.TransactionCreated}, f.env.Events.Types())
}

func TestCreateTransaction_Validation(t *testing.T) {
	f := setup(t, "stock_quantity")

	cases := map[string]CreateInput{
		"kind":     {Kind: "refund", Items: []ItemInput{item(f.x, 1, "1")}},
		"no items": {Kind: KindSale},
		"quantity": {Kind: KindSale, Items: []ItemInput{item(f.x, 0, "1")}},
		"price":    {Kind: KindSale, Items: []ItemInput{item(f.x, 1, "-1")}},
		"product":  {Kind: KindSale, Items: []ItemInput{{Quantity: 1}}},
	}
	for name, in := range cases {
		_, err := f.svc.CreateTransaction(f.env.Ctx, in)
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation), name)
	}
}

func TestCreateTransaction_UnknownOrForeignProduct(t *testing.T) {
	f := setup(t, "stock_quantity")
	foreign := id.New()
	f.env.Store.Seed(schema.Products, store.Row{"id": foreign, "owner_id": "someone-else", "stock_quantity": int64(3)})

	_, err := f.svc.CreateTransaction(f.env.Ctx, CreateInput{Kind: KindSale, Items: []ItemInput{item(id.New(), 1, "1")}})
	assert.True(t, apperror.IsNotFound(err))

	_, err = f.svc.CreateTransaction(f.env.Ctx, CreateInput{Kind: KindSale, Items: []ItemInput{item(foreign, 1, "1")}})
	assert.True(t, apperror.IsNotFound(err))
	assert.Empty(t, f.env.Store.Rows(schema.Transactions))
}

func TestCreateTransaction_RollsBackWhenItemsFail(t *testing.T) {
	f := setup(t, "stock_quantity")
	f.env.Store.FailOn(memory.OpInsert, schema.TransactionItems, errors.New("connection reset"))

	_, err := f.svc.CreateTransaction(f.env.Ctx, CreateInput{Kind: KindSale, Items: []ItemInput{item(f.x, 2, "1")}})

	assert.True(t, apperror.IsDependentWrite(err))
	assert.Empty(t, f.env.Store.Rows(schema.Transactions))
	assert.Equal(t, int64(20), f.qty(t, f.x), "stock untouched")
}

func TestUpdateItems_MovesStockByDifference(t *testing.T) {
	f := setup(t, "stock")
	res, err := f.svc.CreateTransaction(f.env.Ctx, CreateInput{Kind: KindSale, Items: []ItemInput{item(f.x, 3, "10")}})
	require.NoError(t, err)
	require.Equal(t, int64(17), f.qty(t, f.x))

	upd, err := f.svc.UpdateItems(f.env.Ctx, res.Transaction.ID, []ItemInput{item(f.x, 5, "10"), item(f.y, 2, "7.25")})
	require.NoError(t, err)

	assert.Empty(t, upd.Warnings)
	assert.Equal(t, "64.50", upd.Transaction.Total.StringFixed(2))
	assert.Equal(t, int64(15), f.qty(t, f.x))
	assert.Equal(t, int64(8), f.qty(t, f.y))
	assert.Len(t, f.env.Store.Rows(schema.TransactionItems), 2)

	del, err := f.svc.DeleteTransaction(f.env.Ctx, res.Transaction.ID)
	require.NoError(t, err)
	assert.Equal(t, StockComplete, del.StockRollback)
	assert.Equal(t, int64(20), f.qty(t, f.x))
	assert.Equal(t, int64(10), f.qty(t, f.y))
}

func TestUpdateItems_RestoresItemsWhenInsertFails(t *testing.T) {
	f := setup(t, "stock_quantity")
	res, err := f.svc.CreateTransaction(f.env.Ctx, CreateInput{Kind: KindSale, Items: []ItemInput{item(f.x, 3, "10")}})
	require.NoError(t, err)

	failed := false
	f.env.Store.InjectFault(func(c memory.Call) error {
		if c.Op == memory.OpInsert && c.Table == schema.TransactionItems && !failed {
			failed = true
			return errors.New("connection reset")
		}
		return nil
	})

	_, err = f.svc.UpdateItems(f.env.Ctx, res.Transaction.ID, []ItemInput{item(f.x, 9, "10")})

	assert.True(t, apperror.IsDependentWrite(err))
	assert.Equal(t, int64(17), f.qty(t, f.x), "stock untouched")
	got, err := f.svc.GetTransaction(f.env.Ctx, res.Transaction.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1, "old items re-inserted")
	assert.Equal(t, int64(3), got.Items[0].Quantity)
	assert.Equal(t, "30.00", got.Total.StringFixed(2))
}

func TestDeleteTransaction_PartialStockRollback(t *testing.T) {
	f := setup(t, "stock_quantity")
	res, err := f.svc.CreateTransaction(f.env.Ctx, CreateInput{
		Kind:  KindSale,
		Items: []ItemInput{item(f.x, 2, "1"), item(f.y, 1, "1")},
	})
	require.NoError(t, err)
	f.env.Store.FailOn(memory.OpUpdate, schema.Products, errors.New("products locked"))

	del, err := f.svc.DeleteTransaction(f.env.Ctx, res.Transaction.ID)
	require.NoError(t, err)

	assert.True(t, del.Deleted)
	assert.Equal(t, StockPartial, del.StockRollback)
	require.Len(t, del.Warnings, 2)
	assert.Equal(t, apperror.CodePartialSideEffect, del.Warnings[0].Code)
	assert.Equal(t, stock.ReasonTransactionDelete, del.Warnings[0].Details["reason"])
	assert.Empty(t, f.env.Store.Rows(schema.Transactions), "deletion is not blocked")
	assert.Equal(t, []string{events.TransactionCreated, events.TransactionDeleted}, f.env.Events.Types())
}

func TestDeleteTransaction_RestoresItemsWhenDeleteFails(t *testing.T) {
	f := setup(t, "stock_quantity")
	res, err := f.svc.CreateTransaction(f.env.Ctx, CreateInput{Kind: KindSale, Items: []ItemInput{item(f.x, 2, "1")}})
	require.NoError(t, err)
	f.env.Store.FailOn(memory.OpDelete, schema.Transactions, errors.New("foreign key violation"))

	_, err = f.svc.DeleteTransaction(f.env.Ctx, res.Transaction.ID)

	assert.True(t, apperror.IsDependentWrite(err))
	assert.Len(t, f.env.Store.Rows(schema.TransactionItems), 1)
	assert.Equal(t, int64(18), f.qty(t, f.x), "stock only moves after the delete commits")
}

func TestDeleteTransaction_OtherOwner(t *testing.T) {
	f := setup(t, "stock_quantity")
	res, err := f.svc.CreateTransaction(f.env.Ctx, CreateInput{Kind: KindSale, Items: []ItemInput{item(f.x, 2, "1")}})
	require.NoError(t, err)

	_, err = f.svc.DeleteTransaction(f.env.As("intruder"), res.Transaction.ID)
	assert.True(t, apperror.IsNotFound(err))
	assert.Len(t, f.env.Store.Rows(schema.Transactions), 1)
}
