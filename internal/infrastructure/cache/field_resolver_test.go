package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizledger/internal/core/schema"
	"bizledger/internal/infrastructure/storage/memory"
)

func TestIsUndefinedColumn(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"pg 42703", &pgconn.PgError{Code: "42703", Message: "column \"owner_id\" does not exist"}, true},
		{"wrapped pg 42703", fmt.Errorf("select: %w", &pgconn.PgError{Code: "42703"}), true},
		{"pg other code", &pgconn.PgError{Code: "23505", Message: "duplicate key"}, false},
		{"pg 42P01", &pgconn.PgError{Code: "42P01", Message: `relation "loans" does not exist`}, false},
		{"missing relation text", errors.New(`ERROR: relation "loans" does not exist`), false},
		{"missing table text", errors.New("table loans does not exist"), false},
		{"column of relation text", errors.New(`column "owner_id" of relation "loans" does not exist`), true},
		{"does not exist", errors.New(`column expenses.owner_id does not exist`), true},
		{"schema cache", errors.New("Could not find the 'stock' column of 'products' in the Schema Cache"), true},
		{"unknown field", errors.New("Unknown field owner_id"), true},
		{"no such column", errors.New("SQL logic error: no such column: stock_quantity"), true},
		{"network", errors.New("connection reset by peer"), false},
		{"timeout", context.DeadlineExceeded, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUndefinedColumn(tt.err))
		})
	}
}

func TestFieldResolver_CachesPerTable(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	s.DefineTable(schema.Expenses, "id", "user_id", "amount")

	r := NewFieldResolver(s)

	first := r.Resolve(ctx, schema.Expenses, schema.OwnerColumns...)
	assert.Equal(t, "user_id", first)
	assert.Equal(t, 2, s.Calls(memory.OpSelect, schema.Expenses), "owner_id then user_id")

	second := r.Resolve(ctx, schema.Expenses, schema.OwnerColumns...)
	assert.Equal(t, "user_id", second)
	assert.Equal(t, 2, s.Calls(memory.OpSelect, schema.Expenses), "second call is served from cache")

	stats := r.Stats()
	assert.Equal(t, "user_id", stats.Resolved[schema.Expenses]["owner_id"])
	assert.Equal(t, int64(2), stats.Probes)
}

func TestFieldResolver_PreferredCandidateWins(t *testing.T) {
	s := memory.New()
	s.DefineTable(schema.Products, "id", "stock_quantity", "stock")

	col := NewFieldResolver(s).Resolve(context.Background(), schema.Products, schema.StockColumns...)
	assert.Equal(t, "stock_quantity", col)
	assert.Equal(t, 1, s.Calls(memory.OpSelect, schema.Products))
}

func TestFieldResolver_TextErrorStyles(t *testing.T) {
	styles := map[string]memory.ColumnErrorFunc{
		"postgrest": memory.TextColumnError("Could not find the '%[2]s' column of '%[1]s' in the schema cache"),
		"sqlite":    memory.TextColumnError("table %s has no such column: %s"),
		"generic":   memory.TextColumnError("%s: unknown field %s"),
	}
	for name, style := range styles {
		t.Run(name, func(t *testing.T) {
			s := memory.New(memory.WithColumnError(style))
			s.DefineTable(schema.Products, "id", "stock")

			col := NewFieldResolver(s).Resolve(context.Background(), schema.Products, schema.StockColumns...)
			assert.Equal(t, "stock", col)
		})
	}
}

func TestFieldResolver_FallbackIsNotCached(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	s.DefineTable(schema.Incomes, "id", "amount")

	r := NewFieldResolver(s)
	assert.Equal(t, "owner_id", r.Resolve(ctx, schema.Incomes, schema.OwnerColumns...))
	assert.Equal(t, "owner_id", r.Resolve(ctx, schema.Incomes, schema.OwnerColumns...))

	assert.Equal(t, 4, s.Calls(memory.OpSelect, schema.Incomes))
	assert.Equal(t, int64(2), r.Stats().Fallbacks)
	assert.Empty(t, r.Stats().Resolved[schema.Incomes])
}

func TestFieldResolver_TransientErrorIsNotCached(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	s.DefineTable(schema.Loans, "id", "user_id")

	remove := s.FailOn(memory.OpSelect, schema.Loans, errors.New("connection reset by peer"))
	r := NewFieldResolver(s)
	assert.Equal(t, "owner_id", r.Resolve(ctx, schema.Loans, schema.OwnerColumns...))
	assert.Equal(t, 1, s.Calls(memory.OpSelect, schema.Loans))

	remove()
	assert.Equal(t, "user_id", r.Resolve(ctx, schema.Loans, schema.OwnerColumns...))
}

func TestFieldResolver_MissingTableIsNotCached(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	s.DefineTable(schema.Loans, "id", "user_id")

	remove := s.FailOn(memory.OpSelect, schema.Loans, &pgconn.PgError{
		Severity: "ERROR",
		Code:     "42P01",
		Message:  `relation "loans" does not exist`,
	})
	r := NewFieldResolver(s)
	assert.Equal(t, "owner_id", r.Resolve(ctx, schema.Loans, schema.OwnerColumns...))
	assert.Equal(t, 1, s.Calls(memory.OpSelect, schema.Loans), "no fallthrough to the next candidate")
	assert.Zero(t, r.Stats().Fallbacks)
	assert.Empty(t, r.Stats().Resolved[schema.Loans])

	remove()
	assert.Equal(t, "user_id", r.Resolve(ctx, schema.Loans, schema.OwnerColumns...))
	assert.Equal(t, "user_id", r.Stats().Resolved[schema.Loans]["owner_id"])
}

func TestFieldResolver_CatalogFirst(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	s.DefineTable(schema.Products, "id", "user_id", "stock")

	r := NewFieldResolver(s, WithColumnCatalog(s))
	assert.Equal(t, "stock", r.Resolve(ctx, schema.Products, schema.StockColumns...))
	assert.Equal(t, "user_id", r.Resolve(ctx, schema.Products, schema.OwnerColumns...))
	assert.Zero(t, s.Calls(memory.OpSelect, schema.Products), "catalog answered without probing")

	// Undeclared tables cannot be introspected, so the probe runs.
	assert.Equal(t, "owner_id", r.Resolve(ctx, schema.Loans, schema.OwnerColumns...))
	assert.Equal(t, 1, s.Calls(memory.OpSelect, schema.Loans))
}

func TestFieldResolver_StartWarmsGroups(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	for _, table := range schema.OwnedTables() {
		s.DefineTable(table, "id", "user_id", "stock")
	}

	r := NewFieldResolver(s, WithFieldGroups(OwnershipGroups()...))
	require.NoError(t, r.Start(ctx))
	require.NoError(t, r.Start(ctx), "second start is a no-op")

	stats := r.Stats()
	for _, table := range schema.OwnedTables() {
		assert.Equal(t, "user_id", stats.Resolved[table]["owner_id"], table)
	}
	assert.Equal(t, "stock", stats.Resolved[schema.Products]["stock_quantity"])

	s.ResetCalls()
	assert.Equal(t, "user_id", r.Resolve(ctx, schema.Transactions, schema.OwnerColumns...))
	assert.Zero(t, s.Calls(memory.OpSelect, schema.Transactions))

	r.Stop()
	assert.Empty(t, r.Stats().Resolved)
}

func TestFieldResolver_ConcurrentResolve(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	s.DefineTable(schema.Expenses, "id", "owner_id")
	r := NewFieldResolver(s)

	var wg sync.WaitGroup
	results := make([]string, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r.Resolve(ctx, schema.Expenses, schema.OwnerColumns...)
		}(i)
	}
	wg.Wait()

	for _, col := range results {
		assert.Equal(t, "owner_id", col)
	}
}

func TestFieldResolver_EmptyCandidates(t *testing.T) {
	r := NewFieldResolver(memory.New())
	assert.Equal(t, "", r.Resolve(context.Background(), "loans"))
}
