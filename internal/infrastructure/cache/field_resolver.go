// Package cache holds process-wide caches. FieldResolver memoises which
// physical column a deployment uses for a logical field.
package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/jackc/pgx/v5/pgconn"

	"bizledger/internal/core/apperror"
	"bizledger/internal/core/schema"
	"bizledger/internal/core/store"
	"bizledger/pkg/logger"
)

// undefinedColumnCode is PostgreSQL's SQLSTATE for undefined_column.
const undefinedColumnCode = "42703"

// undefinedColumnHints are message fragments hosted backends use when a
// column is missing. Checked case-insensitively.
var undefinedColumnHints = []string{
	"does not exist",
	"schema cache",
	"unknown field",
	"could not find",
	"no such column",
}

// IsUndefinedColumn reports whether err means the referenced column does not exist.
// A missing table (42P01) is not a column answer; callers treat it as transient.
func IsUndefinedColumn(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 42P01 and every other SQLSTATE are authoritative non-answers.
		return pgErr.Code == undefinedColumnCode
	}
	msg := strings.ToLower(err.Error())
	if isUndefinedTable(msg) {
		return false
	}
	for _, hint := range undefinedColumnHints {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}

// isUndefinedTable matches text errors like `relation "loans" does not exist`.
// `column "x" of relation "loans" does not exist` is still a column error.
func isUndefinedTable(msg string) bool {
	if !strings.Contains(msg, "does not exist") || strings.Contains(msg, "column") {
		return false
	}
	return strings.Contains(msg, "relation ") || strings.Contains(msg, "table ")
}

// Prober runs the zero-row selects used to test a candidate column.
type Prober interface {
	Select(ctx context.Context, q store.Query) ([]store.Row, error)
}

// ColumnCatalog lists the columns a table has, when the store can introspect.
type ColumnCatalog interface {
	Columns(ctx context.Context, table string) (map[string]bool, error)
}

// FieldGroup is one logical field on a table with its candidate column names.
type FieldGroup struct {
	Table      string
	Candidates []string
}

// ResolverStats is a snapshot of the resolver's cache.
type ResolverStats struct {
	Resolved  map[string]map[string]string `json:"resolved"` // table -> preferred candidate -> column
	Probes    int64                        `json:"probes"`
	Fallbacks int64                        `json:"fallbacks"`
}

// Option configures a FieldResolver.
type Option func(*FieldResolver)

// WithColumnCatalog makes the resolver consult catalog before probing.
func WithColumnCatalog(catalog ColumnCatalog) Option {
	return func(r *FieldResolver) { r.catalog = catalog }
}

// WithFieldGroups registers groups to warm on Start.
func WithFieldGroups(groups ...FieldGroup) Option {
	return func(r *FieldResolver) { r.groups = append(r.groups, groups...) }
}

// FieldResolver resolves a logical field to a physical column and caches the
// answer per table for its lifetime. Only confirmed columns are cached; a
// fallback or a transient probe failure is retried on the next call.
type FieldResolver struct {
	prober  Prober
	catalog ColumnCatalog
	groups  []FieldGroup

	mu       sync.RWMutex
	resolved map[string]map[string]string // table -> first candidate -> column

	probes    atomic.Int64
	fallbacks atomic.Int64

	lifecycleMu sync.Mutex
	started     bool
}

// Compile-time check that FieldResolver implements schema.Resolver.
var _ schema.Resolver = (*FieldResolver)(nil)

// NewFieldResolver creates a resolver probing through prober.
func NewFieldResolver(prober Prober, opts ...Option) *FieldResolver {
	r := &FieldResolver{
		prober:   prober,
		resolved: make(map[string]map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start resolves every registered field group so the first requests do not
// pay for probing. It never fails on unresolved groups; those log a warning.
func (r *FieldResolver) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	r.lifecycleMu.Lock()
	defer r.lifecycleMu.Unlock()
	if r.started {
		return nil
	}

	for _, g := range r.groups {
		if err := ctx.Err(); err != nil {
			return err
		}
		col := r.Resolve(ctx, g.Table, g.Candidates...)
		logger.Debug(ctx, "field resolved", "table", g.Table, "candidates", g.Candidates, "column", col)
	}
	r.started = true
	logger.Info(ctx, "field resolver started", "groups", len(r.groups))
	return nil
}

// Stop drops the cache. A later Start warms it again.
func (r *FieldResolver) Stop() {
	r.lifecycleMu.Lock()
	defer r.lifecycleMu.Unlock()
	if !r.started {
		return
	}
	r.started = false

	r.mu.Lock()
	r.resolved = make(map[string]map[string]string)
	r.mu.Unlock()
	logger.Info(context.Background(), "field resolver stopped")
}

// Resolve returns the first candidate that exists on table.
// When none can be confirmed it returns candidates[0] and logs a
// SchemaShapeUnresolved warning.
func (r *FieldResolver) Resolve(ctx context.Context, table string, candidates ...string) string {
	if len(candidates) == 0 {
		return ""
	}
	key := candidates[0]

	if col, ok := r.cached(table, key); ok {
		return col
	}

	if r.catalog != nil {
		if col, ok := r.fromCatalog(ctx, table, candidates); ok {
			return col
		}
	}

	for _, c := range candidates {
		r.probes.Add(1)
		_, err := r.prober.Select(ctx, store.Probe(table, c))
		if err == nil {
			r.store(table, key, c)
			return c
		}
		if IsUndefinedColumn(err) {
			continue
		}
		// Not a shape answer. Use the candidate for this call but do not
		// remember it, so the next call probes again.
		logger.Warn(ctx, "column probe failed",
			"table", table, "column", c, "error", err)
		return c
	}

	r.fallbacks.Add(1)
	logger.Warn(ctx, "schema shape unresolved",
		"error", apperror.NewSchemaShapeUnresolved(table, candidates, key))
	return key
}

func (r *FieldResolver) fromCatalog(ctx context.Context, table string, candidates []string) (string, bool) {
	cols, err := r.catalog.Columns(ctx, table)
	if err != nil || len(cols) == 0 {
		logger.Debug(ctx, "column catalog unavailable, probing", "table", table, "error", err)
		return "", false
	}
	for _, c := range candidates {
		if cols[c] {
			r.store(table, candidates[0], c)
			return c, true
		}
	}
	// The catalog answered and none matched; probing would only repeat that.
	r.fallbacks.Add(1)
	logger.Warn(ctx, "schema shape unresolved",
		"error", apperror.NewSchemaShapeUnresolved(table, candidates, candidates[0]))
	return candidates[0], true
}

func (r *FieldResolver) cached(table, key string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	col, ok := r.resolved[table][key]
	return col, ok
}

func (r *FieldResolver) store(table, key, col string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.resolved[table] == nil {
		r.resolved[table] = make(map[string]string)
	}
	r.resolved[table][key] = col
}

// Stats returns a copy of the cache and probe counters.
func (r *FieldResolver) Stats() ResolverStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]map[string]string, len(r.resolved))
	for t, m := range r.resolved {
		inner := make(map[string]string, len(m))
		for k, v := range m {
			inner[k] = v
		}
		out[t] = inner
	}
	return ResolverStats{
		Resolved:  out,
		Probes:    r.probes.Load(),
		Fallbacks: r.fallbacks.Load(),
	}
}

// OwnershipGroups returns the owner-column group of every owned table plus the
// product stock group, for warming at startup.
func OwnershipGroups() []FieldGroup {
	groups := make([]FieldGroup, 0, len(schema.OwnedTables())+1)
	for _, t := range schema.OwnedTables() {
		groups = append(groups, FieldGroup{Table: t, Candidates: schema.OwnerColumns})
	}
	return append(groups, FieldGroup{Table: schema.Products, Candidates: schema.StockColumns})
}
