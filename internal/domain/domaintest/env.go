// Package domaintest wires domain services over the in-memory row store for tests.
package domaintest

import (
	"context"
	"time"

	appctx "bizledger/internal/core/context"
	"bizledger/internal/domain"
	"bizledger/internal/domain/events"
	"bizledger/internal/infrastructure/cache"
	"bizledger/internal/infrastructure/storage/memory"
)

// Owner is the owner id carried by Env.Ctx.
const Owner = "owner-1"

// Now is the fixed clock of every Env.
var Now = time.Date(2025, time.March, 10, 9, 30, 0, 0, time.UTC)

// Env is a memory store with a resolver, recorder and deps built over it.
type Env struct {
	Store    *memory.Store
	Resolver *cache.FieldResolver
	Events   *events.Recorder
	Deps     domain.Deps
	Ctx      context.Context
}

// New builds an Env. shape is applied to the store before the resolver sees it.
func New(shape ...func(*memory.Store)) *Env {
	s := memory.New()
	for _, fn := range shape {
		fn(s)
	}
	r := cache.NewFieldResolver(s)
	rec := &events.Recorder{}
	return &Env{
		Store:    s,
		Resolver: r,
		Events:   rec,
		Deps:     domain.NewDeps(s, r, rec, func() time.Time { return Now }),
		Ctx:      appctx.WithOwnerID(context.Background(), Owner),
	}
}

// As returns a context acting as another owner.
func (e *Env) As(owner string) context.Context {
	return appctx.WithOwnerID(context.Background(), owner)
}

// UserIDShape declares tables with a user_id ownership column instead of owner_id.
func UserIDShape(tables ...string) func(*memory.Store) {
	return func(s *memory.Store) {
		for _, t := range tables {
			s.DefineTable(t, columnsFor(t, "user_id")...)
		}
	}
}

// OwnerIDShape declares tables with the owner_id ownership column.
func OwnerIDShape(tables ...string) func(*memory.Store) {
	return func(s *memory.Store) {
		for _, t := range tables {
			s.DefineTable(t, columnsFor(t, "owner_id")...)
		}
	}
}
