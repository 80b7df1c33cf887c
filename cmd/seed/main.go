// Package main provides a CLI tool that seeds demo products for an owner and
// prints a development access token for that owner.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"bizledger/internal/config"
	"bizledger/internal/core/id"
	"bizledger/internal/core/schema"
	"bizledger/internal/core/store"
	"bizledger/internal/domain/auth"
	"bizledger/internal/infrastructure/cache"
	"bizledger/internal/infrastructure/storage/postgres"
	"bizledger/pkg/logger"
)

type productSeed struct {
	name  string
	stock int64
}

var demoProducts = []productSeed{
	{"Kopi Arabika 250g", 40},
	{"Teh Melati 100g", 25},
	{"Gula Aren 500g", 60},
	{"Susu UHT 1L", 18},
}

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalw("invalid configuration", "error", err)
	}
	if cfg.StoreDriver != config.DriverPostgres {
		log.Fatal("seeding requires STORE_DRIVER=postgres")
	}

	ownerID := os.Getenv("SEED_OWNER_ID")
	if ownerID == "" {
		ownerID = id.New().String()
	}

	ctx := context.Background()

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.DatabaseURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	rows := postgres.NewRowStore(pool)
	resolver := cache.NewFieldResolver(rows, cache.WithColumnCatalog(rows))

	if os.Getenv("SEED_DEMO_DATA") != "false" {
		if err := seedProducts(ctx, rows, resolver, ownerID, log); err != nil {
			log.Fatalw("failed to seed products", "error", err)
		}
	}

	secret := cfg.JWTSecret
	if secret == "" {
		secret = "bizledger-dev-secret"
	}
	jwtCfg := auth.DefaultJWTConfig(secret)
	jwtCfg.AccessTokenTTL = 24 * time.Hour
	token, expires, err := auth.NewJWTService(jwtCfg).GenerateAccessToken(ownerID, "")
	if err != nil {
		log.Fatalw("failed to issue token", "error", err)
	}

	log.Infow("seeding completed successfully", "owner_id", ownerID, "token_expires_at", expires)
	fmt.Println(token)
}

func seedProducts(ctx context.Context, s store.RowStore, r schema.Resolver, ownerID string, log *logger.Logger) error {
	ownerCol := schema.OwnerColumn(ctx, r, schema.Products)
	stockCol := schema.StockColumn(ctx, r)

	existing, err := s.Select(ctx, store.Query{
		Table:   schema.Products,
		Columns: []string{"id"},
		Where:   store.Eq{ownerCol: ownerID},
		Limit:   store.Limit(1),
	})
	if err != nil {
		return fmt.Errorf("check products: %w", err)
	}
	if len(existing) > 0 {
		log.Infow("owner already has products, skipping", "owner_id", ownerID)
		return nil
	}

	batch := make([]store.Row, 0, len(demoProducts))
	for _, p := range demoProducts {
		batch = append(batch, store.Row{
			"id":     id.New(),
			ownerCol: ownerID,
			"name":   p.name,
			stockCol: p.stock,
		})
	}
	if err := s.Insert(ctx, schema.Products, batch...); err != nil {
		return fmt.Errorf("insert products: %w", err)
	}

	log.Infow("products seeded", "count", len(batch), "owner_column", ownerCol, "stock_column", stockCol)
	return nil
}
