// Package main is the entry point for the bizledger API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bizledger/internal/config"
	"bizledger/internal/core/store"
	"bizledger/internal/domain"
	"bizledger/internal/domain/auth"
	"bizledger/internal/domain/events"
	"bizledger/internal/domain/funding"
	"bizledger/internal/domain/investments"
	"bizledger/internal/domain/loans"
	"bizledger/internal/domain/reports"
	"bizledger/internal/domain/transactions"
	"bizledger/internal/infrastructure/cache"
	"bizledger/internal/infrastructure/events/kafka"
	v1 "bizledger/internal/infrastructure/http/v1"
	"bizledger/internal/infrastructure/storage/memory"
	"bizledger/internal/infrastructure/storage/postgres"
	"bizledger/pkg/logger"
)

// rowStore is what the server needs from a store driver.
type rowStore interface {
	store.RowStore
	Ping(ctx context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.Development(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	ctx := context.Background()
	log.Infow("starting bizledger server", "env", cfg.Env, "store", cfg.StoreDriver)

	// --- Row store ---
	var (
		rows         rowStore
		resolverOpts = []cache.Option{cache.WithFieldGroups(cache.OwnershipGroups()...)}
	)
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL)
		poolCfg.MaxConns = int32(cfg.DBMaxConns)
		pool, err := postgres.NewPool(ctx, poolCfg)
		if err != nil {
			log.Fatalw("failed to connect to database", "error", err)
		}
		defer pool.Close()
		pool.LogStats(ctx)

		pg := postgres.NewRowStore(pool)
		rows = pg
		resolverOpts = append(resolverOpts, cache.WithColumnCatalog(pg))
	default:
		log.Warn("using in-memory store, data is lost on restart")
		rows = memory.New()
	}

	// --- Field resolver ---
	resolver := cache.NewFieldResolver(rows, resolverOpts...)
	if err := resolver.Start(ctx); err != nil {
		log.Fatalw("failed to warm field resolver", "error", err)
	}
	defer resolver.Stop()

	// --- Domain events ---
	var publisher events.Publisher = events.Nop{}
	if cfg.KafkaEnabled() {
		kp := kafka.NewPublisher(kafka.Config{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
		})
		defer func() {
			if err := kp.Close(); err != nil {
				log.Warnw("failed to close kafka publisher", "error", err)
			}
		}()
		publisher = kp
		log.Infow("publishing domain events", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	// --- JWT Service ---
	jwtSecret := cfg.JWTSecret
	if jwtSecret == "" {
		log.Warn("JWT_SECRET not set, using development secret")
		jwtSecret = "bizledger-dev-secret"
	}
	jwtService := auth.NewJWTService(auth.DefaultJWTConfig(jwtSecret))

	// --- Services ---
	deps := domain.NewDeps(rows, resolver, publisher, nil)

	router := v1.NewRouter(v1.RouterConfig{
		Logger:         log,
		JWTValidator:   jwtService,
		Store:          rows,
		Resolver:       resolver,
		RequestTimeout: cfg.RequestTimeout,
		Debug:          cfg.Development(),
		Loans:          loans.NewService(deps),
		Investments:    investments.NewService(deps),
		Funding:        funding.NewService(deps),
		Transactions:   transactions.NewService(deps),
		Reports:        reports.NewService(reports.NewStoreRepository(rows, resolver), deps.Clock),
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Infow("server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}
