// Package v1 provides HTTP API version 1.
package v1

import (
	"time"

	"github.com/gin-gonic/gin"

	"bizledger/internal/domain/funding"
	"bizledger/internal/domain/investments"
	"bizledger/internal/domain/loans"
	"bizledger/internal/domain/reports"
	"bizledger/internal/domain/transactions"
	"bizledger/internal/infrastructure/cache"
	"bizledger/internal/infrastructure/http/v1/handlers"
	"bizledger/internal/infrastructure/http/v1/middleware"
	"bizledger/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for bearer token validation
	JWTValidator middleware.JWTValidator

	// Store is pinged by the readiness probe
	Store handlers.Pinger

	// Resolver is reported by the info endpoint
	Resolver *cache.FieldResolver

	// RequestTimeout bounds every API request; zero disables it
	RequestTimeout time.Duration

	// Debug switches gin to debug mode
	Debug bool

	Loans        *loans.Service
	Investments  *investments.Service
	Funding      *funding.Service
	Transactions *transactions.Service
	Reports      *reports.Service
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth)
	healthHandler := handlers.NewHealthHandler(cfg.Store, cfg.Resolver)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	// API v1
	v1 := router.Group("/api/v1")
	v1.Use(middleware.Auth(cfg.JWTValidator))
	v1.Use(middleware.Timeout(cfg.RequestTimeout))
	{
		base := handlers.NewBaseHandler()
		registerLoanRoutes(v1, base, cfg)
		registerTransactionRoutes(v1, base, cfg)
		registerInvestmentRoutes(v1, base, cfg)
		registerFundingRoutes(v1, base, cfg)
		registerReportRoutes(v1, base, cfg)
	}

	return router
}

func registerLoanRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	if cfg.Loans == nil {
		return
	}
	h := handlers.NewLoanHandler(base, cfg.Loans)

	loanGroup := rg.Group("/loans")
	loanGroup.POST("", h.Create)
	loanGroup.GET("", h.List)
	loanGroup.GET("/:id", h.Get)
	loanGroup.DELETE("/:id", h.Delete)
	loanGroup.POST("/:id/default", h.MarkDefaulted)

	rg.POST("/installments/:id/pay", h.PayInstallment)
}

func registerTransactionRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	if cfg.Transactions == nil {
		return
	}
	h := handlers.NewTransactionHandler(base, cfg.Transactions)

	txGroup := rg.Group("/transactions")
	txGroup.POST("", h.Create)
	txGroup.GET("", h.List)
	txGroup.GET("/:id", h.Get)
	txGroup.PUT("/:id/items", h.UpdateItems)
	txGroup.DELETE("/:id", h.Delete)
}

func registerInvestmentRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	if cfg.Investments == nil {
		return
	}
	h := handlers.NewInvestmentHandler(base, cfg.Investments)

	invGroup := rg.Group("/investments")
	invGroup.POST("", h.Create)
	invGroup.GET("/:id", h.Get)
	invGroup.POST("/:id/returns", h.RecordReturn)

	rg.DELETE("/investment-returns/:id", h.DeleteReturn)
}

func registerFundingRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	if cfg.Funding == nil {
		return
	}
	h := handlers.NewFundingHandler(base, cfg.Funding)

	fundingGroup := rg.Group("/fundings")
	fundingGroup.POST("", h.Create)
	fundingGroup.GET("/:id", h.Get)
	fundingGroup.POST("/:id/payments", h.RecordPayment)

	rg.POST("/profit-payments/:id/pay", h.MarkPaid)
}

func registerReportRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	if cfg.Reports == nil {
		return
	}
	h := handlers.NewReportsHandler(base, cfg.Reports)

	rg.GET("/reports/summary", h.Summary)
}
