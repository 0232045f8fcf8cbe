package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mileageapp "github.com/commerce/backend/internal/application/mileage"
	orderapp "github.com/commerce/backend/internal/application/ordering"
	"github.com/commerce/backend/internal/domain/mileage"
	"github.com/commerce/backend/internal/infrastructure/auth"
	"github.com/commerce/backend/internal/infrastructure/cache"
	"github.com/commerce/backend/internal/infrastructure/config"
	"github.com/commerce/backend/internal/infrastructure/logger"
	"github.com/commerce/backend/internal/infrastructure/persistence"
	"github.com/commerce/backend/internal/infrastructure/scheduler"
	"github.com/commerce/backend/internal/interfaces/http/handler"
	"github.com/commerce/backend/internal/interfaces/http/middleware"
	"github.com/commerce/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

//	@title			Commerce Backend API
//	@version		1.0
//	@description	Order, payment, and mileage subsystem for the commerce platform

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting commerce backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Database with zap-backed GORM logging
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	// Idempotency store: Redis in production, in-memory fallback
	// elsewhere when Redis is unreachable
	storeFactory := cache.NewIdempotencyStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	)
	idempotencyStore, err := storeFactory.CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() {
		if err := idempotencyStore.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()

	// Repositories
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	ledgerRepo := persistence.NewGormMileageLedgerRepository(db.DB)
	txRepo := persistence.NewGormMileageTransactionRepository(db.DB)

	// Application services
	accrualPolicy := mileage.NewFixedRatePolicy(decimal.NewFromFloat(cfg.Mileage.AccrualRate))
	ledgerService := mileageapp.NewLedgerService(
		ledgerRepo, txRepo, accrualPolicy, idempotencyStore, cfg.Mileage.Validity(), log,
	)

	retryConfig := scheduler.DefaultAccrualRetryConfig()
	retryConfig.QueueSize = cfg.Sweep.RetryQueueSize
	retryConfig.RetryInterval = cfg.Sweep.RetryInterval
	accrualRetryWorker := scheduler.NewAccrualRetryWorker(ledgerService, retryConfig, log)
	if err := accrualRetryWorker.Start(context.Background()); err != nil {
		log.Fatal("Failed to start accrual retry worker", zap.Error(err))
	}
	defer func() {
		if err := accrualRetryWorker.Stop(context.Background()); err != nil {
			log.Error("Error stopping accrual retry worker", zap.Error(err))
		}
	}()

	orderService := orderapp.NewOrderService(orderRepo, log)
	paymentService := orderapp.NewPaymentService(
		paymentRepo, orderRepo, ledgerService, accrualRetryWorker,
		cfg.Payment.SupportedCurrencies, log,
	)

	// Expiry sweep over due ledgers
	sweeper := scheduler.NewExpirySweeper(ledgerService, scheduler.ExpirySweeperConfig{
		Enabled:   cfg.Sweep.Enabled,
		Interval:  cfg.Sweep.Interval,
		BatchSize: cfg.Sweep.BatchSize,
	}, log)
	if err := sweeper.Start(context.Background()); err != nil {
		log.Fatal("Failed to start expiry sweeper", zap.Error(err))
	}
	defer func() {
		if err := sweeper.Stop(context.Background()); err != nil {
			log.Error("Error stopping expiry sweeper", zap.Error(err))
		}
	}()
	if cfg.Sweep.Enabled {
		log.Info("Expiry sweeper started",
			zap.Duration("interval", cfg.Sweep.Interval),
			zap.Int("batch_size", cfg.Sweep.BatchSize),
		)
	}

	// HTTP handlers
	jwtService := auth.NewJWTService(cfg.JWT)
	orderHandler := handler.NewOrderHandler(orderService)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	mileageHandler := handler.NewMileageHandler(ledgerService)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.SecurityHeaders())

	engine.GET("/health", healthHandler(db))

	actorConfig := middleware.DefaultActorConfig(jwtService)
	actorConfig.AllowHeaderFallback = cfg.App.Env == "development"

	router.NewRouter(engine,
		router.WithAPIVersion("v1"),
		router.WithMiddleware(middleware.Actor(actorConfig)),
	).
		Register(orderHandler).
		Register(paymentHandler).
		Register(mileageHandler).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler reports liveness and database reachability
func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			logger.GetGinLogger(c).Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
