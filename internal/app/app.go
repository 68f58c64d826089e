package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ledgerpay/transfer/internal/api"
	"github.com/ledgerpay/transfer/internal/api/handler"
	"github.com/ledgerpay/transfer/internal/config"
	"github.com/ledgerpay/transfer/internal/db"
	"github.com/ledgerpay/transfer/internal/idempotency"
	"github.com/ledgerpay/transfer/internal/observability"
	"github.com/ledgerpay/transfer/internal/repository"
	"github.com/ledgerpay/transfer/internal/service"
	"github.com/ledgerpay/transfer/internal/worker"
)

// Run bootstraps the HTTP server and background workers, blocking until
// shutdown.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	observability.Init()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL, "file://migrations"); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	redisClient, err := newRedisClient(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close()

	store := repository.NewStore(pool)
	ledgerRepo := repository.NewLedgerRepo()
	holdRepo := repository.NewHoldRepo()
	accountRepo := repository.NewAccountRepo(ledgerRepo, holdRepo)
	txnRepo := repository.NewTransactionRepo()

	idemStore := idempotency.NewStore(redisClient, store.DB(), txnRepo, cfg.IdempotencyTTL)
	rateProvider := service.NewConfigurableExchangeRateProvider(cfg.FXRates)

	engine := service.NewTransferEngine(store, accountRepo, holdRepo, ledgerRepo, txnRepo,
		rateProvider, idemStore, service.EngineConfig{
			FXDebitPoolID:  cfg.FXDebitPoolID,
			FXCreditPoolID: cfg.FXCreditPoolID,
			HoldTTL:        cfg.HoldTTL,
		})
	accountSvc := service.NewAccountService(store, accountRepo, ledgerRepo)

	expiryWorker := worker.NewHoldExpiryWorker(
		service.NewHoldMaintenanceService(store, holdRepo),
	).WithInterval(cfg.HoldSweepInterval)
	reconWorker := worker.NewReconciliationWorker(
		service.NewReconciliationService(store, ledgerRepo),
	).WithInterval(cfg.ReconciliationInterval)

	stopExpiry := expiryWorker.Run(ctx)
	stopRecon := reconWorker.Run(ctx)
	logger.Info("workers started",
		zap.Duration("hold_sweep_interval", cfg.HoldSweepInterval),
		zap.Duration("reconciliation_interval", cfg.ReconciliationInterval))

	router := api.NewRouter(api.RouterConfig{
		Logger:       logger,
		Transfers:    handler.NewTransferHandler(engine),
		Accounts:     handler.NewAccountHandler(accountSvc),
		Health:       handler.NewHealthHandler(pool, redisClient),
		RateLimitRPS: cfg.RateLimitRPS,
		JWTSecret:    cfg.JWTSecret,
	})

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("port", cfg.HTTPPort))
		serverErr <- server.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("stopping workers")
	stopExpiry()
	stopRecon()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	switch strings.ToLower(level) {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info", "":
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}

func newRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
