package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"warkop_pos/internal/config"
	"warkop_pos/internal/database"
	"warkop_pos/internal/handlers"
	"warkop_pos/internal/lock"
	"warkop_pos/internal/logger"
	"warkop_pos/internal/migrations"
	"warkop_pos/internal/redis"
	"warkop_pos/internal/repository"
	"warkop_pos/internal/repository/memory"
	"warkop_pos/internal/services"
	"warkop_pos/pkg/whatsapp"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.Load()

	zlog, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatal("Failed to build logger:", err)
	}
	defer zlog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize store
	var store repository.Store
	switch cfg.StoreDriver {
	case "memory":
		zlog.Warn("using in-memory store, data is lost on restart")
		store = memory.New()
	default:
		db, pool, err := database.Initialize(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
		if err != nil {
			zlog.Fatal("failed to connect to database", zap.Error(err))
		}
		defer pool.Close()
		if err := migrations.RunMigrations(db, zlog); err != nil {
			zlog.Fatal("failed to migrate database", zap.Error(err))
		}
		store = repository.NewGormStore(db)
	}

	// Initialize locks and the availability cache
	var locker lock.Locker
	var cache services.AvailabilityCache
	switch cfg.LockDriver {
	case "memory":
		locker = lock.NewMemory()
	default:
		redisClient, err := redis.Initialize(cfg.RedisURL)
		if err != nil {
			zlog.Fatal("failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		locker = redisClient
		cache = redisClient
	}

	// Initialize notifier
	var notifier services.Notifier = services.NopNotifier{}
	if cfg.WhatsAppAPIURL != "" && cfg.OwnerPhone != "" {
		whatsappClient := whatsapp.NewClient(cfg.WhatsAppAPIURL, cfg.WhatsAppUsername, cfg.WhatsAppPassword, cfg.WhatsAppPath)
		notifier = services.NewWhatsAppNotifier(whatsappClient, cfg.OwnerPhone, zlog)
	}

	// Initialize services
	retry := services.RetryPolicy{Attempts: cfg.RetryAttempts, Backoff: cfg.RetryBackoff}
	orderOpts := services.OrderOptions{LockTTL: cfg.LockTTL, RequestTimeout: cfg.RequestTimeout}

	cashierService := services.NewCashierService(store.Repos().Cashiers)
	stockLedger := services.NewStockLedger(store, cache, services.ParseNegativeStockPolicy(cfg.NegativeStockPolicy), retry, zlog)
	recipeResolver := services.NewRecipeResolver(store, stockLedger, cache, cfg.AvailabilityCacheTTL, retry, zlog)
	shiftLedger := services.NewShiftLedger(store, cfg.VarianceTolerance, retry, zlog)
	tableService := services.NewTableService(store, zlog)
	orderService := services.NewOrderService(store, recipeResolver, shiftLedger, tableService, notifier, locker, orderOpts, retry, zlog)
	billMerger := services.NewBillMerger(store, tableService, locker, orderOpts, retry, zlog)

	if cfg.SeedDefaults {
		if err := migrations.SeedDefaults(ctx, store, cashierService, zlog); err != nil {
			zlog.Fatal("failed to seed default data", zap.Error(err))
		}
	}

	// Setup routes
	router := gin.Default()
	apiHandler := handlers.NewAPIHandler(orderService, billMerger, recipeResolver, stockLedger, shiftLedger, tableService, cashierService, store, zlog)
	apiHandler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zlog.Info("server starting", zap.String("port", cfg.ServerPort), zap.String("store", cfg.StoreDriver), zap.String("locks", cfg.LockDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zlog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("graceful shutdown failed", zap.Error(err))
	}
}
