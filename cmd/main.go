package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/clothingstore/catalog-service/internal/adapter/cache/redis"
	"github.com/clothingstore/catalog-service/internal/adapter/httpapi"
	natsadapter "github.com/clothingstore/catalog-service/internal/adapter/messaging/nats"
	"github.com/clothingstore/catalog-service/internal/adapter/repository/mongodb"
	"github.com/clothingstore/catalog-service/internal/config"
	"github.com/clothingstore/catalog-service/internal/platform/logger"
	"github.com/clothingstore/catalog-service/internal/platform/metrics"
	"github.com/clothingstore/catalog-service/internal/platform/tracer"
	"github.com/clothingstore/catalog-service/internal/port/cache"
	"github.com/clothingstore/catalog-service/internal/usecase"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// A missing .env file is fine outside local development.
	_ = godotenv.Load()

	appLogger := logger.NewLogger()
	defer appLogger.Sync()

	cfg, err := config.LoadConfig(appLogger)
	if err != nil {
		appLogger.Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp := tracer.InitTracer(cfg.ServiceName, cfg.OTExporterOTLPEndpoint, appLogger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			appLogger.Error("Failed to shut down tracer provider", zap.Error(err))
		}
	}()

	mongoClient, err := mongodb.NewClient(ctx, cfg.MongoURI, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongoClient.Disconnect(disconnectCtx); err != nil {
			appLogger.Error("Failed to disconnect from MongoDB", zap.Error(err))
		}
	}()
	db := mongoClient.Database(cfg.MongoDatabase)

	var cacheRepo cache.Repository
	redisClient, err := redis.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, appLogger)
	if err != nil {
		appLogger.Warn("Redis unavailable, store cache disabled", zap.Error(err))
	} else {
		defer redisClient.Close()
		cacheRepo = redis.NewCacheRepository(redisClient, appLogger)
	}

	var notifier usecase.ReplyNotifier
	publisher, err := natsadapter.NewPublisher(cfg.NATSURL, appLogger, cfg.ServiceName)
	if err != nil {
		appLogger.Warn("NATS unavailable, reply notifications disabled", zap.Error(err))
	} else {
		defer publisher.Close()
		notifier = publisher
	}

	metricsManager := metrics.NewManager("catalog_service")
	go func() {
		if err := metrics.StartMetricsServer(cfg.PrometheusMetricsPort, appLogger, metricsManager.Registry); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("Metrics server failed", zap.Error(err))
		}
	}()

	storeRepo := mongodb.NewStoreRepository(db, appLogger)
	cacheTTL := time.Duration(cfg.StoreCacheTTLSeconds) * time.Second
	storeUC := usecase.NewStoreUsecase(storeRepo, cacheRepo, cacheTTL, appLogger)
	reviewUC := usecase.NewReviewUsecase(storeRepo, notifier, cacheRepo, metricsManager, appLogger)

	handler := httpapi.NewHandler(storeUC, reviewUC, metricsManager, appLogger)
	router := httpapi.NewRouter(handler, cfg.JWTSecret, metricsManager, appLogger)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.Info("HTTP server starting", zap.String("port", cfg.HTTPPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	appLogger.Info("Shutdown signal received, stopping HTTP server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Graceful shutdown failed", zap.Error(err))
	}
	appLogger.Info("Service stopped")
}
