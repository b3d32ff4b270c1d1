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

	"github.com/opticplace/opticplace-backend/config"
	"github.com/opticplace/opticplace-backend/internal/app/controller"
	"github.com/opticplace/opticplace-backend/internal/app/repository"
	"github.com/opticplace/opticplace-backend/internal/app/service"
	"github.com/opticplace/opticplace-backend/internal/cache"
	"github.com/opticplace/opticplace-backend/internal/db"
	"github.com/opticplace/opticplace-backend/internal/middleware"
	"github.com/opticplace/opticplace-backend/internal/router"
	"github.com/opticplace/opticplace-backend/internal/storage"
	"github.com/opticplace/opticplace-backend/internal/websocket"
	"github.com/opticplace/opticplace-backend/pkg/logger"
	"github.com/opticplace/opticplace-backend/pkg/redis"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	logLevel := "info"
	logFormat := "json"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
		logFormat = "console"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      logFormat,
		EnableColor: logFormat == "console",
	})

	logger.Info("Starting OpticPlace backend", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}
	if err := db.Seed(); err != nil {
		logger.Warn("Failed to seed database", map[string]interface{}{
			"error": err.Error(),
		})
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// the facet cache and report uploads are optional
	var catalogCache service.CatalogCache
	if cfg.Redis.Enabled() {
		client, err := redis.Init(&cfg.Redis)
		if err != nil {
			logger.Warn("Redis unavailable, facet cache disabled", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			defer redis.Close()
			catalogCache = cache.NewCatalogCache(client, cfg.Redis.CacheTTL)
		}
	}

	var reportStorage service.ReportStorage
	if cfg.S3.Enabled() {
		reportStorage = storage.NewS3Storage(cfg.S3.Region, cfg.S3.Bucket, cfg.S3.AccessKeyID, cfg.S3.SecretAccessKey)
	}

	hub := websocket.NewHub()
	go hub.Run(ctx)

	database := db.GetDB()
	attributeRepo := repository.NewAttributeRepository(database)
	categoryRepo := repository.NewCategoryRepository(database)
	productRepo := repository.NewProductRepository(database)
	variantRepo := repository.NewVariantRepository(database)
	catalogRepo := repository.NewCatalogRepository(database)
	orderRepo := repository.NewOrderRepository(database)
	couponRepo := repository.NewCouponRepository(database)

	catalogService := service.NewCatalogService(catalogRepo, categoryRepo, attributeRepo, service.FacetSettings{
		ShowCounts: cfg.Catalog.FacetShowCounts,
		MaxValues:  cfg.Catalog.FacetMaxValues,
	}, catalogCache)
	productService := service.NewProductService(database, productRepo, catalogCache)
	variantService := service.NewVariantService(database, productRepo, variantRepo, attributeRepo, catalogCache, cfg.Catalog.MaxVariantCombinations)
	categoryService := service.NewCategoryService(categoryRepo, catalogCache)
	orderService := service.NewOrderService(database, orderRepo, couponRepo, cfg.Catalog.ShippingRates, hub, catalogCache)
	reportService := service.NewReportService(variantRepo, reportStorage)

	r := router.NewRouter(
		controller.NewCatalogController(catalogService, productService),
		controller.NewProductController(productService, variantService, categoryService),
		controller.NewOrderController(orderService),
		controller.NewReportController(reportService),
		controller.NewOrderStreamController(hub, cfg.CORS.AllowedOrigins),
		middleware.NewAuthMiddleware(cfg.JWT.Secret),
		cfg,
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           r.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server started", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown did not complete", err)
	}
	logger.Info("Server stopped")
}
