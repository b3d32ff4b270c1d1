package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/opticplace/opticplace-backend/config"
	"github.com/opticplace/opticplace-backend/internal/app/repository"
	"github.com/opticplace/opticplace-backend/internal/app/service"
	"github.com/opticplace/opticplace-backend/internal/cache"
	"github.com/opticplace/opticplace-backend/internal/db"
	"github.com/opticplace/opticplace-backend/internal/feed"
	"github.com/opticplace/opticplace-backend/pkg/logger"
	"github.com/opticplace/opticplace-backend/pkg/redis"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: go run cmd/feed/main.go <feed.xlsx> [--yes]")
		os.Exit(2)
	}
	filePath := os.Args[1]
	assumeYes := len(os.Args) > 2 && os.Args[2] == "--yes"

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}
	logger.Initialize(logger.Config{Level: "info", Format: "console", EnableColor: true})

	file, err := os.Open(filePath)
	if err != nil {
		logger.Fatal("Failed to open feed", err, map[string]interface{}{"path": filePath})
	}
	rows, invalid, err := feed.Parse(file)
	file.Close()
	if err != nil {
		logger.Fatal("Failed to parse feed", err, map[string]interface{}{"path": filePath})
	}

	fmt.Printf("Feed %s: %d products, %d malformed rows\n", filePath, len(rows), len(invalid))
	for _, e := range invalid {
		fmt.Printf("  skipped %s\n", e.Error())
	}
	if len(rows) == 0 {
		return
	}

	if !assumeYes {
		fmt.Print("Do you want to proceed with the import? (yes/no): ")
		answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer != "yes" && answer != "y" {
			fmt.Println("Import cancelled.")
			return
		}
	}

	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to connect to database", err)
	}
	defer db.Close()

	// storefront caches must see the imported products
	var catalogCache service.CatalogCache
	if cfg.Redis.Enabled() {
		if client, err := redis.Init(&cfg.Redis); err == nil {
			defer redis.Close()
			catalogCache = cache.NewCatalogCache(client, cfg.Redis.CacheTTL)
		} else {
			logger.Warn("Redis unavailable, cached facets will expire on their own", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	database := db.GetDB()
	productRepo := repository.NewProductRepository(database)
	importer := feed.NewImporter(
		service.NewProductService(database, productRepo, catalogCache),
		service.NewVariantService(
			database, productRepo,
			repository.NewVariantRepository(database),
			repository.NewAttributeRepository(database),
			catalogCache, cfg.Catalog.MaxVariantCombinations,
		),
	)

	summary := importer.Import(rows)
	fmt.Println("Import completed.")
	fmt.Printf("  Products upserted: %d\n", summary.Products)
	fmt.Printf("  Variants created:  %d\n", summary.Variants)
	fmt.Printf("  Failed rows:       %d\n", len(summary.Failed))
	for _, e := range summary.Failed {
		fmt.Printf("    %s\n", e.Error())
	}
	if len(summary.Failed) > 0 {
		os.Exit(1)
	}
}
