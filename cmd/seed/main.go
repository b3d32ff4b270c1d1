package main

import (
	"flag"
	"fmt"

	"github.com/opticplace/opticplace-backend/config"
	"github.com/opticplace/opticplace-backend/internal/app/model"
	"github.com/opticplace/opticplace-backend/internal/db"
	"github.com/opticplace/opticplace-backend/pkg/logger"
	"github.com/opticplace/opticplace-backend/pkg/util"
)

// seed prepares a fresh database: schema, reference attributes and the starter category tree.
// In development it can also print an admin token for local tooling.
func main() {
	adminToken := flag.Bool("admin-token", false, "print a development admin access token")
	tokenTTL := flag.Duration("token-ttl", 0, "lifetime of the printed token, defaults to JWT_ACCESS_TOKEN_EXPIRY")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}
	logger.Initialize(logger.Config{Level: "info", Format: "console", EnableColor: true})

	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to connect to database", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}
	if err := db.Seed(); err != nil {
		logger.Fatal("Failed to seed attributes", err)
	}
	if err := db.SeedCategories(db.GetDB()); err != nil {
		logger.Fatal("Failed to seed categories", err)
	}
	fmt.Println("Seed completed.")

	if !*adminToken {
		return
	}
	if cfg.Server.Environment != "development" {
		logger.Warn("Refusing to mint an admin token outside development", map[string]interface{}{
			"environment": cfg.Server.Environment,
		})
		return
	}
	ttl := *tokenTTL
	if ttl <= 0 {
		ttl = cfg.JWT.AccessTokenExpiry
	}
	token, err := util.GenerateAccessToken(1, "admin@localhost", string(model.RoleAdmin), cfg.JWT.Secret, ttl)
	if err != nil {
		logger.Fatal("Failed to sign admin token", err)
	}
	fmt.Println(token)
}
