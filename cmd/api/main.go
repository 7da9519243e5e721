package main

import (
	"fmt"

	"tabung/internal/config"
	"tabung/internal/database"
	"tabung/internal/logger"
	"tabung/internal/server"
	"tabung/internal/validator"
)

// @title           Tabung API
// @version         1.0
// @description     Tabung records the cash flows of market tenants and organizers, allocates revenue into savings buckets and drives rental payment approvals.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @securityDefinitions.apikey InternalAPIKey
// @in header
// @name X-API-Key

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	logger.Init(cfg.Env, cfg.LogLevel)
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run(cfg *config.Config) error {
	log := logger.Get()

	dbManager, err := database.NewManager(database.NewConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			log.Warnw("failed to close database", "error", err)
		}
	}()

	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	validator.Register()
	router := server.NewRouter(cfg, server.NewServices(dbManager.DB()))

	if cfg.InternalAPIKey == "" {
		log.Warn("INTERNAL_API_KEY is not set; internal endpoints are disabled")
	}
	log.Infof("Starting Tabung API on port %s", cfg.Port)
	log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", cfg.Port)
	return router.Run(":" + cfg.Port)
}
