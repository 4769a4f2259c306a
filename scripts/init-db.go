package main

import (
	"context"
	"fmt"
	"log"

	"warkop_pos/internal/config"
	"warkop_pos/internal/database"
	"warkop_pos/internal/logger"
	"warkop_pos/internal/migrations"
	"warkop_pos/internal/repository"
	"warkop_pos/internal/services"
)

func main() {
	fmt.Println("Initializing database...")

	// Load configuration
	cfg := config.Load()

	zlog, err := logger.New(cfg.LogLevel, "console")
	if err != nil {
		log.Fatal("Failed to build logger:", err)
	}
	defer zlog.Sync()

	ctx := context.Background()
	db, pool, err := database.Initialize(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer pool.Close()

	fmt.Println("Creating tables...")
	if err := migrations.RunMigrations(db, zlog); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	fmt.Println("Creating default cashier, tables and menu...")
	store := repository.NewGormStore(db)
	cashiers := services.NewCashierService(store.Repos().Cashiers)
	if err := migrations.SeedDefaults(ctx, store, cashiers, zlog); err != nil {
		log.Fatal("Failed to seed default data:", err)
	}

	fmt.Println("Username: admin")
	fmt.Println("PIN: 1234")
	fmt.Println("Database initialization completed successfully!")
}
