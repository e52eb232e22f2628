package main

import (
	"log"

	"github.com/ikkim/storefront/config"
	"github.com/ikkim/storefront/internal/db"
	"github.com/ikkim/storefront/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.Initialize(logger.Config{
		Level:  "info",
		Format: cfg.Log.Format,
	})

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(db.GetDB()); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	if err := db.Seed(db.GetDB()); err != nil {
		log.Fatal("Failed to seed database:", err)
	}

	log.Printf("Seed completed: %d products, demo user %s", len(db.Catalog()), db.DemoUserEmail)
}
