// Command captestd serves the capacity-test HTTP API.
package main

import (
	"context"
	"log"
	"net/http"

	"github.com/joho/godotenv"

	"github.com/rlpappan/pvcaptest/adapters/postgres"
	"github.com/rlpappan/pvcaptest/app"
	"github.com/rlpappan/pvcaptest/internal/api"
	"github.com/rlpappan/pvcaptest/internal/config"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	var store api.RunStore
	if cfg.Database.URL != "" {
		db, err := postgres.Connect(context.Background(), cfg.Database.URL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		repo := postgres.NewRunRepository(db)
		if err := repo.EnsureSchema(context.Background()); err != nil {
			log.Fatalf("Failed to ensure schema: %v", err)
		}
		store = repo
	} else {
		log.Println("DATABASE_URL not set, keeping runs in memory")
		store = api.NewMemoryStore()
	}

	server := api.NewServer(app.NewCapacityService(), store)
	addr := ":" + cfg.Server.Port
	log.Printf("captestd listening on %s", addr)
	if err := http.ListenAndServe(addr, server); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
