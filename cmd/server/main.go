package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/awardflow/awardflow/internal/api"
	"github.com/awardflow/awardflow/internal/config"
	"github.com/awardflow/awardflow/internal/soda"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("AWARDFLOW_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	client := soda.NewClient(cfg.Dataset.Domain, cfg.Dataset.ResourceID, soda.Options{
		AppToken:     cfg.Dataset.AppToken,
		PageSize:     cfg.Fetch.PageSize,
		MaxRecords:   cfg.Fetch.MaxRecords,
		Timeout:      time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second,
		RateLimitRPS: cfg.Fetch.RateLimitRPS,
		CacheTTL:     time.Duration(cfg.Fetch.CacheTTLSecs) * time.Second,
	})

	srv := api.NewServer(cfg, client)

	// Warm the snapshot before serving. A failed warm fetch is not fatal:
	// the dashboard shows an empty state until a refresh succeeds.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	if count, err := srv.Refresh(ctx, srv.DefaultQuery()); err != nil {
		log.Printf("Initial fetch failed: %v", err)
	} else {
		log.Printf("Loaded %d contract awards", count)
	}
	cancel()

	log.Printf("Server starting on port %s...", cfg.Server.Port)
	if err := srv.Start(cfg.Server.Port); err != nil {
		log.Fatal(err)
	}
}
