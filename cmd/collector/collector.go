package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/abelzeko/weather-monitor/internal/config"
	"github.com/abelzeko/weather-monitor/internal/integration"
	"github.com/abelzeko/weather-monitor/internal/repository"
	"github.com/abelzeko/weather-monitor/internal/scheduler"
	"github.com/abelzeko/weather-monitor/internal/usecases"
)

func main() {
	// Configure logging
	log.SetOutput(os.Stdout)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("Starting Weather Collector...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.OpenWeatherAPIKey == "" {
		log.Fatal("OPENWEATHER_API_KEY environment variable is not set")
	}

	// Initialize repository; no store, no ingestion.
	repo, err := repository.NewSQLiteWeatherRepository(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize repository: %v", err)
	}
	defer repo.Close()

	// Initialize fetcher
	fetcher := integration.NewOpenWeatherFetcher(cfg.OpenWeatherAPIURL, cfg.OpenWeatherAPIKey)

	// Initialize use case
	useCase := usecases.NewWeatherUseCase(cfg, repo, fetcher)

	// Set up the recurring ingestion cycle
	sched := scheduler.New(useCase, cfg.FetchInterval)
	if err := sched.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	// Run until interrupted
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	sched.Stop()
}
