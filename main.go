package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/abelzeko/weather-monitor/internal/api/http"
	"github.com/abelzeko/weather-monitor/internal/config"
	"github.com/abelzeko/weather-monitor/internal/integration"
	"github.com/abelzeko/weather-monitor/internal/repository"
	"github.com/abelzeko/weather-monitor/internal/scheduler"
	"github.com/abelzeko/weather-monitor/internal/usecases"
)

// Runs the collector and the query API in one process: the scheduler
// ticks on its own goroutines while Fiber serves reads, both sharing the
// same SQLite store.
func main() {
	// Configure logging
	log.SetOutput(os.Stdout)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("Starting Weather Monitor...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.OpenWeatherAPIKey == "" {
		log.Fatal("OPENWEATHER_API_KEY environment variable is not set")
	}

	repo, err := repository.NewSQLiteWeatherRepository(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize repository: %v", err)
	}
	defer repo.Close()

	fetcher := integration.NewOpenWeatherFetcher(cfg.OpenWeatherAPIURL, cfg.OpenWeatherAPIKey)
	useCase := usecases.NewWeatherUseCase(cfg, repo, fetcher)

	sched := scheduler.New(useCase, cfg.FetchInterval)
	if err := sched.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "weather-monitor",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-monitor",
		})
	})

	httpapi.RegisterRoutes(app, useCase)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("HTTP server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
}
