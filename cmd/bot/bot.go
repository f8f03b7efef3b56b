package main

import (
	"log"
	"os"

	"github.com/abelzeko/weather-monitor/internal/api"
	"github.com/abelzeko/weather-monitor/internal/config"
	"github.com/abelzeko/weather-monitor/internal/integration"
	"github.com/abelzeko/weather-monitor/internal/integration/openai"
	"github.com/abelzeko/weather-monitor/internal/repository"
	"github.com/abelzeko/weather-monitor/internal/usecases"
)

func main() {
	// Configure logging
	log.SetOutput(os.Stdout)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("Starting Weather Bot...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize OpenAI Service for free-text questions. Optional: the
	// bot still serves its commands without it.
	openAIService, err := openai.NewOpenAIService()
	if err != nil {
		log.Printf("OpenAI service unavailable, free-text questions disabled: %v", err)
		openAIService = nil
	}

	// Initialize repository
	repo, err := repository.NewSQLiteWeatherRepository(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize repository: %v", err)
	}
	defer repo.Close()

	// The bot only reads; the collector process owns ingestion. The
	// fetcher is still wired so the use case is fully constructed.
	fetcher := integration.NewOpenWeatherFetcher(cfg.OpenWeatherAPIURL, cfg.OpenWeatherAPIKey)
	useCase := usecases.NewWeatherUseCase(cfg, repo, fetcher)

	// Get the bot token from environment variable
	botToken := os.Getenv("TELEGRAM_BOT_TOKEN")
	if botToken == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN environment variable is not set")
	}

	// Initialize Telegram bot
	telegramBot, err := api.NewTelegramBot(botToken, useCase, openAIService)
	if err != nil {
		log.Fatalf("Failed to initialize Telegram bot: %v", err)
	}

	// Start the bot
	telegramBot.Start()
}
