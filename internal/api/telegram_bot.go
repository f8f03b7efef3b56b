// Package api provides handlers for external APIs and interfaces
package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/abelzeko/weather-monitor/internal/integration/openai"
	"github.com/abelzeko/weather-monitor/internal/usecases"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramBot handles interactions with the Telegram API
type TelegramBot struct {
	bot           *tgbotapi.BotAPI
	useCase       *usecases.WeatherUseCase
	openAIService openai.OpenAIService
}

// NewTelegramBot creates a new Telegram bot handler
func NewTelegramBot(botToken string, useCase *usecases.WeatherUseCase, openAIService openai.OpenAIService) (*TelegramBot, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %v", err)
	}

	return &TelegramBot{
		bot:           bot,
		useCase:       useCase,
		openAIService: openAIService,
	}, nil
}

// Start begins listening for and handling Telegram messages
func (t *TelegramBot) Start() {
	log.Printf("Authorized on Telegram account %s", t.bot.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := t.bot.GetUpdatesChan(u)
	log.Println("Bot is now listening for messages...")

	for update := range updates {
		if update.Message == nil {
			continue
		}

		log.Printf("Received message from %s (ID: %d): %s",
			update.Message.From.UserName,
			update.Message.From.ID,
			update.Message.Text)

		t.handleMessage(update)
	}
}

// handleMessage processes a Telegram message update
func (t *TelegramBot) handleMessage(update tgbotapi.Update) {
	msg := tgbotapi.NewMessage(update.Message.Chat.ID, "")

	switch {
	case update.Message.IsCommand():
		t.handleCommand(update.Message, &msg)
	default:
		t.handleNonCommand(update.Message, &msg)
	}

	log.Printf("Sending response to user %s", update.Message.From.UserName)
	if _, err := t.bot.Send(msg); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}

// handleCommand processes commands like /start, /help, etc.
func (t *TelegramBot) handleCommand(message *tgbotapi.Message, msg *tgbotapi.MessageConfig) {
	switch message.Command() {
	case "start":
		log.Printf("Handling /start command for user %s", message.From.UserName)
		msg.Text = "Welcome to the Weather Monitor! Use /cities to see the monitored cities or /help for more information."

	case "help":
		log.Printf("Handling /help command for user %s", message.From.UserName)
		msg.Text = "Available commands:\n" +
			"/start - Start the bot\n" +
			"/cities - Show the monitored cities\n" +
			"/weather [city] [day] - Show the day's observations for a city\n" +
			"/conditions [city] [day] - Show how long each weather condition held\n" +
			"/help - Show this help message"

	case "cities":
		log.Printf("Handling /cities command for user %s", message.From.UserName)
		t.handleCitiesCommand(msg)

	case "weather":
		args := message.CommandArguments()
		log.Printf("Handling /weather command with args '%s' for user %s", args, message.From.UserName)
		t.handleWeatherCommand(args, msg)

	case "conditions":
		args := message.CommandArguments()
		log.Printf("Handling /conditions command with args '%s' for user %s", args, message.From.UserName)
		t.handleConditionsCommand(args, msg)

	default:
		log.Printf("Received unknown command /%s from user %s", message.Command(), message.From.UserName)
		msg.Text = "Unknown command. Use /help to see available commands."
	}
}

// handleCitiesCommand processes the /cities command
func (t *TelegramBot) handleCitiesCommand(msg *tgbotapi.MessageConfig) {
	cities := t.useCase.AvailableCities()

	lastUpdate, _ := t.useCase.LastCaptureTime()

	msg.Text = "Monitored cities:\n\n"
	for _, city := range cities {
		msg.Text += "• " + city + "\n"
	}
	msg.Text += "\nUse /weather [city] to get the day's observations."
	if !lastUpdate.IsZero() {
		msg.Text += fmt.Sprintf("\n\n🕒 Last update: %s", lastUpdate.Format("2006-01-02 15:04:05"))
	}
}

// handleWeatherCommand processes the /weather [city] [day] command
func (t *TelegramBot) handleWeatherCommand(args string, msg *tgbotapi.MessageConfig) {
	city, day, err := parseCityDayArgs(args)
	if err != nil {
		msg.Text = "Please specify a city name. Example: /weather Tokyo 29"
		return
	}

	series, err := t.useCase.SingleCitySeries(city, day)
	if err != nil {
		if errors.Is(err, usecases.ErrInvalidQuery) {
			msg.Text = fmt.Sprintf("City '%s' is not monitored. Use /cities to see the available cities.", city)
			return
		}
		msg.Text = "Error fetching weather data. Please try again later."
		log.Printf("Error fetching weather data: %v", err)
		return
	}

	if len(series) == 0 {
		msg.Text = fmt.Sprintf("No observations yet for %s on day %d.", city, day)
		return
	}

	msg.Text = FormatSeries(city, day, series)
}

// handleConditionsCommand processes the /conditions [city] [day] command
func (t *TelegramBot) handleConditionsCommand(args string, msg *tgbotapi.MessageConfig) {
	city, day, err := parseCityDayArgs(args)
	if err != nil {
		msg.Text = "Please specify a city name. Example: /conditions Tokyo 29"
		return
	}

	breakdown, err := t.useCase.ConditionBreakdown(city, day)
	if err != nil {
		if errors.Is(err, usecases.ErrInvalidQuery) {
			msg.Text = fmt.Sprintf("City '%s' is not monitored. Use /cities to see the available cities.", city)
			return
		}
		msg.Text = "Error fetching weather data. Please try again later."
		log.Printf("Error fetching weather data: %v", err)
		return
	}

	if len(breakdown) == 0 {
		msg.Text = fmt.Sprintf("No observations yet for %s on day %d.", city, day)
		return
	}

	msg.Text = FormatConditionBreakdown(city, day, breakdown)
}

// handleNonCommand processes regular messages through the AI interpreter
func (t *TelegramBot) handleNonCommand(message *tgbotapi.Message, msg *tgbotapi.MessageConfig) {
	log.Printf("Received non-command message from user %s: %s", message.From.UserName, message.Text)

	if t.openAIService == nil {
		msg.Text = "I don't understand. Use /help to see available commands."
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	agentResp, err := t.openAIService.InterpretUserQuery(ctx, message.Text, t.useCase.AvailableCities())
	if err != nil {
		log.Printf("Error interpreting user query via OpenAI: %v", err)
		msg.Text = "Sorry, I'm having trouble understanding right now. Please try again later or use /help."
		return
	}

	log.Printf("Agent response: Command='%s', City='%s', Day=%d, Message='%s'",
		agentResp.CommandName, agentResp.CityName, agentResp.DayOfMonth, agentResp.UserMessage)

	day := agentResp.DayOfMonth
	if day == 0 {
		day = time.Now().Day()
	}

	switch agentResp.CommandName {
	case "SingleCitySeries":
		if agentResp.CityName == "" {
			// Agent identified the intent but not a specific city.
			msg.Text = agentResp.UserMessage
			return
		}
		args := fmt.Sprintf("%s %d", agentResp.CityName, day)
		t.handleWeatherCommand(args, msg)
		if agentResp.UserMessage != "" {
			msg.Text = agentResp.UserMessage + "\n\n" + msg.Text
		}
	case "ConditionBreakdown":
		if agentResp.CityName == "" {
			msg.Text = agentResp.UserMessage
			return
		}
		args := fmt.Sprintf("%s %d", agentResp.CityName, day)
		t.handleConditionsCommand(args, msg)
		if agentResp.UserMessage != "" {
			msg.Text = agentResp.UserMessage + "\n\n" + msg.Text
		}
	case "GeneralQuery":
		msg.Text = agentResp.UserMessage
	default:
		log.Printf("Agent returned unexpected command: %s", agentResp.CommandName)
		msg.Text = "I'm not sure how to respond to that. You can use /help for commands."
	}
}

// parseCityDayArgs splits "[city] [day]" arguments. The day defaults to
// today's day of month when omitted.
func parseCityDayArgs(args string) (string, int, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return "", 0, fmt.Errorf("no city given")
	}

	day := time.Now().Day()
	if len(fields) > 1 {
		if n, err := strconv.Atoi(fields[len(fields)-1]); err == nil {
			day = n
			fields = fields[:len(fields)-1]
		}
	}

	return strings.Join(fields, " "), day, nil
}
