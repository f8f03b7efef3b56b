// Package config loads process-start configuration from the environment
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/abelzeko/weather-monitor/internal/entities"
	"github.com/joho/godotenv"
)

// defaultCities is the city set used when WEATHER_CITIES is not set.
var defaultCities = []entities.City{
	{Name: "Tokyo", Country: "JP"},
	{Name: "Sydney", Country: "AU"},
	{Name: "Paris", Country: "FR"},
	{Name: "Berlin", Country: "DE"},
	{Name: "Moscow", Country: "RU"},
	{Name: "Beijing", Country: "CN"},
	{Name: "Singapore", Country: "SG"},
	{Name: "Seoul", Country: "KR"},
	{Name: "Bangkok", Country: "TH"},
	{Name: "Toronto", Country: "CA"},
	{Name: "Shanghai", Country: "CN"},
	{Name: "Chicago", Country: "US"},
}

// AppConfig is the immutable process configuration. It is built once at
// startup and passed explicitly to the components that need it; nothing
// mutates it afterwards.
type AppConfig struct {
	OpenWeatherAPIKey string
	OpenWeatherAPIURL string

	// Cities to monitor, in fixed ingestion order.
	Cities []entities.City

	// FetchInterval controls the scheduler cadence.
	FetchInterval time.Duration

	DBPath string
	Port   string
}

// IntervalMinutes returns the cadence in whole minutes, minimum 1.
func (c *AppConfig) IntervalMinutes() int {
	m := int(c.FetchInterval.Minutes())
	if m < 1 {
		m = 1
	}
	return m
}

// CityNames returns the canonical (country-stripped) names of the
// configured cities, the form under which observations are stored.
func (c *AppConfig) CityNames() []string {
	names := make([]string, 0, len(c.Cities))
	for _, city := range c.Cities {
		names = append(names, city.Name)
	}
	return names
}

// CanonicalCity resolves name against the configured cities, matching
// case-insensitively, and returns the configured spelling — the form
// under which observations are stored and queried.
func (c *AppConfig) CanonicalCity(name string) (string, bool) {
	for _, city := range c.Cities {
		if strings.EqualFold(city.Name, name) {
			return city.Name, true
		}
	}
	return "", false
}

// KnownCity reports whether name matches a configured city.
func (c *AppConfig) KnownCity(name string) bool {
	_, ok := c.CanonicalCity(name)
	return ok
}

// Load reads configuration from the environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading it: %v", err)
	}

	cfg := &AppConfig{
		OpenWeatherAPIKey: os.Getenv("OPENWEATHER_API_KEY"),
		OpenWeatherAPIURL: getenvDefault("OPENWEATHER_API_URL", "http://api.openweathermap.org/data/2.5/weather"),
		DBPath:            getenvDefault("WEATHER_DB_PATH", ""),
		Port:              getenvDefault("PORT", "8080"),
	}

	minutes := getenvInt("FETCH_INTERVAL_MINUTES", 1)
	if minutes < 1 {
		return nil, fmt.Errorf("FETCH_INTERVAL_MINUTES must be at least 1, got %d", minutes)
	}
	cfg.FetchInterval = time.Duration(minutes) * time.Minute

	cities, err := parseCities(os.Getenv("WEATHER_CITIES"))
	if err != nil {
		return nil, err
	}
	cfg.Cities = cities

	return cfg, nil
}

// parseCities parses a semicolon-separated list of "City,CC" entries.
// An empty value yields the default city set.
func parseCities(raw string) ([]entities.City, error) {
	if strings.TrimSpace(raw) == "" {
		return defaultCities, nil
	}

	var cities []entities.City
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ",", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid WEATHER_CITIES entry %q, expected \"City,CC\"", entry)
		}
		cities = append(cities, entities.City{
			Name:    strings.TrimSpace(parts[0]),
			Country: strings.TrimSpace(parts[1]),
		})
	}
	if len(cities) == 0 {
		return nil, fmt.Errorf("WEATHER_CITIES is set but contains no valid entries")
	}
	return cities, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
