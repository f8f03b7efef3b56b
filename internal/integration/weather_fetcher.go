// Package integration handles external service interactions
package integration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/abelzeko/weather-monitor/internal/entities"
	"github.com/sony/gobreaker"
)

// FetchFailedError reports that the remote endpoint could not produce a
// usable observation for one city. It never escapes the scheduler: the
// affected city is skipped until the next cycle.
type FetchFailedError struct {
	City  string
	Cause error
}

func (e *FetchFailedError) Error() string {
	return fmt.Sprintf("fetch failed for %s: %v", e.City, e.Cause)
}

func (e *FetchFailedError) Unwrap() error {
	return e.Cause
}

// WeatherFetcher produces one normalized observation per city, or a typed
// failure. Implementations must not retry; batch-continuation policy
// belongs to the caller.
type WeatherFetcher interface {
	Fetch(ctx context.Context, city entities.City) (entities.Observation, error)
}

// OpenWeatherFetcher fetches current weather from the OpenWeatherMap API.
type OpenWeatherFetcher struct {
	baseURL string
	apiKey  string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

// NewOpenWeatherFetcher creates a new OpenWeatherMap fetcher. An empty url
// selects the production endpoint. The circuit breaker makes a dead
// provider fail fast instead of stalling every city in a cycle.
func NewOpenWeatherFetcher(url string, apiKey string) *OpenWeatherFetcher {
	if url == "" {
		url = "http://api.openweathermap.org/data/2.5/weather"
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweathermap",
		MaxRequests: 3,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
	return &OpenWeatherFetcher{
		baseURL: url,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
		circuit: cb,
	}
}

// openWeatherPayload is the subset of the provider response we consume.
type openWeatherPayload struct {
	Name string `json:"name"`
	Main struct {
		Temp     *float64 `json:"temp"`
		Humidity *int     `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
}

// Fetch requests current weather for one city and maps the response onto
// an Observation. The observation is stamped with the local capture time,
// not the provider's timestamp, so rows follow scheduler chronology.
func (f *OpenWeatherFetcher) Fetch(ctx context.Context, city entities.City) (entities.Observation, error) {
	values := url.Values{}
	values.Set("q", city.Query())
	values.Set("appid", f.apiKey)
	values.Set("units", "metric")
	requestURL := fmt.Sprintf("%s?%s", f.baseURL, values.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return entities.Observation{}, &FetchFailedError{City: city.Name, Cause: err}
	}

	// Only transport-level failures pass through the breaker: a city that
	// answers with a 404 or a bad payload is that city's problem and must
	// not block the healthy cities behind it in the same cycle.
	result, err := f.circuit.Execute(func() (interface{}, error) {
		return f.client.Do(req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			log.Printf("Circuit breaker open, skipping fetch for %s", city.Name)
		}
		return entities.Observation{}, &FetchFailedError{City: city.Name, Cause: err}
	}

	res := result.(*http.Response)
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return entities.Observation{}, &FetchFailedError{
			City:  city.Name,
			Cause: fmt.Errorf("unexpected status code: %d %s", res.StatusCode, res.Status),
		}
	}

	var payload openWeatherPayload
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return entities.Observation{}, &FetchFailedError{
			City:  city.Name,
			Cause: fmt.Errorf("malformed response body: %v", err),
		}
	}

	if payload.Name == "" || payload.Main.Temp == nil || payload.Main.Humidity == nil || len(payload.Weather) == 0 {
		return entities.Observation{}, &FetchFailedError{City: city.Name, Cause: fmt.Errorf("response is missing required fields")}
	}

	obs := entities.NewObservation(
		payload.Name,
		time.Now(),
		roundTemperature(*payload.Main.Temp),
		*payload.Main.Humidity,
		payload.Weather[0].Description,
	)
	return obs, nil
}

// roundTemperature fixes the provider value to 2 decimal places.
func roundTemperature(t float64) float64 {
	return math.Round(t*100) / 100
}
