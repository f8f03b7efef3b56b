// Package usecases contains the application's business logic
package usecases

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/abelzeko/weather-monitor/internal/config"
	"github.com/abelzeko/weather-monitor/internal/entities"
	"github.com/abelzeko/weather-monitor/internal/integration"
	"github.com/abelzeko/weather-monitor/internal/repository"
)

// ErrInvalidQuery means the caller asked for something outside the
// configured city set or an impossible day. Distinct from an empty
// result, which just means no data has been collected yet.
var ErrInvalidQuery = errors.New("invalid query")

// WeatherUseCase drives ingestion cycles and serves read-only views over
// the observation store.
type WeatherUseCase struct {
	cfg     *config.AppConfig
	repo    repository.WeatherRepository
	fetcher integration.WeatherFetcher
}

// NewWeatherUseCase creates a new weather use case.
func NewWeatherUseCase(cfg *config.AppConfig, repo repository.WeatherRepository, fetcher integration.WeatherFetcher) *WeatherUseCase {
	return &WeatherUseCase{
		cfg:     cfg,
		repo:    repo,
		fetcher: fetcher,
	}
}

// RunCycle performs one full pass over the configured city set: fetch,
// then append, city by city in configuration order. A failing city is
// recorded in the report and the cycle moves on; one city can never abort
// the batch.
func (uc *WeatherUseCase) RunCycle(ctx context.Context) entities.CycleReport {
	report := entities.CycleReport{StartedAt: time.Now()}

	log.Printf("Starting ingestion cycle for %d cities", len(uc.cfg.Cities))

	for _, city := range uc.cfg.Cities {
		obs, err := uc.fetcher.Fetch(ctx, city)
		if err != nil {
			log.Printf("Fetch failed for %s: %v", city.Name, err)
			report.Failed = append(report.Failed, entities.CycleFailure{City: city.Name, Err: err})
			continue
		}

		if err := uc.repo.Append(obs); err != nil {
			log.Printf("Append failed for %s: %v", city.Name, err)
			report.Failed = append(report.Failed, entities.CycleFailure{City: city.Name, Err: err})
			continue
		}

		report.Succeeded = append(report.Succeeded, obs.City)
	}

	log.Printf("Ingestion cycle finished: %d rows appended, %d cities failed",
		report.Rows(), len(report.Failed))
	return report
}

// SingleCitySeries returns the ordered observation series for one city on
// one day of month. The caller derives any chart axes.
func (uc *WeatherUseCase) SingleCitySeries(city string, day int) ([]entities.Observation, error) {
	canonical, err := uc.validateQuery(city, day)
	if err != nil {
		return nil, err
	}
	log.Printf("Retrieving series for city %s, day %d", canonical, day)
	return uc.repo.ObservationsByCityAndDay(canonical, day)
}

// CompareCities returns two independently ordered series, one per city.
// No alignment between the two is performed; gaps and differing sample
// counts are the caller's concern.
func (uc *WeatherUseCase) CompareCities(cityA, cityB string, day int) ([]entities.Observation, []entities.Observation, error) {
	canonicalA, err := uc.validateQuery(cityA, day)
	if err != nil {
		return nil, nil, err
	}
	canonicalB, err := uc.validateQuery(cityB, day)
	if err != nil {
		return nil, nil, err
	}

	seriesA, err := uc.repo.ObservationsByCityAndDay(canonicalA, day)
	if err != nil {
		return nil, nil, err
	}
	seriesB, err := uc.repo.ObservationsByCityAndDay(canonicalB, day)
	if err != nil {
		return nil, nil, err
	}
	return seriesA, seriesB, nil
}

// ConditionBreakdown returns, per distinct condition label observed for
// the city/day, the observation count and estimated duration in hours.
func (uc *WeatherUseCase) ConditionBreakdown(city string, day int) ([]entities.ConditionCount, error) {
	canonical, err := uc.validateQuery(city, day)
	if err != nil {
		return nil, err
	}
	log.Printf("Retrieving condition breakdown for city %s, day %d", canonical, day)
	return uc.repo.ConditionBreakdown(canonical, day, uc.cfg.IntervalMinutes())
}

// AvailableCities returns the canonical names of the configured city set.
func (uc *WeatherUseCase) AvailableCities() []string {
	return uc.cfg.CityNames()
}

// LastCaptureTime exposes the freshness of the store to consumers.
func (uc *WeatherUseCase) LastCaptureTime() (time.Time, error) {
	return uc.repo.LastCaptureTime()
}

// validateQuery checks the day range and resolves the requested city to
// its configured spelling, so a case-folded request still reaches the
// rows stored under the canonical name.
func (uc *WeatherUseCase) validateQuery(city string, day int) (string, error) {
	if day < 1 || day > 31 {
		return "", fmt.Errorf("%w: day %d is out of range", ErrInvalidQuery, day)
	}
	canonical, ok := uc.cfg.CanonicalCity(city)
	if !ok {
		return "", fmt.Errorf("%w: unknown city %q", ErrInvalidQuery, city)
	}
	return canonical, nil
}
