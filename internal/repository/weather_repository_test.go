package repository

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/abelzeko/weather-monitor/internal/entities"
)

// newTestRepository creates a repository backed by a temp-dir database.
func newTestRepository(t *testing.T) *SQLiteWeatherRepository {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test-weather.db")
	repo, err := NewSQLiteWeatherRepository(dbPath)
	if err != nil {
		t.Fatalf("Failed to initialize repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestAppendAndQueryRoundTrip(t *testing.T) {
	repo := newTestRepository(t)

	capturedAt := time.Date(2024, time.March, 29, 9, 30, 0, 0, time.Local)
	obs := entities.NewObservation("Tokyo", capturedAt, 21.35, 60, "clear sky")

	if err := repo.Append(obs); err != nil {
		t.Fatalf("Failed to append observation: %v", err)
	}

	retrieved, err := repo.ObservationsByCityAndDay("Tokyo", 29)
	if err != nil {
		t.Fatalf("Failed to query observations: %v", err)
	}
	if len(retrieved) != 1 {
		t.Fatalf("Expected 1 observation, got %d", len(retrieved))
	}

	got := retrieved[0]
	if got.ID == 0 {
		t.Error("Expected a store-assigned id, got 0")
	}
	if got.City != "Tokyo" {
		t.Errorf("Expected city Tokyo, got %s", got.City)
	}
	if got.Date != "2024-03-29" {
		t.Errorf("Expected date 2024-03-29, got %s", got.Date)
	}
	if got.Year != 2024 || got.Month != 3 || got.Day != 29 {
		t.Errorf("Unexpected calendar fields: %d-%d-%d", got.Year, got.Month, got.Day)
	}
	if got.Hour != 9 || got.Minute != 30 || got.Second != 0 {
		t.Errorf("Unexpected time fields: %d:%d:%d", got.Hour, got.Minute, got.Second)
	}
	if got.Temperature != 21.35 {
		t.Errorf("Expected temperature 21.35, got %v", got.Temperature)
	}
	if got.Humidity != 60 {
		t.Errorf("Expected humidity 60, got %d", got.Humidity)
	}
	if got.Condition != "clear sky" {
		t.Errorf("Expected condition 'clear sky', got %s", got.Condition)
	}
}

func TestQueryReturnsAscendingCaptureOrder(t *testing.T) {
	repo := newTestRepository(t)

	// Append deliberately out of chronological order.
	times := []time.Time{
		time.Date(2024, time.March, 29, 14, 0, 0, 0, time.Local),
		time.Date(2024, time.March, 29, 9, 30, 0, 0, time.Local),
		time.Date(2024, time.March, 29, 11, 15, 0, 0, time.Local),
	}
	for _, ts := range times {
		if err := repo.Append(entities.NewObservation("Berlin", ts, 10.0, 70, "light rain")); err != nil {
			t.Fatalf("Failed to append observation: %v", err)
		}
	}

	series, err := repo.ObservationsByCityAndDay("Berlin", 29)
	if err != nil {
		t.Fatalf("Failed to query observations: %v", err)
	}
	if len(series) != 3 {
		t.Fatalf("Expected 3 observations, got %d", len(series))
	}

	for i := 1; i < len(series); i++ {
		if series[i].CapturedAt().Before(series[i-1].CapturedAt()) {
			t.Errorf("Series is not in ascending capture order at index %d: %v before %v",
				i, series[i].CapturedAt(), series[i-1].CapturedAt())
		}
	}
}

func TestQueryEmptyIsNotAnError(t *testing.T) {
	repo := newTestRepository(t)

	series, err := repo.ObservationsByCityAndDay("Paris", 12)
	if err != nil {
		t.Fatalf("Expected no error for empty result, got %v", err)
	}
	if len(series) != 0 {
		t.Fatalf("Expected empty series, got %d observations", len(series))
	}
}

func TestConditionBreakdownCountsAndHours(t *testing.T) {
	repo := newTestRepository(t)

	base := time.Date(2024, time.March, 29, 8, 0, 0, 0, time.Local)
	conditions := []string{"clear sky", "clear sky", "clear sky", "light rain", "light rain", "mist"}
	for i, cond := range conditions {
		ts := base.Add(time.Duration(i) * time.Minute)
		if err := repo.Append(entities.NewObservation("Tokyo", ts, 20.0, 55, cond)); err != nil {
			t.Fatalf("Failed to append observation: %v", err)
		}
	}

	breakdown, err := repo.ConditionBreakdown("Tokyo", 29, 1)
	if err != nil {
		t.Fatalf("Failed to query condition breakdown: %v", err)
	}
	if len(breakdown) != 3 {
		t.Fatalf("Expected 3 condition groups, got %d", len(breakdown))
	}

	total := 0
	byCondition := make(map[string]entities.ConditionCount)
	for _, cc := range breakdown {
		total += cc.Count
		byCondition[cc.Condition] = cc
	}
	if total != len(conditions) {
		t.Errorf("Expected group counts to sum to %d, got %d", len(conditions), total)
	}

	if cc := byCondition["clear sky"]; cc.Count != 3 {
		t.Errorf("Expected 3 'clear sky' observations, got %d", cc.Count)
	}
	// 3 one-minute samples are 3/60 hours, rounded to one decimal.
	if cc := byCondition["clear sky"]; cc.Hours != 0.1 {
		t.Errorf("Expected 0.1 hours for 'clear sky', got %v", cc.Hours)
	}
	if cc := byCondition["mist"]; cc.Hours != 0.0 {
		t.Errorf("Expected 0.0 hours for a single 'mist' sample, got %v", cc.Hours)
	}
}

func TestConditionBreakdownHonorsCityParameter(t *testing.T) {
	repo := newTestRepository(t)

	ts := time.Date(2024, time.March, 29, 8, 0, 0, 0, time.Local)
	if err := repo.Append(entities.NewObservation("Tokyo", ts, 20.0, 55, "clear sky")); err != nil {
		t.Fatalf("Failed to append observation: %v", err)
	}
	if err := repo.Append(entities.NewObservation("Paris", ts, 12.0, 80, "light rain")); err != nil {
		t.Fatalf("Failed to append observation: %v", err)
	}

	breakdown, err := repo.ConditionBreakdown("Paris", 29, 1)
	if err != nil {
		t.Fatalf("Failed to query condition breakdown: %v", err)
	}
	if len(breakdown) != 1 {
		t.Fatalf("Expected 1 condition group for Paris, got %d", len(breakdown))
	}
	if breakdown[0].Condition != "light rain" {
		t.Errorf("Expected 'light rain' for Paris, got %s", breakdown[0].Condition)
	}
}

func TestAppendAfterCloseFailsTyped(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "weather-monitor-test")
	if err != nil {
		t.Fatalf("Failed to create temp directory: %v", err)
	}
	defer os.RemoveAll(tempDir)

	dbPath := filepath.Join(tempDir, "test-weather.db")
	repo, err := NewSQLiteWeatherRepository(dbPath)
	if err != nil {
		t.Fatalf("Failed to initialize repository: %v", err)
	}
	if err := repo.Close(); err != nil {
		t.Fatalf("Failed to close repository: %v", err)
	}

	ts := time.Date(2024, time.March, 29, 8, 0, 0, 0, time.Local)
	err = repo.Append(entities.NewObservation("Tokyo", ts, 20.0, 55, "clear sky"))
	if err == nil {
		t.Fatal("Expected append on closed repository to fail")
	}
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("Expected ErrStorageUnavailable, got %v", err)
	}

	// Reopen and verify no partial row was written.
	reopened, err := NewSQLiteWeatherRepository(dbPath)
	if err != nil {
		t.Fatalf("Failed to reopen repository: %v", err)
	}
	defer reopened.Close()

	series, err := reopened.ObservationsByCityAndDay("Tokyo", 29)
	if err != nil {
		t.Fatalf("Failed to query observations: %v", err)
	}
	if len(series) != 0 {
		t.Errorf("Expected no rows after failed append, got %d", len(series))
	}
}

func TestCloseIsSafeAgainstConcurrentUse(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test-weather.db")
	repo, err := NewSQLiteWeatherRepository(dbPath)
	if err != nil {
		t.Fatalf("Failed to initialize repository: %v", err)
	}

	base := time.Date(2024, time.March, 29, 0, 0, 0, 0, time.Local)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			ts := base.Add(time.Duration(i) * time.Second)
			err := repo.Append(entities.NewObservation("Oslo", ts, 5.0, 85, "snow"))
			// Appends racing the close either land or fail typed.
			if err != nil && !errors.Is(err, ErrStorageUnavailable) {
				t.Errorf("Expected ErrStorageUnavailable mid-close, got %v", err)
				return
			}
		}
	}()

	if err := repo.Close(); err != nil {
		t.Fatalf("Failed to close repository: %v", err)
	}
	wg.Wait()
}

func TestReadsAfterCloseFailTyped(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test-weather.db")
	repo, err := NewSQLiteWeatherRepository(dbPath)
	if err != nil {
		t.Fatalf("Failed to initialize repository: %v", err)
	}
	if err := repo.Close(); err != nil {
		t.Fatalf("Failed to close repository: %v", err)
	}

	if _, err := repo.ObservationsByCityAndDay("Tokyo", 29); !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("Expected ErrStorageUnavailable from series read, got %v", err)
	}
	if _, err := repo.ConditionBreakdown("Tokyo", 29, 1); !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("Expected ErrStorageUnavailable from condition breakdown, got %v", err)
	}
	if _, err := repo.LastCaptureTime(); !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("Expected ErrStorageUnavailable from last capture time, got %v", err)
	}
}

func TestLastCaptureTime(t *testing.T) {
	repo := newTestRepository(t)

	last, err := repo.LastCaptureTime()
	if err != nil {
		t.Fatalf("Failed to get last capture time: %v", err)
	}
	if !last.IsZero() {
		t.Errorf("Expected zero time on empty store, got %v", last)
	}

	newest := time.Date(2024, time.March, 29, 14, 0, 0, 0, time.Local)
	for _, ts := range []time.Time{
		time.Date(2024, time.March, 29, 9, 30, 0, 0, time.Local),
		newest,
		time.Date(2024, time.March, 28, 23, 59, 0, 0, time.Local),
	} {
		if err := repo.Append(entities.NewObservation("Tokyo", ts, 20.0, 55, "clear sky")); err != nil {
			t.Fatalf("Failed to append observation: %v", err)
		}
	}

	last, err = repo.LastCaptureTime()
	if err != nil {
		t.Fatalf("Failed to get last capture time: %v", err)
	}
	if !last.Equal(newest) {
		t.Errorf("Expected last capture time %v, got %v", newest, last)
	}
}

// TestConcurrentAppendAndRead exercises the writer/reader contract: a
// reader running against a live writer must only ever see fully written
// rows.
func TestConcurrentAppendAndRead(t *testing.T) {
	repo := newTestRepository(t)

	const rows = 50
	base := time.Date(2024, time.March, 29, 0, 0, 0, 0, time.Local)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < rows; i++ {
			ts := base.Add(time.Duration(i) * time.Minute)
			if err := repo.Append(entities.NewObservation("Sydney", ts, 18.5, 65, "scattered clouds")); err != nil {
				t.Errorf("Append failed mid-run: %v", err)
				return
			}
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < rows; i++ {
			series, err := repo.ObservationsByCityAndDay("Sydney", 29)
			if err != nil {
				t.Errorf("Concurrent read failed: %v", err)
				return
			}
			for _, obs := range series {
				if obs.City == "" || obs.Condition == "" || obs.Date == "" {
					t.Errorf("Read a partially populated row: %+v", obs)
					return
				}
			}
		}
	}()

	wg.Wait()

	series, err := repo.ObservationsByCityAndDay("Sydney", 29)
	if err != nil {
		t.Fatalf("Final read failed: %v", err)
	}
	if len(series) != rows {
		t.Errorf("Expected %d rows after writer finished, got %d", rows, len(series))
	}
}
