// Package repository provides data access implementations
package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/abelzeko/weather-monitor/internal/entities"
	_ "github.com/mattn/go-sqlite3"
)

var (
	// ErrStorageUnavailable means the store could not be opened or has been
	// closed. Fatal at startup; ingestion cannot proceed without a store.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrStorageWrite means a single append failed on the storage medium.
	// Callers treat it as a per-item failure, not a process failure.
	ErrStorageWrite = errors.New("storage write failed")
)

// WeatherRepository defines the persistence contract for weather observations.
// The store is append-only: there is no update or delete.
type WeatherRepository interface {
	Append(obs entities.Observation) error
	ObservationsByCityAndDay(city string, day int) ([]entities.Observation, error)
	ConditionBreakdown(city string, day int, intervalMinutes int) ([]entities.ConditionCount, error)
	LastCaptureTime() (time.Time, error)
	Close() error
}

// SQLiteWeatherRepository implements WeatherRepository using SQLite.
type SQLiteWeatherRepository struct {
	db     *sql.DB
	DBPath string
	closed atomic.Bool
}

// NewSQLiteWeatherRepository opens (creating if absent) the database at
// dbPath and idempotently ensures the schema exists. Safe to call on every
// process start; it never drops or migrates destructively.
func NewSQLiteWeatherRepository(dbPath string) (*SQLiteWeatherRepository, error) {
	if dbPath == "" {
		// Set default path if not specified
		dbDir := "data"
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("%w: failed to create database directory: %v", ErrStorageUnavailable, err)
		}
		dbPath = filepath.Join(dbDir, "weather.db")
	}

	log.Printf("Opening database at %s", dbPath)
	// WAL keeps readers on a consistent snapshot while the collector writes;
	// the busy timeout covers the one-writer-at-a-time discipline.
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %v", ErrStorageUnavailable, err)
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS weathers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		city TEXT NOT NULL,
		date TEXT NOT NULL,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		day INTEGER NOT NULL,
		hour INTEGER NOT NULL,
		minute INTEGER NOT NULL,
		second INTEGER NOT NULL,
		microsecond INTEGER NOT NULL,
		temperature NUMERIC(4,2),
		humidity INTEGER NOT NULL,
		weather TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_city ON weathers(city);
	CREATE INDEX IF NOT EXISTS idx_city_day ON weathers(city, day);`

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to create tables: %v", ErrStorageUnavailable, err)
	}

	return &SQLiteWeatherRepository{
		db:     db,
		DBPath: dbPath,
	}, nil
}

// Close closes the database connection. Operations after Close fail with
// ErrStorageUnavailable.
func (r *SQLiteWeatherRepository) Close() error {
	r.closed.Store(true)
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// available guards every operation; the flag is atomic because the
// repository is shared between the collector and reader goroutines.
func (r *SQLiteWeatherRepository) available() error {
	if r.closed.Load() || r.db == nil {
		return fmt.Errorf("%w: repository is closed", ErrStorageUnavailable)
	}
	return nil
}

// Append persists one observation in its own transaction so a concurrent
// reader never sees a partially written row.
func (r *SQLiteWeatherRepository) Append(obs entities.Observation) error {
	if err := r.available(); err != nil {
		return err
	}

	tx, err := r.db.Begin()
	if err != nil {
		// Close may have landed between the guard and Begin.
		if r.closed.Load() {
			return fmt.Errorf("%w: repository is closed", ErrStorageUnavailable)
		}
		return fmt.Errorf("%w: failed to begin transaction: %v", ErrStorageWrite, err)
	}

	_, err = tx.Exec(`
		INSERT INTO weathers
		(city, date, year, month, day, hour, minute, second, microsecond, temperature, humidity, weather)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		obs.City,
		obs.Date,
		obs.Year,
		obs.Month,
		obs.Day,
		obs.Hour,
		obs.Minute,
		obs.Second,
		obs.Microsecond,
		obs.Temperature,
		obs.Humidity,
		obs.Condition,
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("%w: failed to insert observation for %s: %v", ErrStorageWrite, obs.City, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit transaction: %v", ErrStorageWrite, err)
	}

	return nil
}

// ObservationsByCityAndDay retrieves all observations for a city on a given
// day of month, ordered by capture time ascending. An empty result is not
// an error.
func (r *SQLiteWeatherRepository) ObservationsByCityAndDay(city string, day int) ([]entities.Observation, error) {
	if err := r.available(); err != nil {
		return nil, err
	}

	query := `
		SELECT id, city, date, year, month, day, hour, minute, second, microsecond, temperature, humidity, weather
		FROM weathers
		WHERE city = ? AND day = ?
		ORDER BY year, month, hour, minute, second, microsecond`

	rows, err := r.db.Query(query, city, day)
	if err != nil {
		return nil, fmt.Errorf("failed to query observations for %s: %v", city, err)
	}
	defer rows.Close()

	var result []entities.Observation
	for rows.Next() {
		var obs entities.Observation
		if err := rows.Scan(
			&obs.ID,
			&obs.City,
			&obs.Date,
			&obs.Year,
			&obs.Month,
			&obs.Day,
			&obs.Hour,
			&obs.Minute,
			&obs.Second,
			&obs.Microsecond,
			&obs.Temperature,
			&obs.Humidity,
			&obs.Condition,
		); err != nil {
			return nil, fmt.Errorf("failed to scan row: %v", err)
		}
		result = append(result, obs)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %v", err)
	}

	return result, nil
}

// ConditionBreakdown groups that city/day's observations by their raw
// condition label, returning per label the observation count and an
// estimated duration in hours (count * sampling interval, one decimal).
func (r *SQLiteWeatherRepository) ConditionBreakdown(city string, day int, intervalMinutes int) ([]entities.ConditionCount, error) {
	if err := r.available(); err != nil {
		return nil, err
	}
	if intervalMinutes < 1 {
		intervalMinutes = 1
	}

	query := `
		SELECT weather, COUNT(weather), ROUND(COUNT(weather) * ? / 60.0, 1)
		FROM weathers
		WHERE city = ? AND day = ?
		GROUP BY weather
		ORDER BY weather`

	rows, err := r.db.Query(query, intervalMinutes, city, day)
	if err != nil {
		return nil, fmt.Errorf("failed to query condition breakdown for %s: %v", city, err)
	}
	defer rows.Close()

	var result []entities.ConditionCount
	for rows.Next() {
		var cc entities.ConditionCount
		if err := rows.Scan(&cc.Condition, &cc.Count, &cc.Hours); err != nil {
			return nil, fmt.Errorf("failed to scan row: %v", err)
		}
		result = append(result, cc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %v", err)
	}

	return result, nil
}

// LastCaptureTime returns the capture instant of the most recent
// observation, or the zero time when the store is empty.
func (r *SQLiteWeatherRepository) LastCaptureTime() (time.Time, error) {
	if err := r.available(); err != nil {
		return time.Time{}, err
	}
	var (
		year, month, day, hour, minute, second, microsecond sql.NullInt64
	)
	err := r.db.QueryRow(`
		SELECT year, month, day, hour, minute, second, microsecond
		FROM weathers
		ORDER BY year DESC, month DESC, day DESC, hour DESC, minute DESC, second DESC, microsecond DESC
		LIMIT 1`).Scan(&year, &month, &day, &hour, &minute, &second, &microsecond)
	if err != nil {
		if err == sql.ErrNoRows {
			return time.Time{}, nil // Return zero time if no data
		}
		return time.Time{}, fmt.Errorf("failed to get last capture time: %v", err)
	}

	if !year.Valid {
		return time.Time{}, nil
	}

	return time.Date(
		int(year.Int64), time.Month(month.Int64), int(day.Int64),
		int(hour.Int64), int(minute.Int64), int(second.Int64),
		int(microsecond.Int64)*1000, time.Local,
	), nil
}
