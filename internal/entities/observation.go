// Package entities contains the core domain objects for the weather-monitor application
package entities

import (
	"fmt"
	"time"
)

// Observation represents one persisted weather measurement for one city
// at one point in time. Rows are append-only and never mutated.
type Observation struct {
	ID          int64   `json:"id"`
	City        string  `json:"city"` // canonical city name as reported by the provider
	Date        string  `json:"date"` // capture day in YYYY-MM-DD form
	Year        int     `json:"year"`
	Month       int     `json:"month"`
	Day         int     `json:"day"`
	Hour        int     `json:"hour"`
	Minute      int     `json:"minute"`
	Second      int     `json:"second"`
	Microsecond int     `json:"microsecond"`
	Temperature float64 `json:"temperature"` // Celsius, rounded to 2 decimals
	Humidity    int     `json:"humidity"`    // percentage
	Condition   string  `json:"condition"`   // provider description, e.g. "clear sky"
}

// NewObservation builds an Observation stamped with the given capture time.
// The capture time is the local clock at fetch time, not the provider's
// timestamp, so successive rows for a city stay in scheduler order.
func NewObservation(city string, capturedAt time.Time, temperature float64, humidity int, condition string) Observation {
	return Observation{
		City:        city,
		Date:        capturedAt.Format("2006-01-02"),
		Year:        capturedAt.Year(),
		Month:       int(capturedAt.Month()),
		Day:         capturedAt.Day(),
		Hour:        capturedAt.Hour(),
		Minute:      capturedAt.Minute(),
		Second:      capturedAt.Second(),
		Microsecond: capturedAt.Nanosecond() / 1000,
		Temperature: temperature,
		Humidity:    humidity,
		Condition:   condition,
	}
}

// CapturedAt reconstructs the capture instant from the discrete calendar fields.
func (o Observation) CapturedAt() time.Time {
	return time.Date(o.Year, time.Month(o.Month), o.Day, o.Hour, o.Minute, o.Second, o.Microsecond*1000, time.Local)
}

// City is one configured target in "Name, CountryCode" form.
type City struct {
	Name    string // e.g. "Tokyo"
	Country string // ISO country code, e.g. "JP"
}

// Query returns the city in the provider's query form, e.g. "Tokyo,JP".
func (c City) Query() string {
	return fmt.Sprintf("%s,%s", c.Name, c.Country)
}

// ConditionCount is one row of a grouped condition breakdown: how many
// observations carried a given condition label and roughly how long that
// condition held, assuming one sample per scheduler interval.
type ConditionCount struct {
	Condition string
	Count     int
	Hours     float64 // count * interval, expressed in hours, 1 decimal
}

// CycleFailure records a single city that could not be ingested during a cycle.
type CycleFailure struct {
	City string
	Err  error
}

// CycleReport summarizes one full pass over the configured city set.
type CycleReport struct {
	StartedAt time.Time
	Succeeded []string
	Failed    []CycleFailure
}

// Rows returns the number of observations appended during the cycle.
func (r CycleReport) Rows() int {
	return len(r.Succeeded)
}
