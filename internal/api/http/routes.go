// Package httpapi exposes the query layer over HTTP for presentation clients
package httpapi

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/abelzeko/weather-monitor/internal/usecases"
)

var validate = validator.New()

// seriesQuery holds query parameters for the single-city endpoints.
type seriesQuery struct {
	City string `validate:"required"`
	Day  int    `validate:"required,min=1,max=31"`
}

// compareQuery holds query parameters for the two-city comparison endpoint.
type compareQuery struct {
	CityA string `validate:"required"`
	CityB string `validate:"required"`
	Day   int    `validate:"required,min=1,max=31"`
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, useCase *usecases.WeatherUseCase) {
	v1 := app.Group("/api/v1")

	v1.Get("/weather/cities", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"cities": useCase.AvailableCities(),
		})
	})

	v1.Get("/weather/series", func(c *fiber.Ctx) error {
		var req seriesQuery
		if err := bindSeriesQuery(c, &req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		series, err := useCase.SingleCitySeries(req.City, req.Day)
		if err != nil {
			return mapQueryError(err)
		}

		return c.JSON(fiber.Map{
			"city":         req.City,
			"day":          req.Day,
			"observations": observationsOrEmpty(series),
		})
	})

	v1.Get("/weather/compare", func(c *fiber.Ctx) error {
		req := compareQuery{
			CityA: c.Query("city1"),
			CityB: c.Query("city2"),
			Day:   c.QueryInt("day"),
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		seriesA, seriesB, err := useCase.CompareCities(req.CityA, req.CityB, req.Day)
		if err != nil {
			return mapQueryError(err)
		}

		return c.JSON(fiber.Map{
			"day":   req.Day,
			"city1": fiber.Map{"city": req.CityA, "observations": observationsOrEmpty(seriesA)},
			"city2": fiber.Map{"city": req.CityB, "observations": observationsOrEmpty(seriesB)},
		})
	})

	v1.Get("/weather/conditions", func(c *fiber.Ctx) error {
		var req seriesQuery
		if err := bindSeriesQuery(c, &req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		breakdown, err := useCase.ConditionBreakdown(req.City, req.Day)
		if err != nil {
			return mapQueryError(err)
		}

		type conditionJSON struct {
			Condition string  `json:"condition"`
			Count     int     `json:"count"`
			Hours     float64 `json:"hours"`
		}
		out := make([]conditionJSON, 0, len(breakdown))
		for _, cc := range breakdown {
			out = append(out, conditionJSON{Condition: cc.Condition, Count: cc.Count, Hours: cc.Hours})
		}

		return c.JSON(fiber.Map{
			"city":       req.City,
			"day":        req.Day,
			"conditions": out,
		})
	})
}

func bindSeriesQuery(c *fiber.Ctx, req *seriesQuery) error {
	req.City = c.Query("city")
	req.Day = c.QueryInt("day")
	return validate.Struct(req)
}

// mapQueryError distinguishes a bad request from a store-side failure.
// An empty result is not an error and never reaches this point.
func mapQueryError(err error) error {
	if errors.Is(err, usecases.ErrInvalidQuery) {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return fiber.NewError(fiber.StatusInternalServerError, "failed to read weather data")
}

// observationsOrEmpty keeps "no data yet" as an empty JSON array rather
// than null.
func observationsOrEmpty[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
