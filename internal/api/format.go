package api

import (
	"fmt"
	"strings"

	"github.com/abelzeko/weather-monitor/internal/entities"
)

// FormatSeries formats an observation series for display
func FormatSeries(city string, day int, series []entities.Observation) string {
	if len(series) == 0 {
		return "No observations available for this city."
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("Weather for %s on day %d (%d observations):\n\n", city, day, len(series)))

	for _, obs := range series {
		result.WriteString(fmt.Sprintf("🕒 %02d:%02d ", obs.Hour, obs.Minute))
		result.WriteString(fmt.Sprintf("🌡️ %.2f °C ", obs.Temperature))
		result.WriteString(fmt.Sprintf("💧 %d%% ", obs.Humidity))
		result.WriteString(fmt.Sprintf("☁️ %s\n", obs.Condition))
	}

	last := series[len(series)-1]
	result.WriteString(fmt.Sprintf("\n🕒 Last observation: %s", last.CapturedAt().Format("2006-01-02 15:04:05")))

	return result.String()
}

// FormatConditionBreakdown formats a grouped condition summary for display
func FormatConditionBreakdown(city string, day int, breakdown []entities.ConditionCount) string {
	if len(breakdown) == 0 {
		return "No observations available for this city."
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("Weather conditions for %s on day %d:\n\n", city, day))

	for _, cc := range breakdown {
		result.WriteString(fmt.Sprintf("☁️ %s: %d observations (≈ %.1f h)\n", cc.Condition, cc.Count, cc.Hours))
	}

	return result.String()
}
