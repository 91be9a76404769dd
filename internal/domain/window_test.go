package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func utc(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}

func utcp(y int, m time.Month, d, h int) *time.Time {
	t := utc(y, m, d, h)
	return &t
}

func TestPeriodKey(t *testing.T) {
	tests := []struct {
		name     string
		now      time.Time
		expected string
	}{
		{"friday", utc(2025, 6, 13, 15), "2025-06-09"},
		{"monday itself", utc(2025, 6, 9, 0), "2025-06-09"},
		{"sunday belongs to same week", utc(2025, 6, 15, 23), "2025-06-09"},
		{"next monday rolls over", utc(2025, 6, 16, 0), "2025-06-16"},
		{"year boundary", utc(2026, 1, 1, 12), "2025-12-29"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, PeriodKey(tt.now))
		})
	}
}

func TestDailyHighLow(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	eventDate := time.Date(2025, 6, 13, 0, 0, 0, 0, time.UTC)

	t.Run("high and low from the event date", func(t *testing.T) {
		forecast := []ForecastHour{
			{DisplayTime: utc(2025, 6, 13, 8), TemperatureC: f64(20)},
			{DisplayTime: utc(2025, 6, 13, 14), TemperatureC: f64(30)},
			{DisplayTime: utc(2025, 6, 13, 20), TemperatureC: f64(25)},
			// Next day is out of scope.
			{DisplayTime: utc(2025, 6, 14, 14), TemperatureC: f64(40)},
		}

		high, low := DailyHighLow(forecast, eventDate, loc)
		assert.Equal(t, 86.0, high)
		assert.Equal(t, 68.0, low)
	})

	t.Run("high never below low", func(t *testing.T) {
		forecast := []ForecastHour{
			{DisplayTime: utc(2025, 6, 13, 8), TemperatureC: f64(22.3)},
			{DisplayTime: utc(2025, 6, 13, 9), TemperatureC: f64(22.3)},
		}
		high, low := DailyHighLow(forecast, eventDate, loc)
		require.IsType(t, 0.0, high)
		require.IsType(t, 0.0, low)
		assert.GreaterOrEqual(t, high.(float64), low.(float64))
	})

	t.Run("no entries on the date", func(t *testing.T) {
		forecast := []ForecastHour{
			{DisplayTime: utc(2025, 6, 14, 14), TemperatureC: f64(30)},
		}
		high, low := DailyHighLow(forecast, eventDate, loc)
		assert.Equal(t, "N/A", high)
		assert.Equal(t, "N/A", low)
	})

	t.Run("entries without temperature are skipped", func(t *testing.T) {
		forecast := []ForecastHour{
			{DisplayTime: utc(2025, 6, 13, 8)},
			{DisplayTime: utc(2025, 6, 13, 14)},
		}
		high, low := DailyHighLow(forecast, eventDate, loc)
		assert.Equal(t, "N/A", high)
		assert.Equal(t, "N/A", low)
	})

	t.Run("falls back to absolute timestamp for civil date", func(t *testing.T) {
		// 02:00Z on June 14 is still June 13 in New York.
		forecast := []ForecastHour{
			{StartTimeUTC: utcp(2025, 6, 14, 2), TemperatureC: f64(20)},
		}
		high, low := DailyHighLow(forecast, eventDate, loc)
		assert.Equal(t, 68.0, high)
		assert.Equal(t, 68.0, low)
	})
}

func TestEventWindow(t *testing.T) {
	eventStart := utc(2025, 6, 13, 18)
	before := 2 * time.Hour
	after := 3 * time.Hour

	t.Run("before the event the window is fixed", func(t *testing.T) {
		now := utc(2025, 6, 13, 10)
		start, end := EventWindow(eventStart, now, before, after)
		assert.Equal(t, utc(2025, 6, 13, 16), start)
		assert.Equal(t, utc(2025, 6, 13, 21), end)
	})

	t.Run("after start the window shrinks with the clock", func(t *testing.T) {
		now := utc(2025, 6, 13, 19)
		start, end := EventWindow(eventStart, now, before, after)
		assert.Equal(t, now, start)
		assert.Equal(t, utc(2025, 6, 13, 20), end)
	})

	t.Run("window empties once now passes the anchored end", func(t *testing.T) {
		now := utc(2025, 6, 13, 23)
		start, end := EventWindow(eventStart, now, before, after)
		assert.True(t, end.Before(start))
		assert.Empty(t, SelectWindow([]ForecastHour{
			{StartTimeUTC: utcp(2025, 6, 13, 23)},
		}, start, end, 5))
	})
}

func TestSelectWindow(t *testing.T) {
	start := utc(2025, 6, 13, 16)
	end := utc(2025, 6, 13, 23)

	t.Run("truncates to limit in chronological order", func(t *testing.T) {
		var forecast []ForecastHour
		for h := 14; h <= 23; h++ {
			forecast = append(forecast, ForecastHour{StartTimeUTC: utcp(2025, 6, 13, h)})
		}

		selected := SelectWindow(forecast, start, end, 5)
		require.Len(t, selected, 5)
		for i := 1; i < len(selected); i++ {
			assert.False(t, selected[i].EffectiveUTC().Before(selected[i-1].EffectiveUTC()))
		}
		assert.Equal(t, utc(2025, 6, 13, 16), selected[0].EffectiveUTC())
	})

	t.Run("bounds are inclusive", func(t *testing.T) {
		forecast := []ForecastHour{
			{StartTimeUTC: utcp(2025, 6, 13, 16)},
			{StartTimeUTC: utcp(2025, 6, 13, 23)},
		}
		assert.Len(t, SelectWindow(forecast, start, end, 5), 2)
	})

	t.Run("display time treated as UTC when startTime absent", func(t *testing.T) {
		// Provider quirk: entries lacking an absolute timestamp are compared
		// by their civil display time as if it were UTC.
		forecast := []ForecastHour{
			{DisplayTime: utc(2025, 6, 13, 17)},
			{DisplayTime: utc(2025, 6, 14, 17)},
		}
		selected := SelectWindow(forecast, start, end, 5)
		require.Len(t, selected, 1)
		assert.Equal(t, utc(2025, 6, 13, 17), selected[0].EffectiveUTC())
	})

	t.Run("entries with no usable time are skipped", func(t *testing.T) {
		assert.Empty(t, SelectWindow([]ForecastHour{{}}, start, end, 5))
	})
}

func TestConditions(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	t.Run("full entry", func(t *testing.T) {
		h := ForecastHour{
			StartTimeUTC:  utcp(2025, 6, 13, 18),
			TemperatureC:  f64(25),
			FeelsLikeC:    f64(27),
			WindSpeedKph:  f64(10),
			WindDirection: "North",
			Condition:     "Sunny",
			PrecipType:    "RAIN",
			PrecipPercent: f64(15),
		}

		c := h.Conditions(loc)
		assert.Equal(t, "02:00 PM", c.Time)
		assert.Equal(t, 77.0, c.Temperature)
		assert.Equal(t, 80.6, c.FeelsLike)
		assert.Equal(t, 6.2, c.WindSpeed)
		assert.Equal(t, "Sunny", c.Condition)
		assert.Equal(t, "RAIN", c.PrecipitationType)
		assert.Equal(t, 15.0, c.PrecipitationProb)
		assert.Equal(t, "North", c.WindDirection)
	})

	t.Run("absent values become N/A", func(t *testing.T) {
		c := ForecastHour{StartTimeUTC: utcp(2025, 6, 13, 18)}.Conditions(loc)
		assert.Equal(t, "N/A", c.Temperature)
		assert.Equal(t, "N/A", c.FeelsLike)
		assert.Equal(t, "N/A", c.WindSpeed)
		assert.Equal(t, "N/A", c.Condition)
		assert.Equal(t, "N/A", c.PrecipitationType)
		assert.Equal(t, "N/A", c.PrecipitationProb)
		assert.Equal(t, "N/A", c.WindDirection)
	})
}
