package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }

func TestCelsiusToFahrenheit(t *testing.T) {
	tests := []struct {
		name     string
		input    *float64
		expected any
	}{
		{"freezing point", f64(0), 32.0},
		{"boiling point", f64(100), 212.0},
		{"race day", f64(25), 77.0},
		{"rounds to one decimal", f64(21.5), 70.7},
		{"negative", f64(-40), -40.0},
		{"absent value", nil, "N/A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CelsiusToFahrenheit(tt.input))
		})
	}
}

func TestKphToMph(t *testing.T) {
	assert.Equal(t, 62.1, KphToMph(f64(100)))
	assert.Equal(t, 0.0, KphToMph(f64(0)))
	assert.Equal(t, "N/A", KphToMph(nil))
}

func TestNormalizeEventTime(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"hour only", "2 PM", "2:00 PM"},
		{"hour and minutes", "2:00 PM", "2:00 PM"},
		{"lowercase compact", "2:00pm", "2:00 PM"},
		{"lowercase with space", "2 pm", "2:00 PM"},
		{"morning", "11:30 AM", "11:30 AM"},
		{"noon", "12 PM", "12:00 PM"},
		{"surrounding whitespace", "  3 PM ", "3:00 PM"},
		{"unparsable passes through", "TBD", "TBD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeEventTime(tt.input)
			assert.Equal(t, tt.expected, got)
			// Normalization must be idempotent.
			assert.Equal(t, got, NormalizeEventTime(got))
		})
	}
}

func TestLocalToUTC(t *testing.T) {
	t.Run("summer maps through EDT", func(t *testing.T) {
		got, err := LocalToUTC("2025-06-13", "2 PM", "America/New_York")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 6, 13, 18, 0, 0, 0, time.UTC), got)
	})

	t.Run("winter maps through EST", func(t *testing.T) {
		got, err := LocalToUTC("2025-01-10", "2 PM", "America/New_York")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 1, 10, 19, 0, 0, 0, time.UTC), got)
	})

	t.Run("unparsable time", func(t *testing.T) {
		_, err := LocalToUTC("2025-06-13", "sometime", "America/New_York")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrTimeParse))
	})

	t.Run("unparsable date", func(t *testing.T) {
		_, err := LocalToUTC("13/06/2025", "2 PM", "America/New_York")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrTimeParse))
	})

	t.Run("unknown zone", func(t *testing.T) {
		_, err := LocalToUTC("2025-06-13", "2 PM", "Mars/Olympus_Mons")
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrTimeParse))
	})
}

func TestAbbreviateWindDirection(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"North_Northwest", "N NW"},
		{"East", "E"},
		{"Southwest", "SW"},
		{"NORTH_NORTHWEST", "N NW"},
		{"Variable", "Variable"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, AbbreviateWindDirection(tt.input))
		})
	}
}

func TestTitleCase(t *testing.T) {
	table := NewNormalizationTable(
		[]string{"NASCAR", "ARCA", "INDYCAR"},
		map[string]string{"CARS TOUR": "CARS Tour"},
		nil,
	)

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain words", "MOSTLY CLOUDY", "Mostly Cloudy"},
		{"acronym preserved", "NASCAR CUP SERIES", "NASCAR Cup Series"},
		{"acronym from lowercase", "nascar cup series", "NASCAR Cup Series"},
		{"single acronym", "INDYCAR", "INDYCAR"},
		{"canonical phrase", "CARS TOUR", "CARS Tour"},
		{"canonical phrase lowercase", "cars tour", "CARS Tour"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, table.TitleCase(tt.input))
		})
	}
}

func TestNormalizeEvents(t *testing.T) {
	table := NewNormalizationTable(
		[]string{"NASCAR"},
		nil,
		[]string{"time", "channel", "track_location"},
	)

	events := []ProcessedEvent{{
		Series:        "NASCAR CUP SERIES",
		Location:      "DAYTONA",
		Time:          "2 PM",
		Channel:       "FS1",
		TrackName:     "DAYTONA INTERNATIONAL SPEEDWAY",
		TrackLocation: "1801 W INTERNATIONAL SPEEDWAY BLVD",
		Weather: EventWeather{
			HourlyForecast: []HourlyConditions{{
				Condition:     "PARTLY CLOUDY",
				WindDirection: "North_Northwest",
			}},
		},
	}}

	NormalizeEvents(events, table)

	e := events[0]
	assert.Equal(t, "NASCAR Cup Series", e.Series)
	assert.Equal(t, "Daytona", e.Location)
	assert.Equal(t, "Daytona International Speedway", e.TrackName)
	assert.Equal(t, "Partly Cloudy", e.Weather.HourlyForecast[0].Condition)
	assert.Equal(t, "N NW", e.Weather.HourlyForecast[0].WindDirection)

	// Skip keys stay untouched.
	assert.Equal(t, "2 PM", e.Time)
	assert.Equal(t, "FS1", e.Channel)
	assert.Equal(t, "1801 W INTERNATIONAL SPEEDWAY BLVD", e.TrackLocation)
}
