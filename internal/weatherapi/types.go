package weatherapi

import (
	"time"

	"github.com/gridline/raceweather/internal/domain"
)

// Provider API response types. The hourly forecast endpoint nests every
// measurement inside a value/unit object and paginates via nextPageToken.

type forecastResponse struct {
	ForecastHours []forecastHour `json:"forecastHours"`
	NextPageToken string         `json:"nextPageToken"`
}

type forecastHour struct {
	StartTime            string          `json:"startTime"` // RFC 3339, sometimes absent
	DisplayDateTime      displayDateTime `json:"displayDateTime"`
	Temperature          degrees         `json:"temperature"`
	FeelsLikeTemperature degrees         `json:"feelsLikeTemperature"`
	Wind                 wind            `json:"wind"`
	WeatherCondition     condition       `json:"weatherCondition"`
	Precipitation        precipitation   `json:"precipitation"`
}

type displayDateTime struct {
	Year    int `json:"year"`
	Month   int `json:"month"`
	Day     int `json:"day"`
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
}

type degrees struct {
	Degrees *float64 `json:"degrees"`
	Unit    string   `json:"unit"`
}

type wind struct {
	Speed struct {
		Value *float64 `json:"value"`
		Unit  string   `json:"unit"`
	} `json:"speed"`
	Direction struct {
		Cardinal string `json:"cardinal"`
	} `json:"direction"`
}

type condition struct {
	Description struct {
		Text string `json:"text"`
	} `json:"description"`
}

type precipitation struct {
	Probability struct {
		Percent *float64 `json:"percent"`
		Type    string   `json:"type"`
	} `json:"probability"`
}

// toDomain normalizes a wire entry. A malformed startTime is treated as
// absent so the display-time fallback applies.
func (h forecastHour) toDomain() domain.ForecastHour {
	out := domain.ForecastHour{
		TemperatureC:  h.Temperature.Degrees,
		FeelsLikeC:    h.FeelsLikeTemperature.Degrees,
		WindSpeedKph:  h.Wind.Speed.Value,
		WindDirection: h.Wind.Direction.Cardinal,
		Condition:     h.WeatherCondition.Description.Text,
		PrecipType:    h.Precipitation.Probability.Type,
		PrecipPercent: h.Precipitation.Probability.Percent,
	}

	if h.StartTime != "" {
		if ts, err := time.Parse(time.RFC3339, h.StartTime); err == nil {
			utc := ts.UTC()
			out.StartTimeUTC = &utc
		}
	}

	d := h.DisplayDateTime
	if d.Year != 0 {
		out.DisplayTime = time.Date(d.Year, time.Month(d.Month), d.Day, d.Hours, d.Minutes, 0, 0, time.UTC)
	}

	return out
}
