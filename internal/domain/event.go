package domain

import (
	"errors"
	"time"
)

// Sentinel errors for the conditions the pipeline treats specially.
var (
	// ErrTimeParse indicates a schedule date/time that matched none of the
	// accepted formats. Events with this error are kept but carry no
	// computed start time.
	ErrTimeParse = errors.New("unparsable event date/time")

	// ErrUnknownVenue indicates a venue with no entry in the track table.
	// Fatal for that venue's forecast fetch, not for the run.
	ErrUnknownVenue = errors.New("venue not found in track table")
)

// ScheduleEvent is one row of a per-series schedule document, as authored.
// Dates are civil (YYYY-MM-DD) and times are local clock strings in a
// variety of formats ("2 PM", "2:00 PM").
type ScheduleEvent struct {
	Series   string `json:"series"`
	Location string `json:"location"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Channel  string `json:"channel"`
}

// Track is one row of the read-only track reference table. Address carries
// the human-readable street address ("location" in the source document) and
// DisplayName the speedway's proper name ("trackName").
type Track struct {
	Name        string  `json:"name"`
	Address     string  `json:"location"`
	DisplayName string  `json:"trackName"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

// ForecastHour is one normalized provider forecast entry. Pointer fields are
// nil when the provider omitted the value. DisplayTime is the provider's
// civil local time for the venue; StartTimeUTC is the absolute timestamp and
// may be absent on some provider entries.
type ForecastHour struct {
	StartTimeUTC  *time.Time
	DisplayTime   time.Time
	TemperatureC  *float64
	FeelsLikeC    *float64
	WindSpeedKph  *float64
	WindDirection string
	Condition     string
	PrecipType    string
	PrecipPercent *float64
}

// EffectiveUTC returns the entry's absolute timestamp, falling back to the
// civil display time reinterpreted as UTC when the provider omitted
// startTime. The fallback mirrors a provider quirk: entries past a certain
// horizon sometimes carry only displayDateTime, and the original feed
// compared them as if they were UTC. Changing this would shift which hours
// land in an event's window, so it is preserved as-is.
func (h ForecastHour) EffectiveUTC() time.Time {
	if h.StartTimeUTC != nil {
		return *h.StartTimeUTC
	}
	return h.DisplayTime
}

// CivilTime returns the venue-local civil time for date comparisons,
// deriving it from the absolute timestamp when the provider omitted
// displayDateTime.
func (h ForecastHour) CivilTime(loc *time.Location) time.Time {
	if !h.DisplayTime.IsZero() {
		return h.DisplayTime
	}
	if h.StartTimeUTC != nil {
		return h.StartTimeUTC.In(loc)
	}
	return time.Time{}
}

// HourlyConditions is one display-ready forecast hour attached to an event.
// Temperature, feels-like, wind speed and precipitation probability are
// either a number or the "N/A" sentinel, matching the published JSON shape.
type HourlyConditions struct {
	Time              string `json:"time"`
	Temperature       any    `json:"temperature"`
	FeelsLike         any    `json:"feels_like"`
	Condition         string `json:"condition"`
	PrecipitationType string `json:"precipitation_type"`
	PrecipitationProb any    `json:"precipitation_prob"`
	WindSpeed         any    `json:"wind_speed"`
	WindDirection     string `json:"wind_speed_direction"`
}

// EventWeather is the weather block attached to a processed event. A zero
// value marshals as an empty object, which is the published form for events
// whose forecast could not be fetched.
type EventWeather struct {
	HourlyForecast []HourlyConditions `json:"hourly_forecast,omitempty"`
	DailyHigh      any                `json:"daily_high,omitempty"`
	DailyLow       any                `json:"daily_low,omitempty"`
}

// Empty reports whether the weather block carries no data.
func (w EventWeather) Empty() bool {
	return len(w.HourlyForecast) == 0 && w.DailyHigh == nil && w.DailyLow == nil
}

// ProcessedEvent is a schedule event enriched with its computed UTC start
// time, track metadata, and windowed weather. Track fields are absent when
// the venue did not resolve; StartTimeUTC is absent when the schedule
// date/time could not be parsed.
type ProcessedEvent struct {
	Series        string       `json:"series,omitempty"`
	Location      string       `json:"location"`
	Date          string       `json:"date"`
	Time          string       `json:"time"`
	Channel       string       `json:"channel,omitempty"`
	StartTimeUTC  *time.Time   `json:"start_time_UTC,omitempty"`
	TrackLocation string       `json:"track_location,omitempty"`
	TrackName     string       `json:"track_name,omitempty"`
	TrackLat      *float64     `json:"track_latitude,omitempty"`
	TrackLon      *float64     `json:"track_longitude,omitempty"`
	Weather       EventWeather `json:"weather"`
}

// Snapshot is one persisted processing cycle: the events for the week
// identified by PeriodKey (the Monday of that week, YYYY-MM-DD).
type Snapshot struct {
	PeriodKey string
	Events    []ProcessedEvent
}

// SummaryHour is one entry of the compact cross-venue 10-day summary.
type SummaryHour struct {
	Time                 string `json:"time"`
	TempFahrenheit       any    `json:"tempFahrenheit"`
	PrecipitationPercent any    `json:"precipitationPercent"`
}

// VenueSummary is the 10-day summary for one venue, keyed in the summary
// document by the track's display name.
type VenueSummary struct {
	ForecastHours []SummaryHour `json:"forecastHours"`
}
