package domain

import (
	"time"
)

// PeriodKey returns the snapshot key for the week containing now: the civil
// date of that week's Monday. Pure date arithmetic on the caller's clock;
// no timezone conversion is involved because this keys a processing cycle,
// not a forecast instant.
func PeriodKey(now time.Time) string {
	// time.Weekday counts Sunday=0; shift so Monday=0.
	offset := (int(now.Weekday()) + 6) % 7
	monday := now.AddDate(0, 0, -offset)
	return monday.Format("2006-01-02")
}

// DailyHighLow scans the forecast for entries on the event's civil calendar
// date and returns the max and min temperature in Fahrenheit. When no entry
// on that date carries a temperature, both values are the "N/A" sentinel.
// The high is never below the low when both are numeric.
func DailyHighLow(forecast []ForecastHour, eventDate time.Time, loc *time.Location) (high, low any) {
	var temps []float64
	for _, h := range forecast {
		civil := h.CivilTime(loc)
		if civil.IsZero() {
			continue
		}
		y, m, d := civil.Date()
		ey, em, ed := eventDate.Date()
		if y != ey || m != em || d != ed {
			continue
		}
		if h.TemperatureC == nil {
			continue
		}
		if f, ok := CelsiusToFahrenheit(h.TemperatureC).(float64); ok {
			temps = append(temps, f)
		}
	}

	if len(temps) == 0 {
		return NA, NA
	}
	maxT, minT := temps[0], temps[0]
	for _, t := range temps[1:] {
		if t > maxT {
			maxT = t
		}
		if t < minT {
			minT = t
		}
	}
	return maxT, minT
}

// EventWindow computes the forecast time range relevant to an event.
//
// Before the event starts the window is fixed: beforeHours ahead of the
// start through afterHours past it. Once the event is underway the window's
// start slides forward with the clock while the end stays anchored one hour
// short of the original end, so the window shrinks and eventually empties as
// the broadcast wraps up. The end never moves past the start retroactively;
// an empty window is expressed by end < start.
func EventWindow(eventStartUTC, nowUTC time.Time, before, after time.Duration) (start, end time.Time) {
	if nowUTC.Before(eventStartUTC) {
		return eventStartUTC.Add(-before), eventStartUTC.Add(after)
	}
	return nowUTC, eventStartUTC.Add(after - time.Hour)
}

// SelectWindow returns the forecast entries whose effective UTC time falls
// within [start, end], in chronological order, truncated to limit entries.
// Provider entries lacking an absolute timestamp are compared via the
// display-time-as-UTC fallback (see ForecastHour.EffectiveUTC).
func SelectWindow(forecast []ForecastHour, start, end time.Time, limit int) []ForecastHour {
	var selected []ForecastHour
	for _, h := range forecast {
		ts := h.EffectiveUTC()
		if ts.IsZero() {
			continue
		}
		if !ts.Before(start) && !ts.After(end) {
			selected = append(selected, h)
			if len(selected) == limit {
				break
			}
		}
	}
	return selected
}

// Conditions converts a forecast entry to its display form: the civil clock
// time in the given display zone plus unit-converted measurements, with
// "N/A" standing in for anything the provider omitted.
func (h ForecastHour) Conditions(loc *time.Location) HourlyConditions {
	return HourlyConditions{
		Time:              h.EffectiveUTC().In(loc).Format("03:04 PM"),
		Temperature:       CelsiusToFahrenheit(h.TemperatureC),
		FeelsLike:         CelsiusToFahrenheit(h.FeelsLikeC),
		Condition:         stringOrNA(h.Condition),
		PrecipitationType: stringOrNA(h.PrecipType),
		PrecipitationProb: floatOrNA(h.PrecipPercent),
		WindSpeed:         KphToMph(h.WindSpeedKph),
		WindDirection:     stringOrNA(h.WindDirection),
	}
}

// SummaryEntry converts a forecast entry to its compact 10-day summary form.
func (h ForecastHour) SummaryEntry(loc *time.Location) SummaryHour {
	return SummaryHour{
		Time:                 h.CivilTime(loc).Format("2006-01-02 15:04"),
		TempFahrenheit:       CelsiusToFahrenheit(h.TemperatureC),
		PrecipitationPercent: floatOrNA(h.PrecipPercent),
	}
}

func stringOrNA(s string) string {
	if s == "" {
		return NA
	}
	return s
}

func floatOrNA(v *float64) any {
	if v == nil {
		return NA
	}
	return *v
}
