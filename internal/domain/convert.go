package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"
)

// NA is the sentinel published in place of a missing numeric value.
const NA = "N/A"

// CelsiusToFahrenheit converts a temperature, rounding to one decimal place.
// A nil input yields the "N/A" sentinel rather than an error: absent provider
// values flow through to the published JSON as-is.
func CelsiusToFahrenheit(c *float64) any {
	if c == nil {
		return NA
	}
	return round1(*c*9/5 + 32)
}

// KphToMph converts a wind speed, rounding to one decimal place. Nil yields
// the "N/A" sentinel.
func KphToMph(kph *float64) any {
	if kph == nil {
		return NA
	}
	return round1(*kph * 0.621371)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// eventTimeFormats are the clock formats accepted in schedule documents,
// tried in order. Input is upper-cased first so "2:00pm" parses too.
var eventTimeFormats = []string{"3:04 PM", "3:04PM", "3 PM", "3PM"}

// NormalizeEventTime canonicalizes a schedule time string to "H:MM AM/PM"
// with an uppercase meridiem, e.g. "2 PM" and "2:00pm" both become
// "2:00 PM". Normalizing an already-normalized string is a no-op, and input
// that matches no accepted format is returned unchanged; LocalToUTC is the
// layer that reports that as an error.
func NormalizeEventTime(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	for _, layout := range eventTimeFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("3:04 PM")
		}
	}
	return raw
}

// LocalToUTC combines a civil date (YYYY-MM-DD) and a schedule time string
// into an instant in the named IANA zone and converts it to UTC. DST rules
// for the given date apply, so "2 PM" on a June date in America/New_York
// maps to 18:00Z while the same clock time in January maps to 19:00Z.
// Returns an error wrapping ErrTimeParse when either part is unparsable.
func LocalToUTC(dateStr, timeStr, zone string) (time.Time, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return time.Time{}, fmt.Errorf("load zone %q: %w", zone, err)
	}

	normalized := NormalizeEventTime(timeStr)
	t, err := time.ParseInLocation("2006-01-02 3:04 PM", dateStr+" "+normalized, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q %q", ErrTimeParse, dateStr, timeStr)
	}
	return t.UTC(), nil
}

// windAbbreviations maps single cardinal words to their abbreviated form.
var windAbbreviations = map[string]string{
	"North":     "N",
	"South":     "S",
	"East":      "E",
	"West":      "W",
	"Northeast": "NE",
	"Northwest": "NW",
	"Southeast": "SE",
	"Southwest": "SW",
}

// AbbreviateWindDirection shortens a provider cardinal direction, handling
// compound values by abbreviating each underscore-separated token
// independently: "North_Northwest" becomes "N NW". Token matching is
// case-insensitive since providers report both "NORTH" and "North"; unknown
// tokens pass through unchanged.
func AbbreviateWindDirection(direction string) string {
	parts := strings.Split(direction, "_")
	for i, part := range parts {
		if abbr, ok := windAbbreviations[titleWord(part)]; ok {
			parts[i] = abbr
		}
	}
	return strings.Join(parts, " ")
}

// NormalizationTable drives text-case cleanup of published events. It is
// data, not code: acronyms stay fully upper-cased, phrases replace a whole
// string with a fixed canonical spelling, and skip keys name the JSON fields
// that must not be touched at all (raw times, channel codes, addresses).
type NormalizationTable struct {
	acronyms map[string]struct{}
	phrases  map[string]string
	skipKeys map[string]struct{}
}

// NewNormalizationTable builds a table from configuration values. Acronym
// and phrase matching is case-insensitive.
func NewNormalizationTable(acronyms []string, phrases map[string]string, skipKeys []string) NormalizationTable {
	t := NormalizationTable{
		acronyms: make(map[string]struct{}, len(acronyms)),
		phrases:  make(map[string]string, len(phrases)),
		skipKeys: make(map[string]struct{}, len(skipKeys)),
	}
	for _, a := range acronyms {
		t.acronyms[strings.ToUpper(a)] = struct{}{}
	}
	for phrase, canonical := range phrases {
		t.phrases[strings.ToUpper(phrase)] = canonical
	}
	for _, k := range skipKeys {
		t.skipKeys[k] = struct{}{}
	}
	return t
}

// Skip reports whether the field with the given JSON key is exempt from
// text normalization.
func (t NormalizationTable) Skip(key string) bool {
	_, ok := t.skipKeys[key]
	return ok
}

// TitleCase title-cases each word of s, keeping recognized acronyms fully
// upper-cased. If the whole string matches a canonical phrase the fixed
// spelling is returned instead, so "CARS TOUR" stays "CARS Tour" rather
// than "Cars Tour".
func (t NormalizationTable) TitleCase(s string) string {
	if canonical, ok := t.phrases[strings.ToUpper(strings.TrimSpace(s))]; ok {
		return canonical
	}

	words := strings.Fields(s)
	for i, word := range words {
		upper := strings.ToUpper(word)
		if _, ok := t.acronyms[upper]; ok {
			words[i] = upper
			continue
		}
		words[i] = titleWord(word)
	}
	return strings.Join(words, " ")
}

func titleWord(word string) string {
	runes := []rune(strings.ToLower(word))
	for i, r := range runes {
		if unicode.IsLetter(r) {
			runes[i] = unicode.ToUpper(r)
			break
		}
	}
	return string(runes)
}

// NormalizeEvents applies title-casing and wind-direction abbreviation to
// every published string field of the given events, honoring the table's
// skip keys. Events are modified in place.
func NormalizeEvents(events []ProcessedEvent, table NormalizationTable) {
	for i := range events {
		e := &events[i]
		if !table.Skip("series") {
			e.Series = table.TitleCase(e.Series)
		}
		if !table.Skip("location") {
			e.Location = table.TitleCase(e.Location)
		}
		if !table.Skip("channel") {
			e.Channel = table.TitleCase(e.Channel)
		}
		if !table.Skip("track_name") {
			e.TrackName = table.TitleCase(e.TrackName)
		}
		if !table.Skip("track_location") {
			e.TrackLocation = table.TitleCase(e.TrackLocation)
		}
		for j := range e.Weather.HourlyForecast {
			h := &e.Weather.HourlyForecast[j]
			if !table.Skip("condition") {
				h.Condition = table.TitleCase(h.Condition)
			}
			if !table.Skip("precipitation_type") {
				h.PrecipitationType = table.TitleCase(h.PrecipitationType)
			}
			h.WindDirection = AbbreviateWindDirection(h.WindDirection)
		}
	}
}
