package domain

import (
	"fmt"
	"strings"
)

// TrackTable is the read-only venue reference table loaded from tracks.json.
type TrackTable []Track

// Validate checks the table invariant: venue names are unique
// case-insensitively. Schedule locations resolve by name, so a duplicate
// would make attachment ambiguous.
func (t TrackTable) Validate() error {
	seen := make(map[string]string, len(t))
	for _, track := range t {
		key := strings.ToUpper(strings.TrimSpace(track.Name))
		if prev, ok := seen[key]; ok {
			return fmt.Errorf("duplicate track name %q (conflicts with %q)", track.Name, prev)
		}
		seen[key] = track.Name
	}
	return nil
}

// Resolve finds the track whose name exactly matches the event's location.
// Schedules and the track table are both authored upper-case, so no folding
// happens on this path; a miss is expected for venues not yet in the table
// and the caller proceeds without track metadata.
func (t TrackTable) Resolve(location string) (Track, bool) {
	for _, track := range t {
		if track.Name == location {
			return track, true
		}
	}
	return Track{}, false
}

// Lookup finds a track by venue name, folding case and surrounding
// whitespace. The forecast path uses this looser match because venue names
// arrive from callers as well as schedule rows.
func (t TrackTable) Lookup(venue string) (Track, bool) {
	key := strings.ToUpper(strings.TrimSpace(venue))
	for _, track := range t {
		if strings.ToUpper(track.Name) == key {
			return track, true
		}
	}
	return Track{}, false
}
