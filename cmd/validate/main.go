// Command validate performs integrity checks on the service's data
// fixtures: the track reference table and the per-series schedule
// documents. It verifies venue-name uniqueness, coordinate sanity,
// schedule-to-track resolution, and date/time parseability.
//
// Usage:
//
//	go run ./cmd/validate -tracks data/tracks.json -schedules data/series_schedules
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gridline/raceweather/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	tracksPath := flag.String("tracks", "data/tracks.json", "path to the track table JSON")
	schedDir := flag.String("schedules", "data/series_schedules", "directory of per-series schedule JSON files")
	zone := flag.String("zone", "America/New_York", "civil timezone of schedule times")
	flag.Parse()

	phases := []*phase{
		checkTracks(*tracksPath),
		checkSchedules(*schedDir, *tracksPath, *zone),
	}

	failed := false
	for _, p := range phases {
		if p.passed() {
			fmt.Printf("PASS %s\n", p.name)
			continue
		}
		failed = true
		fmt.Printf("FAIL %s\n", p.name)
		for _, e := range p.errors {
			fmt.Printf("  - %s\n", e)
		}
	}
	if failed {
		os.Exit(1)
	}
}

func checkTracks(path string) *phase {
	p := &phase{name: "track table"}

	tracks, err := loadTracks(path)
	if err != nil {
		p.errorf("load %s: %v", path, err)
		return p
	}
	if err := tracks.Validate(); err != nil {
		p.errorf("%v", err)
	}

	for _, t := range tracks {
		if t.Name == "" {
			p.errorf("track with empty name (display %q)", t.DisplayName)
		}
		if t.Latitude < -90 || t.Latitude > 90 || t.Longitude < -180 || t.Longitude > 180 {
			p.errorf("track %q has out-of-range coordinates (%v, %v)", t.Name, t.Latitude, t.Longitude)
		}
		if t.Latitude == 0 && t.Longitude == 0 {
			p.errorf("track %q has no geocoded coordinates", t.Name)
		}
	}
	return p
}

func checkSchedules(dir, tracksPath, zone string) *phase {
	p := &phase{name: "schedule documents"}

	tracks, err := loadTracks(tracksPath)
	if err != nil {
		p.errorf("load %s: %v", tracksPath, err)
		return p
	}

	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil || len(paths) == 0 {
		p.errorf("no schedule documents found in %s", dir)
		return p
	}

	for _, path := range paths {
		var events []domain.ScheduleEvent
		if err := loadJSON(path, &events); err != nil {
			p.errorf("load %s: %v", path, err)
			continue
		}

		for i, e := range events {
			name := fmt.Sprintf("%s[%d]", filepath.Base(path), i)
			if e.Location == "" {
				p.errorf("%s: empty location", name)
				continue
			}
			if _, ok := tracks.Resolve(e.Location); !ok {
				p.errorf("%s: location %q has no track table entry", name, e.Location)
			}
			if _, err := domain.LocalToUTC(e.Date, e.Time, zone); err != nil {
				p.errorf("%s: unparsable date/time %q %q", name, e.Date, e.Time)
			}
		}
	}
	return p
}

func loadTracks(path string) (domain.TrackTable, error) {
	var tracks domain.TrackTable
	if err := loadJSON(path, &tracks); err != nil {
		return nil, err
	}
	return tracks, nil
}

func loadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
