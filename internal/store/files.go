// Package store persists and loads the service's JSON documents: per-series
// schedules and the track table (read), the weekly snapshot and the 10-day
// summary (written, fully overwritten each successful run).
package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/gridline/raceweather/internal/domain"
)

// ScheduleStore loads and combines per-series schedule documents.
type ScheduleStore struct {
	files  map[string]string // series name -> document path
	logger *slog.Logger
}

// NewScheduleStore creates a schedule loader over the configured
// series-to-file map.
func NewScheduleStore(files map[string]string, logger *slog.Logger) *ScheduleStore {
	return &ScheduleStore{files: files, logger: logger}
}

// Load reads every enabled series document and returns the union of their
// events. A missing or unreadable series is logged and skipped; it never
// fails the run.
func (s *ScheduleStore) Load(enabled []string) []domain.ScheduleEvent {
	var combined []domain.ScheduleEvent
	for _, series := range enabled {
		path, ok := s.files[series]
		if !ok {
			s.logger.Warn("no schedule file configured for series", "series", series)
			continue
		}

		var events []domain.ScheduleEvent
		if err := readJSON(path, &events); err != nil {
			s.logger.Error("loading schedule failed", "series", series, "error", err)
			continue
		}
		combined = append(combined, events...)
	}

	s.logger.Info("schedules loaded", "series", len(enabled), "events", len(combined))
	return combined
}

// LoadTracks reads the track reference table and enforces its uniqueness
// invariant.
func LoadTracks(path string) (domain.TrackTable, error) {
	var tracks domain.TrackTable
	if err := readJSON(path, &tracks); err != nil {
		return nil, fmt.Errorf("load tracks: %w", err)
	}
	if err := tracks.Validate(); err != nil {
		return nil, fmt.Errorf("load tracks: %w", err)
	}
	return tracks, nil
}

// SnapshotStore persists the weekly events-with-weather snapshot as a
// single-key JSON object {periodKey: [events]}.
type SnapshotStore struct {
	path string
}

// NewSnapshotStore creates a snapshot store writing to path.
func NewSnapshotStore(path string) *SnapshotStore {
	return &SnapshotStore{path: path}
}

// Load reads the persisted snapshot. A missing file is not an error; it
// returns an empty snapshot.
func (s *SnapshotStore) Load() (domain.Snapshot, error) {
	var doc map[string][]domain.ProcessedEvent
	if err := readJSON(s.path, &doc); err != nil {
		if os.IsNotExist(err) {
			return domain.Snapshot{}, nil
		}
		return domain.Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}

	for key, events := range doc {
		return domain.Snapshot{PeriodKey: key, Events: events}, nil
	}
	return domain.Snapshot{}, nil
}

// Save overwrites the snapshot document with the given period's events.
func (s *SnapshotStore) Save(snap domain.Snapshot) error {
	doc := map[string][]domain.ProcessedEvent{snap.PeriodKey: snap.Events}
	if err := writeJSON(s.path, doc); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// SummaryStore persists the cross-venue 10-day summary document keyed by
// track display name. Writes are read-modify-write under a lock since the
// forecast service merges one venue at a time.
type SummaryStore struct {
	mu   sync.Mutex
	path string
}

// NewSummaryStore creates a summary store writing to path.
func NewSummaryStore(path string) *SummaryStore {
	return &SummaryStore{path: path}
}

// Merge inserts or replaces one venue's summary in the document.
func (s *SummaryStore) Merge(displayName string, summary domain.VenueSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := make(map[string]domain.VenueSummary)
	if err := readJSON(s.path, &doc); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("merge summary: %w", err)
	}

	doc[displayName] = summary
	if err := writeJSON(s.path, doc); err != nil {
		return fmt.Errorf("merge summary: %w", err)
	}
	return nil
}

// Reset overwrites the document with an empty object.
func (s *SummaryStore) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeJSON(s.path, map[string]domain.VenueSummary{}); err != nil {
		return fmt.Errorf("reset summary: %w", err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

// writeJSON writes atomically via a temp file and rename so readers never
// observe a half-written document.
func writeJSON(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
