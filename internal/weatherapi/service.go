package weatherapi

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gridline/raceweather/internal/domain"
	"github.com/gridline/raceweather/internal/observability"
)

// Fetcher retrieves the full hourly forecast for a coordinate pair.
type Fetcher interface {
	FetchForecast(ctx context.Context, lat, lon float64) ([]domain.ForecastHour, error)
}

// SummarySink persists the compact cross-venue 10-day summary.
type SummarySink interface {
	Merge(displayName string, summary domain.VenueSummary) error
	Reset() error
}

// Service resolves venues to coordinates and fetches their forecasts,
// caching each venue's result for the lifetime of a pipeline run so events
// sharing a venue cost one network round-trip. It never returns an error:
// any failure is logged and reported as a miss, and the event proceeds with
// empty weather.
type Service struct {
	fetcher     Fetcher
	tracks      domain.TrackTable
	summaries   SummarySink
	displayZone *time.Location
	logger      *slog.Logger
	metrics     *observability.Metrics

	mu    sync.Mutex
	cache map[string][]domain.ForecastHour
}

// NewService creates the caching forecast service. Pass a nil fetcher when
// no API credential is configured: every lookup then short-circuits to a
// logged miss and the pipeline completes with empty weather throughout.
func NewService(fetcher Fetcher, tracks domain.TrackTable, summaries SummarySink, displayZone *time.Location, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		fetcher:     fetcher,
		tracks:      tracks,
		summaries:   summaries,
		displayZone: displayZone,
		logger:      logger,
		metrics:     metrics,
		cache:       make(map[string][]domain.ForecastHour),
	}
}

// LocationForecast returns the forecast for a venue, fetching and caching it
// on first use within the current run. The boolean is false when the venue
// is unknown, the credential is missing, or the fetch failed.
func (s *Service) LocationForecast(ctx context.Context, venue string) ([]domain.ForecastHour, bool) {
	key := strings.ToUpper(strings.TrimSpace(venue))

	s.mu.Lock()
	cached, ok := s.cache[key]
	s.mu.Unlock()
	if ok {
		s.metrics.ForecastCache.WithLabelValues("hit").Inc()
		s.logger.Info("using cached forecast", "venue", venue)
		return cached, true
	}
	s.metrics.ForecastCache.WithLabelValues("miss").Inc()

	if s.fetcher == nil {
		s.logger.Warn("forecast provider disabled: missing API key", "venue", venue)
		return nil, false
	}

	track, ok := s.tracks.Lookup(venue)
	if !ok {
		s.logger.Error("cannot fetch forecast", "venue", venue, "error", domain.ErrUnknownVenue)
		return nil, false
	}

	hours, err := s.fetcher.FetchForecast(ctx, track.Latitude, track.Longitude)
	if err != nil {
		s.logger.Error("forecast fetch failed", "venue", venue, "error", err)
		return nil, false
	}

	s.mu.Lock()
	s.cache[key] = hours
	s.mu.Unlock()
	s.logger.Info("downloaded and cached forecast", "venue", venue, "hours", len(hours))

	s.storeSummary(track, hours)
	return hours, true
}

// ClearCache drops every cached forecast and resets the persisted 10-day
// summary to an empty document. Call before a forced (non-cached) run to
// guarantee fresh provider data.
func (s *Service) ClearCache() {
	s.mu.Lock()
	s.cache = make(map[string][]domain.ForecastHour)
	s.mu.Unlock()

	if s.summaries != nil {
		if err := s.summaries.Reset(); err != nil {
			s.logger.Error("reset forecast summary file", "error", err)
		}
	}
	s.logger.Info("forecast cache cleared")
}

// storeSummary derives the compact 10-day summary for the venue and merges
// it into the shared summary document. Persistence failures are logged only;
// the in-memory forecast remains authoritative.
func (s *Service) storeSummary(track domain.Track, hours []domain.ForecastHour) {
	if s.summaries == nil {
		return
	}

	summary := domain.VenueSummary{ForecastHours: make([]domain.SummaryHour, 0, len(hours))}
	for _, h := range hours {
		summary.ForecastHours = append(summary.ForecastHours, h.SummaryEntry(s.displayZone))
	}

	if err := s.summaries.Merge(track.DisplayName, summary); err != nil {
		s.logger.Error("save 10-day summary", "venue", track.Name, "error", err)
	}
}
