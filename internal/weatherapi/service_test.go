package weatherapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridline/raceweather/internal/domain"
	"github.com/gridline/raceweather/internal/observability"
)

// --- mocks ---

type countingFetcher struct {
	calls int
	hours []domain.ForecastHour
	err   error
}

func (f *countingFetcher) FetchForecast(_ context.Context, _, _ float64) ([]domain.ForecastHour, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.hours, nil
}

type recordingSink struct {
	merged map[string]domain.VenueSummary
	resets int
}

func newRecordingSink() *recordingSink {
	return &recordingSink{merged: make(map[string]domain.VenueSummary)}
}

func (s *recordingSink) Merge(name string, summary domain.VenueSummary) error {
	s.merged[name] = summary
	return nil
}

func (s *recordingSink) Reset() error {
	s.resets++
	return nil
}

func serviceTracks() domain.TrackTable {
	return domain.TrackTable{
		{Name: "DAYTONA", DisplayName: "Daytona International Speedway", Latitude: 29.19, Longitude: -81.07},
	}
}

func newTestService(fetcher Fetcher, sink SummarySink) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(fetcher, serviceTracks(), sink, time.UTC, logger, observability.NewMetricsForTesting())
}

func sampleHours() []domain.ForecastHour {
	ts := time.Date(2025, 6, 13, 18, 0, 0, 0, time.UTC)
	temp := 25.0
	return []domain.ForecastHour{{StartTimeUTC: &ts, TemperatureC: &temp}}
}

// --- tests ---

func TestService_LocationForecast_CachesPerVenue(t *testing.T) {
	fetcher := &countingFetcher{hours: sampleHours()}
	svc := newTestService(fetcher, newRecordingSink())

	first, ok := svc.LocationForecast(context.Background(), "DAYTONA")
	require.True(t, ok)
	require.Len(t, first, 1)

	second, ok := svc.LocationForecast(context.Background(), "DAYTONA")
	require.True(t, ok)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, fetcher.calls, "second lookup must be served from cache")
}

func TestService_LocationForecast_CacheFoldsCase(t *testing.T) {
	fetcher := &countingFetcher{hours: sampleHours()}
	svc := newTestService(fetcher, newRecordingSink())

	_, ok := svc.LocationForecast(context.Background(), "DAYTONA")
	require.True(t, ok)
	_, ok = svc.LocationForecast(context.Background(), "daytona")
	require.True(t, ok)
	assert.Equal(t, 1, fetcher.calls)
}

func TestService_LocationForecast_UnknownVenue(t *testing.T) {
	fetcher := &countingFetcher{hours: sampleHours()}
	svc := newTestService(fetcher, newRecordingSink())

	hours, ok := svc.LocationForecast(context.Background(), "SPEEDWAY A")
	assert.False(t, ok)
	assert.Nil(t, hours)
	assert.Zero(t, fetcher.calls)
}

func TestService_LocationForecast_MissingCredential(t *testing.T) {
	svc := newTestService(nil, newRecordingSink())

	hours, ok := svc.LocationForecast(context.Background(), "DAYTONA")
	assert.False(t, ok)
	assert.Nil(t, hours)
}

func TestService_LocationForecast_FetchFailure(t *testing.T) {
	fetcher := &countingFetcher{err: errors.New("provider down")}
	svc := newTestService(fetcher, newRecordingSink())

	_, ok := svc.LocationForecast(context.Background(), "DAYTONA")
	assert.False(t, ok)

	// Failures are not cached; the next lookup tries again.
	_, _ = svc.LocationForecast(context.Background(), "DAYTONA")
	assert.Equal(t, 2, fetcher.calls)
}

func TestService_LocationForecast_WritesSummary(t *testing.T) {
	fetcher := &countingFetcher{hours: sampleHours()}
	sink := newRecordingSink()
	svc := newTestService(fetcher, sink)

	_, ok := svc.LocationForecast(context.Background(), "DAYTONA")
	require.True(t, ok)

	summary, ok := sink.merged["Daytona International Speedway"]
	require.True(t, ok, "summary keyed by track display name")
	require.Len(t, summary.ForecastHours, 1)
	assert.Equal(t, 77.0, summary.ForecastHours[0].TempFahrenheit)
	assert.Equal(t, "N/A", summary.ForecastHours[0].PrecipitationPercent)
}

func TestService_ClearCache(t *testing.T) {
	fetcher := &countingFetcher{hours: sampleHours()}
	sink := newRecordingSink()
	svc := newTestService(fetcher, sink)

	_, ok := svc.LocationForecast(context.Background(), "DAYTONA")
	require.True(t, ok)

	svc.ClearCache()
	assert.Equal(t, 1, sink.resets)

	_, ok = svc.LocationForecast(context.Background(), "DAYTONA")
	require.True(t, ok)
	assert.Equal(t, 2, fetcher.calls, "cleared cache must refetch")
}
