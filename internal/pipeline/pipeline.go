// Package pipeline orchestrates one event-weather processing run: load
// schedules, filter to the active window, attach track metadata and
// windowed forecasts, normalize, sort, and persist the weekly snapshot.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/gridline/raceweather/internal/domain"
	"github.com/gridline/raceweather/internal/observability"
)

// ScheduleSource loads the union of the enabled series' schedule documents.
type ScheduleSource interface {
	Load(enabled []string) []domain.ScheduleEvent
}

// ForecastSource fetches per-venue forecasts with run-lifetime caching.
type ForecastSource interface {
	LocationForecast(ctx context.Context, venue string) ([]domain.ForecastHour, bool)
	ClearCache()
}

// SnapshotStore persists and serves the weekly snapshot.
type SnapshotStore interface {
	Load() (domain.Snapshot, error)
	Save(domain.Snapshot) error
}

// Settings carries the tunables that varied across deployments: which
// series run, how wide the event window opens, and how long a started event
// stays listed.
type Settings struct {
	Series        []string
	WindowBefore  time.Duration
	WindowAfter   time.Duration
	StaleGrace    time.Duration
	Zone          string // IANA name of the civil schedule timezone
	DisplayZone   *time.Location
	Normalization domain.NormalizationTable
}

// Pipeline is the run orchestrator. Single-threaded, synchronous,
// run-to-completion; the surrounding scheduler is responsible for never
// having two runs in flight.
type Pipeline struct {
	schedules ScheduleSource
	tracks    domain.TrackTable
	forecasts ForecastSource
	snapshots SnapshotStore
	settings  Settings
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
}

// New creates a Pipeline with the given collaborators.
func New(schedules ScheduleSource, tracks domain.TrackTable, forecasts ForecastSource, snapshots SnapshotStore, settings Settings, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		schedules: schedules,
		tracks:    tracks,
		forecasts: forecasts,
		snapshots: snapshots,
		settings:  settings,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once at least one run has completed
// successfully.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no pipeline run has completed yet")
	}
	return nil
}

// Run executes one processing cycle and returns the week's processed
// events. It never returns an error: failures are logged and an empty
// sequence is returned, and the snapshot is only written after the whole
// in-memory pipeline succeeded. With useCached true, a persisted snapshot
// for the current period is served without any network traffic.
func (p *Pipeline) Run(ctx context.Context, useCached bool) []domain.ProcessedEvent {
	start := p.clock.Now()
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	periodKey := domain.PeriodKey(p.localNow())

	if useCached {
		if events, ok := p.cachedEvents(periodKey); ok {
			p.metrics.RunsTotal.WithLabelValues("cached").Inc()
			p.ready.Store(true)
			return events
		}
	} else {
		// Forced refresh: drop stale forecasts before any fetch.
		p.forecasts.ClearCache()
	}

	events := p.process(ctx)

	if err := p.snapshots.Save(domain.Snapshot{PeriodKey: periodKey, Events: events}); err != nil {
		p.logger.Error("persisting snapshot failed", "period", periodKey, "error", err)
		p.metrics.RunsTotal.WithLabelValues("error").Inc()
		return []domain.ProcessedEvent{}
	}

	p.metrics.RunsTotal.WithLabelValues("success").Inc()
	p.metrics.RunDuration.Observe(p.clock.Since(start).Seconds())
	p.metrics.EventsProcessed.Add(float64(len(events)))
	p.ready.Store(true)
	p.logger.Info("pipeline run complete", "period", periodKey, "events", len(events))
	return events
}

// cachedEvents serves a persisted snapshot when it matches the current
// period and is non-empty.
func (p *Pipeline) cachedEvents(periodKey string) ([]domain.ProcessedEvent, bool) {
	snap, err := p.snapshots.Load()
	if err != nil {
		p.logger.Warn("loading cached snapshot failed", "error", err)
		return nil, false
	}
	if snap.PeriodKey != periodKey || len(snap.Events) == 0 {
		return nil, false
	}
	p.logger.Info("serving cached events", "period", periodKey, "events", len(snap.Events))
	return snap.Events, true
}

// process runs the in-memory stages.
func (p *Pipeline) process(ctx context.Context) []domain.ProcessedEvent {
	schedule := p.schedules.Load(p.settings.Series)

	upcoming := p.filterDateRange(schedule)
	processed := p.filterStale(upcoming)

	for i := range processed {
		p.attachTrack(&processed[i])
	}
	for i := range processed {
		processed[i].Weather = p.weatherFor(ctx, processed[i])
		p.logger.Info("processed weather for event", "venue", processed[i].Location)
	}

	domain.NormalizeEvents(processed, p.settings.Normalization)
	sortByStartTime(processed)
	return processed
}

// filterDateRange keeps events dated within [today, today+7] inclusive.
// Civil date strings compare lexicographically.
func (p *Pipeline) filterDateRange(schedule []domain.ScheduleEvent) []domain.ScheduleEvent {
	today := p.localNow().Format("2006-01-02")
	horizon := p.localNow().AddDate(0, 0, 7).Format("2006-01-02")

	var kept []domain.ScheduleEvent
	for _, e := range schedule {
		if e.Date >= today && e.Date <= horizon {
			kept = append(kept, e)
		}
	}
	p.logger.Info("date range filter", "from", today, "to", horizon, "events", len(kept))
	return kept
}

// filterStale computes each event's UTC start time and drops events whose
// start plus the grace period has already passed. Events with an
// unparseable date/time are kept (fail-open) with no computed start time.
func (p *Pipeline) filterStale(events []domain.ScheduleEvent) []domain.ProcessedEvent {
	nowUTC := p.clock.Now().UTC()
	kept := make([]domain.ProcessedEvent, 0, len(events))

	for _, e := range events {
		out := domain.ProcessedEvent{
			Series:   e.Series,
			Location: e.Location,
			Date:     e.Date,
			Time:     e.Time,
			Channel:  e.Channel,
		}

		startUTC, err := domain.LocalToUTC(e.Date, e.Time, p.settings.Zone)
		if err != nil {
			p.logger.Error("cannot compute event start time", "venue", e.Location, "date", e.Date, "time", e.Time, "error", err)
			kept = append(kept, out)
			continue
		}

		if startUTC.Add(p.settings.StaleGrace).Before(nowUTC) {
			p.logger.Info("dropping stale event", "venue", e.Location, "start", startUTC)
			continue
		}

		out.StartTimeUTC = &startUTC
		kept = append(kept, out)
	}
	return kept
}

// attachTrack resolves the event's venue against the track table. A miss is
// logged once and leaves the track fields absent; the event stays in the
// output.
func (p *Pipeline) attachTrack(e *domain.ProcessedEvent) {
	track, ok := p.tracks.Resolve(e.Location)
	if !ok {
		p.metrics.TrackMisses.Inc()
		p.logger.Warn("no track match for event location", "location", e.Location)
		return
	}

	e.TrackLocation = track.Address
	e.TrackName = track.DisplayName
	lat, lon := track.Latitude, track.Longitude
	e.TrackLat = &lat
	e.TrackLon = &lon
}

// weatherFor builds the event's weather block: daily high/low for the
// event's calendar date plus up to 5 windowed hourly entries. Any missing
// prerequisite yields an empty block, never an error.
func (p *Pipeline) weatherFor(ctx context.Context, e domain.ProcessedEvent) domain.EventWeather {
	if e.Location == "" || e.Date == "" || e.Time == "" || e.StartTimeUTC == nil {
		return domain.EventWeather{}
	}

	forecast, ok := p.forecasts.LocationForecast(ctx, e.Location)
	if !ok {
		return domain.EventWeather{}
	}

	eventDate, err := time.Parse("2006-01-02", e.Date)
	if err != nil {
		return domain.EventWeather{}
	}

	high, low := domain.DailyHighLow(forecast, eventDate, p.settings.DisplayZone)

	winStart, winEnd := domain.EventWindow(*e.StartTimeUTC, p.clock.Now().UTC(), p.settings.WindowBefore, p.settings.WindowAfter)
	selected := domain.SelectWindow(forecast, winStart, winEnd, 5)

	hourly := make([]domain.HourlyConditions, 0, len(selected))
	for _, h := range selected {
		hourly = append(hourly, h.Conditions(p.settings.DisplayZone))
	}

	return domain.EventWeather{
		HourlyForecast: hourly,
		DailyHigh:      high,
		DailyLow:       low,
	}
}

// sortByStartTime orders events ascending by computed start time. Events
// with no computed start time sort last, then by date string for stability.
func sortByStartTime(events []domain.ProcessedEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		switch {
		case a.StartTimeUTC == nil && b.StartTimeUTC == nil:
			return a.Date < b.Date
		case a.StartTimeUTC == nil:
			return false
		case b.StartTimeUTC == nil:
			return true
		default:
			return a.StartTimeUTC.Before(*b.StartTimeUTC)
		}
	})
}

func (p *Pipeline) localNow() time.Time {
	if p.settings.DisplayZone != nil {
		return p.clock.Now().In(p.settings.DisplayZone)
	}
	return p.clock.Now()
}
