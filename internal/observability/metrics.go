package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// event-weather pipeline.
type Metrics struct {
	RunsTotal       *prometheus.CounterVec // labels: outcome={success,cached,error}
	RunDuration     prometheus.Histogram
	EventsProcessed prometheus.Counter
	TrackMisses     prometheus.Counter
	PipelineRunning prometheus.Gauge

	// Forecast provider metrics.
	ForecastRequests *prometheus.CounterVec // labels: outcome={success,error}
	ForecastRetries  prometheus.Counter
	ForecastCache    *prometheus.CounterVec // labels: result={hit,miss}
	ProviderDuration prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "raceweather",
			Name:      "runs_total",
			Help:      "Pipeline runs by outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "raceweather",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete pipeline run.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		EventsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "raceweather",
			Name:      "events_processed_total",
			Help:      "Total schedule events processed into snapshots.",
		}),
		TrackMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "raceweather",
			Name:      "track_misses_total",
			Help:      "Events whose venue had no track table entry.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "raceweather",
			Name:      "pipeline_running",
			Help:      "1 while a pipeline run is in flight.",
		}),
		ForecastRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "raceweather",
			Name:      "forecast_requests_total",
			Help:      "Forecast provider page requests by outcome.",
		}, []string{"outcome"}),
		ForecastRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "raceweather",
			Name:      "forecast_retries_total",
			Help:      "Retried forecast provider requests.",
		}),
		ForecastCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "raceweather",
			Name:      "forecast_cache_total",
			Help:      "Per-venue forecast cache lookups by result.",
		}, []string{"result"}),
		ProviderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "raceweather",
			Name:      "provider_request_duration_seconds",
			Help:      "Forecast provider request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}

	prometheus.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.EventsProcessed,
		m.TrackMisses,
		m.PipelineRunning,
		m.ForecastRequests,
		m.ForecastRetries,
		m.ForecastCache,
		m.ProviderDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		RunsTotal:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "raceweather", Name: "runs_total"}, []string{"outcome"}),
		RunDuration:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "raceweather", Name: "run_duration_seconds"}),
		EventsProcessed:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "raceweather", Name: "events_processed_total"}),
		TrackMisses:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "raceweather", Name: "track_misses_total"}),
		PipelineRunning:  prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "raceweather", Name: "pipeline_running"}),
		ForecastRequests: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "raceweather", Name: "forecast_requests_total"}, []string{"outcome"}),
		ForecastRetries:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "raceweather", Name: "forecast_retries_total"}),
		ForecastCache:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "raceweather", Name: "forecast_cache_total"}, []string{"result"}),
		ProviderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "raceweather", Name: "provider_request_duration_seconds"}),
	}
}
