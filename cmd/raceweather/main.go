package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"

	"github.com/gridline/raceweather/internal/config"
	"github.com/gridline/raceweather/internal/domain"
	"github.com/gridline/raceweather/internal/httpserver"
	"github.com/gridline/raceweather/internal/observability"
	"github.com/gridline/raceweather/internal/pipeline"
	"github.com/gridline/raceweather/internal/store"
	"github.com/gridline/raceweather/internal/weatherapi"
)

func main() {
	// Credentials may live in a local .env during development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	displayZone, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Error("invalid timezone", "zone", cfg.Timezone, "error", err)
		os.Exit(1)
	}

	tracks, err := store.LoadTracks(cfg.TracksFile)
	if err != nil {
		logger.Error("failed to load track table", "error", err)
		os.Exit(1)
	}

	schedules := store.NewScheduleStore(cfg.SeriesFiles, logger)
	snapshots := store.NewSnapshotStore(cfg.SnapshotFile)
	summaries := store.NewSummaryStore(cfg.SummaryFile)

	// A missing API key disables fetching; the pipeline still runs and
	// publishes events with empty weather.
	var fetcher weatherapi.Fetcher
	if cfg.APIKey != "" {
		fetcher = weatherapi.NewClient(cfg.APIKey, cfg.RequestTimeout, cfg.RateLimitRPS, cfg.RateLimitBurst, logger, metrics)
	} else {
		logger.Warn("MAPSAPI_KEY not set; forecast fetching disabled")
	}
	forecasts := weatherapi.NewService(fetcher, tracks, summaries, displayZone, logger, metrics)

	settings := pipeline.Settings{
		Series:       cfg.Series,
		WindowBefore: cfg.WindowBefore,
		WindowAfter:  cfg.WindowAfter,
		StaleGrace:   cfg.StaleGrace,
		Zone:         cfg.Timezone,
		DisplayZone:  displayZone,
		Normalization: domain.NewNormalizationTable(
			cfg.Normalization.Acronyms,
			cfg.Normalization.Phrases,
			cfg.Normalization.SkipKeys,
		),
	}

	p := pipeline.New(schedules, tracks, forecasts, snapshots, settings, clockwork.NewRealClock(), logger, metrics)
	srv := httpserver.NewServer(cfg.HTTPAddr, p, snapshots, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// One run is assumed in flight at a time; overlapping cron fires are
	// skipped rather than queued.
	var runMu sync.Mutex
	runOnce := func(useCached bool) {
		if !runMu.TryLock() {
			logger.Warn("skipping refresh: previous run still in flight")
			return
		}
		defer runMu.Unlock()
		p.Run(ctx, useCached)
	}

	go runOnce(cfg.UseCachedData)

	var scheduler *cron.Cron
	if cfg.RefreshCron != "" {
		scheduler = cron.New()
		if _, err := scheduler.AddFunc(cfg.RefreshCron, func() { runOnce(false) }); err != nil {
			logger.Error("invalid REFRESH_CRON", "cron", cfg.RefreshCron, "error", err)
			os.Exit(1)
		}
		scheduler.Start()
		logger.Info("periodic refresh enabled", "cron", cfg.RefreshCron)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if scheduler != nil {
		<-scheduler.Stop().Done()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
