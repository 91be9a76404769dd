package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all service settings, populated from environment variables
// plus an optional YAML file for the data-driven tables (series map and
// text normalization).
type Config struct {
	// Forecast provider.
	APIKey         string
	RequestTimeout time.Duration
	RateLimitRPS   float64
	RateLimitBurst int

	// Event window and filtering.
	WindowBefore time.Duration
	WindowAfter  time.Duration
	StaleGrace   time.Duration
	Timezone     string

	// Scheduling and serving.
	HTTPAddr        string
	RefreshCron     string
	UseCachedData   bool
	ShutdownTimeout time.Duration
	LogLevel        string
	LogFormat       string

	// Document paths.
	DataDir      string
	TracksFile   string
	SnapshotFile string
	SummaryFile  string

	// Data-driven tables.
	Series        []string
	SeriesFiles   map[string]string
	Normalization NormalizationConfig
}

// NormalizationConfig is the text-cleanup table: acronyms stay upper-cased,
// phrases get a fixed canonical spelling, and skip keys name JSON fields
// exempt from normalization.
type NormalizationConfig struct {
	Acronyms []string          `yaml:"acronyms"`
	Phrases  map[string]string `yaml:"phrases"`
	SkipKeys []string          `yaml:"skip_keys"`
}

// tablesFile is the YAML document behind RACEWEATHER_CONFIG.
type tablesFile struct {
	Series        []string            `yaml:"series"`
	SeriesFiles   map[string]string   `yaml:"series_files"`
	Normalization NormalizationConfig `yaml:"normalization"`
}

// Load reads configuration from environment variables, applying defaults
// where unset, and merges the optional YAML tables file.
func Load() (*Config, error) {
	requestTimeout, err := parseDuration("API_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	staleGrace, err := parseDuration("STALE_GRACE", "3h")
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	windowBefore, err := parseHours("WINDOW_BEFORE_HOURS", 2)
	if err != nil {
		return nil, err
	}
	windowAfter, err := parseHours("WINDOW_AFTER_HOURS", 3)
	if err != nil {
		return nil, err
	}

	dataDir := envOrDefault("DATA_DIR", "data")

	cfg := &Config{
		APIKey:         os.Getenv("MAPSAPI_KEY"),
		RequestTimeout: requestTimeout,
		RateLimitRPS:   parseFloat("RATE_LIMIT_RPS", 2),
		RateLimitBurst: parseInt("RATE_LIMIT_BURST", 1),

		WindowBefore: windowBefore,
		WindowAfter:  windowAfter,
		StaleGrace:   staleGrace,
		Timezone:     envOrDefault("TIMEZONE", "America/New_York"),

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		RefreshCron:     os.Getenv("REFRESH_CRON"),
		UseCachedData:   os.Getenv("USE_CACHED_DATA") == "true",
		ShutdownTimeout: shutdownTimeout,
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),

		DataDir:      dataDir,
		TracksFile:   filepath.Join(dataDir, "tracks.json"),
		SnapshotFile: filepath.Join(dataDir, "events_with_weather.json"),
		SummaryFile:  filepath.Join(dataDir, "all_10_day_forecasts.json"),
	}

	cfg.applyDefaultTables()

	if path := os.Getenv("RACEWEATHER_CONFIG"); path != "" {
		if err := cfg.mergeTablesFile(path); err != nil {
			return nil, err
		}
	}

	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", cfg.Timezone, err)
	}
	if cfg.WindowAfter < time.Hour {
		return nil, errors.New("WINDOW_AFTER_HOURS must be at least 1")
	}
	if len(cfg.Series) == 0 {
		return nil, errors.New("no series enabled")
	}

	return cfg, nil
}

// applyDefaultTables installs the built-in series map and normalization
// table, matching the fleet the service has always covered.
func (c *Config) applyDefaultTables() {
	schedDir := filepath.Join(c.DataDir, "series_schedules")

	c.Series = []string{
		"NASCAR CUP SERIES",
		"NASCAR XFINITY SERIES",
		"NASCAR TRUCK SERIES",
		"INDYCAR",
		"ARCA",
		"CARS TOUR",
	}
	c.SeriesFiles = map[string]string{
		"NASCAR CUP SERIES":     filepath.Join(schedDir, "nascar_cup_sched.json"),
		"NASCAR XFINITY SERIES": filepath.Join(schedDir, "nascar_xfinity_sched.json"),
		"NASCAR TRUCK SERIES":   filepath.Join(schedDir, "nascar_trucks_sched.json"),
		"INDYCAR":               filepath.Join(schedDir, "indycar_sched.json"),
		"ARCA":                  filepath.Join(schedDir, "arca_sched.json"),
		"CARS TOUR":             filepath.Join(schedDir, "cars_tour_sched.json"),
	}
	c.Normalization = NormalizationConfig{
		Acronyms: []string{"NASCAR", "ARCA", "INDYCAR", "USA", "FOX", "FS1", "FS2", "NBC", "CW", "TNT"},
		Phrases:  map[string]string{"CARS TOUR": "CARS Tour"},
		SkipKeys: []string{"time", "channel", "track_location"},
	}
}

// mergeTablesFile overlays the YAML tables document on the defaults. Only
// sections present in the file replace their defaults.
func (c *Config) mergeTablesFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var tables tablesFile
	if err := yaml.Unmarshal(data, &tables); err != nil {
		return fmt.Errorf("parse config file %s: %w", filepath.Base(path), err)
	}

	if len(tables.Series) > 0 {
		c.Series = tables.Series
	}
	if len(tables.SeriesFiles) > 0 {
		c.SeriesFiles = tables.SeriesFiles
	}
	if len(tables.Normalization.Acronyms) > 0 {
		c.Normalization.Acronyms = tables.Normalization.Acronyms
	}
	if len(tables.Normalization.Phrases) > 0 {
		c.Normalization.Phrases = tables.Normalization.Phrases
	}
	if len(tables.Normalization.SkipKeys) > 0 {
		c.Normalization.SkipKeys = tables.Normalization.SkipKeys
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	s := envOrDefault(key, fallback)
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func parseHours(key string, fallback int) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return time.Duration(fallback) * time.Hour, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return time.Duration(n) * time.Hour, nil
}

func parseInt(key string, fallback int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func parseFloat(key string, fallback float64) float64 {
	if s := os.Getenv(key); s != "" {
		if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
			return f
		}
	}
	return fallback
}
