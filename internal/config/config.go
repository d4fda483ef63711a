package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
)

// StalePolicy controls what happens to nests whose source_id no longer
// appears in an ingestion pass.
type StalePolicy string

const (
	// StaleKeep leaves vanished nests untouched (default).
	StaleKeep StalePolicy = "keep"
	// StaleDelete removes vanished nests permanently.
	StaleDelete StalePolicy = "delete"
)

// Common errors
var (
	ErrMissingDatabaseURL = errors.New("DATABASE_URL environment variable is required")
	ErrBadStalePolicy     = errors.New(`STALE_POLICY must be "keep" or "delete"`)
)

// Config holds every tunable for both cycle types. Values come from an
// optional settings.yaml, overridden by environment variables.
type Config struct {
	// Connections
	DatabaseURL      string `yaml:"-"`
	StatsDatabaseURL string `yaml:"-"`

	// Inputs
	CandidatesPath string `yaml:"candidates_path"`
	AreasPath      string `yaml:"areas_path"`
	TelemetryPath  string `yaml:"telemetry_path"`

	// Outputs
	WebhookURL   string `yaml:"webhook_url"`
	ReloadURL    string `yaml:"reload_url"`
	ReloadSecret string `yaml:"-"`

	// Nest thresholds
	MinimumSpawnpoints int     `yaml:"minimum_spawnpoints"`
	MinimumM2          float64 `yaml:"minimum_m2"`
	MaximumOverlap     float64 `yaml:"maximum_overlap"`
	MinimumCoverage    float64 `yaml:"minimum_coverage"`
	MinimumSpawnHour   float64 `yaml:"minimum_spawn_hr"`

	// Behavior
	DefaultName          string      `yaml:"default_name"`
	BufferMultipolygons  bool        `yaml:"buffer_multipolygons"`
	CycleHours           float64     `yaml:"cycle_hours"`
	SpawnpointWindowDays int         `yaml:"spawnpoint_window_days"`
	StalePolicy          StalePolicy `yaml:"stale_policy"`
}

// defaults mirror the thresholds the catalog was originally tuned with.
func defaults() Config {
	return Config{
		MinimumSpawnpoints:   10,
		MinimumM2:            5000,
		MaximumOverlap:       60,
		MinimumCoverage:      30,
		MinimumSpawnHour:     5,
		DefaultName:          "Unknown Nest",
		CycleHours:           1,
		SpawnpointWindowDays: 7,
		StalePolicy:          StaleKeep,
	}
}

// Load builds the configuration from settings.yaml (if present; path
// overridable via SETTINGS_PATH) and the environment. Environment variables
// win over the file.
func Load() (Config, error) {
	cfg := defaults()

	path := os.Getenv("SETTINGS_PATH")
	if path == "" {
		path = "settings.yaml"
	}
	if raw, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	cfg.DatabaseURL = envStr("DATABASE_URL", cfg.DatabaseURL)
	cfg.StatsDatabaseURL = envStr("STATS_DATABASE_URL", cfg.StatsDatabaseURL)
	cfg.CandidatesPath = envStr("CANDIDATES_PATH", cfg.CandidatesPath)
	cfg.AreasPath = envStr("AREAS_PATH", cfg.AreasPath)
	cfg.TelemetryPath = envStr("TELEMETRY_PATH", cfg.TelemetryPath)
	cfg.WebhookURL = envStr("WEBHOOK_URL", cfg.WebhookURL)
	cfg.ReloadURL = envStr("RELOAD_URL", cfg.ReloadURL)
	cfg.ReloadSecret = envStr("RELOAD_SECRET", cfg.ReloadSecret)
	cfg.DefaultName = envStr("DEFAULT_NAME", cfg.DefaultName)

	var err error
	if cfg.MinimumSpawnpoints, err = envInt("MINIMUM_SPAWNPOINTS", cfg.MinimumSpawnpoints); err != nil {
		return Config{}, err
	}
	if cfg.MinimumM2, err = envFloat("MINIMUM_M2", cfg.MinimumM2); err != nil {
		return Config{}, err
	}
	if cfg.MaximumOverlap, err = envFloat("MAXIMUM_OVERLAP", cfg.MaximumOverlap); err != nil {
		return Config{}, err
	}
	if cfg.MinimumCoverage, err = envFloat("MINIMUM_COVERAGE", cfg.MinimumCoverage); err != nil {
		return Config{}, err
	}
	if cfg.MinimumSpawnHour, err = envFloat("MINIMUM_SPAWN_HR", cfg.MinimumSpawnHour); err != nil {
		return Config{}, err
	}
	if cfg.CycleHours, err = envFloat("CYCLE_HOURS", cfg.CycleHours); err != nil {
		return Config{}, err
	}
	if cfg.SpawnpointWindowDays, err = envInt("SPAWNPOINT_WINDOW_DAYS", cfg.SpawnpointWindowDays); err != nil {
		return Config{}, err
	}
	if v := os.Getenv("BUFFER_MULTIPOLYGONS"); v != "" {
		cfg.BufferMultipolygons = parseBool(v)
	}
	if v := os.Getenv("STALE_POLICY"); v != "" {
		cfg.StalePolicy = StalePolicy(strings.ToLower(strings.TrimSpace(v)))
	}

	return cfg, nil
}

// Validate checks the parts every cycle needs. Stage-specific inputs
// (candidates file, telemetry file) are validated by the jobs that use them.
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return ErrMissingDatabaseURL
	}
	switch c.StalePolicy {
	case StaleKeep, StaleDelete:
	default:
		return ErrBadStalePolicy
	}
	if c.CycleHours <= 0 {
		return fmt.Errorf("CYCLE_HOURS must be positive, got %v", c.CycleHours)
	}
	return nil
}

// UseCoverage reports whether the coverage filter is configured at all.
func (c Config) UseCoverage() bool {
	return c.AreasPath != ""
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "on", "1", "yes":
		return true
	}
	return false
}
