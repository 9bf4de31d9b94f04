// Package config loads VaultMind settings from an optional YAML file, then
// applies environment overrides and defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dvloznov/vaultmind/internal/alerts"
	"github.com/dvloznov/vaultmind/internal/generator"
	"github.com/dvloznov/vaultmind/internal/ledger"
	"github.com/dvloznov/vaultmind/internal/logger"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the file.
const (
	EnvLedger           = "VAULTMIND_LEDGER"
	EnvTimezone         = "VAULTMIND_TIMEZONE"
	EnvLogLevel         = "VAULTMIND_LOG_LEVEL"
	EnvPort             = "PORT"
	EnvGeminiAPIKey     = "GEMINI_API_KEY"
	EnvGCSBucket        = "GCS_BUCKET"
	EnvBigQueryProject  = "GOOGLE_CLOUD_PROJECT"
	EnvNotionToken      = "NOTION_TOKEN"
	EnvNotionDatabaseID = "NOTION_DATABASE_ID"
)

// Config holds every setting the CLI and server need.
type Config struct {
	Ledger   LedgerConfig   `yaml:"ledger"`
	Log      LogConfig      `yaml:"log"`
	Stream   StreamConfig   `yaml:"stream"`
	Alerts   AlertsConfig   `yaml:"alerts"`
	Server   ServerConfig   `yaml:"server"`
	Gemini   GeminiConfig   `yaml:"gemini"`
	GCS      GCSConfig      `yaml:"gcs"`
	BigQuery BigQueryConfig `yaml:"bigquery"`
	Notion   NotionConfig   `yaml:"notion"`
}

type LedgerConfig struct {
	// Path of the CSV ledger file.
	Path string `yaml:"path"`
	// Timezone is an IANA zone name used for the Date column. Empty means local.
	Timezone string `yaml:"timezone"`
	// CacheTTL bounds how stale the served snapshot may be.
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type StreamConfig struct {
	Catalog       string        `yaml:"catalog"`
	SeedDays      int           `yaml:"seed_days"`
	MaxPerDay     int           `yaml:"max_per_day"`
	Interval      time.Duration `yaml:"interval"`
	MaxIterations int           `yaml:"max_iterations"`
	// Scenarios enables the built-in duplicate and spike steps.
	Scenarios bool `yaml:"scenarios"`
}

type AlertsConfig struct {
	SpikeMultiplier      string        `yaml:"spike_multiplier"`
	TrailingWindow       time.Duration `yaml:"trailing_window"`
	WatchList            []string      `yaml:"watch_list"`
	SubscriptionCategory string        `yaml:"subscription_category"`
	Currency             string        `yaml:"currency"`
}

type ServerConfig struct {
	Port         string        `yaml:"port"`
	Workers      int           `yaml:"workers"`
	MaxRetries   int           `yaml:"max_retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
}

type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type GCSConfig struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
}

type BigQueryConfig struct {
	ProjectID string `yaml:"project_id"`
	Dataset   string `yaml:"dataset"`
	Table     string `yaml:"table"`
	// Currency is the ISO code stored with mirrored amounts.
	Currency string `yaml:"currency"`
}

type NotionConfig struct {
	Token      string `yaml:"token"`
	DatabaseID string `yaml:"database_id"`
}

// Default returns the built-in settings.
func Default() *Config {
	alertDefaults := alerts.DefaultConfig()
	sim := generator.DefaultSimulatorConfig()
	return &Config{
		Ledger: LedgerConfig{
			Path:     "transactions.csv",
			CacheTTL: ledger.DefaultCacheTTL,
		},
		Log: LogConfig{Level: "info", Format: "console"},
		Stream: StreamConfig{
			Catalog:   "stream",
			SeedDays:  sim.SeedDays,
			MaxPerDay: sim.MaxPerDay,
			Interval:  sim.Interval,
			Scenarios: true,
		},
		Alerts: AlertsConfig{
			SpikeMultiplier:      alertDefaults.SpikeMultiplier.String(),
			TrailingWindow:       alertDefaults.TrailingWindow,
			WatchList:            alertDefaults.WatchList,
			SubscriptionCategory: alertDefaults.SubscriptionCategory,
			Currency:             alertDefaults.Currency,
		},
		Server: ServerConfig{
			Port:         "8080",
			Workers:      2,
			MaxRetries:   3,
			RetryBackoff: time.Second,
		},
		Gemini:   GeminiConfig{Model: "gemini-2.5-flash"},
		GCS:      GCSConfig{Prefix: "vaultmind/"},
		BigQuery: BigQueryConfig{Dataset: "vaultmind", Table: "transactions", Currency: "INR"},
	}
}

// Load reads the YAML file at path over the defaults, applies environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	return load(path, os.Getenv)
}

func load(path string, getenv func(string) string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("Load: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("Load: parse %s: %w", path, err)
		}
	}

	applyEnv(cfg, getenv)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("Load: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) {
	overrides := []struct {
		key    string
		target *string
	}{
		{EnvLedger, &cfg.Ledger.Path},
		{EnvTimezone, &cfg.Ledger.Timezone},
		{EnvLogLevel, &cfg.Log.Level},
		{EnvPort, &cfg.Server.Port},
		{EnvGeminiAPIKey, &cfg.Gemini.APIKey},
		{EnvGCSBucket, &cfg.GCS.Bucket},
		{EnvBigQueryProject, &cfg.BigQuery.ProjectID},
		{EnvNotionToken, &cfg.Notion.Token},
		{EnvNotionDatabaseID, &cfg.Notion.DatabaseID},
	}
	for _, o := range overrides {
		if v := strings.TrimSpace(getenv(o.key)); v != "" {
			*o.target = v
		}
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Ledger.Path) == "" {
		errs = append(errs, errors.New("ledger.path is required"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if c.Ledger.CacheTTL < 0 {
		errs = append(errs, errors.New("ledger.cache_ttl must not be negative"))
	}
	if _, err := generator.CatalogByName(c.Stream.Catalog); err != nil {
		errs = append(errs, fmt.Errorf("stream.catalog: %w", err))
	}
	if c.Stream.SeedDays < 0 || c.Stream.MaxPerDay < 1 || c.Stream.MaxIterations < 0 {
		errs = append(errs, errors.New("stream: seed_days and max_iterations must be >= 0, max_per_day >= 1"))
	}
	if c.Stream.Interval < 0 {
		errs = append(errs, errors.New("stream.interval must not be negative"))
	}
	if m, err := decimal.NewFromString(c.Alerts.SpikeMultiplier); err != nil || !m.IsPositive() {
		errs = append(errs, fmt.Errorf("alerts.spike_multiplier must be a positive number, got %q", c.Alerts.SpikeMultiplier))
	}
	if c.Alerts.TrailingWindow <= 0 {
		errs = append(errs, errors.New("alerts.trailing_window must be positive"))
	}
	if c.Server.Workers < 1 || c.Server.MaxRetries < 0 {
		errs = append(errs, errors.New("server: workers must be >= 1 and max_retries >= 0"))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be console or json, got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// Location resolves Ledger.Timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Ledger.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Ledger.Timezone)
	if err != nil {
		return nil, fmt.Errorf("ledger.timezone: %w", err)
	}
	return loc, nil
}

// LoggerOptions maps the log section onto logger options.
func (c *Config) LoggerOptions() logger.Options {
	return logger.Options{Level: c.Log.Level, Format: c.Log.Format}
}

// AlertConfig builds the alert engine configuration. Watch-list and
// subscription names are lowercased.
func (c *Config) AlertConfig() alerts.Config {
	watch := make([]string, len(c.Alerts.WatchList))
	for i, w := range c.Alerts.WatchList {
		watch[i] = strings.ToLower(strings.TrimSpace(w))
	}
	return alerts.Config{
		SpikeMultiplier:      decimal.RequireFromString(c.Alerts.SpikeMultiplier),
		TrailingWindow:       c.Alerts.TrailingWindow,
		WatchList:            watch,
		SubscriptionCategory: strings.ToLower(c.Alerts.SubscriptionCategory),
		Currency:             c.Alerts.Currency,
	}
}

// SimulatorConfig builds the streaming loop configuration. Scripts are left
// for the caller to attach.
func (c *Config) SimulatorConfig() generator.SimulatorConfig {
	return generator.SimulatorConfig{
		SeedDays:      c.Stream.SeedDays,
		MaxPerDay:     c.Stream.MaxPerDay,
		Interval:      c.Stream.Interval,
		MaxIterations: c.Stream.MaxIterations,
	}
}

// BackupURI is the gs:// prefix ledger backups are pushed under, or "" when
// no bucket is configured.
func (c *Config) BackupURI() string {
	if c.GCS.Bucket == "" {
		return ""
	}
	return "gs://" + c.GCS.Bucket + "/" + strings.TrimPrefix(c.GCS.Prefix, "/")
}
