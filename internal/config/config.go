package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv     = "CONTENT_SCOUT_CONFIG"
	databasePathEnv   = "CONTENT_SCOUT_DB"
	sourcesPathEnv    = "CONTENT_SCOUT_SOURCES"
	newsDataAPIKeyEnv = "NEWSDATA_API_KEY"
	logLevelEnv       = "CONTENT_SCOUT_LOG_LEVEL"
)

// Config holds high-level settings required across the application.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Scanning  ScanningConfig  `yaml:"scanning"`
	NewsData  NewsDataConfig  `yaml:"newsdata"`
	Sources   SourcesConfig   `yaml:"sources"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DatabaseConfig describes the sqlite ledger location.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ScanningConfig tunes fetch, pool, and duplicate-detection behavior.
type ScanningConfig struct {
	TimeoutSeconds      int     `yaml:"timeoutSeconds"`
	MaxItemsPerSource   int     `yaml:"maxItemsPerSource"`
	MaxWorkers          int     `yaml:"maxWorkers"`
	MaxRetries          int     `yaml:"maxRetries"`
	RequestsPerSecond   float64 `yaml:"requestsPerSecond"`
	CheckDuplicates     bool    `yaml:"checkDuplicates"`
	DuplicateThreshold  float64 `yaml:"duplicateThreshold"`
	DuplicateWindowDays int     `yaml:"duplicateWindowDays"`
	MinTitleLength      int     `yaml:"minTitleLength"`
}

// Timeout resolves the per-request fetch timeout.
func (s ScanningConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// MinInterval resolves the per-host rate-limit interval.
func (s ScanningConfig) MinInterval() time.Duration {
	rps := s.RequestsPerSecond
	if rps <= 0 {
		rps = 2.0
	}
	return time.Duration(float64(time.Second) / rps)
}

// NewsDataConfig wires the secondary aggregation API.
type NewsDataConfig struct {
	APIKey     string   `yaml:"apiKey"`
	BaseURL    string   `yaml:"baseUrl"`
	Query      string   `yaml:"query"`
	Language   string   `yaml:"language"`
	Countries  []string `yaml:"countries"`
	MaxResults int      `yaml:"maxResults"`
	CachePath  string   `yaml:"cachePath"`
}

// SourcesConfig points at the YAML source list.
type SourcesConfig struct {
	Path string `yaml:"path"`
}

// SchedulerConfig defines the optional recurring-scan interval; zero means a
// single cycle per process run.
type SchedulerConfig struct {
	IntervalMinutes int `yaml:"intervalMinutes"`
}

// Interval resolves the recurring-scan period.
func (s SchedulerConfig) Interval() time.Duration {
	return time.Duration(s.IntervalMinutes) * time.Minute
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads YAML configuration (if present) over the defaults and applies
// environment overrides.
func Load() Config {
	cfg := Default()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else if err := yaml.Unmarshal(raw, &cfg); err != nil {
			cfg = Default()
			log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
		}
	}

	cfg.applyEnvOverrides()
	cfg.normalize()

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databasePathEnv); v != "" {
		c.Database.Path = v
	}

	if v := os.Getenv(sourcesPathEnv); v != "" {
		c.Sources.Path = v
	}

	if v := os.Getenv(newsDataAPIKeyEnv); v != "" {
		c.NewsData.APIKey = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) normalize() {
	if c.Scanning.TimeoutSeconds <= 0 {
		c.Scanning.TimeoutSeconds = 30
	}
	if c.Scanning.MaxItemsPerSource <= 0 {
		c.Scanning.MaxItemsPerSource = 10
	}
	if c.Scanning.MaxWorkers <= 0 {
		c.Scanning.MaxWorkers = 5
	}
	if c.Scanning.MaxRetries <= 0 {
		c.Scanning.MaxRetries = 3
	}
	if c.Scanning.DuplicateThreshold <= 0 || c.Scanning.DuplicateThreshold > 1 {
		c.Scanning.DuplicateThreshold = 0.85
	}
	if c.Scanning.DuplicateWindowDays <= 0 {
		c.Scanning.DuplicateWindowDays = 7
	}
	if c.Scanning.MinTitleLength <= 0 {
		c.Scanning.MinTitleLength = 5
	}
	if c.NewsData.MaxResults <= 0 || c.NewsData.MaxResults > 10 {
		c.NewsData.MaxResults = 10
	}
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Database: DatabaseConfig{Path: "data/scout.db"},
		Scanning: ScanningConfig{
			TimeoutSeconds:      30,
			MaxItemsPerSource:   10,
			MaxWorkers:          5,
			MaxRetries:          3,
			RequestsPerSecond:   2.0,
			CheckDuplicates:     true,
			DuplicateThreshold:  0.85,
			DuplicateWindowDays: 7,
			MinTitleLength:      5,
		},
		NewsData: NewsDataConfig{
			BaseURL:    "https://newsdata.io/api/1",
			Query:      `energy OR ebrd OR "world bank" OR ifc OR adb OR epc OR epcm OR infrastructure OR "project finance"`,
			Language:   "en",
			Countries:  []string{"us", "gb"},
			MaxResults: 10,
			CachePath:  "data/newsdata_cache.json",
		},
		Sources:   SourcesConfig{Path: "sources.yaml"},
		Scheduler: SchedulerConfig{IntervalMinutes: 0},
		Logging:   LoggingConfig{Level: "info"},
	}
}
