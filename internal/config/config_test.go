package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv(databasePathEnv, "")
	t.Setenv(newsDataAPIKeyEnv, "")

	cfg := Load()

	if cfg.Scanning.TimeoutSeconds != 30 {
		t.Fatalf("timeout = %d", cfg.Scanning.TimeoutSeconds)
	}
	if cfg.Scanning.MaxWorkers != 5 {
		t.Fatalf("workers = %d", cfg.Scanning.MaxWorkers)
	}
	if cfg.Scanning.DuplicateThreshold != 0.85 {
		t.Fatalf("threshold = %v", cfg.Scanning.DuplicateThreshold)
	}
	if cfg.Scanning.DuplicateWindowDays != 7 {
		t.Fatalf("window = %d", cfg.Scanning.DuplicateWindowDays)
	}
	if cfg.Scanning.MinTitleLength != 5 {
		t.Fatalf("minTitleLength = %d", cfg.Scanning.MinTitleLength)
	}
	if !cfg.Scanning.CheckDuplicates {
		t.Fatal("duplicate checking disabled by default")
	}
	if cfg.NewsData.MaxResults != 10 {
		t.Fatalf("newsdata size = %d", cfg.NewsData.MaxResults)
	}
	if cfg.Scheduler.IntervalMinutes != 0 {
		t.Fatalf("interval = %d", cfg.Scheduler.IntervalMinutes)
	}
}

func TestLoadYAMLOverridesAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
scanning:
  timeoutSeconds: 10
  maxWorkers: 2
  duplicateThreshold: 0.9
database:
  path: from-yaml.db
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv(configPathEnv, path)
	t.Setenv(databasePathEnv, "from-env.db")
	t.Setenv(newsDataAPIKeyEnv, "env-key")

	cfg := Load()

	if cfg.Scanning.TimeoutSeconds != 10 || cfg.Scanning.MaxWorkers != 2 {
		t.Fatalf("yaml not applied: %+v", cfg.Scanning)
	}
	if cfg.Scanning.DuplicateThreshold != 0.9 {
		t.Fatalf("threshold = %v", cfg.Scanning.DuplicateThreshold)
	}
	// untouched fields keep their defaults
	if cfg.Scanning.MaxItemsPerSource != 10 {
		t.Fatalf("maxItems = %d", cfg.Scanning.MaxItemsPerSource)
	}
	// environment wins over YAML
	if cfg.Database.Path != "from-env.db" {
		t.Fatalf("db path = %q", cfg.Database.Path)
	}
	if cfg.NewsData.APIKey != "env-key" {
		t.Fatalf("api key = %q", cfg.NewsData.APIKey)
	}
}

func TestLoadBrokenYAMLFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("scanning: [broken"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(configPathEnv, path)

	cfg := Load()
	if cfg.Scanning.TimeoutSeconds != 30 {
		t.Fatalf("broken yaml did not fall back: %+v", cfg.Scanning)
	}
}

func TestNormalizeClampsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
scanning:
  duplicateThreshold: 1.5
  maxWorkers: -2
newsdata:
  maxResults: 50
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(configPathEnv, path)

	cfg := Load()
	if cfg.Scanning.DuplicateThreshold != 0.85 {
		t.Fatalf("threshold = %v", cfg.Scanning.DuplicateThreshold)
	}
	if cfg.Scanning.MaxWorkers != 5 {
		t.Fatalf("workers = %d", cfg.Scanning.MaxWorkers)
	}
	if cfg.NewsData.MaxResults != 10 {
		t.Fatalf("newsdata size clamp = %d", cfg.NewsData.MaxResults)
	}
}

func TestScanningHelpers(t *testing.T) {
	s := ScanningConfig{TimeoutSeconds: 15, RequestsPerSecond: 2}
	if s.Timeout() != 15*time.Second {
		t.Fatalf("timeout = %v", s.Timeout())
	}
	if s.MinInterval() != 500*time.Millisecond {
		t.Fatalf("minInterval = %v", s.MinInterval())
	}
}
