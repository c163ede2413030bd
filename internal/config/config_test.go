package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vulnfeed/advisory-crawler/internal/crawl"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Site.BaseURL != crawl.DefaultBaseURL {
		t.Errorf("site.base_url = %q; want %q", cfg.Site.BaseURL, crawl.DefaultBaseURL)
	}
	if cfg.Crawler.Concurrency != 8 {
		t.Errorf("crawler.concurrency = %d; want 8", cfg.Crawler.Concurrency)
	}
	if cfg.HTTP.TimeoutSeconds != 15 {
		t.Errorf("http.timeout_seconds = %d; want 15", cfg.HTTP.TimeoutSeconds)
	}
	if cfg.DB.Path != "database.db" {
		t.Errorf("db.path = %q; want database.db", cfg.DB.Path)
	}
	if !cfg.Logging.Development {
		t.Error("logging.development = false; want true")
	}
	if cfg.HTTPTimeout() != 15*time.Second {
		t.Errorf("HTTPTimeout() = %v; want 15s", cfg.HTTPTimeout())
	}
}

func TestLoadWithFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
site:
  base_url: https://advisories.example.com
  user_agent: custom-agent
crawler:
  concurrency: 3
http:
  timeout_seconds: 45
db:
  path: /tmp/advisories.db
logging:
  development: false
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Site.BaseURL != "https://advisories.example.com" {
		t.Errorf("site.base_url = %q", cfg.Site.BaseURL)
	}
	if cfg.Site.UserAgent != "custom-agent" {
		t.Errorf("site.user_agent = %q", cfg.Site.UserAgent)
	}
	if cfg.Crawler.Concurrency != 3 {
		t.Errorf("crawler.concurrency = %d; want 3", cfg.Crawler.Concurrency)
	}
	if cfg.HTTP.TimeoutSeconds != 45 {
		t.Errorf("http.timeout_seconds = %d; want 45", cfg.HTTP.TimeoutSeconds)
	}
	if cfg.DB.Path != "/tmp/advisories.db" {
		t.Errorf("db.path = %q", cfg.DB.Path)
	}
	if cfg.Logging.Development {
		t.Error("logging.development = true; want false")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{"zero concurrency", "crawler:\n  concurrency: 0\n", "crawler.concurrency"},
		{"zero timeout", "http:\n  timeout_seconds: 0\n", "http.timeout_seconds"},
		{"empty db path", "db:\n  path: \"\"\n", "db.path"},
		{"empty base url", "site:\n  base_url: \"\"\n", "site.base_url"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tc.yaml), 0o600); err != nil {
				t.Fatalf("failed to write config: %v", err)
			}
			_, err := Load(path)
			if err == nil {
				t.Fatal("Load() error = nil; want validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("Load() error = %v; want mention of %s", err, tc.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("Load() error = nil; want read error")
	}
}
