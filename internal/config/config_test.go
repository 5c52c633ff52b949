package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("expected port 8080, got %q", cfg.Server.Port)
	}
	if cfg.Scraper.Timeout != 30*time.Second {
		t.Errorf("expected 30s timeout, got %v", cfg.Scraper.Timeout)
	}
	if cfg.Cache.Type != "none" || cfg.Cache.TTL != 15*time.Minute {
		t.Errorf("unexpected cache defaults: %+v", cfg.Cache)
	}
	if cfg.Storage.Backend != "none" {
		t.Errorf("expected storage none, got %q", cfg.Storage.Backend)
	}
	if !cfg.ThomasNet.Enabled || cfg.ThomasNet.Mode != "http" {
		t.Errorf("unexpected thomasnet defaults: %+v", cfg.ThomasNet)
	}
	if !cfg.Scraper.RespectRobots {
		t.Errorf("robots.txt should be respected by default")
	}
	if cfg.Matching.Strategy != "exact" || cfg.Matching.Threshold != 0.8 {
		t.Errorf("unexpected matching defaults: %+v", cfg.Matching)
	}
	if cfg.Query.DefaultKeywords != "manufacturing" {
		t.Errorf("unexpected default keywords %q", cfg.Query.DefaultKeywords)
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "http://localhost:3000" {
		t.Errorf("unexpected origins %v", cfg.Server.AllowedOrigins)
	}
}

func TestLoad_Env(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SCOUT_CONNEX_USERNAME", "advisor@example.org")
	t.Setenv("SCOUT_CONNEX_PASSWORD", "hunter2")
	t.Setenv("SCOUT_THOMASNET_MODE", "browser")
	t.Setenv("SCOUT_CACHE_TYPE", "memory")
	t.Setenv("SCOUT_SCRAPER_REQUESTS_PER_SECOND", "2.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Connex.Username != "advisor@example.org" || cfg.Connex.Password != "hunter2" {
		t.Errorf("credentials not read from env: %+v", cfg.Connex)
	}
	if cfg.ThomasNet.Mode != "browser" {
		t.Errorf("expected browser mode, got %q", cfg.ThomasNet.Mode)
	}
	if cfg.Cache.Type != "memory" {
		t.Errorf("expected memory cache, got %q", cfg.Cache.Type)
	}
	if cfg.Scraper.RequestsPerSecond != 2.5 {
		t.Errorf("expected 2.5 rps, got %v", cfg.Scraper.RequestsPerSecond)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scout.yaml")
	yaml := `
server:
  port: "9090"
storage:
  backend: sqlite
  dsn: runs.db
matching:
  strategy: tokenset
  threshold: 0.6
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %q", cfg.Server.Port)
	}
	if cfg.Storage.Backend != "sqlite" || cfg.Storage.DSN != "runs.db" {
		t.Errorf("unexpected storage: %+v", cfg.Storage)
	}
	if cfg.Matching.Strategy != "tokenset" || cfg.Matching.Threshold != 0.6 {
		t.Errorf("unexpected matching: %+v", cfg.Matching)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("expected error for an explicit missing file")
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Server:    ServerConfig{Environment: "development"},
			Log:       LogConfig{Level: "info", Format: "text"},
			Scraper:   ScraperConfig{Fingerprint: "chrome", MaxResultsPerSource: 25, RequestsPerSecond: 1},
			ThomasNet: ThomasNetConfig{Enabled: true, Mode: "http"},
			Cache:     CacheConfig{Type: "none"},
			Storage:   StorageConfig{Backend: "none"},
			Matching:  MatchingConfig{Strategy: "exact", Threshold: 0.8},
		}
	}

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad cache type", func(c *Config) { c.Cache.Type = "memcached" }, "cache.type"},
		{"redis without url", func(c *Config) { c.Cache.Type = "redis" }, "redis_url"},
		{"storage without dsn", func(c *Config) { c.Storage.Backend = "postgres" }, "storage.dsn"},
		{"bad mode", func(c *Config) { c.ThomasNet.Mode = "api" }, "thomasnet.mode"},
		{"bad fingerprint", func(c *Config) { c.Scraper.Fingerprint = "edge" }, "scraper.fingerprint"},
		{"zero threshold", func(c *Config) { c.Matching.Threshold = 0 }, "threshold"},
		{"threshold above one", func(c *Config) { c.Matching.Threshold = 1.5 }, "threshold"},
		{"zero max results", func(c *Config) { c.Scraper.MaxResultsPerSource = 0 }, "max_results_per_source"},
		{"no sources", func(c *Config) { c.ThomasNet.Enabled = false }, "at least one"},
		{"uppercase level", func(c *Config) { c.Log.Level = "DEBUG" }, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(&cfg)
			err := validate(&cfg)
			if tc.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}
