// Package config loads scout's settings from config.yaml and SCOUT_* env vars.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Scraper   ScraperConfig   `mapstructure:"scraper"`
	ThomasNet ThomasNetConfig `mapstructure:"thomasnet"`
	Connex    ConnexConfig    `mapstructure:"connex"`
	Browser   BrowserConfig   `mapstructure:"browser"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Storage   StorageConfig   `mapstructure:"storage"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Matching  MatchingConfig  `mapstructure:"matching"`
	Query     QueryConfig     `mapstructure:"query"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// MetricsPort serves /metrics on its own listener. 0 serves it on Port.
	MetricsPort     int           `mapstructure:"metrics_port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // text or json
}

// ScraperConfig holds the HTTP fetch settings shared by the scrapers.
type ScraperConfig struct {
	Timeout             time.Duration `mapstructure:"timeout"`
	Fingerprint         string        `mapstructure:"fingerprint"`
	UserAgents          []string      `mapstructure:"user_agents"`
	ProxiesFile         string        `mapstructure:"proxies_file"`
	RequestsPerSecond   float64       `mapstructure:"requests_per_second"`
	Jitter              float64       `mapstructure:"jitter"`
	RespectRobots       bool          `mapstructure:"respect_robots"`
	MaxResultsPerSource int           `mapstructure:"max_results_per_source"`
	ExtractLimit        int           `mapstructure:"extract_limit"`
	// SearchTimeout bounds a whole aggregated search. 0 means no bound
	// beyond the request context.
	SearchTimeout time.Duration `mapstructure:"search_timeout"`
}

// ThomasNetConfig configures the ThomasNet scraper.
type ThomasNetConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	BaseURL string `mapstructure:"base_url"`
	Mode    string `mapstructure:"mode"` // http or browser
}

// ConnexConfig configures the CONNEX scraper.
type ConnexConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	BaseURL    string `mapstructure:"base_url"`
	LoginPath  string `mapstructure:"login_path"`
	SearchPath string `mapstructure:"search_path"`
	Username   string `mapstructure:"username"`
	Password   string `mapstructure:"password"`
}

// BrowserConfig configures the headless browser pool.
type BrowserConfig struct {
	RemoteURL         string        `mapstructure:"remote_url"`
	Headless          bool          `mapstructure:"headless"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
	SettleDelay       time.Duration `mapstructure:"settle_delay"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type     string        `mapstructure:"type"` // "none", "memory" or "redis"
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// StorageConfig selects where search runs are recorded.
type StorageConfig struct {
	Backend string `mapstructure:"backend"` // none, sqlite, postgres, json, csv
	DSN     string `mapstructure:"dsn"`
}

// OpenAIConfig configures the ai_search interpreter. An empty APIKey
// disables it.
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// MatchingConfig selects how records from different sources are merged.
type MatchingConfig struct {
	Strategy  string  `mapstructure:"strategy"` // exact or tokenset
	Threshold float64 `mapstructure:"threshold"`
}

// QueryConfig configures the pattern parser.
type QueryConfig struct {
	DefaultKeywords string `mapstructure:"default_keywords"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	return load(viper.New(), "")
}

// LoadFile loads configuration from an explicit file plus the environment.
func LoadFile(path string) (*Config, error) {
	return load(viper.New(), path)
}

func load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/scout/")
	}

	// SCOUT_CONNEX_USERNAME -> connex.username
	v.SetEnvPrefix("SCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values. Every key needs a default
// so AutomaticEnv can override it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.metrics_port", 0)
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("scraper.timeout", "30s")
	v.SetDefault("scraper.fingerprint", "chrome")
	v.SetDefault("scraper.user_agents", []string{})
	v.SetDefault("scraper.proxies_file", "")
	v.SetDefault("scraper.requests_per_second", 1.0)
	v.SetDefault("scraper.jitter", 0.3)
	v.SetDefault("scraper.respect_robots", true)
	v.SetDefault("scraper.max_results_per_source", 25)
	v.SetDefault("scraper.extract_limit", 25)
	v.SetDefault("scraper.search_timeout", "90s")

	v.SetDefault("thomasnet.enabled", true)
	v.SetDefault("thomasnet.base_url", "https://www.thomasnet.com")
	v.SetDefault("thomasnet.mode", "http")

	v.SetDefault("connex.enabled", true)
	v.SetDefault("connex.base_url", "https://connex.mep.org")
	v.SetDefault("connex.login_path", "/login")
	v.SetDefault("connex.search_path", "/search")
	v.SetDefault("connex.username", "")
	v.SetDefault("connex.password", "")

	v.SetDefault("browser.remote_url", "")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.navigation_timeout", "30s")
	v.SetDefault("browser.settle_delay", "3s")

	v.SetDefault("cache.type", "none")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.ttl", "15m")

	v.SetDefault("storage.backend", "none")
	v.SetDefault("storage.dsn", "")

	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.base_url", "")

	v.SetDefault("matching.strategy", "exact")
	v.SetDefault("matching.threshold", 0.8)

	v.SetDefault("query.default_keywords", "manufacturing")
}

func oneOf(field, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %s, got: %q", field, strings.Join(allowed, ", "), value)
}

// validate validates the configuration
func validate(config *Config) error {
	checks := []error{
		oneOf("server.environment", config.Server.Environment, "development", "production", "test"),
		oneOf("log.level", strings.ToLower(config.Log.Level), "debug", "info", "warn", "error"),
		oneOf("log.format", config.Log.Format, "text", "json"),
		oneOf("scraper.fingerprint", config.Scraper.Fingerprint, "chrome", "firefox", "safari", "go", "random"),
		oneOf("thomasnet.mode", config.ThomasNet.Mode, "http", "browser"),
		oneOf("cache.type", config.Cache.Type, "none", "memory", "redis"),
		oneOf("storage.backend", config.Storage.Backend, "none", "sqlite", "postgres", "json", "csv"),
		oneOf("matching.strategy", config.Matching.Strategy, "exact", "tokenset"),
	}
	if err := errors.Join(checks...); err != nil {
		return err
	}

	if config.Cache.Type == "redis" && config.Cache.RedisURL == "" {
		return errors.New("cache.redis_url is required when cache type is 'redis'")
	}
	if config.Storage.Backend != "none" && config.Storage.DSN == "" {
		return fmt.Errorf("storage.dsn is required for the %s backend", config.Storage.Backend)
	}
	if t := config.Matching.Threshold; t <= 0 || t > 1 {
		return fmt.Errorf("matching.threshold must be in (0, 1], got: %v", t)
	}
	if config.Scraper.MaxResultsPerSource <= 0 {
		return fmt.Errorf("scraper.max_results_per_source must be positive, got: %d", config.Scraper.MaxResultsPerSource)
	}
	if config.Scraper.RequestsPerSecond <= 0 {
		return fmt.Errorf("scraper.requests_per_second must be positive, got: %v", config.Scraper.RequestsPerSecond)
	}
	if !config.ThomasNet.Enabled && !config.Connex.Enabled {
		return errors.New("at least one of thomasnet or connex must be enabled")
	}
	return nil
}
