// Package app builds scout's object graph from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/strategicvalueplus/scout/internal/aggregate"
	"github.com/strategicvalueplus/scout/internal/api"
	"github.com/strategicvalueplus/scout/internal/browser"
	"github.com/strategicvalueplus/scout/internal/cache"
	"github.com/strategicvalueplus/scout/internal/config"
	"github.com/strategicvalueplus/scout/internal/fingerprint"
	"github.com/strategicvalueplus/scout/internal/match"
	"github.com/strategicvalueplus/scout/internal/query"
	"github.com/strategicvalueplus/scout/internal/scraper"
	"github.com/strategicvalueplus/scout/internal/source"
	"github.com/strategicvalueplus/scout/internal/source/connex"
	"github.com/strategicvalueplus/scout/internal/source/thomasnet"
	"github.com/strategicvalueplus/scout/internal/storage"
	"github.com/strategicvalueplus/scout/internal/storage/csvbackend"
	"github.com/strategicvalueplus/scout/internal/storage/jsonbackend"
	"github.com/strategicvalueplus/scout/internal/storage/postgres"
	"github.com/strategicvalueplus/scout/internal/storage/sqlite"
	"github.com/strategicvalueplus/scout/pkg/proxy"
	"github.com/strategicvalueplus/scout/pkg/ratelimit"
	"github.com/strategicvalueplus/scout/pkg/useragent"
)

// App is the wired service. Close releases the browser, cache and storage.
type App struct {
	Config      *config.Config
	Aggregator  *aggregate.Aggregator
	ThomasNet   api.Directory
	Parser      *query.Parser
	Interpreter query.Interpreter
	Proxies     *proxy.Pool
	Storage     storage.Backend

	browser *browser.Pool
	cache   cache.Store
	logger  *slog.Logger
}

// NewLogger builds the slog logger named by cfg.
func NewLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// OpenStorage opens the search-run backend named by cfg. It returns a nil
// Backend for "none".
func OpenStorage(ctx context.Context, cfg config.StorageConfig) (storage.Backend, error) {
	switch cfg.Backend {
	case "", "none":
		return nil, nil
	case "sqlite":
		return sqlite.New(cfg.DSN)
	case "postgres":
		return postgres.New(ctx, cfg.DSN)
	case "json":
		return jsonbackend.New(cfg.DSN)
	case "csv":
		return csvbackend.New(cfg.DSN)
	}
	return nil, fmt.Errorf("app: unknown storage backend %q", cfg.Backend)
}

// New wires every component described by cfg. Chrome is not started until
// a browser-backed source first runs.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, logger: logger}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	a.Proxies = proxy.NewPool(proxy.Config{})
	if cfg.Scraper.ProxiesFile != "" {
		if err := a.Proxies.LoadFile(cfg.Scraper.ProxiesFile); err != nil {
			return nil, fmt.Errorf("app: load proxies: %w", err)
		}
		logger.Info("loaded proxies", "count", a.Proxies.Len())
	}

	profile, err := fingerprint.ParseProfile(cfg.Scraper.Fingerprint)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	uas := useragent.NewPool(cfg.Scraper.UserAgents).ForFamily(profile.Family())

	fetcher, err := scraper.NewFetcher(scraper.FetchConfig{
		Timeout:      cfg.Scraper.Timeout,
		UseCookieJar: true,
		MaxBodyBytes: 10 << 20,
		ProxyPool:    a.Proxies,
		UAPool:       uas,
		Fingerprint:  profile,
		Limiter:      ratelimit.NewLimiter(cfg.Scraper.RequestsPerSecond, cfg.Scraper.Jitter),
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("app: fetcher: %w", err)
	}
	var robots *scraper.RobotsTxtAuditor
	if cfg.Scraper.RespectRobots {
		robots = scraper.NewRobotsTxtAuditor(fetcher, logger)
	}

	a.browser = browser.NewPool(browser.Config{
		RemoteURL:         cfg.Browser.RemoteURL,
		Headful:           !cfg.Browser.Headless,
		NavigationTimeout: cfg.Browser.NavigationTimeout,
		SettleDelay:       cfg.Browser.SettleDelay,
		UserAgent:         uas.GetRandom(),
		Logger:            logger,
	})

	a.cache, err = cache.New(ctx, cache.Config{Type: cfg.Cache.Type, RedisURL: cfg.Cache.RedisURL, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	ttl := cfg.Cache.TTL
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}

	var scrapers []source.Scraper
	if cfg.ThomasNet.Enabled {
		mode, err := thomasnet.ParseMode(cfg.ThomasNet.Mode)
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		tn, err := thomasnet.New(thomasnet.Config{
			BaseURL: cfg.ThomasNet.BaseURL,
			Mode:    mode,
			Fetcher: fetcher,
			Robots:  robots,
			Driver:  a.browser,
			Limit:   cfg.Scraper.ExtractLimit,
			Logger:  logger,
		})
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		cached := cache.Wrap(tn, a.cache, ttl, logger)
		a.ThomasNet = directory{Scraper: cached, profiles: tn}
		scrapers = append(scrapers, cached)
	}
	if cfg.Connex.Enabled {
		cx, err := connex.New(connex.Config{
			BaseURL:    cfg.Connex.BaseURL,
			LoginPath:  cfg.Connex.LoginPath,
			SearchPath: cfg.Connex.SearchPath,
			Username:   cfg.Connex.Username,
			Password:   cfg.Connex.Password,
			Driver:     a.browser,
			Limit:      cfg.Scraper.ExtractLimit,
			Logger:     logger,
		})
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		if cfg.Connex.Username == "" || cfg.Connex.Password == "" {
			logger.Warn("connex credentials are not configured; searches will run unauthenticated")
		}
		scrapers = append(scrapers, cache.Wrap(cx, a.cache, ttl, logger))
	}

	matcher, err := match.New(cfg.Matching.Strategy, cfg.Matching.Threshold)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	a.Storage, err = OpenStorage(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("app: storage: %w", err)
	}

	a.Aggregator, err = aggregate.New(aggregate.Config{
		Scrapers:            scrapers,
		MaxResultsPerSource: cfg.Scraper.MaxResultsPerSource,
		Matcher:             matcher,
		Timeout:             cfg.Scraper.SearchTimeout,
		Storage:             a.Storage,
		Logger:              logger,
	})
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	a.Parser = query.NewParser(cfg.Query.DefaultKeywords, logger)
	a.Interpreter = a.Parser
	llm, err := query.NewLLMInterpreter(query.LLMConfig{
		APIKey:  cfg.OpenAI.APIKey,
		Model:   cfg.OpenAI.Model,
		BaseURL: cfg.OpenAI.BaseURL,
		Logger:  logger,
	}, a.Parser)
	switch {
	case err == nil:
		a.Interpreter = llm
	case errors.Is(err, query.ErrNoInterpreter):
		logger.Info("no openai api key; ai_search uses the pattern parser")
	default:
		return nil, fmt.Errorf("app: %w", err)
	}

	return a, nil
}

// Handler builds the HTTP handler for a.
func (a *App) Handler() *api.Handler {
	return api.NewHandler(api.Config{
		ThomasNet:   a.ThomasNet,
		Aggregator:  a.Aggregator,
		Parser:      a.Parser,
		Interpreter: a.Interpreter,
		Proxies:     a.Proxies,
		Logger:      a.logger,
	})
}

// Close releases everything New opened.
func (a *App) Close() error {
	var errs []error
	if a.browser != nil {
		errs = append(errs, a.browser.Close())
	}
	if a.cache != nil {
		errs = append(errs, a.cache.Close())
	}
	if a.Storage != nil {
		errs = append(errs, a.Storage.Close())
	}
	return errors.Join(errs...)
}

// directory serves searches through the cache and profile details from the
// underlying ThomasNet scraper.
type directory struct {
	source.Scraper
	profiles *thomasnet.Scraper
}

func (d directory) Details(ctx context.Context, profileURL string) (*thomasnet.Details, error) {
	return d.profiles.Details(ctx, profileURL)
}
