// Package thomasnet scrapes supplier listings from the ThomasNet directory.
package thomasnet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/strategicvalueplus/scout/internal/browser"
	"github.com/strategicvalueplus/scout/internal/bypass"
	"github.com/strategicvalueplus/scout/internal/extract"
	"github.com/strategicvalueplus/scout/internal/scraper"
	"github.com/strategicvalueplus/scout/internal/source"
	"github.com/strategicvalueplus/scout/internal/supplier"
)

// DefaultBaseURL is the public ThomasNet site.
const DefaultBaseURL = "https://www.thomasnet.com"

// Mode selects how search pages are loaded.
type Mode string

const (
	// ModeHTTP fetches the search page with a plain HTTP client.
	ModeHTTP Mode = "http"
	// ModeBrowser renders the search page in a headless browser.
	ModeBrowser Mode = "browser"
)

// ParseMode validates a mode name. "" means ModeHTTP.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeHTTP:
		return ModeHTTP, nil
	case ModeBrowser:
		return ModeBrowser, nil
	}
	return "", fmt.Errorf("thomasnet: unknown mode %q", s)
}

// Config configures a Scraper.
type Config struct {
	BaseURL string
	Mode    Mode
	// Fetcher is required for ModeHTTP and for Details.
	Fetcher *scraper.Fetcher
	// Robots, when set, gates HTTP fetches on robots.txt.
	Robots *scraper.RobotsTxtAuditor
	// Driver is required for ModeBrowser.
	Driver browser.Driver
	// Limit caps the records taken from one search page.
	Limit  int
	Logger *slog.Logger
}

// Scraper implements source.Scraper for ThomasNet.
type Scraper struct {
	base    *url.URL
	mode    Mode
	fetcher *scraper.Fetcher
	robots  *scraper.RobotsTxtAuditor
	driver  browser.Driver
	chain   *extract.Chain
	logger  *slog.Logger
}

var _ source.Scraper = (*Scraper)(nil)

// New validates cfg and builds a Scraper.
func New(cfg Config) (*Scraper, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("thomasnet: invalid base url %q", cfg.BaseURL)
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeHTTP
	}
	switch cfg.Mode {
	case ModeHTTP:
		if cfg.Fetcher == nil {
			return nil, errors.New("thomasnet: http mode requires a fetcher")
		}
	case ModeBrowser:
		if cfg.Driver == nil {
			return nil, errors.New("thomasnet: browser mode requires a driver")
		}
	default:
		return nil, fmt.Errorf("thomasnet: unknown mode %q", cfg.Mode)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Scraper{
		base:    base,
		mode:    cfg.Mode,
		fetcher: cfg.Fetcher,
		robots:  cfg.Robots,
		driver:  cfg.Driver,
		chain:   extract.Default(cfg.Limit, "/profile/"),
		logger:  cfg.Logger.With("source", supplier.SourceThomasNet),
	}, nil
}

// Name implements source.Scraper.
func (s *Scraper) Name() supplier.Source { return supplier.SourceThomasNet }

// SearchURL builds the supplier search URL for c. The category is searched
// for when no keywords are given.
func (s *Scraper) SearchURL(c supplier.Criteria) string {
	what := strings.TrimSpace(c.Keywords)
	if what == "" {
		what = strings.TrimSpace(c.Category)
	}
	q := url.Values{}
	q.Set("searchsource", "suppliers")
	q.Set("searchterm", what)
	if loc := strings.TrimSpace(c.Location); loc != "" {
		q.Set("where", loc)
	}
	u := *s.base
	u.Path = "/search.html"
	u.RawQuery = q.Encode()
	return u.String()
}

// Search implements source.Scraper. Failures are reported in the result's
// Error field; the returned error is always nil.
func (s *Scraper) Search(ctx context.Context, c supplier.Criteria) (*supplier.SourceResult, error) {
	start := time.Now()
	target := s.SearchURL(c)

	var (
		html []byte
		err  error
	)
	if s.mode == ModeBrowser {
		html, err = s.render(ctx, target)
	} else {
		html, err = s.fetch(ctx, target)
	}
	if err != nil {
		s.logger.Warn("search failed", "url", target, "err", err)
		res := supplier.Failed(err)
		res.Duration = time.Since(start)
		return res, nil
	}

	out, err := s.chain.Run(html, target)
	if err != nil {
		res := supplier.Failed(err)
		res.Duration = time.Since(start)
		return res, nil
	}

	res := source.Result(source.Label(out.Records, supplier.SourceThomasNet), out.Total)
	res.Duration = time.Since(start)
	s.logger.Info("search complete",
		"strategy", out.Strategy,
		"records", len(res.Suppliers),
		"total", res.TotalResults,
		"duration", res.Duration,
	)
	return res, nil
}

// fetch loads target over HTTP, honouring robots.txt when configured.
func (s *Scraper) fetch(ctx context.Context, target string) ([]byte, error) {
	if s.fetcher == nil {
		return nil, errors.New("no http fetcher configured")
	}
	if s.robots != nil {
		allowed, err := s.robots.IsAllowed(ctx, target, s.fetcher.UserAgent())
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, fmt.Errorf("disallowed by robots.txt: %s", target)
		}
	}

	page, _ := s.fetcher.Fetch(ctx, target)
	if page.Error != "" {
		return nil, errors.New(page.Error)
	}
	if !page.OK() {
		return nil, fmt.Errorf("unexpected status %d", page.StatusCode)
	}
	return page.Body, nil
}

// render loads target in a browser page and returns the settled DOM.
func (s *Scraper) render(ctx context.Context, target string) ([]byte, error) {
	page, err := s.driver.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer page.Close()

	if err := page.Navigate(ctx, target); err != nil {
		return nil, fmt.Errorf("navigate: %w", err)
	}
	if err := page.Settle(ctx); err != nil {
		return nil, err
	}
	html, err := page.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("read page: %w", err)
	}
	if vendor, blocked := bypass.Check(html); blocked {
		return nil, fmt.Errorf("blocked by %s", vendor)
	}
	return []byte(html), nil
}
