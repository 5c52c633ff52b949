// Package connex scrapes supplier listings from the CONNEX manufacturing
// directory. CONNEX renders results with JavaScript and shows more to
// signed-in users, so the scraper drives a browser and logs in first when
// credentials are configured.
package connex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/strategicvalueplus/scout/internal/browser"
	"github.com/strategicvalueplus/scout/internal/bypass"
	"github.com/strategicvalueplus/scout/internal/extract"
	"github.com/strategicvalueplus/scout/internal/source"
	"github.com/strategicvalueplus/scout/internal/supplier"
)

const (
	DefaultBaseURL     = "https://connex.mep.org"
	DefaultLoginPath   = "/login"
	DefaultSearchPath  = "/search"
	DefaultProfilePath = "/company/"
)

// ErrNoCredentials is the login failure reported when no username or
// password is configured.
var ErrNoCredentials = errors.New("no credentials configured")

// Credential fields are located by the first selector present on the page.
var (
	UsernameSelectors = []string{
		`input[type="email"]`,
		`input[name="email"]`,
		`input[name="username"]`,
		`#email`,
		`#username`,
		`input[type="text"]`,
	}
	PasswordSelectors = []string{
		`input[type="password"]`,
		`input[name="password"]`,
		`#password`,
	}
	SubmitSelectors = []string{
		`button[type="submit"]`,
		`input[type="submit"]`,
		`button[class*="login"]`,
		`form button`,
	}
)

// loggedInMarkers are words only a signed-in page shows.
var loggedInMarkers = []string{"dashboard", "search", "suppliers", "my account"}

// Config configures a Scraper.
type Config struct {
	BaseURL     string
	LoginPath   string
	SearchPath  string
	ProfilePath string
	Username    string
	Password    string
	Driver      browser.Driver
	Limit       int
	Logger      *slog.Logger
}

// Scraper implements source.Scraper for CONNEX.
type Scraper struct {
	cfg    Config
	base   *url.URL
	chain  *extract.Chain
	logger *slog.Logger
}

var _ source.Scraper = (*Scraper)(nil)

// New validates cfg and builds a Scraper.
func New(cfg Config) (*Scraper, error) {
	if cfg.Driver == nil {
		return nil, errors.New("connex: a browser driver is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("connex: invalid base url %q", cfg.BaseURL)
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = DefaultLoginPath
	}
	if cfg.SearchPath == "" {
		cfg.SearchPath = DefaultSearchPath
	}
	if cfg.ProfilePath == "" {
		cfg.ProfilePath = DefaultProfilePath
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Scraper{
		cfg:    cfg,
		base:   base,
		chain:  extract.Default(cfg.Limit, cfg.ProfilePath),
		logger: cfg.Logger.With("source", supplier.SourceConnex),
	}, nil
}

// Name implements source.Scraper.
func (s *Scraper) Name() supplier.Source { return supplier.SourceConnex }

func (s *Scraper) pageURL(path string, q url.Values) string {
	u := *s.base
	u.Path = path
	if q != nil {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// SearchURL builds the directory search URL for c.
func (s *Scraper) SearchURL(c supplier.Criteria) string {
	what := strings.TrimSpace(c.Keywords)
	if what == "" {
		what = strings.TrimSpace(c.Category)
	}
	q := url.Values{}
	q.Set("q", what)
	if loc := strings.TrimSpace(c.Location); loc != "" {
		q.Set("location", loc)
	}
	return s.pageURL(s.cfg.SearchPath, q)
}

// Search implements source.Scraper. A failed login does not stop the
// search; it continues signed out and the result reports
// Authenticated=false. The login failure becomes the result's error only
// when the signed-out search finds nothing.
func (s *Scraper) Search(ctx context.Context, c supplier.Criteria) (*supplier.SourceResult, error) {
	start := time.Now()
	finish := func(res *supplier.SourceResult, authed bool) (*supplier.SourceResult, error) {
		res.Authenticated = supplier.Bool(authed)
		res.Duration = time.Since(start)
		return res, nil
	}

	page, err := s.cfg.Driver.NewPage(ctx)
	if err != nil {
		s.logger.Warn("open page failed", "err", err)
		return finish(supplier.Failed(fmt.Errorf("open page: %w", err)), false)
	}
	defer page.Close()

	loginErr := s.login(ctx, page)
	authed := loginErr == nil
	if loginErr != nil {
		s.logger.Warn("login failed, searching signed out", "err", loginErr)
	}

	target := s.SearchURL(c)
	out, err := s.search(ctx, page, target)
	if err != nil {
		s.logger.Warn("search failed", "url", target, "err", err)
		return finish(supplier.Failed(err), authed)
	}

	res := source.Result(source.Label(out.Records, supplier.SourceConnex), out.Total)
	if loginErr != nil && len(res.Suppliers) == 0 {
		// The signed-out page may still advertise a count it will not show.
		res = supplier.Failed(fmt.Errorf("login failed: %w", loginErr))
	}
	s.logger.Info("search complete",
		"authenticated", authed,
		"strategy", out.Strategy,
		"records", len(res.Suppliers),
		"total", res.TotalResults,
	)
	return finish(res, authed)
}

// login signs page in. A nil error means the landing page looked like a
// signed-in page.
func (s *Scraper) login(ctx context.Context, page browser.Page) error {
	if s.cfg.Username == "" || s.cfg.Password == "" {
		return ErrNoCredentials
	}
	if err := page.Navigate(ctx, s.pageURL(s.cfg.LoginPath, nil)); err != nil {
		return fmt.Errorf("open login page: %w", err)
	}
	if _, err := page.Fill(ctx, UsernameSelectors, s.cfg.Username); err != nil {
		return fmt.Errorf("username field: %w", err)
	}
	if _, err := page.Fill(ctx, PasswordSelectors, s.cfg.Password); err != nil {
		return fmt.Errorf("password field: %w", err)
	}
	if err := page.Submit(ctx, SubmitSelectors); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	if err := page.Settle(ctx); err != nil {
		return err
	}

	html, err := page.HTML(ctx)
	if err != nil {
		return fmt.Errorf("read landing page: %w", err)
	}
	return loggedIn(page.URL(), html)
}

// loggedIn decides from the landing page whether a login worked.
func loggedIn(landing, html string) error {
	if strings.Contains(strings.ToLower(landing), "/login") {
		return errors.New("still on login page")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return fmt.Errorf("parse landing page: %w", err)
	}
	text := strings.ToLower(doc.Find("body").Text())
	for _, m := range loggedInMarkers {
		if strings.Contains(text, m) {
			return nil
		}
	}
	return errors.New("no signed-in markers on landing page")
}

func (s *Scraper) search(ctx context.Context, page browser.Page, target string) (extract.Outcome, error) {
	if err := page.Navigate(ctx, target); err != nil {
		return extract.Outcome{}, fmt.Errorf("navigate: %w", err)
	}
	if err := page.Settle(ctx); err != nil {
		return extract.Outcome{}, err
	}
	html, err := page.HTML(ctx)
	if err != nil {
		return extract.Outcome{}, fmt.Errorf("read page: %w", err)
	}
	if vendor, blocked := bypass.Check(html); blocked {
		return extract.Outcome{}, fmt.Errorf("blocked by %s", vendor)
	}
	return s.chain.Run([]byte(html), target)
}
