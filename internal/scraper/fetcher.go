// Package scraper fetches directory pages over plain HTTP.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/strategicvalueplus/scout/internal/bypass"
	"github.com/strategicvalueplus/scout/internal/fingerprint"
	"github.com/strategicvalueplus/scout/internal/metrics"
	"github.com/strategicvalueplus/scout/pkg/httpclient"
	"github.com/strategicvalueplus/scout/pkg/proxy"
	"github.com/strategicvalueplus/scout/pkg/ratelimit"
	"github.com/strategicvalueplus/scout/pkg/useragent"
)

type contextKey string

const proxyKey contextKey = "proxy_url"

// Page is one fetched document. Failures are reported in Error rather than as
// a Go error so callers can keep going.
type Page struct {
	ID         string
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
	Duration   time.Duration
	FetchedAt  time.Time
	// BlockedBy names the bot-protection vendor that challenged the request.
	BlockedBy string
	Error     string
}

// OK reports whether the page was fetched with a 2xx status and no block.
func (p *Page) OK() bool {
	return p.Error == "" && p.StatusCode >= 200 && p.StatusCode < 300
}

// FetchConfig configures a Fetcher.
type FetchConfig struct {
	Timeout      time.Duration
	MaxRedirects int
	UseCookieJar bool
	MaxBodyBytes int64
	ProxyPool    *proxy.Pool
	UAPool       *useragent.Pool
	Fingerprint  fingerprint.Profile
	Limiter      *ratelimit.Limiter
	Logger       *slog.Logger
	// InsecureSkipVerify is passed to the TLS transport; tests only.
	InsecureSkipVerify bool
}

// Fetcher performs single URL fetches using the configured fingerprint,
// User-Agent rotation, proxies and rate limit.
type Fetcher struct {
	config FetchConfig
	client *httpclient.Client
	logger *slog.Logger
}

// NewFetcher initializes a Fetcher. One client is held across requests so
// connections and cookies are reused for the Fetcher's lifetime.
func NewFetcher(cfg FetchConfig) (*Fetcher, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if string(cfg.Fingerprint) == "" {
		cfg.Fingerprint = fingerprint.ProfileChrome
	}
	if cfg.UAPool == nil {
		cfg.UAPool = useragent.NewPool(nil)
	}
	cfg.UAPool = cfg.UAPool.ForFamily(cfg.Fingerprint.Family())
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	// The proxy is chosen per request and carried in the request context.
	proxyFunc := func(req *http.Request) (*url.URL, error) {
		if u, ok := req.Context().Value(proxyKey).(*url.URL); ok && u != nil {
			return u, nil
		}
		return http.ProxyFromEnvironment(req)
	}

	transport, err := fingerprint.Transport(cfg.Fingerprint, fingerprint.Options{
		Proxy:              proxyFunc,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to setup transport: %w", err)
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: cfg.MaxRedirects,
		UseCookieJar: cfg.UseCookieJar,
		MaxBodyBytes: cfg.MaxBodyBytes,
		Transport:    transport,
		Headers: http.Header{
			"Accept":          {"text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"},
			"Accept-Language": {"en-US,en;q=0.5"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &Fetcher{
		config: cfg,
		client: client,
		logger: cfg.Logger,
	}, nil
}

// UserAgent returns the next User-Agent the fetcher will present. Callers
// checking robots.txt use it to pick the matching group.
func (f *Fetcher) UserAgent() string {
	return f.config.UAPool.GetSequential()
}

// Fetch executes a GET request to targetURL. The returned error is always
// nil; transport failures, oversized bodies and bot walls land in Page.Error.
func (f *Fetcher) Fetch(ctx context.Context, targetURL string) (*Page, error) {
	page := &Page{
		ID:        uuid.New().String(),
		URL:       targetURL,
		FetchedAt: time.Now().UTC(),
	}

	if err := f.config.Limiter.Wait(ctx); err != nil {
		page.Error = fmt.Sprintf("rate limiter failed: %v", err)
		return page, nil
	}

	start := time.Now()
	defer func() { page.Duration = time.Since(start) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		page.Error = fmt.Sprintf("failed to create request: %v", err)
		return page, nil
	}
	host := req.URL.Host

	var activeProxy *url.URL
	if f.config.ProxyPool != nil {
		if activeProxy = f.config.ProxyPool.Next(); activeProxy != nil {
			req = req.WithContext(context.WithValue(req.Context(), proxyKey, activeProxy))
		}
	}
	req.Header.Set("User-Agent", f.config.UAPool.GetSequential())

	resp, err := f.client.Do(req.Context(), req)
	if err != nil {
		if activeProxy != nil {
			_ = f.config.ProxyPool.MarkFailure(activeProxy)
			metrics.ProxyFailures.WithLabelValues(activeProxy.Redacted()).Inc()
		}
		page.Error = fmt.Sprintf("request failed: %v", err)
		metrics.RecordFetch(host, 0, "", 0)
		f.logger.Debug("fetch failed", "url", targetURL, "err", err)
		return page, nil
	}
	defer resp.Body.Close()

	if activeProxy != nil {
		_ = f.config.ProxyPool.MarkSuccess(activeProxy)
	}

	body, err := f.client.ReadBody(resp)
	if err != nil && !errors.Is(err, httpclient.ErrBodyTooLarge) {
		page.Error = fmt.Sprintf("failed to read body: %v", err)
	}

	page.StatusCode = resp.StatusCode
	page.Header = resp.Header
	page.Body = body

	if vendor, blocked := bypass.Analyze(bypass.Response{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   body,
	}, bypass.DefaultDetectors()); blocked {
		page.BlockedBy = vendor
		page.Error = fmt.Sprintf("blocked by %s (status %d)", vendor, resp.StatusCode)
	}

	metrics.RecordFetch(host, resp.StatusCode, page.BlockedBy, len(body))
	f.logger.Debug("fetched page",
		"url", targetURL,
		"status", resp.StatusCode,
		"bytes", len(body),
		"blocked_by", page.BlockedBy,
	)
	return page, nil
}
