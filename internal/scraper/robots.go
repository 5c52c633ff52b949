package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// DefaultRobotsTTL is how long a host's robots.txt is trusted before it is
// fetched again.
const DefaultRobotsTTL = 24 * time.Hour

// RobotsTxtAuditor fetches and caches robots.txt per host and answers
// whether a URL may be fetched. It fails open: an unreachable or broken
// robots.txt allows everything.
type RobotsTxtAuditor struct {
	fetcher *Fetcher
	logger  *slog.Logger
	ttl     time.Duration
	now     func() time.Time

	mu    sync.Mutex
	cache map[string]robotsEntry
}

// robotsEntry is a cached robots.txt. A nil data means allow all.
type robotsEntry struct {
	data      *robotstxt.RobotsData
	fetchedAt time.Time
}

// NewRobotsTxtAuditor creates a new instance.
func NewRobotsTxtAuditor(fetcher *Fetcher, logger *slog.Logger) *RobotsTxtAuditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &RobotsTxtAuditor{
		fetcher: fetcher,
		logger:  logger,
		ttl:     DefaultRobotsTTL,
		now:     time.Now,
		cache:   make(map[string]robotsEntry),
	}
}

// IsAllowed reports whether targetURL may be fetched by userAgent.
func (r *RobotsTxtAuditor) IsAllowed(ctx context.Context, targetURL string, userAgent string) (bool, error) {
	u, err := url.Parse(targetURL)
	if err != nil {
		return false, fmt.Errorf("invalid url: %w", err)
	}

	host := u.Scheme + "://" + u.Host
	data, err := r.rules(ctx, host)
	if err != nil {
		r.logger.Debug("robots.txt fetch failed, defaulting to allow", "host", host, "err", err)
		return true, nil
	}
	if data == nil {
		return true, nil
	}

	path := u.EscapedPath()
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return data.FindGroup(userAgent).Test(path), nil
}

// rules returns the cached rules for host, fetching them when missing or
// older than the TTL. The lock is held across the fetch so one host is
// never fetched twice concurrently.
func (r *RobotsTxtAuditor) rules(ctx context.Context, host string) (*robotstxt.RobotsData, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.cache[host]; ok && r.now().Sub(e.fetchedAt) < r.ttl {
		return e.data, nil
	}

	page, _ := r.fetcher.Fetch(ctx, host+"/robots.txt")
	if page.Error != "" {
		// Not cached: a transient failure should not allow everything for
		// the life of the process.
		return nil, fmt.Errorf("fetch error: %s", page.Error)
	}

	entry := robotsEntry{fetchedAt: r.now()}
	if page.StatusCode < 400 {
		parsed, err := robotstxt.FromBytes(page.Body)
		if err != nil {
			r.cache[host] = entry
			return nil, fmt.Errorf("parse error: %w", err)
		}
		entry.data = parsed
	}
	r.cache[host] = entry
	return entry.data, nil
}
