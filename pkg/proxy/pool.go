// Package proxy rotates outbound proxies and benches the ones that keep failing.
package proxy

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

// ErrNotFound is returned when marking a proxy the pool does not hold.
var ErrNotFound = errors.New("proxy: not found in pool")

// Config defines settings for the Proxy Pool.
type Config struct {
	// MaxFailures in a row benches a proxy. Default 3.
	MaxFailures int
	// Cooldown is how long a benched proxy sits out. Default 5m.
	Cooldown time.Duration
}

type entry struct {
	url        *url.URL
	failures   int
	successes  int
	lastUsed   time.Time
	benchUntil time.Time
}

func (e *entry) benched(now time.Time) bool {
	return now.Before(e.benchUntil)
}

// Pool hands out proxies round-robin, skipping benched ones.
type Pool struct {
	maxFailures int
	cooldown    time.Duration
	now         func() time.Time

	mu      sync.Mutex
	entries []*entry
	byURL   map[string]*entry
	next    int
}

// NewPool creates a new proxy pool. Zero config values use the defaults.
func NewPool(cfg Config) *Pool {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Minute
	}
	return &Pool{
		maxFailures: cfg.MaxFailures,
		cooldown:    cfg.Cooldown,
		now:         time.Now,
		byURL:       make(map[string]*entry),
	}
}

// LoadFile adds the proxies listed in path, one per line. Blank lines and
// "#" comments are skipped.
func (p *Pool) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("proxy: open list: %w", err)
	}
	defer f.Close()
	return p.load(f)
}

func (p *Pool) load(r io.Reader) error {
	var urls []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line, _, _ := strings.Cut(sc.Text(), "#")
		if line = strings.TrimSpace(line); line != "" {
			urls = append(urls, line)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("proxy: read list: %w", err)
	}
	return p.Add(urls...)
}

// Add parses and appends proxies. A missing scheme means http. Proxies
// already in the pool are ignored. Nothing is added if any entry is invalid.
func (p *Pool) Add(rawURLs ...string) error {
	parsed := make([]*url.URL, 0, len(rawURLs))
	for _, raw := range rawURLs {
		if !strings.Contains(raw, "://") {
			raw = "http://" + raw
		}
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("proxy: parse %q: %w", raw, err)
		}
		if u.Host == "" {
			return fmt.Errorf("proxy: %q has no host", raw)
		}
		parsed = append(parsed, u)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, u := range parsed {
		key := u.String()
		if _, dup := p.byURL[key]; dup {
			continue
		}
		e := &entry{url: u}
		p.entries = append(p.entries, e)
		p.byURL[key] = e
	}
	return nil
}

// Next returns the next proxy that is not benched, or nil when the pool is
// empty or every proxy is cooling down.
func (p *Pool) Next() *url.URL {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	for range p.entries {
		e := p.entries[p.next]
		p.next = (p.next + 1) % len(p.entries)

		if e.benched(now) {
			continue
		}
		if !e.benchUntil.IsZero() {
			// Back from the bench with a clean slate.
			e.benchUntil = time.Time{}
			e.failures = 0
		}
		e.lastUsed = now
		return e.url
	}
	return nil
}

func (p *Pool) lookup(u *url.URL) (*entry, error) {
	if u == nil {
		return nil, errors.New("proxy: url cannot be nil")
	}
	e, ok := p.byURL[u.String()]
	if !ok {
		return nil, ErrNotFound
	}
	return e, nil
}

// MarkSuccess records a request that went through u. Each success forgives
// one earlier failure.
func (p *Pool) MarkSuccess(u *url.URL) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, err := p.lookup(u)
	if err != nil {
		return err
	}
	e.successes++
	if e.failures > 0 {
		e.failures--
	}
	return nil
}

// MarkFailure records a failed request through u and benches it once it
// reaches the configured failure count.
func (p *Pool) MarkFailure(u *url.URL) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, err := p.lookup(u)
	if err != nil {
		return err
	}
	e.failures++
	if e.failures >= p.maxFailures {
		e.benchUntil = p.now().Add(p.cooldown)
	}
	return nil
}

// Stat is a point-in-time view of one proxy's health.
type Stat struct {
	URL       string    `json:"url"`
	Successes int       `json:"successes"`
	Failures  int       `json:"failures"`
	Disabled  bool      `json:"disabled"`
	LastUsed  time.Time `json:"lastUsed,omitzero"`
}

// Stats reports the health of every proxy, in rotation order. Credentials in
// proxy URLs are redacted.
func (p *Pool) Stats() []Stat {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	out := make([]Stat, len(p.entries))
	for i, e := range p.entries {
		out[i] = Stat{
			URL:       e.url.Redacted(),
			Successes: e.successes,
			Failures:  e.failures,
			Disabled:  e.benched(now),
			LastUsed:  e.lastUsed,
		}
	}
	return out
}

// Len returns the number of configured proxies.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}
