// Package browser owns the headless Chrome used by scrapers that need a
// rendered page. One Pool is created by the host service and injected into
// every scraper; the browser is launched on first use and reused until the
// pool is closed.
package browser

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/strategicvalueplus/scout/internal/metrics"
)

var (
	// ErrPoolClosed is returned by NewPage after Close.
	ErrPoolClosed = errors.New("browser: pool is closed")
	// ErrNoElement is returned when none of the candidate selectors match.
	ErrNoElement = errors.New("browser: no matching element")
)

// Page is one browser tab.
type Page interface {
	// Navigate loads url and waits for the load event.
	Navigate(ctx context.Context, url string) error
	// URL is the address currently shown, after any redirects.
	URL() string
	// HTML returns the rendered document.
	HTML(ctx context.Context) (string, error)
	// Fill types value into the first element matching one of selectors and
	// returns the selector used.
	Fill(ctx context.Context, selectors []string, value string) (string, error)
	// Submit clicks the first element matching one of selectors, or presses
	// Enter when none match, and waits for the resulting navigation.
	Submit(ctx context.Context, selectors []string) error
	// Settle gives client-side rendering time to finish.
	Settle(ctx context.Context) error
	Close() error
}

// Driver opens pages.
type Driver interface {
	NewPage(ctx context.Context) (Page, error)
}

// Config configures a Pool.
type Config struct {
	// RemoteURL is the DevTools WebSocket URL of an already running Chrome.
	// Empty launches a local one.
	RemoteURL string
	// Headful shows the browser window. Default is headless.
	Headful bool
	// NavigationTimeout bounds each navigation. Default 30s.
	NavigationTimeout time.Duration
	// SettleDelay is how long Settle waits for client-side rendering.
	// Default 3s; negative disables the wait.
	SettleDelay time.Duration
	// UserAgent overrides the browser's User-Agent when set.
	UserAgent string
	Logger    *slog.Logger
}

func (c *Config) defaults() {
	if c.NavigationTimeout <= 0 {
		c.NavigationTimeout = 30 * time.Second
	}
	if c.SettleDelay < 0 {
		c.SettleDelay = 0
	} else if c.SettleDelay == 0 {
		c.SettleDelay = 3 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// instance is a running browser.
type instance interface {
	newPage(ctx context.Context) (Page, error)
	close() error
}

// Pool lazily launches one browser and hands out pages from it. Concurrent
// first callers share a single launch. It is safe for concurrent use.
type Pool struct {
	cfg    Config
	launch func(ctx context.Context) (instance, error)

	mu     sync.Mutex
	inst   instance
	closed bool
	group  singleflight.Group
}

// NewPool creates a Pool. No browser is started until the first NewPage.
func NewPool(cfg Config) *Pool {
	cfg.defaults()
	p := &Pool{cfg: cfg}
	p.launch = func(ctx context.Context) (instance, error) {
		return launchRod(ctx, p.cfg)
	}
	return p
}

// NewPage implements Driver.
func (p *Pool) NewPage(ctx context.Context) (Page, error) {
	inst, err := p.instance(ctx)
	if err != nil {
		return nil, err
	}
	page, err := inst.newPage(ctx)
	if err != nil {
		// A crashed or disconnected browser fails every page; drop it so the
		// next caller relaunches.
		p.discard(inst)
		return nil, err
	}
	return page, nil
}

func (p *Pool) instance(ctx context.Context) (instance, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	if p.inst != nil {
		inst := p.inst
		p.mu.Unlock()
		return inst, nil
	}
	p.mu.Unlock()

	v, err, _ := p.group.Do("launch", func() (any, error) {
		p.mu.Lock()
		if p.inst != nil {
			inst := p.inst
			p.mu.Unlock()
			return inst, nil
		}
		p.mu.Unlock()

		// The browser outlives the request that happened to start it.
		inst, err := p.launch(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}

		p.mu.Lock()
		defer p.mu.Unlock()
		if p.closed {
			_ = inst.close()
			return nil, ErrPoolClosed
		}
		p.inst = inst
		metrics.BrowserLaunchesTotal.Inc()
		p.cfg.Logger.Info("browser launched", "remote", p.cfg.RemoteURL != "")
		return inst, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(instance), nil
}

func (p *Pool) discard(inst instance) {
	p.mu.Lock()
	if p.inst != inst {
		p.mu.Unlock()
		return
	}
	p.inst = nil
	p.mu.Unlock()

	p.cfg.Logger.Warn("browser discarded after page failure")
	_ = inst.close()
}

// Close shuts the browser down. Further NewPage calls return ErrPoolClosed.
func (p *Pool) Close() error {
	p.mu.Lock()
	p.closed = true
	inst := p.inst
	p.inst = nil
	p.mu.Unlock()

	if inst == nil {
		return nil
	}
	return inst.close()
}
