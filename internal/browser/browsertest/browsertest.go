// Package browsertest provides an in-memory browser.Driver for testing
// scrapers without Chrome.
package browsertest

import (
	"context"
	"net/url"
	"sync"

	"github.com/strategicvalueplus/scout/internal/browser"
)

// Site describes the pages the fake browser serves.
type Site struct {
	// Pages maps a URL to its HTML. Lookups try the full URL, then the path
	// with query, then the bare path.
	Pages map[string]string
	// Elements lists the selectors that exist on every page.
	Elements []string
	// OnSubmit returns the URL the page lands on after Submit, given the
	// values filled so far keyed by selector. Nil stays on the current URL.
	OnSubmit func(filled map[string]string) string
	// NavigateErr, when set, fails every navigation.
	NavigateErr error
}

// Driver is a fake browser.Driver.
type Driver struct {
	Site *Site
	// NewPageErr, when set, is returned by NewPage.
	NewPageErr error

	mu      sync.Mutex
	visited []string
	open    int
}

var _ browser.Driver = (*Driver)(nil)

// NewPage implements browser.Driver.
func (d *Driver) NewPage(context.Context) (browser.Page, error) {
	if d.NewPageErr != nil {
		return nil, d.NewPageErr
	}
	d.mu.Lock()
	d.open++
	d.mu.Unlock()
	return &Page{driver: d, filled: make(map[string]string)}, nil
}

// Visited returns every URL navigated to, in order.
func (d *Driver) Visited() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.visited...)
}

// OpenPages is the number of pages not yet closed.
func (d *Driver) OpenPages() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

// Page is a fake browser.Page.
type Page struct {
	driver *Driver
	url    string
	filled map[string]string
	closed bool
}

// Filled returns the value typed into selector.
func (p *Page) Filled(selector string) string { return p.filled[selector] }

func (p *Page) Navigate(ctx context.Context, u string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.driver.Site.NavigateErr != nil {
		return p.driver.Site.NavigateErr
	}
	p.driver.mu.Lock()
	p.driver.visited = append(p.driver.visited, u)
	p.driver.mu.Unlock()
	p.url = u
	return nil
}

func (p *Page) URL() string { return p.url }

func (p *Page) HTML(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	pages := p.driver.Site.Pages
	if html, ok := pages[p.url]; ok {
		return html, nil
	}
	if u, err := url.Parse(p.url); err == nil {
		if html, ok := pages[u.RequestURI()]; ok {
			return html, nil
		}
		if html, ok := pages[u.Path]; ok {
			return html, nil
		}
	}
	return "<html><body></body></html>", nil
}

func (p *Page) has(selector string) bool {
	for _, s := range p.driver.Site.Elements {
		if s == selector {
			return true
		}
	}
	return false
}

func (p *Page) Fill(_ context.Context, selectors []string, value string) (string, error) {
	for _, sel := range selectors {
		if p.has(sel) {
			p.filled[sel] = value
			return sel, nil
		}
	}
	return "", browser.ErrNoElement
}

func (p *Page) Submit(ctx context.Context, _ []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.driver.Site.OnSubmit != nil {
		return p.Navigate(ctx, p.driver.Site.OnSubmit(p.filled))
	}
	return nil
}

func (p *Page) Settle(ctx context.Context) error { return ctx.Err() }

func (p *Page) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	p.driver.mu.Lock()
	p.driver.open--
	p.driver.mu.Unlock()
	return nil
}
