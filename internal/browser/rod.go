package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

type rodInstance struct {
	cfg     Config
	browser *rod.Browser
	lnch    *launcher.Launcher
}

func launchRod(ctx context.Context, cfg Config) (instance, error) {
	inst := &rodInstance{cfg: cfg}

	wsURL := cfg.RemoteURL
	if wsURL == "" {
		l := launcher.New().
			Context(ctx).
			Headless(!cfg.Headful).
			Set("disable-blink-features", "AutomationControlled")

		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		inst.lnch = l
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		if inst.lnch != nil {
			inst.lnch.Cleanup()
		}
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	inst.browser = b
	return inst, nil
}

func (r *rodInstance) newPage(ctx context.Context) (Page, error) {
	page, err := stealth.Page(r.browser)
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}
	if r.cfg.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: r.cfg.UserAgent}); err != nil {
			r.cfg.Logger.Warn("browser: set user agent failed", "err", err)
		}
	}
	return &rodPage{page: page, cfg: r.cfg}, nil
}

func (r *rodInstance) close() error {
	err := r.browser.Close()
	if r.lnch != nil {
		r.lnch.Cleanup()
	}
	return err
}

// rodPage adapts a rod page to Page.
type rodPage struct {
	page *rod.Page
	cfg  Config
}

func (p *rodPage) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, p.cfg.NavigationTimeout)
	defer cancel()

	pg := p.page.Context(navCtx)
	if err := pg.Navigate(url); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", url, err)
	}
	if err := pg.WaitLoad(); err != nil {
		p.cfg.Logger.Warn("browser: wait load timeout", "url", url, "err", err)
	}
	return nil
}

func (p *rodPage) URL() string {
	info, err := p.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (p *rodPage) HTML(ctx context.Context) (string, error) {
	html, err := p.page.Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("browser: get html: %w", err)
	}
	return html, nil
}

// find returns the first element matching one of selectors, without waiting.
func (p *rodPage) find(ctx context.Context, selectors []string) (*rod.Element, string, error) {
	pg := p.page.Context(ctx)
	for _, sel := range selectors {
		has, el, err := pg.Has(sel)
		if err != nil {
			return nil, "", fmt.Errorf("browser: query %s: %w", sel, err)
		}
		if has {
			return el, sel, nil
		}
	}
	return nil, "", ErrNoElement
}

func (p *rodPage) Fill(ctx context.Context, selectors []string, value string) (string, error) {
	el, sel, err := p.find(ctx, selectors)
	if err != nil {
		return "", err
	}
	if err := el.SelectAllText(); err != nil {
		return "", fmt.Errorf("browser: select %s: %w", sel, err)
	}
	if err := el.Input(value); err != nil {
		return "", fmt.Errorf("browser: input %s: %w", sel, err)
	}
	return sel, nil
}

func (p *rodPage) Submit(ctx context.Context, selectors []string) error {
	navCtx, cancel := context.WithTimeout(ctx, p.cfg.NavigationTimeout)
	defer cancel()

	pg := p.page.Context(navCtx)
	wait := pg.WaitNavigation(proto.PageLifecycleEventNameNetworkAlmostIdle)

	el, _, err := p.find(navCtx, selectors)
	switch {
	case err == nil:
		if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
			return fmt.Errorf("browser: click submit: %w", err)
		}
	case errors.Is(err, ErrNoElement):
		if err := pg.Keyboard.Press(input.Enter); err != nil {
			return fmt.Errorf("browser: press enter: %w", err)
		}
	default:
		return err
	}

	wait()
	return navCtx.Err()
}

func (p *rodPage) Settle(ctx context.Context) error {
	if p.cfg.SettleDelay <= 0 {
		return nil
	}
	t := time.NewTimer(p.cfg.SettleDelay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *rodPage) Close() error {
	return p.page.Close()
}
