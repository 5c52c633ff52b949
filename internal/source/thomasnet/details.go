package thomasnet

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/strategicvalueplus/scout/internal/extract"
)

// ErrInvalidProfileURL is returned by Details for URLs that are malformed or
// point outside the configured ThomasNet site.
var ErrInvalidProfileURL = errors.New("thomasnet: invalid profile url")

// Details is the contact information found on a supplier profile page.
type Details struct {
	Phone       string `json:"phone,omitempty"`
	Website     string `json:"website,omitempty"`
	Description string `json:"description,omitempty"`
}

// Empty reports whether nothing was found.
func (d *Details) Empty() bool {
	return d.Phone == "" && d.Website == "" && d.Description == ""
}

// Details loads a supplier profile page and pulls its contact details.
// Structured data is preferred; tel: links, outbound website links and the
// meta description fill whatever it lacks.
func (s *Scraper) Details(ctx context.Context, profileURL string) (*Details, error) {
	u, err := url.Parse(strings.TrimSpace(profileURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w %q", ErrInvalidProfileURL, profileURL)
	}
	if !onSite(s.base, u) {
		return nil, fmt.Errorf("%w %q: host is not %s", ErrInvalidProfileURL, profileURL, s.base.Host)
	}

	var html []byte
	if s.fetcher != nil {
		html, err = s.fetch(ctx, u.String())
	} else {
		html, err = s.render(ctx, u.String())
	}
	if err != nil {
		return nil, fmt.Errorf("thomasnet: load profile: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("thomasnet: parse profile: %w", err)
	}
	return parseDetails(doc, u), nil
}

// onSite compares hosts with any leading "www." removed.
func onSite(base, u *url.URL) bool {
	trim := func(h string) string { return strings.TrimPrefix(strings.ToLower(h), "www.") }
	return trim(u.Host) == trim(base.Host)
}

func parseDetails(doc *goquery.Document, base *url.URL) *Details {
	d := &Details{}
	for _, r := range (extract.JSONLD{}).Extract(doc, base) {
		if d.Phone == "" {
			d.Phone = r.Phone
		}
		if d.Website == "" {
			d.Website = r.Website
		}
		if d.Description == "" {
			d.Description = r.Description
		}
	}

	if d.Phone == "" {
		if href, ok := doc.Find(`a[href^="tel:"]`).First().Attr("href"); ok {
			d.Phone = strings.TrimSpace(strings.TrimPrefix(href, "tel:"))
		}
	}
	if d.Website == "" {
		doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
			label := strings.ToLower(a.Text() + " " + a.AttrOr("class", "") + " " + a.AttrOr("data-test", ""))
			if !strings.Contains(label, "website") {
				return true
			}
			w, err := base.Parse(a.AttrOr("href", ""))
			if err != nil || w.Host == "" || strings.EqualFold(w.Host, base.Host) {
				return true
			}
			d.Website = w.String()
			return false
		})
	}
	if d.Description == "" {
		for _, sel := range []string{`meta[name="description"]`, `meta[property="og:description"]`} {
			if c := strings.TrimSpace(doc.Find(sel).AttrOr("content", "")); c != "" {
				d.Description = strings.Join(strings.Fields(c), " ")
				break
			}
		}
	}
	return d
}
