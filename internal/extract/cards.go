package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/strategicvalueplus/scout/internal/supplier"
)

// DefaultCardSelectors match the listing blocks directory sites commonly use.
var DefaultCardSelectors = []string{
	`[class*="supplier-card"]`,
	`[class*="company-card"]`,
	`[class*="profile-card"]`,
	`[class*="search-result"]`,
	`[class*="result-item"]`,
	`[class*="listing"]`,
}

// Field selectors in priority order.
var (
	nameSelectors     = []string{`[class*="company-name"]`, `[class*="supplier-name"]`, "h2", "h3", "h4", `[class*="name"]`, `[class*="title"]`}
	descSelectors     = []string{`[class*="desc"]`, `[class*="summary"]`, "p"}
	locationSelectors = []string{`[class*="location"]`, `[class*="address"]`, "address"}
)

const (
	phoneSelector    = `[class*="phone"]`
	categorySelector = `[class*="categor"] li, [class*="categor"] a, [class*="tag"]`
	certSelector     = `[class*="cert"] li, [class*="cert"]`
)

// Cards extracts one record per repeated listing block. Selectors are tried in
// order and the first one producing records is used.
type Cards struct {
	Selectors []string
	// ProfilePath identifies links to the directory's own profile pages.
	ProfilePath string
}

// Name implements Strategy.
func (Cards) Name() string { return "cards" }

// Extract implements Strategy.
func (c Cards) Extract(doc *goquery.Document, base *url.URL) []supplier.Record {
	selectors := c.Selectors
	if len(selectors) == 0 {
		selectors = DefaultCardSelectors
	}
	for _, sel := range selectors {
		var recs []supplier.Record
		doc.Find(sel).Each(func(_ int, card *goquery.Selection) {
			// Skip wrappers around other matching blocks.
			if card.Find(sel).Length() > 0 {
				return
			}
			if r, ok := c.card(card, base); ok {
				recs = append(recs, r)
			}
		})
		if len(recs) > 0 {
			return recs
		}
	}
	return nil
}

func (c Cards) card(card *goquery.Selection, base *url.URL) (supplier.Record, bool) {
	var r supplier.Record

	nameSel := firstOf(card, nameSelectors)
	r.CompanyName = collapse(nameSel.Text())
	if r.CompanyName == "" {
		return r, false
	}

	// Profile link: prefer one pointing at a profile page, then the heading link.
	card.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if c.ProfilePath != "" && strings.Contains(href, c.ProfilePath) {
			r.SourceURL = resolve(base, href)
			return false
		}
		return true
	})
	if r.SourceURL == "" {
		href, _ := nameSel.Find("a[href]").Attr("href")
		if href == "" {
			href, _ = nameSel.Closest("a[href]").Attr("href")
		}
		r.SourceURL = resolve(base, href)
	}

	r.Location = collapse(firstOf(card, locationSelectors).Text())
	for _, sel := range descSelectors {
		d := card.Find(sel).FilterFunction(func(_ int, s *goquery.Selection) bool {
			t := collapse(s.Text())
			return t != "" && t != r.CompanyName && t != r.Location
		}).First()
		if d.Length() > 0 {
			r.Description = collapse(d.Text())
			break
		}
	}

	if tel, ok := card.Find(`a[href^="tel:"]`).Attr("href"); ok {
		r.Phone = strings.TrimSpace(strings.TrimPrefix(tel, "tel:"))
	} else {
		r.Phone = collapse(card.Find(phoneSelector).First().Text())
	}

	card.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		cls, _ := a.Attr("class")
		label := strings.ToLower(a.Text())
		if !strings.Contains(strings.ToLower(cls), "website") && !strings.Contains(label, "website") {
			return true
		}
		if u := resolve(base, href); u != "" && !sameHost(base, u) {
			r.Website = u
			return false
		}
		return true
	})

	r.Categories = texts(card.Find(categorySelector))
	r.Certifications = texts(card.Find(certSelector).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Find("li").Length() == 0
	}))
	return r, true
}

// firstOf returns the first non-empty match of the highest priority selector.
func firstOf(s *goquery.Selection, selectors []string) *goquery.Selection {
	for _, sel := range selectors {
		m := s.Find(sel).FilterFunction(func(_ int, el *goquery.Selection) bool {
			return collapse(el.Text()) != ""
		}).First()
		if m.Length() > 0 {
			return m
		}
	}
	return s.Slice(0, 0)
}

// texts returns the distinct non-empty texts of a selection.
func texts(s *goquery.Selection) []string {
	var out []string
	seen := make(map[string]bool)
	s.Each(func(_ int, el *goquery.Selection) {
		t := collapse(el.Text())
		if t == "" || seen[t] {
			return
		}
		seen[t] = true
		out = append(out, t)
	})
	return out
}
