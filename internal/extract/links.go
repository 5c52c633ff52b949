package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/strategicvalueplus/scout/internal/supplier"
)

// genericAnchors are link labels that never name a company.
var genericAnchors = map[string]bool{
	"view profile": true,
	"profile":      true,
	"details":      true,
	"more":         true,
	"learn more":   true,
	"read more":    true,
	"contact":      true,
}

// Links is the last-resort strategy: every anchor pointing at a profile page
// becomes a record holding just the link text and URL.
type Links struct {
	ProfilePath string
}

// Name implements Strategy.
func (Links) Name() string { return "links" }

// Extract implements Strategy.
func (l Links) Extract(doc *goquery.Document, base *url.URL) []supplier.Record {
	if l.ProfilePath == "" {
		return nil
	}
	var recs []supplier.Record
	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if !strings.Contains(href, l.ProfilePath) {
			return
		}
		u := resolve(base, href)
		if u == "" || seen[u] {
			return
		}
		name := collapse(a.Text())
		if name == "" {
			name = collapse(a.AttrOr("title", ""))
		}
		if len(name) < 2 || genericAnchors[strings.ToLower(name)] {
			return
		}
		seen[u] = true
		recs = append(recs, supplier.Record{CompanyName: name, SourceURL: u})
	})
	return recs
}
