// Package extract pulls supplier records out of directory search pages.
//
// Pages are run through an ordered Chain of strategies: structured data
// first, then repeated listing markup, then a bare scan of profile links.
// The first strategy that yields anything wins.
package extract

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/strategicvalueplus/scout/internal/supplier"
)

// DefaultLimit caps the records returned from one page.
const DefaultLimit = 25

// Strategy extracts records from a parsed document. base is the page URL used
// to resolve relative links.
type Strategy interface {
	Name() string
	Extract(doc *goquery.Document, base *url.URL) []supplier.Record
}

// Outcome is the result of running a Chain.
type Outcome struct {
	Records []supplier.Record
	// Strategy names the strategy that produced Records, or "" if none did.
	Strategy string
	// Total is the result count advertised by the page, 0 when unknown.
	Total int
}

// Chain runs strategies in order and stops at the first non-empty result.
type Chain struct {
	Strategies []Strategy
	Limit      int
}

// NewChain returns a chain capped at limit records. A limit <= 0 uses
// DefaultLimit.
func NewChain(limit int, strategies ...Strategy) *Chain {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Chain{Strategies: strategies, Limit: limit}
}

// Default builds the standard JSON-LD, cards, links chain for a directory
// whose supplier profiles live under profilePath.
func Default(limit int, profilePath string) *Chain {
	return NewChain(limit,
		JSONLD{},
		Cards{ProfilePath: profilePath},
		Links{ProfilePath: profilePath},
	)
}

// Run parses html and runs the chain against it.
func (c *Chain) Run(html []byte, baseURL string) (Outcome, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return Outcome{}, fmt.Errorf("parse base url: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return Outcome{}, fmt.Errorf("parse html: %w", err)
	}
	return c.RunDocument(doc, base), nil
}

// RunDocument runs the chain against an already parsed document.
func (c *Chain) RunDocument(doc *goquery.Document, base *url.URL) Outcome {
	out := Outcome{Records: []supplier.Record{}, Total: TotalResults(doc)}
	for _, s := range c.Strategies {
		recs := usable(s.Extract(doc, base))
		if len(recs) == 0 {
			continue
		}
		if len(recs) > c.Limit {
			recs = recs[:c.Limit]
		}
		out.Records = recs
		out.Strategy = s.Name()
		break
	}
	return out
}

// usable drops records without a name and fills City/State from Location.
func usable(recs []supplier.Record) []supplier.Record {
	kept := recs[:0]
	for _, r := range recs {
		r.CompanyName = collapse(r.CompanyName)
		if r.Validate() != nil {
			continue
		}
		if r.Location != "" && r.City == "" && r.State == "" {
			r.City, r.State = supplier.SplitLocation(r.Location)
		}
		kept = append(kept, r)
	}
	return kept
}

// resolve turns href into an absolute URL against base. Unparseable or
// non-http(s) links return "".
func resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	u.Fragment = ""
	return u.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
