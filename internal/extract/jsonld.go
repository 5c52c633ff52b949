package extract

import (
	"html"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"github.com/tidwall/gjson"

	"github.com/strategicvalueplus/scout/internal/supplier"
)

// businessTypes are the schema.org types treated as suppliers.
var businessTypes = map[string]bool{
	"LocalBusiness": true,
	"Organization":  true,
	"Corporation":   true,
	"Manufacturer":  true,
	"Store":         true,
}

var textPolicy = bluemonday.StrictPolicy()

// JSONLD reads schema.org LocalBusiness and Organization entries from
// application/ld+json blocks. Entries may appear at the top level, inside an
// array, under @graph or as ItemList elements.
type JSONLD struct{}

// Name implements Strategy.
func (JSONLD) Name() string { return "jsonld" }

// Extract implements Strategy.
func (JSONLD) Extract(doc *goquery.Document, base *url.URL) []supplier.Record {
	var recs []supplier.Record
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Text())
		if raw == "" || !gjson.Valid(raw) {
			return
		}
		walkLD(gjson.Parse(raw), base, &recs, 0)
	})
	return recs
}

func walkLD(v gjson.Result, base *url.URL, out *[]supplier.Record, depth int) {
	if depth > 4 {
		return
	}
	switch {
	case v.IsArray():
		v.ForEach(func(_, el gjson.Result) bool {
			walkLD(el, base, out, depth+1)
			return true
		})
		return
	case !v.IsObject():
		return
	}

	if graph := v.Get("@graph"); graph.Exists() {
		walkLD(graph, base, out, depth+1)
	}
	if hasType(v, "ItemList") {
		v.Get("itemListElement").ForEach(func(_, el gjson.Result) bool {
			if item := el.Get("item"); item.IsObject() {
				walkLD(item, base, out, depth+1)
			} else {
				walkLD(el, base, out, depth+1)
			}
			return true
		})
		return
	}
	if isBusiness(v) {
		*out = append(*out, ldRecord(v, base))
	}
}

func hasType(v gjson.Result, name string) bool {
	t := v.Get("@type")
	if t.IsArray() {
		for _, el := range t.Array() {
			if el.String() == name {
				return true
			}
		}
		return false
	}
	return t.String() == name
}

func isBusiness(v gjson.Result) bool {
	t := v.Get("@type")
	if t.IsArray() {
		for _, el := range t.Array() {
			if businessTypes[el.String()] {
				return true
			}
		}
		return false
	}
	return businessTypes[t.String()]
}

func ldRecord(v gjson.Result, base *url.URL) supplier.Record {
	r := supplier.Record{
		CompanyName: sanitize(v.Get("name").String()),
		Description: sanitize(v.Get("description").String()),
		Phone:       strings.TrimSpace(v.Get("telephone").String()),
		SourceURL:   resolve(base, v.Get("url").String()),
	}

	addr := v.Get("address")
	if addr.IsArray() {
		addr = addr.Get("0")
	}
	if addr.IsObject() {
		r.City = sanitize(addr.Get("addressLocality").String())
		r.State = sanitize(addr.Get("addressRegion").String())
		switch {
		case r.City != "" && r.State != "":
			r.Location = r.City + ", " + r.State
		default:
			r.Location = r.City + r.State
		}
	} else {
		r.Location = sanitize(addr.String())
	}

	// sameAs usually points at the company's own site.
	if same := v.Get("sameAs"); same.Exists() {
		first := same
		if same.IsArray() {
			first = same.Get("0")
		}
		r.Website = resolve(nil, first.String())
	}
	if r.Website == "" && !sameHost(base, r.SourceURL) {
		r.Website = r.SourceURL
	}

	for _, k := range []string{"knowsAbout", "keywords"} {
		r.Categories = appendStrings(r.Categories, v.Get(k))
	}
	r.Certifications = appendStrings(r.Certifications, v.Get("hasCredential.#.name"))
	return r
}

// appendStrings adds the string values of v, which may be a string, a
// comma-separated string or an array.
func appendStrings(dst []string, v gjson.Result) []string {
	if !v.Exists() {
		return dst
	}
	if v.IsArray() {
		for _, el := range v.Array() {
			if s := sanitize(el.String()); s != "" {
				dst = append(dst, s)
			}
		}
		return dst
	}
	for _, part := range strings.Split(v.String(), ",") {
		if s := sanitize(part); s != "" {
			dst = append(dst, s)
		}
	}
	return dst
}

// sanitize strips markup from text taken out of structured data.
func sanitize(s string) string {
	if s == "" {
		return ""
	}
	return collapse(html.UnescapeString(textPolicy.Sanitize(s)))
}

func sameHost(base *url.URL, raw string) bool {
	if base == nil || raw == "" {
		return true
	}
	u, err := url.Parse(raw)
	if err != nil {
		return true
	}
	return strings.EqualFold(strings.TrimPrefix(u.Host, "www."), strings.TrimPrefix(base.Host, "www."))
}
