package aggregate

import (
	"fmt"
	"slices"

	"github.com/strategicvalueplus/scout/internal/match"
	"github.com/strategicvalueplus/scout/internal/supplier"
)

// Merge combines the records of results, in order, into one list. Records
// that m judges to be the same company collapse into the first one seen:
// its empty fields are filled from later records, per-source URLs are
// carried over, and Source becomes "both" when the records came from
// different directories. Nameless records are dropped. Ids are reassigned
// as agg-1, agg-2, ... The second return value counts collapsed records.
func Merge(m match.Matcher, results ...*supplier.SourceResult) ([]supplier.Record, int) {
	if m == nil {
		m = match.Exact{}
	}
	keyer, _ := m.(match.Keyer)

	merged := []supplier.Record{}
	index := make(map[string]int)
	collisions := 0

	for _, res := range results {
		if res == nil {
			continue
		}
		for _, r := range res.Suppliers {
			if r.Validate() != nil {
				continue
			}
			r = clone(r)
			fillSourceURL(&r)

			j := -1
			if keyer != nil {
				// Names with no usable key are kept but never merged.
				if key := keyer.Key(r.CompanyName); key != "" {
					if k, ok := index[key]; ok {
						j = k
					} else {
						index[key] = len(merged)
					}
				}
			} else {
				j = slices.IndexFunc(merged, func(e supplier.Record) bool {
					return m.Match(e.CompanyName, r.CompanyName)
				})
			}

			if j < 0 {
				merged = append(merged, r)
				continue
			}
			collisions++
			combine(&merged[j], r)
		}
	}

	for i := range merged {
		merged[i].ID = fmt.Sprintf("agg-%d", i+1)
	}
	return merged, collisions
}

// combine folds src into dst. dst keeps every non-empty value it has.
func combine(dst *supplier.Record, src supplier.Record) {
	fill := func(d *string, s string) {
		if *d == "" {
			*d = s
		}
	}
	fill(&dst.Description, src.Description)
	fill(&dst.Location, src.Location)
	fill(&dst.City, src.City)
	fill(&dst.State, src.State)
	fill(&dst.Phone, src.Phone)
	fill(&dst.Website, src.Website)
	fill(&dst.SourceURL, src.SourceURL)
	fill(&dst.ThomasNetURL, src.ThomasNetURL)
	fill(&dst.ConnexURL, src.ConnexURL)

	if len(dst.Categories) == 0 {
		dst.Categories = src.Categories
	}
	if len(dst.Certifications) == 0 {
		dst.Certifications = src.Certifications
	}
	if dst.Source != src.Source {
		dst.Source = supplier.SourceBoth
	}
}

func fillSourceURL(r *supplier.Record) {
	switch r.Source {
	case supplier.SourceThomasNet:
		if r.ThomasNetURL == "" {
			r.ThomasNetURL = r.SourceURL
		}
	case supplier.SourceConnex:
		if r.ConnexURL == "" {
			r.ConnexURL = r.SourceURL
		}
	}
}

// clone copies r so merging never writes through to a source's slices.
func clone(r supplier.Record) supplier.Record {
	r.Categories = append([]string{}, r.Categories...)
	r.Certifications = append([]string{}, r.Certifications...)
	return r
}
