// Package source defines the interface implemented by each supplier
// directory scraper.
package source

import (
	"context"
	"fmt"

	"github.com/strategicvalueplus/scout/internal/supplier"
)

// Scraper searches one external directory.
//
// Implementations report network, page and login failures in
// SourceResult.Error and return a nil error; a non-nil error is reserved for
// programming mistakes and is treated by callers like any other failure.
type Scraper interface {
	Name() supplier.Source
	Search(ctx context.Context, c supplier.Criteria) (*supplier.SourceResult, error)
}

// Label stamps records extracted from src with their source, a per-source
// id ("thomasnet-1", ...) and the matching per-source URL field. Nil slices
// are replaced with empty ones so they encode as [].
func Label(recs []supplier.Record, src supplier.Source) []supplier.Record {
	for i := range recs {
		r := &recs[i]
		r.ID = fmt.Sprintf("%s-%d", src, i+1)
		r.Source = src
		switch src {
		case supplier.SourceThomasNet:
			r.ThomasNetURL = r.SourceURL
		case supplier.SourceConnex:
			r.ConnexURL = r.SourceURL
		}
		if r.Categories == nil {
			r.Categories = []string{}
		}
		if r.Certifications == nil {
			r.Certifications = []string{}
		}
	}
	return recs
}

// Result builds a successful SourceResult. total is the count the directory
// advertised; when it is unknown or smaller than what was extracted,
// len(recs) is used.
func Result(recs []supplier.Record, total int) *supplier.SourceResult {
	if recs == nil {
		recs = []supplier.Record{}
	}
	if total < len(recs) {
		total = len(recs)
	}
	return &supplier.SourceResult{
		Suppliers:    recs,
		TotalResults: total,
		IsLiveData:   len(recs) > 0,
	}
}
