// Package supplier defines the supplier records, search criteria and
// per-source results shared across scout.
package supplier

import (
	"errors"
	"strings"
	"time"
)

// Source identifies the directory a record was discovered in.
type Source string

const (
	SourceThomasNet Source = "thomasnet"
	SourceConnex    Source = "connex"
	// SourceBoth marks a record that was matched in more than one directory.
	SourceBoth Source = "both"
)

// ErrNoName is returned by Validate for records without a usable company name.
var ErrNoName = errors.New("supplier: company name is required")

// Record is one candidate supplier. It only lives for the duration of a
// single search request.
type Record struct {
	ID             string   `json:"id"`
	CompanyName    string   `json:"companyName"`
	Description    string   `json:"description,omitempty"`
	Location       string   `json:"location,omitempty"`
	City           string   `json:"city,omitempty"`
	State          string   `json:"state,omitempty"`
	Phone          string   `json:"phone,omitempty"`
	Website        string   `json:"website,omitempty"`
	Categories     []string `json:"categories"`
	Certifications []string `json:"certifications"`
	SourceURL      string   `json:"sourceUrl,omitempty"`
	ThomasNetURL   string   `json:"thomasnetUrl,omitempty"`
	ConnexURL      string   `json:"connexUrl,omitempty"`
	Source         Source   `json:"source"`
}

// Validate reports whether the record can be returned to callers.
func (r *Record) Validate() error {
	if strings.TrimSpace(r.CompanyName) == "" {
		return ErrNoName
	}
	return nil
}

// Criteria is the structured form of a search.
type Criteria struct {
	Keywords string `json:"keywords"`
	Location string `json:"location,omitempty"`
	Category string `json:"category,omitempty"`
}

// SourceResult is the outcome of one directory search. Scrapers report
// failures through Error rather than returning Go errors.
type SourceResult struct {
	Suppliers     []Record      `json:"suppliers"`
	TotalResults  int           `json:"totalResults"`
	IsLiveData    bool          `json:"isLiveData"`
	Authenticated *bool         `json:"isAuthenticated,omitempty"`
	Error         string        `json:"error,omitempty"`
	Duration      time.Duration `json:"-"`
}

// Failed builds the empty result returned when a source could not be searched.
func Failed(err error) *SourceResult {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return &SourceResult{
		Suppliers: []Record{},
		Error:     msg,
	}
}

// SourceStatus summarises one source inside an Aggregated result.
type SourceStatus struct {
	Count         int    `json:"count"`
	Total         int    `json:"total"`
	Success       bool   `json:"success"`
	Error         string `json:"error,omitempty"`
	Authenticated *bool  `json:"authenticated,omitempty"`
}

// Aggregated is the merged result across all configured sources.
//
// IsLiveData is true iff at least one source returned a record. TotalResults
// is the sum of the totals each source reported, not len(Suppliers).
type Aggregated struct {
	Suppliers    []Record                `json:"suppliers"`
	TotalResults int                     `json:"totalResults"`
	Sources      map[string]SourceStatus `json:"sources"`
	IsLiveData   bool                    `json:"isLiveData"`
}

// Bool returns a pointer to b, for the optional Authenticated fields.
func Bool(b bool) *bool {
	return &b
}

// SplitLocation splits "City, ST" style strings. Anything without a comma is
// returned as the city.
func SplitLocation(loc string) (city, state string) {
	loc = strings.TrimSpace(loc)
	if loc == "" {
		return "", ""
	}
	idx := strings.LastIndex(loc, ",")
	if idx < 0 {
		return loc, ""
	}
	city = strings.TrimSpace(loc[:idx])
	state = strings.TrimSpace(loc[idx+1:])
	// Drop a trailing ZIP code ("OH 44101").
	if fields := strings.Fields(state); len(fields) > 1 {
		state = fields[0]
	}
	return city, state
}
