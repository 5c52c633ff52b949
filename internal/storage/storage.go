// Package storage records one SearchRun per source per search so operators
// can audit how each directory is behaving. Supplier records themselves are
// never stored.
package storage

import (
	"context"
	"time"
)

// SearchRun is the outcome of one source scrape within a search.
type SearchRun struct {
	ID string `json:"id"`
	// RequestID groups the runs of one aggregated search.
	RequestID     string        `json:"request_id"`
	Source        string        `json:"source"`
	Keywords      string        `json:"keywords"`
	Location      string        `json:"location,omitempty"`
	Count         int           `json:"count"`
	Total         int           `json:"total"`
	Success       bool          `json:"success"`
	Authenticated *bool         `json:"authenticated,omitempty"`
	Duration      time.Duration `json:"duration_ns"`
	CreatedAt     time.Time     `json:"created_at"`
	Error         string        `json:"error,omitempty"` // non-empty if the source failed
}

// Filter selects SearchRuns. Zero fields match everything.
type Filter struct {
	Source  string
	Success *bool
	Since   *time.Time
	Limit   int
	Offset  int
}

// Match reports whether run passes f, ignoring Limit and Offset. Backends
// that cannot filter in a query language use it.
func (f Filter) Match(run *SearchRun) bool {
	if f.Source != "" && run.Source != f.Source {
		return false
	}
	if f.Success != nil && run.Success != *f.Success {
		return false
	}
	if f.Since != nil && run.CreatedAt.Before(*f.Since) {
		return false
	}
	return true
}

// Page applies Offset and Limit to runs.
func (f Filter) Page(runs []*SearchRun) []*SearchRun {
	if f.Offset > 0 {
		if f.Offset >= len(runs) {
			return nil
		}
		runs = runs[f.Offset:]
	}
	if f.Limit > 0 && len(runs) > f.Limit {
		runs = runs[:f.Limit]
	}
	return runs
}

// Backend defines the interface for storing and querying search runs.
type Backend interface {
	Save(ctx context.Context, run *SearchRun) error
	// Query returns matching runs, newest first.
	Query(ctx context.Context, filter Filter) ([]*SearchRun, error)
	Close() error
}
