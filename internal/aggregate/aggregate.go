// Package aggregate fans a search out to every configured source, isolates
// per-source failures and merges the records into one deduplicated list.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/strategicvalueplus/scout/internal/match"
	"github.com/strategicvalueplus/scout/internal/metrics"
	"github.com/strategicvalueplus/scout/internal/source"
	"github.com/strategicvalueplus/scout/internal/storage"
	"github.com/strategicvalueplus/scout/internal/supplier"
)

// DefaultMaxResultsPerSource caps how many records each source contributes.
const DefaultMaxResultsPerSource = 25

// storeTimeout bounds writes to the audit log after a search.
const storeTimeout = 5 * time.Second

// Config configures an Aggregator.
type Config struct {
	// Scrapers are searched concurrently and merged in this order.
	Scrapers            []source.Scraper
	MaxResultsPerSource int
	// Matcher decides whether two records are the same company. Nil uses
	// match.Exact.
	Matcher match.Matcher
	// Timeout bounds the whole fan-out. Zero means no deadline beyond the
	// scrapers' own.
	Timeout time.Duration
	// Storage, when set, receives one SearchRun per source per search.
	Storage storage.Backend
	Logger  *slog.Logger
}

// Aggregator searches all sources and merges their results.
type Aggregator struct {
	scrapers   []source.Scraper
	maxResults int
	matcher    match.Matcher
	timeout    time.Duration
	store      storage.Backend
	logger     *slog.Logger
}

// New validates cfg and builds an Aggregator.
func New(cfg Config) (*Aggregator, error) {
	if len(cfg.Scrapers) == 0 {
		return nil, errors.New("aggregate: at least one scraper is required")
	}
	seen := make(map[supplier.Source]bool, len(cfg.Scrapers))
	for _, s := range cfg.Scrapers {
		if s == nil {
			return nil, errors.New("aggregate: nil scraper")
		}
		if seen[s.Name()] {
			return nil, fmt.Errorf("aggregate: duplicate source %q", s.Name())
		}
		seen[s.Name()] = true
	}
	if cfg.MaxResultsPerSource <= 0 {
		cfg.MaxResultsPerSource = DefaultMaxResultsPerSource
	}
	if cfg.Matcher == nil {
		cfg.Matcher = match.Exact{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Aggregator{
		scrapers:   cfg.Scrapers,
		maxResults: cfg.MaxResultsPerSource,
		matcher:    cfg.Matcher,
		timeout:    cfg.Timeout,
		store:      cfg.Storage,
		logger:     cfg.Logger,
	}, nil
}

// Sources lists the configured sources in merge order.
func (a *Aggregator) Sources() []supplier.Source {
	out := make([]supplier.Source, len(a.scrapers))
	for i, s := range a.scrapers {
		out[i] = s.Name()
	}
	return out
}

// Search queries every source concurrently and returns once all of them
// have finished. A source that fails, errors or panics is reported in
// Sources with Success=false and contributes no records; the others are
// unaffected.
func (a *Aggregator) Search(ctx context.Context, c supplier.Criteria) *supplier.Aggregated {
	requestID := uuid.NewString()
	searchCtx := ctx
	if a.timeout > 0 {
		var cancel context.CancelFunc
		searchCtx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	// Each goroutine owns one slot; nothing else is shared.
	results := make([]*supplier.SourceResult, len(a.scrapers))
	var g errgroup.Group
	for i, s := range a.scrapers {
		g.Go(func() error {
			results[i] = a.searchOne(searchCtx, s, c)
			return nil
		})
	}
	_ = g.Wait()

	out := &supplier.Aggregated{
		Suppliers: []supplier.Record{},
		Sources:   make(map[string]supplier.SourceStatus, len(a.scrapers)),
	}
	for i, s := range a.scrapers {
		res := results[i]
		if len(res.Suppliers) > a.maxResults {
			res.Suppliers = res.Suppliers[:a.maxResults]
		}
		out.TotalResults += res.TotalResults
		if len(res.Suppliers) > 0 {
			out.IsLiveData = true
		}
		out.Sources[string(s.Name())] = supplier.SourceStatus{
			Count:         len(res.Suppliers),
			Total:         res.TotalResults,
			Success:       res.Error == "",
			Error:         res.Error,
			Authenticated: res.Authenticated,
		}
	}

	merged, collisions := Merge(a.matcher, results...)
	out.Suppliers = merged
	metrics.MergeCollisionsTotal.Add(float64(collisions))

	a.record(ctx, requestID, c, results)
	a.logger.Info("aggregated search",
		"request_id", requestID,
		"keywords", c.Keywords,
		"location", c.Location,
		"suppliers", len(out.Suppliers),
		"total", out.TotalResults,
		"collisions", collisions,
	)
	return out
}

// searchOne runs one scraper and converts every kind of failure into a
// failed SourceResult.
func (a *Aggregator) searchOne(ctx context.Context, s source.Scraper, c supplier.Criteria) (res *supplier.SourceResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("source panicked", "source", s.Name(), "panic", r)
			res = supplier.Failed(fmt.Errorf("panic: %v", r))
		}
		if res.Duration == 0 {
			res.Duration = time.Since(start)
		}
		metrics.RecordSource(string(s.Name()), res.Error == "", len(res.Suppliers), res.Duration)
	}()

	res, err := s.Search(ctx, c)
	switch {
	case err != nil:
		a.logger.Warn("source failed", "source", s.Name(), "err", err)
		return supplier.Failed(err)
	case res == nil:
		return supplier.Failed(errors.New("source returned no result"))
	}
	if res.Suppliers == nil {
		res.Suppliers = []supplier.Record{}
	}
	if res.Error != "" {
		a.logger.Warn("source failed", "source", s.Name(), "err", res.Error)
	}
	return res
}

func (a *Aggregator) record(ctx context.Context, requestID string, c supplier.Criteria, results []*supplier.SourceResult) {
	if a.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
	defer cancel()

	now := time.Now().UTC()
	for i, s := range a.scrapers {
		res := results[i]
		run := &storage.SearchRun{
			ID:            uuid.NewString(),
			RequestID:     requestID,
			Source:        string(s.Name()),
			Keywords:      c.Keywords,
			Location:      c.Location,
			Count:         len(res.Suppliers),
			Total:         res.TotalResults,
			Success:       res.Error == "",
			Authenticated: res.Authenticated,
			Duration:      res.Duration,
			CreatedAt:     now,
			Error:         res.Error,
		}
		if err := a.store.Save(ctx, run); err != nil {
			a.logger.Warn("failed to record search run", "source", s.Name(), "err", err)
		}
	}
}
