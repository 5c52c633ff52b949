package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/strategicvalueplus/scout/internal/source"
	"github.com/strategicvalueplus/scout/internal/supplier"
)

// Scraper wraps a source.Scraper and serves repeated searches from a Store.
// Only successful, non-empty results are cached.
type Scraper struct {
	next   source.Scraper
	store  Store
	ttl    time.Duration
	logger *slog.Logger
}

var _ source.Scraper = (*Scraper)(nil)

// Wrap decorates next with store. A nil store returns next unchanged.
func Wrap(next source.Scraper, store Store, ttl time.Duration, logger *slog.Logger) source.Scraper {
	if store == nil {
		return next
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scraper{next: next, store: store, ttl: ttl, logger: logger}
}

// Key is the cache key for a search of src.
func Key(src supplier.Source, c supplier.Criteria) string {
	norm := func(s string) string { return strings.ToLower(strings.Join(strings.Fields(s), " ")) }
	return fmt.Sprintf("scout:%s:%s|%s|%s", src, norm(c.Keywords), norm(c.Location), norm(c.Category))
}

// Name implements source.Scraper.
func (s *Scraper) Name() supplier.Source { return s.next.Name() }

// Search implements source.Scraper. Store failures are logged and the
// search goes to the wrapped scraper.
func (s *Scraper) Search(ctx context.Context, c supplier.Criteria) (*supplier.SourceResult, error) {
	key := Key(s.next.Name(), c)

	b, err := s.store.Get(ctx, key)
	switch {
	case err == nil:
		var res supplier.SourceResult
		if err := json.Unmarshal(b, &res); err == nil {
			s.logger.Debug("cache hit", "key", key)
			return &res, nil
		}
		s.logger.Warn("discarding corrupt cache entry", "key", key)
	case !errors.Is(err, ErrMiss):
		s.logger.Warn("cache read failed", "key", key, "err", err)
	}

	res, err := s.next.Search(ctx, c)
	if err != nil || res == nil || res.Error != "" || len(res.Suppliers) == 0 {
		return res, err
	}

	if b, err := json.Marshal(res); err == nil {
		if err := s.store.Set(ctx, key, b, s.ttl); err != nil {
			s.logger.Warn("cache write failed", "key", key, "err", err)
		}
	}
	return res, nil
}
