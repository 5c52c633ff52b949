// Package cache keeps recent per-source search results so repeated searches
// do not hit the directories again.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ErrMiss is returned by Store.Get when a key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// Store is a byte-value cache with per-entry TTL.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// DefaultTTL is how long a search result is reused.
const DefaultTTL = 15 * time.Minute

// Config selects and configures a Store.
type Config struct {
	// Type is none, memory or redis.
	Type     string
	RedisURL string
	Logger   *slog.Logger
}

// New builds the Store named by cfg.Type. It returns a nil Store for
// "none" or "".
func New(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(cfg.Type) {
	case "", "none":
		return nil, nil
	case "memory":
		return NewMemory(time.Minute), nil
	case "redis":
		r, err := NewRedis(ctx, cfg.RedisURL, cfg.Logger)
		if err != nil {
			return nil, err
		}
		return r, nil
	}
	return nil, fmt.Errorf("cache: unknown type %q", cfg.Type)
}
