package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/guarzo/resellgap/internal/config"
)

// Store caches JSON-encodable provider responses.
type Store interface {
	// Get decodes the entry for key into target and reports whether a live
	// entry was found.
	Get(ctx context.Context, key string, target any) (bool, error)
	// Put stores value under key for ttl. A zero ttl never expires.
	Put(ctx context.Context, key string, value any, ttl time.Duration) error
}

// Open builds the store selected by cfg.Backend. The "none" backend returns
// a nil Store, which callers treat as caching disabled.
func Open(cfg config.CacheConfig) (Store, error) {
	switch cfg.Backend {
	case "", "none":
		return nil, nil
	case "memory":
		return NewMemory(cfg.MaxEntries), nil
	case "file":
		f, err := NewFile(cfg.Path)
		if err != nil {
			return nil, err
		}
		return f, nil
	case "redis":
		r, err := NewRedisFromURL(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// BuildKey joins key parts with "|".
func BuildKey(parts ...string) string {
	return strings.Join(parts, "|")
}

// KeepaKey is the cache key of a reference-marketplace lookup.
func KeepaKey(domain int, identifier string) string {
	return BuildKey("keepa", fmt.Sprint(domain), identifier)
}

// WebSearchKey is the cache key of an open-web query.
func WebSearchKey(query string) string {
	return BuildKey("web", strings.ToLower(strings.TrimSpace(query)))
}

// RateKey is the cache key of an exchange rate.
func RateKey(from, to string) string {
	return BuildKey("fx", strings.ToUpper(from), strings.ToUpper(to))
}
